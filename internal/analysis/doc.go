// Package analysis post-processes recorded runs.
//
//   - [AnalyzeReaching]: sliding-surface convergence report from traced
//     control diagnostics
//   - [PhaseFromResult]: 2D phase portrait extraction and ASCII rendering
//   - [LyapunovExponent]: largest Lyapunov exponent via trajectory
//     separation, for characterizing the unforced plant
package analysis
