package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/san-kum/dipsim/internal/sim"
	"github.com/san-kum/dipsim/internal/smc"
)

type ExportData struct {
	Controller string             `json:"controller"`
	Integrator string             `json:"integrator"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Steps      int                `json:"steps"`
	Times      []float64          `json:"times"`
	States     [][]float64        `json:"states"`
	Controls   [][]float64        `json:"controls"`
	Metrics    map[string]float64 `json:"metrics"`
}

func exportData(controller, integrator string, dt, duration float64, result *sim.Result) ExportData {
	data := ExportData{
		Controller: controller,
		Integrator: integrator,
		Dt:         dt,
		Duration:   duration,
		Steps:      len(result.Times),
		Times:      result.Times,
		States:     make([][]float64, len(result.States)),
		Controls:   make([][]float64, len(result.Controls)),
		Metrics:    result.Metrics,
	}
	for i, s := range result.States {
		data.States[i] = s
	}
	for i, c := range result.Controls {
		data.Controls[i] = c
	}
	return data
}

func ExportJSON(path string, controller, integrator string, dt, duration float64, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return writeJSON(file, controller, integrator, dt, duration, result)
}

func ExportJSONStdout(controller, integrator string, dt, duration float64, result *sim.Result) error {
	return writeJSON(os.Stdout, controller, integrator, dt, duration, result)
}

func writeJSON(w io.Writer, controller, integrator string, dt, duration float64, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exportData(controller, integrator, dt, duration, result))
}

// ExportCSV writes the trajectory with the control law's diagnostics as
// extra columns. outputs may be nil when no diagnostics were traced; rows
// past the end of outputs carry empty diagnostic cells (the recorded final
// state has no control tick).
func ExportCSV(path string, result *sim.Result, outputs []smc.Output) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteCSV(file, result, outputs)
}

func WriteCSV(w io.Writer, result *sim.Result, outputs []smc.Output) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if len(result.States) == 0 {
		return nil
	}

	header := []string{"time"}
	for i := range result.States[0] {
		if i < len(stateColumns) {
			header = append(header, stateColumns[i])
		} else {
			header = append(header, fmt.Sprintf("x%d", i))
		}
	}
	header = append(header, "u")
	if outputs != nil {
		header = append(header, "s", "u_eq", "u_sw", "saturated", "regularized", "gain", "mode")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	b := func(v bool) string {
		if v {
			return "1"
		}
		return "0"
	}

	for i := range result.States {
		row := []string{f(result.Times[i])}
		for _, val := range result.States[i] {
			row = append(row, f(val))
		}

		if i < len(result.Controls) && len(result.Controls[i]) > 0 {
			row = append(row, f(result.Controls[i][0]))
		} else {
			row = append(row, "")
		}

		if outputs != nil {
			if i < len(outputs) {
				out := outputs[i]
				row = append(row,
					f(out.Surface), f(out.Equivalent), f(out.Switching),
					b(out.Saturated), b(out.Regularized),
					f(out.AdaptedGain), string(out.Mode))
			} else {
				row = append(row, "", "", "", "", "", "", "")
			}
		}

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	return nil
}
