package physics_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dipsim/internal/physics"
	"github.com/san-kum/dipsim/internal/sim"
)

// sampleStates spans upright, hanging, horizontal links and fast rotations.
var sampleStates = []sim.State{
	{0, 0, 0, 0, 0, 0},
	{0, 0.1, 0.05, 0, 0, 0},
	{0.5, math.Pi / 2, 0, 0, 0, 0},
	{0, math.Pi / 2, math.Pi / 2, 0, 0, 0},
	{-1.2, math.Pi, math.Pi, 0, 0, 0},
	{0, 2.5, -1.7, 1.0, 4.0, -6.0},
	{3.0, -0.3, 2.9, -2.0, 10.0, 8.0},
}

var _ = Describe("inertia matrix", func() {
	p := physics.DefaultParams()

	It("is symmetric for every sampled configuration", func() {
		for _, x := range sampleStates {
			ms, err := physics.ComputeMatrices(x, p, physics.AllEffects())
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					Expect(ms.M.At(i, j)).To(BeNumerically("~", ms.M.At(j, i), 1e-10))
				}
			}
		}
	})

	It("is positive definite for every sampled configuration", func() {
		for _, x := range sampleStates {
			ms, err := physics.ComputeMatrices(x, p, physics.AllEffects())
			Expect(err).NotTo(HaveOccurred())

			var eig mat.EigenSym
			Expect(eig.Factorize(ms.M, false)).To(BeTrue())
			for _, ev := range eig.Values(nil) {
				Expect(ev).To(BeNumerically(">", 1e-6))
			}
		}
	})

	It("scales linearly with the mass parameters", func() {
		const c = 3.7
		scaled := p
		scaled.CartMass *= c
		scaled.Mass1 *= c
		scaled.Mass2 *= c
		scaled.Inertia1 *= c
		scaled.Inertia2 *= c

		for _, x := range sampleStates {
			base, err := physics.ComputeMatrices(x, p, physics.AllEffects())
			Expect(err).NotTo(HaveOccurred())
			big, err := physics.ComputeMatrices(x, scaled, physics.AllEffects())
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					Expect(big.M.At(i, j)).To(BeNumerically("~", c*base.M.At(i, j), 1e-9))
				}
			}
		}
	})
})

var _ = Describe("singularity guard", func() {
	It("keeps the dynamics finite with both links horizontal", func() {
		p := physics.DefaultParams()
		p.DetThreshold = 1e-3
		dp := physics.NewDoublePendulum(p)

		dx, fact, err := dp.Evaluate(sim.State{0, math.Pi / 2, math.Pi / 2, 0, 0, 0}, sim.Control{0}, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(dx.IsValid()).To(BeTrue())
		Expect(fact.Regularized).To(BeTrue())
	})

	It("never raises a hard error across the sampled configurations", func() {
		p := physics.DefaultParams()
		dp := physics.NewDoublePendulum(p)

		for _, x := range sampleStates {
			dx, _, err := dp.Evaluate(x, sim.Control{0}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(dx.IsValid()).To(BeTrue())
		}
	})
})
