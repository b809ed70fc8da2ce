package model

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/preisach/internal/preisach"
)

var (
	trainH = []float64{-1, -0.5, 0, 0.5, 1}
	trainM = []float64{-1, -0.4, 0.1, 0.6, 1}
)

func trainedModel() *Model {
	md, err := New(DefaultOptions(), trainH, trainM)
	Expect(err).NotTo(HaveOccurred())
	return md
}

var _ = Describe("Model", func() {
	Describe("construction", func() {
		It("fits the training history within the saturation bounds", func() {
			md := trainedModel()
			Expect(md.Mode()).To(Equal(Fitting))

			out, err := md.Forward(trainH, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(5))
			for _, v := range out {
				Expect(v).To(BeNumerically(">", md.Offset()-md.Scale()))
				Expect(v).To(BeNumerically("<", md.Offset()+md.Scale()))
			}
		})

		It("round-trips the stored history to physical units", func() {
			md := trainedModel()
			h, m := md.HistoryH(), md.HistoryM()
			for i := range trainH {
				Expect(h[i]).To(BeNumerically("~", trainH[i], 1e-12))
				Expect(m[i]).To(BeNumerically("~", trainM[i], 1e-9))
			}
			Expect(md.ValidDomain()).To(Equal([2]float64{-1, 1}))
		})

		It("starts from the documented parameter values", func() {
			md, err := New(DefaultOptions(), nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(md.Offset()).To(BeNumerically("~", 0, 1e-9))
			Expect(md.Scale()).To(BeNumerically("~", 1, 1e-9))
			Expect(md.Slope()).To(BeNumerically("~", 0, 1e-9))
			Expect(md.Density()).To(HaveLen(md.NMeshPoints()))
			for _, d := range md.Density() {
				Expect(d).To(BeNumerically("~", 0.5, 1e-12))
			}
			Expect(md.HasHistory()).To(BeFalse())
			Expect(md.ValidDomain()).To(Equal([2]float64{0, 1}))
		})

		It("rejects identical h and m", func() {
			_, err := New(DefaultOptions(), trainH, trainH)
			Expect(err).To(MatchError(preisach.ErrConfiguration))
		})

		It("rejects mismatched lengths", func() {
			_, err := New(DefaultOptions(), trainH, trainM[:3])
			Expect(err).To(MatchError(preisach.ErrConfiguration))
		})

		It("rejects a negative temperature", func() {
			opts := DefaultOptions()
			opts.Temperature = -1
			_, err := New(opts, nil, nil)
			Expect(err).To(MatchError(preisach.ErrConfiguration))
		})
	})

	Describe("history", func() {
		It("initializes a history from ApplyField on an empty model", func() {
			md, err := New(DefaultOptions(), nil, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(md.ApplyField(0.5)).To(Succeed())
			Expect(md.HistoryH()).To(HaveLen(1))
			Expect(md.HistoryM()).To(HaveLen(1))
			states := md.States()
			Expect(states).To(HaveLen(1))
			Expect(states[0]).To(HaveLen(md.NMeshPoints()))
		})

		It("extends the magnetization with the model's own prediction", func() {
			md := trainedModel()
			predicted, err := md.Evaluate(Future, []float64{0.2, -0.3}, true)
			Expect(err).NotTo(HaveOccurred())

			Expect(md.ApplyField(0.2, -0.3)).To(Succeed())
			h, m := md.HistoryH(), md.HistoryM()
			Expect(h).To(HaveLen(7))
			Expect(m).To(HaveLen(7))
			Expect(m[5]).To(BeNumerically("~", predicted[0], 1e-9))
			Expect(m[6]).To(BeNumerically("~", predicted[1], 1e-9))
		})

		It("matches a full replay after applying fields", func() {
			md := trainedModel()
			Expect(md.ApplyField(0.25, 0.75)).To(Succeed())

			replay, err := preisach.ComputeStates(mustNormalized(md), md.Mesh(), md.Temperature(), nil)
			Expect(err).NotTo(HaveOccurred())
			states := md.States()
			for i := range replay {
				for j := range replay[i] {
					Expect(states[i][j]).To(BeNumerically("~", replay[i][j], 1e-12))
				}
			}
		})

		It("rejects fields outside the valid domain without changing history", func() {
			md := trainedModel()
			err := md.ApplyField(0.5, 3)
			Expect(err).To(MatchError(preisach.ErrDomain))
			var domainErr *preisach.DomainError
			Expect(errors.As(err, &domainErr)).To(BeTrue())
			Expect(domainErr.Values).To(Equal([]float64{3}))
			Expect(md.HistoryH()).To(HaveLen(5))
		})

		It("derives magnetization by regression when m is omitted", func() {
			md, err := New(DefaultOptions(), nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(md.SetMode(Next)).To(Succeed())

			h := []float64{0.1, 0.9, 0.4, 0.6}
			Expect(md.SetHistory(h, nil)).To(Succeed())
			Expect(md.Mode()).To(Equal(Next))

			want, err := md.Evaluate(Regression, h, true)
			Expect(err).NotTo(HaveOccurred())
			got := md.HistoryM()
			for i := range want {
				Expect(got[i]).To(BeNumerically("~", want[i], 1e-12))
			}
		})

		It("leaves the model untouched when SetHistory fails", func() {
			md := trainedModel()
			before := md.HistoryH()
			Expect(md.SetHistory([]float64{1, 2}, []float64{1, 2})).To(MatchError(preisach.ErrConfiguration))
			Expect(md.SetHistory([]float64{1, 2}, []float64{1})).To(MatchError(preisach.ErrConfiguration))
			Expect(md.SetHistory(nil, nil)).To(MatchError(preisach.ErrConfiguration))
			Expect(md.HistoryH()).To(Equal(before))
			Expect(md.ValidDomain()).To(Equal([2]float64{-1, 1}))
		})

		It("fails current mode after a reset", func() {
			md := trainedModel()
			md.ResetHistory()
			Expect(md.SetMode(Current)).To(Succeed())

			_, err := md.Forward([]float64{0}, false)
			Expect(err).To(MatchError(preisach.ErrModeConsistency))
			_, err = md.Forward(nil, false)
			Expect(err).To(MatchError(preisach.ErrModeConsistency))
			Expect(md.HistoryH()).To(BeNil())
			Expect(md.States()).To(BeNil())
		})
	})

	Describe("modes", func() {
		var md *Model

		BeforeEach(func() {
			md = trainedModel()
		})

		It("requires the stored fields in fitting mode", func() {
			_, err := md.Forward([]float64{-1, -0.5, 0, 0.5, 0.9}, false)
			Expect(err).To(MatchError(preisach.ErrModeConsistency))
			_, err = md.Forward(trainH[:4], false)
			Expect(err).To(MatchError(preisach.ErrModeConsistency))
		})

		It("requires history in fitting mode", func() {
			md.ResetHistory()
			_, err := md.Forward(trainH, false)
			Expect(err).To(MatchError(preisach.ErrModeConsistency))
		})

		It("requires a field outside current mode", func() {
			for _, mode := range []Mode{Fitting, Regression, Next, Future} {
				_, err := md.Evaluate(mode, nil, false)
				Expect(err).To(MatchError(preisach.ErrModeConsistency))
			}
		})

		It("rejects unknown modes", func() {
			Expect(md.SetMode(Mode(42))).To(MatchError(preisach.ErrUnknownMode))
			Expect(md.Mode()).To(Equal(Fitting))
			_, err := md.Evaluate(Mode(42), trainH, false)
			Expect(err).To(MatchError(preisach.ErrUnknownMode))
		})

		It("enforces the domain tolerance", func() {
			domain := md.ValidDomain()
			_, err := md.Evaluate(Regression, []float64{domain[1] + 1.0}, false)
			Expect(err).To(MatchError(preisach.ErrDomain))
			_, err = md.Evaluate(Regression, []float64{domain[1] - 1e-5}, false)
			Expect(err).NotTo(HaveOccurred())
			_, err = md.Evaluate(Regression, []float64{domain[0] - 5e-5}, false)
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns the last fitted value in current mode", func() {
			fit, err := md.Evaluate(Fitting, trainH, true)
			Expect(err).NotTo(HaveOccurred())
			cur, err := md.Evaluate(Current, nil, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(cur).To(HaveLen(1))
			Expect(cur[0]).To(BeNumerically("~", fit[len(fit)-1], 1e-12))
		})

		It("continues the history in future mode", func() {
			x := []float64{0.3, -0.8, 0.6}
			future, err := md.Evaluate(Future, x, false)
			Expect(err).NotTo(HaveOccurred())

			full := append(append([]float64{}, trainH...), x...)
			replay, err := md.Evaluate(Regression, full, false)
			Expect(err).NotTo(HaveOccurred())
			for i := range x {
				Expect(future[i]).To(BeNumerically("~", replay[len(trainH)+i], 1e-12))
			}
		})

		It("requires history in future mode", func() {
			md.ResetHistory()
			_, err := md.Evaluate(Future, []float64{0.1}, false)
			Expect(err).To(MatchError(preisach.ErrModeConsistency))
		})

		It("predicts each next candidate independently without side effects", func() {
			candidates := []float64{-1, -0.2, 0.4, 1}
			before := md.HistoryH()

			next, err := md.Evaluate(Next, candidates, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(HaveLen(len(candidates)))
			for i, c := range candidates {
				single, err := md.Evaluate(Future, []float64{c}, true)
				Expect(err).NotTo(HaveOccurred())
				Expect(next[i]).To(BeNumerically("~", single[0], 1e-12))
			}
			Expect(md.HistoryH()).To(Equal(before))
		})

		It("predicts from saturation in next mode without history", func() {
			md.ResetHistory()
			next, err := md.Evaluate(Next, []float64{0.5}, false)
			Expect(err).NotTo(HaveOccurred())
			reg, err := md.Evaluate(Regression, []float64{0.5}, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(next[0]).To(BeNumerically("~", reg[0], 1e-12))
		})
	})

	Describe("parameters", func() {
		It("rejects values outside their bounds", func() {
			md := trainedModel()
			Expect(md.SetScale(-1)).To(MatchError(preisach.ErrParameterBounds))
			Expect(md.SetOffset(2500)).To(MatchError(preisach.ErrParameterBounds))
			Expect(md.SetSlope(math.NaN())).To(MatchError(preisach.ErrParameterBounds))
			Expect(md.Scale()).To(BeNumerically("~", 1, 1e-9))

			Expect(md.SetScale(3)).To(Succeed())
			Expect(md.Scale()).To(BeNumerically("~", 3, 1e-9))
		})

		It("reports negative saturation from offset and scale", func() {
			md := trainedModel()
			Expect(md.SetOffset(0.2)).To(Succeed())
			Expect(md.SetScale(0.7)).To(Succeed())
			want := md.Transform().UntransformM(0, 0.2-0.7)
			Expect(md.NegativeSaturation()).To(BeNumerically("~", want, 1e-12))
		})

		It("freezes the transform when training is disabled", func() {
			md := trainedModel()
			md.SetTrainable(false)
			for _, p := range md.Params() {
				Expect(p.Trainable).To(BeFalse())
			}
			Expect(md.SetHistory([]float64{-0.5, 0.5}, []float64{0, 1})).To(Succeed())
			Expect(md.ValidDomain()).To(Equal([2]float64{-1, 1}))
		})

		It("keeps offset and slope fixed under fixed scaling", func() {
			opts := DefaultOptions()
			opts.FixedScaling = true
			md, err := New(opts, trainH, trainM)
			Expect(err).NotTo(HaveOccurred())
			params := md.Params()
			Expect(params[0].Trainable).To(BeTrue())
			Expect(params[1].Trainable).To(BeFalse())
			Expect(params[2].Trainable).To(BeTrue())
			Expect(params[3].Trainable).To(BeFalse())
			Expect(md.Transform().Frozen()).To(BeTrue())
		})

		It("matches finite differences in the fitting loss gradient", func() {
			opts := DefaultOptions()
			opts.MeshScale = 2
			md, err := New(opts, trainH, trainM)
			Expect(err).NotTo(HaveOccurred())
			Expect(md.SetSlope(0.3)).To(Succeed())
			Expect(md.SetOffset(-0.1)).To(Succeed())

			_, grads, err := md.FittingLoss()
			Expect(err).NotTo(HaveOccurred())

			const eps = 1e-6
			for k, p := range md.Params() {
				for _, j := range []int{0, p.Len() / 2, p.Len() - 1} {
					raw := p.Raw()
					orig := raw[j]

					raw[j] = orig + eps
					Expect(p.SetRaw(raw)).To(Succeed())
					up, _, err := md.FittingLoss()
					Expect(err).NotTo(HaveOccurred())

					raw[j] = orig - eps
					Expect(p.SetRaw(raw)).To(Succeed())
					down, _, err := md.FittingLoss()
					Expect(err).NotTo(HaveOccurred())

					raw[j] = orig
					Expect(p.SetRaw(raw)).To(Succeed())

					num := (up - down) / (2 * eps)
					Expect(grads[k][j]).To(BeNumerically("~", num, 1e-6*math.Max(1, math.Abs(num))), p.Name)
				}
			}
		})

		It("matches finite differences in the next-step sensitivity", func() {
			opts := DefaultOptions()
			opts.Temperature = 0.1
			md, err := New(opts, trainH, trainM)
			Expect(err).NotTo(HaveOccurred())
			Expect(md.SetSlope(0.2)).To(Succeed())

			candidates := []float64{-0.6, 0.15, 0.2}
			sens, err := md.NextSensitivity(candidates)
			Expect(err).NotTo(HaveOccurred())

			const eps = 1e-6
			for i, c := range candidates {
				up, err := md.Evaluate(Next, []float64{c + eps}, true)
				Expect(err).NotTo(HaveOccurred())
				down, err := md.Evaluate(Next, []float64{c - eps}, true)
				Expect(err).NotTo(HaveOccurred())
				Expect(sens[i]).To(BeNumerically("~", (up[0]-down[0])/(2*eps), 1e-5))
			}
		})
	})

	Describe("Clone", func() {
		It("shares no state with the original", func() {
			md := trainedModel()
			c := md.Clone()

			Expect(c.ApplyField(0.1)).To(Succeed())
			Expect(c.SetScale(5)).To(Succeed())
			Expect(c.SetMode(Next)).To(Succeed())
			c.SetTrainable(false)

			Expect(md.HistoryH()).To(HaveLen(5))
			Expect(md.Scale()).To(BeNumerically("~", 1, 1e-9))
			Expect(md.Mode()).To(Equal(Fitting))
			Expect(md.Trainable()).To(BeTrue())
			Expect(md.Transform().Frozen()).To(BeFalse())
			Expect(c.HistoryH()).To(HaveLen(6))
		})
	})
})

func mustNormalized(md *Model) []float64 {
	h, _ := md.NormalizedHistory()
	Expect(h).NotTo(BeEmpty())
	return h
}
