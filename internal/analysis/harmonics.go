package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/san-kum/preisach/internal/preisach"
)

// Harmonics returns the amplitudes of harmonics 1..n of a signal sampled
// uniformly over a whole number of drive periods.
func Harmonics(signal []float64, periods, n int) ([]float64, error) {
	if periods <= 0 || n <= 0 {
		return nil, fmt.Errorf("%w: periods and harmonics must be positive", preisach.ErrConfiguration)
	}
	if n*periods > len(signal)/2 {
		return nil, fmt.Errorf("%w: %d samples cannot resolve harmonic %d over %d periods",
			preisach.ErrConfiguration, len(signal), n, periods)
	}

	fft := fourier.NewFFT(len(signal))
	coeff := fft.Coefficients(nil, signal)

	amps := make([]float64, n)
	scale := 2 / float64(len(signal))
	for k := 1; k <= n; k++ {
		amps[k-1] = scale * cmplx.Abs(coeff[k*periods])
	}
	return amps, nil
}

// TotalHarmonicDistortion is the RMS of harmonics 2..n over the
// fundamental, or NaN when the fundamental vanishes.
func TotalHarmonicDistortion(amps []float64) float64 {
	if len(amps) == 0 || amps[0] == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, a := range amps[1:] {
		sum += a * a
	}
	return math.Sqrt(sum) / amps[0]
}
