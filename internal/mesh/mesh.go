// Package mesh generates hysteron meshes on the unit Preisach plane.
//
// Points are laid out on layers parallel to the alpha = beta diagonal. The
// spacing between layers and between points on a layer is
// scale * density(alpha, beta), so a density that grows with alpha - beta
// gives a fine mesh near the diagonal and a coarse one away from it.
package mesh

import (
	"fmt"
	"math"

	"github.com/san-kum/preisach/internal/preisach"
)

// DensityFunc returns the relative point spacing at (alpha, beta).
// Values must be positive and finite.
type DensityFunc func(alpha, beta float64) float64

const (
	minSpacing = 1e-3
	maxPoints  = 200000
)

// Generate builds the mesh for the given scale. A nil density selects
// Default. The mesh always contains (0,0), (1,1) and (alpha=1, beta=0).
func Generate(scale float64, density DensityFunc) (preisach.Mesh, error) {
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return nil, fmt.Errorf("%w: mesh scale must be positive, got %g", preisach.ErrConfiguration, scale)
	}
	if density == nil {
		density = Default
	}

	spacing := func(alpha, beta float64) (float64, error) {
		s := scale * density(alpha, beta)
		if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
			return 0, fmt.Errorf("%w: density at (%g, %g) gives spacing %g", preisach.ErrConfiguration, alpha, beta, s)
		}
		return math.Max(s, minSpacing), nil
	}

	var mesh preisach.Mesh
	d := 0.0
	for {
		length := 1 - d
		b := 0.0
		for b < length {
			s, err := spacing(b+d, b)
			if err != nil {
				return nil, err
			}
			if b >= length-s/2 {
				break
			}
			mesh = append(mesh, preisach.Point{Alpha: b + d, Beta: b})
			b += s
		}
		mesh = append(mesh, preisach.Point{Alpha: 1, Beta: length})

		if len(mesh) > maxPoints {
			return nil, fmt.Errorf("%w: mesh exceeds %d points, increase the scale", preisach.ErrConfiguration, maxPoints)
		}
		if d >= 1 {
			break
		}

		s, err := spacing((1+d)/2, (1-d)/2)
		if err != nil {
			return nil, err
		}
		d += s
		if d > 1-s/2 {
			d = 1
		}
	}

	return mesh, nil
}

// Default is fine along the diagonal and coarse away from it. At scale 1
// it yields 111 points.
func Default(alpha, beta float64) float64 {
	return 0.04 + 0.2*(alpha-beta)
}

// Uniform spaces points evenly over the plane.
func Uniform(alpha, beta float64) float64 {
	return 0.1
}

// Diagonal concentrates points more strongly near alpha = beta than Default.
func Diagonal(alpha, beta float64) float64 {
	return 0.025 + 0.3*(alpha-beta)
}
