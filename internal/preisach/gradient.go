package preisach

// Gradients holds the adjoints of a scalar loss L with respect to the
// inputs of ComputeStates.
type Gradients struct {
	Alpha   []float64 // dL/dalpha per mesh point
	Beta    []float64 // dL/dbeta per mesh point
	Field   []float64 // dL/dh per history step
	Initial []float64 // dL/dcont.State; nil when starting from saturation
}

// StateGradients back-propagates upstream = dL/dS through the state
// recursion of ComputeStates(h, mesh, temperature, cont).
//
// Sweep directions are piecewise constant in h and are treated as fixed.
// Hysterons evolve independently, so the reverse scan runs per hysteron.
func StateGradients(h []float64, mesh Mesh, temperature float64, cont *Continuation, upstream [][]float64) (*Gradients, error) {
	states, err := ComputeStates(h, mesh, temperature, cont)
	if err != nil {
		return nil, err
	}
	n := len(mesh)
	if len(upstream) != len(h) {
		return nil, configErrorf("upstream has %d rows, history has %d", len(upstream), len(h))
	}
	for i, row := range upstream {
		if len(row) != n {
			return nil, configErrorf("upstream row %d has %d values, mesh has %d", i, len(row), n)
		}
	}

	init, dir0 := initial(h[0], n, cont)
	dirs := make([]sweep, len(h))
	dirs[0] = dir0
	for i := 1; i < len(h); i++ {
		dirs[i] = direction(h[i], h[i-1])
	}

	grads := &Gradients{
		Alpha: make([]float64, n),
		Beta:  make([]float64, n),
		Field: make([]float64, len(h)),
	}
	if cont != nil {
		grads.Initial = make([]float64, n)
	}

	for j, p := range mesh {
		g := 0.0
		for i := len(h) - 1; i >= 0; i-- {
			g += upstream[i][j]
			prev := init[j]
			if i > 0 {
				prev = states[i-1][j]
			}

			switch dirs[i] {
			case rising:
				u := relay(h[i]-p.Alpha, temperature)
				du := g * (1 - prev) * relayGrad(u, temperature)
				grads.Field[i] += du
				grads.Alpha[j] -= du
				g *= 1 - u
			case falling:
				w := relay(p.Beta-h[i], temperature)
				dw := -g * prev * relayGrad(w, temperature)
				grads.Beta[j] += dw
				grads.Field[i] -= dw
				g *= 1 - w
			}
		}
		if grads.Initial != nil {
			grads.Initial[j] = g
		}
	}

	return grads, nil
}
