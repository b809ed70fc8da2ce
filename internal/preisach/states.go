package preisach

type sweep int

const (
	hold sweep = iota
	rising
	falling
)

func direction(h, prev float64) sweep {
	switch {
	case h > prev:
		return rising
	case h < prev:
		return falling
	default:
		return hold
	}
}

// sweepUp switches on every hysteron whose alpha the field has risen past.
func sweepUp(dst, prev []float64, h float64, mesh Mesh, temperature float64) {
	for j, p := range mesh {
		u := relay(h-p.Alpha, temperature)
		dst[j] = 1 - (1-prev[j])*(1-u)
	}
}

// sweepDown switches off every hysteron whose beta the field has fallen past.
func sweepDown(dst, prev []float64, h float64, mesh Mesh, temperature float64) {
	for j, p := range mesh {
		w := relay(p.Beta-h, temperature)
		dst[j] = prev[j] * (1 - w)
	}
}

func step(dst, prev []float64, dir sweep, h float64, mesh Mesh, temperature float64) {
	switch dir {
	case rising:
		sweepUp(dst, prev, h, mesh, temperature)
	case falling:
		sweepDown(dst, prev, h, mesh, temperature)
	default:
		copy(dst, prev)
	}
}

// initial returns the starting state and the sweep direction of the first
// step. Without a continuation the model starts at negative saturation,
// so the first step is always a rising sweep.
func initial(h0 float64, n int, cont *Continuation) ([]float64, sweep) {
	if cont == nil {
		return make([]float64, n), rising
	}
	prev := make([]float64, n)
	copy(prev, cont.State)
	return prev, direction(h0, cont.Field)
}

// ComputeStates replays the normalized field history h over the mesh and
// returns every hysteron's soft state after each step.
//
// When cont is nil the recursion starts from negative saturation; otherwise
// it continues from cont.State reached at cont.Field. Row k depends only on
// h[0..k], so running over a prefix yields the same leading rows.
func ComputeStates(h []float64, mesh Mesh, temperature float64, cont *Continuation) (States, error) {
	if err := validateFields("history", h); err != nil {
		return nil, err
	}
	if err := mesh.Validate(); err != nil {
		return nil, err
	}
	if err := validateTemperature(temperature); err != nil {
		return nil, err
	}
	if err := cont.validate(len(mesh)); err != nil {
		return nil, err
	}

	n := len(mesh)
	states := make(States, len(h))
	prev, dir := initial(h[0], n, cont)

	for i := range h {
		if i > 0 {
			dir = direction(h[i], h[i-1])
		}
		row := make([]float64, n)
		step(row, prev, dir, h[i], mesh, temperature)
		states[i] = row
		prev = row
	}

	return states, nil
}
