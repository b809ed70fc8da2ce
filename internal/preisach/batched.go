package preisach

// ComputeBatchedStates evaluates every candidate field as an independent
// single step from the shared continuation. Candidates never chain: row i
// equals ComputeStates([]float64{candidates[i]}, mesh, temperature, cont)[0].
// Neither cont nor mesh is modified.
func ComputeBatchedStates(candidates []float64, mesh Mesh, cont *Continuation, temperature float64) (States, error) {
	if err := validateFields("candidates", candidates); err != nil {
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
	states := make(States, len(candidates))
	for i, c := range candidates {
		prev, dir := initial(c, n, cont)
		row := make([]float64, n)
		step(row, prev, dir, c, mesh, temperature)
		states[i] = row
	}
	return states, nil
}
