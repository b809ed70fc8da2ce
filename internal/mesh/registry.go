package mesh

import (
	"fmt"
	"sort"
)

var densities = map[string]DensityFunc{
	"default":  Default,
	"uniform":  Uniform,
	"diagonal": Diagonal,
}

// DensityByName resolves a registered density. The empty name selects Default.
func DensityByName(name string) (DensityFunc, error) {
	if name == "" {
		return Default, nil
	}
	fn, ok := densities[name]
	if !ok {
		return nil, fmt.Errorf("unknown mesh density: %s", name)
	}
	return fn, nil
}

// Names lists the registered densities in sorted order.
func Names() []string {
	names := make([]string, 0, len(densities))
	for name := range densities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
