// Package analysis characterizes hysteresis loops.
//
//   - [Characterize]: coercive fields, remanence, saturation and loop area
//     of a sampled loop
//   - [FirstOrderReversalCurves]: reversal curves traced by a model and
//     their mixed-derivative distribution
//   - [Harmonics]: harmonic content of a response to periodic drive
//
// # Coercivity
//
// The coercivity is half the distance between the outermost fields at
// which the magnetization changes sign:
//
//	c, err := analysis.Characterize(h, m)
//	fmt.Println(c.Coercivity, c.Remanence)
package analysis
