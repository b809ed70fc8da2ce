// Package preisach provides the differentiable Preisach state engine.
//
// The package defines the hysteron mesh and the soft relay recursion that
// turns a sequence of normalized applied fields into hysteron states:
//
//   - [Mesh]: hysteron thresholds (alpha >= beta) on the unit Preisach plane
//   - [ComputeStates]: causal state replay over a field history
//   - [ComputeBatchedStates]: independent one-step predictions for candidates
//   - [StateGradients]: reverse-mode gradients through the state recursion
//   - [BoundedParam]: raw parameters behind a monotone constraint map
//
// # Example
//
//	mesh, _ := mesh.Generate(1.0, nil)
//	states, _ := preisach.ComputeStates(h, mesh, 1e-2, nil)
//	next, _ := preisach.ComputeStates(more, mesh, 1e-2, states.Continue(h))
//
// # Temperature
//
// Each relay switches through a logistic surrogate sigma((h-threshold)/T).
// Smaller temperatures approach the hard relay but give steeper
// gradients. A temperature of exactly zero selects the hard operator.
//
// # Thread Safety
//
// All functions are pure and safe for concurrent use. [BoundedParam] is
// NOT thread-safe.
package preisach
