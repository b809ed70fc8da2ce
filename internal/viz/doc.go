// Package viz renders hysteresis loops and Preisach densities in the
// terminal.
//
// Static output:
//
//   - [LoopPlot]: Braille plot of magnetization against field
//   - [SeriesChart]: asciigraph chart of measured and predicted series
//   - [Summary]: lipgloss panel of labelled values
//
// [Live] is a Bubble Tea program that drives a model with a field
// sequence and draws the loop as it is traced.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset history and restart the sequence
//	D     - Toggle loop / density view
//	X Y   - Rotate the density view
//	+ -   - Zoom the density view
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
