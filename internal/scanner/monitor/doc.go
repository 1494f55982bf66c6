// Package monitor presents reconstructions: an interactive go-echarts
// scatter, a static gonum/plot PNG, and debug HTTP routes that expose the
// latest result alongside a tailsql view of the run store.
//
// Dependency rule: monitor reads l2geometry and l4registration results and
// the run store; nothing in the scanner layers imports it.
package monitor
