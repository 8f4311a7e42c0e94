// Package ordering builds the action ordering DAG: intrinsic
// stop-before-start and start-before-monitor edges, constraint-derived
// edges (including resource-set cross-products and symmetry inversion),
// migration mirroring, and clone-min "relaxed-clone" pseudo-actions. It
// then topologically sorts the graph with Kahn's algorithm, which doubles
// as cycle detection: a cycle is a fatal config-error that aborts the rest
// of the pass (no partial transition graph is ever emitted).
package ordering
