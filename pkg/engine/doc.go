// Package engine is the scheduler's single pure entry point: given a CIB
// configuration document, a live status document, and the current time, it
// produces a transition graph, the next recheck time, and a diagnostics
// list. Schedule never mutates any input, never talks to the network, and
// never blocks — the same three inputs always produce the same three
// outputs.
package engine
