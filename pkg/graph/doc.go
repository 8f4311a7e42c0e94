// Package graph performs the final pass over a computed action set before
// emission: it drops pseudo-actions that ended up with neither a
// predecessor nor a successor (the constraint that would have given them a
// reason to exist was never built, e.g. a clone-min relaxation nobody
// needed). pkg/engine then passes the survivors to pkg/cib for XML
// serialization in deterministic ID order.
package graph
