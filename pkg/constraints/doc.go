// Package constraints unpacks the raw CIB constraint declarations —
// location, colocation, ordering, and ticket constraints, including their
// resource-set and tag forms — into the shape the placement and ordering
// engines consume.
//
// Expansion happens once, up front: tag references are replaced by their
// member resource IDs (template IDs are not expanded and pass through as
// plain IDs), each resource-set's member list is resolved but no edges
// between sets are built here, and legacy score-only orderings are
// normalized to an explicit kind. Anything the CIB declares that this
// package can't make sense of is recorded as a config-error diagnostic and
// skipped, never aborts the whole pass.
package constraints
