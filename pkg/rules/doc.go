// Package rules evaluates the boolean rule trees attached to location
// constraints: date specifications and node-attribute expressions,
// combined with "and"/"or" boolean operators.
//
// Every evaluation also reports the earliest future instant at which its
// truth value would change if re-evaluated with everything else held
// constant, so a pass can schedule its own re-check without polling. A
// rule with no time dependency (a plain attribute comparison) reports no
// such instant.
package rules
