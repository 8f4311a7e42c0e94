package types

import (
	"sort"
	"time"
)

// WorkingSet is the root container for one scheduling pass: every typed
// input plus every computed action/edge, and the monotonic counters used to
// stamp new IDs. It is constructed fresh per pass and discarded at the end;
// nothing here outlives a single call into the engine.
type WorkingSet struct {
	Nodes     map[string]*Node
	Resources map[string]*Resource
	Tickets   map[string]*Ticket

	LocationConstraints   []*LocationConstraint
	ColocationConstraints []*ColocationConstraint
	OrderConstraints      []*OrderConstraint
	TicketConstraints     []*TicketConstraint

	Options ClusterOptions
	Now     time.Time

	NextRecheck *time.Time

	Diagnostics []Diagnostic

	// Actions is the action arena, keyed by the ActionKey uniqueness
	// invariant. actionOrder preserves creation order for deterministic
	// iteration prior to the final ID-sorted emission pass.
	Actions     map[ActionKey]*Action
	actionOrder []ActionKey

	Edges []OrderingEdge

	nextActionID int
	nextOrderID  int

	// warnedOnce gates "signal once per run" unsupported-feature
	// diagnostics (e.g. legacy score instead of kind).
	warnedOnce map[string]bool
}

// NewWorkingSet builds an empty working set ready for construction from
// parsed CIB input.
func NewWorkingSet(now time.Time) *WorkingSet {
	return &WorkingSet{
		Nodes:      map[string]*Node{},
		Resources:  map[string]*Resource{},
		Tickets:    map[string]*Ticket{},
		Options:    DefaultClusterOptions(),
		Now:        now,
		Actions:    map[ActionKey]*Action{},
		warnedOnce: map[string]bool{},
	}
}

// AddDiagnostic records a diagnostic. This never panics or aborts the pass
// by itself — callers decide whether a config-error is fatal (cycles) or
// merely skips one constraint.
func (ws *WorkingSet) AddDiagnostic(sev Severity, code, subjectID, message string) {
	ws.Diagnostics = append(ws.Diagnostics, Diagnostic{
		Severity:  sev,
		Code:      code,
		SubjectID: subjectID,
		Message:   message,
	})
}

// WarnOnce records an unsupported-feature diagnostic at most once per run
// per key, so a config referencing the same unsupported feature repeatedly
// doesn't flood diagnostics with duplicates.
func (ws *WorkingSet) WarnOnce(key, subjectID, message string) {
	if ws.warnedOnce[key] {
		return
	}
	ws.warnedOnce[key] = true
	ws.AddDiagnostic(SeverityWarn, "unsupported-feature:"+key, subjectID, message)
}

// GetOrCreateAction returns the existing action for (resource, task,
// interval) or creates a new one; duplicate creation attempts return the
// existing action rather than erroring.
func (ws *WorkingSet) GetOrCreateAction(resourceID, task string, intervalMS int) *Action {
	return ws.GetOrCreateInstanceAction(resourceID, task, intervalMS, "")
}

// GetOrCreateInstanceAction is GetOrCreateAction with an explicit instance
// discriminator, for the cases where (resource, task, interval) alone
// isn't unique: a clone/promotable-clone's several instances share a
// template resource ID but each still needs its own start/promote/stop
// action, and a recurring monitor (of any resource) is keyed by the node
// it runs on. Passing "" gives GetOrCreateAction's behavior exactly.
func (ws *WorkingSet) GetOrCreateInstanceAction(resourceID, task string, intervalMS int, instance string) *Action {
	key := ActionKey{ResourceID: resourceID, Task: task, IntervalMS: intervalMS, Instance: instance}
	if a, ok := ws.Actions[key]; ok {
		return a
	}
	ws.nextActionID++
	a := &Action{
		ID:         ws.nextActionID,
		Key:        key,
		ResourceID: resourceID,
		Task:       task,
		IntervalMS: intervalMS,
		Flags:      FlagSet{},
		Meta:       map[string]string{},
	}
	ws.Actions[key] = a
	ws.actionOrder = append(ws.actionOrder, key)
	return a
}

// LookupAction returns the action for a key if one was already created.
func (ws *WorkingSet) LookupAction(resourceID, task string, intervalMS int) (*Action, bool) {
	return ws.LookupInstanceAction(resourceID, task, intervalMS, "")
}

// LookupInstanceAction is LookupAction with an explicit instance
// discriminator; see GetOrCreateInstanceAction.
func (ws *WorkingSet) LookupInstanceAction(resourceID, task string, intervalMS int, instance string) (*Action, bool) {
	a, ok := ws.Actions[ActionKey{ResourceID: resourceID, Task: task, IntervalMS: intervalMS, Instance: instance}]
	return a, ok
}

// NextOrderID hands out the next monotonic synthetic-constraint ID. No
// stage calls it; "relaxed-clone:<id>" pseudo-actions are named after the
// order constraint's own ID.
func (ws *WorkingSet) NextOrderID() int {
	ws.nextOrderID++
	return ws.nextOrderID
}

// AddEdge appends one ordering edge. Duplicate edges (same from/to) merge
// their flags rather than creating parallel edges.
func (ws *WorkingSet) AddEdge(fromID, toID int, flags FlagSet) {
	for i := range ws.Edges {
		if ws.Edges[i].FromID == fromID && ws.Edges[i].ToID == toID {
			for k, v := range flags {
				ws.Edges[i].Flags[k] = v
			}
			return
		}
	}
	ws.Edges = append(ws.Edges, OrderingEdge{FromID: fromID, ToID: toID, Flags: flags.Clone()})
}

// RemoveAction deletes an action entirely, e.g. when pkg/graph prunes a
// pseudo-action that ended up with no predecessors and no successors.
func (ws *WorkingSet) RemoveAction(key ActionKey) {
	delete(ws.Actions, key)
	for i, k := range ws.actionOrder {
		if k == key {
			ws.actionOrder = append(ws.actionOrder[:i], ws.actionOrder[i+1:]...)
			break
		}
	}
}

// OrderedActions returns all actions sorted by ID, the iteration order
// every deterministic downstream pass (ordering, emission) must use.
func (ws *WorkingSet) OrderedActions() []*Action {
	out := make([]*Action, 0, len(ws.Actions))
	for _, k := range ws.actionOrder {
		out = append(out, ws.Actions[k])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SortedNodeIDs returns every node ID in lexicographic order.
func (ws *WorkingSet) SortedNodeIDs() []string {
	ids := make([]string, 0, len(ws.Nodes))
	for id := range ws.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SortedResourceIDs returns every resource ID in lexicographic order.
func (ws *WorkingSet) SortedResourceIDs() []string {
	ids := make([]string, 0, len(ws.Resources))
	for id := range ws.Resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UpdateNextRecheck folds in a candidate recheck time, keeping the smallest
// strictly-future candidate seen so far.
func (ws *WorkingSet) UpdateNextRecheck(candidate time.Time) {
	if !candidate.After(ws.Now) {
		return
	}
	if ws.NextRecheck == nil || candidate.Before(*ws.NextRecheck) {
		t := candidate
		ws.NextRecheck = &t
	}
}
