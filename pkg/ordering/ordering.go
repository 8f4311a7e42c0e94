package ordering

import (
	"strconv"

	"github.com/cuemby/pacemaker-scheduler/pkg/types"
)

// Build constructs every ordering edge — intrinsic, constraint-derived, and
// fencing — then topologically sorts the action graph. It returns false
// when a cycle is detected; the caller (pkg/engine) must treat that as
// fatal and emit no transition graph for this pass, per the documented
// error taxonomy.
func Build(ws *types.WorkingSet) bool {
	buildIntrinsicEdges(ws)
	buildConstraintEdges(ws)
	buildFencingEdges(ws)
	return topologicalSort(ws)
}

// actionResourceID resolves the resource ID an ordering constraint names to
// the ID actions were actually created against: a clone/promotable-clone's
// actions live on its single child template, not the clone's own ID.
func actionResourceID(ws *types.WorkingSet, resourceID string) string {
	r, ok := ws.Resources[resourceID]
	if !ok {
		return resourceID
	}
	if (r.Variant == types.VariantClone || r.Variant == types.VariantPromotableClone) && len(r.ChildIDs) == 1 {
		return r.ChildIDs[0]
	}
	return resourceID
}

func actionsFor(ws *types.WorkingSet, resourceID, task string) []*types.Action {
	rid := actionResourceID(ws, resourceID)
	var out []*types.Action
	for _, a := range ws.OrderedActions() {
		if a.ResourceID == rid && a.Task == task {
			out = append(out, a)
		}
	}
	return out
}

func buildIntrinsicEdges(ws *types.WorkingSet) {
	for _, rid := range ws.SortedResourceIDs() {
		starts := actionsFor(ws, rid, string(types.TaskStart))
		stops := actionsFor(ws, rid, string(types.TaskStop))
		promotes := actionsFor(ws, rid, string(types.TaskPromote))
		demotes := actionsFor(ws, rid, string(types.TaskDemote))
		monitors := actionsFor(ws, rid, string(types.TaskMonitor))

		for _, d := range demotes {
			for _, s := range stops {
				ws.AddEdge(d.ID, s.ID, types.FlagSet{"mandatory": true})
			}
		}
		hasMigration := len(actionsFor(ws, rid, string(types.TaskMigrateTo))) > 0
		if !hasMigration {
			for _, s := range stops {
				for _, st := range starts {
					if s.Node != st.Node {
						ws.AddEdge(s.ID, st.ID, types.FlagSet{"mandatory": true})
					}
				}
			}
		}
		for _, st := range starts {
			for _, p := range promotes {
				if p.Node == st.Node {
					ws.AddEdge(st.ID, p.ID, types.FlagSet{"mandatory": true})
				}
			}
			for _, m := range monitors {
				if m.Node == st.Node && m.IntervalMS > 0 {
					ws.AddEdge(st.ID, m.ID, types.FlagSet{"mandatory": true})
				}
			}
		}
	}
}

// buildConstraintEdges expands every order constraint — simple pairs and
// resource-set sequences alike — into concrete action-to-action edges.
// Resource sets expand to a sequential chain when Sequential is true
// (each resource in the set depends on the one before it) and to an
// unordered group otherwise; the set-to-set boundary orders pairwise
// (every resource in one set depends on every resource in the previous
// set) whether or not either set is sequential, except that a preceding
// set with require-all=false feeds a one-or-more pseudo-action which alone
// gates the next set.
func buildConstraintEdges(ws *types.WorkingSet) {
	for _, oc := range ws.OrderConstraints {
		flags := types.FlagSet{"mandatory": oc.Kind == types.KindMandatory, "optional": oc.Kind == types.KindOptional}
		if len(oc.Sets) > 0 {
			buildSetOrdering(ws, oc, flags)
			continue
		}
		if buildCloneMinOrdering(ws, oc) {
			continue
		}
		addOrderEdge(ws, oc.FirstID, oc.FirstAction, oc.ThenID, oc.ThenAction, flags)
		if oc.Symmetric {
			addOrderEdge(ws, oc.ThenID, invertTask(oc.ThenAction), oc.FirstID, invertTask(oc.FirstAction), flags)
		}
		mirrorMigration(ws, oc, flags)
	}
}

// buildCloneMinOrdering implements the clone-min ordering relaxation: when a
// constraint's first resource is a clone configured with clone-min > 0, the
// then-action is gated on that many runnable instance starts rather than on
// every instance. Each instance's first action feeds a relaxed-clone
// pseudo-action with a one-or-more edge, and the pseudo-action alone gates
// the then-action with runnable-left. Returns false (doing nothing) for any
// constraint this doesn't apply to, so the caller falls back to the plain
// pairwise edge.
func buildCloneMinOrdering(ws *types.WorkingSet, oc *types.OrderConstraint) bool {
	first, ok := ws.Resources[oc.FirstID]
	if !ok {
		return false
	}
	if (first.Variant != types.VariantClone && first.Variant != types.VariantPromotableClone) || first.CloneMin <= 0 {
		return false
	}

	pseudo := ws.GetOrCreateAction("relaxed-clone:"+oc.ID, "pseudo-relaxed-clone", 0)
	pseudo.Flags.Set("pseudo", true)
	pseudo.Meta["required-runnable-before"] = strconv.Itoa(first.CloneMin)
	for _, a := range actionsFor(ws, oc.FirstID, oc.FirstAction) {
		ws.AddEdge(a.ID, pseudo.ID, types.FlagSet{"one-or-more": true})
	}
	for _, then := range actionsFor(ws, oc.ThenID, oc.ThenAction) {
		ws.AddEdge(pseudo.ID, then.ID, types.FlagSet{"runnable-left": true})
	}
	return true
}

// mirrorMigration duplicates a start->start or stop->stop constraint edge
// onto the corresponding migrate_from/migrate_to actions, so an instance
// that migrates instead of stopping and starting still respects the
// ordering. migrate_from mirrors start (it's the action that establishes
// "running" on the destination); migrate_to mirrors stop (it's the
// departure from the source). When only one side actually migrated this
// pass, the mirrored edge falls back to that side's plain action and is
// flagged apply-first-non-migratable instead of being skipped.
func mirrorMigration(ws *types.WorkingSet, oc *types.OrderConstraint, flags types.FlagSet) {
	var migTask string
	switch {
	case oc.FirstAction == string(types.TaskStart) && oc.ThenAction == string(types.TaskStart):
		migTask = string(types.TaskMigrateFrom)
	case oc.FirstAction == string(types.TaskStop) && oc.ThenAction == string(types.TaskStop):
		migTask = string(types.TaskMigrateTo)
	default:
		return
	}

	firstMig := actionsFor(ws, oc.FirstID, migTask)
	thenMig := actionsFor(ws, oc.ThenID, migTask)
	if len(firstMig) == 0 && len(thenMig) == 0 {
		return
	}

	mirrored := flags.Clone()
	if len(firstMig) == 0 {
		mirrored.Set("apply-first-non-migratable", true)
		firstMig = actionsFor(ws, oc.FirstID, oc.FirstAction)
	}
	if len(thenMig) == 0 {
		mirrored.Set("apply-first-non-migratable", true)
		thenMig = actionsFor(ws, oc.ThenID, oc.ThenAction)
	}
	for _, f := range firstMig {
		for _, t := range thenMig {
			ws.AddEdge(f.ID, t.ID, mirrored)
		}
	}
}

// requireAllResources reports whether every member of a resource set must
// complete its action before the next set may proceed. require-all=false
// (only meaningful, and only parsed, on ordering sets) relaxes this to "any
// one member suffices".
func requireAllResources(set types.ResourceSetRef) bool {
	if !set.RequireAllSet {
		return true
	}
	return set.RequireAll
}

func buildSetOrdering(ws *types.WorkingSet, oc *types.OrderConstraint, flags types.FlagSet) {
	for i := 1; i < len(oc.Sets); i++ {
		prev, cur := oc.Sets[i-1], oc.Sets[i]
		if !requireAllResources(prev) {
			pseudo := buildOneOrMorePseudo(ws, oc.ID, i-1, prev)
			for _, c := range cur.Resources {
				addOrderEdge(ws, pseudo.ResourceID, pseudo.Task, c, defaultSetAction(cur), flags)
			}
			continue
		}
		for _, p := range prev.Resources {
			for _, c := range cur.Resources {
				addOrderEdge(ws, p, defaultSetAction(prev), c, defaultSetAction(cur), flags)
			}
		}
	}
	for _, set := range oc.Sets {
		if !set.Sequential {
			continue
		}
		for i := 1; i < len(set.Resources); i++ {
			addOrderEdge(ws, set.Resources[i-1], defaultSetAction(set), set.Resources[i], defaultSetAction(set), flags)
		}
	}
}

// buildOneOrMorePseudo synthesizes the "one or more" pseudo-action a
// require-all=false resource set collapses onto: every member's action
// feeds it with a one-or-more edge (any single member suffices, not all),
// and it alone gates whatever the next set depends on.
func buildOneOrMorePseudo(ws *types.WorkingSet, ocID string, idx int, set types.ResourceSetRef) *types.Action {
	pseudo := ws.GetOrCreateAction("one-or-more:"+ocID+":"+strconv.Itoa(idx), "pseudo-one-or-more", 0)
	pseudo.Flags.Set("pseudo", true)
	for _, rid := range set.Resources {
		for _, a := range actionsFor(ws, rid, defaultSetAction(set)) {
			ws.AddEdge(a.ID, pseudo.ID, types.FlagSet{"one-or-more": true})
		}
	}
	return pseudo
}

func defaultSetAction(s types.ResourceSetRef) string {
	if s.Action == "" {
		return string(types.TaskStart)
	}
	return s.Action
}

func addOrderEdge(ws *types.WorkingSet, firstID, firstAction, thenID, thenAction string, flags types.FlagSet) {
	for _, first := range actionsFor(ws, firstID, firstAction) {
		for _, then := range actionsFor(ws, thenID, thenAction) {
			ws.AddEdge(first.ID, then.ID, flags)
		}
	}
}

func invertTask(task string) string {
	switch task {
	case string(types.TaskStart):
		return string(types.TaskStop)
	case string(types.TaskStop):
		return string(types.TaskStart)
	case string(types.TaskPromote):
		return string(types.TaskDemote)
	case string(types.TaskDemote):
		return string(types.TaskPromote)
	default:
		return task
	}
}

// buildFencingEdges ensures a node's fence action precedes every other
// action this pass scheduled against that node — the graph must never let
// a stop or start race a pending fence.
func buildFencingEdges(ws *types.WorkingSet) {
	fencesByNode := map[string]*types.Action{}
	for _, a := range ws.OrderedActions() {
		if a.Task == string(types.TaskFence) {
			fencesByNode[a.Node] = a
		}
	}
	if len(fencesByNode) == 0 {
		return
	}
	for _, a := range ws.OrderedActions() {
		if a.Task == string(types.TaskFence) {
			continue
		}
		if fence, ok := fencesByNode[a.Node]; ok {
			ws.AddEdge(fence.ID, a.ID, types.FlagSet{"mandatory": true})
		}
	}
}

// topologicalSort runs Kahn's algorithm over the action graph, assigning
// each action's Predecessors from the edges that survive, and reports
// whether the graph is acyclic. A cycle is recorded as a fatal config-error
// diagnostic.
func topologicalSort(ws *types.WorkingSet) bool {
	inDegree := map[int]int{}
	adj := map[int][]int{}
	byID := map[int]*types.Action{}
	for _, a := range ws.OrderedActions() {
		inDegree[a.ID] = 0
		byID[a.ID] = a
	}
	for _, e := range ws.Edges {
		adj[e.FromID] = append(adj[e.FromID], e.ToID)
		inDegree[e.ToID]++
		if action, ok := byID[e.ToID]; ok {
			action.Predecessors = appendSorted(action.Predecessors, e.FromID)
		}
	}

	queue := make([]int, 0)
	for _, a := range ws.OrderedActions() {
		if inDegree[a.ID] == 0 {
			queue = append(queue, a.ID)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range adj[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if visited != len(inDegree) {
		ws.AddDiagnostic(types.SeverityConfigError, "ordering:cycle", "", "the ordering constraints form a cycle; no transition graph can be produced")
		return false
	}
	return true
}

func appendSorted(preds []int, id int) []int {
	for _, p := range preds {
		if p == id {
			return preds
		}
	}
	preds = append(preds, id)
	for i := len(preds) - 1; i > 0 && preds[i] < preds[i-1]; i-- {
		preds[i], preds[i-1] = preds[i-1], preds[i]
	}
	return preds
}
