package graph

import "github.com/cuemby/pacemaker-scheduler/pkg/types"

// Prune removes pseudo-actions that carry no predecessors and are nobody
// else's predecessor — a pseudo-action only exists to carry an ordering
// relationship, so one with none is dead weight left over from a
// constraint expansion that ended up vacuous (e.g. a relaxed-clone pseudo
// for a clone-min nobody's placement pass actually triggered).
func Prune(ws *types.WorkingSet) {
	successorOf := map[int]bool{}
	for _, e := range ws.Edges {
		successorOf[e.FromID] = true
	}

	for _, a := range ws.OrderedActions() {
		if types.IsPseudo(a.Task) && len(a.Predecessors) == 0 && !successorOf[a.ID] {
			ws.RemoveAction(a.Key)
		}
	}
}
