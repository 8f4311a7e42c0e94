package graph

import (
	"testing"
	"time"

	"github.com/cuemby/pacemaker-scheduler/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestPruneDropsOrphanPseudoAction(t *testing.T) {
	ws := types.NewWorkingSet(time.Now())
	orphan := ws.GetOrCreateAction("vip", "pseudo-relaxed-clone", 0)
	real := ws.GetOrCreateAction("vip", string(types.TaskStart), 0)
	_ = real

	Prune(ws)

	_, ok := ws.LookupAction(orphan.ResourceID, orphan.Task, orphan.IntervalMS)
	assert.False(t, ok)
	_, ok = ws.LookupAction("vip", string(types.TaskStart), 0)
	assert.True(t, ok)
}

func TestPruneKeepsWiredPseudoAction(t *testing.T) {
	ws := types.NewWorkingSet(time.Now())
	pseudo := ws.GetOrCreateAction("vip", "pseudo-relaxed-clone", 0)
	real := ws.GetOrCreateAction("vip", string(types.TaskStart), 0)
	ws.AddEdge(pseudo.ID, real.ID, types.FlagSet{"mandatory": true})

	Prune(ws)

	_, ok := ws.LookupAction("vip", "pseudo-relaxed-clone", 0)
	assert.True(t, ok)
}
