package actions

import (
	"testing"
	"time"

	"github.com/cuemby/pacemaker-scheduler/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWS() *types.WorkingSet {
	return types.NewWorkingSet(time.Now())
}

func TestBuildEmitsStartForNewlyAllocatedResource(t *testing.T) {
	ws := newWS()
	ws.Resources["vip"] = &types.Resource{
		ID: "vip", Variant: types.VariantPrimitive,
		Flags: types.ResourceFlags{Managed: true}, Meta: map[string]string{},
		AllocatedNode: "n1", NextRole: types.RoleStarted,
	}

	Build(ws)

	start, ok := ws.LookupAction("vip", string(types.TaskStart), 0)
	require.True(t, ok)
	assert.Equal(t, "n1", start.Node)
}

func TestBuildEmitsStopWhenResourceLeavesNode(t *testing.T) {
	ws := newWS()
	ws.Resources["vip"] = &types.Resource{
		ID: "vip", Variant: types.VariantPrimitive,
		Flags: types.ResourceFlags{Managed: true}, Meta: map[string]string{},
		CurrentRole: types.RoleStarted, RunningOn: []string{"n1"},
		AllocatedNode: "", NextRole: types.RoleStopped,
	}

	Build(ws)

	stop, ok := ws.LookupAction("vip", string(types.TaskStop), 0)
	require.True(t, ok)
	assert.Equal(t, "n1", stop.Node)

	_, hasStart := ws.LookupAction("vip", string(types.TaskStart), 0)
	assert.False(t, hasStart)
}

func TestBuildEmitsMigrationTripleWhenAllowed(t *testing.T) {
	ws := newWS()
	ws.Resources["vip"] = &types.Resource{
		ID: "vip", Variant: types.VariantPrimitive,
		Flags:         types.ResourceFlags{Managed: true, AllowMigrate: true},
		Meta:          map[string]string{},
		CurrentRole:   types.RoleStarted,
		RunningOn:     []string{"n1"},
		AllocatedNode: "n2",
		NextRole:      types.RoleStarted,
	}

	Build(ws)

	migTo, ok := ws.LookupAction("vip", string(types.TaskMigrateTo), 0)
	require.True(t, ok)
	assert.Equal(t, "n1", migTo.Node)

	migFrom, ok := ws.LookupAction("vip", string(types.TaskMigrateFrom), 0)
	require.True(t, ok)
	assert.Equal(t, "n2", migFrom.Node)

	hasEdge := false
	for _, e := range ws.Edges {
		if e.FromID == migTo.ID && e.ToID == migFrom.ID {
			hasEdge = true
		}
	}
	assert.True(t, hasEdge, "expected an ordering edge from migrate_to to migrate_from")
}

func TestBuildSkipsStartStopForUnmanagedResource(t *testing.T) {
	ws := newWS()
	ws.Resources["vip"] = &types.Resource{
		ID: "vip", Variant: types.VariantPrimitive,
		Flags: types.ResourceFlags{Managed: false}, Meta: map[string]string{},
		CurrentRole: types.RoleStarted, RunningOn: []string{"n1"},
		AllocatedNode: "n2", NextRole: types.RoleStarted,
	}

	Build(ws)

	_, hasStart := ws.LookupAction("vip", string(types.TaskStart), 0)
	_, hasStop := ws.LookupAction("vip", string(types.TaskStop), 0)
	assert.False(t, hasStart)
	assert.False(t, hasStop)
}

func TestBuildFencingActionForUncleanNode(t *testing.T) {
	ws := newWS()
	ws.Options.StonithEnabled = true
	ws.Nodes["n1"] = &types.Node{ID: "n1", Name: "n1", Unclean: true}

	Build(ws)

	fence, ok := ws.LookupAction("fence:n1", string(types.TaskFence), 0)
	require.True(t, ok)
	assert.Equal(t, "n1", fence.Node)
}
