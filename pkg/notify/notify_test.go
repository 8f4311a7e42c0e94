package notify

import (
	"testing"
	"time"

	"github.com/cuemby/pacemaker-scheduler/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSkipsNonNotifyClone(t *testing.T) {
	ws := types.NewWorkingSet(time.Now())
	ws.Resources["app"] = &types.Resource{ID: "app", Variant: types.VariantPrimitive}
	ws.Resources["app-clone"] = &types.Resource{
		ID: "app-clone", Variant: types.VariantClone, ChildIDs: []string{"app"},
		Flags: types.ResourceFlags{Notify: false},
	}
	ws.GetOrCreateAction("app", string(types.TaskStart), 0)

	Build(ws)

	_, ok := ws.LookupAction("app", "pseudo-pre-notify-start", 0)
	assert.False(t, ok)
}

func TestBuildWrapsStartWithPrePostNotify(t *testing.T) {
	ws := types.NewWorkingSet(time.Now())
	ws.Resources["app"] = &types.Resource{ID: "app", Variant: types.VariantPrimitive}
	ws.Resources["app-clone"] = &types.Resource{
		ID: "app-clone", Variant: types.VariantClone, ChildIDs: []string{"app"},
		Flags: types.ResourceFlags{Notify: true},
	}
	start := ws.GetOrCreateAction("app", string(types.TaskStart), 0)
	start.Node = "n1"

	Build(ws)

	pre, ok := ws.LookupAction("app", "pseudo-pre-notify-start", 0)
	require.True(t, ok)
	assert.True(t, hasEdge(ws, pre.ID, start.ID), "expected pre-notify to precede start")

	post, ok := ws.LookupAction("app", "pseudo-post-notify-start", 0)
	require.True(t, ok)
	assert.True(t, hasEdge(ws, start.ID, post.ID), "expected start to precede post-notify")
	assert.Equal(t, "n1", pre.Meta["notify_active_resource"])
}

func hasEdge(ws *types.WorkingSet, from, to int) bool {
	for _, e := range ws.Edges {
		if e.FromID == from && e.ToID == to {
			return true
		}
	}
	return false
}
