package placement

import (
	"math"
	"testing"
	"time"

	"github.com/cuemby/pacemaker-scheduler/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoNodeSet() *types.WorkingSet {
	ws := types.NewWorkingSet(time.Now())
	ws.Nodes["n1"] = &types.Node{ID: "n1", Name: "n1", Online: true}
	ws.Nodes["n2"] = &types.Node{ID: "n2", Name: "n2", Online: true}
	return ws
}

func TestAllocatePrimitivePrefersLocationScore(t *testing.T) {
	ws := twoNodeSet()
	ws.Resources["vip"] = &types.Resource{ID: "vip", Variant: types.VariantPrimitive, Meta: map[string]string{}}
	ws.LocationConstraints = append(ws.LocationConstraints, &types.LocationConstraint{
		ID: "loc1", ResourceID: "vip", NodeID: "n2", Score: 100,
	})

	Allocate(ws)

	assert.Equal(t, "n2", ws.Resources["vip"].AllocatedNode)
	assert.Equal(t, types.RoleStarted, ws.Resources["vip"].NextRole)
}

func TestAllocatePrimitiveUnschedulableWhenAllBanned(t *testing.T) {
	ws := twoNodeSet()
	ws.Nodes["n1"].Standby = true
	ws.Nodes["n2"].Standby = true
	ws.Resources["vip"] = &types.Resource{ID: "vip", Variant: types.VariantPrimitive, Meta: map[string]string{}}

	Allocate(ws)

	assert.Equal(t, "", ws.Resources["vip"].AllocatedNode)
	assert.Equal(t, types.RoleStopped, ws.Resources["vip"].NextRole)
}

func TestStrictColocationRestrictsToPrimaryNode(t *testing.T) {
	ws := twoNodeSet()
	ws.Resources["primary"] = &types.Resource{ID: "primary", Variant: types.VariantPrimitive, Meta: map[string]string{}}
	ws.Resources["dependent"] = &types.Resource{ID: "dependent", Variant: types.VariantPrimitive, Meta: map[string]string{}}
	ws.LocationConstraints = append(ws.LocationConstraints, &types.LocationConstraint{
		ID: "loc1", ResourceID: "primary", NodeID: "n1", Score: 100,
	})
	ws.ColocationConstraints = append(ws.ColocationConstraints, &types.ColocationConstraint{
		ID: "col1", DependentID: "dependent", PrimaryID: "primary", Score: math.Inf(1),
	})

	Allocate(ws)

	require.Equal(t, "n1", ws.Resources["primary"].AllocatedNode)
	assert.Equal(t, "n1", ws.Resources["dependent"].AllocatedNode)
}

func TestCloneAllocatesUpToCloneMax(t *testing.T) {
	ws := twoNodeSet()
	ws.Resources["app"] = &types.Resource{ID: "app", Variant: types.VariantPrimitive, Meta: map[string]string{}}
	ws.Resources["app-clone"] = &types.Resource{
		ID: "app-clone", Variant: types.VariantClone, ChildIDs: []string{"app"},
		Meta: map[string]string{}, CloneMax: 2,
	}

	Allocate(ws)

	assert.Equal(t, types.RoleStarted, ws.Resources["app-clone"].NextRole)
	assert.NotEmpty(t, ws.Resources["app-clone"].AllocatedNode)
	assert.Len(t, ws.Resources["app-clone"].Instances, 2)
}

func TestGloballyUniqueCloneStacksMultipleInstancesPerNode(t *testing.T) {
	ws := types.NewWorkingSet(time.Now())
	ws.Nodes["n1"] = &types.Node{ID: "n1", Name: "n1", Online: true}
	ws.Resources["app"] = &types.Resource{ID: "app", Variant: types.VariantPrimitive, Meta: map[string]string{}}
	ws.Resources["app-clone"] = &types.Resource{
		ID: "app-clone", Variant: types.VariantClone, ChildIDs: []string{"app"},
		Meta: map[string]string{}, CloneMax: 3, CloneNodeMax: 3, GloballyUnique: true,
	}

	Allocate(ws)

	clone := ws.Resources["app-clone"]
	require.Len(t, clone.Instances, 3)
	for _, inst := range clone.Instances {
		assert.Equal(t, "n1", inst.Node)
	}
}

func TestNonGloballyUniqueCloneNeverStacksPerNode(t *testing.T) {
	ws := types.NewWorkingSet(time.Now())
	ws.Nodes["n1"] = &types.Node{ID: "n1", Name: "n1", Online: true}
	ws.Resources["app"] = &types.Resource{ID: "app", Variant: types.VariantPrimitive, Meta: map[string]string{}}
	ws.Resources["app-clone"] = &types.Resource{
		ID: "app-clone", Variant: types.VariantClone, ChildIDs: []string{"app"},
		Meta: map[string]string{}, CloneMax: 3, CloneNodeMax: 3,
	}

	Allocate(ws)

	assert.Len(t, ws.Resources["app-clone"].Instances, 1)
}

func TestBestNodePrefersCurrentlyRunningNodeOnTie(t *testing.T) {
	ws := twoNodeSet()
	ws.Resources["vip"] = &types.Resource{ID: "vip", Variant: types.VariantPrimitive, Meta: map[string]string{}, RunningOn: []string{"n2"}}

	Allocate(ws)

	assert.Equal(t, "n2", ws.Resources["vip"].AllocatedNode)
}
