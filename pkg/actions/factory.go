package actions

import (
	"sort"
	"strconv"
	"time"

	"github.com/cuemby/pacemaker-scheduler/pkg/types"
	"github.com/google/uuid"
)

// Build walks every resource in the working set and emits the actions its
// current-role -> next-role transition requires: stop, start, promote,
// demote, migration triples, recurring monitors, and startup probes. It
// also emits fence actions for any node the placement stage found unclean.
func Build(ws *types.WorkingSet) {
	for _, rid := range ws.SortedResourceIDs() {
		r := ws.Resources[rid]
		switch r.Variant {
		case types.VariantClone, types.VariantPromotableClone:
			buildCloneActions(ws, r)
		default:
			buildPrimitiveActions(ws, r)
		}
	}
	buildFencingActions(ws)
}

func buildPrimitiveActions(ws *types.WorkingSet, r *types.Resource) {
	if !r.Flags.Managed {
		buildRecurringMonitors(ws, r, r.RunningOn, r.CurrentRole)
		return
	}

	if r.CurrentRole == types.RoleUnknown && len(r.RunningOn) == 0 && ws.Options.EnableStartupProbes {
		if target := r.AllocatedNode; target != "" {
			probe := ws.GetOrCreateAction(r.ID, string(types.TaskMonitor), 0)
			probe.Node = target
			probe.Flags.Set("probe", true)
		}
	}

	if migrating, from, to := isMigration(r); migrating {
		buildMigration(ws, r, from, to)
		buildRecurringMonitors(ws, r, []string{to}, r.NextRole)
		return
	}

	for _, node := range r.RunningOn {
		if node != r.AllocatedNode || r.NextRole == types.RoleStopped {
			stop := ws.GetOrCreateAction(r.ID, string(types.TaskStop), 0)
			stop.Node = node
			stop.Priority = r.Priority
			stop.Timeout = opTimeout(r, "stop")
		}
	}

	if r.AllocatedNode == "" {
		return
	}

	alreadyRunningThere := contains(r.RunningOn, r.AllocatedNode) && r.CurrentRole != types.RoleStopped && r.CurrentRole != types.RoleUnknown
	if !alreadyRunningThere {
		start := ws.GetOrCreateAction(r.ID, string(types.TaskStart), 0)
		start.Node = r.AllocatedNode
		start.Priority = r.Priority
		start.Timeout = opTimeout(r, "start")
	}

	if r.Flags.Promotable {
		buildPromotionActions(ws, r)
	}

	buildRecurringMonitors(ws, r, []string{r.AllocatedNode}, r.NextRole)
}

func buildPromotionActions(ws *types.WorkingSet, r *types.Resource) {
	switch {
	case r.NextRole == types.RolePromoted && r.CurrentRole != types.RolePromoted:
		p := ws.GetOrCreateAction(r.ID, string(types.TaskPromote), 0)
		p.Node = r.AllocatedNode
		p.Timeout = opTimeout(r, "promote")
	case r.NextRole == types.RoleUnpromoted && r.CurrentRole == types.RolePromoted:
		d := ws.GetOrCreateAction(r.ID, string(types.TaskDemote), 0)
		d.Node = r.AllocatedNode
		d.Timeout = opTimeout(r, "demote")
	}
}

// isMigration reports whether a resource qualifies for live migration
// instead of a stop/start pair: it allows migration, was running on
// exactly one node, stays started, and is moving to a different node.
func isMigration(r *types.Resource) (ok bool, from, to string) {
	if !r.Flags.AllowMigrate || r.NextRole != types.RoleStarted {
		return false, "", ""
	}
	if len(r.RunningOn) != 1 || r.CurrentRole != types.RoleStarted {
		return false, "", ""
	}
	if r.AllocatedNode == "" || r.AllocatedNode == r.RunningOn[0] {
		return false, "", ""
	}
	return true, r.RunningOn[0], r.AllocatedNode
}

// buildMigration emits the migrate_to -> migrate_from triple plus a phantom
// stop on the source, so the ordering stage can still express "the
// original instance is fully gone" to anything colocated with it
// anti-affinely.
func buildMigration(ws *types.WorkingSet, r *types.Resource, from, to string) {
	migTo := ws.GetOrCreateAction(r.ID, string(types.TaskMigrateTo), 0)
	migTo.Node = from
	migTo.Meta["migrate_target"] = to
	migTo.Timeout = opTimeout(r, "migrate_to")

	migFrom := ws.GetOrCreateAction(r.ID, string(types.TaskMigrateFrom), 0)
	migFrom.Node = to
	migFrom.Meta["migrate_source"] = from
	migFrom.Timeout = opTimeout(r, "migrate_from")
	ws.AddEdge(migTo.ID, migFrom.ID, types.FlagSet{"mandatory": true})

	phantomStop := ws.GetOrCreateAction(r.ID, "pseudo-stop", 0)
	phantomStop.Node = from
	phantomStop.Flags.Set("pseudo", true)
	phantomStop.Meta["correlation_id"] = uuid.NewSHA1(uuid.NameSpaceOID, []byte(r.ID+"|"+from+"|"+to)).String()
	ws.AddEdge(migFrom.ID, phantomStop.ID, types.FlagSet{"mandatory": true})
}

// buildRecurringMonitors creates a monitor action per configured recurring
// operation that applies to the resource's target role, on every node it
// is (or will be) running on. Each node's monitor is keyed by that node as
// the action's instance discriminator, so a resource monitored on more
// than one node at once (an unmanaged resource found running in several
// places, or a clone instance) gets one action per node instead of one
// overwritten in a loop.
func buildRecurringMonitors(ws *types.WorkingSet, r *types.Resource, nodes []string, role types.Role) {
	for _, op := range r.Operations {
		if op.IntervalMS <= 0 || op.Name != "monitor" {
			continue
		}
		if op.Role != "" && op.Role != string(role) {
			continue
		}
		for _, node := range nodes {
			if node == "" {
				continue
			}
			mon := ws.GetOrCreateInstanceAction(r.ID, string(types.TaskMonitor), op.IntervalMS, node)
			mon.Node = node
			mon.Timeout = op.Timeout
		}
	}
}

func opTimeout(r *types.Resource, name string) time.Duration {
	for _, op := range r.Operations {
		if op.Name == name {
			return op.Timeout
		}
	}
	return 0
}

// buildCloneActions expands a clone/promotable-clone's allocated instance
// list (pkg/placement.allocateClone's c.Instances) into per-instance actions
// against the clone's child template resource ID. Instances are keyed by
// their ordinal position in that list rather than by node alone, since a
// globally-unique clone can place more than one instance on the same node.
func buildCloneActions(ws *types.WorkingSet, c *types.Resource) {
	if len(c.ChildIDs) != 1 {
		return
	}
	template := ws.Resources[c.ChildIDs[0]]
	if template == nil {
		return
	}

	liveNodes := map[string]bool{}
	var monitorNodes []string
	for i, inst := range c.Instances {
		instanceKey := strconv.Itoa(i)
		start := ws.GetOrCreateInstanceAction(template.ID, string(types.TaskStart), 0, instanceKey)
		start.Node = inst.Node
		start.Timeout = opTimeout(template, "start")

		if c.Variant == types.VariantPromotableClone && inst.Role == types.RolePromoted {
			p := ws.GetOrCreateInstanceAction(template.ID, string(types.TaskPromote), 0, instanceKey)
			p.Node = inst.Node
			p.Timeout = opTimeout(template, "promote")
		}

		if !liveNodes[inst.Node] {
			liveNodes[inst.Node] = true
			monitorNodes = append(monitorNodes, inst.Node)
		}
	}
	sort.Strings(monitorNodes)

	for _, node := range template.RunningOn {
		if !liveNodes[node] {
			stop := ws.GetOrCreateInstanceAction(template.ID, string(types.TaskStop), 0, node)
			stop.Node = node
		}
	}

	buildRecurringMonitors(ws, template, monitorNodes, types.RoleStarted)
}

// buildFencingActions emits a fence action for every node the placement
// pass observed to be unclean. pkg/ordering's buildFencingEdges orders the
// fence action before every other action on that node; actions already
// scheduled on the node are not rewritten into pseudo-actions.
func buildFencingActions(ws *types.WorkingSet) {
	if !ws.Options.StonithEnabled {
		return
	}
	for _, nodeID := range ws.SortedNodeIDs() {
		node := ws.Nodes[nodeID]
		if !node.Unclean {
			continue
		}
		fence := ws.GetOrCreateAction("fence:"+nodeID, string(types.TaskFence), 0)
		fence.Node = nodeID
		fence.Meta["target"] = nodeID
	}
}

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
