package notify

import (
	"sort"
	"strings"

	"github.com/cuemby/pacemaker-scheduler/pkg/types"
)

// Build synthesizes pre/post-notify pseudo-actions for every notify-enabled
// clone, wiring pre-notify before and post-notify after the real actions it
// wraps on each instance node.
func Build(ws *types.WorkingSet) {
	for _, rid := range ws.SortedResourceIDs() {
		c := ws.Resources[rid]
		if !isNotifyClone(c) {
			continue
		}
		buildCloneNotifications(ws, c)
	}
}

func isNotifyClone(r *types.Resource) bool {
	return (r.Variant == types.VariantClone || r.Variant == types.VariantPromotableClone) &&
		r.Flags.Notify && len(r.ChildIDs) == 1
}

func buildCloneNotifications(ws *types.WorkingSet, c *types.Resource) {
	template := ws.Resources[c.ChildIDs[0]]
	if template == nil {
		return
	}

	for _, task := range []string{string(types.TaskStart), string(types.TaskStop), string(types.TaskPromote), string(types.TaskDemote)} {
		real := actionsOf(ws, template.ID, task)
		if len(real) == 0 {
			continue
		}
		affected := affectedNodes(real)

		pre := ws.GetOrCreateAction(template.ID, "pseudo-pre-notify-"+task, 0)
		pre.Flags.Set("pseudo", true)
		pre.Flags.Set("notify", true)
		pre.Meta["notify_type"] = "pre"
		pre.Meta["notify_operation"] = task
		pre.Meta["notify_active_resource"] = strings.Join(affected, " ")

		post := ws.GetOrCreateAction(template.ID, "pseudo-post-notify-"+task, 0)
		post.Flags.Set("pseudo", true)
		post.Flags.Set("notify", true)
		post.Meta["notify_type"] = "post"
		post.Meta["notify_operation"] = task
		post.Meta["notify_active_resource"] = strings.Join(affected, " ")

		for _, a := range real {
			ws.AddEdge(pre.ID, a.ID, types.FlagSet{"mandatory": true})
			ws.AddEdge(a.ID, post.ID, types.FlagSet{"mandatory": true})
		}
	}
}

func actionsOf(ws *types.WorkingSet, resourceID, task string) []*types.Action {
	var out []*types.Action
	for _, a := range ws.OrderedActions() {
		if a.ResourceID == resourceID && a.Task == task {
			out = append(out, a)
		}
	}
	return out
}

// affectedNodes returns the sorted, deduplicated node list a set of actions
// touches — the value every notify-enabled agent receives as
// notify_active_resource.
func affectedNodes(actions []*types.Action) []string {
	seen := map[string]bool{}
	for _, a := range actions {
		if a.Node != "" {
			seen[a.Node] = true
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
