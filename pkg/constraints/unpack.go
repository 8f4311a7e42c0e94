package constraints

import (
	"github.com/cuemby/pacemaker-scheduler/pkg/rules"
	"github.com/cuemby/pacemaker-scheduler/pkg/types"
)

// Unpack expands tag references and normalizes legacy attributes, then
// populates ws's constraint slices. Template IDs are not expanded; they are
// treated as plain resource IDs. This stage only resolves *which resources*
// each resource-set names, not the edges between them: ordering sets are
// turned into edges by pkg/ordering, while colocation sets are stored on
// the working set and no stage expands them (pkg/placement applies only
// colocations with a single dependent and primary).
//
// A constraint naming a resource or node this pass doesn't know about is
// recorded as a config-error diagnostic and dropped; it never aborts the
// rest of the pass.
func Unpack(ws *types.WorkingSet, in Input) {
	for _, l := range in.Locations {
		unpackLocation(ws, in, l)
	}
	for _, c := range in.Colocations {
		unpackColocation(ws, in, c)
	}
	for _, o := range in.Orders {
		unpackOrder(ws, in, o)
	}
	for _, t := range in.Tickets {
		unpackTicket(ws, t)
	}
}

// expandRef resolves a single rsc/with-rsc/resource_ref value into concrete
// resource IDs: a tag ID maps to its declared member list, and any other ID
// (including a template ID) maps to itself.
func expandRef(in Input, id string) []string {
	if members, ok := in.Tags[id]; ok {
		return members
	}
	return []string{id}
}

func expandSet(in Input, s RawResourceSet) types.ResourceSetRef {
	out := types.ResourceSetRef{
		ID:            s.ID,
		Sequential:    s.Sequential,
		Role:          s.Role,
		Action:        s.Action,
		RequireAll:    s.RequireAll,
		RequireAllSet: s.RequireAllSet,
	}
	for _, ref := range s.Refs {
		out.Resources = append(out.Resources, expandRef(in, ref)...)
	}
	return out
}

func unpackLocation(ws *types.WorkingSet, in Input, l RawLocation) {
	resourceIDs := expandRef(in, l.ResourceID)
	for _, rid := range resourceIDs {
		if _, ok := ws.Resources[rid]; !ok {
			ws.AddDiagnostic(types.SeverityConfigError, "location:unknown-resource", l.ID,
				"rsc_location "+l.ID+" references unknown resource "+rid)
			continue
		}
		if l.NodeID != "" {
			if _, ok := ws.Nodes[l.NodeID]; !ok {
				ws.AddDiagnostic(types.SeverityConfigError, "location:unknown-node", l.ID,
					"rsc_location "+l.ID+" references unknown node "+l.NodeID)
				continue
			}
		}
		ws.LocationConstraints = append(ws.LocationConstraints, &types.LocationConstraint{
			ID:              uniqueID(l.ID, rid),
			ResourceID:      rid,
			NodeID:          l.NodeID,
			Score:           l.Score,
			Role:            l.Role,
			Rule:            l.Rule,
			DiscoveryPolicy: l.DiscoveryPolicy,
		})
	}
}

func unpackColocation(ws *types.WorkingSet, in Input, c RawColocation) {
	if len(c.Sets) > 0 {
		sets := make([]types.ResourceSetRef, 0, len(c.Sets))
		for _, s := range c.Sets {
			sets = append(sets, expandSet(in, s))
		}
		ws.ColocationConstraints = append(ws.ColocationConstraints, &types.ColocationConstraint{
			ID:    c.ID,
			Score: c.Score,
			Sets:  sets,
		})
		return
	}

	dependents := expandRef(in, c.DependentID)
	primaries := expandRef(in, c.PrimaryID)
	if len(primaries) != 1 {
		ws.WarnOnce("colocation:primary-tag-expansion", c.ID,
			"rsc_colocation with-rsc expanding to a tag is only honored for its first member")
	}
	primary := c.PrimaryID
	if len(primaries) > 0 {
		primary = primaries[0]
	}

	for _, dep := range dependents {
		if _, ok := ws.Resources[dep]; !ok {
			ws.AddDiagnostic(types.SeverityConfigError, "colocation:unknown-resource", c.ID,
				"rsc_colocation "+c.ID+" references unknown resource "+dep)
			continue
		}
		if _, ok := ws.Resources[primary]; !ok {
			ws.AddDiagnostic(types.SeverityConfigError, "colocation:unknown-resource", c.ID,
				"rsc_colocation "+c.ID+" references unknown primary "+primary)
			continue
		}
		influence := c.Influence
		influenceExplicit := c.InfluenceExplicit
		if !influenceExplicit {
			// Default influence tracks the dependent's critical flag, per
			// the resource's own meta-attribute, absent an explicit override.
			influence = ws.Resources[dep].Flags.Critical
		}
		nodeAttr := c.NodeAttribute
		if nodeAttr == "" {
			nodeAttr = "#uname"
		}
		ws.ColocationConstraints = append(ws.ColocationConstraints, &types.ColocationConstraint{
			ID:                uniqueID(c.ID, dep),
			DependentID:       dep,
			PrimaryID:         primary,
			DependentRole:     c.DependentRole,
			PrimaryRole:       c.PrimaryRole,
			Score:             c.Score,
			NodeAttribute:     nodeAttr,
			Influence:         influence,
			InfluenceExplicit: influenceExplicit,
		})
	}
}

func unpackOrder(ws *types.WorkingSet, in Input, o RawOrder) {
	if o.KindExplicit && o.Kind != "Mandatory" && o.Kind != "Optional" && o.Kind != "Serialize" {
		ws.AddDiagnostic(types.SeverityConfigError, "order:invalid-kind", o.ID,
			"rsc_order "+o.ID+" has invalid kind "+o.Kind)
		return
	}
	kind, kindExplicit := normalizeOrderKind(ws, o)

	if len(o.Sets) > 0 {
		sets := make([]types.ResourceSetRef, 0, len(o.Sets))
		for _, s := range o.Sets {
			sets = append(sets, expandSet(in, s))
		}
		ws.OrderConstraints = append(ws.OrderConstraints, &types.OrderConstraint{
			ID:           o.ID,
			Kind:         kind,
			KindExplicit: kindExplicit,
			Symmetric:    o.Symmetrical,
			Sets:         sets,
		})
		return
	}

	firsts := expandRef(in, o.FirstID)
	thens := expandRef(in, o.ThenID)
	for _, first := range firsts {
		if _, ok := ws.Resources[first]; !ok {
			ws.AddDiagnostic(types.SeverityConfigError, "order:unknown-resource", o.ID,
				"rsc_order "+o.ID+" references unknown resource "+first)
			continue
		}
		for _, then := range thens {
			if _, ok := ws.Resources[then]; !ok {
				ws.AddDiagnostic(types.SeverityConfigError, "order:unknown-resource", o.ID,
					"rsc_order "+o.ID+" references unknown resource "+then)
				continue
			}
			ws.OrderConstraints = append(ws.OrderConstraints, &types.OrderConstraint{
				ID:           uniqueID(o.ID, first+"-"+then),
				FirstID:      first,
				ThenID:       then,
				FirstAction:  defaultAction(o.FirstAction),
				ThenAction:   defaultAction(o.ThenAction),
				Kind:         kind,
				KindExplicit: kindExplicit,
				LegacyScore:  o.LegacyScore,
				Symmetric:    o.Symmetrical,
			})
		}
	}
}

// normalizeOrderKind resolves the effective ordering kind: an explicit
// "kind" attribute wins outright; absent that, the deprecated numeric
// "score" attribute maps 0 to Optional and anything else to Mandatory. A
// legacy score is flagged once per run as an unsupported-feature diagnostic
// — still honored (per the documented open-question decision), just
// discouraged.
func normalizeOrderKind(ws *types.WorkingSet, o RawOrder) (types.OrderingKind, bool) {
	if o.KindExplicit {
		switch o.Kind {
		case "Optional":
			return types.KindOptional, true
		case "Serialize":
			return types.KindSerialize, true
		default:
			return types.KindMandatory, true
		}
	}
	if o.LegacyScoreSet {
		ws.WarnOnce("order:legacy-score", o.ID,
			"rsc_order "+o.ID+" uses the deprecated score attribute instead of kind")
		if o.LegacyScore == 0 {
			return types.KindOptional, false
		}
	}
	return types.KindMandatory, false
}

func defaultAction(action string) string {
	if action == "" {
		return string(types.TaskStart)
	}
	return action
}

func unpackTicket(ws *types.WorkingSet, t RawTicket) {
	if _, ok := ws.Resources[t.ResourceID]; !ok {
		ws.AddDiagnostic(types.SeverityConfigError, "ticket:unknown-resource", t.ID,
			"rsc_ticket "+t.ID+" references unknown resource "+t.ResourceID)
		return
	}
	lossPolicy := t.LossPolicy
	if lossPolicy == "" {
		lossPolicy = "stop"
	}
	ws.TicketConstraints = append(ws.TicketConstraints, &types.TicketConstraint{
		ID:         t.ID,
		ResourceID: t.ResourceID,
		TicketID:   t.TicketID,
		Role:       t.Role,
		LossPolicy: lossPolicy,
	})
}

// uniqueID derives a stable per-expansion constraint ID so a tag expanding
// to N resources produces N distinguishable constraints rather than
// colliding on the original declared ID.
func uniqueID(base, suffix string) string {
	if suffix == "" {
		return base
	}
	return base + "/" + suffix
}

// EvaluateLocationRules resolves every location constraint's rule tree
// against each candidate node's attributes, folding the result into a
// final per-node score contribution and recording next-recheck candidates.
// This is separated from Unpack because it needs node attributes, which
// are already on ws by the time the placement stage runs this.
func EvaluateLocationRules(ws *types.WorkingSet) map[string]map[string]float64 {
	scores := make(map[string]map[string]float64)
	for _, lc := range ws.LocationConstraints {
		if lc.Rule == nil {
			continue
		}
		for _, nodeID := range ws.SortedNodeIDs() {
			node := ws.Nodes[nodeID]
			pass, next := rules.Evaluate(lc.Rule, rules.Context{Now: ws.Now, NodeAttrs: node.Attributes})
			if next != nil {
				ws.UpdateNextRecheck(*next)
			}
			if !pass {
				continue
			}
			if scores[lc.ResourceID] == nil {
				scores[lc.ResourceID] = map[string]float64{}
			}
			scores[lc.ResourceID][nodeID] += lc.Rule.Score
		}
	}
	return scores
}
