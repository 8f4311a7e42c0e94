package placement

import (
	"math"
	"sort"

	"github.com/cuemby/pacemaker-scheduler/pkg/constraints"
	"github.com/cuemby/pacemaker-scheduler/pkg/types"
)

// Allocate computes node assignments for every resource in ws, in place:
// Resource.AllowedNodes is populated with final scores, and
// Resource.AllocatedNode and NextRole (plus Instances, for
// clones/promotable-clones) are set to the placement decision.
func Allocate(ws *types.WorkingSet) {
	applyTicketFencing(ws)

	ruleScores := constraints.EvaluateLocationRules(ws)

	for _, rid := range ws.SortedResourceIDs() {
		r := ws.Resources[rid]
		if r.Variant == types.VariantGroup || !isStandalone(ws, r) {
			continue // groups/children are scored as part of their parent below
		}
		scoreResource(ws, r, ruleScores)
	}

	for _, rid := range orderedForColocation(ws) {
		applyColocation(ws, ws.Resources[rid])
	}

	// placed tracks how many instances have landed on each node so far this
	// pass, the coarse load signal bestNode uses to balance ties when the
	// score and "currently running there" tie-break rules don't decide.
	placed := map[string]int{}
	for _, rid := range ws.SortedResourceIDs() {
		r := ws.Resources[rid]
		switch r.Variant {
		case types.VariantClone, types.VariantPromotableClone:
			allocateClone(ws, r, placed)
		case types.VariantGroup:
			allocateGroup(ws, r, placed)
		case types.VariantPrimitive, types.VariantBundle:
			if r.ParentID == "" {
				allocatePrimitive(ws, r, placed)
			}
		}
	}
}

func isStandalone(ws *types.WorkingSet, r *types.Resource) bool {
	return r.ParentID == "" || ws.Resources[r.ParentID] == nil
}

// scoreResource builds the base allowed-node score vector for one resource:
// symmetric-cluster default (0 everywhere, or unscored when asymmetric),
// stickiness toward its current node, location constraint scores, and
// evaluated rule scores.
func scoreResource(ws *types.WorkingSet, r *types.Resource, ruleScores map[string]map[string]float64) {
	r.AllowedNodes = map[string]float64{}
	for _, nodeID := range ws.SortedNodeIDs() {
		node := ws.Nodes[nodeID]
		if !ws.Options.SymmetricCluster {
			continue // asymmetric clusters start unscored; only explicit locations add candidacy
		}
		if !node.Schedulable() {
			r.AllowedNodes[nodeID] = math.Inf(-1)
			continue
		}
		r.AllowedNodes[nodeID] = 0
	}

	for _, nodeID := range r.RunningOn {
		if _, ok := r.AllowedNodes[nodeID]; ok && r.Stickiness != 0 {
			r.AllowedNodes[nodeID] += r.Stickiness
		}
	}

	for _, lc := range ws.LocationConstraints {
		if lc.ResourceID != r.ID || lc.Rule != nil {
			continue
		}
		applyLocationScore(r, lc.NodeID, lc.Score)
	}

	for nodeID, score := range ruleScores[r.ID] {
		applyLocationScore(r, nodeID, score)
	}

	applyHealthStrategy(ws, r)
	applyTicketLossPolicy(ws, r)
}

// applyTicketFencing marks every node hosting a resource bound to an
// unsatisfied loss-policy=fence ticket as unclean, before any scoring runs.
// This is the one ticket effect that isn't just a score adjustment on the
// bound resource: it makes the node itself ineligible for new placements
// this pass, the same as any other unclean node, and lets
// pkg/actions.buildFencingActions pick it up unchanged.
func applyTicketFencing(ws *types.WorkingSet) {
	for _, tc := range ws.TicketConstraints {
		if tc.LossPolicy != "fence" {
			continue
		}
		if ticket, ok := ws.Tickets[tc.TicketID]; ok && ticket.Granted {
			continue
		}
		r, ok := ws.Resources[tc.ResourceID]
		if !ok {
			continue
		}
		for _, nodeID := range r.RunningOn {
			if node, ok := ws.Nodes[nodeID]; ok {
				node.Unclean = true
			}
		}
	}
}

// applyTicketLossPolicy bans or restricts r's score vector per the
// loss-policy of any ticket it depends on that isn't currently granted.
// stop/fence ban it everywhere, so the normal no-allocation path stops it;
// freeze pins it to wherever it already runs so it neither starts nor
// moves; demote is handled separately in allocateClone since it caps
// promotion rather than changing node eligibility.
func applyTicketLossPolicy(ws *types.WorkingSet, r *types.Resource) {
	policy, ok := ticketLossPolicy(ws, r)
	if !ok {
		return
	}
	switch policy {
	case "stop", "fence":
		for n := range r.AllowedNodes {
			r.AllowedNodes[n] = math.Inf(-1)
		}
	case "freeze":
		running := map[string]bool{}
		for _, n := range r.RunningOn {
			running[n] = true
		}
		for n := range r.AllowedNodes {
			if !running[n] {
				r.AllowedNodes[n] = math.Inf(-1)
			}
		}
	}
}

// ticketLossPolicy resolves the loss-policy a resource is currently bound
// to, checking the resource's own ticket dependency first and then (for
// clone template instances and group members) its parent's, so a ticket
// attached to a clone or group cascades to its children the same way a
// colocation or order constraint would.
func ticketLossPolicy(ws *types.WorkingSet, r *types.Resource) (string, bool) {
	for _, id := range []string{r.ID, r.ParentID} {
		if id == "" {
			continue
		}
		for _, tc := range ws.TicketConstraints {
			if tc.ResourceID != id {
				continue
			}
			if ticket, ok := ws.Tickets[tc.TicketID]; ok && ticket.Granted {
				continue
			}
			return tc.LossPolicy, true
		}
	}
	return "", false
}

func applyLocationScore(r *types.Resource, nodeID string, score float64) {
	if nodeID == "" {
		for n := range r.AllowedNodes {
			addScore(r.AllowedNodes, n, score)
		}
		return
	}
	if _, ok := r.AllowedNodes[nodeID]; !ok {
		r.AllowedNodes[nodeID] = 0
	}
	addScore(r.AllowedNodes, nodeID, score)
}

func addScore(scores map[string]float64, nodeID string, delta float64) {
	cur := scores[nodeID]
	if math.IsInf(cur, -1) || math.IsInf(delta, -1) {
		scores[nodeID] = math.Inf(-1)
		return
	}
	if math.IsInf(cur, 1) || math.IsInf(delta, 1) {
		scores[nodeID] = math.Inf(1)
		return
	}
	scores[nodeID] = cur + delta
}

// applyHealthStrategy folds in the "#health-*" node-attribute family per
// the cluster's configured node-health-strategy.
func applyHealthStrategy(ws *types.WorkingSet, r *types.Resource) {
	strategy := ws.Options.NodeHealthStrategy
	if strategy == "" || strategy == "none" {
		return
	}
	for nodeID, node := range ws.Nodes {
		red := node.Attr("#health-red") == "true" || node.Attr("#health-red") == "1"
		switch strategy {
		case "migrate-on-red":
			if red {
				r.AllowedNodes[nodeID] = math.Inf(-1)
			}
		case "only-green":
			if red || node.Attr("#health-yellow") != "" {
				r.AllowedNodes[nodeID] = math.Inf(-1)
			}
		}
	}
}

// orderedForColocation returns resource IDs in the order colocation
// dependencies must be resolved: primaries before dependents. Since a
// colocation score is already attached to a concrete dependent/primary
// pair by pkg/constraints, processing dependents in (priority desc, then
// clone > group > primitive, then resource ID) order and pulling each
// primary's already-final score is sufficient — a resource never depends
// on itself transitively within one pass per invariant assumptions.
func orderedForColocation(ws *types.WorkingSet) []string {
	ids := ws.SortedResourceIDs()
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := ws.Resources[ids[i]], ws.Resources[ids[j]]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		ra, rb := variantRank(a.Variant), variantRank(b.Variant)
		if ra != rb {
			return ra < rb
		}
		return a.ID < b.ID
	})
	return ids
}

func variantRank(v types.ResourceVariant) int {
	switch v {
	case types.VariantClone, types.VariantPromotableClone:
		return 0
	case types.VariantGroup:
		return 1
	default:
		return 2
	}
}

func applyColocation(ws *types.WorkingSet, r *types.Resource) {
	for _, c := range ws.ColocationConstraints {
		if c.DependentID != r.ID {
			continue
		}
		primary, ok := ws.Resources[c.PrimaryID]
		if !ok || r.AllowedNodes == nil {
			continue
		}
		if math.IsInf(c.Score, 1) {
			// Strict colocation: restrict the dependent to wherever the
			// primary is (or would be) allocated.
			allowed := primaryCandidateNodes(primary)
			for nodeID := range r.AllowedNodes {
				if !allowed[nodeID] {
					r.AllowedNodes[nodeID] = math.Inf(-1)
				}
			}
			continue
		}
		if math.IsInf(c.Score, -1) {
			for nodeID := range primaryCandidateNodes(primary) {
				r.AllowedNodes[nodeID] = math.Inf(-1)
			}
			continue
		}
		for nodeID := range r.AllowedNodes {
			if primaryScore, ok := primary.AllowedNodes[nodeID]; ok && primaryScore > 0 {
				addScore(r.AllowedNodes, nodeID, c.Score)
			}
		}
	}
}

// primaryCandidateNodes returns the node(s) a primary resource is allocated
// to (or, pre-allocation, the nodes it is currently running on, else its
// best-scoring candidate) for strict colocation enforcement.
func primaryCandidateNodes(primary *types.Resource) map[string]bool {
	out := map[string]bool{}
	if primary.AllocatedNode != "" {
		out[primary.AllocatedNode] = true
		return out
	}
	for _, n := range primary.RunningOn {
		out[n] = true
	}
	if len(out) > 0 {
		return out
	}
	best := bestNode(primary.AllowedNodes, primary.RunningOn, nil)
	if best != "" {
		out[best] = true
	}
	return out
}

func allocatePrimitive(ws *types.WorkingSet, r *types.Resource, placed map[string]int) {
	node := bestNode(r.AllowedNodes, r.RunningOn, placed)
	r.AllocatedNode = node
	if node == "" {
		r.NextRole = types.RoleStopped
		if len(r.RunningOn) > 0 {
			ws.AddDiagnostic(types.SeverityWarn, "placement:no-allowed-node", r.ID,
				r.ID+" has no allowed node; stopping")
		}
		return
	}
	r.NextRole = types.RoleStarted
	placed[node]++
}

func allocateGroup(ws *types.WorkingSet, g *types.Resource, placed map[string]int) {
	// A group is placed wherever its first member can run; members inherit
	// that allocation. Score vectors of later members narrow by
	// intersection so a later-member ban excludes the node for the group.
	combined := map[string]float64{}
	for _, childID := range g.ChildIDs {
		child := ws.Resources[childID]
		scoreResource(ws, child, nil)
		if len(combined) == 0 {
			for n, s := range child.AllowedNodes {
				combined[n] = s
			}
			continue
		}
		for n := range combined {
			if s, ok := child.AllowedNodes[n]; ok {
				combined[n] += s
			} else {
				combined[n] = math.Inf(-1)
			}
		}
	}
	node := bestNode(combined, g.RunningOn, placed)
	g.AllocatedNode = node
	g.AllowedNodes = combined
	if node == "" {
		g.NextRole = types.RoleStopped
		if len(g.RunningOn) > 0 {
			ws.AddDiagnostic(types.SeverityWarn, "placement:no-allowed-node", g.ID,
				g.ID+" has no allowed node; stopping")
		}
	} else {
		g.NextRole = types.RoleStarted
		placed[node]++
	}
	for _, childID := range g.ChildIDs {
		child := ws.Resources[childID]
		child.AllocatedNode = node
		if node == "" {
			child.NextRole = types.RoleStopped
		} else {
			child.NextRole = types.RoleStarted
		}
	}
}

// allocateClone assigns the clone's (or promotable clone's) instances to up
// to CloneMax nodes. Ordinarily each node hosts at most one instance; when
// GloballyUnique is set, a node may host up to CloneNodeMax instances, since
// a globally-unique clone's instances aren't fungible with one another the
// way an anonymous clone's are. Promotable clones then promote up to
// PromotedMax of the chosen instances, at most PromotedNodeMax per node.
func allocateClone(ws *types.WorkingSet, c *types.Resource, placed map[string]int) {
	childTemplateID := ""
	if len(c.ChildIDs) == 1 {
		childTemplateID = c.ChildIDs[0]
	}
	template := ws.Resources[childTemplateID]
	if template == nil {
		return
	}
	scoreResource(ws, template, nil)
	c.AllowedNodes = template.AllowedNodes

	type candidate struct {
		nodeID string
		score  float64
	}
	var base []candidate
	for n, s := range c.AllowedNodes {
		if !math.IsInf(s, -1) {
			base = append(base, candidate{n, s})
		}
	}
	sort.Slice(base, func(i, j int) bool {
		if base[i].score != base[j].score {
			return base[i].score > base[j].score
		}
		return base[i].nodeID < base[j].nodeID
	})

	perNodeSlots := 1
	if c.GloballyUnique && c.CloneNodeMax > 1 {
		perNodeSlots = c.CloneNodeMax
	}
	cands := make([]candidate, 0, len(base)*perNodeSlots)
	for _, b := range base {
		for i := 0; i < perNodeSlots; i++ {
			cands = append(cands, b)
		}
	}

	max := c.CloneMax
	if max <= 0 || max > len(cands) {
		max = len(cands)
	}
	chosen := cands[:max]

	c.NextRole = types.RoleStopped
	if len(chosen) > 0 {
		c.NextRole = types.RoleStarted
	}

	promotedMax := c.PromotedMax
	if policy, ok := ticketLossPolicy(ws, c); ok && policy == "demote" {
		promotedMax = 0
	}
	promotedNodeMax := c.PromotedNodeMax
	if promotedNodeMax <= 0 {
		promotedNodeMax = 1
	}

	promotedLeft := promotedMax
	promotedOnNode := map[string]int{}
	c.Instances = c.Instances[:0]
	for _, cand := range chosen {
		role := types.RoleStarted
		if c.Variant == types.VariantPromotableClone {
			if promotedLeft > 0 && promotedOnNode[cand.nodeID] < promotedNodeMax {
				role = types.RolePromoted
				promotedLeft--
				promotedOnNode[cand.nodeID]++
			} else {
				role = types.RoleUnpromoted
			}
		}
		c.Instances = append(c.Instances, types.CloneInstance{Node: cand.nodeID, Role: role})
		placed[cand.nodeID]++
	}
	if len(chosen) > 0 {
		c.AllocatedNode = chosen[0].nodeID
	}
}

// bestNode picks the highest-scoring candidate. Ties break first toward a
// node the resource is already running on (so a no-op placement never loses
// to an equally-scored move), then toward whichever tied node has had the
// fewest instances placed on it so far this pass (a coarse stand-in for
// utilization/balanced placement-strategy balancing, since no per-node
// capacity model exists), then lexicographically by node ID for full
// determinism. placed may be nil (pre-allocation colocation lookups, where
// no load signal exists yet), in which case every node reads as equally
// loaded and the tie-break falls through to node ID.
func bestNode(scores map[string]float64, runningOn []string, placed map[string]int) string {
	bestScore := math.Inf(-1)
	for _, s := range scores {
		if s > bestScore {
			bestScore = s
		}
	}
	if math.IsInf(bestScore, -1) {
		return ""
	}

	var tied []string
	for _, nodeID := range sortedKeys(scores) {
		if scores[nodeID] == bestScore {
			tied = append(tied, nodeID)
		}
	}
	if len(tied) == 1 {
		return tied[0]
	}

	running := map[string]bool{}
	for _, n := range runningOn {
		running[n] = true
	}
	for _, nodeID := range tied {
		if running[nodeID] {
			return nodeID
		}
	}

	best, bestCount := tied[0], placed[tied[0]]
	for _, nodeID := range tied[1:] {
		if c := placed[nodeID]; c < bestCount {
			best, bestCount = nodeID, c
		}
	}
	return best
}

func sortedKeys(m map[string]float64) []string {
	ids := make([]string, 0, len(m))
	for k := range m {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	return ids
}
