package cib

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/pacemaker-scheduler/pkg/constraints"
	"github.com/cuemby/pacemaker-scheduler/pkg/types"
)

// Result is everything Build extracts from the raw XML documents: the typed
// working set plus the constraint input pkg/constraints needs to unpack
// resource-sets and tag references into concrete resource lists.
type Result struct {
	WorkingSet *types.WorkingSet
	Constraints constraints.Input
}

// Build converts the parsed configuration and status documents into a
// types.WorkingSet. Node/resource/option ingestion happens here; constraint
// unpacking (tag expansion, resource-set membership, rule evaluation) is
// left to pkg/constraints, which consumes the returned constraints.Input.
func Build(cfg *xmlCIB, status *xmlStatusDoc, now time.Time) *Result {
	ws := types.NewWorkingSet(now)

	applyClusterOptions(ws, cfg.Configuration.CrmConfig.toMap())

	tagIndex := buildTagIndex(cfg.Configuration.Tags)

	for _, n := range cfg.Configuration.Nodes {
		ws.Nodes[n.ID] = buildNode(n)
	}
	overlayNodeStatus(ws, status)

	for _, p := range cfg.Configuration.Resources.Primitives {
		addPrimitive(ws, p, "")
	}
	for _, g := range cfg.Configuration.Resources.Groups {
		addGroup(ws, g)
	}
	for _, c := range cfg.Configuration.Resources.Clones {
		addClone(ws, c)
	}
	for _, b := range cfg.Configuration.Resources.Bundles {
		addBundle(ws, b)
	}
	overlayResourceStatus(ws, status)

	for _, t := range cfg.Configuration.Tickets {
		ws.Tickets[t.ID] = &types.Ticket{ID: t.ID, Granted: t.Granted, Standby: t.Standby}
	}

	return &Result{
		WorkingSet: ws,
		Constraints: constraints.Input{
			Locations:   convertLocations(cfg.Configuration.Constraints.Locations),
			Colocations: convertColocations(cfg.Configuration.Constraints.Colocations),
			Orders:      convertOrders(cfg.Configuration.Constraints.Orders),
			Tickets:     convertTickets(cfg.Configuration.Constraints.Tickets),
			Tags:        tagIndex,
		},
	}
}

func convertLocations(in []xmlLocation) []constraints.RawLocation {
	out := make([]constraints.RawLocation, 0, len(in))
	for _, l := range in {
		out = append(out, constraints.RawLocation{
			ID:              l.ID,
			ResourceID:      l.Rsc,
			NodeID:          l.Node,
			Score:           ParseScore(l.Score),
			Role:            l.Role,
			Rule:            convertRule(l.Rule),
			DiscoveryPolicy: l.ResourceDiscovery,
		})
	}
	return out
}

func convertRule(r *xmlRule) *types.LocationRuleExpr {
	if r == nil {
		return nil
	}
	expr := &types.LocationRuleExpr{
		BooleanOp:      r.BooleanOp,
		Score:          ParseScore(r.Score),
		ScoreAttribute: r.ScoreAttribute,
	}
	for _, e := range r.Expressions {
		expr.Children = append(expr.Children, &types.LocationRuleExpr{
			Expression: &types.AttrExpr{
				Attribute: e.Attribute,
				Operation: e.Operation,
				Value:     e.Value,
				ValueType: e.Type,
			},
		})
	}
	for _, de := range r.DateExpressions {
		leaf := &types.LocationRuleExpr{}
		rng := &types.DateRange{Operation: de.Operation}
		if de.Start != "" {
			if t, err := time.Parse(time.RFC3339, de.Start); err == nil {
				rng.Start, rng.HasStart = t, true
			}
		}
		if de.End != "" {
			if t, err := time.Parse(time.RFC3339, de.End); err == nil {
				rng.End, rng.HasEnd = t, true
			}
		}
		if de.DateSpec != nil {
			rng.Spec = &types.DateSpec{
				Years:    de.DateSpec.Years,
				Months:   de.DateSpec.Months,
				Weekdays: de.DateSpec.Weekdays,
				Yeardays: de.DateSpec.Yeardays,
				Hours:    de.DateSpec.Hours,
				Minutes:  de.DateSpec.Minutes,
			}
		}
		leaf.Expression = &types.AttrExpr{Range: rng}
		expr.Children = append(expr.Children, leaf)
	}
	for _, child := range r.Rules {
		expr.Children = append(expr.Children, convertRule(&child))
	}
	// A leaf rule with exactly one expression and no boolean-op collapses
	// to that expression directly so rules.Evaluate doesn't need to special
	// case "boolean-op with one child"; the rule's score and score-attribute
	// carry over onto the collapsed expression.
	if expr.BooleanOp == "" && len(expr.Children) == 1 {
		leaf := expr.Children[0]
		leaf.Score = expr.Score
		leaf.ScoreAttribute = expr.ScoreAttribute
		return leaf
	}
	return expr
}

func convertResourceSets(in []xmlResourceSet) []constraints.RawResourceSet {
	out := make([]constraints.RawResourceSet, 0, len(in))
	for _, s := range in {
		rs := constraints.RawResourceSet{
			ID:     s.ID,
			Role:   s.Role,
			Action: s.Action,
		}
		if s.Sequential != "" {
			rs.SequentialSet = true
			rs.Sequential = s.Sequential == "true"
		} else {
			rs.Sequential = true
		}
		if s.RequireAll != "" {
			rs.RequireAllSet = true
			rs.RequireAll = s.RequireAll == "true"
		} else {
			rs.RequireAll = true
		}
		for _, ref := range s.Refs {
			rs.Refs = append(rs.Refs, ref.ID)
		}
		out = append(out, rs)
	}
	return out
}

func convertColocations(in []xmlColocation) []constraints.RawColocation {
	out := make([]constraints.RawColocation, 0, len(in))
	for _, c := range in {
		rc := constraints.RawColocation{
			ID:            c.ID,
			DependentID:   c.Rsc,
			PrimaryID:     c.WithRsc,
			DependentRole: c.RscRole,
			PrimaryRole:   c.WithRscRole,
			Score:         ParseScore(c.Score),
			NodeAttribute: c.NodeAttribute,
			Sets:          convertResourceSets(c.Sets),
		}
		if c.Influence != "" {
			rc.InfluenceExplicit = true
			rc.Influence = c.Influence == "true"
		}
		out = append(out, rc)
	}
	return out
}

func convertOrders(in []xmlOrder) []constraints.RawOrder {
	out := make([]constraints.RawOrder, 0, len(in))
	for _, o := range in {
		ro := constraints.RawOrder{
			ID:          o.ID,
			FirstID:     o.First,
			FirstAction: o.FirstAction,
			ThenID:      o.Then,
			ThenAction:  o.ThenAction,
			Symmetrical: true,
			Sets:        convertResourceSets(o.Sets),
		}
		if o.Kind != "" {
			ro.KindExplicit = true
			ro.Kind = o.Kind
		}
		if o.Score != "" {
			ro.LegacyScoreSet = true
			ro.LegacyScore = ParseScore(o.Score)
		}
		if o.Symmetrical != "" {
			ro.SymmetricalSet = true
			ro.Symmetrical = o.Symmetrical == "true"
		}
		out = append(out, ro)
	}
	return out
}

func convertTickets(in []xmlRscTicket) []constraints.RawTicket {
	out := make([]constraints.RawTicket, 0, len(in))
	for _, t := range in {
		out = append(out, constraints.RawTicket{
			ID:         t.ID,
			ResourceID: t.Rsc,
			TicketID:   t.Ticket,
			Role:       t.Role,
			LossPolicy: t.LossPolicy,
		})
	}
	return out
}

func buildTagIndex(tags []xmlTag) map[string][]string {
	idx := make(map[string][]string, len(tags))
	for _, t := range tags {
		ids := make([]string, 0, len(t.ObjRefs))
		for _, ref := range t.ObjRefs {
			ids = append(ids, ref.ID)
		}
		idx[t.ID] = ids
	}
	return idx
}

func buildNode(n xmlNode) *types.Node {
	kind := types.NodeKindCluster
	switch n.Type {
	case "remote":
		kind = types.NodeKindRemote
	case "guest":
		kind = types.NodeKindGuest
	}
	return &types.Node{
		ID:         n.ID,
		Name:       n.Uname,
		Kind:       kind,
		Online:     true, // default; overlayNodeStatus corrects from the status document
		Attributes: n.Attributes.toMap(),
	}
}

func overlayNodeStatus(ws *types.WorkingSet, status *xmlStatusDoc) {
	if status == nil {
		return
	}
	for _, ns := range status.Nodes {
		node, ok := ws.Nodes[ns.ID]
		if !ok {
			continue
		}
		node.Online = ns.InCCM == "true" && ns.Crmd == "online"
		node.Unclean = ns.Unclean == "true"
		node.Shutdown = ns.ShutdownFlag != "" && ns.ShutdownFlag != "0"
	}
}

func addPrimitive(ws *types.WorkingSet, p xmlPrimitive, parentID string) {
	meta := p.MetaAttributes.toMap()
	r := &types.Resource{
		ID:       p.ID,
		Variant:  types.VariantPrimitive,
		ParentID: parentID,
		Meta:     meta,
		Instance: p.InstanceAttributes.toMap(),
		Flags:    flagsFromMeta(meta),
	}
	applyCommonMeta(r, meta)
	for _, op := range p.Operations {
		r.Operations = append(r.Operations, buildOperation(op))
	}
	ws.Resources[r.ID] = r
}

func addGroup(ws *types.WorkingSet, g xmlGroup) {
	meta := g.MetaAttributes.toMap()
	r := &types.Resource{
		ID:      g.ID,
		Variant: types.VariantGroup,
		Meta:    meta,
		Flags:   flagsFromMeta(meta),
	}
	applyCommonMeta(r, meta)
	for _, p := range g.Primitives {
		r.ChildIDs = append(r.ChildIDs, p.ID)
		addPrimitive(ws, p, g.ID)
	}
	ws.Resources[r.ID] = r
}

func addClone(ws *types.WorkingSet, c xmlClone) {
	meta := c.MetaAttributes.toMap()
	variant := types.VariantClone
	promotable := meta["promotable"] == "true"
	if promotable {
		variant = types.VariantPromotableClone
	}
	r := &types.Resource{
		ID:      c.ID,
		Variant: variant,
		Meta:    meta,
		Flags:   flagsFromMeta(meta),
	}
	r.Flags.Promotable = promotable
	applyCommonMeta(r, meta)
	r.CloneMax = atoiDefault(meta["clone-max"], len(ws.Nodes))
	r.CloneNodeMax = atoiDefault(meta["clone-node-max"], 1)
	r.CloneMin = atoiDefault(meta["clone-min"], 0)
	r.PromotedMax = atoiDefault(meta["promoted-max"], 1)
	r.PromotedNodeMax = atoiDefault(meta["promoted-node-max"], 1)
	r.Interleave = meta["interleave"] == "true"
	r.Ordered = meta["ordered"] == "true"
	r.GloballyUnique = meta["globally-unique"] == "true"

	switch {
	case c.Primitive != nil:
		r.ChildIDs = []string{c.Primitive.ID}
		addPrimitive(ws, *c.Primitive, c.ID)
	case c.Group != nil:
		r.ChildIDs = []string{c.Group.ID}
		addGroup(ws, *c.Group)
	}
	ws.Resources[r.ID] = r
}

func addBundle(ws *types.WorkingSet, b xmlBundle) {
	meta := b.MetaAttributes.toMap()
	r := &types.Resource{
		ID:          b.ID,
		Variant:     types.VariantBundle,
		Meta:        meta,
		Flags:       flagsFromMeta(meta),
		BundleImage: b.Image,
	}
	applyCommonMeta(r, meta)
	ws.Resources[r.ID] = r
}

func flagsFromMeta(meta map[string]string) types.ResourceFlags {
	return types.ResourceFlags{
		Managed:      meta["is-managed"] != "false",
		AllowMigrate: meta["allow-migrate"] == "true",
		Critical:     meta["critical"] != "false",
		Unique:       meta["globally-unique"] == "true",
		Notify:       meta["notify"] == "true",
	}
}

func applyCommonMeta(r *types.Resource, meta map[string]string) {
	r.RestartType = meta["restart-type"]
	r.Stickiness = atofDefault(meta["resource-stickiness"], 0)
	r.Priority = atoiDefault(meta["priority"], 0)
	r.MigrationThreshold = atoiDefault(meta["migration-threshold"], 1000000)
}

func buildOperation(op xmlOp) types.OperationDef {
	return types.OperationDef{
		Name:       op.Name,
		Role:       op.Role,
		IntervalMS: parseIntervalMS(op.Interval),
		Timeout:    parseDuration(op.Timeout),
	}
}

func overlayResourceStatus(ws *types.WorkingSet, status *xmlStatusDoc) {
	if status == nil {
		return
	}
	runningOn := map[string][]string{}
	for _, ns := range status.Nodes {
		for _, lr := range ns.LRM.Resources {
			r, ok := ws.Resources[lr.ID]
			if !ok {
				continue
			}
			role := latestRole(lr.Ops)
			if role != types.RoleStopped && role != types.RoleUnknown {
				runningOn[lr.ID] = append(runningOn[lr.ID], ns.ID)
			}
			r.CurrentRole = role
			r.FailCounts = mergeFailCount(r.FailCounts, ns.ID, lr.Ops)
		}
	}
	for id, nodes := range runningOn {
		sort.Strings(nodes)
		ws.Resources[id].RunningOn = nodes
	}
}

// latestRole derives a resource's current role from its most recent recorded
// operation history entry on one node. Operations are assumed to arrive in
// execution order, as crmd records them.
func latestRole(ops []xmlLRMRscOp) types.Role {
	role := types.RoleUnknown
	for _, op := range ops {
		rc := op.RC
		switch op.Operation {
		case "start":
			if rc == "0" {
				role = types.RoleStarted
			} else {
				role = types.RoleFailed
			}
		case "stop":
			if rc == "0" {
				role = types.RoleStopped
			}
		case "promote":
			if rc == "0" {
				role = types.RolePromoted
			}
		case "demote":
			if rc == "0" {
				role = types.RoleUnpromoted
			}
		case "monitor":
			switch rc {
			case "0":
				if role == types.RoleUnknown {
					role = types.RoleStarted
				}
			case "8":
				role = types.RolePromoted
			case "7":
				role = types.RoleStopped
			default:
				role = types.RoleFailed
			}
		}
	}
	return role
}

func mergeFailCount(existing map[string]int, nodeID string, ops []xmlLRMRscOp) map[string]int {
	fails := 0
	for _, op := range ops {
		if op.RC != "" && op.RC != "0" && op.RC != "7" {
			fails++
		}
	}
	if fails == 0 {
		return existing
	}
	if existing == nil {
		existing = map[string]int{}
	}
	existing[nodeID] += fails
	return existing
}

func applyClusterOptions(ws *types.WorkingSet, props map[string]string) {
	opt := &ws.Options
	if v, ok := props["no-quorum-policy"]; ok {
		opt.NoQuorumPolicy = v
	}
	if v, ok := props["symmetric-cluster"]; ok {
		opt.SymmetricCluster = v == "true"
	}
	if v, ok := props["maintenance-mode"]; ok {
		opt.MaintenanceMode = v == "true"
	}
	if v, ok := props["start-failure-is-fatal"]; ok {
		opt.StartFailureIsFatal = v == "true"
	}
	if v, ok := props["stonith-enabled"]; ok {
		opt.StonithEnabled = v == "true"
	}
	if v, ok := props["concurrent-fencing"]; ok {
		opt.ConcurrentFencing = v == "true"
	}
	if v, ok := props["priority-fencing-delay"]; ok {
		opt.PriorityFencingDelay = parseDuration(v)
	}
	if v, ok := props["node-health-strategy"]; ok {
		opt.NodeHealthStrategy = v
	}
	if v, ok := props["placement-strategy"]; ok {
		opt.PlacementStrategy = v
	}
	if v, ok := props["batch-limit"]; ok {
		opt.BatchLimit = atoiDefault(v, opt.BatchLimit)
	}
	if v, ok := props["migration-limit"]; ok {
		opt.MigrationLimit = atoiDefault(v, opt.MigrationLimit)
	}
	if v, ok := props["shutdown-lock"]; ok {
		opt.ShutdownLock = v == "true"
	}
	if v, ok := props["shutdown-lock-limit"]; ok {
		opt.ShutdownLockLimit = parseDuration(v)
	}
	if v, ok := props["cluster-recheck-interval"]; ok {
		opt.ClusterRecheckInterval = parseDuration(v)
	}
	if v, ok := props["dc-deadtime"]; ok {
		opt.DCDeadtime = parseDuration(v)
	}
	if v, ok := props["election-timeout"]; ok {
		opt.ElectionTimeout = parseDuration(v)
	}
	if v, ok := props["stonith-watchdog-timeout"]; ok {
		opt.StonithWatchdogTimeout = parseDuration(v)
	}
	if v, ok := props["enable-startup-probes"]; ok {
		opt.EnableStartupProbes = v == "true"
	}
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func atofDefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

// parseIntervalMS parses a Pacemaker interval spec ("10s", "1m", a bare
// integer read as seconds, or "0"/"" for one-shot) into milliseconds.
func parseIntervalMS(s string) int {
	if s == "" || s == "0" {
		return 0
	}
	if d := parseDuration(s); d > 0 {
		return int(d / time.Millisecond)
	}
	return atoiDefault(s, 0)
}

// parseDuration parses Pacemaker's "<n><unit>" timeout/interval strings
// (s/sec, ms/msec, m/min, h/hr) falling back to bare-integer seconds.
func parseDuration(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	units := []struct {
		suffix string
		unit   time.Duration
	}{
		{"ms", time.Millisecond},
		{"msec", time.Millisecond},
		{"s", time.Second},
		{"sec", time.Second},
		{"m", time.Minute},
		{"min", time.Minute},
		{"h", time.Hour},
		{"hr", time.Hour},
	}
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			numPart := strings.TrimSuffix(s, u.suffix)
			if n, err := strconv.ParseFloat(numPart, 64); err == nil {
				return time.Duration(n * float64(u.unit))
			}
		}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(n * float64(time.Second))
	}
	return 0
}

// ParseScore parses a Pacemaker score string, honoring the "INFINITY" /
// "-INFINITY" sentinels used throughout constraints and rules.
func ParseScore(s string) float64 {
	switch strings.TrimSpace(s) {
	case "INFINITY":
		return posInf
	case "-INFINITY":
		return negInf
	case "":
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
