// Package types defines the typed working-set model the scheduler operates
// on: nodes, resources, constraints, tickets, actions, and the ordering
// graph that ties actions together.
//
// Everything here is a plain value or arena-indexed struct — resources and
// actions are owned by the WorkingSet and referenced elsewhere by ID, never
// by pointer cycles, so the whole model can be torn down at the end of a
// pass without any cleanup.
package types

import (
	"math"
	"time"
)

// NodeKind distinguishes how a node participates in the cluster.
type NodeKind string

const (
	NodeKindCluster NodeKind = "cluster-member"
	NodeKindRemote  NodeKind = "remote"
	NodeKindGuest   NodeKind = "guest"
	NodeKindBundle  NodeKind = "bundle"
)

// Node is a machine (or remote/guest/bundle placeholder) the scheduler can
// place resources on.
type Node struct {
	ID   string
	Name string
	Kind NodeKind

	Online      bool
	Unclean     bool
	Shutdown    bool
	Standby     bool
	Maintenance bool
	Pending     bool

	// Attributes holds node attributes including the "#health-*" family
	// consulted by the node-health placement strategy.
	Attributes map[string]string
}

// Attr returns a node attribute, defaulting to "" when absent.
func (n *Node) Attr(name string) string {
	if n.Attributes == nil {
		return ""
	}
	return n.Attributes[name]
}

// Schedulable reports whether the node can host new allocations at all.
func (n *Node) Schedulable() bool {
	return n.Online && !n.Unclean && !n.Shutdown && !n.Standby && !n.Maintenance
}

// ResourceVariant is the sum-type tag for the five resource shapes the
// scheduler allocates.
type ResourceVariant string

const (
	VariantPrimitive       ResourceVariant = "primitive"
	VariantGroup           ResourceVariant = "group"
	VariantClone           ResourceVariant = "clone"
	VariantPromotableClone ResourceVariant = "promotable-clone"
	VariantBundle          ResourceVariant = "bundle"
)

// Role is a resource's position in the Unknown -> {Stopped, Started,
// Unpromoted, Promoted, Failed} role matrix.
type Role string

const (
	RoleUnknown    Role = ""
	RoleStopped    Role = "Stopped"
	RoleStarted    Role = "Started"
	RoleUnpromoted Role = "Unpromoted"
	RolePromoted   Role = "Promoted"
	RoleFailed     Role = "Failed"
)

// ResourceFlags are the boolean toggles carried on a resource definition.
type ResourceFlags struct {
	Managed      bool
	Orphan       bool
	Failed       bool
	AllowMigrate bool
	Critical     bool
	Unique       bool
	Notify       bool
	Promotable   bool
}

// OperationDef is one configured recurring (or probe) operation for a role.
type OperationDef struct {
	Name       string // e.g. "monitor", "start"
	Role       string // role this op applies to; "" = any
	IntervalMS int    // 0 = one-shot (start/stop/promote/demote), >0 = recurring monitor
	Timeout    time.Duration
}

// Resource is one entry of the CIB resource forest. Parent/child links are
// indices into WorkingSet.Resources — children are owning in declaration
// order, the parent back-reference is not.
type Resource struct {
	ID       string
	Variant  ResourceVariant
	ParentID string   // "" for a root resource
	ChildIDs []string // ordered; empty for primitives

	// AllowedNodes is rebuilt by the placement engine on every pass: node ID
	// -> cumulative score. A node absent from the map was never a candidate.
	AllowedNodes map[string]float64

	CurrentRole   Role
	NextRole      Role
	AllocatedNode string   // "" when unallocated or deliberately stopped
	RunningOn     []string // node IDs from live status, sorted

	Flags       ResourceFlags
	Meta        map[string]string
	Instance    map[string]string
	Operations  []OperationDef
	RestartType string // "" (default) or "restart" (deprecated); parsed, not read by any stage

	Stickiness         float64
	Priority           int
	MigrationThreshold int
	FailCounts         map[string]int // node ID -> fail count

	// Clone / promotable-clone only.
	CloneMax        int
	CloneNodeMax    int
	CloneMin        int // 0 = unset; clone-min ordering relaxation disabled
	PromotedMax     int
	PromotedNodeMax int
	Interleave      bool
	Ordered         bool
	GloballyUnique  bool

	// Instances is the placement decision for a clone/promotable-clone's
	// child template: one entry per allocated instance, in the order
	// pkg/placement chose them. A node appears more than once only when
	// GloballyUnique is set and CloneNodeMax > 1.
	Instances []CloneInstance

	// Container runtime image reference, bundle variant only; carried
	// through so the action factory can stamp it as a meta-attribute.
	BundleImage string
}

// CloneInstance is one allocated instance of a clone's child template: the
// node it runs on and, for a promotable clone, the role it was given.
type CloneInstance struct {
	Node string
	Role Role
}

// Ban permanently removes a node from a resource's candidacy for this pass.
func (r *Resource) Ban(nodeID string) {
	if r.AllowedNodes == nil {
		r.AllowedNodes = map[string]float64{}
	}
	r.AllowedNodes[nodeID] = math.Inf(-1)
}

// IsBanned reports whether a node's score makes it unusable.
func (r *Resource) IsBanned(nodeID string) bool {
	score, ok := r.AllowedNodes[nodeID]
	return ok && math.IsInf(score, -1)
}

// TaskType enumerates the action verbs the factory can emit.
type TaskType string

const (
	TaskStart       TaskType = "start"
	TaskStop        TaskType = "stop"
	TaskPromote     TaskType = "promote"
	TaskDemote      TaskType = "demote"
	TaskMonitor     TaskType = "monitor"
	TaskMigrateTo   TaskType = "migrate_to"
	TaskMigrateFrom TaskType = "migrate_from"
	TaskNotify      TaskType = "notify"
	TaskNotified    TaskType = "notified"
	TaskCancel      TaskType = "cancel"
	TaskFence       TaskType = "fence"
)

// IsPseudo reports whether a task name is one of the synthetic pseudo-*
// tasks the action/ordering/notification stages synthesize (these never
// reach an executor; only a migration's pseudo-stop carries a node, its
// source node).
func IsPseudo(task string) bool {
	return len(task) > 7 && task[:7] == "pseudo-"
}

// ActionKey is the uniqueness key every action is deduplicated against:
// no two actions may share (resource, task, interval, instance). Instance
// is "" for most resource actions; it gets a value where several actions
// legitimately share (resource, task, interval): recurring monitors of any
// resource and clone stops are keyed by node, and clone/promotable-clone
// starts and promotes by the instance's ordinal position, so they stay
// distinct entries in the action arena instead of collapsing onto one.
type ActionKey struct {
	ResourceID string
	Task       string
	IntervalMS int
	Instance   string
}

// FlagSet is a small named-boolean set used for both action flags and
// ordering-edge flags; the set of flags per subject is open-ended
// (optional, runnable, pseudo, requires-any, migrate_runnable, ...) so a map
// is a better fit than a fixed struct.
type FlagSet map[string]bool

// Has reports whether a flag is present and true.
func (f FlagSet) Has(name string) bool { return f != nil && f[name] }

// Set adds (or clears) a flag.
func (f FlagSet) Set(name string, v bool) { f[name] = v }

// Clone returns an independent copy.
func (f FlagSet) Clone() FlagSet {
	out := make(FlagSet, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Action is one node of the transition graph.
type Action struct {
	ID         int
	Key        ActionKey
	ResourceID string
	Task       string
	IntervalMS int
	Node       string // "" for pseudo-actions, except a migration's pseudo-stop (source node)
	Flags      FlagSet
	Priority   int
	Timeout    time.Duration
	Meta       map[string]string

	// Predecessors is the "wait for" set, sorted by action ID for
	// deterministic serialization.
	Predecessors []int

	FailReason string
}

// OrderingEdge is one edge of the ordering DAG, (source, target, flags).
type OrderingEdge struct {
	FromID int
	ToID   int
	Flags  FlagSet
}

// OrderingKind classifies an ordering constraint's strength.
type OrderingKind string

const (
	KindMandatory OrderingKind = "Mandatory"
	KindOptional  OrderingKind = "Optional"
	KindSerialize OrderingKind = "Serialize"
)

// ResourceSetRef is one resource-set member of an ordering/colocation
// constraint, after tag expansion has replaced any tag reference
// with its members in declaration order.
type ResourceSetRef struct {
	ID            string
	Sequential    bool
	Role          string
	Action        string
	RequireAll    bool
	RequireAllSet bool
	Resources     []string // concrete resource IDs, in order
}

// OrderConstraint is one ordering constraint: either a simple
// first-resource/then-resource pair, or a sequence of resource sets.
type OrderConstraint struct {
	ID           string
	FirstID      string
	ThenID       string
	FirstAction  string
	ThenAction   string
	Kind         OrderingKind
	KindExplicit bool
	LegacyScore  float64
	Symmetric    bool
	Sets         []ResourceSetRef
}

// ColocationConstraint ties a dependent resource's placement to a primary's.
type ColocationConstraint struct {
	ID                string
	DependentID       string
	PrimaryID         string
	DependentRole     string
	PrimaryRole       string
	Score             float64
	NodeAttribute     string // default "#uname"
	Influence         bool
	InfluenceExplicit bool
	Sets              []ResourceSetRef
}

// LocationRuleExpr is one leaf or boolean-combination node of a location
// constraint's rule tree.
type LocationRuleExpr struct {
	BooleanOp      string // "and" | "or"; "" for a leaf
	Score          float64
	ScoreAttribute string
	DateSpec       *DateSpec
	Expression     *AttrExpr
	Children       []*LocationRuleExpr
}

// LocationConstraint places (or bans) a resource on a node or node set.
type LocationConstraint struct {
	ID              string
	ResourceID      string
	NodeID          string // non-empty for the simple node-named form
	Score           float64
	Role            string
	Rule            *LocationRuleExpr // non-nil for the rule-based form
	DiscoveryPolicy string
}

// TicketConstraint binds a resource's eligibility for a role to a ticket.
type TicketConstraint struct {
	ID         string
	ResourceID string
	TicketID   string
	Role       string
	LossPolicy string // stop | demote | freeze | fence
}

// Ticket is a cluster-wide boolean token.
type Ticket struct {
	ID          string
	Granted     bool
	Standby     bool
	LastGranted time.Time
}

// ClusterOptions mirrors the cluster property option table (crm_config nvpairs).
type ClusterOptions struct {
	NoQuorumPolicy         string // stop | freeze | ignore | demote | suicide
	SymmetricCluster       bool
	MaintenanceMode        bool
	StartFailureIsFatal    bool
	StonithEnabled         bool
	ConcurrentFencing      bool
	PriorityFencingDelay   time.Duration
	NodeHealthStrategy     string // none | migrate-on-red | only-green | progressive | custom
	PlacementStrategy      string // default | utilization | balanced | minimal
	BatchLimit             int
	MigrationLimit         int
	ShutdownLock           bool
	ShutdownLockLimit      time.Duration
	ClusterRecheckInterval time.Duration
	DCDeadtime             time.Duration
	ElectionTimeout        time.Duration
	StonithWatchdogTimeout time.Duration
	EnableStartupProbes    bool
}

// DefaultClusterOptions returns the option set with every default applied,
// the way an absent CIB attribute is treated as its documented default.
func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{
		NoQuorumPolicy:         "stop",
		SymmetricCluster:       true,
		NodeHealthStrategy:     "none",
		PlacementStrategy:      "default",
		BatchLimit:             0,
		MigrationLimit:         -1,
		ClusterRecheckInterval: 15 * time.Minute,
		DCDeadtime:             20 * time.Second,
		ElectionTimeout:        2 * time.Minute,
		EnableStartupProbes:    true,
	}
}

// Severity classifies a diagnostic by how urgently it needs attention.
type Severity string

const (
	SeverityTrace       Severity = "trace"
	SeverityInfo        Severity = "info"
	SeverityWarn        Severity = "warn"
	SeverityError       Severity = "error"
	SeverityConfigError Severity = "config-error"
)

// Diagnostic is one (severity, message) pair the engine collects. SubjectID
// names the offending constraint, resource, or node when applicable.
type Diagnostic struct {
	Severity  Severity
	Code      string
	Message   string
	SubjectID string
}
