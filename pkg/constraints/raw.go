package constraints

import "github.com/cuemby/pacemaker-scheduler/pkg/types"

// The Raw* types are the XML-free shape pkg/cib converts its parsed
// documents into. Everything here is already decoded (scores as float64,
// booleans as bool) — this package's job is expansion and normalization,
// not string parsing.

type RawResourceSet struct {
	ID            string
	Sequential    bool
	SequentialSet bool // true when the CIB declared sequential explicitly
	Role          string
	Action        string
	RequireAll    bool
	RequireAllSet bool
	Refs          []string // resource or tag IDs, pre-expansion
}

type RawLocation struct {
	ID              string
	ResourceID      string
	NodeID          string
	Score           float64
	Role            string
	Rule            *types.LocationRuleExpr
	DiscoveryPolicy string
}

type RawColocation struct {
	ID                string
	DependentID       string
	PrimaryID         string
	DependentRole     string
	PrimaryRole       string
	Score             float64
	NodeAttribute     string
	Influence         bool
	InfluenceExplicit bool
	Sets              []RawResourceSet
}

type RawOrder struct {
	ID               string
	FirstID          string
	FirstAction      string
	ThenID           string
	ThenAction       string
	Kind             string
	KindExplicit     bool
	LegacyScore      float64
	LegacyScoreSet   bool
	Symmetrical      bool
	SymmetricalSet   bool
	Sets             []RawResourceSet
}

type RawTicket struct {
	ID         string
	ResourceID string
	TicketID   string
	Role       string
	LossPolicy string
}

// Input bundles everything Unpack needs: the raw constraint declarations
// plus the tag index used to expand a tag reference into its member
// resource IDs. Templates are not indexed.
type Input struct {
	Locations   []RawLocation
	Colocations []RawColocation
	Orders      []RawOrder
	Tickets     []RawTicket
	Tags        map[string][]string
}
