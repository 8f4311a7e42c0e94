package cib

import "encoding/xml"

// The structs in this file mirror the on-wire configuration_xml shape.
// They are intentionally permissive (most fields are plain strings) — type
// coercion and default application happen once, in build.go, not here.

type xmlCIB struct {
	XMLName       xml.Name         `xml:"cib"`
	Configuration xmlConfiguration `xml:"configuration"`
}

type xmlConfiguration struct {
	CrmConfig   xmlNVSet        `xml:"crm_config"`
	Nodes       []xmlNode       `xml:"nodes>node"`
	Resources   xmlResources    `xml:"resources"`
	Constraints xmlConstraints  `xml:"constraints"`
	Tags        []xmlTag        `xml:"tags>tag"`
	Templates   []xmlTemplate   `xml:"templates>template"`
	Tickets     []xmlTicketDecl `xml:"tickets>ticket_state"`
}

type xmlNVPair struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type xmlNVSet struct {
	NVPairs []xmlNVPair `xml:"nvpair"`
}

func (s xmlNVSet) toMap() map[string]string {
	out := make(map[string]string, len(s.NVPairs))
	for _, p := range s.NVPairs {
		out[p.Name] = p.Value
	}
	return out
}

type xmlNode struct {
	ID         string   `xml:"id,attr"`
	Uname      string   `xml:"uname,attr"`
	Type       string   `xml:"type,attr"` // member | remote | guest
	Attributes xmlNVSet `xml:"instance_attributes"`
}

type xmlResources struct {
	Primitives []xmlPrimitive `xml:"primitive"`
	Groups     []xmlGroup     `xml:"group"`
	Clones     []xmlClone     `xml:"clone"`
	Bundles    []xmlBundle    `xml:"bundle"`
}

type xmlOp struct {
	Name       string `xml:"name,attr"`
	Interval   string `xml:"interval,attr"`
	Timeout    string `xml:"timeout,attr"`
	Role       string `xml:"role,attr"`
}

type xmlPrimitive struct {
	ID                  string      `xml:"id,attr"`
	Class               string      `xml:"class,attr"`
	Type                string      `xml:"type,attr"`
	MetaAttributes      xmlNVSet    `xml:"meta_attributes"`
	InstanceAttributes  xmlNVSet    `xml:"instance_attributes"`
	Operations          []xmlOp     `xml:"operations>op"`
}

type xmlGroup struct {
	ID             string         `xml:"id,attr"`
	MetaAttributes xmlNVSet       `xml:"meta_attributes"`
	Primitives     []xmlPrimitive `xml:"primitive"`
}

type xmlClone struct {
	ID             string       `xml:"id,attr"`
	MetaAttributes xmlNVSet     `xml:"meta_attributes"`
	Primitive      *xmlPrimitive `xml:"primitive"`
	Group          *xmlGroup     `xml:"group"`
}

type xmlBundle struct {
	ID             string   `xml:"id,attr"`
	Image          string   `xml:"image,attr"`
	MetaAttributes xmlNVSet `xml:"meta_attributes"`
}

type xmlTag struct {
	ID      string       `xml:"id,attr"`
	ObjRefs []xmlObjRef  `xml:"obj_ref"`
}

type xmlObjRef struct {
	ID string `xml:"id,attr"`
}

type xmlTemplate struct {
	ID string `xml:"id,attr"`
}

type xmlTicketDecl struct {
	ID      string `xml:"id,attr"`
	Granted bool   `xml:"granted,attr"`
	Standby bool   `xml:"standby,attr"`
}

type xmlResourceRef struct {
	ID string `xml:"id,attr"`
}

type xmlResourceSet struct {
	ID         string           `xml:"id,attr"`
	Sequential string           `xml:"sequential,attr"` // "" = default true
	Role       string           `xml:"role,attr"`
	Action     string           `xml:"action,attr"`
	RequireAll string           `xml:"require-all,attr"`
	Refs       []xmlResourceRef `xml:"resource_ref"`
}

type xmlConstraints struct {
	Locations   []xmlLocation   `xml:"rsc_location"`
	Colocations []xmlColocation `xml:"rsc_colocation"`
	Orders      []xmlOrder      `xml:"rsc_order"`
	Tickets     []xmlRscTicket  `xml:"rsc_ticket"`
}

type xmlExpression struct {
	Attribute string `xml:"attribute,attr"`
	Operation string `xml:"operation,attr"`
	Value     string `xml:"value,attr"`
	Type      string `xml:"type,attr"`
}

type xmlDateSpec struct {
	Years    string `xml:"years,attr"`
	Months   string `xml:"months,attr"`
	Weekdays string `xml:"weekdays,attr"`
	Yeardays string `xml:"yeardays,attr"`
	Hours    string `xml:"hours,attr"`
	Minutes  string `xml:"minutes,attr"`
}

type xmlDateExpression struct {
	Operation string       `xml:"operation,attr"`
	Start     string       `xml:"start,attr"`
	End       string       `xml:"end,attr"`
	DateSpec  *xmlDateSpec `xml:"date_spec"`
}

type xmlRule struct {
	ID              string              `xml:"id,attr"`
	Score           string              `xml:"score,attr"`
	ScoreAttribute  string              `xml:"score-attribute,attr"`
	BooleanOp       string              `xml:"boolean-op,attr"`
	Expressions     []xmlExpression     `xml:"expression"`
	DateExpressions []xmlDateExpression `xml:"date_expression"`
	Rules           []xmlRule           `xml:"rule"`
}

type xmlLocation struct {
	ID              string    `xml:"id,attr"`
	Rsc             string    `xml:"rsc,attr"`
	Node            string    `xml:"node,attr"`
	Score           string    `xml:"score,attr"`
	Role            string    `xml:"role,attr"`
	ResourceDiscovery string  `xml:"resource-discovery,attr"`
	Rule            *xmlRule  `xml:"rule"`
}

type xmlColocation struct {
	ID            string           `xml:"id,attr"`
	Rsc           string           `xml:"rsc,attr"`
	WithRsc       string           `xml:"with-rsc,attr"`
	RscRole       string           `xml:"rsc-role,attr"`
	WithRscRole   string           `xml:"with-rsc-role,attr"`
	Score         string           `xml:"score,attr"`
	NodeAttribute string           `xml:"node-attribute,attr"`
	Influence     string           `xml:"influence,attr"`
	Sets          []xmlResourceSet `xml:"resource_set"`
}

type xmlOrder struct {
	ID           string           `xml:"id,attr"`
	First        string           `xml:"first,attr"`
	FirstAction  string           `xml:"first-action,attr"`
	Then         string           `xml:"then,attr"`
	ThenAction   string           `xml:"then-action,attr"`
	Kind         string           `xml:"kind,attr"`
	Score        string           `xml:"score,attr"`
	Symmetrical  string           `xml:"symmetrical,attr"`
	Sets         []xmlResourceSet `xml:"resource_set"`
}

type xmlRscTicket struct {
	ID         string `xml:"id,attr"`
	Rsc        string `xml:"rsc,attr"`
	Ticket     string `xml:"ticket,attr"`
	Role       string `xml:"rsc-role,attr"`
	LossPolicy string `xml:"loss-policy,attr"`
}
