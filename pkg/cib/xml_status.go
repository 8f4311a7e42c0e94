package cib

import "encoding/xml"

type xmlStatusDoc struct {
	XMLName xml.Name       `xml:"status"`
	Nodes   []xmlNodeState `xml:"node_state"`
}

type xmlNodeState struct {
	ID           string `xml:"id,attr"`
	Uname        string `xml:"uname,attr"`
	InCCM        string `xml:"in_ccm,attr"`
	Crmd         string `xml:"crmd,attr"`
	Unclean      string `xml:"unclean,attr"`
	ShutdownFlag string `xml:"shutdown,attr"`
	LRM          xmlLRM `xml:"lrm"`
}

type xmlLRM struct {
	Resources []xmlLRMResource `xml:"lrm_resources>lrm_resource"`
}

type xmlLRMResource struct {
	ID  string        `xml:"id,attr"`
	Ops []xmlLRMRscOp `xml:"lrm_rsc_op"`
}

// xmlLRMRscOp mirrors a single recorded operation history entry. Only the
// fields the placement/actions stages care about are kept: the scheduler
// consumes history to derive current role and fail counts, not for display.
type xmlLRMRscOp struct {
	ID          string `xml:"id,attr"`
	Operation   string `xml:"operation,attr"`
	Interval    string `xml:"interval,attr"`
	CallID      string `xml:"call-id,attr"`
	RC          string `xml:"rc-code,attr"`
	OnNode      string `xml:"on_node,attr"`
	ExecTime    string `xml:"exec-time,attr"`
}
