package cib

import (
	"encoding/xml"
	"sort"

	"github.com/cuemby/pacemaker-scheduler/pkg/types"
)

type xmlTransitionGraph struct {
	XMLName xml.Name          `xml:"transition_graph"`
	Actions []xmlGraphAction  `xml:"synapse>action"`
}

type xmlGraphAction struct {
	ID           int             `xml:"id,attr"`
	Resource     string          `xml:"resource,attr"`
	Task         string          `xml:"operation,attr"`
	Interval     int             `xml:"interval,attr,omitempty"`
	Node         string          `xml:"on_node,attr,omitempty"`
	Priority     int             `xml:"priority,attr,omitempty"`
	TimeoutMS    int64           `xml:"timeout,attr,omitempty"`
	FailReason   string          `xml:"fail_reason,attr,omitempty"`
	Attributes   []xmlNVPair     `xml:"attributes>nvpair,omitempty"`
	Predecessors []xmlPredecessor `xml:"inputs>trigger"`
}

type xmlPredecessor struct {
	ActionID int `xml:"id,attr"`
}

// Emit serializes the computed action graph to transition_graph_xml.
// Actions are emitted in ID order, which is the order they were created in
// — ultimately a deterministic function of sorted resource/constraint
// iteration throughout the earlier stages.
func Emit(ws *types.WorkingSet) ([]byte, error) {
	actions := ws.OrderedActions()
	graph := xmlTransitionGraph{Actions: make([]xmlGraphAction, 0, len(actions))}

	for _, a := range actions {
		ga := xmlGraphAction{
			ID:        a.ID,
			Resource:  a.ResourceID,
			Task:      a.Task,
			Interval:  a.IntervalMS,
			Node:      a.Node,
			Priority:  a.Priority,
			TimeoutMS: a.Timeout.Milliseconds(),
			FailReason: a.FailReason,
		}
		for _, p := range a.Predecessors {
			ga.Predecessors = append(ga.Predecessors, xmlPredecessor{ActionID: p})
		}
		keys := make([]string, 0, len(a.Meta))
		for k := range a.Meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			ga.Attributes = append(ga.Attributes, xmlNVPair{Name: k, Value: a.Meta[k]})
		}
		graph.Actions = append(graph.Actions, ga)
	}

	out, err := xml.MarshalIndent(graph, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
