/*
Package cib is the XML boundary adapter: it parses the CIB configuration
subtree and the live status document into the typed pkg/types model, and
later serializes the computed transition graph back out to XML.

# Architecture

	┌─────────────────────┐        ┌──────────────────────┐
	│  configuration_xml   │        │      status_xml       │
	│  (cib/configuration) │        │  (cib/status)          │
	└──────────┬───────────┘        └───────────┬───────────┘
	           │ Parse                           │ Overlay
	           ▼                                 ▼
	┌──────────────────────────────────────────────────────┐
	│                types.WorkingSet                        │
	│   nodes, resources, constraints, tickets, options      │
	└──────────────────────────────────────────────────────┘
	                         │
	                         │ (constraints/placement/actions/ordering/notify)
	                         ▼
	┌──────────────────────────────────────────────────────┐
	│                  action DAG (types)                    │
	└──────────────────────────────────────────────────────┘
	                         │ Emit
	                         ▼
	┌──────────────────────────────────────────────────────┐
	│              transition_graph_xml                      │
	└──────────────────────────────────────────────────────┘

No XPath or ad-hoc tag string comparisons leak past this package — everything
downstream works on typed Go values. XML interop stays at the boundary.
*/
package cib
