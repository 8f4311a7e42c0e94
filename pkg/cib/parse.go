package cib

import (
	"encoding/xml"
	"fmt"
)

// ParseConfiguration unmarshals the CIB configuration document. It performs
// no semantic validation — that happens once, during Build, against the
// typed model rather than the raw XML shape.
func ParseConfiguration(doc []byte) (*xmlCIB, error) {
	var out xmlCIB
	if err := xml.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("cib: parse configuration: %w", err)
	}
	return &out, nil
}

// ParseStatus unmarshals the live status document.
func ParseStatus(doc []byte) (*xmlStatusDoc, error) {
	var out xmlStatusDoc
	if err := xml.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("cib: parse status: %w", err)
	}
	return &out, nil
}
