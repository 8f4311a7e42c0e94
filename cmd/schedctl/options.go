package main

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// loadOptionOverrides reads a YAML file of cluster_property_set-style
// overrides, e.g.:
//
//	cluster-recheck-interval: 5min
//	stonith-enabled: "false"
func loadOptionOverrides(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("decoding option overrides: %w", err)
	}
	return overrides, nil
}

type nvPair struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type crmConfig struct {
	XMLName xml.Name `xml:"crm_config"`
	NVPairs []nvPair `xml:"nvpair"`
}

// mergeOptionOverrides splices cluster option overrides into a CIB
// document's crm_config block, so ad-hoc test runs can flip an option
// without hand-editing the fixture XML. The core itself only ever reads
// CIB XML; this keeps the override mechanism at the same boundary rather
// than threading an out-of-band struct into the scheduling pass.
func mergeOptionOverrides(cibXML []byte, overrides map[string]string) ([]byte, error) {
	if len(overrides) == 0 {
		return cibXML, nil
	}

	start := bytes.Index(cibXML, []byte("<crm_config"))
	var existing crmConfig
	var before, after []byte

	if start == -1 {
		marker := []byte("</configuration>")
		at := bytes.Index(cibXML, marker)
		if at == -1 {
			return nil, fmt.Errorf("no <configuration> element found to attach crm_config to")
		}
		before, after = cibXML[:at], cibXML[at:]
	} else {
		end := bytes.Index(cibXML[start:], []byte("</crm_config>"))
		if end == -1 {
			return nil, fmt.Errorf("unterminated <crm_config> element")
		}
		end += start + len("</crm_config>")
		if err := xml.Unmarshal(cibXML[start:end], &existing); err != nil {
			return nil, fmt.Errorf("parsing existing crm_config: %w", err)
		}
		before, after = cibXML[:start], cibXML[end:]
	}

	merged := make(map[string]string, len(existing.NVPairs)+len(overrides))
	for _, p := range existing.NVPairs {
		merged[p.Name] = p.Value
	}
	for k, v := range overrides {
		merged[k] = v
	}

	out := crmConfig{NVPairs: make([]nvPair, 0, len(merged))}
	for k, v := range merged {
		out.NVPairs = append(out.NVPairs, nvPair{Name: k, Value: v})
	}

	encoded, err := xml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding merged crm_config: %w", err)
	}

	result := make([]byte, 0, len(before)+len(encoded)+len(after))
	result = append(result, before...)
	result = append(result, encoded...)
	result = append(result, after...)
	return result, nil
}
