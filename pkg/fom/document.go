package fom

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is a federation object model file: the classes a federation
// knows and their attribute names. Handles are allocated in document order.
//
//	classes:
//	  - name: Plane
//	    attributes: [altitude, speed]
type Document struct {
	Classes []ClassDef `yaml:"classes"`
}

// ClassDef declares one object class.
type ClassDef struct {
	Name       string   `yaml:"name"`
	Attributes []string `yaml:"attributes"`
}

// Validate checks names are present and unique.
func (d *Document) Validate() error {
	if len(d.Classes) == 0 {
		return fmt.Errorf("no object classes defined")
	}
	classes := make(map[string]bool, len(d.Classes))
	for _, c := range d.Classes {
		if c.Name == "" {
			return fmt.Errorf("object class name is required")
		}
		if classes[c.Name] {
			return fmt.Errorf("duplicate object class '%s'", c.Name)
		}
		classes[c.Name] = true

		attrs := make(map[string]bool, len(c.Attributes))
		for _, a := range c.Attributes {
			if a == "" {
				return fmt.Errorf("class '%s': attribute name is required", c.Name)
			}
			if attrs[a] {
				return fmt.Errorf("class '%s': duplicate attribute '%s'", c.Name, a)
			}
			attrs[a] = true
		}
	}
	return nil
}

// ParseDocument decodes and validates a document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid object model: %w", err)
	}
	return &doc, nil
}

// LoadDocument reads a document from path.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read object model: %w", err)
	}
	return ParseDocument(data)
}
