package view

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/arbor/internal/attr"
)

// yamlNode is the on-disk shape of a description.
type yamlNode struct {
	Kind      string         `yaml:"kind"`
	Composite bool           `yaml:"composite,omitempty"`
	Key       string         `yaml:"key,omitempty"`
	Boundary  bool           `yaml:"boundary,omitempty"`
	Attrs     map[string]any `yaml:"attrs,omitempty"`
	Children  []*Node        `yaml:"children,omitempty"`
}

// UnmarshalYAML decodes a description, converting attrs into attr values.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	var raw yamlNode
	if err := value.Decode(&raw); err != nil {
		return err
	}
	attrs, err := attr.MapFromAny(raw.Attrs)
	if err != nil {
		return fmt.Errorf("line %d: attrs: %w", value.Line, err)
	}
	if len(attrs) == 0 {
		attrs = nil
	}
	*n = Node{
		Kind:      raw.Kind,
		Composite: raw.Composite,
		Key:       raw.Key,
		Boundary:  raw.Boundary,
		Attrs:     attrs,
		Children:  raw.Children,
	}
	return nil
}

// MarshalYAML encodes a description in the same shape UnmarshalYAML reads.
func (n *Node) MarshalYAML() (any, error) {
	raw := yamlNode{
		Kind:      n.Kind,
		Composite: n.Composite,
		Key:       n.Key,
		Boundary:  n.Boundary,
		Children:  n.Children,
	}
	if len(n.Attrs) > 0 {
		raw.Attrs = attr.ToAny(n.Attrs).(map[string]any)
	}
	return raw, nil
}
