package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// decodeYAML converts a YAML document into JSON, preserving mapping key order
// so weekday ranges keep their declaration order.
func decodeYAML(content string) (json.RawMessage, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}

	if doc.Kind == 0 {
		return json.RawMessage("{}"), nil
	}
	root := &doc
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return json.RawMessage("{}"), nil
		}
		root = doc.Content[0]
	}

	var buf bytes.Buffer
	if err := writeYAMLNodeJSON(&buf, root); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}

func writeYAMLNodeJSON(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.Kind {
	case yaml.AliasNode:
		return writeYAMLNodeJSON(buf, node.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(node.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(node.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeYAMLNodeJSON(buf, node.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range node.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeYAMLNodeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		return writeYAMLScalarJSON(buf, node)
	default:
		return fmt.Errorf("yaml: unsupported node at line %d", node.Line)
	}
}

func writeYAMLScalarJSON(buf *bytes.Buffer, node *yaml.Node) error {
	var value any
	switch node.ShortTag() {
	case "!!null":
		buf.WriteString("null")
		return nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return fmt.Errorf("yaml line %d: %w", node.Line, err)
		}
		value = b
	case "!!int":
		var n int64
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("yaml line %d: %w", node.Line, err)
		}
		value = n
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return fmt.Errorf("yaml line %d: %w", node.Line, err)
		}
		value = f
	default:
		value = node.Value
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("yaml line %d: %w", node.Line, err)
	}
	buf.Write(encoded)
	return nil
}
