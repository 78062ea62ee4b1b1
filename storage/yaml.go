package storage

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arthur-debert/pipestore/record"
	"gopkg.in/yaml.v3"
)

// YAMLCodec stores collections as YAML mappings. It works on yaml.Node
// trees so key order survives both directions.
type YAMLCodec struct{}

// Name implements Codec.
func (YAMLCodec) Name() string {
	return FormatYAML
}

// Encode implements Codec.
func (YAMLCodec) Encode(docs *record.Map) ([]byte, error) {
	if docs == nil {
		docs = record.New()
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(toYAMLNode(docs)); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode implements Codec.
func (YAMLCodec) Decode(data []byte) (*record.Map, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return record.New(), nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	root := &doc
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return record.New(), nil
		}
		root = doc.Content[0]
	}
	v, err := fromYAMLNode(root)
	if err != nil {
		return nil, err
	}
	return checkDocuments(v)
}

// MarshalYAML encodes any record value (a record, a sequence or a
// scalar) keeping map order.
func MarshalYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(toYAMLNode(record.Normalize(v))); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func scalarNode(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func toYAMLNode(v any) *yaml.Node {
	switch t := v.(type) {
	case *record.Map:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		if t.Len() == 0 {
			n.Style = yaml.FlowStyle
		}
		t.Range(func(k string, val any) bool {
			n.Content = append(n.Content, scalarNode("!!str", k), toYAMLNode(val))
			return true
		})
		return n
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if len(t) == 0 {
			n.Style = yaml.FlowStyle
		}
		for _, e := range t {
			n.Content = append(n.Content, toYAMLNode(e))
		}
		return n
	case nil:
		return scalarNode("!!null", "null")
	case bool:
		return scalarNode("!!bool", strconv.FormatBool(t))
	case int64:
		return scalarNode("!!int", strconv.FormatInt(t, 10))
	case float64:
		return scalarNode("!!float", formatYAMLFloat(t))
	case string:
		return scalarNode("!!str", t)
	default:
		return scalarNode("!!str", record.ToString(t))
	}
}

func formatYAMLFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func fromYAMLNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return fromYAMLNode(n.Alias)
	case yaml.MappingNode:
		m := record.New()
		for i := 0; i+1 < len(n.Content); i += 2 {
			val, err := fromYAMLNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(n.Content[i].Value, val)
		}
		return m, nil
	case yaml.SequenceNode:
		seq := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := fromYAMLNode(c)
			if err != nil {
				return nil, err
			}
			seq = append(seq, val)
		}
		return seq, nil
	case yaml.ScalarNode:
		return fromYAMLScalar(n)
	default:
		return nil, fmt.Errorf("unexpected YAML node kind %d at line %d", n.Kind, n.Line)
	}
}

func fromYAMLScalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return b, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return i, nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return f, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return f, nil
	default:
		return n.Value, nil
	}
}
