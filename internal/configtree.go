package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NodeKind tags the shape of one configuration value.
type NodeKind int

const (
	KindNull NodeKind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// ConfigNode models an arbitrarily nested configuration value as a tagged
// tree, so any service's config can be read, edited path-by-path and
// written back without the client hard-coding its fields. Object field
// order is preserved across a round trip.
type ConfigNode struct {
	Kind   NodeKind
	Bool   bool
	Number json.Number
	Str    string
	Items  []*ConfigNode
	Fields []ConfigField
}

// ConfigField is one key/value pair of an object node, order preserved.
type ConfigField struct {
	Key   string
	Value *ConfigNode
}

// ParseConfig decodes raw JSON into a ConfigNode tree.
func ParseConfig(data []byte) (*ConfigNode, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	node, err := decodeNode(dec)
	if err != nil {
		return nil, &ParseError{Source: "config", Key: "root", Err: err}
	}
	return node, nil
}

func decodeNode(dec *json.Decoder) (*ConfigNode, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeFromToken(dec, tok)
}

func decodeFromToken(dec *json.Decoder, tok json.Token) (*ConfigNode, error) {
	switch v := tok.(type) {
	case nil:
		return &ConfigNode{Kind: KindNull}, nil
	case bool:
		return &ConfigNode{Kind: KindBool, Bool: v}, nil
	case json.Number:
		return &ConfigNode{Kind: KindNumber, Number: v}, nil
	case string:
		return &ConfigNode{Kind: KindString, Str: v}, nil
	case json.Delim:
		switch v {
		case '{':
			node := &ConfigNode{Kind: KindObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key, got %v", keyTok)
				}
				val, err := decodeNode(dec)
				if err != nil {
					return nil, err
				}
				node.Fields = append(node.Fields, ConfigField{Key: key, Value: val})
			}
			// consume '}'
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return node, nil
		case '[':
			node := &ConfigNode{Kind: KindArray}
			for dec.More() {
				item, err := decodeNode(dec)
				if err != nil {
					return nil, err
				}
				node.Items = append(node.Items, item)
			}
			// consume ']'
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return node, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// MarshalJSON renders the tree back to JSON, keeping object field order.
func (n *ConfigNode) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *ConfigNode) encode(buf *bytes.Buffer) error {
	switch n.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(n.Bool))
	case KindNumber:
		buf.WriteString(n.Number.String())
	case KindString:
		data, err := json.Marshal(n.Str)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, f := range n.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown node kind %d", n.Kind)
	}
	return nil
}

// UnmarshalJSON replaces the node with the parsed tree.
func (n *ConfigNode) UnmarshalJSON(data []byte) error {
	parsed, err := ParseConfig(data)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

// Get resolves a dotted path like "llm.model" or "chunks.0.size". It
// returns false when any segment is missing.
func (n *ConfigNode) Get(path string) (*ConfigNode, bool) {
	if path == "" {
		return n, true
	}
	cur := n
	for _, seg := range strings.Split(path, ".") {
		switch cur.Kind {
		case KindObject:
			var next *ConfigNode
			for _, f := range cur.Fields {
				if f.Key == seg {
					next = f.Value
					break
				}
			}
			if next == nil {
				return nil, false
			}
			cur = next
		case KindArray:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(cur.Items) {
				return nil, false
			}
			cur = cur.Items[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Set replaces the value at a dotted path, creating the final object
// field if it does not exist. Intermediate segments must already exist.
func (n *ConfigNode) Set(path string, value *ConfigNode) error {
	segs := strings.Split(path, ".")
	if len(segs) == 0 || path == "" {
		return fmt.Errorf("empty config path")
	}

	parent := n
	if len(segs) > 1 {
		p, ok := n.Get(strings.Join(segs[:len(segs)-1], "."))
		if !ok {
			return fmt.Errorf("config path not found: %s", path)
		}
		parent = p
	}
	last := segs[len(segs)-1]

	switch parent.Kind {
	case KindObject:
		for i := range parent.Fields {
			if parent.Fields[i].Key == last {
				parent.Fields[i].Value = value
				return nil
			}
		}
		parent.Fields = append(parent.Fields, ConfigField{Key: last, Value: value})
		return nil
	case KindArray:
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(parent.Items) {
			return fmt.Errorf("invalid array index in config path: %s", path)
		}
		parent.Items[idx] = value
		return nil
	default:
		return fmt.Errorf("config path %s does not point into an object or array", path)
	}
}

// ScalarFromString builds the most specific scalar node for a CLI-entered
// value: bool, number, null, then string.
func ScalarFromString(s string) *ConfigNode {
	switch s {
	case "true":
		return &ConfigNode{Kind: KindBool, Bool: true}
	case "false":
		return &ConfigNode{Kind: KindBool, Bool: false}
	case "null":
		return &ConfigNode{Kind: KindNull}
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return &ConfigNode{Kind: KindNumber, Number: json.Number(s)}
	}
	return &ConfigNode{Kind: KindString, Str: s}
}

// String renders scalars bare and composites as compact JSON, for display.
func (n *ConfigNode) String() string {
	switch n.Kind {
	case KindString:
		return n.Str
	case KindBool:
		return strconv.FormatBool(n.Bool)
	case KindNumber:
		return n.Number.String()
	case KindNull:
		return "null"
	default:
		data, err := n.MarshalJSON()
		if err != nil {
			return "<invalid>"
		}
		return string(data)
	}
}
