package docmeta

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Field names shared by both formats.
const (
	FieldFileHash = "File Hash (SHA-256)"
	FieldFileName = "File Name"
	FieldFileType = "File Type"
	FieldFileSize = "File Size"
)

// Field is one named metadata value. Value is a string or an int.
type Field struct {
	Name  string `json:"name" yaml:"name" firestore:"name"`
	Value any    `json:"value" yaml:"value" firestore:"value"`
}

// Record is an ordered set of metadata fields. Order only matters for
// display. The zero value is an empty record ready to use.
type Record struct {
	fields []Field
}

// Set stores value under name, keeping the original position when name
// already exists.
func (r *Record) Set(name string, value any) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = value
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Get returns the value stored under name.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// String returns the value under name formatted as text, or "" if absent.
func (r Record) String(name string) string {
	v, ok := r.Get(name)
	if !ok {
		return ""
	}
	return fmt.Sprint(v)
}

// Fields returns a copy of the fields in insertion order.
func (r Record) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// Len returns the number of fields in the record.
func (r Record) Len() int { return len(r.fields) }

// MarshalJSON encodes the record as a JSON object in insertion order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order. Integral numbers
// become int.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected JSON object, got %v", tok)
	}

	r.fields = r.fields[:0]
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: unexpected key %v", tok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("record: field %q: %w", name, err)
		}
		if n, ok := raw.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				raw = int(i)
			} else {
				raw = n.String()
			}
		}
		r.Set(name, raw)
	}
	_, err = dec.Token()
	return err
}

// MarshalYAML encodes the record as a YAML mapping in insertion order.
func (r Record) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, f := range r.fields {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Name}
		val := &yaml.Node{}
		if err := val.Encode(f.Value); err != nil {
			return nil, fmt.Errorf("encode field %q: %w", f.Name, err)
		}
		node.Content = append(node.Content, key, val)
	}
	return node, nil
}
