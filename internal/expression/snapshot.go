package expression

import (
	"bytes"
	"fmt"
	"reflect"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/nlstn/go-predicateview/internal/predicate"
	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is the user-visible state of a node and its descendants, without ids.
type Snapshot struct {
	Kind     Kind        `msgpack:"k" yaml:"kind"`
	Title    string      `msgpack:"t,omitempty" yaml:"title,omitempty"`
	Field    string      `msgpack:"f,omitempty" yaml:"field,omitempty"`
	Operator Operator    `msgpack:"o,omitempty" yaml:"operator,omitempty"`
	Value    any         `msgpack:"v,omitempty" yaml:"value,omitempty"`
	Wrapped  *Snapshot   `msgpack:"w,omitempty" yaml:"wrapped,omitempty"`
	Children []*Snapshot `msgpack:"c,omitempty" yaml:"children,omitempty"`
}

// CurrentValue is the canonical encoding of a Snapshot. Two nodes with the same
// user-visible state have equal current values whatever their ids.
type CurrentValue string

// Fingerprint hashes the current value.
func (c CurrentValue) Fingerprint() uint64 {
	return xxhash.Sum64String(string(c))
}

// Snapshot decodes the current value. Values come back in canonical form:
// numbers and dates as strings.
func (c CurrentValue) Snapshot() (*Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal([]byte(c), &s); err != nil {
		return nil, fmt.Errorf("expression: decode current value: %w", err)
	}
	return &s, nil
}

// Encode returns the current value of s.
func (s *Snapshot) Encode() CurrentValue {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	enc.UseCompactInts(true)
	if err := enc.Encode(s); err != nil {
		// canonical values are strings, bools and nested snapshots
		return CurrentValue(fmt.Sprintf("%#v", s))
	}
	return CurrentValue(buf.String())
}

// LeafSnapshot captures a non-group node. Collections pass the snapshot of their
// element group as children.
func LeafSnapshot(n *Node, children ...*Snapshot) *Snapshot {
	s := &Snapshot{
		Kind:     n.Kind,
		Title:    n.Title(),
		Field:    n.Field(),
		Operator: n.Attribute.Operator,
		Value:    CanonicalValue(n.Attribute.Value),
		Children: children,
	}
	if n.Wrapped != nil {
		s.Wrapped = &Snapshot{
			Kind:     n.Template.Inner,
			Operator: n.Wrapped.Operator,
			Value:    CanonicalValue(n.Wrapped.Value),
		}
	}
	return s
}

// CanonicalValue maps semantically equal values to identical encodable ones.
func CanonicalValue(v any) any {
	if v == nil {
		return nil
	}
	if d, ok := predicate.ToDecimal(v); ok {
		return "n:" + d.String()
	}
	switch x := v.(type) {
	case time.Time:
		return "t:" + x.UTC().Format(time.RFC3339Nano)
	case string:
		return x
	case bool:
		return x
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return fmt.Sprintf("%T:%s", v, rv.String())
	}
	return fmt.Sprintf("%T:%v", v, v)
}
