package curriculum

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Opt holds a value that may be absent from a source document.
//
// Decoding a JSON or YAML value of the wrong shape (for example a string
// where a list is expected) or an explicit null yields the absent state
// rather than an error, so a single malformed field never rejects the record.
type Opt[T any] struct {
	value T
	ok    bool
}

// Some returns a present Opt holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{value: v, ok: true}
}

// None returns an absent Opt.
func None[T any]() Opt[T] {
	return Opt[T]{}
}

// Get returns the value and whether it is present.
func (o Opt[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Present reports whether the value was supplied.
func (o Opt[T]) Present() bool {
	return o.ok
}

// OrElse returns the value, or fallback when absent.
func (o Opt[T]) OrElse(fallback T) T {
	if !o.ok {
		return fallback
	}
	return o.value
}

// IsZero lets encoding/json drop absent fields tagged omitzero.
func (o Opt[T]) IsZero() bool {
	return !o.ok
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	*o = Opt[T]{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil // wrong shape reads as absent
	}
	*o = Some(v)
	return nil
}

func (o Opt[T]) MarshalYAML() (any, error) {
	if !o.ok {
		return nil, nil
	}
	return o.value, nil
}

func (o *Opt[T]) UnmarshalYAML(node *yaml.Node) error {
	*o = Opt[T]{}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	var v T
	if err := node.Decode(&v); err != nil {
		return nil
	}
	*o = Some(v)
	return nil
}
