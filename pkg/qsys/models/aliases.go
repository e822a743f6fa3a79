// Package models defines the request and response payloads exchanged with the
// systems-management job service.
//
// Every model owns an Aliases table pairing the semantic field name with the
// key used on the wire. The table drives both encoding and decoding, so the
// mapping lives in one place per model. Unset fields (nil slices and maps,
// empty strings, nil pointers) are omitted from the payload; non-nil empty
// collections are sent as [] or {}.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field pairs a semantic name with its wire name.
type Field struct {
	Name string
	Wire string
}

// Aliases is the bidirectional name table of one model.
type Aliases []Field

// WireName returns the wire key for a semantic name.
func (a Aliases) WireName(name string) (string, bool) {
	for _, f := range a {
		if f.Name == name {
			return f.Wire, true
		}
	}
	return "", false
}

// FieldName returns the semantic name for a wire key.
func (a Aliases) FieldName(wire string) (string, bool) {
	for _, f := range a {
		if f.Wire == wire {
			return f.Name, true
		}
	}
	return "", false
}

// encode marshals the present values, keyed by semantic name, under their
// wire names. Names missing from the table are an error.
func (a Aliases) encode(values map[string]any) ([]byte, error) {
	out := make(map[string]any, len(values))
	for name, v := range values {
		wire, ok := a.WireName(name)
		if !ok {
			return nil, fmt.Errorf("models: no wire name for field %q", name)
		}
		out[wire] = v
	}
	return json.Marshal(out)
}

// decode unmarshals each table entry into the destination registered under
// its semantic name. The wire key wins; the semantic name is accepted when the
// wire key is missing. Unknown keys are ignored.
func (a Aliases) decode(data []byte, dst map[string]any) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, f := range a {
		ptr, ok := dst[f.Name]
		if !ok {
			continue
		}
		msg, ok := raw[f.Wire]
		if !ok {
			if msg, ok = raw[f.Name]; !ok {
				continue
			}
		}
		if err := DecodeValue(msg, ptr); err != nil {
			return fmt.Errorf("models: decoding %q: %w", f.Wire, err)
		}
	}
	return nil
}

// DecodeValue unmarshals data into ptr with numbers kept as json.Number, so
// opaque arguments and metadata survive a round trip unchanged.
func DecodeValue(data []byte, ptr any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(ptr)
}

// fields collects present values for encode.
type fields map[string]any

func (f fields) str(name, v string) {
	if v != "" {
		f[name] = v
	}
}

func (f fields) list(name string, v []string) {
	if v != nil {
		f[name] = v
	}
}

func (f fields) value(name string, v any, present bool) {
	if present {
		f[name] = v
	}
}
