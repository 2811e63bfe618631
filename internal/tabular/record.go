package tabular

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Record is one input row: feature name to scalar value (float64, string,
// bool or nil). Field order is the order names were first set.
type Record struct {
	names  []string
	values map[string]any
}

// NewRecord builds a record from alternating name/value pairs.
func NewRecord(pairs ...any) Record {
	if len(pairs)%2 != 0 {
		panic("tabular: NewRecord needs name/value pairs")
	}
	r := Record{}
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("tabular: field name %v is not a string", pairs[i]))
		}
		r.Set(name, pairs[i+1])
	}
	return r
}

// FromMap builds a record from m. Map order is lost, so names are sorted.
func FromMap(m map[string]any) Record {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	r := Record{}
	for _, name := range names {
		r.Set(name, m[name])
	}
	return r
}

func (r *Record) Set(name string, v any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = v
}

// Get returns the value for name. A present nil value reports ok=true.
func (r Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

func (r Record) Names() []string {
	return append([]string(nil), r.names...)
}

func (r Record) Len() int {
	return len(r.names)
}

// Map returns a copy of the record as a plain map.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.names))
	for _, name := range r.names {
		out[name] = r.values[name]
	}
	return out
}

// UnmarshalJSON decodes a flat JSON object, keeping key order. Nested objects
// and arrays are rejected; a repeated key keeps its first position.
func (r *Record) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record: expected object")
	}
	*r = Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("record: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected field name")
		}
		tok, err = dec.Token()
		if err != nil {
			return fmt.Errorf("record: field %q: %w", name, err)
		}
		v, err := scalar(tok)
		if err != nil {
			return fmt.Errorf("record: field %q: %w", name, err)
		}
		r.Set(name, v)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[name])
		if err != nil {
			return nil, fmt.Errorf("record: field %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func scalar(tok json.Token) (any, error) {
	switch v := tok.(type) {
	case nil, string, bool:
		return v, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case json.Delim:
		return nil, fmt.Errorf("expected scalar value, got %s", v)
	default:
		return nil, fmt.Errorf("unexpected token %v", v)
	}
}
