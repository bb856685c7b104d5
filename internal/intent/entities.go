package intent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Entity is one extracted slot value.
type Entity struct {
	Slot  Slot
	Value string
}

// Entities is a small ordered slot->value map. Order is insertion order and is
// preserved when marshaled to JSON.
type Entities []Entity

// Get returns the value stored for slot.
func (e Entities) Get(slot Slot) (string, bool) {
	for _, ent := range e {
		if ent.Slot == slot {
			return ent.Value, true
		}
	}
	return "", false
}

// Value returns the value stored for slot, or "".
func (e Entities) Value(slot Slot) string {
	v, _ := e.Get(slot)
	return v
}

// Has reports whether slot is set.
func (e Entities) Has(slot Slot) bool {
	_, ok := e.Get(slot)
	return ok
}

// With returns a copy of e with slot set to value. An existing slot keeps its
// position.
func (e Entities) With(slot Slot, value string) Entities {
	out := slices.Clone(e)
	for i := range out {
		if out[i].Slot == slot {
			out[i].Value = value
			return out
		}
	}
	return append(out, Entity{Slot: slot, Value: value})
}

// Only returns the entities whose slot is in allowed, keeping order.
func (e Entities) Only(allowed []Slot) Entities {
	out := Entities{}
	for _, ent := range e {
		if slices.Contains(allowed, ent.Slot) {
			out = append(out, ent)
		}
	}
	return out
}

// Map returns the entities as a plain map.
func (e Entities) Map() map[string]string {
	m := make(map[string]string, len(e))
	for _, ent := range e {
		m[string(ent.Slot)] = ent.Value
	}
	return m
}

// MarshalJSON encodes the entities as a JSON object in insertion order.
func (e Entities) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ent := range e {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(string(ent.Slot))
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(ent.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object. Key order follows the document.
func (e *Entities) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*e = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("entities: expected JSON object, got %v", tok)
	}
	out := Entities{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)
		var val string
		if err := dec.Decode(&val); err != nil {
			return err
		}
		out = out.With(Slot(key), val)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*e = out
	return nil
}
