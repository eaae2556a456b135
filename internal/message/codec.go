package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingType is returned by Decode when the frame has no string "type" field.
var ErrMissingType = errors.New("message: missing type")

// Decode parses a JSON object frame.  The "type" field becomes the
// message type; every other string or integral number becomes a
// property.  Values of any other JSON kind are dropped, which makes a
// handler treat the property as absent.
func Decode(data []byte) (Message, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Message{}, fmt.Errorf("message: decode: %w", err)
	}
	typ, ok := raw["type"].(string)
	if !ok {
		return Message{}, ErrMissingType
	}
	m := New(typ)
	for k, v := range raw {
		if k == "type" {
			continue
		}
		switch t := v.(type) {
		case string:
			m.Properties[k] = t
		case json.Number:
			if n, err := t.Int64(); err == nil {
				m.Properties[k] = int(n)
			}
		}
	}
	return m, nil
}

// Encode renders a message as a flat JSON object.  Only string and
// integer properties are written; a property named "type" never
// overrides the message type.
func Encode(m Message) ([]byte, error) {
	out := make(map[string]any, len(m.Properties)+1)
	for k, v := range m.Properties {
		switch v.(type) {
		case string, int, int32, int64:
			out[k] = v
		}
	}
	out["type"] = m.Type
	return json.Marshal(out)
}
