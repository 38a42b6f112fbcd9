package request

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Meta is an ordered, string-keyed bag of request annotations.
//
// Iteration and JSON encoding follow insertion order, so serialized
// requests round-trip byte-stably and test output is deterministic.
//
// Design decision: we keep values as `any` rather than forcing a closed
// set of value types because callers legitimately stash arbitrary
// crawl state here (depth counters, referer URLs, per-request settings).
// The cost is that some values cannot be serialized to disk; that is an
// expected, recoverable condition handled by the scheduler's memory
// fallback, not a Meta-level error.
type Meta struct {
	keys   []string
	values map[string]any
}

// TypeError reports that a Meta key holds a value of an unexpected type.
// It is returned by the typed accessors (GetString, GetInt) so callers
// can distinguish "key absent" from "key present but wrong type".
type TypeError struct {
	// Key is the Meta key that was accessed.
	Key string

	// Want is the requested Go type.
	Want string

	// Got is the value actually stored under Key.
	Got any
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("meta key %q holds %T, want %s", e.Key, e.Got, e.Want)
}

// NewMeta creates an empty Meta bag.
func NewMeta() *Meta {
	return &Meta{
		values: make(map[string]any),
	}
}

// Set stores value under key, appending the key to the iteration order
// on first insertion. Setting an existing key overwrites the value but
// keeps the key's original position.
func (m *Meta) Set(key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the raw value stored under key, and whether it is present.
func (m *Meta) Get(key string) (any, bool) {
	if m == nil || m.values == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// GetString returns the string stored under key.
// The second return reports presence; a non-nil error means the key is
// present but does not hold a string.
func (m *Meta) GetString(key string) (string, bool, error) {
	v, ok := m.Get(key)
	if !ok {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", true, &TypeError{Key: key, Want: "string", Got: v}
	}
	return s, true, nil
}

// GetInt returns the integer stored under key.
// JSON decoding turns numbers into float64, so both int and integral
// float64 values are accepted.
func (m *Meta) GetInt(key string) (int, bool, error) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	case float64:
		if n == float64(int(n)) {
			return int(n), true, nil
		}
	}
	return 0, true, &TypeError{Key: key, Want: "int", Got: v}
}

// Delete removes key from the bag. Removing an absent key is a no-op.
func (m *Meta) Delete(key string) {
	if m == nil || m.values == nil {
		return
	}
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys in the bag.
func (m *Meta) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// MarshalJSON encodes the bag as a JSON object in insertion order.
// Encoding fails if any value is not JSON-representable (functions,
// channels); callers treat that as the request being unserializable.
func (m *Meta) MarshalJSON() ([]byte, error) {
	if m == nil || len(m.keys) == 0 {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the bag, preserving the
// key order of the document.
func (m *Meta) UnmarshalJSON(data []byte) error {
	m.keys = nil
	m.values = make(map[string]any)

	dec := json.NewDecoder(bytes.NewReader(data))

	// Opening brace
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("meta: expected JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("meta: expected string key, got %v", keyTok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		m.Set(key, value)
	}

	// Closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
