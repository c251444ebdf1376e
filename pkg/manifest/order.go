// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
)

// KeyOrder is the source order of the keys of a JSON object. Nested objects
// are tracked by field name; objects inside arrays are not.
type KeyOrder struct {
	Keys   []string
	Fields map[string]*KeyOrder
}

// ReadKeyOrder scans raw, which must hold a JSON object, and records the
// order of its keys.
func ReadKeyOrder(raw []byte) (*KeyOrder, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("top-level value must be a JSON object")
	}
	return readObjectOrder(dec)
}

// ReadFileKeyOrder is ReadKeyOrder for the manifest at path.
func ReadFileKeyOrder(path string) (*KeyOrder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	order, err := ReadKeyOrder(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to scan manifest %s: %w", path, err)
	}
	return order, nil
}

// readObjectOrder consumes an object whose opening brace was already read.
func readObjectOrder(dec *json.Decoder) (*KeyOrder, error) {
	o := &KeyOrder{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		if !slices.Contains(o.Keys, key) {
			o.Keys = append(o.Keys, key)
		}
		child, err := readValueOrder(dec)
		if err != nil {
			return nil, err
		}
		if child != nil {
			if o.Fields == nil {
				o.Fields = make(map[string]*KeyOrder)
			}
			o.Fields[key] = child
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return o, nil
}

// readValueOrder consumes one value and returns its key order when it is an
// object.
func readValueOrder(dec *json.Decoder) (*KeyOrder, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch tok {
	case json.Delim('{'):
		return readObjectOrder(dec)
	case json.Delim('['):
		for dec.More() {
			if _, err := readValueOrder(dec); err != nil {
				return nil, err
			}
		}
		_, err := dec.Token()
		return nil, err
	}
	return nil, nil
}

// keysInOrder lists the keys of m: those known to order first, then the
// rest sorted.
func keysInOrder(m map[string]any, order *KeyOrder) []string {
	keys := make([]string, 0, len(m))
	if order != nil {
		for _, k := range order.Keys {
			if _, ok := m[k]; ok {
				keys = append(keys, k)
			}
		}
	}
	var rest []string
	for k := range m {
		if !slices.Contains(keys, k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// writeOrdered writes v indented below indent, the way json.MarshalIndent
// lays it out.
func writeOrdered(buf *bytes.Buffer, v any, order *KeyOrder, indent string) error {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 {
			buf.WriteString("{}")
			return nil
		}
		inner := indent + "  "
		keys := keysInOrder(t, order)
		buf.WriteString("{\n")
		for i, k := range keys {
			buf.WriteString(inner)
			if err := writeEncoded(buf, k, inner); err != nil {
				return err
			}
			buf.WriteString(": ")
			var child *KeyOrder
			if order != nil {
				child = order.Fields[k]
			}
			if err := writeOrdered(buf, t[k], child, inner); err != nil {
				return err
			}
			if i < len(keys)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(indent + "}")
		return nil

	case []any:
		if len(t) == 0 {
			buf.WriteString("[]")
			return nil
		}
		inner := indent + "  "
		buf.WriteString("[\n")
		for i, item := range t {
			buf.WriteString(inner)
			if err := writeOrdered(buf, item, nil, inner); err != nil {
				return err
			}
			if i < len(t)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(indent + "]")
		return nil
	}
	return writeEncoded(buf, v, indent)
}

func writeEncoded(buf *bytes.Buffer, v any, indent string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent(indent, "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
