// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
)

const (
	// KindModule is the package kind declared by module.json.
	KindModule Kind = "module"
	// KindSystem is the package kind declared by system.json.
	KindSystem Kind = "system"

	// FieldEsmodules is the manifest field listing ES module entry points.
	FieldEsmodules = "esmodules"
	// FieldStyles is the manifest field listing stylesheets.
	FieldStyles = "styles"
)

var (
	// ErrInvalidManifest is the sentinel wrapped by FieldError.
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrInvalidKind is the sentinel wrapped by InvalidKindError.
	ErrInvalidKind = errors.New("invalid package kind")

	// ErrManifestTooLarge is returned for manifests above MaxFileSize.
	ErrManifestTooLarge = errors.New("manifest too large")
)

// MaxFileSize is the largest manifest accepted, in bytes.
const MaxFileSize int64 = 1 << 20

type (
	// Kind is the Foundry VTT package kind.
	Kind string

	// InvalidKindError is returned when a Kind is neither module nor system.
	InvalidKindError struct {
		Value Kind
	}

	// Data is a parsed manifest. Values follow encoding/json decoding rules
	// with numbers kept as json.Number.
	Data map[string]any

	// FieldError describes a manifest field that is missing or has the wrong shape.
	FieldError struct {
		Field  string
		Reason string
	}
)

// Kinds returns the supported package kinds in manifest lookup order.
func Kinds() []Kind { return []Kind{KindModule, KindSystem} }

// KindFromFilename maps "module.json" and "system.json" to their Kind.
func KindFromFilename(name string) (Kind, bool) {
	for _, k := range Kinds() {
		if name == k.Filename() {
			return k, true
		}
	}
	return "", false
}

// Filename returns the manifest filename for the kind.
func (k Kind) Filename() string { return string(k) + ".json" }

// String returns the string representation of the Kind.
func (k Kind) String() string { return string(k) }

// Validate returns an error if the Kind is not module or system.
func (k Kind) Validate() error {
	if !slices.Contains(Kinds(), k) {
		return &InvalidKindError{Value: k}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("invalid package kind %q (must be module or system)", e.Value)
}

// Unwrap returns ErrInvalidKind for errors.Is compatibility.
func (e *InvalidKindError) Unwrap() error { return ErrInvalidKind }

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%q %s", e.Field, e.Reason)
}

// Unwrap returns ErrInvalidManifest for errors.Is compatibility.
func (e *FieldError) Unwrap() error { return ErrInvalidManifest }

// ParseFile reads and decodes the manifest at path. Errors carry the path.
func ParseFile(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	if int64(len(raw)) > MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrManifestTooLarge, path, len(raw), MaxFileSize)
	}
	data, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return data, nil
}

// Parse decodes raw JSON into Data. The top-level value must be an object.
func Parse(raw []byte) (Data, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after top-level JSON value")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level value must be a JSON object, got %s", jsonType(v))
	}
	return Data(obj), nil
}

// EntryPoints returns the esmodules list. The field must be a non-empty
// array of non-empty strings.
func (d Data) EntryPoints() ([]string, error) {
	return d.stringList(FieldEsmodules, true)
}

// Styles returns the styles list, or nil when the field is absent.
func (d Data) Styles() ([]string, error) {
	return d.stringList(FieldStyles, false)
}

func (d Data) stringList(field string, required bool) ([]string, error) {
	v, ok := d[field]
	if !ok || v == nil {
		if required {
			return nil, &FieldError{Field: field, Reason: "is missing"}
		}
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, &FieldError{Field: field, Reason: "must be an array, got " + jsonType(v)}
	}
	if required && len(arr) == 0 {
		return nil, &FieldError{Field: field, Reason: "must declare at least one entry"}
	}
	out := make([]string, 0, len(arr))
	for i, item := range arr {
		s, ok := item.(string)
		if !ok || s == "" {
			return nil, &FieldError{Field: fmt.Sprintf("%s[%d]", field, i), Reason: "must be a non-empty string"}
		}
		out = append(out, s)
	}
	return out, nil
}

// AppendStyle adds style to the styles list unless it is already present.
// It reports whether the manifest changed.
func (d Data) AppendStyle(style string) (bool, error) {
	styles, err := d.Styles()
	if err != nil {
		return false, err
	}
	if slices.Contains(styles, style) {
		return false, nil
	}
	list, _ := d[FieldStyles].([]any)
	d[FieldStyles] = append(list, style)
	return true, nil
}

// Clone returns a deep copy of d.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	return Data(cloneValue(map[string]any(d)).(map[string]any))
}

// Marshal encodes d as indented JSON with a trailing newline. Object keys
// are sorted.
func (d Data) Marshal() ([]byte, error) {
	return d.MarshalOrdered(nil)
}

// MarshalOrdered encodes d like Marshal, except that object keys recorded in
// order come first and in source order. Keys order does not know, such as
// fields added by a hook, follow sorted.
func (d Data) MarshalOrdered(order *KeyOrder) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeOrdered(&buf, map[string]any(d), order, ""); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	default:
		return v
	}
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
