// Package resolve walks dotted and indexed paths such as "Name:GivenName" or
// "Emails[0]:Value" through canonical resources and decoded JSON documents.
//
// Canonical resources are Go values (structs, maps, slices and pointers to
// them). Decoded JSON is map[string]any and []any. Resolution never mutates
// its input and never reports a missing path as an error.
package resolve

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Mode selects how object members are matched.
type Mode int

const (
	// CaseSensitive matches member names exactly. Used for canonical
	// resources.
	CaseSensitive Mode = iota
	// CaseInsensitive prefers an exact match and falls back to a case-folded
	// one. Used for externally sourced JSON.
	CaseInsensitive
)

// Segment is one step of a parsed path: a member name optionally followed by
// zero or more array indexes.
type Segment struct {
	Name    string
	Indexes []int
}

// Parse splits a path into segments. ":" separates members and "[n]" selects
// a zero-based array element.
func Parse(path string) ([]Segment, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	parts := strings.Split(path, ":")
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", path, err)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func parseSegment(part string) (Segment, error) {
	open := strings.IndexByte(part, '[')
	if open < 0 {
		if part == "" {
			return Segment{}, fmt.Errorf("empty member name")
		}
		return Segment{Name: part}, nil
	}
	seg := Segment{Name: part[:open]}
	rest := part[open:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			return Segment{}, fmt.Errorf("unexpected %q after index", rest)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return Segment{}, fmt.Errorf("unterminated index in %q", part)
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil || n < 0 {
			return Segment{}, fmt.Errorf("invalid index %q", rest[1:end])
		}
		seg.Indexes = append(seg.Indexes, n)
		rest = rest[end+1:]
	}
	if seg.Name == "" && len(seg.Indexes) == 0 {
		return Segment{}, fmt.Errorf("empty member name")
	}
	return seg, nil
}

// Path resolves path against root. The second return value is false when
// any step of the path is absent, including a malformed path.
func Path(root any, path string, mode Mode) (any, bool) {
	segments, err := Parse(path)
	if err != nil {
		return nil, false
	}
	return Segments(root, segments, mode)
}

// Segments resolves already-parsed segments against root.
func Segments(root any, segments []Segment, mode Mode) (any, bool) {
	current := root
	for _, seg := range segments {
		var ok bool
		if seg.Name != "" {
			if current, ok = Member(current, seg.Name, mode); !ok {
				return nil, false
			}
		}
		for _, idx := range seg.Indexes {
			if current, ok = Index(current, idx); !ok {
				return nil, false
			}
		}
	}
	if isNil(current) {
		return nil, false
	}
	return current, true
}

// Member returns the named member of an object-like value.
func Member(v any, name string, mode Mode) (any, bool) {
	switch obj := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		if val, ok := obj[name]; ok {
			return val, true
		}
		if mode == CaseInsensitive {
			if key, ok := FoldKey(obj, name); ok {
				return obj[key], true
			}
		}
		return nil, false
	case map[string]string:
		if val, ok := obj[name]; ok {
			return val, true
		}
		if mode == CaseInsensitive {
			for _, key := range sortedKeys(obj) {
				if strings.EqualFold(key, name) {
					return obj[key], true
				}
			}
		}
		return nil, false
	}

	rv := indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Struct:
		field := rv.FieldByName(name)
		if !field.IsValid() && mode == CaseInsensitive {
			field = rv.FieldByNameFunc(func(f string) bool { return strings.EqualFold(f, name) })
		}
		if !field.IsValid() || !field.CanInterface() {
			return nil, false
		}
		return field.Interface(), true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !val.IsValid() && mode == CaseInsensitive {
			keys := rv.MapKeys()
			sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
			for _, k := range keys {
				if strings.EqualFold(k.String(), name) {
					val = rv.MapIndex(k)
					break
				}
			}
		}
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true
	}
	return nil, false
}

// Index returns element idx of an array-like value.
func Index(v any, idx int) (any, bool) {
	if arr, ok := v.([]any); ok {
		if idx >= len(arr) {
			return nil, false
		}
		return arr[idx], true
	}
	rv := indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if idx >= rv.Len() {
		return nil, false
	}
	return rv.Index(idx).Interface(), true
}

// Elements returns the elements of an array-like value. A byte slice is not
// treated as an array.
func Elements(v any) ([]any, bool) {
	switch arr := v.(type) {
	case []any:
		return arr, true
	case []byte, string:
		return nil, false
	}
	rv := indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	elems := make([]any, rv.Len())
	for i := range elems {
		elems[i] = rv.Index(i).Interface()
	}
	return elems, true
}

// FoldKey returns the key of obj matching name case-insensitively. An exact
// match wins; otherwise the lexically first folded match is returned so the
// result does not depend on map iteration order.
func FoldKey(obj map[string]any, name string) (string, bool) {
	if _, ok := obj[name]; ok {
		return name, true
	}
	for _, key := range sortedKeys(obj) {
		if strings.EqualFold(key, name) {
			return key, true
		}
	}
	return "", false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// IsEmpty reports whether a resolved value carries no data: nil, an empty or
// whitespace-only string, or an empty collection.
func IsEmpty(v any) bool {
	if isNil(v) {
		return true
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		return IsEmpty(rv.Elem().Interface())
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}
