package bridge

import "codeberg.org/mutker/trapbridge/internal/value"

// Args are the named arguments of one call, as decoded by an Adapter.
type Args map[string]any

// String returns the string at key. Non-string values are reported missing.
func (a Args) String(key string) (string, bool) {
	s, ok := a[key].(string)
	return s, ok
}

// Value converts the entry at key. A nil entry counts as missing.
func (a Args) Value(key string) (value.Value, bool) {
	raw, ok := a[key]
	if !ok || raw == nil {
		return value.Value{}, false
	}
	return value.From(raw), true
}

// Object returns the mapping at key.
func (a Args) Object(key string) (map[string]any, bool) {
	switch m := a[key].(type) {
	case map[string]any:
		return m, true
	case Args:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = v
		}
		return out, true
	default:
		return nil, false
	}
}

// RequireString is String with the empty string treated as missing.
func (a Args) RequireString(key string) (string, error) {
	s, ok := a.String(key)
	if !ok || s == "" {
		return "", missingProperty(key)
	}
	return s, nil
}

func (a Args) RequireValue(key string) (value.Value, error) {
	v, ok := a.Value(key)
	if !ok {
		return value.Value{}, missingProperty(key)
	}
	return v, nil
}

func (a Args) RequireObject(key string) (map[string]any, error) {
	m, ok := a.Object(key)
	if !ok {
		return nil, missingProperty(key)
	}
	return m, nil
}
