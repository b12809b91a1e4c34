package extract

import (
	"strings"
)

// Resolver reads one logical value out of untyped vendor JSON by trying an
// ordered list of candidate paths. A path is a dotted key sequence
// ("customFields.InvoiceTotal"). When a path lands on a typed-field wrapper
// ({"content": ..., "value": ...}) the wrapper is unwrapped.
type Resolver struct {
	paths []string
}

// Paths builds a Resolver over the given candidates, tried in order.
func Paths(paths ...string) Resolver {
	return Resolver{paths: paths}
}

// String returns the first non-blank string hit, trimmed.
func (r Resolver) String(node any) string {
	for _, p := range r.paths {
		v, ok := Lookup(node, p)
		if !ok {
			continue
		}
		if s := asString(v, "content", "value"); s != "" {
			return s
		}
	}
	return ""
}

// Number returns the first hit that parses to a positive number, or 0.
func (r Resolver) Number(node any) float64 {
	for _, p := range r.paths {
		v, ok := Lookup(node, p)
		if !ok {
			continue
		}
		if n := asNumber(v, "value", "content"); n > 0 {
			return n
		}
	}
	return 0
}

// Lookup walks a dotted path through nested maps.
func Lookup(node any, path string) (any, bool) {
	cur := node
	for _, key := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	}
	return nil, false
}

// asString accepts a string or a wrapper whose first listed key holds a non-blank string.
func asString(v any, wrapperKeys ...string) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	m, ok := asMap(v)
	if !ok {
		return ""
	}
	for _, k := range wrapperKeys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func asNumber(v any, wrapperKeys ...string) float64 {
	if m, ok := asMap(v); ok {
		for _, k := range wrapperKeys {
			if n := ParseNumber(m[k]); n > 0 {
				return n
			}
		}
		return 0
	}
	return ParseNumber(v)
}
