package extract

import (
	"sort"
	"strconv"
	"strings"
)

// importantFields are resolved explicitly at every object node.
var importantFields = []string{
	"Description", "description",
	"ItemDescription", "itemDescription",
	"ProductName", "productName",
	"ItemName", "itemName",
}

var wrapperKeys = map[string]struct{}{
	"content": {},
	"value":   {},
	"text":    {},
}

// Harvest walks an arbitrary decoded JSON tree depth-first and collects its text.
// Object keys are visited in sorted order so the corpus is deterministic.
func Harvest(node any) []string {
	h := &harvester{seen: map[string]struct{}{}}
	h.walk(node, "")
	return h.texts
}

// HarvestText is Harvest joined with single spaces.
func HarvestText(node any) string {
	return strings.Join(Harvest(node), " ")
}

type harvester struct {
	texts []string
	seen  map[string]struct{}
}

func (h *harvester) walk(node any, path string) {
	switch n := node.(type) {
	case nil:
	case string:
		if n != "" {
			h.texts = append(h.texts, n)
		}
	case []any:
		for i, v := range n {
			h.walk(v, path+"["+strconv.Itoa(i)+"]")
		}
	case []map[string]any:
		for i, v := range n {
			h.walk(v, path+"["+strconv.Itoa(i)+"]")
		}
	case []string:
		for i, v := range n {
			h.walk(v, path+"["+strconv.Itoa(i)+"]")
		}
	case map[string]any:
		h.walkObject(n, path)
	case map[string]string:
		m, _ := asMap(n)
		h.walkObject(m, path)
	}
}

func (h *harvester) walkObject(obj map[string]any, path string) {
	for _, k := range []string{"content", "value", "text"} {
		if s, ok := truthyText(obj[k]); ok {
			h.texts = append(h.texts, s)
		}
	}

	for _, field := range importantFields {
		v, ok := obj[field]
		if !ok {
			continue
		}
		if _, truthy := truthyText(v); !truthy && !isNonEmptyContainer(v) {
			continue
		}
		key := path + "." + field
		if _, done := h.seen[key]; done {
			continue
		}
		h.seen[key] = struct{}{}
		if s, ok := v.(string); ok {
			h.texts = append(h.texts, s)
			continue
		}
		if m, ok := asMap(v); ok {
			if s, ok := truthyText(m["content"]); ok {
				h.texts = append(h.texts, s)
			} else if s, ok := truthyText(m["value"]); ok {
				h.texts = append(h.texts, s)
			}
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, skip := wrapperKeys[k]; skip {
			continue
		}
		if _, done := h.seen[path+"."+k]; done {
			continue
		}
		next := k
		if path != "" {
			next = path + "." + k
		}
		h.walk(obj[k], next)
	}
}

// truthyText renders non-empty strings, nonzero numbers and true as text.
func truthyText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case bool:
		return "true", t
	case nil:
		return "", false
	}
	if _, isMap := asMap(v); isMap {
		return "", false
	}
	f := ParseNumber(v)
	if f == 0 {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

func isNonEmptyContainer(v any) bool {
	switch t := v.(type) {
	case map[string]any:
		return len(t) > 0
	case map[string]string:
		return len(t) > 0
	case []any:
		return len(t) > 0
	}
	return false
}
