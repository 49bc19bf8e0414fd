// Package interpolate substitutes {{dot.path}} variable references in node
// configuration against an execution scope.
//
// Substitution is a typed walk over the configuration tree rather than a
// stringify/regex/re-parse round trip: a string leaf that is exactly one
// token takes the resolved value with its original type; tokens embedded in
// larger strings are stringified in place. Unresolvable paths leave the
// literal {{...}} token untouched, and interpolation never fails a node.
package interpolate

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	tokenPattern     = regexp.MustCompile(`\{\{([^}]+)\}\}`)
	soleTokenPattern = regexp.MustCompile(`^\{\{([^}]+)\}\}$`)
)

// Resolve walks a dot-separated path against a scope object. Only plain
// string map keys are traversed; there is no bracket or array-index syntax
// (array access must be pre-flattened into the scope).
func Resolve(path string, scope map[string]any) (any, bool) {
	var current any = scope

	for _, key := range strings.Split(strings.TrimSpace(path), ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// Interpolate returns a deep copy of data with every {{path}} token
// substituted from scope. data itself is never mutated.
func Interpolate(data map[string]any, scope map[string]any) map[string]any {
	if data == nil {
		return nil
	}

	result, _ := interpolateValue(data, scope).(map[string]any)

	return result
}

func interpolateValue(value any, scope map[string]any) any {
	switch v := value.(type) {
	case string:
		return interpolateString(v, scope)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = interpolateValue(child, scope)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = interpolateValue(child, scope)
		}

		return out
	default:
		return value
	}
}

func interpolateString(s string, scope map[string]any) any {
	// A field whose entire content is one token keeps the resolved value's
	// type (numbers stay numbers, objects stay objects).
	if match := soleTokenPattern.FindStringSubmatch(s); match != nil {
		if resolved, ok := Resolve(match[1], scope); ok {
			return resolved
		}

		return s
	}

	return tokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		path := token[2 : len(token)-2]

		resolved, ok := Resolve(path, scope)
		if !ok {
			return token
		}

		return stringify(resolved)
	})
}

// stringify renders a resolved value for embedding inside a larger string:
// strings verbatim, everything else via its JSON encoding.
func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return ""
	}

	return string(encoded)
}
