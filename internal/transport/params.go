package transport

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Params holds path or query parameters; nil values are omitted
type Params map[string]any

// FormatParam canonicalises a parameter value.
// The boolean result is false when the value must be omitted.
func FormatParam(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case *string:
		if val == nil {
			return "", false
		}
		return *val, true
	case bool:
		return strconv.FormatBool(val), true
	case *bool:
		if val == nil {
			return "", false
		}
		return strconv.FormatBool(*val), true
	case int:
		return strconv.Itoa(val), true
	case *int:
		if val == nil {
			return "", false
		}
		return strconv.Itoa(*val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case *int64:
		if val == nil {
			return "", false
		}
		return strconv.FormatInt(*val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case *float64:
		if val == nil {
			return "", false
		}
		return strconv.FormatFloat(*val, 'f', -1, 64), true
	case []int64:
		parts := make([]string, len(val))
		for i, n := range val {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return strings.Join(parts, ","), true
	case []int:
		parts := make([]string, len(val))
		for i, n := range val {
			parts[i] = strconv.Itoa(n)
		}
		return strings.Join(parts, ","), true
	case []string:
		return strings.Join(val, ","), true
	case fmt.Stringer:
		return val.String(), true
	default:
		return fmt.Sprint(val), true
	}
}

// Values converts params into url.Values, dropping omitted values
func (p Params) Values() url.Values {
	values := url.Values{}
	for key, v := range p {
		if s, ok := FormatParam(v); ok {
			values.Set(key, s)
		}
	}
	return values
}

// Encode serialises params with keys in sorted order
func (p Params) Encode() string {
	// url.Values.Encode sorts by key
	return p.Values().Encode()
}

// Keys returns the names of the non-omitted params, sorted
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for key, v := range p {
		if _, ok := FormatParam(v); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// ExpandPath binds {name} placeholders of a path template
func ExpandPath(template string, params Params) (string, error) {
	var b strings.Builder
	rest := template
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			return "", fmt.Errorf("unterminated placeholder in %q", template)
		}
		end += start

		name := rest[start+1 : end]
		value, ok := FormatParam(params[name])
		if !ok || value == "" {
			return "", fmt.Errorf("missing path parameter %q for %q", name, template)
		}

		b.WriteString(rest[:start])
		b.WriteString(url.PathEscape(value))
		rest = rest[end+1:]
	}
	return b.String(), nil
}
