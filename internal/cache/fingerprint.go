package cache

import (
	"net/url"
	"sort"
	"strings"

	"github.com/ppiankov/newsintel/internal/transport"
)

// Param is one canonicalised fingerprint parameter
type Param struct {
	Name  string
	Value string
}

// Fingerprint is the deterministic identity of a read request
type Fingerprint struct {
	Endpoint string  // route template, e.g. /api/keywords/{id}
	Params   []Param // sorted by name
}

// NewFingerprint builds a fingerprint from an endpoint template and parameter sets.
// Later sets override earlier ones; nil values are dropped.
func NewFingerprint(endpoint string, sets ...map[string]any) Fingerprint {
	merged := make(map[string]string)
	for _, set := range sets {
		for name, v := range set {
			if s, ok := transport.FormatParam(v); ok {
				merged[name] = s
			} else {
				delete(merged, name)
			}
		}
	}

	params := make([]Param, 0, len(merged))
	for name, value := range merged {
		params = append(params, Param{Name: name, Value: value})
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })

	return Fingerprint{Endpoint: endpoint, Params: params}
}

// Key returns the canonical string form used as map and store key
func (f Fingerprint) Key() string {
	if len(f.Params) == 0 {
		return f.Endpoint
	}

	var b strings.Builder
	b.WriteString(f.Endpoint)
	for i, p := range f.Params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

func (f Fingerprint) String() string {
	return f.Key()
}

// Equal reports value equality of endpoint and all parameters
func (f Fingerprint) Equal(other Fingerprint) bool {
	if f.Endpoint != other.Endpoint || len(f.Params) != len(other.Params) {
		return false
	}
	for i := range f.Params {
		if f.Params[i] != other.Params[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether the fingerprint is unset
func (f Fingerprint) IsZero() bool {
	return f.Endpoint == "" && len(f.Params) == 0
}

// Param returns the value of a parameter
func (f Fingerprint) Param(name string) (string, bool) {
	for _, p := range f.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Matcher selects fingerprints for invalidation
type Matcher func(Fingerprint) bool

// MatchEndpoint matches every fingerprint of the given endpoints, regardless of parameters
func MatchEndpoint(endpoints ...string) Matcher {
	return func(f Fingerprint) bool {
		for _, e := range endpoints {
			if f.Endpoint == e {
				return true
			}
		}
		return false
	}
}

// MatchPrefix matches endpoints starting with prefix
func MatchPrefix(prefix string) Matcher {
	return func(f Fingerprint) bool {
		return strings.HasPrefix(f.Endpoint, prefix)
	}
}

// MatchExact matches one fingerprint
func MatchExact(fp Fingerprint) Matcher {
	return func(f Fingerprint) bool {
		return f.Equal(fp)
	}
}

// MatchParam matches an endpoint whose parameter name has the given value
func MatchParam(endpoint, name, value string) Matcher {
	return func(f Fingerprint) bool {
		if f.Endpoint != endpoint {
			return false
		}
		v, ok := f.Param(name)
		return ok && v == value
	}
}

// MatchAny matches when any of the matchers does
func MatchAny(matchers ...Matcher) Matcher {
	return func(f Fingerprint) bool {
		for _, m := range matchers {
			if m != nil && m(f) {
				return true
			}
		}
		return false
	}
}
