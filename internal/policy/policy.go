// Package policy decides whether a request needs a session credential. The
// policy is static declarative data loaded once at startup; classification is
// a pure lookup.
package policy

import (
	"net/http"
	"sort"
	"strings"
)

// TrustLevel is the classifier's verdict for a (path, method) pair.
type TrustLevel int

const (
	// Public requests never need a credential.
	Public TrustLevel = iota
	// ReadOnlyPublic requests skip the credential check for GET only.
	ReadOnlyPublic
	// Protected requests always need a valid credential.
	Protected
)

func (l TrustLevel) String() string {
	switch l {
	case Public:
		return "public"
	case ReadOnlyPublic:
		return "read-only-public"
	default:
		return "protected"
	}
}

// Rule maps a path prefix to a trust level. An empty Methods list applies the
// rule to every method.
type Rule struct {
	Prefix  string
	Methods []string
	Level   TrustLevel
}

// Classifier evaluates rules most specific prefix first.
type Classifier struct {
	rules []Rule
}

// NewClassifier sorts the rule table by prefix specificity. The table is fixed
// for the life of the process.
func NewClassifier(rules []Rule) *Classifier {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := segments(sorted[i].Prefix), segments(sorted[j].Prefix)
		if si != sj {
			return si > sj
		}
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &Classifier{rules: sorted}
}

// Classify returns the trust level for the request. The first matching rule
// wins; a ReadOnlyPublic rule only matches GET, other methods fall through to
// less specific rules. Unmatched paths are Protected: the default is deny.
func (c *Classifier) Classify(path, method string) TrustLevel {
	method = strings.ToUpper(method)
	for _, r := range c.rules {
		if !prefixMatch(r.Prefix, path) {
			continue
		}
		if len(r.Methods) > 0 && !containsMethod(r.Methods, method) {
			continue
		}
		if r.Level == ReadOnlyPublic && method != http.MethodGet {
			continue
		}
		return r.Level
	}
	return Protected
}

// DefaultRules is the gateway's route policy table.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "/healthz", Level: Public},
		{Prefix: "/api/auth", Level: Public},
		{Prefix: "/api/cities", Level: ReadOnlyPublic},
		{Prefix: "/api/listings", Level: ReadOnlyPublic},
		{Prefix: "/api/user", Level: Protected},
		{Prefix: "/my-account", Level: Protected},
	}
}

// prefixMatch matches whole path segments, so "/api/user" matches
// "/api/user/watchlist/123" but not "/api/users".
func prefixMatch(prefix, path string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	rest := path[len(prefix):]
	return rest == "" || rest[0] == '/'
}

func containsMethod(methods []string, method string) bool {
	for _, m := range methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

func segments(prefix string) int {
	return len(strings.Split(strings.Trim(prefix, "/"), "/"))
}
