package oauth

import "strings"

// ScopeSatisfied reports whether granted (a space-delimited scope claim)
// covers required, honoring the rule that the parent scope "mcp" grants all
// "mcp:*" sub-scopes (spec §4.6 "Scope enforcement", §9 "Scope parent").
func ScopeSatisfied(granted, required string) bool {
	grantedSet := make(map[string]bool)
	for _, s := range strings.Fields(granted) {
		grantedSet[s] = true
	}
	if grantedSet["mcp"] {
		return true
	}
	for _, req := range strings.Fields(required) {
		if !grantedSet[req] {
			return false
		}
	}
	return true
}
