package oauth

import "testing"

func TestScopeSatisfiedParentGrantsSubScopes(t *testing.T) {
	if !ScopeSatisfied("mcp", "mcp:read") {
		t.Fatal("expected parent scope mcp to satisfy mcp:read")
	}
	if !ScopeSatisfied("mcp", "mcp:write") {
		t.Fatal("expected parent scope mcp to satisfy mcp:write")
	}
}

func TestScopeSatisfiedExactMatch(t *testing.T) {
	if !ScopeSatisfied("mcp:read", "mcp:read") {
		t.Fatal("expected exact scope match to satisfy")
	}
}

func TestScopeSatisfiedInsufficientScope(t *testing.T) {
	if ScopeSatisfied("mcp:read", "mcp:write") {
		t.Fatal("expected mcp:read to not satisfy mcp:write")
	}
}

func TestScopeSatisfiedMultipleRequired(t *testing.T) {
	if !ScopeSatisfied("mcp:read mcp:write", "mcp:read mcp:write") {
		t.Fatal("expected both granted scopes to satisfy both required scopes")
	}
	if ScopeSatisfied("mcp:read", "mcp:read mcp:write") {
		t.Fatal("expected missing mcp:write to fail")
	}
}

func TestScopeSatisfiedEmptyRequired(t *testing.T) {
	if !ScopeSatisfied("mcp:read", "") {
		t.Fatal("expected empty required scope to always be satisfied")
	}
}
