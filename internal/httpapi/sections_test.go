package httpapi

import (
	"strings"
	"testing"
)

const sampleBody = `Some intro text.

## First Section

Body of the first section.

### Nested Subsection

Nested body text.

## Second Section

Body of the second section.
`

func TestExtractSections(t *testing.T) {
	sections := ExtractSections(sampleBody)
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d: %+v", len(sections), sections)
	}
	if sections[0].Title != "First Section" || sections[0].Level != 2 {
		t.Fatalf("unexpected first section: %+v", sections[0])
	}
	if sections[1].Title != "Nested Subsection" || sections[1].Level != 3 {
		t.Fatalf("unexpected nested section: %+v", sections[1])
	}
	if sections[2].Title != "Second Section" || sections[2].Level != 2 {
		t.Fatalf("unexpected second section: %+v", sections[2])
	}
}

func TestSectionBodyExcludesSubsectionsByDefault(t *testing.T) {
	body, ok := SectionBody(sampleBody, "First Section", false)
	if !ok {
		t.Fatal("expected to find First Section")
	}
	if !strings.Contains(body,"Body of the first section.") {
		t.Fatalf("missing own body: %q", body)
	}
	if strings.Contains(body,"Nested body text.") {
		t.Fatalf("expected subsection body to be excluded, got %q", body)
	}
}

func TestSectionBodyIncludesSubsectionsWhenRequested(t *testing.T) {
	body, ok := SectionBody(sampleBody, "First Section", true)
	if !ok {
		t.Fatal("expected to find First Section")
	}
	if !strings.Contains(body,"Nested body text.") {
		t.Fatalf("expected subsection body to be included, got %q", body)
	}
	if strings.Contains(body,"Body of the second section.") {
		t.Fatalf("expected sibling section body to be excluded, got %q", body)
	}
}

func TestSectionBodyCaseInsensitiveFirstMatch(t *testing.T) {
	_, ok := SectionBody(sampleBody, "FIRST section", false)
	if !ok {
		t.Fatal("expected case-insensitive title match to succeed")
	}
}

func TestSectionBodyMissingTitle(t *testing.T) {
	if _, ok := SectionBody(sampleBody, "Nonexistent", false); ok {
		t.Fatal("expected missing title to fail")
	}
}
