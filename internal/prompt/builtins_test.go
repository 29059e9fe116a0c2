package prompt

import (
	"strings"
	"testing"
)

func TestBuiltinsShape(t *testing.T) {
	seen := map[string]bool{}
	for _, tpl := range Builtins() {
		if seen[tpl.ID] {
			t.Fatalf("duplicate id %s", tpl.ID)
		}
		seen[tpl.ID] = true
		if !strings.HasPrefix(tpl.PromptTemplate, "## 1.") {
			t.Fatalf("%s: body must start with a section-1 heading", tpl.ID)
		}
		if !strings.Contains(tpl.PromptTemplate, ImagePhrase) {
			t.Fatalf("%s: body lacks the image phrase", tpl.ID)
		}
		if tpl.IsCustom || tpl.CreatedAt.IsZero() {
			t.Fatalf("%s: unexpected metadata %+v", tpl.ID, tpl)
		}
		if _, ok := Simplified(tpl.ID); !ok {
			t.Fatalf("%s: no simplified entry", tpl.ID)
		}
		for _, v := range tpl.Variables {
			if !strings.Contains(tpl.PromptTemplate, "{{"+v.Key+"}}") {
				t.Fatalf("%s: variable %s unused", tpl.ID, v.Key)
			}
		}
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 built-ins, got %d", len(seen))
	}
}

func TestBuiltinsReturnsCopies(t *testing.T) {
	a := Builtins()
	a[1].Variables[0].DefaultValue = "changed"
	if b := Builtins(); b[1].Variables[0].DefaultValue == "changed" {
		t.Fatalf("Builtins leaked shared state")
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, ok := Lookup("nope"); ok {
		t.Fatalf("expected miss")
	}
}
