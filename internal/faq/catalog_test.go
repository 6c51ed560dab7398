package faq

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_LoadsAllTopicsInOrder(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if c.Len() != 15 {
		t.Fatalf("Len = %d, want 15", c.Len())
	}

	entries := c.Entries()
	if entries[0].Question != "What are your hours of operation?" {
		t.Errorf("first entry = %q", entries[0].Question)
	}
	if entries[14].Question != "What if I need a tire size I'm not sure about?" {
		t.Errorf("last entry = %q", entries[14].Question)
	}
	for _, e := range entries {
		if strings.Contains(e.Answer, "\n") {
			t.Errorf("answer for %q contains a newline", e.Question)
		}
	}
}

func TestEntries_ReturnsCopy(t *testing.T) {
	c := MustDefault()
	a := c.Entries()
	a[0].Answer = "changed"
	a[0].Keywords[0] = "changed"

	b := c.Entries()
	if b[0].Answer == "changed" || b[0].Keywords[0] == "changed" {
		t.Error("mutating Entries result leaked into the catalog")
	}
}

func TestNew_NormalizesKeywords(t *testing.T) {
	c, err := New([]Entry{{Question: "q", Answer: " a ", Keywords: []string{"  Brake ", "", "ROTOR"}}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e := c.Entries()[0]
	if e.Answer != "a" {
		t.Errorf("Answer = %q, want %q", e.Answer, "a")
	}
	if len(e.Keywords) != 2 || e.Keywords[0] != "brake" || e.Keywords[1] != "rotor" {
		t.Errorf("Keywords = %v, want [brake rotor]", e.Keywords)
	}
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		wantErr string
	}{
		{"empty", nil, "no entries"},
		{"blank answer", []Entry{{Question: "q", Answer: "  ", Keywords: []string{"k"}}}, "answer is empty"},
		{"no keywords", []Entry{{Question: "q", Answer: "a", Keywords: []string{" "}}}, "no keywords"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entries)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `entries:
  - question: "Do you rotate tires?"
    answer: "Yes, with every oil change."
    keywords: [rotate, rotation]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	e, ok := c.Match("tire rotation please", DefaultThreshold)
	if !ok || e.Answer != "Yes, with every oil change." {
		t.Errorf("Match = %+v, %v", e, ok)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("entries: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
