package models

import "testing"

func TestNewDocRef_EscapesSpaces(t *testing.T) {
	r := NewDocRef("projects/my note.md")
	if r.Label != "my note" {
		t.Errorf("label = %q, want %q", r.Label, "my note")
	}
	if r.URL != "projects/my%20note.md" {
		t.Errorf("url = %q, want %q", r.URL, "projects/my%20note.md")
	}
	if got := r.String(); got != "[my note](projects/my%20note.md)" {
		t.Errorf("String() = %q", got)
	}
}

func TestNewDocRef_NonMarkdownKeepsExtension(t *testing.T) {
	r := NewDocRef("assets/diagram.png")
	if r.Label != "diagram.png" {
		t.Errorf("label = %q, want %q", r.Label, "diagram.png")
	}
}
