package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTags_Basic(t *testing.T) {
	got := Tags("Some text #beta and #alpha again #beta.")
	want := []string{"beta", "alpha", "beta."}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestTags_HeadersAreNotTags(t *testing.T) {
	input := "## Heading\n##Heading\n### Sub\n#a#b\n# Title\n#real"
	got := Tags(input)
	if diff := cmp.Diff([]string{"real"}, got); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestTags_DateTag(t *testing.T) {
	got := Tags("due #2024-05-01 #to-do")
	if len(got) != 2 || got[0] != "2024-05-01" || got[1] != "to-do" {
		t.Fatalf("tags = %v", got)
	}
	if !IsDateTag(got[0]) {
		t.Errorf("%q should be a date tag", got[0])
	}
	if IsDateTag(got[1]) {
		t.Errorf("%q should not be a date tag", got[1])
	}
}

func TestIsDateTag_RequiresFullMatch(t *testing.T) {
	for _, tag := range []string{"2024-05-01,", "x2024-05-01", "2024-5-1", ""} {
		if IsDateTag(tag) {
			t.Errorf("IsDateTag(%q) = true, want false", tag)
		}
	}
}

func TestHasDate(t *testing.T) {
	for _, tag := range []string{"2024-05-01", "due-2024-05-01", "2024-05-01-review"} {
		if !HasDate(tag) {
			t.Errorf("HasDate(%q) = false, want true", tag)
		}
	}
	for _, tag := range []string{"2024-5-1", "q2-2024", "project"} {
		if HasDate(tag) {
			t.Errorf("HasDate(%q) = true, want false", tag)
		}
	}
}

func TestTags_Empty(t *testing.T) {
	if got := Tags("no tags here # nothing"); len(got) != 0 {
		t.Errorf("expected no tags, got %v", got)
	}
}

func TestIsText(t *testing.T) {
	if !IsText([]byte("# hello\n#tag")) {
		t.Error("plain markdown should be text")
	}
	if IsText([]byte{'a', 0, 'b'}) {
		t.Error("NUL byte should mark binary content")
	}
	if IsText([]byte{0xff, 0xfe, 0xfd}) {
		t.Error("invalid UTF-8 should not be text")
	}
}
