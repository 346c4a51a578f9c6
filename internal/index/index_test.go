package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/tagtracker/internal/models"
	"github.com/starford/tagtracker/internal/testutil"
)

func ref(name string) models.DocRef {
	return models.NewDocRef(name + ".md")
}

func labels(refs []models.DocRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Label
	}
	return out
}

// snapshot flattens an index into tag → labels for comparison.
func snapshot(x *Index) map[string][]string {
	out := make(map[string][]string)
	for _, t := range x.Tags() {
		out[t] = labels(x.Docs(t))
	}
	return out
}

// assertConsistent checks that byTag and byDoc describe the same relation.
func assertConsistent(t *testing.T, x *Index) {
	t.Helper()
	for _, tag := range x.Tags() {
		for _, r := range x.Docs(tag) {
			if _, ok := x.byDoc[r][tag]; !ok {
				t.Errorf("%v listed under %q but byDoc lacks the tag", r, tag)
			}
		}
	}
	for r, set := range x.byDoc {
		for tag := range set {
			found := false
			for _, d := range x.byTag[tag] {
				if d == r {
					found = true
				}
			}
			if !found {
				t.Errorf("byDoc[%v] has %q but byTag does not list it", r, tag)
			}
		}
	}
}

func TestAdd_DedupesPerDocument(t *testing.T) {
	x := New()
	x.Add("todo", ref("a"))
	x.Add("todo", ref("b"))
	x.Add("todo", ref("a"))
	x.Add("", ref("a"))

	if diff := cmp.Diff([]string{"a", "b"}, labels(x.Docs("todo"))); diff != "" {
		t.Errorf("docs mismatch (-want +got):\n%s", diff)
	}
	if x.Len() != 1 {
		t.Errorf("Len = %d, want 1", x.Len())
	}
	assertConsistent(t, x)
}

func TestTagsOf(t *testing.T) {
	x := New()
	x.Add("b", ref("doc"))
	x.Add("a", ref("doc"))
	if diff := cmp.Diff([]string{"a", "b"}, x.TagsOf(ref("doc"))); diff != "" {
		t.Errorf("TagsOf mismatch (-want +got):\n%s", diff)
	}
	if got := x.TagsOf(ref("other")); len(got) != 0 {
		t.Errorf("unknown doc should have no tags, got %v", got)
	}
}

func TestDocsReturnsCopy(t *testing.T) {
	x := New()
	x.Add("t", ref("a"))
	docs := x.Docs("t")
	docs[0] = ref("mutated")
	if x.Docs("t")[0] != ref("a") {
		t.Error("Docs must not expose internal storage")
	}
}

func TestDateTags_Sorted(t *testing.T) {
	x := New()
	x.Add("2024-05-02", ref("a"))
	x.Add("urgent", ref("a"))
	x.Add("2024-05-01", ref("b"))
	if diff := cmp.Diff([]string{"2024-05-01", "2024-05-02"}, x.DateTags()); diff != "" {
		t.Errorf("DateTags mismatch (-want +got):\n%s", diff)
	}
}

func TestDocuments_FirstSeenOrder(t *testing.T) {
	x := New()
	x.Add("a", ref("one"))
	x.Add("b", ref("two"))
	x.Add("b", ref("one"))
	if diff := cmp.Diff([]string{"one", "two"}, labels(x.Documents())); diff != "" {
		t.Errorf("Documents mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_IndexesTree(t *testing.T) {
	_, store := testutil.TestVault(t, map[string]string{
		"a.md":             "#todo #urgent\n## Heading\n",
		"notes/b note.md":  "#todo and #2024-05-01 twice #todo",
		"notes/ignore.txt": "#todo",
		".git/c.md":        "#todo",
		"d.md":             "##only-headers\n### here",
	})

	x, err := Build(store, testutil.Logger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := map[string][]string{
		"todo":       {"a", "b note"},
		"urgent":     {"a"},
		"2024-05-01": {"b note"},
	}
	if diff := cmp.Diff(want, snapshot(x)); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}
	if got := x.Docs("2024-05-01")[0].URL; got != "notes/b%20note.md" {
		t.Errorf("url = %q", got)
	}
	assertConsistent(t, x)
}

func TestBuild_HeaderMarkupNeverIndexed(t *testing.T) {
	_, store := testutil.TestVault(t, map[string]string{
		"h.md": "##anything\n###deep\n#real",
	})
	x, err := Build(store, testutil.Logger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff([]string{"real"}, x.Tags()); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_SkipsBinaryFiles(t *testing.T) {
	root, store := testutil.TestVault(t, map[string]string{
		"ok.md": "#ok",
	})
	if err := os.WriteFile(filepath.Join(root, "bin.md"), []byte{'#', 'x', 0, 1}, 0o644); err != nil {
		t.Fatal(err)
	}
	x, err := Build(store, testutil.Logger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff([]string{"ok"}, x.Tags()); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_SymlinkCycleIndexesOnce(t *testing.T) {
	root, store := testutil.TestVault(t, map[string]string{
		"top.md":     "#t",
		"sub/low.md": "#t",
	})
	if err := os.Symlink(root, filepath.Join(root, "sub", "back")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	x, err := Build(store, testutil.Logger())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff([]string{"top", "low"}, labels(x.Docs("t"))); diff != "" {
		t.Errorf("docs mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	_, store := testutil.TestVault(t, map[string]string{
		"z.md":   "#x",
		"a.md":   "#x",
		"m/b.md": "#x",
	})
	first, _ := Build(store, testutil.Logger())
	second, _ := Build(store, testutil.Logger())
	if diff := cmp.Diff(snapshot(first), snapshot(second)); diff != "" {
		t.Errorf("builds differ:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "z", "b"}, labels(first.Docs("x"))); diff != "" {
		t.Errorf("discovery order mismatch (-want +got):\n%s", diff)
	}
}
