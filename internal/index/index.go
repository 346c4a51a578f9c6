// Package index provides the in-memory tag index built from a search root.
package index

import (
	"slices"

	"github.com/starford/tagtracker/internal/models"
	"github.com/starford/tagtracker/internal/parser"
)

// Reader is the read-only view of a tag index consumed by renderers.
type Reader interface {
	Tags() []string
	Docs(tag string) []models.DocRef
	TagsOf(ref models.DocRef) []string
	Len() int
}

// Verify *Index satisfies Reader at compile time.
var _ Reader = (*Index)(nil)

// Index relates tags to documents in both directions.
//
// byTag and byDoc always agree: a tag is in byDoc[ref] exactly when ref is
// listed under byTag[tag]. Tags keep first-seen order and documents keep
// discovery order. An Index is only mutated through Add while it is built.
type Index struct {
	tags  []string
	byTag map[string][]models.DocRef
	byDoc map[models.DocRef]map[string]struct{}
}

// New returns an empty index.
func New() *Index {
	return &Index{
		byTag: make(map[string][]models.DocRef),
		byDoc: make(map[models.DocRef]map[string]struct{}),
	}
}

// Add records that ref carries tag. Repeated pairs are ignored, so a document
// is listed once per tag at the position of its first occurrence.
func (x *Index) Add(tag string, ref models.DocRef) {
	if tag == "" {
		return
	}
	set, ok := x.byDoc[ref]
	if !ok {
		set = make(map[string]struct{})
		x.byDoc[ref] = set
	}
	if _, dup := set[tag]; dup {
		return
	}
	set[tag] = struct{}{}

	if _, seen := x.byTag[tag]; !seen {
		x.tags = append(x.tags, tag)
	}
	x.byTag[tag] = append(x.byTag[tag], ref)
}

// Tags returns every tag in first-seen order.
func (x *Index) Tags() []string {
	return slices.Clone(x.tags)
}

// Docs returns the documents carrying tag in discovery order.
func (x *Index) Docs(tag string) []models.DocRef {
	return slices.Clone(x.byTag[tag])
}

// Count returns how many documents carry tag.
func (x *Index) Count(tag string) int {
	return len(x.byTag[tag])
}

// TagsOf returns the tags carried by ref, sorted.
func (x *Index) TagsOf(ref models.DocRef) []string {
	set := x.byDoc[ref]
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Documents returns every indexed document reference, in the order its first
// tag was recorded.
func (x *Index) Documents() []models.DocRef {
	seen := make(map[models.DocRef]struct{}, len(x.byDoc))
	var out []models.DocRef
	for _, t := range x.tags {
		for _, ref := range x.byTag[t] {
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			out = append(out, ref)
		}
	}
	return out
}

// Len returns the number of distinct tags.
func (x *Index) Len() int {
	return len(x.tags)
}

// DateTags returns the date tags present in the index, oldest first.
func (x *Index) DateTags() []string {
	var out []string
	for _, t := range x.tags {
		if parser.IsDateTag(t) {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}

// hasTag reports whether ref carries at least one tag accepted by match.
func (x *Index) hasTag(ref models.DocRef, match Matcher) bool {
	for t := range x.byDoc[ref] {
		if match(t) {
			return true
		}
	}
	return false
}
