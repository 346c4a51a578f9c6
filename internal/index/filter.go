package index

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/starford/tagtracker/internal/models"
	"github.com/starford/tagtracker/internal/parser"
)

// Matcher accepts or rejects a tag.
type Matcher func(tag string) bool

// DocPredicate accepts or rejects a document listed under tag.
type DocPredicate func(tag string, ref models.DocRef) bool

// NewMatcher parses a filter expression. A value wrapped in slashes
// ("/^proj-/") is a regular expression matched against each tag; anything
// else is a comma or space separated list of tags. An empty expression
// yields a nil Matcher, meaning "no filter".
func NewMatcher(expr string) (Matcher, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	if len(expr) >= 2 && strings.HasPrefix(expr, "/") && strings.HasSuffix(expr, "/") {
		re, err := regexp.Compile(expr[1 : len(expr)-1])
		if err != nil {
			return nil, fmt.Errorf("index: filter pattern %q: %w", expr, err)
		}
		return re.MatchString, nil
	}
	tags := strings.FieldsFunc(expr, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	return AllowList(tags...), nil
}

// AllowList returns a Matcher accepting exactly the given tags. A leading
// '#' on an entry is ignored. No tags yields a nil Matcher.
func AllowList(tags ...string) Matcher {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t != "" {
			set[t] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return func(tag string) bool {
		_, ok := set[tag]
		return ok
	}
}

// AnyOf returns a Matcher accepting a tag when any of ms accepts it. Nil
// matchers are ignored; when none remain the result is nil.
func AnyOf(ms ...Matcher) Matcher {
	var live []Matcher
	for _, m := range ms {
		if m != nil {
			live = append(live, m)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return func(tag string) bool {
		for _, m := range live {
			if m(tag) {
				return true
			}
		}
		return false
	}
}

// Filter returns a new index holding only the tags accepted by keep. When
// keepDoc is non-nil, documents it rejects are dropped from their tag; tags
// left without documents are omitted. The receiver is never modified.
func (x *Index) Filter(keep Matcher, keepDoc DocPredicate) *Index {
	out := New()
	for _, tag := range x.tags {
		if keep != nil && !keep(tag) {
			continue
		}
		for _, ref := range x.byTag[tag] {
			if keepDoc != nil && !keepDoc(tag, ref) {
				continue
			}
			out.Add(tag, ref)
		}
	}
	return out
}

// Restrict applies a content filter the way reports do. A tag survives when
// match accepts it or when it is a date tag, so calendars stay populated. A
// date tag that match does not accept keeps only the documents that also
// carry a tag match accepts. A nil match returns the receiver unchanged.
func (x *Index) Restrict(match Matcher) *Index {
	if match == nil {
		return x
	}
	return x.Filter(
		func(tag string) bool {
			return match(tag) || parser.IsDateTag(tag)
		},
		func(tag string, ref models.DocRef) bool {
			if match(tag) {
				return true
			}
			return x.hasTag(ref, match)
		},
	)
}

// RestrictTo is Restrict with an allow-list of tags.
func (x *Index) RestrictTo(tags ...string) *Index {
	return x.Restrict(AllowList(tags...))
}
