package builtin

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tagtracker/internal/parser"
	"github.com/starford/tagtracker/internal/view"
)

// TagSummaryOptions configures the tag summary.
type TagSummaryOptions struct {
	// Limit caps the number of tags listed (0 means all).
	Limit int `yaml:"limit" json:"limit"`
}

// Validate validates the options.
func (o *TagSummaryOptions) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.Limit, validation.Min(0)),
	)
}

// TagCount is a tag paired with the number of documents carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// String renders the pair as "tag (n)".
func (tc TagCount) String() string {
	return fmt.Sprintf("%s (%d)", tc.Tag, tc.Count)
}

// Counts returns the tags of x that carry no date ordered by document count descending,
// ties broken lexicographically.
func Counts(x interface {
	Tags() []string
	Count(tag string) int
}) []TagCount {
	var out []TagCount
	for _, tag := range x.Tags() {
		if parser.HasDate(tag) {
			continue
		}
		out = append(out, TagCount{Tag: tag, Count: x.Count(tag)})
	}
	slices.SortFunc(out, func(a, b TagCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Tag, b.Tag)
	})
	return out
}

func tagSummaryView() view.View {
	return view.View{
		Name:       TagSummaryName,
		Render:     renderTagSummary,
		NewOptions: func() view.Options { return &TagSummaryOptions{} },
	}
}

func renderTagSummary(c *view.Context) (string, error) {
	counts := Counts(c.Index)
	if opts, _ := c.Options.(*TagSummaryOptions); opts != nil && opts.Limit > 0 && len(counts) > opts.Limit {
		counts = counts[:opts.Limit]
	}
	if len(counts) == 0 {
		return "", nil
	}

	parts := make([]string, len(counts))
	for i, tc := range counts {
		parts[i] = tc.String()
	}
	return "\n\n\n----\n*" + strings.Join(parts, ", ") + "*\n\n", nil
}
