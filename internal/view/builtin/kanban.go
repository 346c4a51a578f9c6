package builtin

import (
	"strings"
	"unicode"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tagtracker/internal/view"
)

// DefaultPhases are the board columns used when none are configured.
var DefaultPhases = []string{"to-do", "in-progress", "finished"}

// KanbanOptions configures the kanban board.
type KanbanOptions struct {
	Phases []string `yaml:"phases" json:"phases"`
	// LegacyPhases is the older spelling of Phases.
	LegacyPhases []string `yaml:"options" json:"options"`
	// MaxShown caps the references listed per phase (0 means
	// settings.maxFilesShown).
	MaxShown int `yaml:"max_shown" json:"max_shown"`
}

// Validate validates the options.
func (o *KanbanOptions) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.Phases, validation.Each(validation.Required)),
		validation.Field(&o.LegacyPhases, validation.Each(validation.Required)),
		validation.Field(&o.MaxShown, validation.Min(0)),
	)
}

func (o *KanbanOptions) phases() []string {
	phases := o.Phases
	if len(phases) == 0 {
		phases = o.LegacyPhases
	}
	if len(phases) == 0 {
		return DefaultPhases
	}
	out := make([]string, 0, len(phases))
	seen := make(map[string]bool, len(phases))
	for _, p := range phases {
		p = strings.TrimPrefix(strings.TrimSpace(p), "#")
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func kanbanView() view.View {
	return view.View{
		Name:       KanbanName,
		Render:     renderKanban,
		NewOptions: func() view.Options { return &KanbanOptions{} },
	}
}

func renderKanban(c *view.Context) (string, error) {
	opts, _ := c.Options.(*KanbanOptions)
	if opts == nil {
		opts = &KanbanOptions{}
	}
	limit := opts.MaxShown
	if limit <= 0 {
		limit = c.Settings.MaxFilesShown
	}
	if limit <= 0 {
		limit = view.DefaultMaxFilesShown
	}

	var b strings.Builder
	for _, phase := range opts.phases() {
		refs := c.Index.Docs(phase)
		if len(refs) == 0 {
			continue
		}
		if len(refs) > limit {
			refs = refs[:limit]
		}
		b.WriteString("\n\n### ")
		b.WriteString(phaseTitle(phase))
		for _, ref := range refs {
			b.WriteString("\n- ")
			b.WriteString(ref.String())
		}
	}
	return b.String(), nil
}

// phaseTitle turns "in-progress" into "In Progress".
func phaseTitle(tag string) string {
	words := strings.Split(tag, "-")
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if size == 0 {
		return w
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
}
