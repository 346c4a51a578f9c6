package report

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/tagtracker/internal/index"
	"github.com/starford/tagtracker/internal/models"
	"github.com/starford/tagtracker/internal/storage"
	"github.com/starford/tagtracker/internal/view"
)

// Header opens every report document.
const Header = "----\n"

// Result is a report document that was rendered and written.
type Result struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Content  string   `json:"content"`
	Rendered []string `json:"rendered"`
	Skipped  []string `json:"skipped,omitempty"`
}

// Assembler renders spec entries through the view registry and writes each
// output document.
type Assembler struct {
	registry *view.Registry
	store    storage.Provider
	settings view.Settings
	logger   *slog.Logger
	now      func() time.Time
}

// NewAssembler creates an Assembler.
func NewAssembler(registry *view.Registry, store storage.Provider, settings view.Settings, logger *slog.Logger) *Assembler {
	return &Assembler{
		registry: registry,
		store:    store,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the clock views use for "today".
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	a.now = now
	return a
}

// OutputPath returns the root-relative file an output name is written to.
func OutputPath(name string) string {
	if strings.HasSuffix(strings.ToLower(name), models.DocExt) {
		return name
	}
	return name + models.DocExt
}

// Render renders a single entry against idx.
func (a *Assembler) Render(e Entry, idx *index.Index) (string, error) {
	return a.render(e, idx, a.now())
}

func (a *Assembler) render(e Entry, idx *index.Index, now time.Time) (string, error) {
	v, err := a.registry.Resolve(e.View)
	if err != nil {
		return "", err
	}
	if e.Filter != "" {
		match, err := index.NewMatcher(e.Filter)
		if err != nil {
			return "", err
		}
		idx = idx.Restrict(match)
	}
	opts := e.Options
	if opts == nil {
		opts = v.Options()
	}
	return v.Render(&view.Context{
		Index:    idx,
		Settings: a.settings,
		Options:  opts,
		Store:    a.store,
		Now:      now,
		Logger:   a.logger,
	})
}

// Assemble renders every output of spec in order and writes it, replacing
// any previous content. A failing entry is logged and left out of its
// output. A failing write drops only that output; the returned error joins
// every write failure.
func (a *Assembler) Assemble(spec *Spec, idx *index.Index) ([]Result, error) {
	now := a.now()
	results := make([]Result, 0, len(spec.Outputs))
	var errs []error

	for _, out := range spec.Outputs {
		res := Result{Name: out.Name, Path: OutputPath(out.Name)}
		var b strings.Builder
		b.WriteString(Header)

		for _, e := range out.Entries {
			fragment, err := a.render(e, idx, now)
			if err != nil {
				a.logger.Warn("report: view skipped",
					slog.String("output", out.Name),
					slog.String("view", e.View),
					slog.String("error", err.Error()),
				)
				res.Skipped = append(res.Skipped, e.View)
				continue
			}
			b.WriteString(fragment)
			res.Rendered = append(res.Rendered, e.View)
		}

		res.Content = b.String()
		if err := a.store.Write(res.Path, []byte(res.Content)); err != nil {
			a.logger.Error("report: write failed",
				slog.String("path", res.Path),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("report: write %s: %w", res.Path, err))
			continue
		}
		a.logger.Info("report: written",
			slog.String("path", res.Path),
			slog.Int("views", len(res.Rendered)),
		)
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
