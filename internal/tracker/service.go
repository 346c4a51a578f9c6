// Package tracker runs the index → assemble pipeline and keeps the result of
// the latest run for the watch, HTTP and MCP front ends.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/starford/tagtracker/internal/apperr"
	"github.com/starford/tagtracker/internal/index"
	"github.com/starford/tagtracker/internal/models"
	"github.com/starford/tagtracker/internal/report"
	"github.com/starford/tagtracker/internal/storage"
	"github.com/starford/tagtracker/internal/view"
	"github.com/starford/tagtracker/internal/view/builtin"
)

// Options configures what a run produces.
type Options struct {
	// SpecFile is the report specification; empty or missing means the
	// default spec built from Defaults.
	SpecFile string
	Defaults report.Defaults
	// Filters restrict the whole index before any entry filter. A tag is
	// kept when any filter accepts it.
	Filters  []string
	Settings view.Settings
}

// Snapshot is the outcome of one run.
type Snapshot struct {
	Index    *index.Index
	Spec     *report.Spec
	Results  []report.Result
	RanAt    time.Time
	Duration time.Duration

	generated map[string]bool
	calDirs   []string
}

// Generated reports whether rel (root-relative) was produced by the run.
func (s *Snapshot) Generated(rel string) bool {
	if s == nil {
		return false
	}
	rel = filepath.ToSlash(filepath.Clean(rel))
	if s.generated[rel] {
		return true
	}
	for _, dir := range s.calDirs {
		if rel == dir || strings.HasPrefix(rel, dir+"/") {
			return true
		}
	}
	return false
}

// Service coordinates storage, indexing and report assembly.
type Service struct {
	store    storage.Provider
	registry *view.Registry
	opts     Options
	filter   index.Matcher
	lock     *storage.RunLock
	logger   *slog.Logger
	now      func() time.Time

	runMu sync.Mutex

	mu     sync.RWMutex
	latest *Snapshot
}

// NewService creates a tracker service over store.
func NewService(store storage.Provider, registry *view.Registry, opts Options, logger *slog.Logger) (*Service, error) {
	matchers := make([]index.Matcher, 0, len(opts.Filters))
	for _, expr := range opts.Filters {
		m, err := index.NewMatcher(expr)
		if err != nil {
			return nil, fmt.Errorf("tracker: %w", err)
		}
		matchers = append(matchers, m)
	}
	if opts.Settings.CalendarDirectory == "" {
		opts.Settings.CalendarDirectory = view.DefaultCalendarDirectory
	}
	if opts.Settings.MaxFilesShown <= 0 {
		opts.Settings.MaxFilesShown = view.DefaultMaxFilesShown
	}
	return &Service{
		store:    store,
		registry: registry,
		opts:     opts,
		filter:   index.AnyOf(matchers...),
		lock:     storage.NewRunLock(store.Root()),
		logger:   logger,
		now:      time.Now,
	}, nil
}

// WithClock replaces the clock used for runs.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Root returns the search root.
func (s *Service) Root() string {
	return s.store.Root()
}

// Registry returns the view registry.
func (s *Service) Registry() *view.Registry {
	return s.registry
}

// Run indexes the tree, loads the report spec and writes every output. Runs
// are serialized in-process by a mutex and across processes by a file lock.
// A write failure returns an error alongside the snapshot of what succeeded.
func (s *Service) Run(ctx context.Context) (*Snapshot, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.lock.Lock(); err != nil {
		return nil, err
	}
	defer s.unlock()

	began := time.Now()
	start := s.now()
	idx, err := index.Build(s.store, s.logger)
	if err != nil {
		return nil, fmt.Errorf("tracker: index: %w", err)
	}
	idx = idx.Restrict(s.filter)

	spec, err := s.Spec()
	if err != nil {
		return nil, err
	}

	asm := report.NewAssembler(s.registry, s.store, s.opts.Settings, s.logger).WithClock(func() time.Time { return start })
	results, runErr := asm.Assemble(spec, idx)

	snap := &Snapshot{
		Index:     idx,
		Spec:      spec,
		Results:   results,
		RanAt:     start,
		Duration:  time.Since(began),
		generated: make(map[string]bool),
		calDirs:   s.calendarDirs(spec),
	}
	for _, out := range spec.Outputs {
		snap.generated[filepath.ToSlash(filepath.Clean(report.OutputPath(out.Name)))] = true
	}

	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()

	s.logger.Info("tracker: run complete",
		slog.Int("tags", idx.Len()),
		slog.Int("outputs", len(results)),
		slog.Duration("duration", snap.Duration),
	)
	return snap, runErr
}

func (s *Service) unlock() {
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("tracker: unlock", slog.String("error", err.Error()))
	}
}

// Latest returns the snapshot of the most recent run, or nil.
func (s *Service) Latest() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Spec returns the report specification a run would use.
func (s *Service) Spec() (*report.Spec, error) {
	if s.opts.SpecFile == "" {
		return report.DefaultSpec(s.opts.Defaults), nil
	}
	spec, err := report.LoadSpec(s.opts.SpecFile, s.registry, s.logger)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("tracker: spec file not found, using default report",
			slog.String("path", s.opts.SpecFile))
		return report.DefaultSpec(s.opts.Defaults), nil
	}
	if err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}
	return spec, nil
}

func (s *Service) calendarDirs(spec *report.Spec) []string {
	seen := map[string]bool{}
	var dirs []string
	add := func(dir string) {
		dir = filepath.ToSlash(filepath.Clean(dir))
		if dir != "" && dir != "." && !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	add(s.opts.Settings.CalendarDirectory)
	for _, out := range spec.Outputs {
		for _, e := range out.Entries {
			if opts, ok := e.Options.(*builtin.CalendarOptions); ok && opts.Directory != "" {
				add(opts.Directory)
			}
		}
	}
	return dirs
}

// Index returns the index of the latest run, building a fresh one when no
// run has happened yet.
func (s *Service) Index(ctx context.Context) (*index.Index, error) {
	if snap := s.Latest(); snap != nil {
		return snap.Index, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, err := index.Build(s.store, s.logger)
	if err != nil {
		return nil, fmt.Errorf("tracker: index: %w", err)
	}
	return idx.Restrict(s.filter), nil
}

// Tags returns the non-date tags with their document counts.
func (s *Service) Tags(ctx context.Context) ([]builtin.TagCount, error) {
	idx, err := s.Index(ctx)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(builtin.Counts(idx)), nil
}

// Documents returns the documents carrying tag in discovery order.
func (s *Service) Documents(ctx context.Context, tag string) ([]models.DocRef, error) {
	idx, err := s.Index(ctx)
	if err != nil {
		return nil, err
	}
	docs := idx.Docs(strings.TrimPrefix(tag, "#"))
	if len(docs) == 0 {
		return nil, apperr.ErrNotFound
	}
	return docs, nil
}

// RenderView renders a single view against the current index. Views with
// side effects (calendar day summaries) still write them, under the same
// locks as Run.
func (s *Service) RenderView(ctx context.Context, name, filter string) (string, error) {
	idx, err := s.Index(ctx)
	if err != nil {
		return "", err
	}
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return "", err
	}
	defer s.unlock()

	asm := report.NewAssembler(s.registry, s.store, s.opts.Settings, s.logger).WithClock(s.now)
	return asm.Render(report.Entry{View: name, Filter: filter}, idx)
}

// Report returns the named output of the latest run.
func (s *Service) Report(name string) (*report.Result, error) {
	snap := s.Latest()
	if snap == nil {
		return nil, apperr.ErrNotFound
	}
	for i := range snap.Results {
		r := &snap.Results[i]
		if r.Name == name || r.Path == name || r.Path == report.OutputPath(name) {
			return r, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
