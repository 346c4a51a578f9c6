package view

import (
	"fmt"
	"strings"

	"github.com/starford/tagtracker/internal/apperr"
)

// Normalize maps every spelling of a view name to one canonical key:
// lower case with '-' and '_' removed, so "kanBan", "kan-ban", "kan_ban"
// and "kanban" are all the same view.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.TrimSpace(name) {
		if r == '-' || r == '_' {
			continue
		}
		b.WriteString(strings.ToLower(string(r)))
	}
	return b.String()
}

// Registry maps view names to views. It is built once at startup and only
// read afterwards.
type Registry struct {
	views map[string]View
	names []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string]View)}
}

// Register adds v under its name and aliases.
func (r *Registry) Register(v View) error {
	if Normalize(v.Name) == "" {
		return fmt.Errorf("view: register: empty name")
	}
	if v.Render == nil {
		return fmt.Errorf("view: register %q: nil render func", v.Name)
	}

	keys := make([]string, 0, 1+len(v.Aliases))
	for _, n := range append([]string{v.Name}, v.Aliases...) {
		key := Normalize(n)
		if key == "" {
			continue
		}
		if existing, ok := r.views[key]; ok {
			return fmt.Errorf("view: register %q: %q already registered by %q", v.Name, n, existing.Name)
		}
		keys = append(keys, key)
	}
	for _, key := range keys {
		r.views[key] = v
	}
	r.names = append(r.names, v.Name)
	return nil
}

// Resolve returns the view registered under any spelling of name.
func (r *Registry) Resolve(name string) (View, error) {
	v, ok := r.views[Normalize(name)]
	if !ok {
		return View{}, fmt.Errorf("view: %w: %q", apperr.ErrUnknownView, name)
	}
	return v, nil
}

// Names returns the declared view names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
