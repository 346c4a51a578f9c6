// Package report loads report specifications and assembles report documents
// from views.
package report

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/starford/tagtracker/internal/apperr"
	"github.com/starford/tagtracker/internal/index"
	"github.com/starford/tagtracker/internal/view"
	"github.com/starford/tagtracker/internal/view/builtin"
)

// DefaultOutput is the report name used when none is configured.
const DefaultOutput = "tag-tracker"

// Keys shared by every view's options.
const (
	filterKey = "filter"
	pathKey   = "path"
)

// Entry is one view invocation inside an output document.
type Entry struct {
	View   string `json:"view"`
	Filter string `json:"filter,omitempty"`
	// Path is the output the entry was redirected to, if any.
	Path string `json:"path,omitempty"`
	// Options is nil when View is not registered.
	Options view.Options `json:"options,omitempty"`
}

// Output is one report document and its entries in render order.
type Output struct {
	Name    string  `json:"name"`
	Entries []Entry `json:"entries"`
}

// Spec is an ordered list of output documents.
type Spec struct {
	Outputs []Output `json:"outputs"`
}

// Defaults describes the spec used when no spec file exists.
type Defaults struct {
	Output       string
	Months       int
	Phases       []string
	NoCalendar   bool
	NoLastOpened bool
}

// DefaultSpec returns a single-output spec rendering the built-in views.
func DefaultSpec(d Defaults) *Spec {
	name := d.Output
	if name == "" {
		name = DefaultOutput
	}
	var entries []Entry
	if !d.NoCalendar {
		entries = append(entries, Entry{View: builtin.CalendarName, Options: &builtin.CalendarOptions{Months: d.Months}})
	}
	entries = append(entries, Entry{View: builtin.KanbanName, Options: &builtin.KanbanOptions{Phases: d.Phases}})
	if !d.NoLastOpened {
		entries = append(entries, Entry{View: builtin.LastOpenedName, Options: &builtin.LastOpenedOptions{}})
	}
	entries = append(entries, Entry{View: builtin.TagSummaryName, Options: &builtin.TagSummaryOptions{}})
	return &Spec{Outputs: []Output{{Name: name, Entries: entries}}}
}

// LoadSpec reads a report specification: a mapping of output name to an
// ordered mapping of view name to options. Files ending in .json may hold
// comments and trailing commas. Entries with malformed options are logged and
// dropped; entries naming unregistered views are kept.
func LoadSpec(path string, registry *view.Registry, logger *slog.Logger) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("report: read spec: %w", err)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".json" || ext == ".jsonc" {
		if data, err = hujson.Standardize(data); err != nil {
			return nil, fmt.Errorf("report: %w: %s: %v", apperr.ErrInvalidSpec, path, err)
		}
	}
	spec, err := ParseSpec(data, registry, logger)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return spec, nil
}

// ParseSpec parses a YAML (or JSON) report specification.
func ParseSpec(data []byte, registry *view.Registry, logger *slog.Logger) (*Spec, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("report: %w: %v", apperr.ErrInvalidSpec, err)
	}
	spec := &Spec{}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return spec, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("report: %w: top level must be a mapping of output names", apperr.ErrInvalidSpec)
	}

	positions := make(map[string]int)
	add := func(name string, e Entry) {
		i, ok := positions[name]
		if !ok {
			i = len(spec.Outputs)
			positions[name] = i
			spec.Outputs = append(spec.Outputs, Output{Name: name})
		}
		spec.Outputs[i].Entries = append(spec.Outputs[i].Entries, e)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		output := strings.TrimSpace(root.Content[i].Value)
		views := root.Content[i+1]
		if output == "" {
			logger.Warn("report: output without a name", slog.Int("line", root.Content[i].Line))
			continue
		}
		if isNull(views) {
			continue
		}
		if views.Kind != yaml.MappingNode {
			logger.Warn("report: output must map view names to options",
				slog.String("output", output),
				slog.Int("line", views.Line),
			)
			continue
		}

		for j := 0; j+1 < len(views.Content); j += 2 {
			name := views.Content[j].Value
			e, err := parseEntry(name, views.Content[j+1], registry)
			if err != nil {
				logger.Warn("report: entry dropped",
					slog.String("output", output),
					slog.String("view", name),
					slog.String("error", err.Error()),
				)
				continue
			}
			target := output
			if e.Path != "" {
				target = e.Path
			}
			add(target, e)
		}
	}
	return spec, nil
}

func parseEntry(name string, node *yaml.Node, registry *view.Registry) (Entry, error) {
	e := Entry{View: name}
	rest := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	switch {
	case isNull(node):
	case node.Kind == yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			switch key.Value {
			case filterKey, pathKey:
				v, err := scalar(key.Value, val)
				if err != nil {
					return e, err
				}
				if key.Value == filterKey {
					e.Filter = v
				} else {
					e.Path = v
				}
			default:
				rest.Content = append(rest.Content, key, val)
			}
		}
	default:
		return e, fmt.Errorf("%w: options must be a mapping (line %d)", apperr.ErrInvalidSpec, node.Line)
	}

	if _, err := index.NewMatcher(e.Filter); err != nil {
		return e, fmt.Errorf("%w: %v", apperr.ErrInvalidSpec, err)
	}

	v, err := registry.Resolve(name)
	if err != nil {
		return e, nil
	}
	opts := v.Options()
	if len(rest.Content) > 0 {
		if _, none := opts.(view.NoOptions); none {
			return e, fmt.Errorf("%w: view %s takes no options", apperr.ErrInvalidSpec, v.Name)
		}
		if err := decodeStrict(rest, opts); err != nil {
			return e, fmt.Errorf("%w: %v", apperr.ErrInvalidSpec, err)
		}
	}
	if err := opts.Validate(); err != nil {
		return e, fmt.Errorf("%w: %v", apperr.ErrInvalidSpec, err)
	}
	e.Options = opts
	return e, nil
}

// decodeStrict decodes node into target rejecting unknown keys.
func decodeStrict(node *yaml.Node, target any) error {
	raw, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(target)
}

// scalar returns the trimmed text of a filter or path value. Null reads as
// empty; lists and mappings are rejected.
func scalar(key string, val *yaml.Node) (string, error) {
	if isNull(val) {
		return "", nil
	}
	if val.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("%w: %s must be a string (line %d)", apperr.ErrInvalidSpec, key, val.Line)
	}
	return strings.TrimSpace(val.Value), nil
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}
