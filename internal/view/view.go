// Package view defines renderable views and the registry that resolves them
// by name.
package view

import (
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tagtracker/internal/index"
	"github.com/starford/tagtracker/internal/storage"
)

// Defaults for Settings.
const (
	DefaultCalendarDirectory = "calendar"
	DefaultMaxFilesShown     = 10
)

// Settings are the process-wide rendering settings shared by every view.
type Settings struct {
	EmbedPagesInDailyView bool   `yaml:"embedPagesInDailyView" json:"embedPagesInDailyView"`
	CalendarDirectory     string `yaml:"calendarDirectory" json:"calendarDirectory"`
	MaxFilesShown         int    `yaml:"maxFilesShown" json:"maxFilesShown"`
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		CalendarDirectory: DefaultCalendarDirectory,
		MaxFilesShown:     DefaultMaxFilesShown,
	}
}

// Validate validates the settings.
func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.CalendarDirectory, validation.Required),
		validation.Field(&s.MaxFilesShown, validation.Min(1)),
	)
}

// Options is a view's closed set of per-entry options.
type Options interface {
	Validate() error
}

// NoOptions is used by views that take no options.
type NoOptions struct{}

// Validate always succeeds.
func (NoOptions) Validate() error { return nil }

// Context is everything a view receives for a single render.
type Context struct {
	Index    *index.Index
	Settings Settings
	Options  Options
	Store    storage.Provider
	Now      time.Time
	Logger   *slog.Logger
}

// RenderFunc renders a view to a markdown fragment.
type RenderFunc func(c *Context) (string, error)

// View is a named rendering capability.
type View struct {
	Name    string
	Aliases []string
	Render  RenderFunc
	// NewOptions returns the view's options populated with defaults. Nil
	// means the view takes no options.
	NewOptions func() Options
}

// Options returns a fresh options value for the view.
func (v View) Options() Options {
	if v.NewOptions == nil {
		return NoOptions{}
	}
	return v.NewOptions()
}
