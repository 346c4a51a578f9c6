// Package builtin provides the views shipped with tagtracker.
package builtin

import (
	"fmt"

	"github.com/starford/tagtracker/internal/view"
)

// Built-in view names.
const (
	CalendarName   = "calendar"
	KanbanName     = "kanBan"
	TagSummaryName = "tagSummary"
	LastOpenedName = "lastOpened"
)

// Views returns every built-in view.
func Views() []view.View {
	return []view.View{
		calendarView(),
		kanbanView(),
		tagSummaryView(),
		lastOpenedView(),
	}
}

// Register adds every built-in view to r.
func Register(r *view.Registry) error {
	for _, v := range Views() {
		if err := r.Register(v); err != nil {
			return fmt.Errorf("builtin: %w", err)
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in views.
func NewRegistry() (*view.Registry, error) {
	r := view.NewRegistry()
	if err := Register(r); err != nil {
		return nil, err
	}
	return r, nil
}
