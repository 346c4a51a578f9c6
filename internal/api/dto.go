package api

import (
	"time"

	"github.com/starford/tagtracker/internal/models"
	"github.com/starford/tagtracker/internal/view/builtin"
)

// TagCount is a tag with its document count (aliased from the view layer).
type TagCount = builtin.TagCount

// DocRef is a document reference (aliased from the domain layer).
type DocRef = models.DocRef

// TagListResponse wraps tag counts.
type TagListResponse struct {
	Tags []TagCount `json:"tags" validate:"required"`
}

// TagDocumentsResponse lists the documents carrying a tag.
type TagDocumentsResponse struct {
	Tag       string   `json:"tag" example:"urgent" validate:"required"`
	Documents []DocRef `json:"documents" validate:"required"`
}

// ReportSummary describes one written report without its content.
type ReportSummary struct {
	Name     string   `json:"name" example:"tag-tracker" validate:"required"`
	Path     string   `json:"path" example:"tag-tracker.md" validate:"required"`
	Rendered []string `json:"rendered" validate:"required"`
	Skipped  []string `json:"skipped,omitempty"`
}

// ReportListResponse wraps the reports of the latest run.
type ReportListResponse struct {
	Reports []ReportSummary `json:"reports" validate:"required"`
	RanAt   *time.Time      `json:"ran_at,omitempty"`
}

// RunResponse is returned after a triggered run.
type RunResponse struct {
	Reports    []ReportSummary `json:"reports" validate:"required"`
	Tags       int             `json:"tags" example:"12" validate:"required"`
	DurationMS int64           `json:"duration_ms" example:"35" validate:"required"`
}

// ViewListResponse wraps the registered view names.
type ViewListResponse struct {
	Views []string `json:"views" validate:"required"`
}
