package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tagtracker/internal/apperr"
	"github.com/starford/tagtracker/internal/report"
	"github.com/starford/tagtracker/internal/tracker"
)

// Handler holds API route handlers.
type Handler struct {
	svc   *tracker.Service
	onRun tracker.RunCallback
}

// NewHandler creates a new Handler.
func NewHandler(svc *tracker.Service, onRun tracker.RunCallback) *Handler {
	return &Handler{svc: svc, onRun: onRun}
}

// wildcardParam extracts the path after the route prefix. Supports encoded
// slashes from OpenAPI clients (e.g. archive%2Fweekly).
func wildcardParam(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func summaries(results []report.Result) []ReportSummary {
	out := make([]ReportSummary, len(results))
	for i, r := range results {
		rendered := r.Rendered
		if rendered == nil {
			rendered = []string{}
		}
		out[i] = ReportSummary{Name: r.Name, Path: r.Path, Rendered: rendered, Skipped: r.Skipped}
	}
	return out
}

func writeMarkdown(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

// ListTags handles GET /api/tags.
//
//	@Summary		List tags with document counts
//	@Tags			tags
//	@Produce		json
//	@Success		200		{object}	TagListResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		slog.Error("list tags failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

// GetTag handles GET /api/tags/{tag}.
//
//	@Summary		List the documents carrying a tag
//	@Tags			tags
//	@Produce		json
//	@Param			tag		path		string	true	"Tag without the leading #"
//	@Success		200		{object}	TagDocumentsResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags/{tag} [get]
func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	tag, err := url.PathUnescape(chi.URLParam(r, "tag"))
	if err != nil || tag == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("tag is required"))
		return
	}
	docs, err := h.svc.Documents(r.Context(), tag)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get tag failed", slog.String("tag", tag), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, TagDocumentsResponse{Tag: strings.TrimPrefix(tag, "#"), Documents: docs})
}

// ListReports handles GET /api/reports.
//
//	@Summary		List the reports written by the latest run
//	@Tags			reports
//	@Produce		json
//	@Success		200		{object}	ReportListResponse
//	@Security		BearerAuth
//	@Router			/reports [get]
func (h *Handler) ListReports(w http.ResponseWriter, _ *http.Request) {
	snap := h.svc.Latest()
	if snap == nil {
		writeJSON(w, http.StatusOK, ReportListResponse{Reports: []ReportSummary{}})
		return
	}
	ranAt := snap.RanAt
	writeJSON(w, http.StatusOK, ReportListResponse{Reports: summaries(snap.Results), RanAt: &ranAt})
}

// GetReport handles GET /api/reports/*.
//
//	@Summary		Get the markdown of a report from the latest run
//	@Tags			reports
//	@Produce		text/markdown
//	@Param			name	path		string	true	"Report name"
//	@Success		200		{string}	string
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reports/{name} [get]
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	name := wildcardParam(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	res, err := h.svc.Report(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeMarkdown(w, res.Content)
}

// RunReport handles POST /api/reports/run.
//
//	@Summary		Re-index the tree and write every report
//	@Tags			reports
//	@Produce		json
//	@Success		200		{object}	RunResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reports/run [post]
func (h *Handler) RunReport(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Run(r.Context())
	if h.onRun != nil {
		h.onRun(snap, err)
	}
	if err != nil {
		slog.Error("run failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{
		Reports:    summaries(snap.Results),
		Tags:       snap.Index.Len(),
		DurationMS: snap.Duration.Milliseconds(),
	})
}

// ListViews handles GET /api/views.
//
//	@Summary		List registered views
//	@Tags			views
//	@Produce		json
//	@Success		200		{object}	ViewListResponse
//	@Security		BearerAuth
//	@Router			/views [get]
func (h *Handler) ListViews(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ViewListResponse{Views: h.svc.Registry().Names()})
}

// RenderView handles GET /api/views/{name}.
//
//	@Summary		Render a single view against the current index
//	@Tags			views
//	@Produce		text/markdown
//	@Param			name	path		string	true	"View name"
//	@Param			filter	query		string	false	"Tag list or /regex/"
//	@Success		200		{string}	string
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/views/{name} [get]
func (h *Handler) RenderView(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	out, err := h.svc.RenderView(r.Context(), name, r.URL.Query().Get("filter"))
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrUnknownView):
			writeJSON(w, http.StatusNotFound, errorBody("unknown view"))
		case errors.Is(err, apperr.ErrNoWorkspace):
			writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
		default:
			slog.Error("render view failed", slog.String("view", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		}
		return
	}
	writeMarkdown(w, out)
}
