package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/tagtracker/internal/report"
	"github.com/starford/tagtracker/internal/testutil"
	"github.com/starford/tagtracker/internal/tracker"
	"github.com/starford/tagtracker/internal/view"
	"github.com/starford/tagtracker/internal/view/builtin"
)

var sampleVault = map[string]string{
	"a.md":     "#to-do #urgent #2024-05-02",
	"b.md":     "#urgent",
	"sub/c.md": "#finished",
}

// testEnv sets up a temp vault, tracker service, and router for testing.
// A non-empty authToken enables token mode.
func testEnv(t *testing.T, authToken string) (*tracker.Service, http.Handler) {
	t.Helper()
	return testEnvFull(t, authToken != "", authToken, nil, nil)
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler, onRun tracker.RunCallback) (*tracker.Service, http.Handler) {
	t.Helper()

	_, store := testutil.TestVault(t, sampleVault)
	registry, err := builtin.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	svc, err := tracker.NewService(store, registry, tracker.Options{
		Defaults: report.Defaults{NoLastOpened: true},
		Settings: view.DefaultSettings(),
	}, testutil.Logger())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.WithClock(func() time.Time { return time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC) })

	router := NewRouter(svc, authEnabled, authToken, sseHandler, onRun)
	return svc, router
}

func do(router http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListTags(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodGet, "/tags", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp TagListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Tags) != 3 {
		t.Fatalf("tags = %+v, want 3 non-date tags", resp.Tags)
	}
	if resp.Tags[0].Tag != "urgent" || resp.Tags[0].Count != 2 {
		t.Errorf("first tag = %+v, want urgent (2)", resp.Tags[0])
	}
}

func TestGetTag(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodGet, "/tags/finished", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp TagDocumentsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Documents) != 1 || resp.Documents[0].URL != "sub/c.md" || resp.Documents[0].Label != "c" {
		t.Errorf("documents = %+v", resp.Documents)
	}
}

func TestGetTag_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodGet, "/tags/nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing tag = %d, want 404", w.Code)
	}
}

func TestRunAndFetchReport(t *testing.T) {
	var mu sync.Mutex
	var runs int
	_, router := testEnvFull(t, false, "", nil, func(*tracker.Snapshot, error) {
		mu.Lock()
		runs++
		mu.Unlock()
	})

	// Nothing before the first run.
	w := do(router, http.MethodGet, "/reports", "")
	var list ReportListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if w.Code != http.StatusOK || len(list.Reports) != 0 {
		t.Fatalf("pre-run list = %d %s", w.Code, w.Body.String())
	}

	w = do(router, http.MethodPost, "/reports/run", "")
	if w.Code != http.StatusOK {
		t.Fatalf("run status = %d, body = %s", w.Code, w.Body.String())
	}
	var run RunResponse
	_ = json.Unmarshal(w.Body.Bytes(), &run)
	if len(run.Reports) != 1 || run.Reports[0].Path != "tag-tracker.md" {
		t.Errorf("run reports = %+v", run.Reports)
	}
	mu.Lock()
	if runs != 1 {
		t.Errorf("onRun called %d times, want 1", runs)
	}
	mu.Unlock()

	w = do(router, http.MethodGet, "/reports", "")
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Reports) != 1 || list.RanAt == nil {
		t.Errorf("post-run list = %s", w.Body.String())
	}

	w = do(router, http.MethodGet, "/reports/tag-tracker", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get report = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "----\n") || !strings.Contains(body, "### To Do\n- [a](a.md)") {
		t.Errorf("report body = %q", body)
	}
}

func TestGetReport_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodGet, "/reports/absent", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing report = %d, want 404", w.Code)
	}
}

func TestListViews(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodGet, "/views", "")
	var resp ViewListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	want := []string{"calendar", "kanBan", "tagSummary", "lastOpened"}
	if strings.Join(resp.Views, ",") != strings.Join(want, ",") {
		t.Errorf("views = %v, want %v", resp.Views, want)
	}
}

func TestRenderView(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodGet, "/views/tag-summary?filter=urgent", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "\n\n\n----\n*urgent (2)*\n\n" {
		t.Errorf("rendered = %q", got)
	}

	w = do(router, http.MethodGet, "/views/nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown view = %d, want 404", w.Code)
	}

	w = do(router, http.MethodGet, "/views/lastOpened", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing workspace = %d, want 404", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(router, http.MethodPost, "/reports/run", "secret123")
	if w.Code != http.StatusOK {
		t.Errorf("authed run = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(router, http.MethodGet, "/tags", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(router, http.MethodGet, "/tags", "wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(router, http.MethodGet, "/tags", "")
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// sseStub writes headers and blocks until the request context is done.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvFull(t, true, "secret", sseStub, nil)

	w := do(router, http.MethodGet, "/events", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	_, router := testEnvFull(t, false, "", sseStub, nil)

	// The SSE handler writes 200 and blocks, so cancel after a short time.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvFull(t, true, "tok", sseStub, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
