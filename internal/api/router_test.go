package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/munin/internal/analysis"
	"github.com/starford/munin/internal/models"
	"github.com/starford/munin/internal/noteservice"
	"github.com/starford/munin/internal/query"
	"github.com/starford/munin/internal/ratelimit"
	"github.com/starford/munin/internal/testutil"
)

func newTestRouter(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	db := testutil.TestDB(t)
	analyzer := analysis.NewAnalyzer(nil, nil, nil)
	engine := query.NewEngine(nil, nil, db, nil)
	svc := noteservice.NewService(db, analyzer, nil, nil)
	return NewRouter(svc, engine, ratelimit.New(), authEnabled, token, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateNote(t *testing.T) {
	r := newTestRouter(t, false, "")

	rec := doJSON(t, r, http.MethodPost, "/notes",
		`{"content":"urgent deadline for the launch"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var note models.Note
	if err := json.Unmarshal(rec.Body.Bytes(), &note); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if note.ID == "" {
		t.Error("response should carry the assigned id")
	}
	if note.Priority != 95 {
		t.Errorf("priority = %d, want 95", note.Priority)
	}
	if rec.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("rate limit headers should be present")
	}
}

func TestCreateNote_BadRequests(t *testing.T) {
	r := newTestRouter(t, false, "")

	rec := doJSON(t, r, http.MethodPost, "/notes", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/notes", `{"content":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank capture status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "required") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestNoteLifecycle(t *testing.T) {
	r := newTestRouter(t, false, "")

	rec := doJSON(t, r, http.MethodPost, "/notes", `{"content":"lifecycle test note"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created models.Note
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	rec = doJSON(t, r, http.MethodGet, "/notes", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list NoteListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || len(list.Notes) != 1 {
		t.Errorf("list = %+v, want one note", list)
	}

	rec = doJSON(t, r, http.MethodGet, "/notes/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPatch, "/notes/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", rec.Code)
	}
	var toggled models.Note
	if err := json.Unmarshal(rec.Body.Bytes(), &toggled); err != nil {
		t.Fatal(err)
	}
	if !toggled.IsPublic {
		t.Error("note should be public after toggle")
	}

	rec = doJSON(t, r, http.MethodDelete, "/notes/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/notes/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	r := newTestRouter(t, false, "")
	rec := doJSON(t, r, http.MethodGet, "/notes/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAsk(t *testing.T) {
	r := newTestRouter(t, false, "")

	rec := doJSON(t, r, http.MethodPost, "/ask", `{"question":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank question status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPost, "/ask", `{"question":"what do I know?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("ask status = %d", rec.Code)
	}
	var result query.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	// Empty knowledge base degrades to a canned low-confidence answer.
	if result.Confidence != "low" {
		t.Errorf("confidence = %q, want low", result.Confidence)
	}
	if result.Sources == nil {
		t.Error("sources should be an empty array, not null")
	}
}

func TestPublicBrain(t *testing.T) {
	r := newTestRouter(t, true, "secret") // public surface ignores auth

	// Seed one public and one private note through the API.
	rec := doJSON(t, r, http.MethodPost, "/notes", `{"content":"shared","isPublic":true}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create status = %d, want 401", rec.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(`{"content":"shared","isPublic":true}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("authenticated create status = %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/public/brain", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("public brain status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q, want *", got)
	}
	var resp PublicBrainResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Brain == "" {
		t.Error("brain name missing")
	}
	if resp.Count != 1 || len(resp.Notes) != 1 {
		t.Errorf("count = %d, notes = %v, want the one public note", resp.Count, resp.Notes)
	}
}

func TestPublicQuery_MissingParam(t *testing.T) {
	r := newTestRouter(t, false, "")
	rec := doJSON(t, r, http.MethodGet, "/public/brain/query", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPublicQuery_Post(t *testing.T) {
	r := newTestRouter(t, false, "")
	rec := doJSON(t, r, http.MethodPost, "/public/brain/query", `{"question":"anything public?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp PublicQueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Query != "anything public?" {
		t.Errorf("query echo = %q", resp.Query)
	}
}

func TestPublicSurface_OptionsPreflight(t *testing.T) {
	r := newTestRouter(t, false, "")
	rec := doJSON(t, r, http.MethodOptions, "/public/brain", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	r := newTestRouter(t, true, "secret")

	rec := doJSON(t, r, http.MethodGet, "/notes", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", rec2.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec3 := httptest.NewRecorder()
	r.ServeHTTP(rec3, req)
	if rec3.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", rec3.Code)
	}
}

func TestRateLimitMiddleware_Rejects(t *testing.T) {
	limiter := ratelimit.New()
	cfg := ratelimit.Config{MaxRequests: 2, Window: ratelimit.Standard.Window}
	h := RateLimitMiddleware(limiter, "test", cfg)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 should carry Retry-After")
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("remaining = %q, want 0", got)
	}
	if !strings.Contains(rec.Body.String(), "rate limit exceeded") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRateLimitMiddleware_KeysByClientIP(t *testing.T) {
	limiter := ratelimit.New()
	cfg := ratelimit.Config{MaxRequests: 1, Window: ratelimit.Standard.Window}
	h := RateLimitMiddleware(limiter, "test", cfg)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.Header.Set("X-Forwarded-For", "203.0.113.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("first client status = %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.Header.Set("X-Forwarded-For", "203.0.113.2")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, second)
	if rec.Code != http.StatusOK {
		t.Errorf("distinct client should have its own budget, status = %d", rec.Code)
	}
}
