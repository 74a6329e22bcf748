package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Blakeem/ai-prompt-guide-mcp/internal/addr"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/archive"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/doccache"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/docservice"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/index"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/storage"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/tasks"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/testutil"
)

const apiTaskDoc = `# Sprint Board

## Tasks

### Design API

- Status: pending

Sketch the endpoints.

### Write Tests

- Status: pending

Cover the handlers.
`

// testEnv sets up a temp docs root, SQLite DB, service, and router.
// authToken="" means disabled auth; a non-empty token enforces Bearer auth.
func testEnv(t *testing.T, authToken string) (*docservice.Service, http.Handler) {
	t.Helper()

	_, store := testutil.TestDocs(t)
	db := testutil.TestDB(t)

	cache := doccache.New(store)
	guard := storage.NewGuard(store)
	resolver := addr.NewResolver(addr.DefaultNamespaces())
	archives := archive.NewManager(store, cache, resolver, nil)
	engine := tasks.NewEngine(cache, guard, archives, resolver, nil)
	svc := docservice.NewService(store, cache, guard, resolver, engine, archives, db, nil)

	router := NewRouter(svc, authToken != "", authToken, nil)
	return svc, router
}

func postJSON(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndViewDocument(t *testing.T) {
	_, router := testEnv(t, "")

	w := postJSON(t, router, "/documents", map[string]string{"path": "/api/guide.md", "content": "# Guide\n\nHello.\n"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	w = get(router, "/documents/api/guide.md")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var doc docservice.DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if doc.Path != "/api/guide.md" {
		t.Errorf("path = %q", doc.Path)
	}
	if doc.Title != "Guide" {
		t.Errorf("title = %q, want Guide", doc.Title)
	}
}

func TestCreateDuplicate(t *testing.T) {
	_, router := testEnv(t, "")

	payload := map[string]string{"path": "/dup.md", "content": "# Dup\n"}
	if w := postJSON(t, router, "/documents", payload); w.Code != http.StatusCreated {
		t.Fatalf("first create = %d", w.Code)
	}

	w := postJSON(t, router, "/documents", payload)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
	var e errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	if e.Code != "ALREADY_EXISTS" {
		t.Errorf("code = %q, want ALREADY_EXISTS", e.Code)
	}
}

func TestViewDocument_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(router, "/documents/missing.md")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var e errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	if e.Code != "DOCUMENT_NOT_FOUND" {
		t.Errorf("code = %q", e.Code)
	}
	if e.Context["document"] != "/missing.md" {
		t.Errorf("context = %v", e.Context)
	}
}

func TestViewSection_QueryForm(t *testing.T) {
	_, router := testEnv(t, "")

	content := "# Doc\n\n## Setup\n\nInstall it.\n"
	if w := postJSON(t, router, "/documents", map[string]string{"path": "/d.md", "content": content}); w.Code != http.StatusCreated {
		t.Fatal(w.Body.String())
	}

	w := get(router, "/sections?document=/d.md&section=setup")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var sec docservice.SectionDetail
	_ = json.Unmarshal(w.Body.Bytes(), &sec)
	if sec.Slug != "setup" || !strings.Contains(sec.Body, "Install it.") {
		t.Errorf("section = %+v", sec)
	}

	// Same view via ?section= on the document route.
	w = get(router, "/documents/d.md?section=setup")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestEditSections(t *testing.T) {
	_, router := testEnv(t, "")

	content := "# Doc\n\n## Setup\n\nOld body.\n"
	if w := postJSON(t, router, "/documents", map[string]string{"path": "/d.md", "content": content}); w.Code != http.StatusCreated {
		t.Fatal(w.Body.String())
	}

	w := postJSON(t, router, "/sections", map[string]any{
		"document": "/d.md",
		"operations": []map[string]any{
			{"section": "setup", "operation": "replace", "content": "New body."},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var doc docservice.DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if !strings.Contains(doc.Content, "New body.") || strings.Contains(doc.Content, "Old body.") {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestEditSections_BatchTooLarge(t *testing.T) {
	_, router := testEnv(t, "")

	ops := make([]map[string]any, 101)
	for i := range ops {
		ops[i] = map[string]any{"section": "setup", "operation": "replace", "content": "x"}
	}
	w := postJSON(t, router, "/sections", map[string]any{"document": "/d.md", "operations": ops})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var e errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	if e.Code != "BATCH_TOO_LARGE" {
		t.Errorf("code = %q", e.Code)
	}
}

func TestTaskEndpoints(t *testing.T) {
	_, router := testEnv(t, "")

	if w := postJSON(t, router, "/documents", map[string]string{"path": "/board.md", "content": apiTaskDoc}); w.Code != http.StatusCreated {
		t.Fatal(w.Body.String())
	}

	w := get(router, "/tasks?document=/board.md")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list docservice.TaskList
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(list.Tasks))
	}

	w = get(router, "/tasks/next?document=/board.md")
	if w.Code != http.StatusOK {
		t.Fatalf("next status = %d", w.Code)
	}
	var next tasks.Task
	_ = json.Unmarshal(w.Body.Bytes(), &next)
	if next.Slug != "design-api" {
		t.Errorf("next = %q", next.Slug)
	}

	w = postJSON(t, router, "/tasks/complete", map[string]string{
		"document": "/board.md", "task": "design-api", "note": "endpoints sketched",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("complete status = %d, body = %s", w.Code, w.Body.String())
	}
	var res tasks.CompletionResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Next == nil || res.Next.Slug != "write-tests" {
		t.Errorf("result = %+v", res)
	}
}

func TestArchiveEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	if w := postJSON(t, router, "/documents", map[string]string{"path": "/old.md", "content": "# Old\n"}); w.Code != http.StatusCreated {
		t.Fatal(w.Body.String())
	}

	w := postJSON(t, router, "/archive", map[string]any{"document": "/old.md", "with_audit": true})
	if w.Code != http.StatusOK {
		t.Fatalf("archive status = %d, body = %s", w.Code, w.Body.String())
	}
	var rec archive.Record
	_ = json.Unmarshal(w.Body.Bytes(), &rec)
	if !strings.HasPrefix(rec.ArchivePath, "/archived/") || rec.AuditPath == "" {
		t.Errorf("record = %+v", rec)
	}

	if w := get(router, "/documents/old.md"); w.Code != http.StatusNotFound {
		t.Errorf("original still served, status = %d", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	if w := postJSON(t, router, "/documents", map[string]string{"path": "/s.md", "content": "# S\n\n## Findings\n\nzebrafish results\n"}); w.Code != http.StatusCreated {
		t.Fatal(w.Body.String())
	}

	w := get(router, "/search?q=zebrafish")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Results []index.SearchResult `json:"results"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if len(body.Results) != 1 || body.Results[0].Slug != "findings" {
		t.Errorf("results = %+v", body.Results)
	}
}

func TestListDocumentsEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	for _, p := range []string{"/a.md", "/b.md"} {
		if w := postJSON(t, router, "/documents", map[string]string{"path": p, "title": "T"}); w.Code != http.StatusCreated {
			t.Fatal(w.Body.String())
		}
	}

	w := get(router, "/documents?limit=1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Documents []docservice.DocumentListItem `json:"documents"`
		Total     int                           `json:"total"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Total != 2 || len(body.Documents) != 1 {
		t.Errorf("total = %d, page = %d", body.Total, len(body.Documents))
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "secret")

	w := get(router, "/documents")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token status = %d, want 200", w.Code)
	}
}

func TestCoordinatorFragmentRejected(t *testing.T) {
	_, router := testEnv(t, "")

	w := get(router, "/sections?document=/coordinator/tasks.md%23tasks")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var e errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	if e.Code != "NAMESPACE_VIOLATION" {
		t.Errorf("code = %q", e.Code)
	}
}
