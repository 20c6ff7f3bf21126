package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/flyersgrade/flyersgrade/internal/catalog"
	"github.com/flyersgrade/flyersgrade/internal/grading"
	"github.com/flyersgrade/flyersgrade/internal/i18n"
	"github.com/flyersgrade/flyersgrade/internal/ledger"
	"github.com/flyersgrade/flyersgrade/internal/llm"
	"github.com/flyersgrade/flyersgrade/internal/model"
)

const handlerCatalogJSON = `[
  {
    "id": "math1",
    "title": "Easy Math",
    "type": "multiple_fill",
    "instruction": "Pick the answer.",
    "items": [{"prompt": "1+1", "options": ["1", "2"], "answer": "2"}]
  }
]`

func newTestServer(t *testing.T) (*httptest.Server, ledger.Ledger) {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	cat, err := catalog.Parse([]byte(handlerCatalogJSON))
	if err != nil {
		t.Fatalf("catalog.Parse: %v", err)
	}
	led := ledger.NewCSV(filepath.Join(t.TempDir(), "submissions.csv"))
	engine := grading.NewEngine(cat, llm.Unconfigured{}, led, 0)

	r := chi.NewRouter()
	New(cat, engine, led).Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, led
}

func postGrade(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/grade", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST /api/grade: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestListExercisesHidesAnswers(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/exercises")
	if err != nil {
		t.Fatalf("GET /api/exercises: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var exercises []model.Exercise
	if err := json.NewDecoder(resp.Body).Decode(&exercises); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(exercises) != 1 || exercises[0].ID != "math1" {
		t.Fatalf("unexpected listing: %+v", exercises)
	}
	if exercises[0].Items[0].Answer != "" {
		t.Error("listing must not expose gold answers")
	}
	if len(exercises[0].Items[0].Options) != 2 {
		t.Error("listing should keep the options")
	}
}

func TestGradeEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postGrade(t, srv, `{"student_name": "An", "exercise_id": "math1", "responses": {"0": "2"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Score     int    `json:"score"`
		Feedback  string `json:"feedback"`
		Persisted bool   `json:"persisted"`
		Warning   string `json:"warning"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Score != 100 {
		t.Errorf("score = %d, want 100", body.Score)
	}
	if !body.Persisted {
		t.Error("persisted should be true")
	}
	if body.Warning != "" {
		t.Errorf("unexpected warning %q", body.Warning)
	}
}

func TestGradeEndpointUnknownExercise(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postGrade(t, srv, `{"student_name": "An", "exercise_id": "nope"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGradeEndpointBadRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"student_name":`},
		{"missing exercise_id", `{"student_name": "An"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := postGrade(t, srv, tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestExportEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	// Empty store first.
	resp, err := http.Get(srv.URL + "/admin/export")
	if err != nil {
		t.Fatalf("GET /admin/export: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("empty export status = %d, want 404", resp.StatusCode)
	}

	postGrade(t, srv, `{"student_name": "An", "exercise_id": "math1", "responses": {"0": "2"}}`)

	resp, err = http.Get(srv.URL + "/admin/export")
	if err != nil {
		t.Fatalf("GET /admin/export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "submissions.csv") {
		t.Errorf("content disposition = %q", cd)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "timestamp,student_name,exercise_id") {
		t.Errorf("export should start with the header, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "math1") {
		t.Error("export should contain the recorded submission")
	}
}
