package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KaramelBytes/edaloom/internal/ai"
	"github.com/KaramelBytes/edaloom/internal/insight"
	"github.com/KaramelBytes/edaloom/internal/pipeline"
	"github.com/KaramelBytes/edaloom/internal/runs"
)

type cannedRuntime struct{ text string }

func (c cannedRuntime) Generate(context.Context, ai.GenerateRequest) (*ai.GenerateResponse, error) {
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: c.text}}}}, nil
}

func newTestServer(t *testing.T, limit int64) *Server {
	t.Helper()
	ws, err := runs.NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	st, err := runs.Open(ws.DatabasePath())
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	p := &pipeline.Pipeline{
		Store:     st,
		Workspace: ws,
		Insights:  insight.New(cannedRuntime{text: "**Mean age** is 30."}, insight.Options{}, nil),
	}
	srv, err := New(p, Options{UploadLimit: limit, Defaults: pipeline.DefaultOptions()})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv
}

func uploadRequest(t *testing.T, name, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	req := httptest.NewRequest("POST", "/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndexRoute(t *testing.T) {
	srv := newTestServer(t, 0)
	rec := serve(srv, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Analyze Dataset", "Show Visualizations", `name="show_plots" checked`, "No runs yet."} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in index page", want)
		}
	}
}

func TestAnalyzeRendersResultAndServesFiles(t *testing.T) {
	srv := newTestServer(t, 0)
	req := uploadRequest(t, "people.csv", "age,city\n25,NY\n,LA\n35,NY\n30,SF\n",
		map[string]string{"show_plots": "on", "insights": "on"})
	rec := serve(srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"Data Loaded Successfully!", "Missing Values:", "<strong>Mean age</strong>", "age_distribution.png"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in result page", want)
		}
	}

	list, _ := srv.p.Store.List(context.Background(), 1)
	if len(list) != 1 {
		t.Fatalf("expected one run, got %d", len(list))
	}
	id := list[0].ID

	img := serve(srv, httptest.NewRequest("GET", "/runs/"+id+"/files/age_distribution.png", nil))
	if img.Code != http.StatusOK || img.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("image: %d %q", img.Code, img.Header().Get("Content-Type"))
	}
	txt := serve(srv, httptest.NewRequest("GET", "/runs/"+id+"/files/ai_eda_report.txt", nil))
	if txt.Code != http.StatusOK || !strings.Contains(txt.Body.String(), "Mean age") {
		t.Fatalf("insights file: %d", txt.Code)
	}

	again := serve(srv, httptest.NewRequest("GET", "/runs/"+id, nil))
	if again.Code != http.StatusOK || !strings.Contains(again.Body.String(), "Summary Statistics:") {
		t.Fatalf("stored run page: %d", again.Code)
	}
	index := serve(srv, httptest.NewRequest("GET", "/", nil))
	if !strings.Contains(index.Body.String(), "/runs/"+id) {
		t.Fatal("recent runs should link the new run")
	}
}

func TestFileRouteRejectsTraversal(t *testing.T) {
	srv := newTestServer(t, 0)
	rec := serve(srv, uploadRequest(t, "people.csv", "age\n1\n2\n", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze: %d", rec.Code)
	}
	list, _ := srv.p.Store.List(context.Background(), 1)
	id := list[0].ID

	for _, path := range []string{
		"/runs/" + id + "/files/../x",
		"/runs/" + id + "/files/..%2Frun.json",
		"/runs/" + id + "/files/run.json",
		"/runs/" + id + "/files/%2e%2e",
	} {
		res := serve(srv, httptest.NewRequest("GET", path, nil))
		if res.Code == http.StatusOK {
			t.Errorf("%s should be rejected", path)
		}
		if strings.Contains(res.Body.String(), `"source_name"`) {
			t.Errorf("%s leaked the manifest", path)
		}
	}
}

func TestAnalyzeBadInput(t *testing.T) {
	srv := newTestServer(t, 0)

	rec := serve(srv, uploadRequest(t, "notes.docx", "hello", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unsupported file: expected 422, got %d", rec.Code)
	}
	rec = serve(srv, uploadRequest(t, "empty.csv", "", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty file: expected 422, got %d", rec.Code)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("show_plots", "on")
	mw.Close()
	req := httptest.NewRequest("POST", "/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if rec := serve(srv, req); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing file: expected 422, got %d", rec.Code)
	}
}

func TestAnalyzeUploadLimit(t *testing.T) {
	srv := newTestServer(t, 1024)
	big := "v\n" + strings.Repeat("12345\n", 2000)
	rec := serve(srv, uploadRequest(t, "big.csv", big, nil))
	if rec.Code < 400 {
		t.Fatalf("oversized upload accepted: %d", rec.Code)
	}
}

func TestUnknownRun(t *testing.T) {
	srv := newTestServer(t, 0)
	rec := serve(srv, httptest.NewRequest("GET", "/runs/00000000-0000-0000-0000-000000000000", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, 0)
	rec := serve(srv, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["status"] != "ok" || got["breaker"] != "closed" || got["model"] != "mistral" {
		t.Fatalf("health: %v", got)
	}
}
