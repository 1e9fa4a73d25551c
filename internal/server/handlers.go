package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/KaramelBytes/edaloom/internal/dataset"
	"github.com/KaramelBytes/edaloom/internal/insight"
	"github.com/KaramelBytes/edaloom/internal/pipeline"
	"github.com/KaramelBytes/edaloom/internal/report"
	"github.com/KaramelBytes/edaloom/internal/runs"
)

type image struct {
	Title string
	URL   string
}

type download struct {
	Label string
	URL   string
}

type resultView struct {
	Title            string
	Run              *runs.Run
	Report           string
	Insights         string
	InsightsFallback bool
	Images           []image
	Downloads        []download
}

func fileURL(id, name string) string { return "/runs/" + id + "/files/" + name }

func newResultView(r *runs.Run, reportText, insights string) resultView {
	v := resultView{
		Title:            r.SourceName,
		Run:              r,
		Report:           reportText,
		Insights:         insights,
		InsightsFallback: r.InsightsFallback,
	}
	for _, a := range r.Artifacts {
		v.Images = append(v.Images, image{Title: a.Title, URL: fileURL(r.ID, a.Name)})
	}
	for _, f := range []struct{ label, name string }{
		{"AI insights (" + report.InsightsFileName + ")", r.InsightsFile},
		{"Full report (" + report.ReportFileName + ")", r.ReportFile},
		{"Visual report (" + report.PDFFileName + ")", r.PDFFile},
		{"Uploaded data", r.SourceFile},
	} {
		if f.name != "" {
			v.Downloads = append(v.Downloads, download{Label: f.label, URL: fileURL(r.ID, f.name)})
		}
	}
	return v
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	recent, err := s.p.Store.List(r.Context(), s.opt.RecentRuns)
	if err != nil {
		s.log.Error("list runs", zap.Error(err))
		s.renderError(w, http.StatusInternalServerError, "Could not list recent runs.")
		return
	}
	s.render(w, http.StatusOK, "index.html", map[string]any{
		"Title":    "Analyze a dataset",
		"Runs":     recent,
		"Defaults": s.opt.Defaults,
		"Limit":    s.opt.UploadLimit >> 20,
	})
}

func checked(r *http.Request, key string) bool {
	v := strings.ToLower(r.FormValue(key))
	return v == "on" || v == "true" || v == "1"
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opt.UploadLimit)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.renderError(w, http.StatusRequestEntityTooLarge, "The file is larger than the upload limit.")
			return
		}
		s.renderError(w, http.StatusBadRequest, "Could not read the upload form.")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		s.renderError(w, http.StatusUnprocessableEntity, "Choose a CSV, TSV or XLSX file to analyze.")
		return
	}
	defer file.Close()

	opt := pipeline.Options{
		ShowPlots: checked(r, "show_plots"),
		BoxPlots:  checked(r, "boxplots"),
		PairPlot:  checked(r, "pairplot"),
		PDF:       checked(r, "pdf"),
		Insights:  s.opt.Defaults.Insights && checked(r, "insights"),
		Load:      dataset.LoadOptions{Sheet: strings.TrimSpace(r.FormValue("sheet"))},
	}
	res, err := s.p.Run(r.Context(), pipeline.Input{
		Body:        file,
		DisplayName: filepath.Base(hdr.Filename),
		Options:     opt,
	})
	if err != nil {
		if pipeline.IsInputError(err) {
			s.renderError(w, http.StatusUnprocessableEntity, "Could not analyze "+hdr.Filename+": "+err.Error())
			return
		}
		s.log.Error("analysis failed", zap.String("file", hdr.Filename), zap.Error(err))
		s.renderError(w, http.StatusInternalServerError, "The analysis failed: "+errorReason(err))
		return
	}
	s.render(w, http.StatusOK, "result.html", newResultView(res.Run, res.Report, res.Insights))
}

func errorReason(err error) string {
	var se *pipeline.StageError
	if errors.As(err, &se) && se.Stage == pipeline.StageInsights {
		return insight.Reason(se.Err)
	}
	return err.Error()
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*runs.Run, bool) {
	id := mux.Vars(r)["id"]
	run, err := s.p.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, runs.ErrNotFound) {
			s.renderError(w, http.StatusNotFound, "No run with that id.")
			return nil, false
		}
		s.log.Error("get run", zap.String("run_id", id), zap.Error(err))
		s.renderError(w, http.StatusInternalServerError, "Could not load the run.")
		return nil, false
	}
	return run, true
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if run.Status == runs.StatusFailed {
		s.renderError(w, http.StatusOK, "This run failed: "+run.Error)
		return
	}
	reportText := s.readRunFile(run, run.ReportFile)
	insights := strings.TrimSpace(s.readRunFile(run, run.InsightsFile))
	s.render(w, http.StatusOK, "result.html", newResultView(run, reportText, insights))
}

func (s *Server) readRunFile(run *runs.Run, name string) string {
	if name == "" {
		return ""
	}
	p, err := s.p.Workspace.FilePath(run, name)
	if err != nil {
		return ""
	}
	b, err := os.ReadFile(p)
	if err != nil {
		s.log.Warn("read run file", zap.String("run_id", run.ID), zap.String("file", name), zap.Error(err))
		return ""
	}
	return string(b)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookup(w, r)
	if !ok {
		return
	}
	p, err := s.p.Workspace.FilePath(run, mux.Vars(r)["name"])
	if err != nil {
		s.renderError(w, http.StatusNotFound, "No such file in this run.")
		return
	}
	f, err := os.Open(p)
	if err != nil {
		s.renderError(w, http.StatusNotFound, "No such file in this run.")
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		s.renderError(w, http.StatusInternalServerError, "Could not read the file.")
		return
	}
	if isDownload(filepath.Ext(p)) {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(p)+`"`)
	}
	http.ServeContent(w, r, filepath.Base(p), st.ModTime(), f)
}

func isDownload(ext string) bool {
	switch strings.ToLower(ext) {
	case ".png", ".pdf":
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if s.p.Insights != nil {
		body["model"] = s.p.Insights.Model()
		body["breaker"] = s.p.Insights.State()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
