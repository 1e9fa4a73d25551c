package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/edaloom/internal/ai"
	cfgpkg "github.com/KaramelBytes/edaloom/internal/config"
	"github.com/KaramelBytes/edaloom/internal/runs"
)

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) error {
	t.Helper()
	// Reset sticky flags and the cached config between invocations
	for _, name := range []string{"no-plots", "boxplots", "pairplot", "pdf", "no-insights", "strict", "model", "provider", "delimiter", "sheet", "quiet"} {
		if fl := analyzeCmd.Flags().Lookup(name); fl != nil {
			_ = fl.Value.Set(fl.DefValue)
			fl.Changed = false
		}
	}
	if fl := runsPruneCmd.Flags().Lookup("older-than"); fl != nil {
		_ = fl.Value.Set(fl.DefValue)
		fl.Changed = false
	}
	cfg = nil
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func isolatedHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func listRuns(t *testing.T) []*runs.Run {
	t.Helper()
	c, err := cfgpkg.Load("")
	if err != nil {
		t.Fatal(err)
	}
	_, st, err := openStorage(c)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	list, err := st.List(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	return list
}

func TestCLI_AnalyzeThenInspectAndPrune(t *testing.T) {
	home := isolatedHome(t)
	src := writeFile(t, filepath.Join(home, "people.csv"), "age,city\n25,NY\n,LA\n35,NY\n30,SF\n")

	if err := runCmd(t, "analyze", src, "--no-insights", "--boxplots", "--pdf"); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	list := listRuns(t)
	if len(list) != 1 {
		t.Fatalf("expected 1 run, got %d", len(list))
	}
	r := list[0]
	if r.Status != runs.StatusCompleted || r.Rows != 4 || r.Cols != 2 {
		t.Fatalf("run: %+v", r)
	}
	dir := filepath.Join(home, ".edaloom", "data", "runs", r.ID)
	for _, name := range []string{"age_distribution.png", "age_boxplot.png", "visual_report.pdf", "eda_report.txt", "ai_eda_report.txt", "run.json", "people.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	b, _ := os.ReadFile(filepath.Join(dir, "ai_eda_report.txt"))
	if strings.TrimSpace(string(b)) != "AI insights disabled." {
		t.Fatalf("insights file: %q", b)
	}

	if err := runCmd(t, "runs", "list"); err != nil {
		t.Fatalf("runs list: %v", err)
	}
	if err := runCmd(t, "runs", "show", r.ID); err != nil {
		t.Fatalf("runs show: %v", err)
	}
	if err := runCmd(t, "runs", "show", "00000000-0000-0000-0000-000000000000"); err == nil {
		t.Fatal("expected error for unknown run")
	}
	if err := runCmd(t, "runs", "prune", "--older-than", "1ns"); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if got := listRuns(t); len(got) != 0 {
		t.Fatalf("expected runs pruned, %d left", len(got))
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("run dir should be gone: %v", err)
	}
}

func TestCLI_BatchReportsFailures(t *testing.T) {
	home := isolatedHome(t)
	writeFile(t, filepath.Join(home, "in", "a.csv"), "x,y\n1,2\n3,4\n")
	writeFile(t, filepath.Join(home, "in", "b.csv"), "")

	err := runCmd(t, "analyze", filepath.Join(home, "in", "*.csv"), "--no-insights", "--no-plots", "--quiet")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed") {
		t.Fatalf("expected one failure, got %v", err)
	}
	var completed, failed int
	for _, r := range listRuns(t) {
		switch r.Status {
		case runs.StatusCompleted:
			completed++
		case runs.StatusFailed:
			failed++
		}
	}
	if completed != 1 || failed != 1 {
		t.Fatalf("completed=%d failed=%d", completed, failed)
	}
}

func TestCLI_AnalyzeNoMatches(t *testing.T) {
	home := isolatedHome(t)
	if err := runCmd(t, "analyze", filepath.Join(home, "missing-*.csv")); err == nil {
		t.Fatal("expected error for unmatched input")
	}
}

func TestCLI_ConfigSetPersists(t *testing.T) {
	home := isolatedHome(t)
	if err := runCmd(t, "config", "set", "model", "llama3"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	if err := runCmd(t, "config", "set", "provider", "LMStudio"); err != nil {
		t.Fatalf("config set provider: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".edaloom", "config.yaml")); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	c, err := cfgpkg.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Model != "llama3" || c.Provider != ai.ProviderOpenAI {
		t.Fatalf("config: model=%s provider=%s", c.Model, c.Provider)
	}
	if err := runCmd(t, "config", "set", "provider", "openrouter"); err == nil {
		t.Fatal("expected invalid provider error")
	}
	if err := runCmd(t, "config", "set", "nope", "1"); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestParseDelimiter(t *testing.T) {
	cases := map[string]rune{"": 0, ",": ',', "tab": '\t', ";": ';', "|": '|'}
	for in, want := range cases {
		got, err := parseDelimiter(in)
		if err != nil || got != want {
			t.Fatalf("parseDelimiter(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := parseDelimiter("::"); err == nil {
		t.Fatal("expected error")
	}
}
