package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edaloom/internal/insight"
	"github.com/KaramelBytes/edaloom/internal/pipeline"
)

var (
	anaNoPlots    bool
	anaBoxPlots   bool
	anaPairPlot   bool
	anaPDF        bool
	anaNoInsights bool
	anaStrict     bool
	anaModel      string
	anaProvider   string
	anaDelimiter  string
	anaSheet      string
	anaQuiet      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <files...>",
	Short: "Run the EDA pipeline on one or more CSV/TSV/XLSX files",
	Example: `  edaloom analyze sales.csv
  edaloom analyze data/*.csv --boxplots --pdf --quiet
  edaloom analyze book.xlsx --sheet Q3 --no-insights`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		delim, err := parseDelimiter(anaDelimiter)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("strict") {
			c.InsightsStrict = anaStrict
		}

		opt := pipeline.Options{
			ShowPlots: !anaNoPlots,
			BoxPlots:  anaBoxPlots,
			PairPlot:  anaPairPlot,
			PDF:       anaPDF,
			Insights:  c.InsightsEnabled && !anaNoInsights,
		}
		opt.Load.Delimiter = delim
		opt.Load.Sheet = anaSheet

		gen, err := newGenerator(c, anaProvider, anaModel, opt.Insights)
		if err != nil {
			return err
		}
		p, closeFn, err := newPipeline(c, gen)
		if err != nil {
			return err
		}
		defer closeFn()

		batch := len(files) > 1 || anaQuiet
		total := len(files)
		var failed int
		for i, path := range files {
			if batch && !anaQuiet {
				fmt.Printf("[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			res, err := p.Run(cmd.Context(), pipeline.Input{SourcePath: path, Options: opt})
			if err != nil {
				if !batch {
					return err
				}
				failed++
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", filepath.Base(path), err)
				continue
			}
			if res.InsightsFallback {
				fmt.Fprintf(os.Stderr, "⚠ %s\n", res.Insights)
			}
			if batch {
				fmt.Printf("✓ %s: %d rows × %d cols, %d plots → %s\n", filepath.Base(path), res.Rows, res.Cols, len(res.Artifacts), res.Dir)
				continue
			}
			fmt.Println(res.Report)
			printArtifacts(res)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, total)
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths, deduplicated and sorted.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab", `\t`:
		return '\t', nil
	case ";":
		return ';', nil
	case "|", "pipe":
		return '|', nil
	default:
		return 0, fmt.Errorf("unsupported --delimiter: %s", s)
	}
}

func printArtifacts(res *pipeline.Result) {
	fmt.Printf("✓ Run %s saved to %s\n", res.RunID, res.Dir)
	fmt.Printf("  insights: %s\n", res.InsightsPath)
	fmt.Printf("  report:   %s\n", res.ReportPath)
	if res.PDFPath != "" {
		fmt.Printf("  pdf:      %s\n", res.PDFPath)
	}
	for _, a := range res.Artifacts {
		fmt.Printf("  %-9s %s\n", a.Kind+":", filepath.Join(res.Dir, a.Name))
	}
	if strings.HasPrefix(res.Insights, insight.DisabledText) {
		fmt.Println("  (AI insights were disabled for this run)")
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&anaNoPlots, "no-plots", false, "skip all visualizations")
	analyzeCmd.Flags().BoolVar(&anaBoxPlots, "boxplots", false, "also draw a box plot per numeric column")
	analyzeCmd.Flags().BoolVar(&anaPairPlot, "pairplot", false, "draw a scatter matrix when there are 2 to 5 numeric columns")
	analyzeCmd.Flags().BoolVar(&anaPDF, "pdf", false, "bundle the plots into visual_report.pdf")
	analyzeCmd.Flags().BoolVar(&anaNoInsights, "no-insights", false, "do not call the language model")
	analyzeCmd.Flags().BoolVar(&anaStrict, "strict", false, "fail the run when the model cannot answer (overrides config)")
	analyzeCmd.Flags().StringVar(&anaModel, "model", "", "model id (overrides config)")
	analyzeCmd.Flags().StringVar(&anaProvider, "provider", "", "model provider: ollama|openai (overrides config)")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',', ';', 'tab' or '|' (default: sniffed)")
	analyzeCmd.Flags().StringVar(&anaSheet, "sheet", "", "sheet name for XLSX files (default: first sheet)")
	analyzeCmd.Flags().BoolVarP(&anaQuiet, "quiet", "q", false, "print one summary line per file")
}
