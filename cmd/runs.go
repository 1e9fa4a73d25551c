package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edaloom/internal/runs"
)

var (
	runsLimit     int
	runsOlderThan time.Duration
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect or prune stored analysis runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		_, st, err := openStorage(c)
		if err != nil {
			return err
		}
		defer st.Close()
		list, err := st.List(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("(no runs)")
			return nil
		}
		writeRunTable(os.Stdout, list)
		return nil
	},
}

func writeRunTable(w io.Writer, list []*runs.Run) {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"ID", "File", "Status", "Rows", "Cols", "Plots", "Created"})
	t.SetBorder(false)
	t.SetAutoWrapText(false)
	for _, r := range list {
		t.Append([]string{
			r.ID, r.SourceName, string(r.Status),
			strconv.Itoa(r.Rows), strconv.Itoa(r.Cols), strconv.Itoa(len(r.Artifacts)),
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	t.Render()
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one run and the files it produced",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		ws, st, err := openStorage(c)
		if err != nil {
			return err
		}
		defer st.Close()
		r, err := st.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("id:       %s\n", r.ID)
		fmt.Printf("source:   %s\n", r.SourceName)
		fmt.Printf("status:   %s\n", r.Status)
		if r.Error != "" {
			fmt.Printf("error:    %s\n", r.Error)
		}
		fmt.Printf("shape:    %d rows × %d cols\n", r.Rows, r.Cols)
		if r.Model != "" {
			fallback := ""
			if r.InsightsFallback {
				fallback = " (fallback text)"
			}
			fmt.Printf("model:    %s%s\n", r.Model, fallback)
		}
		fmt.Printf("created:  %s\n", r.CreatedAt.Local().Format(time.RFC3339))
		if d := r.Duration(); d > 0 {
			fmt.Printf("took:     %s\n", d.Round(time.Millisecond))
		}
		fmt.Printf("dir:      %s\n", ws.Dir(r.ID))
		for _, name := range r.Files() {
			fmt.Printf("  - %s\n", filepath.Join(ws.Dir(r.ID), name))
		}
		return nil
	},
}

var runsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		older := c.Retention()
		if cmd.Flags().Changed("older-than") {
			older = runsOlderThan
		}
		if older <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
		ws, st, err := openStorage(c)
		if err != nil {
			return err
		}
		defer st.Close()
		removed, err := runs.Prune(cmd.Context(), st, ws, older, logger.Named("prune"))
		fmt.Printf("✓ Removed %d run(s) older than %s\n", len(removed), older)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsPruneCmd)
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs to list")
	runsPruneCmd.Flags().DurationVar(&runsOlderThan, "older-than", 0, "age cutoff, e.g. 72h (default: retention_hours from config)")
}
