package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edaloom/internal/ai"
)

var modelsProvider string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models installed on the configured Ollama host",
	Example: `  edaloom models
  EDALOOM_OLLAMA_HOST=http://gpu-box:11434 edaloom models`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		rt, name, err := newRuntime(c, modelsProvider)
		if err != nil {
			return err
		}
		lister, ok := rt.(ai.ModelLister)
		if !ok {
			return fmt.Errorf("provider %s cannot list models", name)
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		models, err := lister.ListModels(ctx)
		if err != nil {
			var unreach *ai.UnreachableError
			if errors.As(err, &unreach) {
				return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running (see https://ollama.com) and host is correct. You can set EDALOOM_OLLAMA_HOST or config 'ollama_host'. Detail: %w", unreach.Host, err)
			}
			return err
		}
		if len(models) == 0 {
			fmt.Println("(no models installed; try 'ollama pull " + c.Model + "')")
			return nil
		}
		sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })

		t := tablewriter.NewWriter(os.Stdout)
		t.SetHeader([]string{"", "Model", "Size", "Modified"})
		t.SetBorder(false)
		for _, m := range models {
			mark := ""
			if ai.HasModel([]ai.ModelInfo{m}, c.Model) {
				mark = "*"
			}
			t.Append([]string{mark, m.Name, humanize.Bytes(uint64(max(m.Size, 0))), modifiedAgo(m.ModifiedAt)})
		}
		t.Render()
		if !ai.HasModel(models, c.Model) {
			fmt.Printf("⚠ Configured model %q is not installed. Install it with 'ollama pull %s'.\n", c.Model, c.Model)
		}
		return nil
	},
}

func modifiedAgo(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().StringVar(&modelsProvider, "provider", "", "model provider (only ollama can list models)")
}
