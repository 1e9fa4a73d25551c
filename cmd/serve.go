package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/edaloom/internal/pipeline"
	"github.com/KaramelBytes/edaloom/internal/runs"
	"github.com/KaramelBytes/edaloom/internal/server"
)

var (
	serveAddr     string
	serveProvider string
	serveModel    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI",
	Long: `Start the web UI on a local address. Uploaded files and their results are
stored under data_dir and pruned after retention_hours.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		addr := c.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		gen, err := newGenerator(c, serveProvider, serveModel, c.InsightsEnabled)
		if err != nil {
			return err
		}
		p, closeFn, err := newPipeline(c, gen)
		if err != nil {
			return err
		}
		defer closeFn()

		defaults := pipeline.DefaultOptions()
		defaults.Insights = c.InsightsEnabled
		srv, err := server.New(p, server.Options{
			UploadLimit: c.UploadLimit(),
			Defaults:    defaults,
			Logger:      logger.Named("server"),
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		runs.StartCleanup(ctx, p.Store, p.Workspace, c.Retention(), c.CleanupInterval(), logger.Named("cleanup"))

		fmt.Printf("✓ edaloom is running on http://%s (Ctrl+C to stop)\n", addr)
		logger.Info("serving", zap.String("addr", addr), zap.String("data_dir", c.DataDir), zap.Bool("insights", c.InsightsEnabled))
		// a full analysis, model call included, must fit in one response
		writeTimeout := c.InsightsTimeout() + 2*time.Minute
		if err := srv.ListenAndServe(ctx, addr, writeTimeout); err != nil {
			return err
		}
		fmt.Println("✓ Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, 127.0.0.1:7860)")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", "model provider: ollama|openai (overrides config)")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "model id (overrides config)")
}
