package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sentiment-analyst/internal/api"
	"sentiment-analyst/observability"
)

// Set at build time via -ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rt *runtime

var rootCmd = &cobra.Command{
	Use:   "sentiment-analyst",
	Short: "News sentiment analysis for public companies",
	Long: `sentiment-analyst resolves a company name to its ticker, fetches recent
news coverage and asks a language model for an overall sentiment with a
bull and bear case.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		var err error
		rt, err = bootstrap(cmd.Context())
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return observability.ShutdownTracing(ctx)
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)

	analyzeCmd.Flags().Int("days", 0, "lookback window in days (1-30, default from config)")
	analyzeCmd.Flags().Int("max", 0, "maximum articles to analyze (5-50, default from config)")
	analyzeCmd.Flags().Bool("json", false, "print the report as JSON")

	serveCmd.Flags().String("addr", "", "listen address (default from HTTP_ADDR)")
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "sentiment-analyst %s\n", version)
		fmt.Fprintf(out, "  commit:  %s\n", commit)
		fmt.Fprintf(out, "  built:   %s\n", date)
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [company]",
	Short: "Analyze news sentiment for a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		maxArticles, _ := cmd.Flags().GetInt("max")
		asJSON, _ := cmd.Flags().GetBool("json")

		report, err := rt.app.AnalyzeCompany(cmd.Context(), "cli", args[0], days, maxArticles)
		if err != nil {
			return describeError(err)
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		return renderReport(cmd.OutOrStdout(), report)
	},
}

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = rt.cfg.HTTP.Addr
		}

		handler := api.NewHandler(rt.app, rt.cfg)
		server := &http.Server{
			Addr:              addr,
			Handler:           api.NewRouter(handler, rt.cfg),
			ReadHeaderTimeout: 10 * time.Second,
			// Analyses may run up to the configured timeout
			WriteTimeout: time.Duration(rt.cfg.Analysis.TimeoutSeconds+10) * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			observability.Info("starting HTTP server", "addr", addr, "version", version)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-cmd.Context().Done():
		}

		observability.Info("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		observability.Info("HTTP server stopped")
		return nil
	},
}
