package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve loads the reference tables, schedules their reload and exposes the
analysis API until interrupted.

Example:
  pharma-safe-lens serve --port 8000
  LLM_PROVIDER=ollama LLM_MODEL=llama3 pharma-safe-lens serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "listen port")
	serveCmd.Flags().String("address", "", "listen address")
	serveCmd.Flags().String("reload-schedule", "", "cron expression for reference reloads")
	serveCmd.Flags().String("audit-db", "", "SQLite file for the analysis audit log")
	serveCmd.Flags().Bool("tracing", false, "export OpenTelemetry spans to stdout")

	bindFlags(serveCmd, map[string]string{
		"port":            "port",
		"address":         "address",
		"reload-schedule": "reload_schedule",
		"audit-db":        "audit_db_path",
		"tracing":         "tracing_enabled",
	})

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logging.InitLoggerWithLevel(cfg.LogDir, cfg.LogLevel)
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		logging.Error("Failed to build application", "error", err)
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			logging.Warn("Failed to release resources", "error", err)
		}
	}()

	if err := app.Scheduler.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		return err
	}
	defer app.Scheduler.Stop()

	srv := server.NewServer(cfg, app.Handler)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logging.Error("Server failed", "error", err)
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
