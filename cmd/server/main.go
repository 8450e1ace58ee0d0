/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance deduction engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load the schedule rule (JSON config or built-in preset)
  3. Open the record store (JSON file or SQLite)
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (default: 8080)
  -data      Backing store path (default: dtr_records.json)
             With -backend=sqlite, use a .db path or ":memory:"
  -backend   Store backend: file, sqlite or memory (default: file)
  -schedule  Schedule rule JSON file (default: built-in standard
             Mon-Fri schedule with day-fraction scoring)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

EXAMPLES:
  # Run with the JSON flat-file store
  ./server -data=./dtr_records.json

  # Run with SQLite and a custom schedule
  ./server -backend=sqlite -data=./dtr.db -schedule=./schedule.json

SEE ALSO:
  - api/server.go: Router configuration
  - factory/schedule.go: Schedule JSON format
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/dtr"
	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/store/file"
	"github.com/warp/attendance-engine/store/memory"
	"github.com/warp/attendance-engine/store/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dataPath := flag.String("data", "dtr_records.json", "backing store path")
	backend := flag.String("backend", "file", "store backend: file, sqlite or memory")
	schedulePath := flag.String("schedule", "", "schedule rule JSON file (empty = built-in standard schedule)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	rule, err := loadRule(*schedulePath)
	if err != nil {
		logger.Error("failed to load schedule", "path", *schedulePath, "error", err)
		os.Exit(1)
	}

	store, err := openStore(*backend, *dataPath, rule, logger)
	if err != nil {
		logger.Error("failed to open store", "backend", *backend, "path", *dataPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	handler := api.NewHandler(store, rule)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", fmt.Sprintf("http://localhost:%d/api", *port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func loadRule(path string) (*dtr.ScheduleRule, error) {
	if path == "" {
		return dtr.StandardSchedule(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return factory.ParseSchedule(data)
}

func openStore(backend, path string, rule *dtr.ScheduleRule, logger *slog.Logger) (dtr.Store, error) {
	switch backend {
	case "file":
		return file.New(path, rule, logger)
	case "sqlite":
		return sqlite.New(path, rule, logger)
	case "memory":
		return memory.New(rule), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (use file, sqlite or memory)", backend)
	}
}
