// Command dbdiff-server runs the dbdiff HTTP API as a standalone service.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/kilupskalvis/dbdiff/internal/config"
	"github.com/kilupskalvis/dbdiff/internal/server"
	"github.com/kilupskalvis/dbdiff/internal/store"
)

func main() {
	listen := flag.String("listen", envOrDefault("DBDIFF_LISTEN", "127.0.0.1:8730"), "Listen address")
	dataDir := flag.String("data-dir", envOrDefault("DBDIFF_DATA_DIR", "/var/lib/dbdiff"), "Data directory")
	token := flag.String("token", os.Getenv("DBDIFF_TOKEN"), "Bearer token required by the API")
	logLevel := flag.String("log-level", envOrDefault("DBDIFF_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", envOrDefault("DBDIFF_LOG_FORMAT", "json"), "Log format (json, text)")
	rowLimit := flag.Int("row-limit", envIntOrDefault("DBDIFF_ROW_LIMIT", config.DefaultRowLimit), "Maximum rows captured per table")
	diffWorkers := flag.Int("diff-workers", envIntOrDefault("DBDIFF_DIFF_WORKERS", config.DefaultDiffWorkers), "Tables diffed concurrently")
	tlsCert := flag.String("tls-cert", os.Getenv("DBDIFF_TLS_CERT"), "TLS certificate file")
	tlsKey := flag.String("tls-key", os.Getenv("DBDIFF_TLS_KEY"), "TLS key file")
	flag.Parse()

	// Setup logger
	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if *logFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		logger.Error("failed to create data directory", "error", err, "path", *dataDir)
		os.Exit(1)
	}

	dbPath := filepath.Join(*dataDir, config.DatabaseFile)
	st, err := store.New(dbPath)
	if err != nil {
		logger.Error("failed to open store", "error", err, "path", dbPath)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Initialize(); err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}

	if err := server.CheckListen(*listen, *token); err != nil {
		logger.Error("invalid listen configuration", "error", err)
		os.Exit(1)
	}

	cfg := server.DefaultServerConfig()
	cfg.Token = *token
	cfg.RowLimit = *rowLimit
	cfg.DiffWorkers = *diffWorkers
	if *token == "" {
		logger.Warn("no token configured; the API only listens on loopback")
	}

	h, handlerCleanup := server.Handler(st, cfg, logger)
	defer handlerCleanup()

	srv := &http.Server{
		Addr:              *listen,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return context.Background() },
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting dbdiff-server", "listen", *listen, "data_dir", *dataDir)
		var err error
		if *tlsCert != "" && *tlsKey != "" {
			err = srv.ListenAndServeTLS(*tlsCert, *tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return defaultVal
}
