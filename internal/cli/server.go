package cli

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kilupskalvis/dbdiff/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveListen    string
	serveToken     string
	serveLogFormat string
	serveRateLimit int
	serveTLSCert   string
	serveTLSKey    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dbdiff HTTP API for this workspace",
	Long: `Serve the dbdiff HTTP API on top of the workspace's snapshot database.

When a token is set, every /api/ request needs "Authorization: Bearer <token>".
Without a token the server only listens on a loopback address.

Examples:
  dbdiff serve
  dbdiff serve --listen 0.0.0.0:8730 --token secret`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveListen, "listen", envOrDefault("DBDIFF_LISTEN", "127.0.0.1:8730"), "Listen address (host:port)")
	f.StringVar(&serveToken, "token", os.Getenv("DBDIFF_TOKEN"), "Bearer token required by the API (env: DBDIFF_TOKEN)")
	f.StringVar(&serveLogFormat, "log-format", envOrDefault("DBDIFF_LOG_FORMAT", "json"), "Log format (json|text)")
	f.IntVar(&serveRateLimit, "rate-limit", server.DefaultServerConfig().RequestsPerMinute, "Requests per minute per client, 0 disables")
	f.StringVar(&serveTLSCert, "tls-cert", os.Getenv("DBDIFF_TLS_CERT"), "TLS certificate file")
	f.StringVar(&serveTLSKey, "tls-key", os.Getenv("DBDIFF_TLS_KEY"), "TLS key file")
}

func runServe(_ *cobra.Command, _ []string) {
	if err := server.CheckListen(serveListen, serveToken); err != nil {
		exitError("%v", err)
	}

	c := initContext()
	defer c.Close()

	// Request logs go to stdout; the workspace log file keeps CLI diagnostics.
	logger := newLogger(os.Stdout, c.Config.LogLevel, serveLogFormat)
	slog.SetDefault(logger)

	cfg := server.DefaultServerConfig()
	cfg.Token = serveToken
	cfg.RequestsPerMinute = serveRateLimit
	cfg.RowLimit = c.Config.RowLimit
	cfg.DiffWorkers = c.Config.DiffWorkers
	cfg.Workspace = c.Config

	h, handlerCleanup := server.Handler(c.Store, cfg, logger)
	defer handlerCleanup()

	srv := &http.Server{
		Addr:              serveListen,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return context.Background() },
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting dbdiff api", "listen", serveListen, "workspace", c.Config.Path())
		var err error
		if serveTLSCert != "" && serveTLSKey != "" {
			err = srv.ListenAndServeTLS(serveTLSCert, serveTLSKey)
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

// envOrDefault returns the value of the environment variable key, or defaultVal if unset.
func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
