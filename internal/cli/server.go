package cli

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kznrluk/jina-reader/internal/config"
	"github.com/kznrluk/jina-reader/internal/logger"
	"github.com/kznrluk/jina-reader/internal/slackhandler"
)

// NewServer creates the jina-reader-slack root command, which serves the
// "r" slash command to Slack.
func NewServer(version string) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "jina-reader-slack",
		Short:         "Serve the /r slash command to Slack",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			lg := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
			return serve(cmd.Context(), cfg, lg, nil)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	return root
}

// serve runs the Slack endpoint until ctx is done. ready, if set, receives
// the bound address once the listener is open.
func serve(ctx context.Context, cfg config.Config, lg *slog.Logger, ready chan<- string) error {
	a := newApp(cfg, cfg.ModeOr(config.ModeAsync), lg)
	h, err := slackhandler.New(a, slackhandler.Options{
		SigningSecret: cfg.Slack.SigningSecret,
		ResultTimeout: cfg.Slack.ResultTimeout,
		RateLimit:     cfg.Slack.RateLimit,
		RateBurst:     cfg.Slack.RateBurst,
		Logger:        lg,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Slack.ListenAddr)
	if err != nil {
		return err
	}
	srv := newHTTPServer(h.Routes())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("listening for Slack commands", "addr", ln.Addr().String(), "path", "/slack/commands")
		if ready != nil {
			ready <- ln.Addr().String()
		}
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Slack.ShutdownTimeout)
		defer cancel()

		lg.Info("shutting down")
		err := srv.Shutdown(shutdownCtx)

		done := make(chan struct{})
		go func() {
			h.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			lg.Warn("pending Slack deliveries abandoned")
		}
		return err
	})
	return g.Wait()
}

// newHTTPServer returns a server with timeouts suited to Slack's short
// request window.
func newHTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}
}
