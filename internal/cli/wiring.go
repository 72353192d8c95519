package cli

import (
	"log/slog"

	"github.com/kznrluk/jina-reader/internal/app"
	"github.com/kznrluk/jina-reader/internal/config"
	"github.com/kznrluk/jina-reader/internal/fetcher"
	"github.com/kznrluk/jina-reader/internal/jobs"
)

// newApp wires the command core for mode: a blocking raw-text fetcher for
// ModeSync, a background JSON-envelope fetcher for ModeAsync.
func newApp(cfg config.Config, mode string, lg *slog.Logger) *app.App {
	client := fetcher.NewClient(cfg.HTTP.Timeout)
	prefix := app.WithPrefix(cfg.Reader.BaseURL)

	if mode == config.ModeAsync {
		async := fetcher.NewAsync(fetcher.NewEnvelopeFetcher(client, lg), lg)
		return app.NewAsyncApp(async, jobs.NewStore(), prefix)
	}
	return app.NewApp(fetcher.NewHTTPFetcher(client, lg), prefix)
}
