package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kznrluk/jina-reader/internal/app"
	"github.com/kznrluk/jina-reader/internal/config"
	"github.com/kznrluk/jina-reader/internal/logger"
	"github.com/kznrluk/jina-reader/internal/render"
)

// New creates the jina-reader root command.
func New(version string) *cobra.Command {
	var (
		configPath string
		baseURL    string
		logLevel   string
		timeout    time.Duration
		async      bool
		raw        bool
	)

	desc := app.Describe()
	root := &cobra.Command{
		Use:   "jina-reader <command> [args...]",
		Short: desc.Description,
		Long: fmt.Sprintf("Runs a slash command. The only command is %q (usage: %s), which\nfetches %s<url> and prints the extracted text.",
			desc.Name, desc.TooltipText, app.ReaderPrefix),
		Example:       "  jina-reader r https://example.com\n  jina-reader --raw r https://go.dev > go.md",
		Version:       version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("base-url") {
				cfg.Reader.BaseURL = baseURL
			}
			if flags.Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if flags.Changed("timeout") {
				cfg.HTTP.Timeout = timeout
			}
			mode := cfg.ModeOr(config.ModeSync)
			if async {
				mode = config.ModeAsync
			}

			lg := logger.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
			a := newApp(cfg, mode, lg)

			out, err := a.RunSlashCommand(cmd.Context(), app.Invocation{Name: args[0], Arguments: args[1:]})
			if err != nil {
				return err
			}

			if out.JobID != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), out.Text)
				text, err := a.Jobs().Wait(cmd.Context(), out.JobID)
				if err != nil {
					return err
				}
				out = app.TextOutput(text)
			}

			return render.Write(cmd.OutOrStdout(), out, renderOptions(cmd.OutOrStdout(), raw))
		},
	}

	flags := root.Flags()
	flags.SetInterspersed(false)
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&baseURL, "base-url", app.ReaderPrefix, "reader URL the argument is appended to")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.DurationVar(&timeout, "timeout", 60*time.Second, "HTTP request timeout, 0 for none")
	flags.BoolVar(&async, "async", false, "fetch in the background and wait for the JSON result")
	flags.BoolVar(&raw, "raw", false, "print the text verbatim even on a terminal")

	return root
}

// renderOptions pretty-prints only when w is a terminal.
func renderOptions(w io.Writer, raw bool) render.Options {
	if raw {
		return render.Options{}
	}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return render.Options{}
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		width = 0
	}
	return render.Options{Pretty: true, Width: width}
}
