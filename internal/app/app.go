package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/kznrluk/jina-reader/internal/fetcher"
	"github.com/kznrluk/jina-reader/internal/jobs"
)

const (
	// CommandName is the only slash command this app answers.
	CommandName = "r"
	// ReaderPrefix is prepended verbatim to the command argument.
	ReaderPrefix = "https://r.jina.ai/"
	// SectionLabel labels every output section.
	SectionLabel = "Jina Reader"
	// Placeholder is returned by the asynchronous handler while the fetch runs.
	Placeholder = "Fetching content..."
	// placeholderEnd is the fixed end of the placeholder section. It does
	// not match len(Placeholder).
	placeholderEnd = 22
)

// ErrMissingArgument is returned when "r" is invoked without a URL.
var ErrMissingArgument = errors.New("Please provide a URL.")

// UnknownCommandError is returned for any command name other than "r".
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("Unknown slash command: %s", e.Name)
}

// Invocation is one host call of a slash command.
type Invocation struct {
	Name      string
	Arguments []string
}

// Range is a half-open byte span [Start, End) into Output.Text.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Section labels a span of the output text.
type Section struct {
	Range Range  `json:"range"`
	Label string `json:"label"`
}

// Output is what a slash command hands back to its host.
type Output struct {
	Text     string    `json:"text"`
	Sections []Section `json:"sections"`
	// JobID identifies the background fetch of an asynchronous invocation.
	JobID string `json:"job_id,omitempty"`
}

// Command describes the slash command for host registration.
type Command struct {
	Name             string
	Description      string
	TooltipText      string
	RequiresArgument bool
}

// App encapsulates the core application logic.
type App struct {
	prefix  string
	fetcher fetcher.Fetcher
	async   *fetcher.Async
	jobs    *jobs.Store
}

// Option configures an App.
type Option func(*App)

// WithPrefix replaces ReaderPrefix, e.g. for a self-hosted reader.
func WithPrefix(prefix string) Option {
	return func(a *App) {
		if prefix != "" {
			a.prefix = prefix
		}
	}
}

// NewApp creates an App that blocks on f and returns its text directly.
func NewApp(f fetcher.Fetcher, opts ...Option) *App {
	a := &App{prefix: ReaderPrefix, fetcher: f}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewAsyncApp creates an App that schedules fetches on async, registers
// them in store and returns a placeholder immediately.
func NewAsyncApp(async *fetcher.Async, store *jobs.Store, opts ...Option) *App {
	a := &App{prefix: ReaderPrefix, async: async, jobs: store}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Async reports whether the app schedules fetches in the background.
func (a *App) Async() bool { return a.async != nil }

// Jobs returns the store asynchronous results are collected from. It is nil
// for a synchronous app.
func (a *App) Jobs() *jobs.Store { return a.jobs }

// Describe returns the registration metadata of the slash command.
func Describe() Command {
	return Command{
		Name:             CommandName,
		Description:      "Fetch a web page as text through Jina Reader",
		TooltipText:      "r <url>",
		RequiresArgument: true,
	}
}

// TargetURL returns the URL fetched for the raw command argument.
func (a *App) TargetURL(arg string) string {
	return a.prefix + arg
}

// RunSlashCommand validates inv and fetches its URL argument.
func (a *App) RunSlashCommand(ctx context.Context, inv Invocation) (Output, error) {
	if inv.Name != CommandName {
		return Output{}, &UnknownCommandError{Name: inv.Name}
	}
	if len(inv.Arguments) == 0 {
		return Output{}, ErrMissingArgument
	}

	url := a.TargetURL(inv.Arguments[0])

	if a.async != nil {
		slot := a.async.Start(ctx, url)
		return Output{
			Text:     Placeholder,
			Sections: []Section{{Range: Range{Start: 0, End: placeholderEnd}, Label: SectionLabel}},
			JobID:    a.jobs.Add(slot),
		}, nil
	}

	text, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		return Output{}, err
	}
	return TextOutput(text), nil
}

// TextOutput wraps text in a single section spanning all of it.
func TextOutput(text string) Output {
	return Output{
		Text:     text,
		Sections: []Section{{Range: Range{Start: 0, End: len(text)}, Label: SectionLabel}},
	}
}
