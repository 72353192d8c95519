package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kznrluk/jina-reader/internal/fetcher"
	"github.com/kznrluk/jina-reader/internal/jobs"
)

// MockFetcher is a mock implementation of the Fetcher interface.
type MockFetcher struct {
	FetchFunc func(ctx context.Context, url string) (string, error)

	mu    sync.Mutex
	calls []string
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	m.mu.Unlock()
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, url)
	}
	return "", errors.New("FetchFunc not implemented")
}

func TestApp_RunSlashCommand_UnknownCommand(t *testing.T) {
	for _, name := range []string{"unknown", "", "R", "r ", "read"} {
		mock := &MockFetcher{}
		app := NewApp(mock)

		_, err := app.RunSlashCommand(context.Background(), Invocation{Name: name, Arguments: []string{"https://example.com"}})

		var unknown *UnknownCommandError
		require.ErrorAs(t, err, &unknown)
		require.Equal(t, name, unknown.Name)
		require.Equal(t, "Unknown slash command: "+name, err.Error())
		require.Empty(t, mock.calls, "fetcher must not be called for %q", name)
	}
}

func TestApp_RunSlashCommand_MissingArgument(t *testing.T) {
	mock := &MockFetcher{}
	app := NewApp(mock)

	for _, args := range [][]string{nil, {}} {
		_, err := app.RunSlashCommand(context.Background(), Invocation{Name: "r", Arguments: args})
		require.ErrorIs(t, err, ErrMissingArgument)
		require.Equal(t, "Please provide a URL.", err.Error())
	}
	require.Empty(t, mock.calls)
}

func TestApp_RunSlashCommand_TargetURL(t *testing.T) {
	mock := &MockFetcher{
		FetchFunc: func(ctx context.Context, url string) (string, error) {
			return "ok", nil
		},
	}
	app := NewApp(mock)

	_, err := app.RunSlashCommand(context.Background(), Invocation{Name: "r", Arguments: []string{"https://example.com", "ignored"}})
	require.NoError(t, err)
	require.Equal(t, []string{"https://r.jina.ai/https://example.com"}, mock.calls)

	// The argument is used verbatim, without escaping or normalization.
	mock.calls = nil
	_, err = app.RunSlashCommand(context.Background(), Invocation{Name: "r", Arguments: []string{"example.com/a b?q=1#x"}})
	require.NoError(t, err)
	require.Equal(t, []string{"https://r.jina.ai/example.com/a b?q=1#x"}, mock.calls)
}

func TestApp_RunSlashCommand_WithPrefix(t *testing.T) {
	mock := &MockFetcher{
		FetchFunc: func(ctx context.Context, url string) (string, error) {
			return "ok", nil
		},
	}
	app := NewApp(mock, WithPrefix("http://reader.internal/"))

	_, err := app.RunSlashCommand(context.Background(), Invocation{Name: "r", Arguments: []string{"https://example.com"}})
	require.NoError(t, err)
	require.Equal(t, []string{"http://reader.internal/https://example.com"}, mock.calls)
	require.Equal(t, "https://r.jina.ai/x", NewApp(mock, WithPrefix("")).TargetURL("x"))
}

func TestApp_RunSlashCommand_Success(t *testing.T) {
	mock := &MockFetcher{
		FetchFunc: func(ctx context.Context, url string) (string, error) {
			return "Mocked response text", nil
		},
	}
	app := NewApp(mock)

	out, err := app.RunSlashCommand(context.Background(), Invocation{Name: "r", Arguments: []string{"https://example.com"}})
	require.NoError(t, err)
	require.Equal(t, "Mocked response text", out.Text)
	require.Equal(t, []Section{{Range: Range{Start: 0, End: len("Mocked response text")}, Label: "Jina Reader"}}, out.Sections)
	// The section ends at the byte length of the text: 20 for this string.
	require.Equal(t, 20, out.Sections[0].Range.End)
	require.Empty(t, out.JobID)
}

func TestApp_RunSlashCommand_FetchError(t *testing.T) {
	mock := &MockFetcher{
		FetchFunc: func(ctx context.Context, url string) (string, error) {
			return "", errors.New("boom")
		},
	}
	app := NewApp(mock)

	_, err := app.RunSlashCommand(context.Background(), Invocation{Name: "r", Arguments: []string{"https://example.com"}})
	require.Error(t, err)
	require.Equal(t, "boom", err.Error())
}

func TestApp_RunSlashCommand_Async(t *testing.T) {
	release := make(chan struct{})
	mock := &MockFetcher{
		FetchFunc: func(ctx context.Context, url string) (string, error) {
			<-release
			return "", errors.New("boom")
		},
	}
	store := jobs.NewStore()
	app := NewAsyncApp(fetcher.NewAsync(mock, nil), store)
	require.True(t, app.Async())

	for _, arg := range []string{"a", "https://example.com/a/much/longer/path/than/twenty-two/bytes"} {
		out, err := app.RunSlashCommand(context.Background(), Invocation{Name: "r", Arguments: []string{arg}})
		require.NoError(t, err)
		require.Equal(t, "Fetching content...", out.Text)
		require.Equal(t, []Section{{Range: Range{Start: 0, End: 22}, Label: "Jina Reader"}}, out.Sections)
		require.NotEmpty(t, out.JobID)
	}
	require.Equal(t, 2, store.Len())

	close(release)
}

func TestApp_RunSlashCommand_AsyncResultCollected(t *testing.T) {
	mock := &MockFetcher{
		FetchFunc: func(ctx context.Context, url string) (string, error) {
			return "fetched " + url, nil
		},
	}
	store := jobs.NewStore()
	app := NewAsyncApp(fetcher.NewAsync(mock, nil), store)

	out, err := app.RunSlashCommand(context.Background(), Invocation{Name: "r", Arguments: []string{"https://example.com"}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	text, err := app.Jobs().Wait(ctx, out.JobID)
	require.NoError(t, err)
	require.Equal(t, "fetched https://r.jina.ai/https://example.com", text)
}

func TestApp_RunSlashCommand_AsyncValidation(t *testing.T) {
	app := NewAsyncApp(fetcher.NewAsync(&MockFetcher{}, nil), jobs.NewStore())

	_, err := app.RunSlashCommand(context.Background(), Invocation{Name: "r"})
	require.ErrorIs(t, err, ErrMissingArgument)

	_, err = app.RunSlashCommand(context.Background(), Invocation{Name: "unknown"})
	require.EqualError(t, err, "Unknown slash command: unknown")
	require.Equal(t, 0, app.Jobs().Len())
}

func TestTextOutput_SectionWithinText(t *testing.T) {
	for _, text := range []string{"", "a", "日本語", "Mocked response text"} {
		out := TextOutput(text)
		require.Len(t, out.Sections, 1)
		require.Equal(t, 0, out.Sections[0].Range.Start)
		require.Equal(t, len(text), out.Sections[0].Range.End)
	}
}

func TestApp_Describe(t *testing.T) {
	cmd := Describe()
	require.Equal(t, "r", cmd.Name)
	require.True(t, cmd.RequiresArgument)
	require.NotEmpty(t, cmd.Description)
}
