package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding"
)

const testMarkdown = "Title: Test Page\n\nURL Source: https://example.com/\n\nMarkdown Content:\n# Main Title\n\nThis is the main content paragraph 1.\n"

func TestHTTPFetcher_Fetch(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(testMarkdown))
	}))
	defer server.Close()

	f := NewHTTPFetcher(NewClient(5*time.Second), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	text, err := f.Fetch(ctx, server.URL+"/https://example.com")
	require.NoError(t, err)
	require.Equal(t, testMarkdown, text)
	require.Equal(t, http.MethodGet, gotMethod)
	require.Equal(t, "/https://example.com", gotPath)
}

func TestHTTPFetcher_Fetch_ReturnsBodyVerbatim(t *testing.T) {
	bodies := []string{
		"",
		"plain",
		"  leading and trailing whitespace \n\n",
		"日本語のテキスト",
		"emoji 🚀 and é",
		`{"text":"not parsed"}`,
	}

	for _, body := range bodies {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))

		text, err := NewHTTPFetcher(nil, nil).Fetch(context.Background(), server.URL)
		server.Close()

		require.NoError(t, err, "body %q", body)
		require.Equal(t, body, text)
	}
}

func TestHTTPFetcher_Fetch_IgnoresStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("not found page"))
	}))
	defer server.Close()

	text, err := NewHTTPFetcher(nil, nil).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, "not found page", text)
}

func TestHTTPFetcher_Fetch_InvalidUTF8(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{'o', 'k', 0xff, 0xfe})
	}))
	defer server.Close()

	_, err := NewHTTPFetcher(nil, nil).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "bytes should be valid utf8: "), err.Error())
	require.True(t, IsKind(err, DecodeFailure))
	require.True(t, errors.Is(err, encoding.ErrInvalidUTF8))
}

func TestHTTPFetcher_Fetch_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewHTTPFetcher(nil, nil).Fetch(context.Background(), url)
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "HTTP request failed: "), err.Error())
	require.True(t, IsKind(err, TransportFailure))
	require.False(t, IsKind(err, DecodeFailure))
}

func TestHTTPFetcher_Fetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	_, err := NewHTTPFetcher(NewClient(50*time.Millisecond), nil).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	require.True(t, IsKind(err, TransportFailure))
}
