package fetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// NewClient returns the http.Client both fetchers use. Proxy settings come
// from the environment (HTTP_PROXY, HTTPS_PROXY). A zero timeout disables the
// overall request deadline.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// HTTPFetcher implements Fetcher with a blocking GET whose body is returned
// as raw text.
type HTTPFetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPFetcher creates a raw-text fetcher. A nil client or logger falls
// back to http.DefaultClient and slog.Default().
func NewHTTPFetcher(client *http.Client, logger *slog.Logger) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{client: client, logger: logger.With("component", "fetcher")}
}

// Fetch sends one GET to url and returns the body verbatim once it is known
// to be valid UTF-8. The status code is not inspected.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	start := time.Now()
	f.logger.Debug("fetching", "url", url)

	body, err := get(ctx, f.client, url)
	if err != nil {
		return "", &Error{
			Kind:    TransportFailure,
			Message: fmt.Sprintf("HTTP request failed: %v", err),
			Err:     err,
		}
	}

	if _, n, err := transform.Bytes(encoding.UTF8Validator, body); err != nil {
		return "", &Error{
			Kind:    DecodeFailure,
			Message: fmt.Sprintf("bytes should be valid utf8: invalid utf-8 sequence from index %d", n),
			Err:     err,
		}
	}

	f.logger.Debug("fetched", "url", url, "bytes", len(body), "elapsed", time.Since(start))
	return string(body), nil
}

// get performs a GET with default headers and reads the whole body.
func get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	return body, nil
}
