package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
)

var errMissingText = errors.New(`missing field "text"`)

// envelope is the JSON shape the reader returns when asked for JSON.
type envelope struct {
	Text string `json:"text"`
}

// UnmarshalEasyJSON decodes an envelope. Unknown members are skipped; a
// missing or null "text" member is an error.
func (out *envelope) UnmarshalEasyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		in.AddError(errMissingText)
		return
	}

	var seen bool
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "text":
			out.Text = in.String()
			seen = true
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
	if !seen {
		in.AddError(errMissingText)
	}
}

// decodeEnvelope extracts the text member of a JSON envelope body.
func decodeEnvelope(body []byte) (string, error) {
	var env envelope
	if err := easyjson.Unmarshal(body, &env); err != nil {
		return "", err
	}
	return env.Text, nil
}

// EnvelopeFetcher implements Fetcher for upstreams that answer with
// {"text": "..."}.
type EnvelopeFetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewEnvelopeFetcher creates a JSON-envelope fetcher. A nil client or logger
// falls back to http.DefaultClient and slog.Default().
func NewEnvelopeFetcher(client *http.Client, logger *slog.Logger) *EnvelopeFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EnvelopeFetcher{client: client, logger: logger.With("component", "fetcher")}
}

// Fetch sends one GET to url and returns the "text" member of the response.
func (f *EnvelopeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	start := time.Now()
	f.logger.Debug("fetching", "url", url)

	body, err := get(ctx, f.client, url)
	if err != nil {
		return "", &Error{
			Kind:    TransportFailure,
			Message: fmt.Sprintf("Request failed: %v", err),
			Err:     err,
		}
	}

	text, err := decodeEnvelope(body)
	if err != nil {
		return "", &Error{
			Kind:    DecodeFailure,
			Message: fmt.Sprintf("Failed to parse response: %v", err),
			Err:     err,
		}
	}

	f.logger.Debug("fetched", "url", url, "bytes", len(text), "elapsed", time.Since(start))
	return text, nil
}
