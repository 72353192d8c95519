package slackhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/slack-go/slack"
	"golang.org/x/time/rate"

	"github.com/kznrluk/jina-reader/internal/app"
)

const (
	// maxBodyBytes bounds the slash command form Slack posts.
	maxBodyBytes = 1 << 20
	// maxMessageRunes is where Slack starts truncating message text.
	maxMessageRunes = 40000
	postTimeout     = 10 * time.Second

	timeoutMessage = "Timed out waiting for the page content."
)

// Options configures a Handler.
type Options struct {
	SigningSecret string
	// ResultTimeout bounds how long a delivery waits for a background fetch.
	ResultTimeout time.Duration
	// RateLimit is the accepted commands per second; 0 disables limiting.
	RateLimit float64
	RateBurst int
	Logger    *slog.Logger
}

// Handler serves Slack slash command requests.
type Handler struct {
	app           *app.App
	signingSecret string
	resultTimeout time.Duration
	limiter       *rate.Limiter
	logger        *slog.Logger

	// postWebhook delivers a message to a response_url.
	postWebhook func(ctx context.Context, url string, msg *slack.WebhookMessage) error

	deliveries sync.WaitGroup
}

// New creates a Handler for appCore.
func New(appCore *app.App, opts Options) (*Handler, error) {
	if opts.SigningSecret == "" {
		return nil, errors.New("slack signing secret must be set")
	}
	if opts.ResultTimeout <= 0 {
		opts.ResultTimeout = 2 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	h := &Handler{
		app:           appCore,
		signingSecret: opts.SigningSecret,
		resultTimeout: opts.ResultTimeout,
		logger:        opts.Logger.With("component", "slack"),
		postWebhook:   slack.PostWebhookContext,
	}
	if opts.RateLimit > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.RateBurst, 1))
	}
	return h, nil
}

// Routes returns the HTTP handler for the slash command and health check.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /slack/commands", h.HandleCommand)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// HandleCommand handles a slash command POST from Slack.
func (h *Handler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := drainAndReplaceBody(r)
	if err != nil {
		h.logger.Warn("error reading request body", "err", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	verifier, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		h.logger.Warn("error creating secrets verifier", "err", err)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if _, err := verifier.Write(body); err != nil {
		h.logger.Error("error writing body to verifier", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if err := verifier.Ensure(); err != nil {
		h.logger.Warn("error verifying request signature", "err", err)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	s, err := slack.SlashCommandParse(r)
	if err != nil {
		h.logger.Warn("error parsing slash command", "err", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if h.limiter != nil && !h.limiter.Allow() {
		h.logger.Warn("rate limited", "user", s.UserID, "channel", s.ChannelID)
		h.respond(w, slack.ResponseTypeEphemeral, "Too many requests, try again shortly.")
		return
	}

	inv := invocationFrom(s)
	h.logger.Info("received slash command", "command", inv.Name, "args", inv.Arguments, "user", s.UserID, "channel", s.ChannelID)

	out, err := h.app.RunSlashCommand(r.Context(), inv)
	if err != nil {
		h.respond(w, slack.ResponseTypeEphemeral, err.Error())
		return
	}

	if out.JobID == "" {
		h.respond(w, slack.ResponseTypeInChannel, truncate(out.Text))
		return
	}

	// Acknowledge now; Slack gives up on the request after three seconds.
	h.respond(w, slack.ResponseTypeEphemeral, out.Text)
	h.deliver(s.ResponseURL, out.JobID, inv.Arguments[0])
}

// deliver waits for job id in the background and posts its outcome to
// responseURL.
func (h *Handler) deliver(responseURL, id, target string) {
	h.deliveries.Add(1)
	go func() {
		defer h.deliveries.Done()

		ctx, cancel := context.WithTimeout(context.Background(), h.resultTimeout)
		text, err := h.app.Jobs().Wait(ctx, id)
		timedOut := ctx.Err() != nil
		cancel()

		msg := &slack.WebhookMessage{
			ResponseType:    slack.ResponseTypeInChannel,
			ReplaceOriginal: true,
			Text:            truncate(text),
		}
		if err != nil {
			msg.ResponseType = slack.ResponseTypeEphemeral
			msg.Text = err.Error()
			if timedOut {
				h.app.Jobs().Forget(id)
				msg.Text = timeoutMessage
			}
		}

		postCtx, postCancel := context.WithTimeout(context.Background(), postTimeout)
		defer postCancel()
		if err := h.postWebhook(postCtx, responseURL, msg); err != nil {
			h.logger.Error("error posting result to Slack", "url", target, "job", id, "err", err)
			return
		}
		h.logger.Info("posted result to Slack", "url", target, "job", id, "failed", err != nil)
	}()
}

// Wait blocks until every pending delivery has finished.
func (h *Handler) Wait() {
	h.deliveries.Wait()
}

// invocationFrom maps "/r https://example.com" onto the invocation
// {Name: "r", Arguments: ["https://example.com"]}.
func invocationFrom(s slack.SlashCommand) app.Invocation {
	return app.Invocation{
		Name:      strings.TrimPrefix(s.Command, "/"),
		Arguments: strings.Fields(s.Text),
	}
}

func (h *Handler) respond(w http.ResponseWriter, responseType, text string) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&slack.Msg{ResponseType: responseType, Text: text}); err != nil {
		h.logger.Warn("error writing slash command response", "err", err)
	}
}

// truncate cuts text to what Slack displays.
func truncate(text string) string {
	if utf8.RuneCountInString(text) <= maxMessageRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxMessageRunes-1]) + "…"
}

// drainAndReplaceBody reads the request body and leaves an identical copy in
// r.Body, so the signature check and SlashCommandParse both see it.
func drainAndReplaceBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
