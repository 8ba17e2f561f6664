// Package delivery posts message units to a webhook and retries according to
// the response.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/tartampluch/go-daily-events/internal/apperr"
	"github.com/tartampluch/go-daily-events/internal/config"
)

// Response is the part of an endpoint reply the retry logic looks at.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Endpoint is the chat webhook. It allows for mocking in tests and
// decoupling from the network layer.
type Endpoint interface {
	// Post sends one message. A nil error with a response means the server
	// answered, whatever the status; a non-nil error means no answer at all.
	Post(ctx context.Context, content string) (*Response, error)
	// Verify checks the webhook is reachable without posting anything.
	Verify(ctx context.Context) error
}

// HTTPPoster implements Endpoint with net/http.
type HTTPPoster struct {
	URL    string
	Client *http.Client
}

type payload struct {
	Content string `json:"content"`
}

// NewHTTPPoster creates a poster whose connection setup is bounded by
// connectTimeout and whose wait for the server reply is bounded by readTimeout.
func NewHTTPPoster(webhookURL string, connectTimeout, readTimeout time.Duration) *HTTPPoster {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout
	transport.ResponseHeaderTimeout = readTimeout

	return &HTTPPoster{
		URL: webhookURL,
		Client: &http.Client{
			Transport: transport,
			Timeout:   connectTimeout + readTimeout,
		},
	}
}

// Post sends content as a JSON {"content": ...} document.
func (p *HTTPPoster) Post(ctx context.Context, content string) (*Response, error) {
	body, err := json.Marshal(payload{Content: content})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", redactError(err, p.URL))
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	req.Header.Set(config.HeaderContentType, config.MimeJSON)

	return p.do(req)
}

// Verify issues a GET on the webhook and expects 200.
func (p *HTTPPoster) Verify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return apperr.WrapRuntime(redactError(err, p.URL), config.ErrVerifyFailed)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)

	resp, err := p.do(req)
	if err != nil {
		return apperr.WrapRuntime(err, "%s: GET failed", config.ErrVerifyFailed)
	}
	if resp.StatusCode != http.StatusOK {
		return apperr.Runtime("%s: HTTP %d - %s", config.ErrVerifyFailed, resp.StatusCode,
			truncate(string(resp.Body), config.MaxVerifyDiagnostic, ""))
	}

	slog.Info(config.MsgVerifyOK,
		config.LogKeyComponent, config.CompDelivery,
		config.LogKeyURL, RedactURL(p.URL),
	)
	return nil
}

func (p *HTTPPoster) do(req *http.Request) (*Response, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, redactError(err, p.URL)
	}
	defer func() { _ = resp.Body.Close() }()

	// Webhook replies are small; cap the read to protect against large payloads.
	data, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxHTTPResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	slog.Debug(config.MsgWebhookReplied,
		config.LogKeyComponent, config.CompDelivery,
		config.LogKeyURL, RedactURL(p.URL),
		config.LogKeyStatus, resp.StatusCode,
	)
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// redactError replaces the request URL carried by net/http errors, since the
// webhook path holds the secret token. The cause stays reachable for errors.Is.
func redactError(err error, rawURL string) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return &url.Error{Op: uerr.Op, URL: RedactURL(rawURL), Err: uerr.Err}
	}
	return err
}

// RedactURL keeps only scheme and host. Webhook paths carry the secret token.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<redacted>"
	}
	return u.Scheme + "://" + u.Host + "/..."
}

// truncate cuts s to limit characters, appending suffix when something was cut.
func truncate(s string, limit int, suffix string) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + suffix
}
