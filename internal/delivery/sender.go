package delivery

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/go-daily-events/internal/apperr"
	"github.com/tartampluch/go-daily-events/internal/config"
)

// State is the position of one delivery unit in its retry cycle.
type State int

const (
	Pending State = iota
	Accepted
	RateLimited
	TransientFailure
	Fatal
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Accepted:
		return "accepted"
	case RateLimited:
		return "rate_limited"
	case TransientFailure:
		return "transient_failure"
	default:
		return "fatal"
	}
}

// Classify maps the outcome of one send to the next state.
// No response at all is a transient failure.
func Classify(resp *Response, err error) State {
	if err != nil || resp == nil {
		return TransientFailure
	}
	switch code := resp.StatusCode; {
	case code == http.StatusOK || code == http.StatusNoContent:
		return Accepted
	case code == http.StatusTooManyRequests:
		return RateLimited
	case code >= 500 && code < 600:
		return TransientFailure
	default:
		return Fatal
	}
}

// Backoff is the wait before retrying after the given zero-based attempt:
// 1s, 2s, 4s, then 8s from there on.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 4 {
		return config.BackoffMax
	}
	return min(config.BackoffBase<<attempt, config.BackoffMax)
}

// RetryAfter reads the wait suggested by a rate-limited reply: the JSON body's
// retry_after seconds first, then the Retry-After header, else one second.
func RetryAfter(resp *Response) time.Duration {
	if resp == nil {
		return config.DefaultRetryAfter
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		if secs, ok := body[config.RetryAfterJSONKey].(float64); ok && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	if resp.Header != nil {
		if secs, err := strconv.ParseFloat(strings.TrimSpace(resp.Header.Get(config.HeaderRetryAfter)), 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return config.DefaultRetryAfter
}

// Sender delivers units one after another through Endpoint.
type Sender struct {
	Endpoint Endpoint

	// Retries is the number of extra attempts per unit; Retries+1 sends at most.
	Retries int

	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DeliverAll sends units in order, skipping blank ones, and stops at the
// first unit that cannot be delivered.
func (s *Sender) DeliverAll(ctx context.Context, units []string) error {
	for i, unit := range units {
		if strings.TrimSpace(unit) == "" {
			continue
		}
		if err := s.Deliver(ctx, unit); err != nil {
			return err
		}
		slog.Info(config.MsgUnitSent,
			config.LogKeyComponent, config.CompDelivery,
			config.LogKeyUnit, i+1,
			config.LogKeyUnits, len(units),
		)
	}
	return nil
}

// Deliver runs the retry cycle of one unit until it is accepted or fails.
func (s *Sender) Deliver(ctx context.Context, content string) error {
	attempts := s.Retries + 1
	log := slog.With(config.LogKeyComponent, config.CompDelivery)

	for attempt := 0; ; attempt++ {
		resp, err := s.Endpoint.Post(ctx, content)
		if err != nil && ctx.Err() != nil {
			return apperr.WrapRuntime(ctx.Err(), "%s", config.ErrRequestFailed)
		}

		var wait time.Duration
		switch Classify(resp, err) {
		case Accepted:
			return nil

		case RateLimited:
			wait = RetryAfter(resp)
			if attempt >= s.Retries {
				return apperr.Runtime("%s; retry_after=%s", config.ErrRateLimited, wait)
			}
			log.Info(config.MsgRateLimited,
				config.LogKeyAttempt, attempt+1,
				config.LogKeyAttempts, attempts,
				config.LogKeyWait, wait.String())

		case TransientFailure:
			if attempt >= s.Retries {
				if err != nil {
					return apperr.WrapRuntime(err, "%s after %d attempts", config.ErrRequestFailed, attempts)
				}
				return rejected(resp)
			}
			wait = Backoff(attempt)
			if err != nil {
				log.Info(config.MsgPostRetry,
					config.LogKeyAttempt, attempt+1,
					config.LogKeyAttempts, attempts,
					config.LogKeyWait, wait.String(),
					config.LogKeyError, err)
			} else {
				log.Info(config.MsgServerError,
					config.LogKeyStatus, resp.StatusCode,
					config.LogKeyAttempt, attempt+1,
					config.LogKeyAttempts, attempts,
					config.LogKeyWait, wait.String())
			}

		default:
			return rejected(resp)
		}

		if err := s.sleep(ctx, wait); err != nil {
			return apperr.WrapRuntime(err, "%s", config.ErrRequestFailed)
		}
	}
}

func (s *Sender) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func rejected(resp *Response) error {
	body := strings.TrimSpace(string(resp.Body))
	return apperr.Runtime("%s: HTTP %d - %s", config.ErrRejected, resp.StatusCode,
		truncate(body, config.MaxBodyDiagnostic, config.TruncatedSuffix))
}
