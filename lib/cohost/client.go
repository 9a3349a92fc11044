// Package cohost is a client for the parts of cohost the bot needs:
// the undocumented trpc endpoints, authorship resolution, share
// lineage and the tag listing scrape.
package cohost

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/penguinencounter/cohost-randombot/lib/backoff"
	"github.com/penguinencounter/cohost-randombot/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/cohost")

const DefaultBaseURL = "https://cohost.org"

// retry budget for a single logical request
const maxRetries = 10

const (
	probeAttempts = 3
	probeInterval = time.Millisecond * 500
)

type Client struct {
	http       *resty.Client
	baseURL    string
	scratchpad string
	schedule   backoff.Schedule

	mu         sync.Mutex
	projectIDs map[string]int64

	// injection points for deterministic tests
	now   func() time.Time
	sleep func(time.Duration)
}

type ClientOptions struct {
	// defaults to DefaultBaseURL
	BaseURL string
	// value of the connect.sid session cookie
	SessionCookie string
	// handle of the account used for probe shares
	Scratchpad string
	UserAgent  string
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "cohost-randombot operated by @quae-nihl"
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", opts.UserAgent)
	if opts.SessionCookie != "" {
		client.SetCookie(&http.Cookie{
			Name:  "connect.sid",
			Value: opts.SessionCookie,
		})
	}
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "cohost/http")

	return &Client{
		http:       client,
		baseURL:    opts.BaseURL,
		scratchpad: opts.Scratchpad,
		schedule:   backoff.Default,
		projectIDs: map[string]int64{},
		now:        time.Now,
		sleep:      time.Sleep,
	}, nil
}

// StatusError is a terminal non-200 response.
type StatusError struct {
	URL     string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("got %d for %s: %s", e.Code, e.URL, e.Message)
	}
	return fmt.Sprintf("got %d for %s", e.Code, e.URL)
}

// RetryExhaustedError means the server kept asking us to slow down
// until the retry budget ran out.
type RetryExhaustedError struct {
	Failures int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("too many retries: %d", e.Failures)
}

func retryable(code int) bool {
	return code == http.StatusTeapot || (code >= 500 && code <= 599)
}

// Execute performs a request, absorbing slow-down responses (418 and
// 5xx) with backoff until maxRetries is exhausted. Any other non-200
// fails immediately with a StatusError. The retry sleep suspends the
// calling goroutine; bound total cost through the attempt budget, not
// by cancelling mid-sleep.
func (c *Client) Execute(ctx context.Context, method, url string, body any) (*resty.Response, error) {
	ctx, span := tracer.Start(ctx, "client:Execute")
	defer span.End()

	failures := 0
	for {
		req := c.http.R().SetContext(ctx)
		if body != nil {
			req.SetHeader("content-type", "application/json")
			req.SetBody(body)
		}
		res, err := req.Execute(method, url)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "transport failure")
			return nil, err
		}

		code := res.StatusCode()
		if retryable(code) {
			slog.WarnContext(ctx, "bad status", "status", code, "url", url)
			failures++
			if failures > maxRetries {
				err := &RetryExhaustedError{Failures: failures}
				span.RecordError(err)
				span.SetStatus(codes.Error, "retry budget exhausted")
				return nil, err
			}
			c.sleep(c.cooldown(ctx, res, failures))
			continue
		}
		if code != http.StatusOK {
			err := &StatusError{
				URL:     url,
				Code:    code,
				Message: extractErrorMessage(res.Body()),
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "terminal status")
			return nil, err
		}
		return res, nil
	}
}

// cooldown computes how long to wait before the next attempt,
// preferring the server's Retry-After hint when it parses.
func (c *Client) cooldown(ctx context.Context, res *resty.Response, failures int) time.Duration {
	wait := c.schedule.Wait(failures)
	if hint := res.Header().Get("Retry-After"); hint != "" {
		at, err := c.schedule.ParseRetryAfter(hint, failures, c.now())
		if err != nil {
			slog.WarnContext(ctx, "malformed retry-after hint", "hint", hint, "err", err)
		} else {
			wait = at.Sub(c.now())
		}
	}
	slog.InfoContext(ctx, "waiting to cool down", "wait", wait)
	return wait
}

// extractErrorMessage pulls a human-readable message out of an error
// response body, which shows up either top-level or wrapped in a
// batch envelope. Absence of both is fine.
func extractErrorMessage(body []byte) string {
	var single struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &single); err == nil && single.Message != "" {
		return strings.TrimSpace(single.Message)
	}

	var batch []struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &batch); err == nil && len(batch) > 0 {
		return strings.TrimSpace(batch[0].Error.Message)
	}
	return ""
}

func decodeJSON[T any](body []byte) (T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// trpc responses come back batched even for single calls.
type trpcEnvelope[T any] struct {
	Result struct {
		Data T `json:"data"`
	} `json:"result"`
}

func decodeBatchSingle[T any](body []byte) (T, error) {
	var batch []trpcEnvelope[T]
	if err := json.Unmarshal(body, &batch); err != nil {
		var zero T
		return zero, fmt.Errorf("decoding batch response: %w", err)
	}
	if len(batch) == 0 {
		var zero T
		return zero, fmt.Errorf("empty batch response")
	}
	return batch[0].Result.Data, nil
}
