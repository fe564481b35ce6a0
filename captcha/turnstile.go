// Package captcha verifies human-verification tokens against the Turnstile
// siteverify endpoint.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/paper-guides/backend/logger"
	"golang.org/x/exp/rand"
)

const (
	DefaultVerifyURL  = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
	DefaultMaxRetries = 3
	AttemptTimeout    = 5 * time.Second
	MaxTokenLength    = 1000

	maxResponseBytes = 64 * 1024
)

// Error codes produced locally; everything else comes from the endpoint.
const (
	ErrCodeInvalidInputToken = "invalid-input-token"
	ErrCodeNetworkError      = "network-error"
)

type Config struct {
	Secret     string
	VerifyURL  string
	MaxRetries int
}

type Result struct {
	Success    bool
	ErrorCodes []string
	Message    string
	Attempts   int
}

// InvalidInput reports whether the token was rejected before any network call.
func (r Result) InvalidInput() bool {
	return r.hasCode(ErrCodeInvalidInputToken) && r.Attempts == 0
}

// Unreachable reports whether the endpoint could not be reached within the retry budget.
func (r Result) Unreachable() bool {
	return r.hasCode(ErrCodeNetworkError)
}

func (r Result) hasCode(code string) bool {
	for _, c := range r.ErrorCodes {
		if c == code {
			return true
		}
	}
	return false
}

type Verifier struct {
	secret         string
	verifyURL      string
	maxRetries     int
	attemptTimeout time.Duration

	client *http.Client
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

type Option func(*Verifier)

func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) { v.client = c }
}

// WithSleep replaces the function used to wait between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(v *Verifier) { v.sleep = sleep }
}

// WithJitter replaces the source of the [0,1) jitter added to every backoff.
func WithJitter(jitter func() float64) Option {
	return func(v *Verifier) { v.jitter = jitter }
}

func WithAttemptTimeout(d time.Duration) Option {
	return func(v *Verifier) { v.attemptTimeout = d }
}

func NewVerifier(cfg Config, opts ...Option) *Verifier {
	v := &Verifier{
		secret:         cfg.Secret,
		verifyURL:      cfg.VerifyURL,
		maxRetries:     cfg.MaxRetries,
		attemptTimeout: AttemptTimeout,
		client:         &http.Client{},
		sleep:          sleepCtx,
		jitter:         rand.Float64,
	}
	if v.verifyURL == "" {
		v.verifyURL = DefaultVerifyURL
	}
	if v.maxRetries <= 0 {
		v.maxRetries = DefaultMaxRetries
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Backoff is the wait before the attempt following the zero-based attempt
// that just failed: 2^attempt seconds plus jitter seconds.
func Backoff(attempt int, jitter float64) time.Duration {
	secs := math.Pow(2, float64(attempt)) + jitter
	return time.Duration(secs * float64(time.Second))
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify never returns an error: transport failures are retried and folded
// into an unsuccessful Result once the attempts run out.
func (v *Verifier) Verify(ctx context.Context, token string, remoteIP string) Result {
	log := logger.FromContext(ctx)

	if token == "" || utf8.RuneCountInString(token) > MaxTokenLength {
		log.Warn("invalid turnstile token", "length", utf8.RuneCountInString(token))
		return Result{
			Success:    false,
			ErrorCodes: []string{ErrCodeInvalidInputToken},
			Message:    "invalid or too long token",
			Attempts:   0,
		}
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt < v.maxRetries; attempt++ {
		attempts = attempt + 1
		resp, err := v.post(ctx, form)
		if err == nil {
			codes := resp.ErrorCodes
			if codes == nil {
				codes = []string{}
			}
			return Result{
				Success:    resp.Success,
				ErrorCodes: codes,
				Message:    "verification complete",
				Attempts:   attempts,
			}
		}
		lastErr = err
		log.Warn("turnstile verification attempt failed",
			"attempt", attempts,
			"max_attempts", v.maxRetries,
			"error", err)

		if attempts == v.maxRetries {
			break
		}
		if err := v.sleep(ctx, Backoff(attempt, v.jitter())); err != nil {
			lastErr = err
			break
		}
	}

	log.Error("all turnstile verification attempts failed", "attempts", attempts, "error", lastErr)
	return Result{
		Success:    false,
		ErrorCodes: []string{ErrCodeNetworkError},
		Message:    fmt.Sprintf("failed to verify token after %d attempts: %v", attempts, lastErr),
		Attempts:   attempts,
	}
}

func (v *Verifier) post(ctx context.Context, form url.Values) (*siteverifyResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, v.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := v.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("request timed out after %s: %w", v.attemptTimeout, err)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(httpResp.Body, maxResponseBytes))
		return nil, fmt.Errorf("unexpected status %s", httpResp.Status)
	}

	var parsed siteverifyResponse
	err = json.NewDecoder(io.LimitReader(httpResp.Body, maxResponseBytes)).Decode(&parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &parsed, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
