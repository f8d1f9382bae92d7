package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kif1r4ek/test-my-sklad/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxResponseSize is the maximum allowed response size from remote APIs (32MB)
const maxResponseSize = 32 * 1024 * 1024

// maxErrorSnippet bounds the remote error text kept in error messages.
const maxErrorSnippet = 400

var tracer = otel.Tracer("marketplace")

// Outcomes reported to a RequestObserver.
const (
	OutcomeOK          = "ok"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

// RequestObserver receives the outcome of every remote request.
type RequestObserver interface {
	RemoteRequest(api, outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) RemoteRequest(string, string, time.Duration) {}

// HTTPError is a non-2xx answer of a remote API.
// It unwraps to shared.ErrRateLimited for 429 and shared.ErrRemoteUnavailable otherwise.
type HTTPError struct {
	API    string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.API, e.Status, e.Body)
}

// Unwrap maps the status to a domain error kind.
func (e *HTTPError) Unwrap() error {
	if e.Status == http.StatusTooManyRequests {
		return shared.ErrRateLimited
	}
	return shared.ErrRemoteUnavailable
}

// request is one call made through doRequest.
type request struct {
	api    string // label used in errors, spans and metrics
	method string
	url    string
	auth   string // Authorization header value
	header map[string]string
	body   any
}

// httpDoer executes remote requests with a shared client, tracing and metrics.
type httpDoer struct {
	client    *http.Client
	userAgent string
	observer  RequestObserver
}

func newHTTPDoer(client *http.Client, timeout time.Duration, userAgent string, observer RequestObserver) httpDoer {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return httpDoer{client: client, userAgent: userAgent, observer: observer}
}

// do executes req and returns the response body of a 2xx answer.
func (d httpDoer) do(ctx context.Context, req request) ([]byte, error) {
	ctx, span := tracer.Start(ctx, req.api+" "+req.method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("http.method", req.method), attribute.String("http.url", req.url))

	start := time.Now()
	body, err := d.send(ctx, req)

	outcome := OutcomeOK
	switch {
	case errors.Is(err, shared.ErrRateLimited):
		outcome = OutcomeRateLimited
	case err != nil:
		outcome = OutcomeError
	}
	d.observer.RemoteRequest(req.api, outcome, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	return body, err
}

func (d httpDoer) send(ctx context.Context, req request) ([]byte, error) {
	var reader io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to encode request: %w", req.api, err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", req.api, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.auth != "" {
		httpReq.Header.Set("Authorization", req.auth)
	}
	if d.userAgent != "" {
		httpReq.Header.Set("User-Agent", d.userAgent)
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.header {
		httpReq.Header.Set(k, v)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrRemoteUnavailable, req.api, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to read response: %v", shared.ErrRemoteUnavailable, req.api, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorSnippet {
			snippet = snippet[:maxErrorSnippet]
		}
		return nil, &HTTPError{API: req.api, Status: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

// decodeJSON decodes a response body keeping numbers as json.Number.
// An empty body decodes to the zero value.
func decodeJSON(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}
