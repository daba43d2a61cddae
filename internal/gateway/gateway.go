package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/rs/zerolog/log"
	"github.com/skybi/reservation-console/internal/api/schema"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Request describes a single backend call
type Request struct {
	Method string
	Path   string
	Query  url.Values

	// Body is serialized as JSON if set
	Body any

	// Credential is attached as a bearer token if set
	Credential string

	// Mutating marks GET endpoints that change backend state (i.e. '/reserve').
	// Non-GET requests are always treated as mutating.
	Mutating bool
}

func (request *Request) mutating() bool {
	return request.Mutating || request.Method != http.MethodGet
}

// Caller is implemented by everything able to perform backend calls
type Caller interface {
	// Call performs the request and decodes a successful response into target.
	// target may be nil for endpoints whose payload is irrelevant.
	Call(ctx context.Context, request *Request, target any) error
}

// Gateway wraps the HTTP calls to the reservation backend
type Gateway struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	metrics *Metrics
}

var _ Caller = (*Gateway)(nil)

// Option configures a Gateway
type Option func(gateway *Gateway)

// WithHTTPClient overrides the HTTP client used to perform calls
func WithHTTPClient(client *http.Client) Option {
	return func(gateway *Gateway) {
		gateway.client = client
	}
}

// WithTimeout bounds every call to the given duration; 0 disables the bound
func WithTimeout(timeout time.Duration) Option {
	return func(gateway *Gateway) {
		gateway.timeout = timeout
	}
}

// WithMetrics makes the gateway report every call to the given metrics
func WithMetrics(metrics *Metrics) Option {
	return func(gateway *Gateway) {
		gateway.metrics = metrics
	}
}

// New creates a new gateway sending every request relative to baseURL
func New(baseURL string, opts ...Option) *Gateway {
	gateway := &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(gateway)
	}
	return gateway
}

// Call performs a backend call.
// Network failures yield a *TransportError, non-success statuses a *StatusError and successful responses that do not
// match the target's schema a *DecodeError. An empty success body leaves target untouched.
func (gateway *Gateway) Call(ctx context.Context, request *Request, target any) error {
	if gateway.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, gateway.timeout)
		defer cancel()
	}

	started := time.Now()
	outcome := "transport_error"
	defer func() {
		gateway.metrics.observe(request.Method, request.Path, outcome, time.Since(started))
	}()

	httpRequest, err := gateway.buildRequest(ctx, request)
	if err != nil {
		return err
	}

	response, err := gateway.client.Do(httpRequest)
	if err != nil {
		return &TransportError{Method: request.Method, Path: request.Path, Err: err}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return &TransportError{Method: request.Method, Path: request.Path, Err: err}
	}

	log.Debug().
		Str("method", request.Method).
		Str("path", request.Path).
		Int("status", response.StatusCode).
		Dur("took", time.Since(started)).
		Msg("backend call finished")

	if response.StatusCode < 200 || response.StatusCode > 299 {
		outcome = fmt.Sprintf("status_%d", response.StatusCode)
		return &StatusError{
			Method:   request.Method,
			Path:     request.Path,
			Status:   response.StatusCode,
			Body:     string(body),
			Mutating: request.mutating(),
		}
	}

	outcome = "ok"
	if target == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	problems, err := schema.Decode(body, target)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		outcome = "decode_error"
		return &DecodeError{Method: request.Method, Path: request.Path, Problems: problems}
	}
	return nil
}

func (gateway *Gateway) buildRequest(ctx context.Context, request *Request) (*http.Request, error) {
	target := gateway.baseURL + request.Path
	if len(request.Query) > 0 {
		target += "?" + request.Query.Encode()
	}

	var body io.Reader
	if request.Body != nil {
		raw, err := json.Marshal(request.Body)
		if err != nil {
			return nil, fmt.Errorf("could not serialize the request body of %s %s: %w", request.Method, request.Path, err)
		}
		body = bytes.NewReader(raw)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, request.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("could not build request %s %s: %w", request.Method, request.Path, err)
	}
	if request.Body != nil {
		httpRequest.Header.Set("Content-Type", "application/json")
	}
	if request.Credential != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+request.Credential)
	}
	httpRequest.Header.Set("Accept", "application/json")
	return httpRequest, nil
}

// PathEscape escapes a single path segment (i.e. a machine or user name)
func PathEscape(segment string) string {
	return url.PathEscape(segment)
}
