package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jgoulah/billbuddy/internal/notify"
	"github.com/jgoulah/billbuddy/pkg/models"
)

// NetworkErrorMessage is the message of the envelope synthesized on transport failure
const NetworkErrorMessage = "Network error or server unavailable."

// Result is the uniform outcome of a backend call. OK mirrors the HTTP 2xx range and
// Data is the parsed JSON body regardless of status.
type Result struct {
	OK     bool
	Status int
	Data   json.RawMessage

	transport bool
}

// Envelope extracts success/message from Data
func (r Result) Envelope() models.Envelope {
	var env models.Envelope
	_ = json.Unmarshal(r.Data, &env)
	return env
}

// Succeeded reports ok && data.success
func (r Result) Succeeded() bool {
	return r.OK && r.Envelope().Success
}

// Decode unmarshals Data into v
func (r Result) Decode(v any) error {
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Err returns nil when the call succeeded, otherwise an *Error
func (r Result) Err() error {
	if r.Succeeded() {
		return nil
	}
	return &Error{Status: r.Status, Message: r.Envelope().Message, Transport: r.transport}
}

// Error is a failed backend call: either no response at all (Transport) or a
// well-formed envelope with success=false.
type Error struct {
	Status    int
	Message   string
	Transport bool
}

func (e *Error) Error() string {
	if e.Transport {
		return "backend unreachable: " + e.Message
	}
	if e.Message == "" {
		return fmt.Sprintf("backend request failed (status %d)", e.Status)
	}
	return fmt.Sprintf("backend request failed (status %d): %s", e.Status, e.Message)
}

// IsTransport reports whether err is a transport failure. Those are already
// surfaced by the client, so call sites must not notify again.
func IsTransport(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Transport
}

// MessageOr returns the server message carried by err, or fallback when there is none
func MessageOr(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// Observer is told about every call (metrics)
type Observer interface {
	ObserveRequest(method, route string, status int, transport bool, elapsed time.Duration)
}

// Client talks JSON to the BillBuddy backend. One attempt per call, no retries.
type Client struct {
	baseURL  string
	http     *http.Client
	notifier notify.Notifier
	observer Observer
	log      *zap.SugaredLogger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithNotifier sets where transport failures are surfaced
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithObserver sets the request observer
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger sets the logger
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for baseURL (e.g. "http://127.0.0.1:5000")
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No timeout: a call ends on response, transport failure or ctx cancellation
		http: &http.Client{},
		log:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetNotifier swaps the notifier after construction
func (c *Client) SetNotifier(n notify.Notifier) {
	c.notifier = n
}

// Request sends one JSON request. It never returns an error: transport failures
// become a synthetic failure envelope with status 500.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any) Result {
	start := time.Now()
	route := routeOf(endpoint)

	res, err := c.do(ctx, method, endpoint, body)
	if err != nil {
		c.log.Errorw("backend request failed", "method", method, "endpoint", endpoint, "error", err)
		if c.notifier != nil {
			c.notifier.Notify(notify.Error, "Network error: "+err.Error())
		}
		res = networkFailure()
	} else {
		c.log.Debugw("backend request", "method", method, "endpoint", endpoint,
			"status", res.Status, "duration", time.Since(start).String())
	}

	if c.observer != nil {
		c.observer.ObserveRequest(method, route, res.Status, res.transport, time.Since(start))
	}
	return res
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any) (Result, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return Result{}, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("reading response: %w", err)
	}
	if !json.Valid(data) {
		return Result{}, fmt.Errorf("invalid JSON in response (status %d)", resp.StatusCode)
	}

	return Result{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status: resp.StatusCode,
		Data:   data,
	}, nil
}

func networkFailure() Result {
	data, _ := json.Marshal(models.Envelope{Success: false, Message: NetworkErrorMessage})
	return Result{OK: false, Status: http.StatusInternalServerError, Data: data, transport: true}
}

var idSegment = regexp.MustCompile(`/\d+(/|$)`)

// routeOf turns "/api/customer/12/applications?x=1" into "/api/customer/{id}/applications"
func routeOf(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint = endpoint[:i]
	}
	for idSegment.MatchString(endpoint) {
		endpoint = idSegment.ReplaceAllString(endpoint, "/{id}$1")
	}
	return endpoint
}
