package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/compose/conduit/client"
	"github.com/compose/conduit/log"
	"github.com/compose/conduit/record"
)

const (
	// DefaultTimeout bounds every single request.
	DefaultTimeout = 30 * time.Second
)

var (
	_ client.Client = &Client{}
)

// StatusError is returned for responses outside of the 2xx range.
type StatusError struct {
	URL    string
	Status int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s responded with status %d", e.URL, e.Status)
}

func (e StatusError) retryable() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// ClientOptionFunc is a function that configures a Client.
// It is used in NewClient.
type ClientOptionFunc func(*Client) error

// Client represents a client to an HTTP JSON endpoint.
type Client struct {
	timeout   time.Duration
	transport http.RoundTripper
}

// NewClient creates a new client issuing JSON requests.
func NewClient(options ...ClientOptionFunc) (*Client, error) {
	c := &Client{timeout: DefaultTimeout}
	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WithTimeout overrides the DefaultTimeout and should be parseable by time.ParseDuration
func WithTimeout(timeout string) ClientOptionFunc {
	return func(c *Client) error {
		if timeout == "" {
			return nil
		}
		t, err := time.ParseDuration(timeout)
		if err != nil {
			return client.InvalidTimeoutError{Timeout: timeout}
		}
		c.timeout = t
		return nil
	}
}

// WithTransport sets the RoundTripper used for every request.
func WithTransport(rt http.RoundTripper) ClientOptionFunc {
	return func(c *Client) error {
		c.transport = rt
		return nil
	}
}

// Connect returns a Session sharing a single http.Client.
func (c *Client) Connect(context.Context) (client.Session, error) {
	return &Session{http: &http.Client{Timeout: c.timeout, Transport: c.transport}}, nil
}

// Session issues requests, retrying failed ones.
type Session struct {
	http *http.Client
}

// Request describes a single JSON request.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    interface{}
	// Retries is the number of attempts made after the first failed one.
	Retries int
	Wait    time.Duration
}

// Do issues req, retrying transport failures and 5xx/429 responses with an exponential
// backoff starting at req.Wait, and decodes the JSON response.
func (s *Session) Do(ctx context.Context, req Request) (interface{}, error) {
	var (
		out       interface{}
		permanent error
	)
	op := func() error {
		resp, err := s.send(ctx, req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			io.Copy(ioutil.Discard, resp.Body)
			serr := StatusError{URL: req.URL, Status: resp.StatusCode}
			if serr.retryable() {
				return serr
			}
			permanent = serr
			return nil
		}
		out = nil
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
			permanent = err
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.With("url", req.URL).With("wait", wait).Infof("request failed, retrying, %s", err)
	}
	if err := backoff.RetryNotify(op, newBackOff(ctx, req), notify); err != nil {
		return nil, err
	}
	return out, permanent
}

func (s *Session) send(ctx context.Context, req Request) (*http.Response, error) {
	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(record.Normalize(req.Body))
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	hr, err := http.NewRequest(method, req.URL, body)
	if err != nil {
		return nil, err
	}
	hr = hr.WithContext(ctx)
	hr.Header.Set("Accept", "application/json")
	hr.Header.Set("Content-Type", "application/json")
	for k, v := range req.Headers {
		hr.Header.Set(k, v)
	}
	return s.http.Do(hr)
}

func newBackOff(ctx context.Context, req Request) backoff.BackOff {
	if req.Retries <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	if req.Wait > 0 {
		b.InitialInterval = req.Wait
	}
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(req.Retries)), ctx)
}
