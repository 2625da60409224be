// Package s3 reads objects out of an AWS S3 bucket with signed GET requests.
package s3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/compose/conduit/adaptor"
	"github.com/compose/conduit/adaptor/awssign"
	"github.com/compose/conduit/client"
	"github.com/compose/conduit/function"
	"github.com/compose/conduit/log"
	"github.com/compose/conduit/selector"
)

const (
	sampleConfig = `    type: aws-s3-get-object
    options:
      bucket: my-bucket
      keys: [exports/places.json]
      region: ap-southeast-2
      # path: items
      # iterate: true`

	description = "an adaptor that reads objects from an AWS S3 bucket"

	// DefaultRegion is used when no region was configured.
	DefaultRegion = "us-east-1"
)

var (
	_ adaptor.Readable = &GetObject{}
	_ client.Reader    = &GetObject{}

	// ErrMissingBucket is returned when no bucket was configured.
	ErrMissingBucket = errors.New("missing bucket")
	// ErrMissingKey is returned when no object key was configured.
	ErrMissingKey = errors.New("missing object key")

	jsonContentType = regexp.MustCompile(`(?i)application/.*json`)
)

// Registrations returns the adaptors of this package.
func Registrations() []adaptor.Registration {
	return []adaptor.Registration{
		{
			Name:         "aws-s3-get-object",
			Description:  description,
			SampleConfig: sampleConfig,
			Creator:      func() adaptor.Adaptor { return &GetObject{} },
		},
	}
}

// GetObject reads every key of Bucket in turn. JSON bodies (ParseJSON or a JSON content
// type) are decoded, anything else is emitted as a string.
type GetObject struct {
	Bucket    string      `json:"bucket"`
	Key       string      `json:"key"`
	Keys      []string    `json:"keys"`
	Region    string      `json:"region"`
	Endpoint  string      `json:"endpoint" doc:"overrides https://s3.<region>.amazonaws.com"`
	Path      interface{} `json:"path"`
	Iterate   bool        `json:"iterate"`
	ParseJSON bool        `json:"parseJson"`
	Limit     int         `json:"limit"`
	Timeout   string      `json:"timeout"`

	AWSAccessKeyID  string `json:"aws_access_key"`
	AWSAccessSecret string `json:"aws_access_secret"`

	path selector.Specs
}

// Client returns a client signing its requests with the configured keys, or the keys
// found in the environment.
func (g *GetObject) Client() (client.Client, error) {
	timeout := 30 * time.Second
	if g.Timeout != "" {
		t, err := time.ParseDuration(g.Timeout)
		if err != nil {
			return nil, client.InvalidTimeoutError{Timeout: g.Timeout}
		}
		timeout = t
	}
	return &Client{http: &http.Client{
		Timeout:   timeout,
		Transport: awssign.FromEnvironment(g.AWSAccessKeyID, g.AWSAccessSecret, nil),
	}}, nil
}

func (g *GetObject) Reader() (client.Reader, error) {
	if g.Bucket == "" {
		return nil, ErrMissingBucket
	}
	if g.Key == "" && len(g.Keys) == 0 {
		return nil, ErrMissingKey
	}
	if g.Path != nil {
		specs, err := selector.ParseSpecs(g.Path)
		if err != nil {
			return nil, err
		}
		g.path = specs
	}
	return g, nil
}

func (g *GetObject) objectURL(key string) string {
	endpoint := g.Endpoint
	if endpoint == "" {
		region := g.Region
		if region == "" {
			region = DefaultRegion
		}
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", region)
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(endpoint, "/"), url.PathEscape(g.Bucket), escapeKey(key))
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (g *GetObject) Read(ctx context.Context, s client.Session, emit client.EmitFunc) error {
	c, ok := s.(*Client)
	if !ok {
		return client.UnexpectedSessionError{Got: s}
	}
	keys := g.Keys
	if g.Key != "" {
		keys = append([]string{g.Key}, keys...)
	}
	count := 0
	for _, key := range keys {
		body, err := g.get(ctx, c, key)
		if err != nil {
			return err
		}
		result := body
		if g.path != nil {
			v, ok, err := g.path.Resolve(ctx, body, function.Env{})
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			result = v
		}
		items, isList := result.([]interface{})
		if !g.Iterate || !isList {
			items = []interface{}{result}
		}
		for _, item := range items {
			if err := emit(item); err != nil {
				return err
			}
			count++
			if g.Limit > 0 && count >= g.Limit {
				return nil
			}
		}
	}
	return nil
}

func (g *GetObject) get(ctx context.Context, c *Client, key string) (interface{}, error) {
	u := g.objectURL(key)
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return nil, client.ConnectError{Reason: err.Error()}
	}
	defer resp.Body.Close()
	b, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get s3://%s/%s responded with status %d", g.Bucket, key, resp.StatusCode)
	}
	log.With("bucket", g.Bucket).With("key", key).With("bytes", len(b)).Debugln("object read")
	if g.ParseJSON || jsonContentType.MatchString(resp.Header.Get("Content-Type")) {
		var v interface{}
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return string(b), nil
}

// Client holds the signing http.Client; it is its own session.
type Client struct {
	http *http.Client
}

// Connect satisfies the client.Client interface.
func (c *Client) Connect(context.Context) (client.Session, error) {
	return c, nil
}
