package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	version "github.com/hashicorp/go-version"
	elastic "gopkg.in/olivere/elastic.v5"

	"github.com/compose/conduit/adaptor/awssign"
	"github.com/compose/conduit/client"
	"github.com/compose/conduit/log"
)

const (
	// DefaultURI is the default endpoint of Elasticsearch on the local machine.
	DefaultURI = "http://127.0.0.1:9200"

	// DefaultTimeout bounds every request sent to the cluster.
	DefaultTimeout = 30 * time.Second
)

var (
	_ client.Client = &Client{}

	supported, _ = version.NewConstraint(">= 5.0")
)

// ClientOptionFunc is a function that configures a Client.
// It is used in NewClient.
type ClientOptionFunc func(*Client) error

// Client connects to an Elasticsearch cluster of a supported version.
type Client struct {
	uri       string
	urls      []string
	user      *url.Userinfo
	timeout   time.Duration
	awsKey    string
	awsSecret string
}

// NewClient creates a new client to work with Elasticsearch.
func NewClient(options ...ClientOptionFunc) (*Client, error) {
	c := &Client{timeout: DefaultTimeout}
	if err := WithURI(DefaultURI)(c); err != nil {
		return nil, err
	}
	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WithURI defines the cluster to connect to. Several hosts are separated by commas,
// sharing the scheme and credentials.
func WithURI(uri string) ClientOptionFunc {
	return func(c *Client) error {
		if uri == "" {
			return nil
		}
		u, err := url.Parse(uri)
		if err != nil {
			return client.InvalidURIError{URI: uri, Err: err.Error()}
		}
		hostsAndPorts := strings.Split(u.Host, ",")
		urls := make([]string, len(hostsAndPorts))
		for i, hAndP := range hostsAndPorts {
			urls[i] = fmt.Sprintf("%s://%s", u.Scheme, hAndP)
		}
		c.uri, c.urls, c.user = uri, urls, u.User
		return nil
	}
}

// WithTimeout overrides the DefaultTimeout and should be parseable by time.ParseDuration
func WithTimeout(timeout string) ClientOptionFunc {
	return func(c *Client) error {
		if timeout == "" {
			return nil
		}
		t, err := time.ParseDuration(timeout)
		if err != nil {
			log.Infof("failed to parse duration, %s, falling back to default timeout of %s", timeout, DefaultTimeout)
			return nil
		}
		c.timeout = t
		return nil
	}
}

// WithAWSCredentials signs every request for the AWS Elasticsearch service. Missing keys
// are read from the environment.
func WithAWSCredentials(key, secret string) ClientOptionFunc {
	return func(c *Client) error {
		c.awsKey, c.awsSecret = key, secret
		return nil
	}
}

func (c *Client) httpClient() *http.Client {
	return &http.Client{
		Timeout:   c.timeout,
		Transport: awssign.FromEnvironment(c.awsKey, c.awsSecret, nil),
	}
}

// Connect checks the cluster version and starts a bulk processor for the session.
func (c *Client) Connect(ctx context.Context) (client.Session, error) {
	httpClient := c.httpClient()
	stringVersion, err := determineVersion(ctx, httpClient, c.urls[0], c.user)
	if err != nil {
		return nil, err
	}
	v, err := version.NewVersion(stringVersion)
	if err != nil {
		return nil, client.VersionError{URI: c.uri, V: stringVersion, Err: err.Error()}
	}
	if !supported.Check(v) {
		return nil, client.VersionError{URI: c.uri, V: stringVersion, Err: "unsupported client"}
	}

	esOptions := []elastic.ClientOptionFunc{
		elastic.SetURL(c.urls...),
		elastic.SetSniff(false),
		elastic.SetHttpClient(httpClient),
		elastic.SetMaxRetries(2),
	}
	if c.user != nil {
		if pwd, ok := c.user.Password(); ok {
			esOptions = append(esOptions, elastic.SetBasicAuth(c.user.Username(), pwd))
		}
	}
	esClient, err := elastic.NewClient(esOptions...)
	if err != nil {
		return nil, client.ConnectError{Reason: err.Error()}
	}
	s := &Session{
		logger: log.With("writer", "elasticsearch").With("version", stringVersion),
	}
	p, err := esClient.BulkProcessor().
		Name("ConduitWorker-1").
		Workers(2).
		BulkActions(1000).               // commit if # requests >= 1000
		BulkSize(2 << 20).               // commit if size of requests >= 2 MB
		FlushInterval(30 * time.Second). // commit every 30s
		After(s.postBulkProcessor).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	s.bp = p
	return s, nil
}

func determineVersion(ctx context.Context, httpClient *http.Client, uri string, user *url.Userinfo) (string, error) {
	req, err := http.NewRequest(http.MethodGet, uri, nil)
	if err != nil {
		return "", err
	}
	req = req.WithContext(ctx)
	if user != nil {
		if pwd, ok := user.Password(); ok {
			req.SetBasicAuth(user.Username(), pwd)
		}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", client.ConnectError{Reason: uri}
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", client.VersionError{URI: uri, V: "", Err: "unable to read response body"}
	}
	var r struct {
		Name    string `json:"name"`
		Version struct {
			Number string `json:"number"`
		} `json:"version"`
	}
	if resp.StatusCode != http.StatusOK {
		return "", client.VersionError{URI: uri, V: "", Err: fmt.Sprintf("bad status code: %d", resp.StatusCode)}
	}
	err = json.Unmarshal(body, &r)
	if err != nil {
		return "", client.VersionError{URI: uri, V: "", Err: fmt.Sprintf("malformed JSON: %s", body)}
	} else if r.Version.Number == "" {
		return "", client.VersionError{URI: uri, V: "", Err: fmt.Sprintf("missing version: %s", body)}
	}
	return r.Version.Number, nil
}

// Session holds the bulk processor requests are queued on.
type Session struct {
	bp     *elastic.BulkProcessor
	logger log.Logger

	mu     sync.Mutex
	failed int
	err    error
}

var _ client.Closer = &Session{}

// Close flushes the queued requests and stops the processor.
func (s *Session) Close() {
	s.logger.Infoln("closing BulkProcessor")
	s.bp.Close()
}

// Flush commits the queued requests and reports the failures seen since the last Flush.
func (s *Session) Flush() error {
	if err := s.bp.Flush(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	failed, err := s.failed, s.err
	s.failed, s.err = 0, nil
	if err != nil {
		return err
	}
	if failed > 0 {
		return BulkError{Failed: failed}
	}
	return nil
}

func (s *Session) postBulkProcessor(executionID int64, reqs []elastic.BulkableRequest, resp *elastic.BulkResponse, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if resp != nil && err == nil {
		s.failed += len(resp.Failed())
		s.logger.With("executionID", executionID).
			With("took", fmt.Sprintf("%dms", resp.Took)).
			With("succeeeded", len(resp.Succeeded())).
			With("failed", len(resp.Failed())).
			Infoln("_bulk flush completed")
	}
	if err != nil {
		s.err = err
		s.logger.With("executionID", executionID).Errorln(err)
	}
}

// BulkError reports documents the cluster refused.
type BulkError struct {
	Failed int
}

func (e BulkError) Error() string {
	return fmt.Sprintf("%d documents failed to index", e.Failed)
}
