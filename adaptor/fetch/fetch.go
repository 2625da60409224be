// Package fetch reads records from HTTP JSON endpoints, either from a fixed list of
// URLs or by walking a paginated collection.
package fetch

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/compose/conduit/adaptor"
	"github.com/compose/conduit/adaptor/awssign"
	"github.com/compose/conduit/client"
	"github.com/compose/conduit/function"
	"github.com/compose/conduit/log"
	"github.com/compose/conduit/selector"
)

const (
	objectSampleConfig = `    type: fetch-object
    options:
      url: https://example.com/api/places.json
      # path: results
      # iterate: true
      # retry: 1
      # wait: 5000`

	paginatedSampleConfig = `    type: fetch-paginated-objects
    options:
      url: https://example.com/api/places
      path: results
      pathTotalRecords: total
      offsetQueryParam: offset
      pagesizeQueryParam: limit
      # pagesize: 50`
)

var (
	_ adaptor.Readable = &FetchObject{}
	_ adaptor.Readable = &FetchPaginated{}

	// ErrMissingURL is returned when no url was configured.
	ErrMissingURL = errors.New("missing url")
	// ErrMissingPath is returned when a paginated fetch does not say where the records are.
	ErrMissingPath = errors.New("specify the location of the records to emit with path")
	// ErrMissingTotal is returned when a paginated fetch does not say where the total is.
	ErrMissingTotal = errors.New("specify the path to locate the total records from the response using pathTotalRecords")
	// ErrMissingPager is returned when neither an offset nor a page parameter was configured.
	ErrMissingPager = errors.New("specify either the offset or page query param (offsetQueryParam or pageQueryParam)")
	// ErrOffsetWithPage is returned when a starting offset is combined with page based paging.
	ErrOffsetWithPage = errors.New("unsupported offset with page")
)

// Registrations returns the adaptors of this package.
func Registrations() []adaptor.Registration {
	return []adaptor.Registration{
		{
			Name:         "fetch-object",
			Description:  "an adaptor that reads the JSON responses of a list of URLs",
			SampleConfig: objectSampleConfig,
			Creator:      func() adaptor.Adaptor { return &FetchObject{Config: Config{Retry: 1, Wait: 5000}} },
		},
		{
			Name:         "fetch-paginated-objects",
			Description:  "an adaptor that walks a paginated JSON collection",
			SampleConfig: paginatedSampleConfig,
			Creator:      func() adaptor.Adaptor { return &FetchPaginated{Config: Config{Retry: 3, Wait: 5000}, PageSize: 50} },
		},
	}
}

// Config holds the request options shared by both adaptors.
type Config struct {
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Timeout string            `json:"timeout"`
	Limit   int               `json:"limit"`
	Retry   int               `json:"retry" doc:"attempts made after a failed request"`
	Wait    int               `json:"wait" doc:"milliseconds to wait before the first retry"`

	AWSAccessKeyID  string `json:"aws_access_key"`
	AWSAccessSecret string `json:"aws_access_secret"`
}

// Client returns a client signing requests when AWS keys were configured.
func (c *Config) Client() (client.Client, error) {
	return NewClient(
		WithTimeout(c.Timeout),
		WithTransport(awssign.NewTransport(c.AWSAccessKeyID, c.AWSAccessSecret, "", nil)),
	)
}

func (c *Config) request(u string, body interface{}) Request {
	return Request{
		Method:  c.Method,
		URL:     u,
		Headers: c.Headers,
		Body:    body,
		Retries: c.Retry,
		Wait:    time.Duration(c.Wait) * time.Millisecond,
	}
}

// FetchObject requests every URL in turn. The record is the response, or the value
// found at Path; lists are emitted item by item when Iterate is set.
type FetchObject struct {
	Config
	URL     string      `json:"url"`
	URLs    []string    `json:"urls"`
	Path    interface{} `json:"path"`
	Iterate bool        `json:"iterate"`
	Data    interface{} `json:"data"`
}

func (f *FetchObject) Reader() (client.Reader, error) {
	urls := f.URLs
	if f.URL != "" {
		urls = append([]string{f.URL}, urls...)
	}
	if len(urls) == 0 {
		return nil, ErrMissingURL
	}
	for _, u := range urls {
		if _, err := url.Parse(u); err != nil {
			return nil, client.InvalidURIError{URI: u, Err: err.Error()}
		}
	}
	path, err := parsePath(f.Path)
	if err != nil {
		return nil, err
	}
	return &objectReader{conf: f, urls: urls, path: path}, nil
}

type objectReader struct {
	conf *FetchObject
	urls []string
	path selector.Specs
}

func (r *objectReader) Read(ctx context.Context, s client.Session, emit client.EmitFunc) error {
	session, ok := s.(*Session)
	if !ok {
		return client.UnexpectedSessionError{Got: s}
	}
	emit = limit(emit, r.conf.Limit)
	for _, u := range r.urls {
		resp, err := session.Do(ctx, r.conf.request(u, r.conf.Data))
		if err != nil {
			return err
		}
		result, ok, err := pluck(ctx, resp, r.path)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		items, isList := result.([]interface{})
		if !r.conf.Iterate || !isList {
			items = []interface{}{result}
		}
		for _, item := range items {
			if err := emit(item); err != nil {
				return stopped(err)
			}
		}
	}
	return nil
}

// FetchPaginated walks a collection page by page until an empty page, a response
// without a list at Path, or the total found at PathTotalRecords is reached.
type FetchPaginated struct {
	Config
	URL                  string      `json:"url"`
	Path                 interface{} `json:"path"`
	PathTotalRecords     interface{} `json:"pathTotalRecords"`
	Offset               int         `json:"offset"`
	PageSize             int         `json:"pagesize"`
	PageSizeQueryParam   string      `json:"pagesizeQueryParam"`
	OffsetQueryParam     string      `json:"offsetQueryParam"`
	PageQueryParam       string      `json:"pageQueryParam"`
	UsePageStartingAtOne *bool       `json:"usePageStartingAtOne"`
}

func (f *FetchPaginated) Reader() (client.Reader, error) {
	switch {
	case f.URL == "":
		return nil, ErrMissingURL
	case f.Path == nil:
		return nil, ErrMissingPath
	case f.PathTotalRecords == nil:
		return nil, ErrMissingTotal
	case f.OffsetQueryParam == "" && f.PageQueryParam == "":
		return nil, ErrMissingPager
	case f.PageQueryParam != "" && f.Offset != 0:
		return nil, ErrOffsetWithPage
	}
	u, err := url.Parse(f.URL)
	if err != nil {
		return nil, client.InvalidURIError{URI: f.URL, Err: err.Error()}
	}
	path, err := parsePath(f.Path)
	if err != nil {
		return nil, err
	}
	total, err := parsePath(f.PathTotalRecords)
	if err != nil {
		return nil, err
	}
	return &paginatedReader{conf: f, base: u, path: path, total: total}, nil
}

type paginatedReader struct {
	conf  *FetchPaginated
	base  *url.URL
	path  selector.Specs
	total selector.Specs
}

func (r *paginatedReader) pageURL(offset, page int) string {
	u := *r.base
	q := u.Query()
	if r.conf.OffsetQueryParam != "" {
		q.Set(r.conf.OffsetQueryParam, strconv.Itoa(offset))
	}
	if r.conf.PageSizeQueryParam != "" {
		q.Set(r.conf.PageSizeQueryParam, strconv.Itoa(r.conf.PageSize))
	}
	if r.conf.PageQueryParam != "" {
		q.Set(r.conf.PageQueryParam, strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (r *paginatedReader) Read(ctx context.Context, s client.Session, emit client.EmitFunc) error {
	session, ok := s.(*Session)
	if !ok {
		return client.UnexpectedSessionError{Got: s}
	}
	emit = limit(emit, r.conf.Limit)
	l := log.With("url", r.conf.URL)

	page := 0
	if r.conf.PageQueryParam != "" && (r.conf.UsePageStartingAtOne == nil || *r.conf.UsePageStartingAtOne) {
		page = 1
	}
	offset := r.conf.Offset
	total := offset + 1
	for offset < total {
		u := r.pageURL(offset, page)
		resp, err := session.Do(ctx, r.conf.request(u, nil))
		if err != nil {
			return err
		}
		result, _, err := pluck(ctx, resp, r.path)
		if err != nil {
			return err
		}
		items, ok := result.([]interface{})
		if !ok || len(items) == 0 {
			break
		}
		for _, item := range items {
			if err := emit(item); err != nil {
				return stopped(err)
			}
		}
		page++
		offset += len(items)

		t, found, err := pluck(ctx, resp, r.total)
		if err != nil {
			return err
		}
		n, ok := toInt(t)
		if !found || !ok {
			l.With("page", u).Infoln("response carries no total, stopping")
			break
		}
		total = n
		l.With("offset", offset).With("total", total).Debugln("page read")
	}
	return nil
}

func parsePath(v interface{}) (selector.Specs, error) {
	if v == nil {
		return nil, nil
	}
	return selector.ParseSpecs(v)
}

// pluck selects path out of resp; a nil path selects the whole response.
func pluck(ctx context.Context, resp interface{}, path selector.Specs) (interface{}, bool, error) {
	if path == nil {
		return resp, resp != nil, nil
	}
	return path.Resolve(ctx, resp, function.Env{})
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

var errLimitReached = errors.New("limit reached")

// limit wraps emit so that it fails with errLimitReached once n records went through.
func limit(emit client.EmitFunc, n int) client.EmitFunc {
	if n <= 0 {
		return emit
	}
	count := 0
	return func(rec interface{}) error {
		count++
		if err := emit(rec); err != nil {
			return err
		}
		if count >= n {
			return errLimitReached
		}
		return nil
	}
}

func stopped(err error) error {
	if err == errLimitReached {
		return nil
	}
	return err
}
