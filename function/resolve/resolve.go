// Package resolve replaces a value with what a read driven by that value returns: the
// JSON behind a URL, or the content of an S3 object.
package resolve

import (
	"context"
	"errors"

	"github.com/compose/conduit/adaptor"
	"github.com/compose/conduit/adaptor/fetch"
	"github.com/compose/conduit/adaptor/s3"
	"github.com/compose/conduit/client"
	"github.com/compose/conduit/function"
	"github.com/compose/conduit/log"
	"github.com/compose/conduit/mapping"
	"github.com/compose/conduit/selector"
)

var (
	_ function.Function = &Fetch{}
	_ function.Function = &S3Object{}

	// ErrMissingURL is returned when neither the url option nor the value gives a URL.
	ErrMissingURL = errors.New("missing a url")
	// ErrMissingBucket is returned when neither the value nor the bucket option names a bucket.
	ErrMissingBucket = errors.New("requires a bucket")
	// ErrMissingKey is returned when the value carries no object key.
	ErrMissingKey = errors.New("requires a key")
)

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	return []function.Registration{
		{
			Name:        "resolve-fetch-object",
			Description: "fetches the JSON behind the value's URL, or posts the value to url",
			Creator:     func() function.Function { return &Fetch{} },
		},
		{
			Name:        "resolve-http-request",
			Description: "alias of resolve-fetch-object",
			Creator:     func() function.Function { return &Fetch{} },
		},
		{
			Name:        "resolve-aws-s3-get-object",
			Description: "reads the S3 object named by the value's bucket and key",
			Creator:     func() function.Function { return &S3Object{} },
		},
	}
}

// results turns what a read emitted into the resolved value. Every record goes
// through Mapping when one is set; the list is returned unless Iterate is false, in
// which case only the first record is.
type results struct {
	Iterate *bool                  `json:"iterate"`
	Mapping map[string]interface{} `json:"mapping"`

	parsed map[string]selector.Specs
}

func (r *results) resolve(ctx context.Context, env function.Env, a adaptor.Readable) (interface{}, error) {
	if r.Mapping != nil && r.parsed == nil {
		parsed, err := mapping.ParseMapping(r.Mapping)
		if err != nil {
			return nil, err
		}
		r.parsed = parsed
	}
	records, err := read(ctx, a)
	if err != nil {
		return nil, err
	}
	if r.parsed != nil {
		for i, rec := range records {
			m, err := mapping.Map(ctx, rec, mapping.Options{Mapping: r.parsed}, env)
			if err != nil {
				return nil, err
			}
			records[i] = m
		}
	}
	if r.Iterate != nil && !*r.Iterate {
		if len(records) == 0 {
			return nil, nil
		}
		return records[0], nil
	}
	return records, nil
}

func read(ctx context.Context, a adaptor.Readable) ([]interface{}, error) {
	c, err := a.Client()
	if err != nil {
		return nil, err
	}
	defer client.Close(c)
	r, err := a.Reader()
	if err != nil {
		return nil, err
	}
	records := []interface{}{}
	err = client.Read(ctx, c, r, func(rec interface{}) error {
		records = append(records, rec)
		return nil
	})
	return records, err
}

// Fetch requests the value when it is a URL or a list of URLs. With URL set the value
// becomes the request body instead, unless Request carries its own data. Request takes
// the options of the fetch-object adaptor.
type Fetch struct {
	results
	URL                 string                 `json:"url"`
	Method              string                 `json:"method"`
	Request             map[string]interface{} `json:"request"`
	UseUndefinedOnError bool                   `json:"useUndefinedOnError"`
}

func (f *Fetch) Apply(ctx context.Context, env function.Env, rec interface{}) (interface{}, error) {
	out, err := f.apply(ctx, env, rec)
	if err != nil && f.UseUndefinedOnError {
		log.With("url", f.URL).Debugf("resolve failed, value dropped, %s", err)
		return nil, nil
	}
	return out, err
}

func (f *Fetch) apply(ctx context.Context, env function.Env, rec interface{}) (interface{}, error) {
	conf := &fetch.FetchObject{Config: fetch.Config{Retry: 1, Wait: 5000}}
	if err := adaptor.Config(f.Request).Construct(conf); err != nil {
		return nil, err
	}
	conf.URL = ""
	if f.URL != "" {
		conf.URLs = []string{f.URL}
		if conf.Data == nil {
			conf.Data = rec
		}
	} else {
		urls, ok := urlList(rec)
		if !ok {
			return nil, ErrMissingURL
		}
		conf.URLs = urls
	}
	if f.Method != "" {
		conf.Method = f.Method
	}
	return f.resolve(ctx, env, conf)
}

func urlList(v interface{}) ([]string, bool) {
	switch u := v.(type) {
	case string:
		return []string{u}, u != ""
	case []string:
		return u, len(u) > 0
	case []interface{}:
		out := make([]string, 0, len(u))
		for _, item := range u {
			s, ok := item.(string)
			if !ok || s == "" {
				return nil, false
			}
			out = append(out, s)
		}
		return out, len(out) > 0
	}
	return nil, false
}

// S3Object reads the object whose bucket and key are found on the value, under either
// Bucket/Key or bucket/key. Bucket is used when the value names none.
type S3Object struct {
	results
	Bucket    string      `json:"bucket"`
	Region    string      `json:"region"`
	Endpoint  string      `json:"endpoint"`
	Path      interface{} `json:"path"`
	ParseJSON bool        `json:"parseJson"`

	AWSAccessKeyID  string `json:"aws_access_key"`
	AWSAccessSecret string `json:"aws_access_secret"`
}

func (s *S3Object) Apply(ctx context.Context, env function.Env, rec interface{}) (interface{}, error) {
	m, _ := rec.(map[string]interface{})
	bucket := firstString(m, "Bucket", "bucket")
	if bucket == "" {
		bucket = s.Bucket
	}
	if bucket == "" {
		return nil, ErrMissingBucket
	}
	key := firstString(m, "Key", "key")
	if key == "" {
		return nil, ErrMissingKey
	}
	return s.resolve(ctx, env, &s3.GetObject{
		Bucket:          bucket,
		Key:             key,
		Region:          s.Region,
		Endpoint:        s.Endpoint,
		Path:            s.Path,
		Iterate:         s.Iterate == nil || *s.Iterate,
		ParseJSON:       s.ParseJSON,
		AWSAccessKeyID:  s.AWSAccessKeyID,
		AWSAccessSecret: s.AWSAccessSecret,
	})
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
