// Package collection keeps a remote collection of items in sync with the records of a
// pipeline.
//
// Items are matched through their custom://external-ref and custom://external-source
// attributes. The items already in the collection are listed once, on the first write.
// New items are created, known ones are merged into the stored item and published again
// when they changed, and every written item is flagged with custom://import-present.
// Once the stream ends, the synced items that were not written again are flagged as no
// longer present.
package collection

import (
	"errors"
	"strings"
	"time"

	"github.com/compose/conduit/adaptor"
	"github.com/compose/conduit/adaptor/fetch"
	"github.com/compose/conduit/client"
)

const (
	sampleConfig = `    type: sync-collection
    options:
      apiKey: ${env:API_KEY}
      collection: collection/abc123
      profile: profile/def456
      # uri: https://withalpaca.com/api/v2
      # pageSize: 100
      # retry: 3
      # wait: 1000`

	// DefaultURI is the api the collection lives in.
	DefaultURI = "https://withalpaca.com/api/v2"
	// DefaultScheme prefixes every reference.
	DefaultScheme = "alpaca"
	// DefaultPageSize is the number of items listed per request.
	DefaultPageSize = 100

	externalRefAttr    = "custom://external-ref"
	externalSourceAttr = "custom://external-source"
	importPresentAttr  = "custom://import-present"
)

var (
	_ adaptor.Writable = &Sync{}

	// ErrMissingAPIKey is returned when no secret api key is configured.
	ErrMissingAPIKey = errors.New("Missing Secret API Key")
	// ErrMissingCollection is returned when no collection reference is configured.
	ErrMissingCollection = errors.New("Collection reference is required")
	// ErrMissingProfile is returned when no profile reference is configured.
	ErrMissingProfile = errors.New("Profile reference is required")
)

// Registrations returns the adaptors of this package.
func Registrations() []adaptor.Registration {
	return []adaptor.Registration{
		{
			Name:         "sync-collection",
			Description:  "an adaptor creating or updating items of a remote collection by their external reference",
			SampleConfig: sampleConfig,
			Creator: func() adaptor.Adaptor {
				return &Sync{URI: DefaultURI, Scheme: DefaultScheme, PageSize: DefaultPageSize, Wait: 1000}
			},
		},
	}
}

// Sync configures the collection to keep in sync.
type Sync struct {
	URI        string `json:"uri"`
	APIKey     string `json:"apiKey"`
	Collection string `json:"collection"`
	Profile    string `json:"profile"`
	Scheme     string `json:"scheme"`
	PageSize   int    `json:"pageSize"`
	Retry      int    `json:"retry"`
	Wait       int    `json:"wait"`
	Timeout    string `json:"timeout"`
}

func (s *Sync) Client() (client.Client, error) {
	return fetch.NewClient(fetch.WithTimeout(s.Timeout))
}

func (s *Sync) Writer() (client.Writer, error) {
	if !strings.HasPrefix(s.APIKey, "sk") {
		return nil, ErrMissingAPIKey
	}
	if s.Collection == "" {
		return nil, ErrMissingCollection
	}
	if s.Profile == "" {
		return nil, ErrMissingProfile
	}
	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	refs := refs{scheme: s.Scheme}
	return &syncWriter{
		api:        strings.TrimSuffix(s.URI, "/"),
		apiKey:     s.APIKey,
		refs:       refs,
		collection: refs.clean(s.Collection, "collection"),
		profile:    refs.clean(s.Profile, "profile"),
		pageSize:   pageSize,
		retry:      s.Retry,
		wait:       time.Duration(s.Wait) * time.Millisecond,
		pushed:     make(map[syncKey]bool),
	}, nil
}

// refs normalizes references such as "item/abc" or "alpaca://abc" to scheme://type/id.
type refs struct {
	scheme string
}

func (r refs) prefix() string {
	return r.scheme + "://"
}

func (r refs) clean(ref, kind string) string {
	id := strings.Replace(ref, r.prefix(), "", 1)
	id = strings.Replace(id, kind+"/", "", 1)
	return r.prefix() + kind + "/" + id
}

func (r refs) trim(ref string) string {
	return strings.Replace(ref, r.prefix(), "", 1)
}
