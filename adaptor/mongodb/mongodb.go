// Package mongodb reads documents out of MongoDB collections and writes records into one.
package mongodb

import (
	"regexp"

	"github.com/compose/conduit/adaptor"
	"github.com/compose/conduit/client"
)

const (
	readSampleConfig = `    type: mongodb-read
    options:
      uri: ${env:MONGODB_URI}
      namespace: places./.*/
      # query: {region: vic}
      # limit: 100
      # timeout: 30s
      # ssl: false
      # cacerts: [/path/to/cert.pem]
      # read_preference: Primary`

	writeSampleConfig = `    type: mongodb-write
    options:
      uri: ${env:MONGODB_URI}
      namespace: places.venues
      # key: _id
      # bulk: false
      # wc: 1
      # fsync: false`
)

var (
	_ adaptor.Readable = &Reader{}
	_ adaptor.Writable = &Writer{}
)

// Registrations returns the adaptors of this package.
func Registrations() []adaptor.Registration {
	return []adaptor.Registration{
		{
			Name:         "mongodb-read",
			Description:  "a mongodb adaptor emitting the documents of every collection matching the namespace",
			SampleConfig: readSampleConfig,
			Creator:      func() adaptor.Adaptor { return &Reader{} },
		},
		{
			Name:         "mongodb-write",
			Description:  "a mongodb adaptor inserting every record into a collection",
			SampleConfig: writeSampleConfig,
			Creator:      func() adaptor.Adaptor { return &Writer{} },
		},
	}
}

// Config holds the connection settings shared by both adaptors.
type Config struct {
	adaptor.BaseConfig
	SSL            bool     `json:"ssl"`
	CACerts        []string `json:"cacerts"`
	Wc             int      `json:"wc"`
	FSync          bool     `json:"fsync"`
	ReadPreference string   `json:"read_preference"`
}

func (c *Config) Client() (client.Client, error) {
	return NewClient(*c)
}

// Reader iterates every collection of the namespace's database whose name matches the
// namespace's pattern, applying Query to each. Without a namespace every collection of
// the URI's database is read.
type Reader struct {
	Config
	Query map[string]interface{} `json:"query"`
	Limit int                    `json:"limit"`
}

func (r *Reader) Reader() (client.Reader, error) {
	db, filter := "", regexp.MustCompile(".*")
	if r.Namespace != "" {
		var err error
		db, filter, err = adaptor.CompileNamespace(r.Namespace)
		if err != nil {
			return nil, err
		}
	}
	return newReader(db, filter, r.Query, r.Limit), nil
}

// Writer inserts records into the namespace's collection. A record whose Key already
// exists replaces the stored document.
type Writer struct {
	Config
	Key  string `json:"key"`
	Bulk bool   `json:"bulk"`
}

func (w *Writer) Writer() (client.Writer, error) {
	db, collection, err := adaptor.SplitNamespace(w.Namespace)
	if err != nil {
		return nil, err
	}
	key := w.Key
	if key == "" {
		key = "_id"
	}
	if w.Bulk {
		return newBulker(db, collection, key), nil
	}
	return newWriter(db, collection, key), nil
}
