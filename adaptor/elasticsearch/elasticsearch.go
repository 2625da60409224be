// Package elasticsearch indexes records into an Elasticsearch cluster through its _bulk api.
package elasticsearch

import (
	"github.com/compose/conduit/adaptor"
	"github.com/compose/conduit/client"
)

const (
	description  = "an elasticsearch sink adaptor indexing every record"
	sampleConfig = `    type: elasticsearch-write
    options:
      uri: ${env:ELASTICSEARCH_URI}
      namespace: places.venue
      # id_field: _id # the field holding the document id, removed from the document
      # timeout: 10s # defaults to 30s
      # aws_access_key: XXX # used for signing requests to AWS Elasticsearch service
      # aws_access_secret: XXX # used for signing requests to AWS Elasticsearch service`

	// DefaultType is used when the namespace only names an index.
	DefaultType = "doc"
)

var (
	_ adaptor.Writable = &Elasticsearch{}
)

// Registrations returns the adaptors of this package.
func Registrations() []adaptor.Registration {
	return []adaptor.Registration{
		{
			Name:         "elasticsearch-write",
			Description:  description,
			SampleConfig: sampleConfig,
			Creator:      func() adaptor.Adaptor { return &Elasticsearch{} },
		},
	}
}

// Elasticsearch is an adaptor to connect a pipeline to
// an elasticsearch cluster.
type Elasticsearch struct {
	adaptor.BaseConfig
	IDField         string `json:"id_field"`
	AWSAccessKeyID  string `json:"aws_access_key" doc:"credentials for use with AWS Elasticsearch service"`
	AWSAccessSecret string `json:"aws_access_secret" doc:"credentials for use with AWS Elasticsearch service"`
}

// Client returns a Client checking the cluster version on Connect.
func (e *Elasticsearch) Client() (client.Client, error) {
	return NewClient(
		WithURI(e.URI),
		WithTimeout(e.Timeout),
		WithAWSCredentials(e.AWSAccessKeyID, e.AWSAccessSecret),
	)
}

// Writer indexes into the namespace's index, using its second part as the document type.
func (e *Elasticsearch) Writer() (client.Writer, error) {
	index, indexType := e.Namespace, DefaultType
	if i, t, err := adaptor.SplitNamespace(e.Namespace); err == nil {
		index, indexType = i, t
	}
	if index == "" {
		return nil, adaptor.ErrNamespaceMalformed
	}
	idField := e.IDField
	if idField == "" {
		idField = "_id"
	}
	return &Writer{index: index, indexType: indexType, idField: idField}, nil
}
