// Package rabbitmq drains RabbitMQ queues and publishes records to an exchange as JSON.
package rabbitmq

import (
	"errors"
	"regexp"
	"strings"

	"github.com/compose/conduit/adaptor"
	"github.com/compose/conduit/client"
)

const (
	readSampleConfig = `    type: rabbitmq-read
    options:
      uri: ${env:RABBITMQ_URI}
      queue: places
      # or every queue of the vhost matching a pattern, listed through the management api
      # pattern: ^places
      # api_port: 15672
      # limit: 100
      # ssl: false
      # cacerts: [/path/to/cert.pem]`

	writeSampleConfig = `    type: rabbitmq-write
    options:
      uri: ${env:RABBITMQ_URI}
      exchange: places
      routing_key: ""
      # key_in_field: false
      # delivery_mode: 1 # non-persistent (1) or persistent (2)`
)

var (
	_ adaptor.Readable = &Reader{}
	_ adaptor.Writable = &Writer{}

	// ErrMissingQueue is returned when rabbitmq-read names neither a queue nor a pattern.
	ErrMissingQueue = errors.New("missing queue or pattern")
)

// Registrations returns the adaptors of this package.
func Registrations() []adaptor.Registration {
	return []adaptor.Registration{
		{
			Name:         "rabbitmq-read",
			Description:  "an adaptor that drains RabbitMQ queues of their JSON messages",
			SampleConfig: readSampleConfig,
			Creator: func() adaptor.Adaptor {
				return &Reader{APIPort: DefaultAPIPort}
			},
		},
		{
			Name:         "rabbitmq-write",
			Description:  "an adaptor that publishes every record to a RabbitMQ exchange",
			SampleConfig: writeSampleConfig,
			Creator: func() adaptor.Adaptor {
				return &Writer{RoutingKey: DefaultRoutingKey, DeliveryMode: DefaultDeliveryMode}
			},
		},
	}
}

// Config defines the connection settings shared by both adaptors.
type Config struct {
	URI     string   `json:"uri"`
	SSL     bool     `json:"ssl"`
	CACerts []string `json:"cacerts"`
}

// Client creates an instance of Client to be used for connecting to RabbitMQ.
func (c *Config) Client() (client.Client, error) {
	return NewClient(*c)
}

// Reader drains Queue, or every queue of the vhost whose name matches Pattern.
type Reader struct {
	Config
	Queue   string `json:"queue"`
	Pattern string `json:"pattern"`
	APIPort int    `json:"api_port"`
	Limit   int    `json:"limit"`
}

// Reader instantiates a Reader consuming the configured queues.
func (r *Reader) Reader() (client.Reader, error) {
	qr := &queueReader{uri: r.URI, apiPort: r.APIPort, limit: r.Limit}
	if qr.uri == "" {
		qr.uri = DefaultURI
	}
	switch {
	case r.Queue != "":
		qr.queues = []string{r.Queue}
	case r.Pattern != "":
		filter, err := regexp.Compile(strings.Trim(r.Pattern, "/"))
		if err != nil {
			return nil, err
		}
		qr.filter = filter
	default:
		return nil, ErrMissingQueue
	}
	return qr, nil
}

// Writer publishes to Exchange. With KeyInField the routing key is read out of every
// record at the RoutingKey path.
type Writer struct {
	Config
	Exchange     string `json:"exchange"`
	RoutingKey   string `json:"routing_key"`
	KeyInField   bool   `json:"key_in_field"`
	DeliveryMode uint8  `json:"delivery_mode"`
}

// Writer instantiates a Writer for use with publishing to an exchange.
func (w *Writer) Writer() (client.Writer, error) {
	return &publisher{
		exchange:     w.Exchange,
		routingKey:   w.RoutingKey,
		keyInField:   w.KeyInField,
		deliveryMode: w.DeliveryMode,
	}, nil
}
