package file

import (
	"context"
	"os"
	"strings"

	"github.com/compose/conduit/client"
	"github.com/compose/conduit/log"
)

const (
	// DefaultURI is the default file, stdout
	DefaultURI = "stdout://"
)

var (
	_ client.Client = &Client{}
)

// ClientOptionFunc is a function that configures a Client.
// It is used in NewClient.
type ClientOptionFunc func(*Client) error

// Client represents a client to the underlying file or stdout.
type Client struct {
	uri   string
	write bool
}

// NewClient creates a default file client
func NewClient(options ...ClientOptionFunc) (*Client, error) {
	// Set up the client
	c := &Client{
		uri: DefaultURI,
	}

	// Run the options on it
	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WithURI defines the full path to the file, prefixed with file://, or stdout://
func WithURI(uri string) ClientOptionFunc {
	return func(c *Client) error {
		if uri == "" {
			return nil
		}
		if !strings.HasPrefix(uri, "file://") && !strings.HasPrefix(uri, "stdout://") {
			return client.InvalidURIError{URI: uri, Err: "expected file:// or stdout://"}
		}
		c.uri = uri
		return nil
	}
}

// WithWrite opens the file for writing, truncating it.
func WithWrite(write bool) ClientOptionFunc {
	return func(c *Client) error {
		c.write = write
		return nil
	}
}

// Connect initializes the file for IO
func (c *Client) Connect(context.Context) (client.Session, error) {
	if strings.HasPrefix(c.uri, "stdout://") {
		if !c.write {
			return &Session{file: os.Stdin, shared: true}, nil
		}
		return &Session{file: os.Stdout, shared: true}, nil
	}
	name := strings.TrimPrefix(c.uri, "file://")
	var (
		f   *os.File
		err error
	)
	if c.write {
		f, err = os.Create(name)
	} else {
		f, err = os.Open(name)
	}
	if err != nil {
		return nil, client.ConnectError{Reason: err.Error()}
	}
	log.With("file", name).With("write", c.write).Debugln("file opened")
	return &Session{file: f}, nil
}
