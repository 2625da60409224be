package mongodb

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"gopkg.in/mgo.v2"

	"github.com/compose/conduit/client"
	"github.com/compose/conduit/log"
)

const (
	// DefaultURI is used when no uri was configured.
	DefaultURI = "mongodb://127.0.0.1:27017/test"

	// DefaultTimeout bounds dialing the servers of the URI.
	DefaultTimeout = 10 * time.Second
)

var (
	_ client.Client = &Client{}
	_ client.Closer = &Client{}
	_ client.Closer = &Session{}

	readModes = map[string]mgo.Mode{
		"":                   mgo.Primary,
		"primary":            mgo.Primary,
		"primarypreferred":   mgo.PrimaryPreferred,
		"secondary":          mgo.Secondary,
		"secondarypreferred": mgo.SecondaryPreferred,
		"nearest":            mgo.Nearest,
	}
)

// InvalidReadPreferenceError represents the error when an incorrect mongo read preference has been set.
type InvalidReadPreferenceError struct {
	ReadPreference string
}

func (e InvalidReadPreferenceError) Error() string {
	return fmt.Sprintf("Invalid Read Preference, %s", e.ReadPreference)
}

// Client dials the servers of a Config once and hands every Connect call a copy of
// that main session.
type Client struct {
	info   *mgo.DialInfo
	safety mgo.Safe
	mode   mgo.Mode

	mu   sync.Mutex
	main *mgo.Session
}

// NewClient validates c and prepares the dial without connecting.
func NewClient(c Config) (*Client, error) {
	uri := c.URI
	if uri == "" {
		uri = DefaultURI
	}
	info, err := mgo.ParseURL(uri)
	if err != nil {
		return nil, client.InvalidURIError{URI: uri, Err: err.Error()}
	}
	info.Timeout = DefaultTimeout
	if c.Timeout != "" {
		if info.Timeout, err = time.ParseDuration(c.Timeout); err != nil {
			return nil, client.InvalidTimeoutError{Timeout: c.Timeout}
		}
	}
	tlsConfig, err := client.TLSConfig(c.SSL, c.CACerts)
	if err != nil {
		return nil, err
	}
	if tlsConfig != nil {
		info.DialServer = func(addr *mgo.ServerAddr) (net.Conn, error) {
			return tls.Dial("tcp", addr.String(), tlsConfig)
		}
	}
	mode, ok := readModes[strings.ToLower(c.ReadPreference)]
	if !ok {
		return nil, InvalidReadPreferenceError{ReadPreference: c.ReadPreference}
	}
	safety := mgo.Safe{FSync: c.FSync}
	if c.Wc > 0 {
		safety.W = c.Wc
	}
	return &Client{info: info, safety: safety, mode: mode}, nil
}

// Connect dials on first use and returns a copy of the main session. A context done
// before the dial completed fails the call; the late session is then closed.
func (c *Client) Connect(ctx context.Context) (client.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.main == nil {
		main, err := c.dial(ctx)
		if err != nil {
			return nil, err
		}
		c.main = main
	}
	return &Session{mgo: c.main.Copy()}, nil
}

type dialResult struct {
	s   *mgo.Session
	err error
}

func (c *Client) dial(ctx context.Context) (*mgo.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done := make(chan dialResult, 1)
	go func() {
		s, err := mgo.DialWithInfo(c.info)
		done <- dialResult{s, err}
	}()
	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.s != nil {
				r.s.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, client.ConnectError{Reason: r.err.Error()}
		}
		mgo.SetLogger(mgoLogger{})
		r.s.EnsureSafe(&c.safety)
		r.s.SetBatch(1000)
		r.s.SetPrefetch(0.5)
		r.s.SetSocketTimeout(time.Hour)
		r.s.SetMode(c.mode, true)
		log.With("db", c.info.Database).With("hosts", c.info.Addrs).Debugln("mongodb connected")
		return r.s, nil
	}
}

// Close closes the main session.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.main != nil {
		c.main.Close()
		c.main = nil
	}
}

// Session is the copy of the main session handed to readers and writers.
type Session struct {
	mgo *mgo.Session
}

// Close releases the copy.
func (s *Session) Close() {
	s.mgo.Close()
}

// mgoLogger routes the driver's own logging to debug output.
type mgoLogger struct{}

func (mgoLogger) Output(_ int, s string) error {
	log.Debugln(s)
	return nil
}
