package sqldb

import (
	"context"
	"database/sql"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq" // import pq driver

	"github.com/compose/conduit/client"
	"github.com/compose/conduit/log"
)

const (
	// DefaultURI is the default endpoint of Postgres on the local machine.
	// Primarily used when initializing a new Client without a specific URI.
	DefaultURI = "postgres://postgres@localhost:5432?sslmode=disable"

	driverPostgres = "postgres"
	driverMySQL    = "mysql"
)

var (
	_ client.Client = &Client{}
	_ client.Closer = &Client{}
)

// ClientOptionFunc is a function that configures a Client.
// It is used in NewClient.
type ClientOptionFunc func(*Client) error

// Client represents a client to a PostgreSQL or MySQL database.
type Client struct {
	uri    string
	driver string
	dsn    string
	db     *sql.DB
}

// NewClient creates a default postgres client
func NewClient(options ...ClientOptionFunc) (*Client, error) {
	c := &Client{
		uri:    DefaultURI,
		driver: driverPostgres,
		dsn:    DefaultURI,
	}
	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WithURI defines the full connection string; the scheme picks the driver,
// postgres:// (or postgresql://) and mysql://.
func WithURI(uri string) ClientOptionFunc {
	return func(c *Client) error {
		if uri == "" {
			return nil
		}
		driver, dsn, err := parseURI(uri)
		if err != nil {
			return err
		}
		c.uri, c.driver, c.dsn = uri, driver, dsn
		return nil
	}
}

func parseURI(uri string) (string, string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", client.InvalidURIError{URI: uri, Err: err.Error()}
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		return driverPostgres, uri, nil
	case "mysql":
		conf := mysql.NewConfig()
		conf.Net = "tcp"
		conf.Addr = u.Host
		conf.DBName = strings.TrimPrefix(u.Path, "/")
		if u.User != nil {
			conf.User = u.User.Username()
			conf.Passwd, _ = u.User.Password()
		}
		params := u.Query()
		if len(params) > 0 {
			conf.Params = map[string]string{}
			for k := range params {
				conf.Params[k] = params.Get(k)
			}
		}
		return driverMySQL, conf.FormatDSN(), nil
	}
	return "", "", client.InvalidURIError{URI: uri, Err: "expected a postgres:// or mysql:// scheme"}
}

// Connect opens the database pool on first use and checks it is reachable.
func (c *Client) Connect(ctx context.Context) (client.Session, error) {
	if c.db == nil {
		// sql.Open only fails for unknown drivers
		db, err := sql.Open(c.driver, c.dsn)
		if err != nil {
			return nil, client.ConnectError{Reason: err.Error()}
		}
		c.db = db
	}
	if err := c.db.PingContext(ctx); err != nil {
		return nil, client.ConnectError{Reason: err.Error()}
	}
	log.With("driver", c.driver).Debugln("database connected")
	return &Session{db: c.db, driver: c.driver}, nil
}

// Close implements necessary calls to cleanup the underlying *sql.DB
func (c *Client) Close() {
	if c.db != nil {
		c.db.Close()
	}
}

// Session serves as a wrapper for the underlying *sql.DB
type Session struct {
	db     *sql.DB
	driver string
}

var _ client.Session = &Session{}
