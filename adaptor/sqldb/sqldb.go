// Package sqldb reads query results from and writes records to PostgreSQL or MySQL.
package sqldb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/compose/conduit/adaptor"
	"github.com/compose/conduit/client"
	"github.com/compose/conduit/function"
	"github.com/compose/conduit/log"
	"github.com/compose/conduit/record"
	"github.com/compose/conduit/selector"
)

const (
	readSampleConfig = `    type: sql-read
    options:
      uri: ${env:POSTGRES_URI}
      query: SELECT id, name FROM places WHERE region = $1
      params: [vic]`

	writeSampleConfig = `    type: sql-write
    options:
      uri: ${env:POSTGRES_URI}
      statement: INSERT INTO places (id, name) VALUES ($1, $2)
      params: [id, name]
      # or, inserting every key of the record
      # table: places`
)

var (
	_ adaptor.Readable = &Reader{}
	_ adaptor.Writable = &Writer{}

	// ErrMissingQuery is returned when sql-read has no query.
	ErrMissingQuery = errors.New("missing query")
	// ErrMissingStatement is returned when sql-write has neither a statement nor a table.
	ErrMissingStatement = errors.New("missing statement or table")
)

// Registrations returns the adaptors of this package.
func Registrations() []adaptor.Registration {
	return []adaptor.Registration{
		{
			Name:         "sql-read",
			Description:  "an adaptor that emits every row returned by a query",
			SampleConfig: readSampleConfig,
			Creator:      func() adaptor.Adaptor { return &Reader{} },
		},
		{
			Name:         "sql-write",
			Description:  "an adaptor that executes a statement for every record",
			SampleConfig: writeSampleConfig,
			Creator:      func() adaptor.Adaptor { return &Writer{} },
		},
	}
}

// Config holds the connection string shared by both adaptors.
type Config struct {
	URI string `json:"uri" doc:"postgres://... or mysql://..."`
}

func (c *Config) Client() (client.Client, error) {
	return NewClient(WithURI(c.URI))
}

// Reader runs Query once with Params and emits each row as a map of column to value.
type Reader struct {
	Config
	Query  string        `json:"query"`
	Params []interface{} `json:"params"`
}

func (r *Reader) Reader() (client.Reader, error) {
	if r.Query == "" {
		return nil, ErrMissingQuery
	}
	return &rowReader{query: r.Query, params: r.Params}, nil
}

type rowReader struct {
	query  string
	params []interface{}
}

func (r *rowReader) Read(ctx context.Context, s client.Session, emit client.EmitFunc) error {
	session, ok := s.(*Session)
	if !ok {
		return client.UnexpectedSessionError{Got: s}
	}
	rows, err := session.db.QueryContext(ctx, r.query, r.params...)
	if err != nil {
		return err
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	count := 0
	for rows.Next() {
		values := make([]interface{}, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		if err := emit(rowData(columns, values)); err != nil {
			return err
		}
		count++
	}
	log.With("driver", session.driver).With("rows", count).Infoln("Read completed")
	return rows.Err()
}

// rowData pairs columns with values; drivers hand text back as []byte.
func rowData(columns []string, values []interface{}) map[string]interface{} {
	doc := make(map[string]interface{}, len(columns))
	for i, col := range columns {
		if b, ok := values[i].([]byte); ok {
			doc[col] = string(b)
			continue
		}
		doc[col] = values[i]
	}
	return doc
}

// Writer executes Statement for every record, each of its Params being a selector
// resolved against the record. Without a Statement every key of the record is inserted
// into Table.
type Writer struct {
	Config
	Statement string        `json:"statement"`
	Params    []interface{} `json:"params"`
	Table     string        `json:"table"`
}

func (w *Writer) Writer() (client.Writer, error) {
	if w.Statement == "" && w.Table == "" {
		return nil, ErrMissingStatement
	}
	params := make([]selector.Specs, len(w.Params))
	for i, p := range w.Params {
		specs, err := selector.ParseSpecs(p)
		if err != nil {
			return nil, fmt.Errorf("param %d: %w", i, err)
		}
		params[i] = specs
	}
	return &statementWriter{statement: w.Statement, params: params, table: w.Table}, nil
}

type statementWriter struct {
	statement string
	params    []selector.Specs
	table     string
}

func (w *statementWriter) Write(ctx context.Context, s client.Session, rec interface{}) error {
	session, ok := s.(*Session)
	if !ok {
		return client.UnexpectedSessionError{Got: s}
	}
	query, args, err := w.build(ctx, session.driver, rec)
	if err != nil {
		return err
	}
	_, err = session.db.ExecContext(ctx, query, args...)
	return err
}

func (w *statementWriter) build(ctx context.Context, driver string, rec interface{}) (string, []interface{}, error) {
	if w.statement == "" {
		doc, ok := record.AsMap(rec)
		if !ok {
			return "", nil, fmt.Errorf("inserting into %s needs an object, got %T", w.table, rec)
		}
		query, args := insertStatement(driver, w.table, doc)
		return query, args, nil
	}
	args := make([]interface{}, len(w.params))
	for i, p := range w.params {
		v, _, err := p.Resolve(ctx, rec, function.Env{})
		if err != nil {
			return "", nil, err
		}
		args[i] = sqlValue(v)
	}
	return w.statement, args, nil
}

// insertStatement builds an INSERT of every key of doc, in key order.
func insertStatement(driver, table string, doc map[string]interface{}) (string, []interface{}) {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var (
		placeholders []string
		data         []interface{}
	)
	for i, key := range keys {
		placeholders = append(placeholders, placeholder(driver, i+1))
		data = append(data, sqlValue(doc[key]))
	}
	query := fmt.Sprintf("INSERT INTO %v (%v) VALUES (%v);", table, strings.Join(keys, ", "), strings.Join(placeholders, ", "))
	return query, data
}

func placeholder(driver string, i int) string {
	if driver == driverMySQL {
		return "?"
	}
	return fmt.Sprintf("$%v", i)
}

// sqlValue stores nested objects and lists as JSON text.
func sqlValue(v interface{}) interface{} {
	switch v.(type) {
	case map[string]interface{}, []interface{}, map[interface{}]interface{}:
		b, _ := json.Marshal(record.Normalize(v))
		return string(b)
	}
	return v
}
