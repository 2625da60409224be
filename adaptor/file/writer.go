package file

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/compose/conduit/client"
	"github.com/compose/conduit/record"
	"github.com/compose/conduit/selector"
)

var (
	_ client.Writer   = &Writer{}
	_ client.Finisher = &Writer{}
)

// Writer implements client.Writer for use with Files
type Writer struct {
	format string
}

func newWriter(format string) *Writer {
	return &Writer{format}
}

func (w *Writer) Write(_ context.Context, s client.Session, rec interface{}) error {
	session, ok := s.(*Session)
	if !ok {
		return client.UnexpectedSessionError{Got: s}
	}
	var err error
	switch w.format {
	case FormatCSV:
		err = writeRow(session, rec)
	case FormatJSON:
		err = writeItem(session, rec)
	default:
		err = json.NewEncoder(session.file).Encode(record.Normalize(rec))
	}
	if err != nil {
		return err
	}
	session.count++
	return nil
}

// Finish terminates the JSON array or flushes the pending CSV rows.
func (w *Writer) Finish(_ context.Context, s client.Session) error {
	session, ok := s.(*Session)
	if !ok {
		return client.UnexpectedSessionError{Got: s}
	}
	switch w.format {
	case FormatCSV:
		if session.csv == nil {
			return nil
		}
		session.csv.Flush()
		return session.csv.Error()
	case FormatJSON:
		if session.count == 0 {
			_, err := session.file.WriteString("[]\n")
			return err
		}
		_, err := session.file.WriteString("\n]\n")
		return err
	}
	return nil
}

func writeItem(s *Session, rec interface{}) error {
	b, err := json.Marshal(record.Normalize(rec))
	if err != nil {
		return err
	}
	sep := ",\n"
	if s.count == 0 {
		sep = "[\n"
	}
	if _, err := s.file.WriteString(sep); err != nil {
		return err
	}
	_, err = s.file.Write(b)
	return err
}

// writeRow writes rec as a CSV row. The keys of the first record become the header.
func writeRow(s *Session, rec interface{}) error {
	doc, ok := record.AsMap(rec)
	if !ok {
		return fmt.Errorf("csv rows must be objects, got %T", rec)
	}
	if s.csv == nil {
		s.csv = csv.NewWriter(s.file)
		for k := range doc {
			s.header = append(s.header, k)
		}
		sort.Strings(s.header)
		if err := s.csv.Write(s.header); err != nil {
			return err
		}
	}
	row := make([]string, len(s.header))
	for i, k := range s.header {
		row[i] = selector.Stringify(doc[k])
	}
	return s.csv.Write(row)
}
