package file

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"unicode"

	"github.com/compose/conduit/client"
	"github.com/compose/conduit/log"
)

var (
	_ client.Reader = &Reader{}
)

// Reader implements the behavior defined by client.Reader for interfacing with the file.
type Reader struct {
	format string
}

func newReader(format string) *Reader {
	return &Reader{format}
}

func (r *Reader) Read(_ context.Context, s client.Session, emit client.EmitFunc) error {
	session, ok := s.(*Session)
	if !ok {
		return client.UnexpectedSessionError{Got: s}
	}
	l := log.With("file", session.file.Name()).With("format", r.format)
	var (
		count int
		err   error
	)
	counted := func(rec interface{}) error {
		count++
		return emit(rec)
	}
	if r.format == FormatCSV {
		err = decodeCSV(session.file, counted)
	} else {
		err = decodeJSON(session.file, counted)
	}
	if err != nil {
		return err
	}
	l.With("records", count).Infoln("Read completed")
	return nil
}

// decodeJSON reads either a single array, emitting each item, or a stream of
// concatenated documents.
func decodeJSON(in io.Reader, emit client.EmitFunc) error {
	br := bufio.NewReader(in)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil
	} else if err != nil {
		return err
	}
	dec := json.NewDecoder(br)
	if first == '[' {
		if _, err := dec.Token(); err != nil {
			return err
		}
		for dec.More() {
			var doc interface{}
			if err := dec.Decode(&doc); err != nil {
				return err
			}
			if err := emit(doc); err != nil {
				return err
			}
		}
		_, err := dec.Token()
		return err
	}
	for {
		var doc interface{}
		if err := dec.Decode(&doc); err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		if err := emit(doc); err != nil {
			return err
		}
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !unicode.IsSpace(rune(b)) {
			return b, br.UnreadByte()
		}
	}
}

// decodeCSV uses the first row as the keys of every following row.
func decodeCSV(in io.Reader, emit client.EmitFunc) error {
	r := csv.NewReader(in)
	header, err := r.Read()
	if err == io.EOF {
		return nil
	} else if err != nil {
		return err
	}
	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		doc := make(map[string]interface{}, len(header))
		for i, key := range header {
			doc[key] = row[i]
		}
		if err := emit(doc); err != nil {
			return err
		}
	}
}
