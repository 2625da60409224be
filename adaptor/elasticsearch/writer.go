package elasticsearch

import (
	"context"
	"fmt"

	elastic "gopkg.in/olivere/elastic.v5"

	"github.com/compose/conduit/client"
	"github.com/compose/conduit/record"
	"github.com/compose/conduit/selector"
)

var (
	_ client.Writer   = &Writer{}
	_ client.Finisher = &Writer{}
)

// Writer implements client.Writer by queueing index requests on the session's bulk
// processor.
type Writer struct {
	index     string
	indexType string
	idField   string
}

func (w *Writer) Write(_ context.Context, s client.Session, rec interface{}) error {
	session, ok := s.(*Session)
	if !ok {
		return client.UnexpectedSessionError{Got: s}
	}
	br, err := w.request(rec)
	if err != nil {
		return err
	}
	session.bp.Add(br)
	return nil
}

// request builds the index request for rec. The id field is removed from the document
// when it is the _id metadata field.
func (w *Writer) request(rec interface{}) (*elastic.BulkIndexRequest, error) {
	doc, ok := record.AsMap(rec)
	if !ok {
		return nil, fmt.Errorf("elasticsearch can only index objects, got %T", rec)
	}
	br := elastic.NewBulkIndexRequest().Index(w.index).Type(w.indexType)
	if id, ok := record.Get(doc, w.idField); ok && id != nil {
		br.Id(selector.Stringify(id))
		if w.idField == "_id" {
			doc = record.Clone(doc).(map[string]interface{})
			delete(doc, "_id")
		}
	}
	return br.Doc(doc), nil
}

// Finish commits everything queued so far.
func (w *Writer) Finish(_ context.Context, s client.Session) error {
	session, ok := s.(*Session)
	if !ok {
		return client.UnexpectedSessionError{Got: s}
	}
	return session.Flush()
}
