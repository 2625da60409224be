package mongodb

import (
	"context"
	"fmt"

	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/compose/conduit/client"
	"github.com/compose/conduit/record"
)

var _ client.Writer = &docWriter{}

// docWriter inserts one document per record, replacing the stored one on a duplicate key.
type docWriter struct {
	db         string
	collection string
	key        string
}

func newWriter(db, collection, key string) *docWriter {
	return &docWriter{db: db, collection: collection, key: key}
}

func (w *docWriter) Write(_ context.Context, s client.Session, rec interface{}) error {
	sess, ok := s.(*Session)
	if !ok {
		return client.UnexpectedSessionError{Got: s}
	}
	doc, err := document(rec)
	if err != nil {
		return err
	}
	c := sess.mgo.DB(w.db).C(w.collection)
	err = c.Insert(doc)
	if err != nil && mgo.IsDup(err) {
		return c.Update(bson.M{w.key: doc[w.key]}, doc)
	}
	return err
}

// document returns rec as a bson document; only objects can be stored.
func document(rec interface{}) (bson.M, error) {
	m, ok := record.AsMap(rec)
	if !ok {
		return nil, fmt.Errorf("mongodb can only store objects, got %T", rec)
	}
	return bson.M(m), nil
}
