package mongodb

import (
	"context"
	"sync"

	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/compose/conduit/client"
	"github.com/compose/conduit/log"
)

const (
	maxObjSize     int = 1000
	maxBSONObjSize int = 1e6
)

var (
	_ client.Writer   = &Bulk{}
	_ client.Finisher = &Bulk{}
)

// Bulk implements client.Writer for use with MongoDB and takes advantage of the Bulk API for
// performance improvements. Pending operations are flushed once a batch grows too large
// and when the stream finishes.
type Bulk struct {
	sync.Mutex
	db         string
	collection string
	key        string
	op         *bulkOperation
}

type bulkOperation struct {
	s          *mgo.Session
	bulk       *mgo.Bulk
	opCounter  int
	avgOpCount int
	avgTotal   int
	avgOpSize  float64
	bsonOpSize int
}

func newBulker(db, collection, key string) *Bulk {
	return &Bulk{db: db, collection: collection, key: key}
}

func (b *Bulk) Write(_ context.Context, s client.Session, rec interface{}) error {
	sess, ok := s.(*Session)
	if !ok {
		return client.UnexpectedSessionError{Got: s}
	}
	doc, err := document(rec)
	if err != nil {
		return err
	}
	b.Lock()
	defer b.Unlock()
	if b.op == nil {
		session := sess.mgo.Copy()
		b.op = &bulkOperation{
			s:    session,
			bulk: session.DB(b.db).C(b.collection).Bulk(),
		}
	}
	bOp := b.op
	if id, ok := doc[b.key]; ok {
		bOp.bulk.Upsert(bson.M{b.key: id}, doc)
	} else {
		bOp.bulk.Insert(doc)
	}
	bOp.opCounter++
	if bOp.opCounter%20 == 0 {
		log.With("opCounter", bOp.opCounter).Debugln("calculating avg obj size")
		bOp.calculateAvgObjSize(doc)
	}
	bOp.bsonOpSize = int(bOp.avgOpSize) * bOp.opCounter
	if bOp.opCounter >= maxObjSize || bOp.bsonOpSize >= maxBSONObjSize {
		return b.flush()
	}
	return nil
}

// Finish flushes the pending operations.
func (b *Bulk) Finish(_ context.Context, _ client.Session) error {
	b.Lock()
	defer b.Unlock()
	return b.flush()
}

func (bOp *bulkOperation) calculateAvgObjSize(doc bson.M) {
	bs, err := bson.Marshal(doc)
	if err != nil {
		log.Infof("unable to marshal doc to BSON, not adding to average, %s", err)
		return
	}
	bOp.avgOpCount++
	// add the 4 bytes for the MsgHeader
	// https://docs.mongodb.com/manual/reference/mongodb-wire-protocol/#standard-message-header
	bOp.avgTotal += (len(bs) + 4)
	bOp.avgOpSize = float64(bOp.avgTotal / bOp.avgOpCount)
	log.With("avgOpCount", bOp.avgOpCount).With("avgTotal", bOp.avgTotal).With("avgObSize", bOp.avgOpSize).Debugln("bulk stats")
}

func (b *Bulk) flush() error {
	bOp := b.op
	if bOp == nil {
		return nil
	}
	b.op = nil
	defer bOp.s.Close()
	log.With("collection", b.collection).With("opCounter", bOp.opCounter).With("bsonOpSize", bOp.bsonOpSize).Debugln("flushing bulk messages")
	_, err := bOp.bulk.Run()
	if err != nil && !mgo.IsDup(err) {
		log.With("collection", b.collection).Errorf("flush error, %s", err)
		return err
	} else if mgo.IsDup(err) {
		bOp.bulk.Unordered()
		if _, err := bOp.bulk.Run(); err != nil && !mgo.IsDup(err) {
			log.With("collection", b.collection).Errorf("flush error with unordered, %s", err)
			return err
		}
	}
	log.With("collection", b.collection).Debugln("flush complete")
	return nil
}
