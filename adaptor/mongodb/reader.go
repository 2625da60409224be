package mongodb

import (
	"context"
	"regexp"
	"strings"
	"time"

	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/compose/conduit/client"
	"github.com/compose/conduit/log"
)

var _ client.Reader = &collectionReader{}

// requeryWait is how long a broken iteration waits before the query is reissued.
var requeryWait = 5 * time.Second

type collectionReader struct {
	db     string
	filter *regexp.Regexp
	query  bson.M
	limit  int
}

func newReader(db string, filter *regexp.Regexp, query map[string]interface{}, limit int) *collectionReader {
	return &collectionReader{db: db, filter: filter, query: bson.M(query), limit: limit}
}

func (r *collectionReader) Read(ctx context.Context, s client.Session, emit client.EmitFunc) error {
	sess, ok := s.(*Session)
	if !ok {
		return client.UnexpectedSessionError{Got: s}
	}
	session := sess.mgo
	db := session.DB(r.db)
	log.With("db", db.Name).Infoln("starting Read func")
	names, err := db.CollectionNames()
	if err != nil {
		return err
	}
	collections := r.collections(names)
	log.With("db", db.Name).With("num_collections", len(collections)).Infoln("collection count")

	emitted := 0
	for _, c := range collections {
		n, err := r.iterateCollection(ctx, session, c, emit, r.remaining(emitted))
		emitted += n
		if err != nil {
			return err
		}
		log.With("db", db.Name).With("collection", c).Infoln("iterating complete")
		if r.limit > 0 && emitted >= r.limit {
			break
		}
	}
	log.With("db", db.Name).Infoln("Read completed")
	return nil
}

func (r *collectionReader) remaining(emitted int) int {
	if r.limit <= 0 {
		return 0
	}
	return r.limit - emitted
}

// collections keeps the names matching the filter, skipping system collections.
func (r *collectionReader) collections(names []string) []string {
	var colls []string
	for _, c := range names {
		if r.filter.MatchString(c) && !strings.HasPrefix(c, "system.") {
			colls = append(colls, c)
			continue
		}
		log.With("collection", c).Debugln("skipping iteration...")
	}
	return colls
}

// iterateCollection emits the documents of c in _id order. When the cursor breaks and the
// _id values are sortable the query is reissued after the last seen _id.
func (r *collectionReader) iterateCollection(ctx context.Context, s *mgo.Session, c string, emit client.EmitFunc, limit int) (int, error) {
	canReissueQuery := r.requeryable(c, s)
	var (
		lastID interface{}
		count  int
	)
	for {
		session := s.Copy()
		iter := r.catQuery(c, lastID, session).Iter()
		var result bson.M
		for iter.Next(&result) {
			if id, ok := result["_id"]; ok {
				lastID = id
			}
			if err := ctx.Err(); err != nil {
				iter.Close()
				session.Close()
				return count, err
			}
			if err := emit(plain(result)); err != nil {
				iter.Close()
				session.Close()
				return count, err
			}
			count++
			if limit > 0 && count >= limit {
				break
			}
			result = bson.M{}
		}
		err := iter.Close()
		session.Close()
		if err == nil {
			return count, nil
		}
		log.With("collection", c).Errorf("error reading, %s", err)
		if !canReissueQuery {
			return count, err
		}
		log.With("collection", c).Errorln("attempting to reissue query")
		select {
		case <-time.After(requeryWait):
		case <-ctx.Done():
			return count, ctx.Err()
		}
	}
}

func (r *collectionReader) catQuery(c string, lastID interface{}, s *mgo.Session) *mgo.Query {
	return s.DB(r.db).C(c).Find(r.selector(lastID)).Sort("_id")
}

// selector copies the configured query, resuming after lastID when set.
func (r *collectionReader) selector(lastID interface{}) bson.M {
	query := bson.M{}
	for k, v := range r.query {
		query[k] = v
	}
	if lastID != nil {
		query["_id"] = bson.M{"$gt": lastID}
	}
	return query
}

func (r *collectionReader) requeryable(c string, s *mgo.Session) bool {
	db := s.DB(r.db)
	indexes, err := db.C(c).Indexes()
	if err != nil {
		log.With("database", db.Name).With("collection", c).Errorf("unable to list indexes, %s", err)
		return false
	}
	for _, index := range indexes {
		if len(index.Key) > 0 && index.Key[0] == "_id" {
			var result bson.M
			err := db.C(c).Find(nil).Select(bson.M{"_id": 1}).One(&result)
			if err != nil {
				log.With("database", db.Name).With("collection", c).Errorf("unable to sample document, %s", err)
				break
			}
			if id, ok := result["_id"]; ok && sortable(id) {
				return true
			}
			break
		}
	}
	log.With("database", db.Name).With("collection", c).Infoln("invalid _id, any issues copying will be aborted")
	return false
}

func sortable(id interface{}) bool {
	switch id.(type) {
	case bson.ObjectId, string, float64, int64, time.Time:
		return true
	}
	return false
}

// plain turns the bson.M documents mgo decodes into plain maps, recursively.
func plain(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		return plain(map[string]interface{}(t))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = plain(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = plain(val)
		}
		return out
	}
	return v
}
