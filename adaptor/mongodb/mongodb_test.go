package mongodb

import (
	"reflect"
	"regexp"
	"testing"
	"time"

	"gopkg.in/mgo.v2/bson"

	"github.com/compose/conduit/adaptor"
)

func TestRegistrations(t *testing.T) {
	reg := adaptor.NewRegistry(Registrations()...)
	a, err := reg.Get("mongodb-read", adaptor.Config{"uri": "mongodb://localhost:27017/places", "namespace": "places./^venue/", "limit": 10})
	if err != nil {
		t.Fatalf("unexpected Get() error, %s", err)
	}
	r, err := a.(adaptor.Readable).Reader()
	if err != nil {
		t.Fatalf("unexpected Reader() error, %s", err)
	}
	cr := r.(*collectionReader)
	if cr.db != "places" || cr.limit != 10 || !cr.filter.MatchString("venues") || cr.filter.MatchString("events") {
		t.Errorf("unexpected reader, %+v", cr)
	}
	if _, err := a.Client(); err != nil {
		t.Errorf("unexpected Client() error, %s", err)
	}
}

var writerTests = []struct {
	name   string
	config adaptor.Config
	bulk   bool
	key    string
	err    error
}{
	{"plain", adaptor.Config{"namespace": "places.venues"}, false, "_id", nil},
	{"bulk", adaptor.Config{"namespace": "places.venues", "bulk": true, "key": "slug"}, true, "slug", nil},
	{"missing namespace", adaptor.Config{}, false, "", adaptor.ErrNamespaceMalformed},
}

func TestWriterConfig(t *testing.T) {
	reg := adaptor.NewRegistry(Registrations()...)
	for _, wt := range writerTests {
		a, err := reg.Get("mongodb-write", wt.config)
		if err != nil {
			t.Fatalf("[%s] unexpected Get() error, %s", wt.name, err)
		}
		w, err := a.(adaptor.Writable).Writer()
		if err != wt.err {
			t.Errorf("[%s] unexpected error, expected %v, got %v", wt.name, wt.err, err)
			continue
		}
		switch v := w.(type) {
		case *Bulk:
			if !wt.bulk || v.key != wt.key || v.collection != "venues" {
				t.Errorf("[%s] unexpected writer, %+v", wt.name, v)
			}
		case *docWriter:
			if wt.bulk || v.key != wt.key || v.db != "places" {
				t.Errorf("[%s] unexpected writer, %+v", wt.name, v)
			}
		}
	}
}

func TestCollections(t *testing.T) {
	r := newReader("places", regexp.MustCompile("^venue"), nil, 0)
	got := r.collections([]string{"venues", "system.venues", "events", "venue_archive"})
	if expected := []string{"venues", "venue_archive"}; !reflect.DeepEqual(got, expected) {
		t.Errorf("unexpected collections, expected %v, got %v", expected, got)
	}
}

func TestSelector(t *testing.T) {
	r := newReader("places", regexp.MustCompile(".*"), map[string]interface{}{"region": "vic"}, 0)
	if got := r.selector(nil); !reflect.DeepEqual(got, bson.M{"region": "vic"}) {
		t.Errorf("unexpected selector, got %v", got)
	}
	got := r.selector("abc")
	expected := bson.M{"region": "vic", "_id": bson.M{"$gt": "abc"}}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("unexpected selector, expected %v, got %v", expected, got)
	}
	if _, ok := r.query["_id"]; ok {
		t.Error("configured query was modified")
	}
}

func TestRemaining(t *testing.T) {
	if n := newReader("", nil, nil, 0).remaining(5); n != 0 {
		t.Errorf("unexpected remaining, expected 0, got %d", n)
	}
	if n := newReader("", nil, nil, 8).remaining(5); n != 3 {
		t.Errorf("unexpected remaining, expected 3, got %d", n)
	}
}

var sortableTests = []struct {
	id       interface{}
	sortable bool
}{
	{bson.NewObjectId(), true},
	{"abc", true},
	{1.5, true},
	{int64(1), true},
	{time.Now(), true},
	{map[string]interface{}{"a": 1}, false},
	{1, false},
}

func TestSortable(t *testing.T) {
	for _, st := range sortableTests {
		if got := sortable(st.id); got != st.sortable {
			t.Errorf("[%T] unexpected sortable, expected %v, got %v", st.id, st.sortable, got)
		}
	}
}

func TestPlain(t *testing.T) {
	in := bson.M{"a": bson.M{"b": []interface{}{bson.M{"c": 1}}}}
	expected := map[string]interface{}{"a": map[string]interface{}{"b": []interface{}{map[string]interface{}{"c": 1}}}}
	if got := plain(in); !reflect.DeepEqual(got, expected) {
		t.Errorf("unexpected document, expected %#v, got %#v", expected, got)
	}
}

func TestDocument(t *testing.T) {
	if _, err := document("nope"); err == nil {
		t.Error("expected error but didn't receive one")
	}
	doc, err := document(map[string]interface{}{"_id": 1})
	if err != nil || doc["_id"] != 1 {
		t.Errorf("unexpected document %v, %v", doc, err)
	}
}
