package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/compose/conduit/function"
)

var testRegistry = function.NewRegistry(Registrations()...)

func newServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/places", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []interface{}{map[string]interface{}{"name": "a"}, map[string]interface{}{"name": "b"}},
		})
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		var body interface{}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]interface{}{"method": r.Method, "body": body})
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/bucket/exports/places.json", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "AWS4-HMAC-SHA256 Credential=key") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items": [{"name": "a"}, {"name": "b"}]}`)
	})
	return httptest.NewServer(mux)
}

func apply(t *testing.T, name string, conf map[string]interface{}, in interface{}) (interface{}, error) {
	fn, err := testRegistry.Get(name, conf)
	if err != nil {
		t.Fatalf("[%s] unexpected Get() error, %s", name, err)
	}
	return fn.Apply(context.Background(), function.Env{}, in)
}

func TestFetch(t *testing.T) {
	s := newServer()
	defer s.Close()

	a := map[string]interface{}{"name": "a"}
	b := map[string]interface{}{"name": "b"}
	var fetchTests = []struct {
		name     string
		fn       string
		conf     map[string]interface{}
		in       interface{}
		expected interface{}
	}{
		{
			"url value",
			"resolve-fetch-object",
			map[string]interface{}{"request": map[string]interface{}{"path": "results", "iterate": true}},
			s.URL + "/places",
			[]interface{}{a, b},
		},
		{
			"first only",
			"resolve-fetch-object",
			map[string]interface{}{"iterate": false, "request": map[string]interface{}{"path": "results", "iterate": true}},
			s.URL + "/places",
			a,
		},
		{
			"list of urls",
			"resolve-http-request",
			map[string]interface{}{"request": map[string]interface{}{"path": "results"}},
			[]interface{}{s.URL + "/places", s.URL + "/places"},
			[]interface{}{[]interface{}{a, b}, []interface{}{a, b}},
		},
		{
			"value as body",
			"resolve-fetch-object",
			map[string]interface{}{"url": s.URL + "/echo", "method": "post", "iterate": false},
			map[string]interface{}{"id": "7"},
			map[string]interface{}{"method": "POST", "body": map[string]interface{}{"id": "7"}},
		},
		{
			"mapping",
			"resolve-fetch-object",
			map[string]interface{}{
				"request": map[string]interface{}{"path": "results", "iterate": true},
				"mapping": map[string]interface{}{"title": "name"},
			},
			s.URL + "/places",
			[]interface{}{map[string]interface{}{"title": "a"}, map[string]interface{}{"title": "b"}},
		},
		{
			"undefined on error",
			"resolve-fetch-object",
			map[string]interface{}{"useUndefinedOnError": true},
			s.URL + "/missing",
			nil,
		},
	}
	for _, ft := range fetchTests {
		out, err := apply(t, ft.fn, ft.conf, ft.in)
		if err != nil {
			t.Errorf("[%s] unexpected Apply() error, %s", ft.name, err)
			continue
		}
		if !reflect.DeepEqual(out, ft.expected) {
			t.Errorf("[%s] unexpected value, expected %v, got %v", ft.name, ft.expected, out)
		}
	}
}

func TestFetchErrors(t *testing.T) {
	s := newServer()
	defer s.Close()

	if _, err := apply(t, "resolve-fetch-object", nil, s.URL+"/missing"); err == nil {
		t.Error("expected error but didn't receive one")
	}
	if _, err := apply(t, "resolve-fetch-object", nil, 42.0); err != ErrMissingURL {
		t.Errorf("unexpected error, expected %v, got %v", ErrMissingURL, err)
	}
	if _, err := testRegistry.Get("resolve-fetch-object", map[string]interface{}{"urls": []string{"x"}}); err == nil {
		t.Error("expected an unknown option to be rejected")
	}
}

func TestS3Object(t *testing.T) {
	s := newServer()
	defer s.Close()

	conf := map[string]interface{}{
		"endpoint":          s.URL,
		"path":              "items",
		"aws_access_key":    "key",
		"aws_access_secret": "secret",
	}
	expected := []interface{}{map[string]interface{}{"name": "a"}, map[string]interface{}{"name": "b"}}

	out, err := apply(t, "resolve-aws-s3-get-object", conf, map[string]interface{}{"Bucket": "bucket", "Key": "exports/places.json"})
	if err != nil {
		t.Fatalf("unexpected Apply() error, %s", err)
	}
	if !reflect.DeepEqual(out, expected) {
		t.Errorf("unexpected value, expected %v, got %v", expected, out)
	}

	conf["bucket"] = "bucket"
	out, err = apply(t, "resolve-aws-s3-get-object", conf, map[string]interface{}{"key": "exports/places.json"})
	if err != nil {
		t.Fatalf("unexpected Apply() error, %s", err)
	}
	if !reflect.DeepEqual(out, expected) {
		t.Errorf("unexpected value with default bucket, expected %v, got %v", expected, out)
	}
}

func TestS3ObjectErrors(t *testing.T) {
	if _, err := apply(t, "resolve-aws-s3-get-object", nil, map[string]interface{}{"key": "k"}); err != ErrMissingBucket {
		t.Errorf("unexpected error, expected %v, got %v", ErrMissingBucket, err)
	}
	if _, err := apply(t, "resolve-aws-s3-get-object", nil, map[string]interface{}{"bucket": "b"}); err != ErrMissingKey {
		t.Errorf("unexpected error, expected %v, got %v", ErrMissingKey, err)
	}
	if _, err := apply(t, "resolve-aws-s3-get-object", nil, "not an object"); err != ErrMissingBucket {
		t.Errorf("unexpected error, expected %v, got %v", ErrMissingBucket, err)
	}
}
