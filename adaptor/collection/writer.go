package collection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/compose/conduit/adaptor/fetch"
	"github.com/compose/conduit/client"
	"github.com/compose/conduit/log"
	"github.com/compose/conduit/record"
)

var (
	_ client.Writer   = &syncWriter{}
	_ client.Finisher = &syncWriter{}

	// ErrMissingExternalRef is returned for items without an external reference and source.
	ErrMissingExternalRef = errors.New("Must configure the external-ref and external-source attribute values in order to push record to the collection")
)

// SchemaError is returned for records that are not items.
type SchemaError struct {
	Schema interface{}
}

func (e SchemaError) Error() string {
	return fmt.Sprintf("Received item should contain a valid $schema that matches an item type, got %v", e.Schema)
}

type syncKey struct {
	ref    string
	source string
}

// recordSync is what the cache keeps of an item already in the collection.
type recordSync struct {
	id       string
	key      syncKey
	modified time.Time
}

type syncWriter struct {
	api        string
	apiKey     string
	refs       refs
	collection string
	profile    string
	pageSize   int
	retry      int
	wait       time.Duration

	loaded bool
	cache  []recordSync
	pushed map[syncKey]bool
}

func (w *syncWriter) Write(ctx context.Context, s client.Session, rec interface{}) error {
	session, ok := s.(*fetch.Session)
	if !ok {
		return client.UnexpectedSessionError{Got: s}
	}
	item, ok := record.AsMap(rec)
	if !ok {
		return SchemaError{Schema: nil}
	}
	if schema, _ := item["$schema"].(string); strings.Index(schema, "item") <= 0 {
		return SchemaError{Schema: item["$schema"]}
	}
	key, timestamp := details(item)
	if key.ref == "" || key.source == "" {
		return ErrMissingExternalRef
	}
	if err := w.load(ctx, session); err != nil {
		return err
	}
	w.pushed[key] = true

	match, found := w.find(key)
	if !found {
		created := markPresent(record.Clone(item).(map[string]interface{}), true)
		_, err := w.do(ctx, session, http.MethodPost, w.endpoint("item", nil), w.transport(created))
		return err
	}
	if !timestamp.IsZero() && !match.modified.IsZero() && !timestamp.After(match.modified) {
		log.With("item", match.id).Debugln("item unchanged, skipping")
		return nil
	}
	merged, err := w.merge(ctx, session, match, item)
	if err != nil {
		return err
	}
	return w.publish(ctx, session, markPresent(merged, true))
}

// Finish flags every synced item that was not written again as no longer present.
func (w *syncWriter) Finish(ctx context.Context, s client.Session) error {
	session, ok := s.(*fetch.Session)
	if !ok {
		return client.UnexpectedSessionError{Got: s}
	}
	if err := w.load(ctx, session); err != nil {
		return err
	}
	for _, rs := range w.cache {
		if rs.key.ref == "" || rs.key.source == "" || w.pushed[rs.key] {
			continue
		}
		flag := map[string]interface{}{
			"$schema": "https://schemas.alpaca.travel/item-v1.0.0.schema.json",
		}
		merged, err := w.merge(ctx, session, rs, markPresent(flag, false))
		if err != nil {
			return err
		}
		if err := w.publish(ctx, session, merged); err != nil {
			return err
		}
		log.With("item", rs.id).Infoln("item no longer present")
	}
	return nil
}

func (w *syncWriter) find(key syncKey) (recordSync, bool) {
	for _, rs := range w.cache {
		if rs.key == key {
			return rs, true
		}
	}
	return recordSync{}, false
}

// load lists the items of the collection once.
func (w *syncWriter) load(ctx context.Context, s *fetch.Session) error {
	if w.loaded {
		return nil
	}
	total := w.pageSize
	for offset := 0; len(w.cache) < total; offset += w.pageSize {
		href := w.endpoint("item", url.Values{
			"collection": {w.collection},
			"profile":    {w.profile},
			"limit":      {fmt.Sprint(w.pageSize)},
			"offset":     {fmt.Sprint(offset)},
		})
		data, err := w.do(ctx, s, http.MethodGet, href, nil)
		if err != nil {
			return err
		}
		page, _ := record.AsMap(data)
		results, _ := page["results"].([]interface{})
		n, _ := page["total"].(float64)
		if n == 0 || len(results) == 0 {
			break
		}
		total = int(n)
		for _, r := range results {
			item, _ := record.AsMap(r)
			ref, _ := item["$ref"].(string)
			if ref == "" {
				return fmt.Errorf("Missing item $ref in response")
			}
			key, modified := details(item)
			w.cache = append(w.cache, recordSync{
				id:       w.refs.trim(w.refs.clean(ref, "item")),
				key:      key,
				modified: modified,
			})
		}
	}
	w.loaded = true
	log.With("collection", w.collection).With("items", len(w.cache)).Infoln("collection loaded")
	return nil
}

// merge fetches the stored item and lays next over it. Attributes of next replace the
// stored ones with the same reference.
func (w *syncWriter) merge(ctx context.Context, s *fetch.Session, origin recordSync, next map[string]interface{}) (map[string]interface{}, error) {
	data, err := w.do(ctx, s, http.MethodGet, w.endpoint(origin.id, nil), nil)
	if err != nil {
		return nil, err
	}
	stored, ok := record.AsMap(data)
	if !ok {
		return nil, fmt.Errorf("Record %s no longer exists", origin.id)
	}
	return mergeItems(stored, next), nil
}

func mergeItems(stored, next map[string]interface{}) map[string]interface{} {
	replacement := record.Clone(stored).(map[string]interface{})
	for k, v := range next {
		if k != "attributes" {
			replacement[k] = record.Clone(v)
		}
	}
	nextAttrs, _ := next["attributes"].([]interface{})
	storedAttrs, _ := replacement["attributes"].([]interface{})
	attrs := make([]interface{}, 0, len(storedAttrs)+len(nextAttrs))
	for _, a := range storedAttrs {
		if _, replaced := findAttribute(nextAttrs, attributeRef(a)); !replaced {
			attrs = append(attrs, a)
		}
	}
	for _, a := range nextAttrs {
		attrs = append(attrs, record.Clone(a))
	}
	replacement["attributes"] = attrs
	return replacement
}

func (w *syncWriter) publish(ctx context.Context, s *fetch.Session, item map[string]interface{}) error {
	out := w.transport(item)
	id, _ := out["$id"].(string)
	_, err := w.do(ctx, s, http.MethodPut, w.endpoint(id+"/publish", nil), out)
	return err
}

// transport prepares item for sending, pinning it to the configured profile and collection.
func (w *syncWriter) transport(item map[string]interface{}) map[string]interface{} {
	dupe := record.Clone(item).(map[string]interface{})
	delete(dupe, "created")
	delete(dupe, "modified")
	delete(dupe, "geometry-features")
	if ref, ok := dupe["$ref"].(string); ok {
		dupe["$id"] = w.refs.trim(ref)
		delete(dupe, "$ref")
	}
	dupe["profile"] = map[string]interface{}{"$ref": w.profile}
	dupe["collection"] = map[string]interface{}{"$ref": w.collection}
	return dupe
}

func (w *syncWriter) endpoint(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("accessToken", w.apiKey)
	return fmt.Sprintf("%s/%s?%s", w.api, path, query.Encode())
}

func (w *syncWriter) do(ctx context.Context, s *fetch.Session, method, href string, body interface{}) (interface{}, error) {
	return s.Do(ctx, fetch.Request{
		Method:  method,
		URL:     href,
		Body:    body,
		Retries: w.retry,
		Wait:    w.wait,
	})
}

// markPresent sets the import-present flag of item.
func markPresent(item map[string]interface{}, present bool) map[string]interface{} {
	attrs, _ := item["attributes"].([]interface{})
	if a, ok := findAttribute(attrs, importPresentAttr); ok {
		a["value"] = present
		return item
	}
	item["attributes"] = append(attrs, map[string]interface{}{
		"attribute": map[string]interface{}{"$ref": importPresentAttr},
		"value":     present,
	})
	return item
}

// details reads the sync key and the last modification of item.
func details(item map[string]interface{}) (syncKey, time.Time) {
	attrs, _ := item["attributes"].([]interface{})
	var key syncKey
	if a, ok := findAttribute(attrs, externalRefAttr); ok && a["value"] != nil {
		key.ref = fmt.Sprint(a["value"])
	}
	if a, ok := findAttribute(attrs, externalSourceAttr); ok && a["value"] != nil {
		key.source = fmt.Sprint(a["value"])
	}
	modified := parseTime(item["modified"])
	if modified.IsZero() {
		modified = parseTime(item["created"])
	}
	return key, modified
}

func findAttribute(attrs []interface{}, ref string) (map[string]interface{}, bool) {
	for _, a := range attrs {
		if attributeRef(a) == ref {
			m, _ := record.AsMap(a)
			return m, true
		}
	}
	return nil, false
}

func attributeRef(a interface{}) string {
	ref, _ := record.Get(a, "attribute.$ref")
	s, _ := ref.(string)
	return s
}

func parseTime(v interface{}) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
