package mapselector

import (
	"context"
	"reflect"
	"testing"

	"github.com/compose/conduit/function"
	"github.com/compose/conduit/function/text"
)

var testEnv = function.NewEnv(function.NewRegistry(append(text.Registrations(), Registrations()...)...))

func TestMapSelector(t *testing.T) {
	fn, err := testEnv.Functions.Get("map-selector", map[string]interface{}{
		"mapping": map[string]interface{}{
			"title":       map[string]interface{}{"path": "name", "transform": "uppercase"},
			"place.city":  []interface{}{"town", "city"},
			"custom://id": "id",
		},
		"template":        map[string]interface{}{"type": "place"},
		"attributeLocale": "en",
	})
	if err != nil {
		t.Fatalf("unexpected Get() error, %s", err)
	}
	out, err := fn.Apply(context.Background(), testEnv, map[string]interface{}{"name": "nick", "city": "paris", "id": 1.0})
	if err != nil {
		t.Fatalf("unexpected Apply() error, %s", err)
	}
	expected := map[string]interface{}{
		"type":  "place",
		"title": "NICK",
		"place": map[string]interface{}{"city": "paris"},
		"attributes": []interface{}{
			map[string]interface{}{
				"attribute": map[string]interface{}{"$ref": "custom://id"},
				"value":     1.0,
				"locale":    "en",
			},
		},
	}
	if !reflect.DeepEqual(out, expected) {
		t.Errorf("unexpected result, expected %v, got %v", expected, out)
	}
}

func TestMapSelectorUnknownOption(t *testing.T) {
	_, err := testEnv.Functions.Get("map-selector", map[string]interface{}{"mappings": map[string]interface{}{}})
	if _, ok := err.(function.ConfigError); !ok {
		t.Errorf("expected ConfigError, got %T (%v)", err, err)
	}
}

func TestMapSelectorBadMapping(t *testing.T) {
	fn := &MapSelector{Mapping: map[string]interface{}{"a": 42}}
	if _, err := fn.Apply(context.Background(), testEnv, map[string]interface{}{}); err == nil {
		t.Error("expected error but didn't receive one")
	}
}
