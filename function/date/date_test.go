package date

import (
	"context"
	"reflect"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/compose/conduit/function"
)

var testRegistry = function.NewRegistry(Registrations()...)

var applyTests = []struct {
	name string
	fn   string
	conf map[string]interface{}
	in   interface{}
	out  interface{}
}{
	{"iso from rfc3339", "date", nil, "2019-05-01T10:30:00+10:00", "2019-05-01T00:30:00.000Z"},
	{"iso from day", "to-date-format", nil, "2019-05-01", "2019-05-01T00:00:00.000Z"},
	{"iso from millis", "date", nil, float64(1556670600000), "2019-05-01T00:30:00.000Z"},
	{"timestamp", "date", map[string]interface{}{"format": "timestamp"}, "2019-05-01T00:30:00Z", float64(1556670600000)},
	{"alias", "date", map[string]interface{}{"format": "date"}, "Wed, 01 May 2019 00:30:00 GMT", "2019-05-01"},
	{"layout", "date", map[string]interface{}{"format": "02/01/2006"}, "2019-05-01", "01/05/2019"},
	{"timezone", "date", map[string]interface{}{"format": "datetime", "timezone": "Australia/Melbourne"}, "2019-05-01T00:30:00Z", "2019-05-01 10:30:00"},
	{"time value", "date", nil, time.Date(2019, 5, 1, 0, 30, 0, 0, time.UTC), "2019-05-01T00:30:00.000Z"},
	{"empty string", "date", nil, "", nil},
	{"nil", "date", nil, nil, nil},
}

func TestApply(t *testing.T) {
	for _, at := range applyTests {
		fn, err := testRegistry.Get(at.fn, at.conf)
		if err != nil {
			t.Fatalf("[%s] unexpected Get() error, %s", at.name, err)
		}
		out, err := fn.Apply(context.Background(), function.Env{}, at.in)
		if err != nil {
			t.Errorf("[%s] unexpected Apply() error, %s", at.name, err)
		}
		if !reflect.DeepEqual(out, at.out) {
			t.Errorf("[%s] wrong value, expected %#v, got %#v", at.name, at.out, out)
		}
	}
}

func TestApplyErrors(t *testing.T) {
	if _, err := (&Date{}).Apply(context.Background(), function.Env{}, "not a date"); err != (ParseError{"not a date"}) {
		t.Errorf("unexpected error, expected ParseError, got %v", err)
	}
	if _, err := (&Date{Timezone: "Nowhere/Special"}).Apply(context.Background(), function.Env{}, "2019-05-01"); err == nil {
		t.Error("expected error but didn't receive one")
	}
	if _, err := testRegistry.Get("date", map[string]interface{}{"locale": "en"}); err == nil {
		t.Error("expected an unknown option to be rejected")
	}
}
