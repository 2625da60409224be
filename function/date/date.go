// Package date reads dates out of strings, epoch milliseconds or time values and
// writes them back in a chosen format.
package date

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/compose/conduit/function"
)

// ISOFormat is the default output, milliseconds in UTC.
const ISOFormat = "2006-01-02T15:04:05.000Z07:00"

var (
	_ function.Function = &Date{}

	// layouts tried in turn on string values.
	layouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02",
		time.RFC1123Z,
		time.RFC1123,
		time.RFC850,
		time.RFC822Z,
		time.RFC822,
		time.UnixDate,
		"January 2, 2006",
		"2 January 2006",
	}

	formatAliases = map[string]string{
		"":         ISOFormat,
		"iso":      ISOFormat,
		"iso8601":  ISOFormat,
		"rfc3339":  time.RFC3339,
		"rfc1123":  time.RFC1123,
		"rfc822":   time.RFC822,
		"unix":     time.UnixDate,
		"date":     "2006-01-02",
		"datetime": "2006-01-02 15:04:05",
		"time":     "15:04:05",
	}
)

// ParseError is returned for values that do not read as a date.
type ParseError struct {
	Value interface{}
}

func (e ParseError) Error() string {
	return fmt.Sprintf("invalid date %v", e.Value)
}

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	create := func() function.Function { return &Date{} }
	return []function.Registration{
		{Name: "date", Description: "formats a date as ISO 8601 or epoch milliseconds (format: timestamp)", Creator: create},
		{Name: "to-date-format", Description: "alias of date", Creator: create},
	}
}

// Date writes each date in Format: "timestamp" gives epoch milliseconds, an alias such
// as "date" or "rfc1123" or a Go layout gives a string. Empty values are dropped.
type Date struct {
	Format   string `json:"format"`
	Timezone string `json:"timezone"`

	loc *time.Location
}

func (d *Date) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	if empty(rec) {
		return nil, nil
	}
	t, err := Parse(rec)
	if err != nil {
		return nil, err
	}
	if d.Format == "timestamp" {
		return float64(t.UnixNano() / int64(time.Millisecond)), nil
	}
	if d.loc == nil {
		d.loc = time.UTC
		if d.Timezone != "" {
			if d.loc, err = time.LoadLocation(d.Timezone); err != nil {
				return nil, err
			}
		}
	}
	layout, ok := formatAliases[strings.ToLower(d.Format)]
	if !ok {
		layout = d.Format
	}
	t = t.In(d.loc)
	if layout == ISOFormat && d.loc == time.UTC {
		return t.Format("2006-01-02T15:04:05.000Z"), nil
	}
	return t.Format(layout), nil
}

// Parse reads v as a date. Numbers are epoch milliseconds.
func Parse(v interface{}) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case float64:
		return fromMillis(int64(d)), nil
	case int:
		return fromMillis(int64(d)), nil
	case int64:
		return fromMillis(d), nil
	case json.Number:
		n, err := d.Int64()
		if err != nil {
			return time.Time{}, ParseError{v}
		}
		return fromMillis(n), nil
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, ParseError{v}
}

func fromMillis(ms int64) time.Time {
	return time.Unix(0, ms*int64(time.Millisecond)).UTC()
}

func empty(v interface{}) bool {
	switch d := v.(type) {
	case nil:
		return true
	case string:
		return d == ""
	case float64:
		return d == 0
	case int:
		return d == 0
	case bool:
		return !d
	}
	return false
}
