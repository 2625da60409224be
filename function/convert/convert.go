// Package convert coerces values between numbers, booleans and JSON text.
package convert

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/compose/conduit/function"
)

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	num := func() function.Function { return toNumber{} }
	boolean := func() function.Function { return &ToBoolean{} }
	return []function.Registration{
		{Name: "to-number", Description: "converts strings and booleans to numbers", Creator: num},
		{Name: "number", Description: "alias of to-number", Creator: num},
		{Name: "to-boolean", Description: "converts yes/no, true/false and 1/0 to booleans", Creator: boolean},
		{Name: "boolean", Description: "alias of to-boolean", Creator: boolean},
		{Name: "json-parse", Description: "decodes a JSON string", Creator: func() function.Function { return &JSONParse{} }},
		{Name: "json-stringify", Description: "encodes the value as a JSON string", Creator: func() function.Function { return &JSONStringify{} }},
	}
}

type toNumber struct{}

func (toNumber) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	switch v := rec.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, nil
		}
		return f, nil
	case bool:
		if v {
			return float64(1), nil
		}
		return float64(0), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return float64(0), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, nil
		}
		return f, nil
	}
	return nil, nil
}

// ToBoolean reads common spellings of true and false. Inverse negates the result and
// Default is used when the value is not recognised.
type ToBoolean struct {
	Inverse bool  `json:"inverse"`
	Default *bool `json:"default"`
}

func (b *ToBoolean) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	v, ok := parseBool(rec)
	if !ok {
		if b.Default != nil {
			return *b.Default, nil
		}
		return nil, nil
	}
	if b.Inverse {
		return !v, nil
	}
	return v, nil
}

func parseBool(rec interface{}) (bool, bool) {
	switch v := rec.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(v) {
		case "1", "yes", "true":
			return true, true
		case "0", "no", "false":
			return false, true
		}
	case float64:
		return v == 1, v == 1 || v == 0
	case int:
		return v == 1, v == 1 || v == 0
	case int64:
		return v == 1, v == 1 || v == 0
	}
	return false, false
}

// JSONParse decodes strings and bytes. UseUndefinedOnError drops undecodable values
// instead of failing.
type JSONParse struct {
	UseUndefinedOnError bool `json:"useUndefinedOnError"`
}

func (p *JSONParse) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	var b []byte
	switch v := rec.(type) {
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return rec, nil
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		if p.UseUndefinedOnError {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

// JSONStringify encodes the value, indenting by Spaces when set.
type JSONStringify struct {
	Spaces int `json:"spaces"`
}

func (s *JSONStringify) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	var (
		b   []byte
		err error
	)
	if s.Spaces > 0 {
		b, err = json.MarshalIndent(rec, "", strings.Repeat(" ", s.Spaces))
	} else {
		b, err = json.Marshal(rec)
	}
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
