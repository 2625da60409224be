// Package text holds the string functions: case, formatting, truncation, joining and
// byte encodings. Values of other types are dropped unless noted.
package text

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/compose/conduit/function"
	"github.com/compose/conduit/selector"
)

// UnknownEncodingError is returned for encodings other than utf8, ascii, latin1, base64
// and hex.
type UnknownEncodingError struct {
	Encoding string
}

func (e UnknownEncodingError) Error() string {
	return fmt.Sprintf("unknown encoding, %s", e.Encoding)
}

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	return []function.Registration{
		{Name: "lowercase", Description: "lower cases a string", Creator: func() function.Function { return lowercase{} }},
		{Name: "uppercase", Description: "upper cases a string", Creator: func() function.Function { return uppercase{} }},
		{Name: "sprintf", Description: "formats the value, list values are spread as arguments", Creator: func() function.Function { return &Sprintf{} }},
		{Name: "truncate", Description: "shortens a string to length runes, marking the cut", Creator: func() function.Function { return &Truncate{} }},
		{Name: "join", Description: "joins the items of a list into a string", Creator: func() function.Function { return &Join{} }},
		{Name: "replace", Description: "replaces any value with a fixed one", Creator: func() function.Function { return &Replace{} }},
		{Name: "buffer-to-string", Description: "decodes bytes into a string", Creator: func() function.Function { return &Encoding{} }},
		{Name: "base64-encode", Description: "encodes a string or bytes as base64", Creator: func() function.Function { return base64Encode{} }},
		{Name: "base64-decode", Description: "decodes a base64 string", Creator: func() function.Function { return &Base64Decode{} }},
	}
}

func asBytes(v interface{}) ([]byte, bool) {
	switch s := v.(type) {
	case string:
		return []byte(s), true
	case []byte:
		return s, true
	}
	return nil, false
}

type lowercase struct{}

func (lowercase) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	if s, ok := rec.(string); ok {
		return strings.ToLower(s), nil
	}
	return nil, nil
}

type uppercase struct{}

func (uppercase) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	if s, ok := rec.(string); ok {
		return strings.ToUpper(s), nil
	}
	return nil, nil
}

// Sprintf formats the value with Format.
type Sprintf struct {
	Format string `json:"format"`
}

func (s *Sprintf) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	if l, ok := rec.([]interface{}); ok {
		return fmt.Sprintf(s.Format, l...), nil
	}
	return fmt.Sprintf(s.Format, rec), nil
}

// Truncate shortens strings longer than Length runes. The Mark (an ellipsis by default)
// is counted in Length and placed at Position, or at the end when Position is unset.
// Break cuts at the first line break first.
type Truncate struct {
	Length   int     `json:"length"`
	Position *int    `json:"position"`
	Mark     *string `json:"mark"`
	Break    bool    `json:"break"`
}

func (t *Truncate) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	s, ok := rec.(string)
	if !ok {
		return nil, nil
	}
	if t.Break {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(t.truncate(s)), nil
}

func (t *Truncate) truncate(s string) string {
	if t.Length <= 0 || utf8.RuneCountInString(s) <= t.Length {
		return s
	}
	mark := []rune("…")
	if t.Mark != nil {
		mark = []rune(*t.Mark)
	}
	runes := []rune(s)
	keep := t.Length - len(mark)
	if keep <= 0 {
		return string(mark[:t.Length])
	}
	if t.Position == nil || *t.Position >= keep || *t.Position < 0 {
		return string(runes[:keep]) + string(mark)
	}
	pos := *t.Position
	return string(runes[:pos]) + string(mark) + string(runes[len(runes)-(keep-pos):])
}

// Join concatenates list items, separated by Separator (a comma by default).
type Join struct {
	Separator *string `json:"separator"`
	Seperator *string `json:"seperator"`
}

func (j *Join) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	l, ok := rec.([]interface{})
	if !ok {
		return nil, nil
	}
	sep := ","
	switch {
	case j.Separator != nil:
		sep = *j.Separator
	case j.Seperator != nil:
		sep = *j.Seperator
	}
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = selector.Stringify(v)
	}
	return strings.Join(parts, sep), nil
}

// Replace returns Value whatever it is given.
type Replace struct {
	Value interface{} `json:"value"`
}

func (r *Replace) Apply(_ context.Context, _ function.Env, _ interface{}) (interface{}, error) {
	return r.Value, nil
}

// Encoding turns bytes (or a string) into a string using Encoding, utf8 by default.
type Encoding struct {
	Encoding string `json:"encoding"`
}

func (e *Encoding) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	b, ok := asBytes(rec)
	if !ok {
		return nil, nil
	}
	return encode(b, e.Encoding)
}

func encode(b []byte, encoding string) (string, error) {
	switch strings.ToLower(encoding) {
	case "", "utf8", "utf-8":
		return string(b), nil
	case "ascii":
		out := make([]byte, len(b))
		for i, c := range b {
			out[i] = c & 0x7f
		}
		return string(out), nil
	case "latin1", "binary":
		out := make([]rune, len(b))
		for i, c := range b {
			out[i] = rune(c)
		}
		return string(out), nil
	case "base64":
		return base64.StdEncoding.EncodeToString(b), nil
	case "hex":
		return hex.EncodeToString(b), nil
	}
	return "", UnknownEncodingError{encoding}
}

type base64Encode struct{}

func (base64Encode) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	b, ok := asBytes(rec)
	if !ok {
		return nil, nil
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Base64Decode decodes a base64 string, rendering the bytes with Encoding.
type Base64Decode struct {
	Encoding string `json:"encoding"`
}

func (d *Base64Decode) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	b, ok := asBytes(rec)
	if !ok {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(string(b))
	if err != nil {
		return nil, err
	}
	return encode(decoded, d.Encoding)
}
