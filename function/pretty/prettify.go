package pretty

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/compose/mejson"

	"github.com/compose/conduit/function"
	"github.com/compose/conduit/log"
	"github.com/compose/conduit/record"
)

const (
	defaultIndent = 2
)

var (
	_ function.Function = &Prettify{}
)

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	creator := func() function.Function {
		return &Prettify{Spaces: defaultIndent}
	}
	return []function.Registration{
		{Name: "console", Description: "logs every record as indented JSON and passes it on", Creator: creator},
		{Name: "pretty", Description: "alias of console", Creator: creator},
	}
}

// Prettify prints each record, leaving it untouched.
type Prettify struct {
	Spaces int    `json:"spaces"`
	Prefix string `json:"prefix"`

	out io.Writer
}

func (p *Prettify) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	b, err := p.encode(rec)
	if err != nil {
		return nil, err
	}
	line := string(b)
	if p.Prefix != "" {
		line = p.Prefix + " " + line
	}
	if p.out != nil {
		fmt.Fprintln(p.out, line)
		return rec, nil
	}
	log.Infof("\n%s", line)
	return rec, nil
}

func (p *Prettify) encode(rec interface{}) ([]byte, error) {
	var doc interface{} = rec
	if m, ok := record.AsMap(rec); ok {
		d, err := mejson.Unmarshal(m)
		if err == nil {
			doc = map[string]interface{}(d)
		}
	}
	if p.Spaces > 0 {
		return json.MarshalIndent(doc, "", strings.Repeat(" ", p.Spaces))
	}
	return json.Marshal(doc)
}
