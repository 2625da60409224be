package pick

import (
	"context"

	"github.com/compose/conduit/function"
	"github.com/compose/conduit/log"
	"github.com/compose/conduit/record"
)

var (
	_ function.Function = &picker{}
)

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	return []function.Registration{
		{
			Name:        "pick",
			Description: "keeps only the listed fields of a record",
			Creator: func() function.Function {
				return &picker{}
			},
		},
	}
}

type picker struct {
	Fields []string `json:"fields"`
}

func (p *picker) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	m, ok := record.AsMap(rec)
	if !ok {
		return rec, nil
	}
	log.With("record", m).Debugln("picking...")
	plucked := map[string]interface{}{}
	for _, k := range p.Fields {
		if v, ok := record.Get(m, k); ok {
			record.Set(plucked, k, record.Clone(v))
		}
	}
	log.With("record", plucked).Debugln("...picked")
	return plucked, nil
}
