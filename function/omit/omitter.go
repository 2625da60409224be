package omit

import (
	"context"

	"github.com/compose/conduit/function"
	"github.com/compose/conduit/record"
)

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	return []function.Registration{
		{
			Name:        "omit",
			Description: "removes the listed fields from a record",
			Creator: func() function.Function {
				return &Omitter{}
			},
		},
	}
}

// Omitter drops Fields from a copy of each record.
type Omitter struct {
	Fields []string `json:"fields"`
}

func (o *Omitter) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	m, ok := record.AsMap(record.Clone(rec))
	if !ok {
		return rec, nil
	}
	for _, k := range o.Fields {
		record.Delete(m, k)
	}
	return m, nil
}
