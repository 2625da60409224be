package rename

import (
	"context"
	"sort"

	"github.com/compose/conduit/function"
	"github.com/compose/conduit/record"
)

var (
	_ function.Function = &rename{}
)

// Registrations returns the functions of this package.
func Registrations() []function.Registration {
	return []function.Registration{
		{
			Name:        "rename",
			Description: "renames fields of a record",
			Creator: func() function.Function {
				return &rename{}
			},
		},
	}
}

// rename swaps out the field names based on the provided config
type rename struct {
	SwapMap map[string]string `json:"field_map"`
}

func (r *rename) Apply(_ context.Context, _ function.Env, rec interface{}) (interface{}, error) {
	m, ok := record.AsMap(record.Clone(rec))
	if !ok {
		return rec, nil
	}
	oldNames := make([]string, 0, len(r.SwapMap))
	for oldName := range r.SwapMap {
		oldNames = append(oldNames, oldName)
	}
	sort.Strings(oldNames)
	for _, oldName := range oldNames {
		if val, ok := record.Get(m, oldName); ok {
			record.Delete(m, oldName)
			record.Set(m, r.SwapMap[oldName], val)
		}
	}
	return m, nil
}
