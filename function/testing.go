package function

import (
	"context"

	"github.com/compose/conduit/log"
)

var (
	_ Function = &Mock{}
)

// Mock passes records through untouched, counting calls and returning Err.
type Mock struct {
	ApplyCount int
	Err        error
}

func (m *Mock) Apply(_ context.Context, _ Env, rec interface{}) (interface{}, error) {
	m.ApplyCount++
	log.With("apply_count", m.ApplyCount).With("err", m.Err).Debugln("applying...")
	return rec, m.Err
}

// MockRegistration registers m under name.
func MockRegistration(name string, m *Mock) Registration {
	return Registration{Name: name, Description: "test double", Creator: func() Function { return m }}
}
