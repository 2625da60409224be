package pipe

import (
	"context"
	"errors"
)

// Mock serves as a sink used to count the number of records written to it.
type Mock struct {
	RecordCount int
	Err         error
}

// Sink returns a Sink unit writing into the Mock. Every write fails with Err when set.
func (m *Mock) Sink(name string) *SinkUnit {
	return NewSink(name, func(_ context.Context, _ interface{}) error {
		m.RecordCount++
		return m.Err
	})
}

// ErrMockFailure is returned by sources built with Failing.
var ErrMockFailure = errors.New("mock failure")

// Failing returns a Source that yields records and then fails with ErrMockFailure.
func Failing(name string, records ...interface{}) *SourceUnit {
	return NewSource(name, func(ctx context.Context, emit func(interface{}) error) error {
		for _, rec := range records {
			if err := emit(rec); err != nil {
				return err
			}
		}
		return ErrMockFailure
	})
}
