package pipe

import (
	"context"
	"sync"
)

// Collector is a Sink keeping every record written to it.
type Collector struct {
	*SinkUnit

	mu      sync.Mutex
	records []interface{}
}

// NewCollector returns an empty Collector.
func NewCollector(name string) *Collector {
	c := &Collector{}
	c.SinkUnit = NewSink(name, c.collect)
	return c
}

func (c *Collector) collect(_ context.Context, rec interface{}) error {
	c.mu.Lock()
	c.records = append(c.records, rec)
	c.mu.Unlock()
	return nil
}

// Records returns a copy of what was collected so far.
func (c *Collector) Records() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]interface{}, len(c.records))
	copy(out, c.records)
	return out
}

// Last returns the most recent record.
func (c *Collector) Last() (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.records) == 0 {
		return nil, false
	}
	return c.records[len(c.records)-1], true
}
