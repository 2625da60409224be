package client

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrMockConnect = errors.New("connect failed")
	ErrMockWrite   = errors.New("write failed")
)

// Mock can be used for mocking tests that need no actual client or Session.
type Mock struct {
	mu       sync.Mutex
	Sessions int
	Closed   int
}

// Connect satisfies the Client interface.
func (c *Mock) Connect(context.Context) (Session, error) {
	c.mu.Lock()
	c.Sessions++
	c.mu.Unlock()
	return &MockSession{client: c}, nil
}

// Open returns the number of sessions not closed yet.
func (c *Mock) Open() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Sessions - c.Closed
}

// MockErr can be used for mocking tests that need a failing Connect.
type MockErr struct {
}

// Connect satisfies the Client interface.
func (c *MockErr) Connect(context.Context) (Session, error) {
	return nil, ErrMockConnect
}

// MockSession can be used for mocking tests the do not need to use anything in the Session.
type MockSession struct {
	client *Mock
}

// Close satisfies the Closer interface.
func (s *MockSession) Close() {
	if s.client == nil {
		return
	}
	s.client.mu.Lock()
	s.client.Closed++
	s.client.mu.Unlock()
}

// MockReader emits RecordCount records shaped {"id": i}.
type MockReader struct {
	RecordCount int
}

func (r *MockReader) Read(_ context.Context, _ Session, emit EmitFunc) error {
	for i := 0; i < r.RecordCount; i++ {
		if err := emit(map[string]interface{}{"id": i}); err != nil {
			return err
		}
	}
	return nil
}

// MockWriter keeps every record sent to Write.
type MockWriter struct {
	mu      sync.Mutex
	Records []interface{}
}

// Write satisfies the Writer interface.
func (w *MockWriter) Write(_ context.Context, _ Session, rec interface{}) error {
	w.mu.Lock()
	w.Records = append(w.Records, rec)
	w.mu.Unlock()
	return nil
}

// RecordCount returns the number of records written so far.
func (w *MockWriter) RecordCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.Records)
}

// MockErrWriter fails every write with ErrMockWrite.
type MockErrWriter struct {
}

// Write satisfies the Writer interface.
func (w *MockErrWriter) Write(context.Context, Session, interface{}) error {
	return ErrMockWrite
}
