package adaptor

import (
	"github.com/compose/conduit/client"
)

var (
	_ Readable = &MockReader{}
	_ Writable = &MockWriter{}
	_ Adaptor  = &UnsupportedMock{}
)

// MockReader can be used for mocking tests that need a source emitting RecordCount records.
type MockReader struct {
	BaseConfig
	RecordCount int `json:"count"`

	Conn client.Mock `json:"-"`
}

// Client satisfies the Adaptor interface for providing a client.Client.
func (m *MockReader) Client() (client.Client, error) {
	return &m.Conn, nil
}

// Reader satisfies the Readable interface for providing a client.Reader.
func (m *MockReader) Reader() (client.Reader, error) {
	return &client.MockReader{RecordCount: m.RecordCount}, nil
}

// MockWriter can be used for mocking tests that need a sink keeping every record.
type MockWriter struct {
	BaseConfig

	Conn client.Mock       `json:"-"`
	Out  client.MockWriter `json:"-"`
}

// Client satisfies the Adaptor interface for providing a client.Client.
func (m *MockWriter) Client() (client.Client, error) {
	return &m.Conn, nil
}

// Writer satisfies the Writable interface for providing a client.Writer.
func (m *MockWriter) Writer() (client.Writer, error) {
	return &m.Out, nil
}

// UnsupportedMock can be used for mocking tests that need an adaptor with no role.
type UnsupportedMock struct {
	BaseConfig
}

// Client satisfies the Adaptor interface for providing a client.Client.
func (m *UnsupportedMock) Client() (client.Client, error) {
	return &client.Mock{}, nil
}
