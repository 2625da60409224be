package file

import (
	"encoding/csv"
	"os"

	"github.com/compose/conduit/client"
)

// Session serves as a wrapper for the underlying file
type Session struct {
	file   *os.File
	shared bool

	// writer state
	count  int
	csv    *csv.Writer
	header []string
}

var (
	_ client.Session = &Session{}
	_ client.Closer  = &Session{}
)

// Close closes the underlying file, stdout is left open.
func (s *Session) Close() {
	if !s.shared {
		s.file.Close()
	}
}
