// Package file reads records from and writes records to files on disk, or stdout.
package file

import (
	"fmt"
	"strings"

	"github.com/compose/conduit/adaptor"
	"github.com/compose/conduit/client"
)

const (
	readSampleConfig = `    type: file-read
    options:
      uri: file:///tmp/input.json
      # format: json | ndjson | csv`

	writeSampleConfig = `    type: file-write
    options:
      uri: stdout://
      # format: ndjson | json | csv`

	readDescription  = "an adaptor that reads records from a JSON, newline delimited JSON or CSV file"
	writeDescription = "an adaptor that writes records to a file or stdout"
)

// The supported formats. JSON files are read both as a single array and as a stream
// of concatenated documents.
const (
	FormatJSON   = "json"
	FormatNDJSON = "ndjson"
	FormatCSV    = "csv"
)

var (
	_ adaptor.Readable = &FileReader{}
	_ adaptor.Writable = &FileWriter{}
)

// UnknownFormatError is returned for formats other than json, ndjson and csv.
type UnknownFormatError struct {
	Format string
}

func (e UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown file format, %s", e.Format)
}

// Registrations returns the adaptors of this package.
func Registrations() []adaptor.Registration {
	return []adaptor.Registration{
		{
			Name:         "file-read",
			Description:  readDescription,
			SampleConfig: readSampleConfig,
			Creator:      func() adaptor.Adaptor { return &FileReader{} },
		},
		{
			Name:         "file-write",
			Description:  writeDescription,
			SampleConfig: writeSampleConfig,
			Creator:      func() adaptor.Adaptor { return &FileWriter{} },
		},
	}
}

// Config is used to configure the File Adaptor
type Config struct {
	URI    string `json:"uri" doc:"the uri to connect to, ie stdout://, file:///tmp/output"`
	Format string `json:"format" doc:"json, ndjson or csv, defaults to the file extension"`
}

func (c Config) format(def string) (string, error) {
	f := strings.ToLower(c.Format)
	if f == "" {
		switch {
		case strings.HasSuffix(c.URI, ".csv"):
			f = FormatCSV
		case strings.HasSuffix(c.URI, ".ndjson"):
			f = FormatNDJSON
		default:
			f = def
		}
	}
	switch f {
	case FormatJSON, FormatNDJSON, FormatCSV:
		return f, nil
	}
	return "", UnknownFormatError{c.Format}
}

// FileReader is the source side of the file adaptor.
type FileReader struct {
	Config
}

func (f *FileReader) Client() (client.Client, error) {
	return NewClient(WithURI(f.URI))
}

func (f *FileReader) Reader() (client.Reader, error) {
	format, err := f.format(FormatJSON)
	if err != nil {
		return nil, err
	}
	return newReader(format), nil
}

// FileWriter is the sink side of the file adaptor.
type FileWriter struct {
	Config
}

func (f *FileWriter) Client() (client.Client, error) {
	return NewClient(WithURI(f.URI), WithWrite(true))
}

func (f *FileWriter) Writer() (client.Writer, error) {
	format, err := f.format(FormatNDJSON)
	if err != nil {
		return nil, err
	}
	return newWriter(format), nil
}
