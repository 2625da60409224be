// Package events describes what a running pipeline reports about itself.
//
// Events come in multiple kinds. Boot and exit events are emitted when a pipeline starts
// and stops, metrics events report how many records went through a unit and error events
// name the unit that failed.
package events

import (
	"encoding/json"
	"fmt"
)

const (
	bootKind    = "boot"
	exitKind    = "exit"
	metricsKind = "metrics"
	errorKind   = "error"
)

// Event is produced by a running pipeline.
type Event interface {
	Emit() ([]byte, error)
	String() string
}

// baseEvent is sent when the pipeline has been started or exited.
type baseEvent struct {
	Ts        int64             `json:"ts"`
	Kind      string            `json:"name"`
	Version   string            `json:"version,omitempty"`
	Endpoints map[string]string `json:"endpoints,omitempty"`
}

// NewBootEvent is emitted before any record flows.
func NewBootEvent(ts int64, version string, endpoints map[string]string) Event {
	return &baseEvent{Ts: ts, Kind: bootKind, Version: version, Endpoints: endpoints}
}

// NewExitEvent is emitted once the pipeline returned.
func NewExitEvent(ts int64, version string, endpoints map[string]string) Event {
	return &baseEvent{Ts: ts, Kind: exitKind, Version: version, Endpoints: endpoints}
}

func (e *baseEvent) Emit() ([]byte, error) {
	return json.Marshal(e)
}

func (e *baseEvent) String() string {
	return fmt.Sprintf("%s %v", e.Kind, e.Endpoints)
}

type metricsEvent struct {
	Ts      int64  `json:"ts"`
	Kind    string `json:"name"`
	Path    string `json:"path,omitempty"`
	Records int64  `json:"records"`
}

// NewMetricsEvent reports the number of records that went through the unit at path.
func NewMetricsEvent(ts int64, path string, records int64) Event {
	return &metricsEvent{Ts: ts, Kind: metricsKind, Path: path, Records: records}
}

func (e *metricsEvent) Emit() ([]byte, error) {
	return json.Marshal(e)
}

func (e *metricsEvent) String() string {
	return fmt.Sprintf("%s %s records: %d", e.Kind, e.Path, e.Records)
}

type errorEvent struct {
	Ts      int64       `json:"ts"`
	Kind    string      `json:"name"`
	Path    string      `json:"path"`
	Record  interface{} `json:"record,omitempty"`
	Message string      `json:"message,omitempty"`
}

// NewErrorEvent is sent to indicate a problem processing on the unit at path.
func NewErrorEvent(ts int64, path string, record interface{}, message string) Event {
	return &errorEvent{Ts: ts, Kind: errorKind, Path: path, Record: record, Message: message}
}

func (e *errorEvent) Emit() ([]byte, error) {
	return json.Marshal(e)
}

func (e *errorEvent) String() string {
	if e.Record != nil {
		return fmt.Sprintf("%s %s: %s (record %v)", e.Kind, e.Path, e.Message, e.Record)
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Path, e.Message)
}
