package events

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"sync"
	"time"

	"github.com/compose/conduit/log"
)

// Emitter consumes the events of a running pipeline. Emit must not block the pipeline
// for long; Close releases the emitter once the pipeline is done and waits for the
// events still in flight.
type Emitter interface {
	Emit(Event)
	Close() error
}

// EmitFunc adapts a function into an Emitter.
type EmitFunc func(Event)

// Emit calls f.
func (f EmitFunc) Emit(e Event) {
	f(e)
}

// Close does nothing.
func (f EmitFunc) Close() error {
	return nil
}

// NoopEmitter drops every event. This is useful for cli utilities that dump output to
// stdout in any case and don't want to clutter it with metrics.
func NoopEmitter() Emitter {
	return EmitFunc(func(Event) {})
}

// LogEmitter writes each event through the log package, eg.
//
//	INFO[0000] boot map[object:adaptor uppercase:function]   event=boot
//	INFO[0000] metrics stream(object,uppercase) records: 2  event=metrics
//	INFO[0000] exit map[object:adaptor uppercase:function]   event=exit
func LogEmitter() Emitter {
	return logEmitter{l: log.Base()}
}

type logEmitter struct {
	l log.Logger
}

func (e logEmitter) Emit(event Event) {
	l := e.l.With("event", kind(event))
	if _, ok := event.(*errorEvent); ok {
		l.Errorln(event.String())
		return
	}
	l.Infoln(event.String())
}

func (e logEmitter) Close() error {
	return nil
}

func kind(event Event) string {
	switch e := event.(type) {
	case *baseEvent:
		return e.Kind
	case *metricsEvent:
		return e.Kind
	case *errorEvent:
		return e.Kind
	}
	return "unknown"
}

// API is the remote endpoint receiving the events of an HTTPPostEmitter.
type API struct {
	URI string `json:"uri"`
	Key string `json:"key"` // http basic auth password sent with each event
	Pid string `json:"pid"` // http basic auth username sent with each event
}

// HTTPPostEmitter serializes events into JSON and POSTs them to api.URI. HTTP errors
// are logged and don't stop the emitter.
func HTTPPostEmitter(api API) *PostEmitter {
	return &PostEmitter{
		api:    api,
		client: &http.Client{Timeout: 10 * time.Second},
		l:      log.With("emitter", api.URI),
	}
}

// PostEmitter is the Emitter returned by HTTPPostEmitter.
type PostEmitter struct {
	api      API
	client   *http.Client
	inflight sync.WaitGroup
	l        log.Logger
}

// Emit posts the event in the background.
func (e *PostEmitter) Emit(event Event) {
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		if err := e.post(event); err != nil {
			e.l.Errorf("unable to post event, %s", err)
		}
	}()
}

func (e *PostEmitter) post(event Event) error {
	ba, err := event.Emit()
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, e.api.URI, bytes.NewReader(ba))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if len(e.api.Pid) > 0 && len(e.api.Key) > 0 {
		req.SetBasicAuth(e.api.Pid, e.api.Key)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(ioutil.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("http error code, expected 200 or 201, got %d", resp.StatusCode)
	}
	return nil
}

// Close waits for the inflight posts to complete.
func (e *PostEmitter) Close() error {
	e.inflight.Wait()
	return nil
}
