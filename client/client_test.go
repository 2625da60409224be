package client_test

import (
	"context"
	"testing"

	"github.com/compose/conduit/client"
)

func TestWrite(t *testing.T) {
	w := &client.MockWriter{}
	c := &client.Mock{}
	err := client.Write(context.Background(), c, w, map[string]interface{}{"hello": "client"})
	if err != nil {
		t.Fatalf("unexpected Write error, %s", err)
	}
	if w.RecordCount() != 1 {
		t.Errorf("record never received")
	}
	if c.Open() != 0 {
		t.Errorf("unexpected open sessions, expected 0, got %d", c.Open())
	}
}

func TestWriteWithError(t *testing.T) {
	w := &client.MockWriter{}
	c := &client.MockErr{}
	err := client.Write(context.Background(), c, w, map[string]interface{}{"hello": "client"})
	if err != client.ErrMockConnect {
		t.Errorf("unexpected error, expected %v, got %v", client.ErrMockConnect, err)
	}
}

var (
	testRecordCount = 10
)

func TestRead(t *testing.T) {
	c := &client.Mock{}
	r := &client.MockReader{RecordCount: testRecordCount}
	var count int
	err := client.Read(context.Background(), c, r, func(interface{}) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected Read error, %s", err)
	}
	if count != testRecordCount {
		t.Errorf("wrong record count, expected %d, got %d", testRecordCount, count)
	}
	if c.Open() != 0 {
		t.Errorf("unexpected open sessions, expected 0, got %d", c.Open())
	}
}
