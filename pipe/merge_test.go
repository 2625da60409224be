package pipe

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestConcatOrder(t *testing.T) {
	slow := NewSource("slow", func(ctx context.Context, emit func(interface{}) error) error {
		for _, v := range []int{1, 2} {
			time.Sleep(5 * time.Millisecond)
			if err := emit(v); err != nil {
				return err
			}
		}
		return nil
	})
	c := NewConcat("combine", []Producer{slow, FromSlice("fast", 3, 4)}, true)
	got, err := Collect(context.Background(), c)
	if err != nil {
		t.Fatalf("unexpected Collect() error, %s", err)
	}
	expected := []interface{}{1, 2, 3, 4}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("unexpected records, expected %v, got %v", expected, got)
	}
}

func TestConcatLazyOpen(t *testing.T) {
	opened := false
	second := NewSource("second", func(ctx context.Context, emit func(interface{}) error) error {
		opened = true
		return emit("late")
	})
	c := NewConcat("combine", []Producer{Failing("first"), second}, true)
	_, err := Collect(context.Background(), c)
	if !errors.Is(err, ErrMockFailure) {
		t.Errorf("unexpected error, expected %v, got %v", ErrMockFailure, err)
	}
	if opened {
		t.Error("second member should never have been opened")
	}
}

func TestConcatBytes(t *testing.T) {
	c := NewConcat("combine", []Producer{FromSlice("a", "fu"), FromSlice("b", map[string]interface{}{"k": "v"})}, false)
	got, err := Collect(context.Background(), c)
	if err != nil {
		t.Fatalf("unexpected Collect() error, %s", err)
	}
	expected := []interface{}{[]byte("fu"), []byte(`{"k":"v"}`)}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("unexpected records, expected %q, got %q", expected, got)
	}
}

func TestTeeDuplicates(t *testing.T) {
	c1, c2 := NewCollector("c1"), NewCollector("c2")
	tee, err := NewTee("fanout", []Consumer{c1, c2}, true)
	if err != nil {
		t.Fatalf("unexpected NewTee() error, %s", err)
	}
	if err := tee.Attach(FromSlice("src", "x", "y")); err != nil {
		t.Fatalf("unexpected Attach() error, %s", err)
	}
	if err := tee.Run(context.Background()); err != nil {
		t.Fatalf("unexpected Run() error, %s", err)
	}
	expected := []interface{}{"x", "y"}
	for _, c := range []*Collector{c1, c2} {
		if !reflect.DeepEqual(c.Records(), expected) {
			t.Errorf("[%s] unexpected records, expected %v, got %v", c.Name(), expected, c.Records())
		}
	}
	if tee.Count() != 2 {
		t.Errorf("unexpected count, expected 2, got %d", tee.Count())
	}
}

func TestTeeLockstep(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) WriteFunc {
		return func(_ context.Context, rec interface{}) error {
			if name == "slow" {
				time.Sleep(5 * time.Millisecond)
			}
			mu.Lock()
			order = append(order, name+":"+rec.(string))
			mu.Unlock()
			return nil
		}
	}
	slow, fast := NewSink("slow", record("slow")), NewSink("fast", record("fast"))
	tee, err := NewTee("fanout", []Consumer{slow, fast}, true)
	if err != nil {
		t.Fatalf("unexpected NewTee() error, %s", err)
	}
	tee.Attach(FromSlice("src", "x", "y", "z"))
	if err := tee.Run(context.Background()); err != nil {
		t.Fatalf("unexpected Run() error, %s", err)
	}
	// the fast member can never get two records ahead of the slow one.
	seen := map[string]int{}
	for _, o := range order {
		seen[o[:4]]++
		if seen["fast"]-seen["slow"] > 2 {
			t.Fatalf("fast member ran ahead, order %v", order)
		}
	}
	if len(order) != 6 {
		t.Errorf("unexpected write count, expected 6, got %d (%v)", len(order), order)
	}
}

func TestTeeMemberFailure(t *testing.T) {
	m := &Mock{Err: errors.New("disk full")}
	ok := NewCollector("ok")
	tee, err := NewTee("fanout", []Consumer{ok, m.Sink("broken")}, true)
	if err != nil {
		t.Fatalf("unexpected NewTee() error, %s", err)
	}
	tee.Attach(FromSlice("src", 1, 2, 3))
	err = tee.Run(context.Background())
	var re RuntimeError
	if !errors.As(err, &re) || re.Path != "broken" {
		t.Errorf("unexpected error, expected failure of broken, got %v", err)
	}
	if m.RecordCount != 1 {
		t.Errorf("unexpected write count, expected 1, got %d", m.RecordCount)
	}
}

func TestTeeRejectsSource(t *testing.T) {
	_, err := NewTee("fanout", []Consumer{NewChain(nil, FromSlice("src"))}, true)
	if _, ok := err.(DirectionError); !ok {
		t.Errorf("expected DirectionError, got %T (%v)", err, err)
	}
}

func TestTeeFeedsChains(t *testing.T) {
	c1, c2 := NewCollector("c1"), NewCollector("c2")
	up := upper("upper")
	c1.Attach(up)
	tee, err := NewTee("fanout", []Consumer{NewChain(up, c1), c2}, true)
	if err != nil {
		t.Fatalf("unexpected NewTee() error, %s", err)
	}
	tee.Attach(FromSlice("src", "a"))
	if err := tee.Run(context.Background()); err != nil {
		t.Fatalf("unexpected Run() error, %s", err)
	}
	if !reflect.DeepEqual(c1.Records(), []interface{}{"A"}) {
		t.Errorf("unexpected records, got %v", c1.Records())
	}
	if !reflect.DeepEqual(c2.Records(), []interface{}{"a"}) {
		t.Errorf("unexpected records, got %v", c2.Records())
	}
}

func TestTeeUpstreamFailureSkipsFinish(t *testing.T) {
	for i := 0; i < 50; i++ {
		var (
			mu       sync.Mutex
			finished int
		)
		finish := WithFinish(func(context.Context) error {
			mu.Lock()
			finished++
			mu.Unlock()
			return nil
		})
		discard := func(context.Context, interface{}) error { return nil }
		tee, err := NewTee("fanout", []Consumer{NewSink("a", discard, finish), NewSink("b", discard, finish)}, true)
		if err != nil {
			t.Fatalf("unexpected NewTee() error, %s", err)
		}
		tee.Attach(Failing("src", 1, 2))
		err = tee.Run(context.Background())
		if !errors.Is(err, ErrMockFailure) {
			t.Fatalf("unexpected error, expected %v, got %v", ErrMockFailure, err)
		}
		if finished != 0 {
			t.Fatalf("members finished %d times after the upstream failed", finished)
		}
	}
}
