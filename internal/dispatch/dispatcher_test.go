package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	values []int
	block  chan struct{}
}

func (s *recordingSink) Emit(_ context.Context, v int) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.values = append(s.values, v)
	s.mu.Unlock()
}

func (s *recordingSink) snapshot() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.values...)
}

func TestDispatcherDeliversInOrderAndDrainsOnClose(t *testing.T) {
	sink := &recordingSink{}
	d := New[int](Config{BufferSize: 16}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), i)
	}
	d.Close()

	got := sink.snapshot()
	if len(got) != 10 {
		t.Fatalf("expected 10 values after close, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("expected FIFO order, got %v", got)
		}
	}

	d.Emit(context.Background(), 99)
	if len(sink.snapshot()) != 10 {
		t.Fatal("expected emit after close to be ignored")
	}
}

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := New[int](Config{BufferSize: 1, DropIfFull: true}, sink)

	// One value is held by the blocked sink, one fills the buffer.
	d.Emit(context.Background(), 1)
	deadline := time.Now().Add(time.Second)
	for len(d.ch) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	d.Emit(context.Background(), 2)
	d.Emit(context.Background(), 3)

	if d.Dropped() != 1 {
		t.Fatalf("expected 1 dropped value, got %d", d.Dropped())
	}

	close(sink.block)
	d.Close()
	if got := sink.snapshot(); len(got) != 2 {
		t.Fatalf("expected 2 delivered values, got %v", got)
	}
}

func TestDispatcherBlockingEmitHonorsContext(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := New[int](Config{BufferSize: 1}, sink)
	defer func() {
		close(sink.block)
		d.Close()
	}()

	d.Emit(context.Background(), 1)
	deadline := time.Now().Add(time.Second)
	for len(d.ch) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	d.Emit(context.Background(), 2)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d.Emit(ctx, 3)

	if d.Dropped() != 1 {
		t.Fatalf("expected canceled emit to count as dropped, got %d", d.Dropped())
	}
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher[int]
	d.Emit(context.Background(), 1)
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("expected zero drops")
	}
}
