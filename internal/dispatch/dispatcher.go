package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
)

// Sink consumes dispatched values.
type Sink[T any] interface {
	Emit(ctx context.Context, v T)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc[T any] func(ctx context.Context, v T)

func (f SinkFunc[T]) Emit(ctx context.Context, v T) { f(ctx, v) }

// Config controls buffering.
type Config struct {
	BufferSize int
	// DropIfFull drops values instead of blocking the producer when the
	// buffer is full.
	DropIfFull bool
}

// Dispatcher forwards values to a sink from a single goroutine, so the sink
// observes them in emission order.
type Dispatcher[T any] struct {
	cfg       Config
	sink      Sink[T]
	ch        chan T
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// New starts a dispatcher. A nil sink discards everything.
func New[T any](cfg Config, sink Sink[T]) *Dispatcher[T] {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = SinkFunc[T](func(context.Context, T) {})
	}

	d := &Dispatcher[T]{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan T, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher[T]) run() {
	defer d.wg.Done()

	for {
		select {
		case v := <-d.ch:
			d.sink.Emit(context.Background(), v)
		case <-d.done:
			for {
				select {
				case v := <-d.ch:
					d.sink.Emit(context.Background(), v)
				default:
					return
				}
			}
		}
	}
}

// Emit enqueues v. It blocks while the buffer is full unless DropIfFull is
// set, and gives up when ctx is done or the dispatcher closes.
func (d *Dispatcher[T]) Emit(ctx context.Context, v T) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- v:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- v:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close drains buffered values into the sink and stops the worker.
func (d *Dispatcher[T]) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports how many values were discarded.
func (d *Dispatcher[T]) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
