package authsession

import (
	"context"
	"sync"
)

// flightTable tracks which operations are running for the Reject and Queue
// policies. Last-write-wins calls never touch it.
type flightTable struct {
	mu      sync.Mutex
	running map[Operation]chan struct{}
}

// acquire admits one call of op under policy. The returned release must be
// called once the call has settled. onWait runs once, before a queued call
// first blocks.
func (f *flightTable) acquire(ctx context.Context, op Operation, policy ConcurrencyPolicy, onWait func()) (func(), error) {
	if policy == PolicyLastWriteWins {
		return func() {}, nil
	}

	waiting := false
	for {
		f.mu.Lock()
		if f.running == nil {
			f.running = make(map[Operation]chan struct{})
		}
		busy, ok := f.running[op]
		if !ok {
			done := make(chan struct{})
			f.running[op] = done
			f.mu.Unlock()

			return func() {
				f.mu.Lock()
				delete(f.running, op)
				f.mu.Unlock()
				close(done)
			}, nil
		}
		f.mu.Unlock()

		if policy == PolicyReject {
			return nil, ErrOperationInFlight
		}
		if !waiting && onWait != nil {
			waiting = true
			onWait()
		}

		select {
		case <-busy:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
