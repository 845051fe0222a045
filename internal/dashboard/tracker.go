package dashboard

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is the cancellation cause of a load replaced by a newer one.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Tracker tags dashboard loads with a generation per key. Starting a load
// cancels the one in flight for the same key, so only the newest result is
// ever rendered.
type Tracker struct {
	mu       sync.Mutex
	gen      uint64
	inflight map[string]*Ticket
}

func NewTracker() *Tracker {
	return &Tracker{inflight: make(map[string]*Ticket)}
}

// Ticket is one tracked load.
type Ticket struct {
	t      *Tracker
	key    string
	gen    uint64
	cancel context.CancelCauseFunc
}

// Begin starts a load for key. The returned context is cancelled with
// ErrSuperseded as soon as another load for key begins.
func (t *Tracker) Begin(ctx context.Context, key string) (context.Context, *Ticket) {
	ctx, cancel := context.WithCancelCause(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.inflight[key]; ok {
		prev.cancel(ErrSuperseded)
	}
	t.gen++
	tk := &Ticket{t: t, key: key, gen: t.gen, cancel: cancel}
	t.inflight[key] = tk
	return ctx, tk
}

// Current reports whether no newer load has begun for the ticket's key.
func (tk *Ticket) Current() bool {
	tk.t.mu.Lock()
	defer tk.t.mu.Unlock()
	return tk.t.inflight[tk.key] == tk
}

func (tk *Ticket) Generation() uint64 { return tk.gen }

// Done releases the ticket. It must be called once the load has been
// rendered or abandoned.
func (tk *Ticket) Done() {
	tk.t.mu.Lock()
	if tk.t.inflight[tk.key] == tk {
		delete(tk.t.inflight, tk.key)
	}
	tk.t.mu.Unlock()
	tk.cancel(context.Canceled)
}
