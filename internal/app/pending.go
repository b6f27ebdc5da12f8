package app

import (
	"context"
	"sync"

	"github.com/philipparndt/arstudio/internal/registry"
)

// Pending is the future of one Engine.Load. It resolves on the frame loop
// after the entry has been inserted, or with the load error.
type Pending struct {
	Ref string

	once  sync.Once
	done  chan struct{}
	entry *registry.Entry
	err   error
}

func newPending(ref string) *Pending {
	return &Pending{Ref: ref, done: make(chan struct{})}
}

func (p *Pending) resolve(entry *registry.Entry, err error) {
	p.once.Do(func() {
		p.entry = entry
		p.err = err
		close(p.done)
	})
}

// Done is closed once the load has resolved
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result returns the inserted entry or the load error. It must only be
// called after Done is closed.
func (p *Pending) Result() (*registry.Entry, error) {
	return p.entry, p.err
}

// Wait blocks until the load resolves or ctx ends. Since completions are
// applied by Engine.Update, something must keep driving the frame loop.
func (p *Pending) Wait(ctx context.Context) (*registry.Entry, error) {
	select {
	case <-p.done:
		return p.entry, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
