package store

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/xhad/bloodhound/internal/models"
	"github.com/xhad/bloodhound/internal/types"
)

// Nop discards every event. It stands in when no sink is configured.
type Nop struct{}

func (Nop) Publish(context.Context, models.Event) error { return nil }

// Multi fans one event out to several sinks concurrently. Every sink is
// attempted; their errors are joined.
type Multi []types.Sink

// NewMulti drops nil sinks and collapses the trivial cases.
func NewMulti(sinks ...types.Sink) types.Sink {
	var m Multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	switch len(m) {
	case 0:
		return Nop{}
	case 1:
		return m[0]
	}
	return m
}

func (m Multi) Publish(ctx context.Context, ev models.Event) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)

	for _, sink := range m {
		g.Go(func() error {
			if err := sink.Publish(ctx, ev); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
