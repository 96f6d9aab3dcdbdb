// Package loop drives the pull side of the spout: it repeatedly takes
// the next batch, emits it to the configured sinks, and resolves the
// batch with an ack or a fail.
package loop

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/wxyBUPT/rocketmq-storm/internal/logging"
	"github.com/wxyBUPT/rocketmq-storm/sink"
	"github.com/wxyBUPT/rocketmq-storm/spout"
)

// Spout is the surface the loop consumes. *spout.BatchSpout satisfies it.
type Spout interface {
	NextBatch(ctx context.Context) (*spout.BatchTuple, error)
	Ack(id uuid.UUID)
	Fail(id uuid.UUID)
}

type Runner struct {
	spout Spout
	sinks []sink.Adapter

	wg sync.WaitGroup
}

func NewRunner(s Spout) *Runner { return &Runner{spout: s} }

func (r *Runner) AddSink(s sink.Adapter) { r.sinks = append(r.sinks, s) }

func (r *Runner) Start(ctx context.Context) error {
	if r.spout == nil {
		return errors.New("loop: no spout configured")
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
	return nil
}

func (r *Runner) run(ctx context.Context) {
	for {
		b, err := r.spout.NextBatch(ctx)
		if err != nil {
			if !errors.Is(err, spout.ErrQueueClosed) && !errors.Is(err, context.Canceled) {
				logging.L().Error("loop: next batch", "err", err)
			}
			return
		}

		f := &sink.Frame{ID: b.ID(), Queue: b.Queue(), Msgs: b.Msgs(), Stat: b.Stat()}
		if err := r.emit(f); err != nil {
			logging.L().Warn("loop: emit failed", "batch", b.Stat().Tag, "err", err)
			r.spout.Fail(b.ID())
			continue
		}
		r.spout.Ack(b.ID())
	}
}

func (r *Runner) emit(f *sink.Frame) error {
	for _, s := range r.sinks {
		if err := s.Push(f); err != nil {
			return err
		}
	}
	return nil
}

// Close waits for the loop goroutine to exit and closes every sink.
// Callers cancel the Start ctx (or shut the spout down) first.
func (r *Runner) Close() error {
	r.wg.Wait()
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
