package engine

import (
	"context"

	"github.com/wxyBUPT/rocketmq-storm/internal/loop"
	"github.com/wxyBUPT/rocketmq-storm/spout"
)

type Engine struct {
	spout      *spout.BatchSpout
	runner     *loop.Runner
	consumerID string
}

// Run starts the processing loop and the consumer, then blocks until ctx
// is cancelled. Shutdown order matters: the spout drain releases every
// blocked delivery callback before the loop and sinks are closed.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.runner.Start(ctx); err != nil {
		return err
	}
	if err := e.spout.Open(ctx, e.consumerID); err != nil {
		return err
	}

	<-ctx.Done()

	err := e.spout.Close()
	if cerr := e.runner.Close(); err == nil {
		err = cerr
	}
	return err
}
