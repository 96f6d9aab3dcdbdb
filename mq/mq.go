// Package mq defines the queue-client boundary: the message and queue
// types delivered by a broker driver, and the Consumer contract a driver
// must satisfy to feed the spout.
package mq

import (
	"context"
	"fmt"
	"time"
)

// Message is one raw record as delivered by the broker.
// Immutable after the driver hands it to a DeliverFunc.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string][]byte
	Ts        time.Time
}

// Queue identifies the partition a batch originated from.
type Queue struct {
	Topic     string
	Partition int32
}

func (q Queue) String() string {
	return fmt.Sprintf("%s[%d]", q.Topic, q.Partition)
}

// DeliverFunc is the delivery callback a driver invokes with each batch.
// The driver may call it from many goroutines at once (one per assigned
// partition). The call blocks until the batch reaches a terminal outcome
// and returns the verdict: true means the batch was fully processed and
// its offsets may advance, false means the broker should redeliver.
// The ctx is the driver's session context; cancellation releases the call
// with a failure verdict.
type DeliverFunc func(ctx context.Context, msgs []*Message, q Queue) bool

// Consumer is the broker-facing side of the spout. Init registers the
// delivery callback under a consumer identity and starts consumption;
// everything after that arrives through the callback.
type Consumer interface {
	Init(ctx context.Context, deliver DeliverFunc, consumerID string) error
	Pause()
	Resume()
	Cleanup() error
	Partitions() ([]Queue, error)
}
