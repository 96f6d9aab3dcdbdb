package sink

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/wxyBUPT/rocketmq-storm/mq"
	"github.com/wxyBUPT/rocketmq-storm/spout"
)

// Frame is one emission of a batch to the downstream side: the raw
// messages, the cached batch attributes, and the batch id the loop uses
// as correlation token when acking or failing.
type Frame struct {
	ID    uuid.UUID
	Queue mq.Queue
	Msgs  []*mq.Message
	Stat  spout.BatchStat
}

// Adapter is the common behaviour every sink exposes.
type Adapter interface {
	Configure(any) error // driver-specific YAML => struct
	Push(*Frame) error   // consume one batch frame
	Close() error        // idempotent
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}
