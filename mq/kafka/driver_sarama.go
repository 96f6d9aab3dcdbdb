package kafka

import (
	"context"
	"time"

	"github.com/IBM/sarama"

	"github.com/wxyBUPT/rocketmq-storm/internal/logging"
	"github.com/wxyBUPT/rocketmq-storm/mq"
)

// Driver consumes a topic through a sarama consumer group and pushes
// message batches into the spout's delivery callback. Each assigned
// partition gets its own claim goroutine, so the callback blocking on a
// batch outcome throttles only that partition.
type Driver struct {
	cfg     Config
	cl      sarama.Client
	group   sarama.ConsumerGroup
	deliver mq.DeliverFunc
}

func (d *Driver) Configure(config Config) error {
	d.cfg = config
	return nil
}

// Init builds the sarama client and group and starts the consume loop.
// The verdict returned by each delivery decides offset handling: success
// marks the batch's offsets, failure withholds them so the broker
// redelivers after a rebalance or restart.
func (d *Driver) Init(ctx context.Context, deliver mq.DeliverFunc, consumerID string) error {
	d.deliver = deliver

	ver, err := sarama.ParseKafkaVersion(d.cfg.Version)
	if err != nil {
		return err
	}
	sc := sarama.NewConfig()
	sc.Version = ver
	sc.ClientID = "mqspout-" + consumerID
	sc.Consumer.Return.Errors = true
	if d.cfg.TLSEn {
		sc.Net.TLS.Enable = true
	}
	if d.cfg.SASLUser != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User, sc.Net.SASL.Password = d.cfg.SASLUser, d.cfg.SASLPass
	}
	switch d.cfg.StartFrom {
	case "oldest":
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	if d.cl, err = sarama.NewClient(d.cfg.Brokers, sc); err != nil {
		return err
	}
	if d.group, err = sarama.NewConsumerGroupFromClient(d.cfg.GroupID, d.cl); err != nil {
		_ = d.cl.Close()
		return err
	}

	go d.run(ctx)
	return nil
}

func (d *Driver) run(ctx context.Context) {
	handler := &groupHandler{driver: d}
	for {
		if err := d.group.Consume(ctx, []string{d.cfg.Topic}, handler); err != nil {
			logging.L().Error("kafka consume loop", "err", err)
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (d *Driver) Pause() {
	if d.group != nil {
		d.group.PauseAll()
	}
}

func (d *Driver) Resume() {
	if d.group != nil {
		d.group.ResumeAll()
	}
}

func (d *Driver) Partitions() ([]mq.Queue, error) {
	parts, err := d.cl.Partitions(d.cfg.Topic)
	if err != nil {
		return nil, err
	}
	out := make([]mq.Queue, 0, len(parts))
	for _, p := range parts {
		out = append(out, mq.Queue{Topic: d.cfg.Topic, Partition: p})
	}
	return out, nil
}

func (d *Driver) Cleanup() error {
	var err error
	if d.group != nil {
		err = d.group.Close()
	}
	if d.cl != nil {
		_ = d.cl.Close()
	}
	return err
}

type groupHandler struct {
	driver *Driver
}

func (*groupHandler) Setup(sarama.ConsumerGroupSession) error { return nil }

func (*groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	logging.L().Info("kafka rebalance", "member", sess.MemberID())
	return nil
}

// ConsumeClaim accumulates messages into batches (size cap or linger,
// whichever comes first) and hands each batch to the delivery callback,
// blocking the partition until its verdict is known.
func (h *groupHandler) ConsumeClaim(
	sess sarama.ConsumerGroupSession,
	claim sarama.ConsumerGroupClaim,
) error {
	d := h.driver
	q := mq.Queue{Topic: claim.Topic(), Partition: claim.Partition()}

	var batch []*mq.Message
	var raws []*sarama.ConsumerMessage
	linger := time.NewTimer(d.cfg.Batch.Linger)
	defer linger.Stop()

	deliverBatch := func() error {
		if len(batch) == 0 {
			return nil
		}
		ok := d.deliver(sess.Context(), batch, q)
		if err := sess.Context().Err(); err != nil {
			return err
		}
		if ok {
			for _, m := range raws {
				sess.MarkMessage(m, "")
			}
		} else {
			logging.L().Warn("batch rejected; offsets withheld", "queue", q.String(), "count", len(batch))
			if d.cfg.Ordered {
				// suspend this partition a moment before taking more
				hold := time.NewTimer(d.cfg.OrderedHold)
				select {
				case <-hold.C:
				case <-sess.Context().Done():
					hold.Stop()
					return sess.Context().Err()
				}
			}
		}
		batch, raws = nil, nil
		return nil
	}

	for {
		select {
		case <-sess.Context().Done():
			return nil

		case <-linger.C:
			if err := deliverBatch(); err != nil {
				return nil
			}
			linger.Reset(d.cfg.Batch.Linger)

		case msg, ok := <-claim.Messages():
			if !ok {
				_ = deliverBatch()
				return nil
			}
			batch = append(batch, toMessage(msg))
			raws = append(raws, msg)
			if len(batch) >= d.cfg.Batch.Size {
				if err := deliverBatch(); err != nil {
					return nil
				}
				if !linger.Stop() {
					select {
					case <-linger.C:
					default:
					}
				}
				linger.Reset(d.cfg.Batch.Linger)
			}
		}
	}
}

func toMessage(m *sarama.ConsumerMessage) *mq.Message {
	return &mq.Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Headers:   toHeaderMap(m.Headers),
		Ts:        m.Timestamp,
	}
}

func toHeaderMap(src []*sarama.RecordHeader) map[string][]byte {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(src))
	for _, h := range src {
		out[string(h.Key)] = h.Value
	}
	return out
}
