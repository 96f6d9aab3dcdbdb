package spout

import (
	"context"
	"testing"
	"time"

	"github.com/wxyBUPT/rocketmq-storm/mq"
)

func makeMsgs(n int, startOffset int64) []*mq.Message {
	msgs := make([]*mq.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, &mq.Message{
			Topic:     "orders",
			Partition: 3,
			Offset:    startOffset + int64(i),
			Key:       []byte("k"),
			Value:     []byte("payload"),
		})
	}
	return msgs
}

func TestBatchTuple_StatComputedOnce(t *testing.T) {
	q := mq.Queue{Topic: "orders", Partition: 3}
	b := newBatchTuple(makeMsgs(4, 100), q)

	st := b.Stat()
	if st.MsgCount != 4 {
		t.Fatalf("want 4 msgs, got %d", st.MsgCount)
	}
	if st.ByteSize != 4*int64(len("k")+len("payload")) {
		t.Fatalf("unexpected byte size %d", st.ByteSize)
	}
	if st.Tag != "orders[3]@100+4" {
		t.Fatalf("unexpected tag %q", st.Tag)
	}
	// retries re-emit the same attributes
	if b.Stat() != st {
		t.Fatal("stat changed between reads")
	}
}

func TestBatchTuple_WaitFinishSuccess(t *testing.T) {
	b := newBatchTuple(makeMsgs(1, 0), mq.Queue{Topic: "t"})

	go func() {
		time.Sleep(10 * time.Millisecond)
		b.succeed()
	}()

	ok, err := b.WaitFinish(context.Background())
	if err != nil {
		t.Fatalf("WaitFinish: %v", err)
	}
	if !ok {
		t.Fatal("want success verdict")
	}
}

func TestBatchTuple_ResolveOnce(t *testing.T) {
	b := newBatchTuple(makeMsgs(1, 0), mq.Queue{Topic: "t"})
	b.fail()
	b.succeed() // late ack after terminal failure must not flip the outcome

	ok, err := b.WaitFinish(context.Background())
	if err != nil {
		t.Fatalf("WaitFinish: %v", err)
	}
	if ok {
		t.Fatal("outcome flipped after terminal failure")
	}
	if !b.Finished() {
		t.Fatal("tuple should be finished")
	}
}

func TestBatchTuple_WaitFinishCancelled(t *testing.T) {
	b := newBatchTuple(makeMsgs(1, 0), mq.Queue{Topic: "t"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.WaitFinish(ctx); err == nil {
		t.Fatal("want context error")
	}
}
