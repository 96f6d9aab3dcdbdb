package stdout

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/wxyBUPT/rocketmq-storm/sink"
)

/* ────────── public YAML config ────────── */
type Config struct {
	DelayMS       int  `yaml:"delay_ms"`        // artificial per-batch delay
	PrintCounter  bool `yaml:"print_counter"`   // prepend seq#
	PrintValue    bool `yaml:"print_value"`     // dump first message value
	ValueMaxBytes int  `yaml:"value_max_bytes"` // truncate dumped value
	FailEveryN    int  `yaml:"fail_every_n"`    // inject a push error every Nth batch (0 = off)
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config
}

var seq uint64

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	d.cfg = c
	return nil
}

func (d *driver) Push(f *sink.Frame) error {
	if d.cfg.DelayMS > 0 {
		time.Sleep(time.Duration(d.cfg.DelayMS) * time.Millisecond)
	}

	n := atomic.AddUint64(&seq, 1)
	if d.cfg.FailEveryN > 0 && n%uint64(d.cfg.FailEveryN) == 0 {
		return fmt.Errorf("stdout-sink: injected failure for %s", f.Stat.Tag)
	}

	if d.cfg.PrintCounter {
		fmt.Printf("[sink %06d] %s msgs=%d bytes=%d\n", n, f.Stat.Tag, f.Stat.MsgCount, f.Stat.ByteSize)
	} else {
		fmt.Printf("[sink] %s msgs=%d bytes=%d\n", f.Stat.Tag, f.Stat.MsgCount, f.Stat.ByteSize)
	}
	if d.cfg.PrintValue && len(f.Msgs) > 0 {
		v := f.Msgs[0].Value
		if max := d.cfg.ValueMaxBytes; max > 0 && len(v) > max {
			v = v[:max]
		}
		fmt.Printf("       %q\n", v)
	}
	return nil
}

func (d *driver) Close() error { return nil }

func init() { sink.Register("stdout", func() sink.Adapter { return &driver{} }) }
