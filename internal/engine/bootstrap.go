package engine

import (
	"context"
	"fmt"

	"github.com/wxyBUPT/rocketmq-storm/internal/config"
	"github.com/wxyBUPT/rocketmq-storm/internal/logging"
	"github.com/wxyBUPT/rocketmq-storm/internal/loop"
	"github.com/wxyBUPT/rocketmq-storm/internal/telemetry"
	"github.com/wxyBUPT/rocketmq-storm/mq"
	kcfg "github.com/wxyBUPT/rocketmq-storm/mq/kafka"
	"github.com/wxyBUPT/rocketmq-storm/sink"
	"github.com/wxyBUPT/rocketmq-storm/spout"
)

type Config struct {
	TopologyYml string
	ConsumerID  string
	MetricsPort int // fallback when the topology sets none
}

func Bootstrap(ctx context.Context, cfg Config) (*Engine, error) {
	topo, mqPath, err := config.LoadTopology(cfg.TopologyYml)
	if err != nil {
		return nil, fmt.Errorf("topology: %w", err)
	}
	logging.Configure(logging.Options{Level: topo.Log.Level, JSON: topo.Log.JSON})

	mqCfg, err := config.LoadMQConfig(mqPath)
	if err != nil {
		return nil, fmt.Errorf("mq config: %w", err)
	}

	consumer, err := mq.NewConsumer(topo.Consumer.Driver)
	if err != nil {
		return nil, err
	}
	if cw, ok := consumer.(interface{ Configure(kcfg.Config) error }); ok {
		if err := cw.Configure(mqCfg); err != nil {
			return nil, fmt.Errorf("consumer %s: %w", topo.Consumer.Driver, err)
		}
	}

	sp := spout.New(consumer, mqCfg.MaxFailTimes, mqCfg.Topic)

	runner := loop.NewRunner(sp)
	for _, name := range topo.Sinks {
		drv, err := sink.NewAdapter(name)
		if err != nil {
			return nil, err
		}
		switch name {
		case "stdout":
			err = drv.Configure(topo.SinkConfigs.Stdout)
		case "kafka":
			err = drv.Configure(topo.SinkConfigs.Kafka)
		default:
			err = fmt.Errorf("no config block for sink %q", name)
		}
		if err != nil {
			return nil, err
		}
		runner.AddSink(drv)
	}

	port := topo.MetricsPort
	if port == 0 {
		port = cfg.MetricsPort
	}
	if port > 0 {
		telemetry.Expose(port)
	}

	return &Engine{spout: sp, runner: runner, consumerID: cfg.ConsumerID}, nil
}
