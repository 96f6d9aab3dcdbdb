package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/wxyBUPT/rocketmq-storm/internal/engine"
	"github.com/wxyBUPT/rocketmq-storm/internal/logging"
	"github.com/wxyBUPT/rocketmq-storm/mq"
	"github.com/wxyBUPT/rocketmq-storm/mq/kafka"
	_ "github.com/wxyBUPT/rocketmq-storm/sink/kafka"
	_ "github.com/wxyBUPT/rocketmq-storm/sink/stdout"
)

func main() {
	topo := flag.String("topology", "topology.yml", "topology YAML path")
	id := flag.String("id", "0", "consumer identity within the group")
	metrics := flag.Int("metrics", 9100, "default metrics port")
	flag.Parse()

	logging.InitFromEnv()
	mq.Register("kafka", func() mq.Consumer { return &kafka.Driver{} })

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := engine.Bootstrap(ctx, engine.Config{
		TopologyYml: *topo,
		ConsumerID:  *id,
		MetricsPort: *metrics,
	})
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	if err := e.Run(ctx); err != nil {
		log.Fatalf("engine: %v", err)
	}
}
