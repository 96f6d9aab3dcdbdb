package config

import (
	kcfg "github.com/wxyBUPT/rocketmq-storm/mq/kafka"
)

// LoadMQConfig delegates to the Kafka driver loader while centralizing
// loader entrypoints under internal/config.
func LoadMQConfig(path string) (kcfg.Config, error) {
	return kcfg.LoadConfig(path)
}
