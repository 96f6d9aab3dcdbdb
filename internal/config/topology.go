package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	sinkkafka "github.com/wxyBUPT/rocketmq-storm/sink/kafka"
	"github.com/wxyBUPT/rocketmq-storm/sink/stdout"
)

const SupportedSchema = "v1"

type sinkConfigs struct {
	Kafka  sinkkafka.Config `yaml:"kafka"`
	Stdout stdout.Config    `yaml:"stdout"`
}

type logSection struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// File is the parsed topology YAML: which consumer driver feeds the
// spout, which sinks the loop emits to, and the ambient knobs.
type File struct {
	SchemaVersion string `yaml:"schema_version"`

	Consumer struct {
		Driver string `yaml:"driver"`
		Config string `yaml:"config"`
	} `yaml:"consumer"`

	Sinks       []string    `yaml:"sinks"`
	SinkConfigs sinkConfigs `yaml:"sink_configs"`

	MetricsPort int        `yaml:"metrics_port"`
	Log         logSection `yaml:"log"`
}

// LoadTopology parses a topology YAML, validates schema_version, and
// returns the parsed file and an absolute path to the consumer config
// (if set).
func LoadTopology(path string) (File, string, error) {
	var cfg File
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, "", err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, "", err
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SupportedSchema
	}
	if cfg.SchemaVersion != SupportedSchema {
		return cfg, "", fmt.Errorf("topology schema_version %q not supported (want %q)", cfg.SchemaVersion, SupportedSchema)
	}
	confPath := cfg.Consumer.Config
	if confPath != "" && !filepath.IsAbs(confPath) {
		confPath = filepath.Join(filepath.Dir(path), confPath)
	}
	return cfg, confPath, nil
}
