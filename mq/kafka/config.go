package kafka

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type BatchCfg struct {
	Size   int           `koanf:"size"`   // max messages per delivered batch
	Linger time.Duration `koanf:"linger"` // flush a partial batch after this long
}

type Config struct {
	Brokers   []string `koanf:"brokers"`
	Topic     string   `koanf:"topic"`
	GroupID   string   `koanf:"group_id"`
	StartFrom string   `koanf:"start_from"` // oldest|newest (default newest)
	Version   string   `koanf:"version"`
	TLSEn     bool     `koanf:"tls_enabled"`
	SASLUser  string   `koanf:"sasl_user"`
	SASLPass  string   `koanf:"sasl_pass"`

	// Ordered selects the ordered-consumption verdict shape: a failed
	// batch additionally holds the partition for OrderedHold before the
	// claim loop continues.
	Ordered     bool          `koanf:"ordered"`
	OrderedHold time.Duration `koanf:"ordered_hold"`

	// MaxFailTimes bounds internal retries per batch; negative means
	// unlimited.
	MaxFailTimes int `koanf:"max_fail_times"`

	Batch BatchCfg `koanf:"batch"`
}

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

// LoadConfig merges YAML (if present) with env-vars
// (prefix `MQSPOUT_MQ__`, delimiter `__`).
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	// schema version check (only when YAML is present)
	sv := k.String("schema_version")
	if sv != "" && sv != "v1" {
		return Config{}, fmt.Errorf("mq schema_version %q not supported (want v1)", sv)
	}

	_ = k.Load(env.Provider("MQSPOUT_MQ__", "__", nil), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// ---------------------------------------------------------------------------
// defaults
// ---------------------------------------------------------------------------

const defaultMaxFailTimes = 5

func applyDefaults(c *Config) {
	if c.MaxFailTimes == 0 {
		c.MaxFailTimes = defaultMaxFailTimes
	}
	if c.Batch.Size == 0 {
		c.Batch.Size = 32
	}
	if c.Batch.Linger == 0 {
		c.Batch.Linger = 200 * time.Millisecond
	}
	if c.OrderedHold == 0 {
		c.OrderedHold = time.Second
	}
	if c.StartFrom == "" {
		c.StartFrom = "newest"
	}
	if c.Version == "" {
		c.Version = "3.6.0"
	}
}
