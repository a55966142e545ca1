// Package config loads process configuration: defaults, an optional YAML
// file, and NJORD_* environment overrides, in increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr  string `mapstructure:"listen_addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`

	KafkaBrokers    []string `mapstructure:"kafka_brokers"`
	MarketDataTopic string   `mapstructure:"market_data_topic"`
	DropCopyTopic   string   `mapstructure:"drop_copy_topic"`
	// DropCopyEnabled gates the sarama egress; off, responses still flow
	// to sessions directly.
	DropCopyEnabled bool `mapstructure:"drop_copy_enabled"`

	// Instruments lists the tradable instrument ids, one book each.
	Instruments []uint32 `mapstructure:"instruments"`

	// Capacities are worst-case bounds and must be powers of two where
	// noted; exceeding them at runtime is fatal by design.
	EngineQueueCap  uint64 `mapstructure:"engine_queue_cap"`  // power of two
	SessionQueueCap uint64 `mapstructure:"session_queue_cap"` // power of two
	OutQueueCap     uint64 `mapstructure:"out_queue_cap"`     // power of two
	MaxOrders       int    `mapstructure:"max_orders"`
	MaxPriceLevels  int    `mapstructure:"max_price_levels"` // power of two

	IdleBackoff time.Duration `mapstructure:"idle_backoff"`
}

// Load reads configuration; path may be empty to run on defaults and
// environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":9001")
	v.SetDefault("metrics_addr", ":9102")
	v.SetDefault("kafka_brokers", []string{"localhost:9092"})
	v.SetDefault("market_data_topic", "njord.marketdata")
	v.SetDefault("drop_copy_topic", "njord.dropcopy")
	v.SetDefault("drop_copy_enabled", false)
	v.SetDefault("instruments", []uint32{1})
	v.SetDefault("engine_queue_cap", 1<<16)
	v.SetDefault("session_queue_cap", 1<<12)
	v.SetDefault("out_queue_cap", 1<<16)
	v.SetDefault("max_orders", 1<<20)
	v.SetDefault("max_price_levels", 1<<16)
	v.SetDefault("idle_backoff", 50*time.Microsecond)

	v.SetEnvPrefix("NJORD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for name, v := range map[string]uint64{
		"engine_queue_cap":  c.EngineQueueCap,
		"session_queue_cap": c.SessionQueueCap,
		"out_queue_cap":     c.OutQueueCap,
		"max_price_levels":  uint64(c.MaxPriceLevels),
	} {
		if v == 0 || v&(v-1) != 0 {
			return fmt.Errorf("config: %s must be a power of two, got %d", name, v)
		}
	}
	if c.MaxOrders <= 0 {
		return fmt.Errorf("config: max_orders must be positive")
	}
	if len(c.Instruments) == 0 {
		return fmt.Errorf("config: at least one instrument required")
	}
	return nil
}
