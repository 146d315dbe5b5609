package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/replichat/internal/common"
	"github.com/dmitrijs2005/replichat/internal/flagx"
)

// Config holds runtime settings for the replichat CLI.
//
// Fields:
//   - Nodes: host:port of every cluster member the client may ask for the leader.
//   - FailoverInterval: how often the client re-resolves the leader.
//   - PollInterval: how often the inbox is polled while logged in.
//   - RequestTimeout: deadline applied to each RPC.
type Config struct {
	Nodes            []string
	FailoverInterval time.Duration
	PollInterval     time.Duration
	RequestTimeout   time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Nodes = []string{"localhost:8001", "localhost:8002", "localhost:8003"}
	c.FailoverInterval = 5 * time.Second
	c.PollInterval = 5 * time.Second
	c.RequestTimeout = 3 * time.Second
}

func (c *Config) Validate() error {
	if len(c.Nodes) == 0 {
		return fmt.Errorf("no nodes configured: %w", common.ErrInvalidArgument)
	}
	if c.FailoverInterval <= 0 || c.PollInterval <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("intervals must be positive: %w", common.ErrInvalidArgument)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if -c/-config is given) and command-line flags. Later sources take
// precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, flagx.JsonConfigFlags()); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, os.Args[1:]); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
