// Package config handles configuration for the server component: defaults,
// command-line flags and validation. The server reads no environment
// variables and no config file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/replichat/internal/common"
)

// Config holds runtime settings for one replichat node.
//
// Fields:
//   - NodeID: this node's 1-based position in Peers; also its election priority.
//   - Address: bind address of the gRPC endpoint.
//   - Peers: every member address in id order, this node included.
//   - DataDir: directory holding users_<id>.json.
//   - ElectionInterval / ProbeTimeout / ReplicationTimeout: cluster timing.
//   - MetricsAddr: bind address of /metrics and /healthz; empty disables it.
type Config struct {
	NodeID             int
	Address            string
	Peers              []string
	DataDir            string
	ElectionInterval   time.Duration
	ProbeTimeout       time.Duration
	ReplicationTimeout time.Duration
	MetricsAddr        string
}

// LoadDefaults populates the optional settings. NodeID, Address and Peers
// have no defaults and must be given on the command line.
func (c *Config) LoadDefaults() {
	c.DataDir = "."
	c.ElectionInterval = 2 * time.Second
	c.ProbeTimeout = 1 * time.Second
	c.ReplicationTimeout = 2 * time.Second
	c.MetricsAddr = ""
}

// Validate checks the required settings and that Peers is consistent with
// NodeID and Address.
func (c *Config) Validate() error {
	switch {
	case c.NodeID < 1:
		return fmt.Errorf("-id must be a positive node id: %w", common.ErrInvalidArgument)
	case c.Address == "":
		return fmt.Errorf("-a bind address is required: %w", common.ErrInvalidArgument)
	case len(c.Peers) == 0:
		return fmt.Errorf("-peers member list is required: %w", common.ErrInvalidArgument)
	case c.NodeID > len(c.Peers):
		return fmt.Errorf("-id %d outside the %d listed peers: %w", c.NodeID, len(c.Peers), common.ErrInvalidArgument)
	}
	for name, d := range map[string]time.Duration{
		"-e": c.ElectionInterval,
		"-t": c.ProbeTimeout,
		"-r": c.ReplicationTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive: %w", name, common.ErrInvalidArgument)
		}
	}
	return nil
}

// LoadConfig builds a Config from defaults overlaid with command-line flags,
// then validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFlags(cfg, os.Args[1:]); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
