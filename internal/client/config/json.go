package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/replichat/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "5s" or as integer nanoseconds. Zero values leave the
// runtime Config untouched.
type JsonConfig struct {
	Nodes            []string       `json:"nodes"`
	FailoverInterval timex.Duration `json:"failover_interval"`
	PollInterval     timex.Duration `json:"poll_interval"`
	RequestTimeout   timex.Duration `json:"request_timeout"`
}

// parseJson overlays cfg with values loaded from the JSON file at path.
// An empty path loads nothing.
func parseJson(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if len(jc.Nodes) > 0 {
		cfg.Nodes = jc.Nodes
	}
	if jc.FailoverInterval.Duration > 0 {
		cfg.FailoverInterval = jc.FailoverInterval.Duration
	}
	if jc.PollInterval.Duration > 0 {
		cfg.PollInterval = jc.PollInterval.Duration
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}
