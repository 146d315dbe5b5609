package config

import (
	"flag"
	"io"
	"strings"

	"github.com/dmitrijs2005/replichat/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-id int          node id, 1..N
//	-a string        gRPC bind address (e.g., "localhost:8001")
//	-peers string    comma-separated member addresses; order defines ids
//	-d string        data directory
//	-e duration      election interval (e.g., "2s")
//	-t duration      health probe timeout
//	-r duration      replication fan-out timeout
//	-m string        metrics bind address, disabled when empty
func parseFlags(config *Config, argv []string) error {
	args := flagx.FilterArgs(argv, []string{"-id", "-a", "-peers", "-d", "-e", "-t", "-r", "-m"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.IntVar(&config.NodeID, "id", config.NodeID, "node id (1-based position in -peers)")
	fs.StringVar(&config.Address, "a", config.Address, "address and port to run server")
	peers := fs.String("peers", strings.Join(config.Peers, ","), "comma-separated member addresses")
	fs.StringVar(&config.DataDir, "d", config.DataDir, "data directory")
	fs.DurationVar(&config.ElectionInterval, "e", config.ElectionInterval, "election interval")
	fs.DurationVar(&config.ProbeTimeout, "t", config.ProbeTimeout, "health probe timeout")
	fs.DurationVar(&config.ReplicationTimeout, "r", config.ReplicationTimeout, "replication timeout")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics address (empty disables)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.Peers = flagx.SplitList(*peers)
	return nil
}
