package config

import (
	"flag"
	"io"
	"strings"

	"github.com/dmitrijs2005/replichat/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-nodes string   comma-separated cluster member addresses
//	-i duration     failover check interval (e.g., "5s")
//	-p duration     inbox poll interval
//	-timeout dur    per-request deadline
//
// The function filters argv to only include the flags it knows about,
// using flagx.FilterArgs, so -c/-config does not trip the parser.
func parseFlags(cfg *Config, argv []string) error {
	args := flagx.FilterArgs(argv, []string{"-nodes", "-i", "-p", "-timeout"})

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	nodes := fs.String("nodes", strings.Join(cfg.Nodes, ","), "comma-separated node addresses")
	fs.DurationVar(&cfg.FailoverInterval, "i", cfg.FailoverInterval, "failover check interval")
	fs.DurationVar(&cfg.PollInterval, "p", cfg.PollInterval, "inbox poll interval")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "per-request timeout")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.Nodes = flagx.SplitList(*nodes)
	return nil
}
