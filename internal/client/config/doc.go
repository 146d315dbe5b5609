// Package config loads runtime configuration for the replichat CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-nodes string   comma-separated cluster member addresses
//	-i duration     failover check interval
//	-p duration     inbox poll interval
//	-timeout dur    per-request deadline
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "5s" or integer nanoseconds:
//
//	{
//	  "nodes": ["localhost:8001", "localhost:8002", "localhost:8003"],
//	  "failover_interval": "5s",
//	  "poll_interval": "5s"
//	}
package config
