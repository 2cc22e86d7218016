package config

import (
	"flag"
	"os"
	"time"

	"github.com/privault/privault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   path to the SQLite database file
//	-r string   NATS address of the relay (empty keeps the relay disabled)
//	-t int      relay request timeout in seconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-r", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "path to the database file")
	fs.StringVar(&cfg.RelayURL, "r", cfg.RelayURL, "relay address")
	relayTimeout := fs.Int("t", int(cfg.RelayTimeout.Seconds()), "relay timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RelayTimeout = time.Duration(*relayTimeout) * time.Second
}
