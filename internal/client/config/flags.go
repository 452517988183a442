package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/filetrade/internal/flagx"
)

// parseFlags reads:
//
//	-a string   daemon gRPC address
//	-f string   file server base URL
//	-s string   local index database path
//	-i int      online check interval (seconds)
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-f", "-s", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port of the ledger daemon")
	fs.StringVar(&cfg.FileServerURL, "f", cfg.FileServerURL, "file server base URL")
	fs.StringVar(&cfg.DatabasePath, "s", cfg.DatabasePath, "local index database path")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
