package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/filetrade/internal/flagx"
)

// parseFlags populates Config fields from command-line flags:
//
//	-a string     listen address
//	-d string     served directory (overrides DIRECTORY_PATH)
//	-b string     S3 bucket
//	-e string     S3 endpoint
//	-l string     log level
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-b", "-e", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "listen address")
	fs.StringVar(&config.DirectoryPath, "d", config.DirectoryPath, "directory to serve")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
