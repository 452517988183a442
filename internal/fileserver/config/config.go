// Package config handles configuration for the file server: defaults, the
// DIRECTORY_PATH environment variable, an optional JSON file and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const DirectoryPathEnv = "DIRECTORY_PATH"

// Config holds runtime settings for the file server. The S3 fields
// describe the S3-compatible bucket ciphertexts are published to.
type Config struct {
	ListenAddr     string
	DirectoryPath  string
	S3Region       string
	S3BaseEndpoint string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	PublishTimeout time.Duration
	LogLevel       string
}

func (c *Config) LoadDefaults() {
	c.ListenAddr = ":10000"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://localhost:9000"
	c.S3Bucket = "filetrade"
	c.S3AccessKey = "minioadmin"
	c.S3SecretKey = "minioadmin"
	c.PublishTimeout = 30 * time.Second
	c.LogLevel = "info"
}

func (c *Config) loadEnv() {
	if v, ok := os.LookupEnv(DirectoryPathEnv); ok {
		c.DirectoryPath = v
	}
}

// Validate checks that the served directory is set and exists.
func (c *Config) Validate() error {
	if c.DirectoryPath == "" {
		return fmt.Errorf("%s environment variable is missing", DirectoryPathEnv)
	}
	info, err := os.Stat(c.DirectoryPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s specifies nonexistent path %q", DirectoryPathEnv, c.DirectoryPath)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory: %q", DirectoryPathEnv, c.DirectoryPath)
	}
	return nil
}

// LoadConfig applies defaults, then the environment, then an optional JSON
// file and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.loadEnv()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
