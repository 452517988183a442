// Package config loads marketctl settings: built-in defaults, then an
// optional JSON file (-c/-config), then short flags.
package config

import "time"

// Config holds runtime settings for marketctl.
//
// OnlineCheckInterval controls how often the REPL probes the daemon; the
// prompt shows the result.
type Config struct {
	ServerEndpointAddr  string
	FileServerURL       string
	DatabasePath        string
	OnlineCheckInterval time.Duration
}

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.FileServerURL = "http://127.0.0.1:10000"
	c.DatabasePath = "marketctl.db"
	c.OnlineCheckInterval = 3 * time.Second
}

// LoadConfig applies defaults, then JSON, then flags. Later sources win.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
