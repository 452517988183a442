package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/filetrade/internal/flagx"
	"github.com/dmitrijs2005/filetrade/internal/timex"
)

type JsonConfig struct {
	ListenAddr     *string         `json:"listen_addr"`
	DirectoryPath  *string         `json:"directory_path"`
	S3Region       *string         `json:"s3_region"`
	S3BaseEndpoint *string         `json:"s3_base_endpoint"`
	S3Bucket       *string         `json:"s3_bucket"`
	S3AccessKey    *string         `json:"s3_access_key"`
	S3SecretKey    *string         `json:"s3_secret_key"`
	PublishTimeout *timex.Duration `json:"publish_timeout"`
	LogLevel       *string         `json:"log_level"`
}

func parseJson(config *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIf(&config.ListenAddr, c.ListenAddr)
	setIf(&config.DirectoryPath, c.DirectoryPath)
	setIf(&config.S3Region, c.S3Region)
	setIf(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setIf(&config.S3Bucket, c.S3Bucket)
	setIf(&config.S3AccessKey, c.S3AccessKey)
	setIf(&config.S3SecretKey, c.S3SecretKey)
	if c.PublishTimeout != nil {
		config.PublishTimeout = c.PublishTimeout.Duration
	}
	setIf(&config.LogLevel, c.LogLevel)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
