package config

import (
	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Service *svcConfig
}

type svcConfig struct {
	LogLevel      string `envconfig:"RVTOOLS_MERGE_LOG_LEVEL" default:"info"`
	OutputPath    string `envconfig:"RVTOOLS_MERGE_OUTPUT" default:"RVTools-merged.xlsx"`
	SchemaOverlay string `envconfig:"RVTOOLS_MERGE_SCHEMA_OVERLAY" default:""`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}
