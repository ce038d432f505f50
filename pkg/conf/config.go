// Copyright 2025 The Spotlight Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// The conf package manages the configuration of the Spotlight server.
package conf

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Spotlight server configuration
type Config struct {
	LogLevel      string `yaml:"log_level" envconfig:"log_level"` // "debug", "info", "warn", "error"
	PublicBaseUrl string `yaml:"public_base_url" envconfig:"public_base_url"`
	Port          int    `yaml:"port" envconfig:"port"`
	Dsn           string `yaml:"dsn" envconfig:"dsn"`
	JWT           `yaml:"jwt"`
}

// JWT holds the signing secret and the operator accounts allowed to
// manage events and open gate sessions.
type JWT struct {
	SecretKey string            `yaml:"secret_key" envconfig:"jwt_secret_key"`
	Operators map[string]string `yaml:"operators"` // username -> password
}

// Init reads the configuration from a yaml file, then applies
// environment variable overrides prefixed by "spotlight".
func Init(configFile string) (*Config, error) {

	var c Config

	if configFile != "" {
		f, _ := filepath.Abs(configFile)
		yamlData, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		err = yaml.Unmarshal(yamlData, &c)
		if err != nil {
			return nil, err
		}
	} else {
		return nil, errors.New("failed to find the configuration file")
	}

	// environment overrides
	err := envconfig.Process("spotlight", &c)
	if err != nil {
		return nil, err
	}

	if c.Port == 0 {
		c.Port = 8081
	}

	return &c, nil
}
