// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads tunekit defaults from the environment and an optional
// config file. Command-line flags override anything loaded here.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds ambient defaults for the CLI. Bucket and RoleArn may stay
// empty here; pkg/session derives them from the caller identity when unset.
type Config struct {
	Region        string
	Profile       string
	Bucket        string
	RoleArn       string
	Repository    string
	BaseImage     string
	DataPrefix    string
	WatchInterval time.Duration
}

// Load reads TUNEKIT_* environment variables and, if present, a
// tunekit.yaml config file in the given directory ("" means skip the file).
func Load(configDir string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("REGION", "us-west-2")
	v.SetDefault("PROFILE", "")
	v.SetDefault("BUCKET", "")
	v.SetDefault("ROLE_ARN", "")
	v.SetDefault("REPOSITORY", "tunekit-cifar10")
	v.SetDefault("BASE_IMAGE", "tensorflow/tensorflow:1.12.0")
	v.SetDefault("DATA_PREFIX", "data/cifar10")
	v.SetDefault("WATCH_INTERVAL", "30s")

	// Env
	v.SetEnvPrefix("TUNEKIT")
	v.AutomaticEnv()

	if configDir != "" {
		v.SetConfigName("tunekit")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	interval, err := time.ParseDuration(v.GetString("WATCH_INTERVAL"))
	if err != nil {
		interval = 30 * time.Second
	}

	cfg := &Config{
		Region:        v.GetString("REGION"),
		Profile:       v.GetString("PROFILE"),
		Bucket:        v.GetString("BUCKET"),
		RoleArn:       v.GetString("ROLE_ARN"),
		Repository:    v.GetString("REPOSITORY"),
		BaseImage:     v.GetString("BASE_IMAGE"),
		DataPrefix:    v.GetString("DATA_PREFIX"),
		WatchInterval: interval,
	}

	return cfg, nil
}
