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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Region != "us-west-2" {
		t.Errorf("Region = %q, want us-west-2", cfg.Region)
	}
	if cfg.Repository != "tunekit-cifar10" {
		t.Errorf("Repository = %q, want tunekit-cifar10", cfg.Repository)
	}
	if cfg.WatchInterval != 30*time.Second {
		t.Errorf("WatchInterval = %v, want 30s", cfg.WatchInterval)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TUNEKIT_REGION", "eu-central-1")
	t.Setenv("TUNEKIT_WATCH_INTERVAL", "5s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Region != "eu-central-1" {
		t.Errorf("Region = %q, want eu-central-1", cfg.Region)
	}
	if cfg.WatchInterval != 5*time.Second {
		t.Errorf("WatchInterval = %v, want 5s", cfg.WatchInterval)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := "region: ap-northeast-1\nbucket: my-bucket\n"
	if err := os.WriteFile(filepath.Join(dir, "tunekit.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Region != "ap-northeast-1" {
		t.Errorf("Region = %q, want ap-northeast-1", cfg.Region)
	}
	if cfg.Bucket != "my-bucket" {
		t.Errorf("Bucket = %q, want my-bucket", cfg.Bucket)
	}
}

func TestLoadMissingConfigFileIsNotAnError(t *testing.T) {
	if _, err := Load(t.TempDir()); err != nil {
		t.Fatalf("Load with absent config file: %v", err)
	}
}

func TestLoadBadIntervalFallsBack(t *testing.T) {
	t.Setenv("TUNEKIT_WATCH_INTERVAL", "not-a-duration")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WatchInterval != 30*time.Second {
		t.Errorf("WatchInterval = %v, want fallback 30s", cfg.WatchInterval)
	}
}
