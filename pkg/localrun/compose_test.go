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

package localrun

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	yaml "gopkg.in/yaml.v2"

	"tune-toolkit/pkg/shell"
)

func testOptions() RunOptions {
	return RunOptions{
		Image:   "123456789012.dkr.ecr.us-west-2.amazonaws.com/tunekit-cifar10:1.12.0",
		DataDir: "/data/cifar10",
		WorkDir: "/work",
		Hyperparameters: map[string]string{
			"learning-rate": "0.001",
			"epochs":        "1",
		},
	}
}

func TestGenerateComposeYAML(t *testing.T) {
	content, err := GenerateComposeYAML(testOptions())
	if err != nil {
		t.Fatalf("GenerateComposeYAML: %v", err)
	}

	var decoded struct {
		Services map[string]struct {
			Image   string   `yaml:"image"`
			Command string   `yaml:"command"`
			Volumes []string `yaml:"volumes"`
		} `yaml:"services"`
	}
	if err := yaml.Unmarshal([]byte(content), &decoded); err != nil {
		t.Fatalf("generated YAML does not decode: %v", err)
	}

	svc, ok := decoded.Services["training"]
	if !ok {
		t.Fatalf("missing training service in:\n%s", content)
	}
	if !strings.Contains(svc.Image, "tunekit-cifar10") {
		t.Errorf("unexpected image %q", svc.Image)
	}
	if svc.Command != "train" {
		t.Errorf("command = %q, want train", svc.Command)
	}
	if len(svc.Volumes) != 4 {
		t.Fatalf("got %d volumes, want 4:\n%s", len(svc.Volumes), content)
	}
	wantMounts := []string{
		"/data/cifar10:" + ContainerDataPath,
		filepath.Join("/work", "config") + ":" + ContainerConfigPath,
		filepath.Join("/work", "model") + ":" + ContainerModelPath,
		filepath.Join("/work", "output") + ":" + ContainerOutputPath,
	}
	for i, want := range wantMounts {
		if svc.Volumes[i] != want {
			t.Errorf("volume[%d] = %q, want %q", i, svc.Volumes[i], want)
		}
	}
}

func TestGenerateComposeYAMLResolvesRelativeMounts(t *testing.T) {
	opts := testOptions()
	opts.DataDir = "data/prepared"
	opts.WorkDir = "local-run"

	content, err := GenerateComposeYAML(opts)
	if err != nil {
		t.Fatalf("GenerateComposeYAML: %v", err)
	}

	var decoded struct {
		Services map[string]struct {
			Volumes []string `yaml:"volumes"`
		} `yaml:"services"`
	}
	if err := yaml.Unmarshal([]byte(content), &decoded); err != nil {
		t.Fatalf("generated YAML does not decode: %v", err)
	}

	volumes := decoded.Services["training"].Volumes
	if len(volumes) != 4 {
		t.Fatalf("got %d volumes, want 4:\n%s", len(volumes), content)
	}
	// Relative host paths would be resolved against the compose file's
	// directory, not the invoking directory.
	for _, v := range volumes {
		host := v[:strings.Index(v, ":")]
		if !filepath.IsAbs(host) {
			t.Errorf("host path %q is not absolute", host)
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(wd, "data/prepared") + ":" + ContainerDataPath; volumes[0] != want {
		t.Errorf("data mount = %q, want %q", volumes[0], want)
	}
	if want := filepath.Join(wd, "local-run", "config") + ":" + ContainerConfigPath; volumes[1] != want {
		t.Errorf("config mount = %q, want %q", volumes[1], want)
	}
}

func TestGenerateComposeYAMLRequiresImage(t *testing.T) {
	opts := testOptions()
	opts.Image = ""
	if _, err := GenerateComposeYAML(opts); err == nil {
		t.Fatal("expected error for empty image")
	}
}

func TestStage(t *testing.T) {
	fsys := afero.NewMemMapFs()
	opts := testOptions()

	composePath, err := Stage(fsys, opts)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if composePath != filepath.Join("/work", "docker-compose.yaml") {
		t.Errorf("unexpected compose path %q", composePath)
	}

	for _, dir := range []string{"config", "model", "output"} {
		exists, err := afero.DirExists(fsys, filepath.Join("/work", dir))
		if err != nil || !exists {
			t.Errorf("directory %s not created (exists=%v, err=%v)", dir, exists, err)
		}
	}

	hpBytes, err := afero.ReadFile(fsys, filepath.Join("/work", "config", "hyperparameters.json"))
	if err != nil {
		t.Fatalf("reading hyperparameters.json: %v", err)
	}
	var hp map[string]string
	if err := json.Unmarshal(hpBytes, &hp); err != nil {
		t.Fatalf("hyperparameters.json does not decode: %v", err)
	}
	if hp["learning-rate"] != "0.001" || hp["epochs"] != "1" {
		t.Errorf("unexpected hyperparameters: %v", hp)
	}
}

func TestStageEmptyHyperparameters(t *testing.T) {
	fsys := afero.NewMemMapFs()
	opts := testOptions()
	opts.Hyperparameters = nil

	if _, err := Stage(fsys, opts); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	hpBytes, err := afero.ReadFile(fsys, filepath.Join("/work", "config", "hyperparameters.json"))
	if err != nil {
		t.Fatalf("reading hyperparameters.json: %v", err)
	}
	if string(hpBytes) != "{}" {
		t.Errorf("expected empty JSON object, got %q", string(hpBytes))
	}
}

func TestRunFailsOnNonZeroExit(t *testing.T) {
	prev := execCommand
	defer func() { execCommand = prev }()

	var captured []string
	execCommand = func(name string, args ...string) shell.Result {
		captured = append([]string{name}, args...)
		return shell.Result{ExitCode: 137, Stderr: "OOMKilled"}
	}

	opts := testOptions()
	opts.WorkDir = t.TempDir()
	err := Run(opts)
	if err == nil {
		t.Fatal("expected error on non-zero exit")
	}
	if !strings.Contains(err.Error(), "137") {
		t.Errorf("error should carry exit code: %v", err)
	}
	if !strings.Contains(strings.Join(captured, " "), "--abort-on-container-exit") {
		t.Errorf("compose invocation missing abort flag: %v", captured)
	}
}

func TestRunSucceeds(t *testing.T) {
	prev := execCommand
	defer func() { execCommand = prev }()
	execCommand = func(name string, args ...string) shell.Result {
		return shell.Result{ExitCode: 0, Stdout: "training | done"}
	}

	opts := testOptions()
	opts.WorkDir = t.TempDir()
	if err := Run(opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
