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

// Package localrun validates a training image on the local Docker daemon
// before anything is submitted to the cloud. It recreates the container
// filesystem layout the managed training service provides (/opt/ml) out of
// host directories and drives a single training run through docker compose.
package localrun

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"text/template"

	"github.com/spf13/afero"
	yaml "gopkg.in/yaml.v2"

	"tune-toolkit/pkg/logging"
	"tune-toolkit/pkg/shell"
)

// Container-side paths of the managed training layout.
const (
	ContainerDataPath   = "/opt/ml/input/data"
	ContainerConfigPath = "/opt/ml/input/config"
	ContainerModelPath  = "/opt/ml/model"
	ContainerOutputPath = "/opt/ml/output"
)

// composeTemplate is the Go template for generating docker-compose.yaml
const composeTemplate = `services:
  training:
    image: '{{.Image}}'
    command: {{.Command}}
    stdin_open: true
    tty: true
    volumes:
{{- range .Mounts}}
      - '{{.Host}}:{{.Container}}'
{{- end}}
    environment:
      - PYTHONUNBUFFERED=1
`

// RunOptions holds parameters for a local training run.
type RunOptions struct {
	// Image is the full training image reference to run.
	Image string
	// DataDir is a host directory holding one subdirectory per channel
	// (train/, test/); it is mounted read-only at /opt/ml/input/data.
	DataDir string
	// WorkDir is a scratch directory where the compose file, the
	// hyperparameter config, and the model/output directories are created.
	WorkDir string
	// Hyperparameters is written to hyperparameters.json; the service
	// passes every value as a string, so locally we do too.
	Hyperparameters map[string]string
	// Command is the container command; defaults to "train".
	Command string
}

type mount struct {
	Host      string
	Container string
}

// mounts renders the host side of every bind absolute: compose resolves
// relative bind paths against the compose file's directory, not the
// invoking directory, so a relative DataDir or WorkDir would silently
// mount empty directories.
func (opts *RunOptions) mounts() ([]mount, error) {
	hosts := []struct {
		path      string
		container string
	}{
		{opts.DataDir, ContainerDataPath},
		{filepath.Join(opts.WorkDir, "config"), ContainerConfigPath},
		{filepath.Join(opts.WorkDir, "model"), ContainerModelPath},
		{filepath.Join(opts.WorkDir, "output"), ContainerOutputPath},
	}
	mounts := make([]mount, 0, len(hosts))
	for _, h := range hosts {
		abs, err := filepath.Abs(h.path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve mount path %q: %w", h.path, err)
		}
		mounts = append(mounts, mount{Host: abs, Container: h.container})
	}
	return mounts, nil
}

// GenerateComposeYAML renders the docker-compose.yaml content for the run
// and decodes it once as a sanity check on the template output.
func GenerateComposeYAML(opts RunOptions) (string, error) {
	if opts.Image == "" {
		return "", fmt.Errorf("image cannot be empty")
	}
	command := opts.Command
	if command == "" {
		command = "train"
	}
	mounts, err := opts.mounts()
	if err != nil {
		return "", err
	}

	tmpl, err := template.New("compose").Parse(composeTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse compose template: %w", err)
	}

	data := struct {
		Image   string
		Command string
		Mounts  []mount
	}{
		Image:   opts.Image,
		Command: command,
		Mounts:  mounts,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute compose template: %w", err)
	}

	var decoded map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		return "", fmt.Errorf("generated compose file is not valid YAML: %w", err)
	}
	return buf.String(), nil
}

// Stage creates the run's scratch directories under WorkDir, writes
// hyperparameters.json and docker-compose.yaml, and returns the path of the
// compose file.
func Stage(fsys afero.Fs, opts RunOptions) (string, error) {
	if opts.WorkDir == "" {
		return "", fmt.Errorf("work directory cannot be empty")
	}
	for _, dir := range []string{"config", "model", "output"} {
		if err := fsys.MkdirAll(filepath.Join(opts.WorkDir, dir), 0755); err != nil {
			return "", fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	hp := opts.Hyperparameters
	if hp == nil {
		hp = map[string]string{}
	}
	hpJSON, err := json.Marshal(hp)
	if err != nil {
		return "", fmt.Errorf("failed to encode hyperparameters: %w", err)
	}
	hpPath := filepath.Join(opts.WorkDir, "config", "hyperparameters.json")
	if err := afero.WriteFile(fsys, hpPath, hpJSON, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", hpPath, err)
	}

	composeYAML, err := GenerateComposeYAML(opts)
	if err != nil {
		return "", err
	}
	composePath := filepath.Join(opts.WorkDir, "docker-compose.yaml")
	if err := afero.WriteFile(fsys, composePath, []byte(composeYAML), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", composePath, err)
	}
	return composePath, nil
}

// execCommand is swapped out in tests.
var execCommand = shell.ExecuteCommand

// Run stages the compose file and runs the training container to
// completion. A non-zero container exit fails the run.
func Run(opts RunOptions) error {
	composePath, err := Stage(afero.NewOsFs(), opts)
	if err != nil {
		return err
	}

	logging.Info("Running local training with image %s", opts.Image)
	logging.Debug("Compose file: %s", composePath)

	result := execCommand("docker", "compose", "-f", composePath,
		"up", "--abort-on-container-exit", "--force-recreate")
	if result.ExitCode != 0 {
		return fmt.Errorf("local training run failed with exit code %d: %s", result.ExitCode, result.Stderr)
	}

	logging.Info("Local training run completed; model artifacts in %s", path.Join(opts.WorkDir, "model"))
	return nil
}
