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

// Package tuning defines the hyperparameter tuning job specification, its
// translation into the managed tuning service's payload, and the client
// used to submit and observe jobs.
package tuning

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"tune-toolkit/pkg/shell"
)

// Search strategies accepted by the tuning service.
const (
	StrategyBayesian = "Bayesian"
	StrategyRandom   = "Random"
)

// Objective directions.
const (
	ObjectiveMaximize = "Maximize"
	ObjectiveMinimize = "Minimize"
)

// JobSpec is the user-facing tuning job definition, loaded from YAML. It
// carries everything CreateHyperParameterTuningJob needs: search ranges,
// resource limits, the objective, and the underlying training job
// definition.
type JobSpec struct {
	// Name of the tuning job; generated when empty. The service caps it
	// at 32 characters.
	Name      string          `yaml:"name"`
	Strategy  string          `yaml:"strategy"`
	Objective Objective       `yaml:"objective"`
	Limits    ResourceLimits  `yaml:"resourceLimits"`
	Ranges    ParameterRanges `yaml:"parameterRanges"`

	// StaticHyperParameters are passed unchanged to every training job.
	StaticHyperParameters map[string]string  `yaml:"staticHyperparameters"`
	Metrics               []MetricDefinition `yaml:"metrics"`
	Training              TrainingSpec       `yaml:"training"`
}

// Objective names the metric the search optimizes and its direction.
type Objective struct {
	MetricName string `yaml:"metricName"`
	Type       string `yaml:"type"`
}

// ResourceLimits bound the search.
type ResourceLimits struct {
	MaxTrainingJobs         int32 `yaml:"maxTrainingJobs"`
	MaxParallelTrainingJobs int32 `yaml:"maxParallelTrainingJobs"`
}

// ParameterRanges holds the searched parameter space.
type ParameterRanges struct {
	Continuous  []ContinuousRange  `yaml:"continuous"`
	Integer     []IntegerRange     `yaml:"integer"`
	Categorical []CategoricalRange `yaml:"categorical"`
}

func (r ParameterRanges) empty() bool {
	return len(r.Continuous) == 0 && len(r.Integer) == 0 && len(r.Categorical) == 0
}

// ContinuousRange searches a real interval.
type ContinuousRange struct {
	Name string  `yaml:"name"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
}

// IntegerRange searches an integer interval.
type IntegerRange struct {
	Name string `yaml:"name"`
	Min  int64  `yaml:"min"`
	Max  int64  `yaml:"max"`
}

// CategoricalRange searches a fixed value set.
type CategoricalRange struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
}

// MetricDefinition tells the service how to scrape a metric from the
// training log.
type MetricDefinition struct {
	Name  string `yaml:"name"`
	Regex string `yaml:"regex"`
}

// TrainingSpec is the training job definition shared by every trial.
type TrainingSpec struct {
	Image             string            `yaml:"image"`
	RoleArn           string            `yaml:"roleArn"`
	InputMode         string            `yaml:"inputMode"`
	Channels          map[string]string `yaml:"channels"`
	OutputPath        string            `yaml:"outputPath"`
	Instance          InstanceSpec      `yaml:"instance"`
	MaxRuntimeSeconds int32             `yaml:"maxRuntimeSeconds"`
}

// InstanceSpec sizes the per-trial training cluster.
type InstanceSpec struct {
	Type         string `yaml:"type"`
	Count        int32  `yaml:"count"`
	VolumeSizeGB int32  `yaml:"volumeSizeGB"`
}

// DefaultJobName generates a unique, length-bounded tuning job name.
func DefaultJobName() string {
	return fmt.Sprintf("tunekit-%s-%s", time.Now().Format("0102-1504"), shell.RandomString(4))
}

// Load reads a JobSpec from a YAML file and fills its defaults. Unknown
// fields are rejected so a typo in a range name fails here instead of at
// submission. Full validation happens in Submit, after callers have had a
// chance to fill ambient values like the training role.
func Load(fsys afero.Fs, path string) (*JobSpec, error) {
	raw, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job spec %q: %w", path, err)
	}

	var spec JobSpec
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("failed to parse job spec %q: %w", path, err)
	}

	spec.applyDefaults()
	return &spec, nil
}

// applyDefaults fills the fields a minimal spec may omit.
func (s *JobSpec) applyDefaults() {
	if s.Name == "" {
		s.Name = DefaultJobName()
	}
	if s.Strategy == "" {
		s.Strategy = StrategyBayesian
	}
	if s.Training.InputMode == "" {
		s.Training.InputMode = "File"
	}
	if s.Training.Instance.Count == 0 {
		s.Training.Instance.Count = 1
	}
	if s.Training.Instance.VolumeSizeGB == 0 {
		s.Training.Instance.VolumeSizeGB = 50
	}
	if s.Training.MaxRuntimeSeconds == 0 {
		s.Training.MaxRuntimeSeconds = 86400
	}
}

// Validate checks the spec against the tuning service's constraints.
func (s *JobSpec) Validate() error {
	if len(s.Name) > 32 {
		return fmt.Errorf("job name %q exceeds 32 characters", s.Name)
	}
	if s.Strategy != StrategyBayesian && s.Strategy != StrategyRandom {
		return fmt.Errorf("unknown strategy %q (want %s or %s)", s.Strategy, StrategyBayesian, StrategyRandom)
	}
	if s.Objective.MetricName == "" {
		return fmt.Errorf("objective.metricName is required")
	}
	if s.Objective.Type != ObjectiveMaximize && s.Objective.Type != ObjectiveMinimize {
		return fmt.Errorf("unknown objective type %q (want %s or %s)", s.Objective.Type, ObjectiveMaximize, ObjectiveMinimize)
	}
	if s.Limits.MaxTrainingJobs <= 0 {
		return fmt.Errorf("resourceLimits.maxTrainingJobs must be positive")
	}
	if s.Limits.MaxParallelTrainingJobs <= 0 {
		return fmt.Errorf("resourceLimits.maxParallelTrainingJobs must be positive")
	}
	if s.Limits.MaxParallelTrainingJobs > s.Limits.MaxTrainingJobs {
		return fmt.Errorf("resourceLimits.maxParallelTrainingJobs (%d) exceeds maxTrainingJobs (%d)",
			s.Limits.MaxParallelTrainingJobs, s.Limits.MaxTrainingJobs)
	}
	if s.Ranges.empty() {
		return fmt.Errorf("parameterRanges must define at least one range")
	}
	for _, r := range s.Ranges.Continuous {
		if r.Name == "" {
			return fmt.Errorf("continuous range with empty name")
		}
		if r.Min >= r.Max {
			return fmt.Errorf("continuous range %q: min %v must be below max %v", r.Name, r.Min, r.Max)
		}
	}
	for _, r := range s.Ranges.Integer {
		if r.Name == "" {
			return fmt.Errorf("integer range with empty name")
		}
		if r.Min >= r.Max {
			return fmt.Errorf("integer range %q: min %d must be below max %d", r.Name, r.Min, r.Max)
		}
	}
	for _, r := range s.Ranges.Categorical {
		if r.Name == "" {
			return fmt.Errorf("categorical range with empty name")
		}
		if len(r.Values) == 0 {
			return fmt.Errorf("categorical range %q has no values", r.Name)
		}
	}
	for _, m := range s.Metrics {
		if m.Name == "" || m.Regex == "" {
			return fmt.Errorf("metric definitions need both name and regex")
		}
	}
	if !s.hasObjectiveMetric() {
		return fmt.Errorf("objective metric %q has no matching metric definition", s.Objective.MetricName)
	}
	return s.Training.validate()
}

func (s *JobSpec) hasObjectiveMetric() bool {
	for _, m := range s.Metrics {
		if m.Name == s.Objective.MetricName {
			return true
		}
	}
	return false
}

func (t *TrainingSpec) validate() error {
	if t.Image == "" {
		return fmt.Errorf("training.image is required")
	}
	if t.RoleArn == "" {
		return fmt.Errorf("training.roleArn is required")
	}
	if len(t.Channels) == 0 {
		return fmt.Errorf("training.channels must define at least one channel")
	}
	for name, uri := range t.Channels {
		if !strings.HasPrefix(uri, "s3://") {
			return fmt.Errorf("channel %q URI %q is not an s3:// URI", name, uri)
		}
	}
	if !strings.HasPrefix(t.OutputPath, "s3://") {
		return fmt.Errorf("training.outputPath %q is not an s3:// URI", t.OutputPath)
	}
	if t.Instance.Type == "" {
		return fmt.Errorf("training.instance.type is required")
	}
	if t.Instance.Count <= 0 {
		return fmt.Errorf("training.instance.count must be positive")
	}
	if t.Instance.VolumeSizeGB <= 0 {
		return fmt.Errorf("training.instance.volumeSizeGB must be positive")
	}
	if t.MaxRuntimeSeconds <= 0 {
		return fmt.Errorf("training.maxRuntimeSeconds must be positive")
	}
	return nil
}
