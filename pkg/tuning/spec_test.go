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

package tuning

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSpecYAML = `
name: cifar10-tune
strategy: Bayesian
objective:
  metricName: val_acc
  type: Maximize
resourceLimits:
  maxTrainingJobs: 9
  maxParallelTrainingJobs: 3
parameterRanges:
  continuous:
    - name: learning-rate
      min: 0.0001
      max: 0.1
  integer:
    - name: batch-size
      min: 32
      max: 256
  categorical:
    - name: optimizer
      values: [sgd, adam, rmsprop]
staticHyperparameters:
  epochs: "10"
  data-augmentation: "True"
metrics:
  - name: val_acc
    regex: 'val_acc: ([0-9\.]+)'
training:
  image: 123456789012.dkr.ecr.us-west-2.amazonaws.com/tunekit-cifar10:1.12.0
  roleArn: arn:aws:iam::123456789012:role/SageMakerRole
  channels:
    train: s3://bkt/data/cifar10/train
    test: s3://bkt/data/cifar10/test
  outputPath: s3://bkt/jobs/output
  instance:
    type: ml.m5.xlarge
    count: 1
    volumeSizeGB: 50
  maxRuntimeSeconds: 86400
`

func loadFromString(t *testing.T, content string) (*JobSpec, error) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/job.yaml", []byte(content), 0644))
	return Load(fsys, "/job.yaml")
}

func TestLoadValidSpec(t *testing.T) {
	spec, err := loadFromString(t, validSpecYAML)
	require.NoError(t, err)

	assert.Equal(t, "cifar10-tune", spec.Name)
	assert.Equal(t, StrategyBayesian, spec.Strategy)
	assert.Equal(t, "val_acc", spec.Objective.MetricName)
	assert.Equal(t, int32(9), spec.Limits.MaxTrainingJobs)
	require.Len(t, spec.Ranges.Continuous, 1)
	assert.Equal(t, "learning-rate", spec.Ranges.Continuous[0].Name)
	require.Len(t, spec.Ranges.Categorical, 1)
	assert.Equal(t, []string{"sgd", "adam", "rmsprop"}, spec.Ranges.Categorical[0].Values)
	assert.Equal(t, "10", spec.StaticHyperParameters["epochs"])
	assert.Equal(t, "File", spec.Training.InputMode, "default input mode")
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := loadFromString(t, validSpecYAML+"\nstrateegy: oops\n")
	require.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	minimal := `
objective:
  metricName: val_acc
  type: Maximize
resourceLimits:
  maxTrainingJobs: 4
  maxParallelTrainingJobs: 2
parameterRanges:
  continuous:
    - name: learning-rate
      min: 0.001
      max: 0.1
metrics:
  - name: val_acc
    regex: 'val_acc: ([0-9\.]+)'
training:
  image: img:1.12.0
  roleArn: arn:aws:iam::123456789012:role/SageMakerRole
  channels:
    train: s3://bkt/train
  outputPath: s3://bkt/out
  instance:
    type: ml.m5.xlarge
`
	spec, err := loadFromString(t, minimal)
	require.NoError(t, err)

	assert.NotEmpty(t, spec.Name)
	assert.LessOrEqual(t, len(spec.Name), 32)
	assert.Equal(t, StrategyBayesian, spec.Strategy)
	assert.Equal(t, int32(1), spec.Training.Instance.Count)
	assert.Equal(t, int32(50), spec.Training.Instance.VolumeSizeGB)
	assert.Equal(t, int32(86400), spec.Training.MaxRuntimeSeconds)
}

func TestValidateFailures(t *testing.T) {
	base := func() *JobSpec {
		spec, err := loadFromString(t, validSpecYAML)
		require.NoError(t, err)
		return spec
	}

	tests := []struct {
		name    string
		mutate  func(*JobSpec)
		wantErr string
	}{
		{
			name:    "Unknown strategy",
			mutate:  func(s *JobSpec) { s.Strategy = "GridSearch" },
			wantErr: "strategy",
		},
		{
			name:    "Unknown objective type",
			mutate:  func(s *JobSpec) { s.Objective.Type = "Biggest" },
			wantErr: "objective",
		},
		{
			name:    "Missing objective metric",
			mutate:  func(s *JobSpec) { s.Objective.MetricName = "" },
			wantErr: "metricName",
		},
		{
			name:    "Objective without metric definition",
			mutate:  func(s *JobSpec) { s.Objective.MetricName = "loss" },
			wantErr: "no matching metric definition",
		},
		{
			name:    "Parallel exceeds total",
			mutate:  func(s *JobSpec) { s.Limits.MaxParallelTrainingJobs = 99 },
			wantErr: "exceeds",
		},
		{
			name:    "Zero total jobs",
			mutate:  func(s *JobSpec) { s.Limits.MaxTrainingJobs = 0 },
			wantErr: "maxTrainingJobs",
		},
		{
			name:    "Inverted continuous range",
			mutate:  func(s *JobSpec) { s.Ranges.Continuous[0].Min = 1; s.Ranges.Continuous[0].Max = 0.5 },
			wantErr: "below max",
		},
		{
			name:    "Inverted integer range",
			mutate:  func(s *JobSpec) { s.Ranges.Integer[0].Min = 300 },
			wantErr: "below max",
		},
		{
			name:    "Empty categorical values",
			mutate:  func(s *JobSpec) { s.Ranges.Categorical[0].Values = nil },
			wantErr: "no values",
		},
		{
			name:    "No ranges at all",
			mutate:  func(s *JobSpec) { s.Ranges = ParameterRanges{} },
			wantErr: "at least one range",
		},
		{
			name:    "Name too long",
			mutate:  func(s *JobSpec) { s.Name = "this-tuning-job-name-is-way-too-long-for-the-service" },
			wantErr: "32 characters",
		},
		{
			name:    "Non-S3 channel",
			mutate:  func(s *JobSpec) { s.Training.Channels["train"] = "file:///tmp/train" },
			wantErr: "s3://",
		},
		{
			name:    "Missing role",
			mutate:  func(s *JobSpec) { s.Training.RoleArn = "" },
			wantErr: "roleArn",
		},
		{
			name:    "Zero instance count",
			mutate:  func(s *JobSpec) { s.Training.Instance.Count = 0 },
			wantErr: "count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := base()
			tt.mutate(spec)
			err := spec.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultJobName(t *testing.T) {
	name := DefaultJobName()
	assert.LessOrEqual(t, len(name), 32)
	assert.Contains(t, name, "tunekit-")
	assert.NotEqual(t, name, DefaultJobName())
}
