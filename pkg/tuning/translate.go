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
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	smtypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

// ToCreateInput translates the validated spec into the tuning service's
// CreateHyperParameterTuningJob payload. Numeric bounds travel as strings,
// matching the service's wire format.
func (s *JobSpec) ToCreateInput() (*sagemaker.CreateHyperParameterTuningJobInput, error) {
	strategy, err := strategyType(s.Strategy)
	if err != nil {
		return nil, err
	}
	objectiveType, err := objectiveType(s.Objective.Type)
	if err != nil {
		return nil, err
	}

	return &sagemaker.CreateHyperParameterTuningJobInput{
		HyperParameterTuningJobName: aws.String(s.Name),
		HyperParameterTuningJobConfig: &smtypes.HyperParameterTuningJobConfig{
			Strategy: strategy,
			HyperParameterTuningJobObjective: &smtypes.HyperParameterTuningJobObjective{
				MetricName: aws.String(s.Objective.MetricName),
				Type:       objectiveType,
			},
			ResourceLimits: &smtypes.ResourceLimits{
				MaxNumberOfTrainingJobs: aws.Int32(s.Limits.MaxTrainingJobs),
				MaxParallelTrainingJobs: aws.Int32(s.Limits.MaxParallelTrainingJobs),
			},
			ParameterRanges: s.Ranges.toSDK(),
		},
		TrainingJobDefinition: s.Training.toSDK(s.StaticHyperParameters, s.Metrics),
	}, nil
}

func strategyType(strategy string) (smtypes.HyperParameterTuningJobStrategyType, error) {
	switch strategy {
	case StrategyBayesian:
		return smtypes.HyperParameterTuningJobStrategyTypeBayesian, nil
	case StrategyRandom:
		return smtypes.HyperParameterTuningJobStrategyTypeRandom, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", strategy)
	}
}

func objectiveType(direction string) (smtypes.HyperParameterTuningJobObjectiveType, error) {
	switch direction {
	case ObjectiveMaximize:
		return smtypes.HyperParameterTuningJobObjectiveTypeMaximize, nil
	case ObjectiveMinimize:
		return smtypes.HyperParameterTuningJobObjectiveTypeMinimize, nil
	default:
		return "", fmt.Errorf("unknown objective type %q", direction)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (r ParameterRanges) toSDK() *smtypes.ParameterRanges {
	out := &smtypes.ParameterRanges{}
	for _, c := range r.Continuous {
		out.ContinuousParameterRanges = append(out.ContinuousParameterRanges, smtypes.ContinuousParameterRange{
			Name:     aws.String(c.Name),
			MinValue: aws.String(formatFloat(c.Min)),
			MaxValue: aws.String(formatFloat(c.Max)),
		})
	}
	for _, i := range r.Integer {
		out.IntegerParameterRanges = append(out.IntegerParameterRanges, smtypes.IntegerParameterRange{
			Name:     aws.String(i.Name),
			MinValue: aws.String(strconv.FormatInt(i.Min, 10)),
			MaxValue: aws.String(strconv.FormatInt(i.Max, 10)),
		})
	}
	for _, c := range r.Categorical {
		out.CategoricalParameterRanges = append(out.CategoricalParameterRanges, smtypes.CategoricalParameterRange{
			Name:   aws.String(c.Name),
			Values: c.Values,
		})
	}
	return out
}

func (t TrainingSpec) toSDK(static map[string]string, metrics []MetricDefinition) *smtypes.HyperParameterTrainingJobDefinition {
	metricDefs := make([]smtypes.MetricDefinition, 0, len(metrics))
	for _, m := range metrics {
		metricDefs = append(metricDefs, smtypes.MetricDefinition{
			Name:  aws.String(m.Name),
			Regex: aws.String(m.Regex),
		})
	}

	// Channels sorted by name so payloads are reproducible.
	names := make([]string, 0, len(t.Channels))
	for name := range t.Channels {
		names = append(names, name)
	}
	sort.Strings(names)

	channels := make([]smtypes.Channel, 0, len(names))
	for _, name := range names {
		channels = append(channels, smtypes.Channel{
			ChannelName: aws.String(name),
			DataSource: &smtypes.DataSource{
				S3DataSource: &smtypes.S3DataSource{
					S3DataType:             smtypes.S3DataTypeS3Prefix,
					S3Uri:                  aws.String(t.Channels[name]),
					S3DataDistributionType: smtypes.S3DataDistributionFullyReplicated,
				},
			},
		})
	}

	return &smtypes.HyperParameterTrainingJobDefinition{
		AlgorithmSpecification: &smtypes.HyperParameterAlgorithmSpecification{
			TrainingImage:     aws.String(t.Image),
			TrainingInputMode: smtypes.TrainingInputMode(t.InputMode),
			MetricDefinitions: metricDefs,
		},
		RoleArn:         aws.String(t.RoleArn),
		InputDataConfig: channels,
		OutputDataConfig: &smtypes.OutputDataConfig{
			S3OutputPath: aws.String(t.OutputPath),
		},
		ResourceConfig: &smtypes.ResourceConfig{
			InstanceType:   smtypes.TrainingInstanceType(t.Instance.Type),
			InstanceCount:  aws.Int32(t.Instance.Count),
			VolumeSizeInGB: aws.Int32(t.Instance.VolumeSizeGB),
		},
		StaticHyperParameters: static,
		StoppingCondition: &smtypes.StoppingCondition{
			MaxRuntimeInSeconds: aws.Int32(t.MaxRuntimeSeconds),
		},
	}
}
