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
	"io"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/fatih/color"
)

// Tuning job states as reported by the service.
const (
	StatusInProgress = "InProgress"
	StatusCompleted  = "Completed"
	StatusFailed     = "Failed"
	StatusStopping   = "Stopping"
	StatusStopped    = "Stopped"
)

// TrainingJobCounters breaks down the job's training runs by state.
type TrainingJobCounters struct {
	Completed         int32
	InProgress        int32
	Stopped           int32
	RetryableError    int32
	NonRetryableError int32
}

// BestTrainingJob identifies the best run found so far.
type BestTrainingJob struct {
	Name                 string
	Status               string
	MetricName           string
	MetricValue          float32
	TunedHyperParameters map[string]string
}

// JobStatus is the render-friendly view of a tuning job's state.
type JobStatus struct {
	Name          string
	Status        string
	Counters      TrainingJobCounters
	Best          *BestTrainingJob
	FailureReason string
	CreationTime  *time.Time
	EndTime       *time.Time
}

// Terminal reports whether the job has finished, one way or another.
func (s *JobStatus) Terminal() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusStopped:
		return true
	}
	return false
}

// summaryLine condenses the state for change detection during watch.
func (s *JobStatus) summaryLine() string {
	return fmt.Sprintf("%s %d/%d/%d/%d", s.Status,
		s.Counters.Completed, s.Counters.InProgress,
		s.Counters.Stopped, s.Counters.NonRetryableError+s.Counters.RetryableError)
}

func statusFromDescribe(name string, out *sagemaker.DescribeHyperParameterTuningJobOutput) *JobStatus {
	status := &JobStatus{
		Name:          name,
		Status:        string(out.HyperParameterTuningJobStatus),
		FailureReason: aws.ToString(out.FailureReason),
		CreationTime:  out.CreationTime,
		EndTime:       out.HyperParameterTuningEndTime,
	}
	if c := out.TrainingJobStatusCounters; c != nil {
		status.Counters = TrainingJobCounters{
			Completed:         aws.ToInt32(c.Completed),
			InProgress:        aws.ToInt32(c.InProgress),
			Stopped:           aws.ToInt32(c.Stopped),
			RetryableError:    aws.ToInt32(c.RetryableError),
			NonRetryableError: aws.ToInt32(c.NonRetryableError),
		}
	}
	if best := out.BestTrainingJob; best != nil {
		b := &BestTrainingJob{
			Name:                 aws.ToString(best.TrainingJobName),
			Status:               string(best.TrainingJobStatus),
			TunedHyperParameters: best.TunedHyperParameters,
		}
		if m := best.FinalHyperParameterTuningJobObjectiveMetric; m != nil {
			b.MetricName = aws.ToString(m.MetricName)
			b.MetricValue = aws.ToFloat32(m.Value)
		}
		status.Best = b
	}
	return status
}

var (
	statusGreen  = color.New(color.FgGreen).SprintFunc()
	statusYellow = color.New(color.FgYellow).SprintFunc()
	statusRed    = color.New(color.FgRed).SprintFunc()
	bold         = color.New(color.Bold).SprintFunc()
)

func coloredStatus(status string) string {
	switch status {
	case StatusCompleted:
		return statusGreen(status)
	case StatusFailed, StatusStopped, StatusStopping:
		return statusRed(status)
	default:
		return statusYellow(status)
	}
}

// Render writes a human-readable view of the job status.
func Render(w io.Writer, s *JobStatus) {
	fmt.Fprintf(w, "%s  %s\n", bold(s.Name), coloredStatus(s.Status))
	fmt.Fprintf(w, "  training jobs: %d completed, %d in progress, %d stopped, %d errored\n",
		s.Counters.Completed, s.Counters.InProgress, s.Counters.Stopped,
		s.Counters.RetryableError+s.Counters.NonRetryableError)
	if s.FailureReason != "" {
		fmt.Fprintf(w, "  failure reason: %s\n", statusRed(s.FailureReason))
	}
	if s.Best != nil {
		fmt.Fprintf(w, "  best training job: %s (%s)\n", s.Best.Name, s.Best.Status)
		if s.Best.MetricName != "" {
			fmt.Fprintf(w, "  objective %s = %g\n", s.Best.MetricName, s.Best.MetricValue)
		}
		if len(s.Best.TunedHyperParameters) > 0 {
			names := make([]string, 0, len(s.Best.TunedHyperParameters))
			for name := range s.Best.TunedHyperParameters {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(w, "    %s: %s\n", name, s.Best.TunedHyperParameters[name])
			}
		}
	}
}
