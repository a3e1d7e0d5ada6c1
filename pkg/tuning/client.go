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
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"

	"tune-toolkit/pkg/logging"
)

// tuningAPI is the slice of the SageMaker client this package uses.
type tuningAPI interface {
	CreateHyperParameterTuningJob(ctx context.Context, params *sagemaker.CreateHyperParameterTuningJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateHyperParameterTuningJobOutput, error)
	DescribeHyperParameterTuningJob(ctx context.Context, params *sagemaker.DescribeHyperParameterTuningJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeHyperParameterTuningJobOutput, error)
}

// Client submits and observes hyperparameter tuning jobs.
type Client struct {
	api tuningAPI
}

// NewClient creates a tuning Client from an AWS configuration.
func NewClient(cfg aws.Config) *Client {
	return &Client{api: sagemaker.NewFromConfig(cfg)}
}

// Submit validates the spec and creates the tuning job, returning the job
// name and ARN.
func (c *Client) Submit(ctx context.Context, spec *JobSpec) (name, arn string, err error) {
	if err := spec.Validate(); err != nil {
		return "", "", err
	}
	input, err := spec.ToCreateInput()
	if err != nil {
		return "", "", err
	}

	out, err := c.api.CreateHyperParameterTuningJob(ctx, input)
	if err != nil {
		return "", "", fmt.Errorf("failed to create tuning job %q: %w", spec.Name, err)
	}
	logging.Info("Tuning job %q submitted: %s", spec.Name, aws.ToString(out.HyperParameterTuningJobArn))
	return spec.Name, aws.ToString(out.HyperParameterTuningJobArn), nil
}

// Describe fetches the current state of a tuning job.
func (c *Client) Describe(ctx context.Context, name string) (*JobStatus, error) {
	out, err := c.api.DescribeHyperParameterTuningJob(ctx, &sagemaker.DescribeHyperParameterTuningJobInput{
		HyperParameterTuningJobName: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe tuning job %q: %w", name, err)
	}
	return statusFromDescribe(name, out), nil
}

// Watch polls the job on the given interval, rendering each state change to
// w, until the job reaches a terminal state or ctx is done. The final
// status is returned even when the job failed; callers decide how to exit.
func (c *Client) Watch(ctx context.Context, w io.Writer, name string, interval time.Duration) (*JobStatus, error) {
	status, err := c.Describe(ctx, name)
	if err != nil {
		return nil, err
	}
	Render(w, status)
	if status.Terminal() {
		return status, nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := status.summaryLine()

	for {
		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
			status, err = c.Describe(ctx, name)
			if err != nil {
				return nil, err
			}
			if line := status.summaryLine(); line != last {
				Render(w, status)
				last = line
			}
			if status.Terminal() {
				return status, nil
			}
		}
	}
}
