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

package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"tune-toolkit/pkg/logging"
	"tune-toolkit/pkg/session"
	"tune-toolkit/pkg/tuning"
)

var (
	specPath      string
	watchJob      bool
	watchInterval time.Duration
)

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringVarP(&specPath, "spec", "s", "", "Path of the tuning job spec YAML. Required.")
	submitCmd.Flags().BoolVarP(&watchJob, "watch", "w", false, "Poll the job after submission until it reaches a terminal state.")
	submitCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Polling interval used with --watch. Defaults to TUNEKIT_WATCH_INTERVAL.")

	_ = submitCmd.MarkFlagRequired("spec")
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submits a hyperparameter tuning job to SageMaker.",
	Long: `The 'submit' command reads a declarative YAML spec (parameter ranges,
resource limits, strategy, objective, training definition), validates it,
translates it into a CreateHyperParameterTuningJob request and submits it.
With --watch it then polls the job, printing each state change, until the
job completes, fails or is stopped.`,
	Run:          runSubmitCmd,
	SilenceUsage: true,
}

func runSubmitCmd(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	spec, err := tuning.Load(afero.NewOsFs(), specPath)
	if err != nil {
		logging.Fatal("Failed to load job spec %q: %v", specPath, err)
	}

	sess, err := session.New(ctx, cfg.Region, cfg.Profile)
	if err != nil {
		logging.Fatal("Failed to initialize AWS session: %v", err)
	}

	// The spec may name a bare role; expand it against the caller's account.
	if spec.Training.RoleArn == "" {
		spec.Training.RoleArn = cfg.RoleArn
	}
	spec.Training.RoleArn = sess.RoleARN(spec.Training.RoleArn)

	client := tuning.NewClient(sess.Config)
	name, _, err := client.Submit(ctx, spec)
	if err != nil {
		logging.Fatal("tunekit submit failed: %v", err)
	}

	if !watchJob {
		return
	}

	interval := watchInterval
	if interval <= 0 {
		interval = cfg.WatchInterval
	}
	status, err := client.Watch(ctx, os.Stdout, name, interval)
	if err != nil {
		logging.Fatal("Failed while watching tuning job %q: %v", name, err)
	}
	if status.Status != tuning.StatusCompleted {
		logging.Fatal("Tuning job %q finished as %s", name, status.Status)
	}
}
