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

	"github.com/spf13/cobra"

	"tune-toolkit/pkg/logging"
	"tune-toolkit/pkg/session"
	"tune-toolkit/pkg/tuning"
)

var (
	statusWatch    bool
	statusInterval time.Duration
)

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "Poll the job until it reaches a terminal state.")
	statusCmd.Flags().DurationVar(&statusInterval, "interval", 0, "Polling interval used with --watch. Defaults to TUNEKIT_WATCH_INTERVAL.")
}

var statusCmd = &cobra.Command{
	Use:   "status <job-name>",
	Short: "Shows the state of a hyperparameter tuning job.",
	Long: `The 'status' command describes a tuning job: its state, the breakdown of
its training runs, and the best training job found so far with its tuned
hyperparameters. With --watch it keeps polling, printing each state
change, until the job reaches a terminal state.`,
	Args:         cobra.ExactArgs(1),
	Run:          runStatusCmd,
	SilenceUsage: true,
}

func runStatusCmd(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	jobName := args[0]

	sess, err := session.New(ctx, cfg.Region, cfg.Profile)
	if err != nil {
		logging.Fatal("Failed to initialize AWS session: %v", err)
	}
	client := tuning.NewClient(sess.Config)

	if !statusWatch {
		status, err := client.Describe(ctx, jobName)
		if err != nil {
			logging.Fatal("tunekit status failed: %v", err)
		}
		tuning.Render(os.Stdout, status)
		if status.Status == tuning.StatusFailed {
			os.Exit(1)
		}
		return
	}

	interval := statusInterval
	if interval <= 0 {
		interval = cfg.WatchInterval
	}
	status, err := client.Watch(ctx, os.Stdout, jobName, interval)
	if err != nil {
		logging.Fatal("Failed while watching tuning job %q: %v", jobName, err)
	}
	if status.Status != tuning.StatusCompleted {
		logging.Fatal("Tuning job %q finished as %s", jobName, status.Status)
	}
}
