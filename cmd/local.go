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
	"github.com/spf13/cobra"

	"tune-toolkit/pkg/localrun"
	"tune-toolkit/pkg/logging"
)

var (
	localImage      string
	localDataDir    string
	localWorkDir    string
	hyperparameters map[string]string
)

func init() {
	rootCmd.AddCommand(localCmd)

	localCmd.Flags().StringVarP(&localImage, "image", "i", "", "Training image to run (full reference). Required.")
	localCmd.Flags().StringVar(&localDataDir, "data-dir", "data/prepared", "Directory holding one subdirectory per channel (train/, test/).")
	localCmd.Flags().StringVar(&localWorkDir, "work-dir", "local-run", "Scratch directory for the compose file, config, model and output.")
	localCmd.Flags().StringToStringVarP(&hyperparameters, "hyperparameter", "H", map[string]string{"epochs": "1", "batch-size": "64"}, "Hyperparameter passed to the training script (repeatable, key=value).")

	_ = localCmd.MarkFlagRequired("image")
}

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Runs one training pass against the local Docker daemon.",
	Long: `The 'local' command validates the training image before any cloud
submission: it recreates the /opt/ml filesystem layout out of host
directories, writes the hyperparameters the same way the managed service
does, and runs the container to completion through docker compose. A
non-zero container exit fails the command.`,
	Run:          runLocalCmd,
	SilenceUsage: true,
}

func runLocalCmd(cmd *cobra.Command, args []string) {
	err := localrun.Run(localrun.RunOptions{
		Image:           localImage,
		DataDir:         localDataDir,
		WorkDir:         localWorkDir,
		Hyperparameters: hyperparameters,
	})
	if err != nil {
		logging.Fatal("tunekit local failed: %v", err)
	}
}
