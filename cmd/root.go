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

// Package cmd defines the tunekit command line interface.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"tune-toolkit/pkg/config"
	"tune-toolkit/pkg/logging"
)

var (
	flagRegion  string
	flagProfile string
	flagBucket  string
	flagRole    string
	flagVerbose bool

	// cfg holds ambient defaults loaded from TUNEKIT_* environment
	// variables and the optional tunekit.yaml in the working directory.
	// Command-line flags take precedence over it.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tunekit",
	Short: "Build, validate and tune CIFAR-10 training containers on SageMaker.",
	Long: `tunekit packages a Keras training script into a container image, validates
it against a local Docker daemon, stages the CIFAR-10 dataset in S3, and
drives SageMaker hyperparameter tuning jobs from a declarative YAML spec.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetVerbose(flagVerbose)

		var err error
		cfg, err = config.Load(".")
		if err != nil {
			logging.Fatal("Failed to load configuration: %v", err)
		}
		if flagRegion != "" {
			cfg.Region = flagRegion
		}
		if flagProfile != "" {
			cfg.Profile = flagProfile
		}
		if flagBucket != "" {
			cfg.Bucket = flagBucket
		}
		if flagRole != "" {
			cfg.RoleArn = flagRole
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRegion, "region", "", "AWS region to operate in. Defaults to TUNEKIT_REGION or the shared AWS configuration.")
	rootCmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "Named AWS credentials profile to use.")
	rootCmd.PersistentFlags().StringVar(&flagBucket, "bucket", "", "S3 bucket for datasets and job output. Defaults to sagemaker-<region>-<account>.")
	rootCmd.PersistentFlags().StringVar(&flagRole, "role", "", "IAM role (name or full ARN) that training jobs assume.")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging.")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
