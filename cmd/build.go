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
	"fmt"

	"github.com/spf13/cobra"

	"tune-toolkit/pkg/imagebuilder"
	"tune-toolkit/pkg/logging"
	"tune-toolkit/pkg/registry"
	"tune-toolkit/pkg/session"
)

var (
	codeDir    string
	baseImage  string
	repository string
	platform   string
	entrypoint []string
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&codeDir, "code-dir", "c", "", "Directory holding the training script and its supporting files. Required.")
	buildCmd.Flags().StringVar(&baseImage, "base-image", "", "Framework base image to layer the code onto (e.g., tensorflow/tensorflow:1.12.0). Defaults to TUNEKIT_BASE_IMAGE.")
	buildCmd.Flags().StringVar(&repository, "repository", "", "ECR repository name for the built image. Created if missing. Defaults to TUNEKIT_REPOSITORY.")
	buildCmd.Flags().StringVarP(&platform, "platform", "p", "linux/amd64", "Target platform for the image build (e.g., 'linux/amd64', 'linux/arm64').")
	buildCmd.Flags().StringSliceVarP(&entrypoint, "entrypoint", "e", []string{"python", "cifar10-training-script.py"}, "Command the training runtime executes inside the container.")

	_ = buildCmd.MarkFlagRequired("code-dir")
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Builds the training image and pushes it to ECR.",
	Long: `The 'build' command layers the training code directory onto a framework
base image without a Docker daemon, rewrites the image config for the
SageMaker training contract (working directory, entrypoint, unbuffered
Python output), and pushes the result to the account's ECR repository.
The repository is created on first use. The image tag follows the base
image's version tag.`,
	Run:          runBuildCmd,
	SilenceUsage: true,
}

func runBuildCmd(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	if baseImage == "" {
		baseImage = cfg.BaseImage
	}
	if repository == "" {
		repository = cfg.Repository
	}

	sess, err := session.New(ctx, cfg.Region, cfg.Profile)
	if err != nil {
		logging.Fatal("Failed to initialize AWS session: %v", err)
	}

	ecrClient := registry.NewClient(sess.Config)
	repoURI, err := ecrClient.EnsureRepository(ctx, repository)
	if err != nil {
		logging.Fatal("Failed to ensure ECR repository %q: %v", repository, err)
	}
	auth, err := ecrClient.Authenticator(ctx)
	if err != nil {
		logging.Fatal("Failed to obtain ECR credentials: %v", err)
	}

	matcher, err := imagebuilder.ReadDockerignorePatterns(codeDir, imagebuilder.DefaultIgnorePatterns)
	if err != nil {
		logging.Fatal("Failed to read ignore patterns: %v", err)
	}

	imageName, err := imagebuilder.BuildTrainingImage(imagebuilder.BuildOptions{
		BaseImage:     baseImage,
		CodeDir:       codeDir,
		Platform:      platform,
		RepositoryURI: repoURI,
		Entrypoint:    entrypoint,
		Auth:          auth,
	}, matcher)
	if err != nil {
		logging.Fatal("tunekit build failed: %v", err)
	}

	fmt.Println(imageName)
}
