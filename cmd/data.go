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
	"sort"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"tune-toolkit/pkg/dataset"
	"tune-toolkit/pkg/logging"
	"tune-toolkit/pkg/session"
	"tune-toolkit/pkg/storage"
)

var (
	dataSource string
	rawDir     string
	outDir     string
	dataPrefix string
	skipUpload bool
)

func init() {
	rootCmd.AddCommand(dataCmd)

	dataCmd.Flags().StringVar(&dataSource, "source", dataset.DefaultSourceURL, "URL or path of the CIFAR-10 binary distribution.")
	dataCmd.Flags().StringVar(&rawDir, "raw-dir", "data/raw", "Directory the raw dataset is downloaded into.")
	dataCmd.Flags().StringVar(&outDir, "out-dir", "data/prepared", "Directory the channel archives are written into.")
	dataCmd.Flags().StringVar(&dataPrefix, "prefix", "", "S3 key prefix for the uploaded channels. Defaults to TUNEKIT_DATA_PREFIX.")
	dataCmd.Flags().BoolVar(&skipUpload, "skip-upload", false, "Prepare the archives locally without touching S3.")
}

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Downloads CIFAR-10, converts it to NPZ channels and uploads them to S3.",
	Long: `The 'data' command fetches the CIFAR-10 binary distribution, decodes its
batch files into NHWC image tensors with one-hot labels, writes one
compressed NPZ archive per channel (train, test), and uploads the archives
to s3://<bucket>/<prefix>/<channel>/. The bucket is created on first use.`,
	Run:          runDataCmd,
	SilenceUsage: true,
}

func runDataCmd(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	fsys := afero.NewOsFs()

	if dataPrefix == "" {
		dataPrefix = cfg.DataPrefix
	}

	if err := dataset.Fetch(ctx, dataSource, rawDir); err != nil {
		logging.Fatal("Failed to fetch dataset from %s: %v", dataSource, err)
	}

	channelPaths, err := dataset.Prepare(fsys, rawDir, outDir)
	if err != nil {
		logging.Fatal("Failed to prepare dataset: %v", err)
	}

	if skipUpload {
		logging.Info("Skipping upload; archives are in %s", outDir)
		return
	}

	sess, err := session.New(ctx, cfg.Region, cfg.Profile)
	if err != nil {
		logging.Fatal("Failed to initialize AWS session: %v", err)
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = sess.DefaultBucket()
	}

	s3Client := storage.NewClient(sess.Config)
	if err := s3Client.EnsureBucket(ctx, bucket); err != nil {
		logging.Fatal("Failed to ensure bucket: %v", err)
	}

	uris, err := s3Client.UploadChannels(ctx, fsys, bucket, dataPrefix, channelPaths)
	if err != nil {
		logging.Fatal("Failed to upload channels: %v", err)
	}

	channels := make([]string, 0, len(uris))
	for channel := range uris {
		channels = append(channels, channel)
	}
	sort.Strings(channels)
	for _, channel := range channels {
		fmt.Printf("%s: %s\n", channel, uris[channel])
	}
}
