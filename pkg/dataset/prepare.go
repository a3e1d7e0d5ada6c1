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

package dataset

import (
	"context"
	"path/filepath"

	"github.com/hashicorp/go-getter"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"tune-toolkit/pkg/logging"
)

// DefaultSourceURL is the canonical CIFAR-10 binary distribution.
const DefaultSourceURL = "https://www.cs.toronto.edu/~kriz/cifar-10-binary.tar.gz"

// Channel names referenced by training job input configuration.
const (
	ChannelTrain = "train"
	ChannelTest  = "test"
)

// batchesSubdir is the directory name inside the upstream tarball.
const batchesSubdir = "cifar-10-batches-bin"

var trainBatchFiles = []string{
	"data_batch_1.bin",
	"data_batch_2.bin",
	"data_batch_3.bin",
	"data_batch_4.bin",
	"data_batch_5.bin",
}

const testBatchFile = "test_batch.bin"

// Fetch downloads and unpacks the dataset source into dst. go-getter
// handles the transport and decompression, so src can be any URL form it
// supports (https, s3, a local file path, with optional checksum query).
func Fetch(ctx context.Context, src, dst string) error {
	logging.Info("Fetching dataset from %s", src)
	client := &getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Mode: getter.ClientModeDir,
	}
	if err := client.Get(); err != nil {
		return errors.Wrapf(err, "failed to fetch dataset from %q", src)
	}
	return nil
}

// WriteChannelArchive serializes a batch as a compressed NPZ with members
// "x" (uint8 NHWC image tensor) and "y" (float32 one-hot labels).
func WriteChannelArchive(fsys afero.Fs, path string, b *Batch) error {
	oneHot, err := OneHot(b.Labels, NumClasses)
	if err != nil {
		return err
	}

	f, err := fsys.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create archive %q", path)
	}
	defer f.Close()

	arrays := map[string]Array{
		"x": {
			Descr: DtypeUint8,
			Shape: []int{b.Count, ImageSize, ImageSize, ImageChannels},
			Data:  b.Images,
		},
		"y": {
			Descr: DtypeFloat32,
			Shape: []int{b.Count, NumClasses},
			Data:  Float32Bytes(oneHot),
		},
	}
	if err := WriteNPZ(f, []string{"x", "y"}, arrays); err != nil {
		return errors.Wrapf(err, "failed to write archive %q", path)
	}
	return nil
}

// Prepare decodes the raw batch files under rawDir and writes one archive
// per channel to <outDir>/<channel>/<channel>.npz, returning channel name to
// archive path. The per-channel subdirectory mirrors the
// /opt/ml/input/data/<channel>/ layout the training container reads, so the
// prepared tree can be bind-mounted for local validation as-is.
func Prepare(fsys afero.Fs, rawDir, outDir string) (map[string]string, error) {
	batchDir := rawDir
	if ok, _ := afero.DirExists(fsys, filepath.Join(rawDir, batchesSubdir)); ok {
		batchDir = filepath.Join(rawDir, batchesSubdir)
	}

	var trainBatches []*Batch
	for _, name := range trainBatchFiles {
		b, err := decodeBatchFile(fsys, filepath.Join(batchDir, name))
		if err != nil {
			return nil, err
		}
		trainBatches = append(trainBatches, b)
	}
	train := Merge(trainBatches...)

	test, err := decodeBatchFile(fsys, filepath.Join(batchDir, testBatchFile))
	if err != nil {
		return nil, err
	}

	logging.Info("Decoded %d training and %d test records", train.Count, test.Count)

	channels := map[string]*Batch{
		ChannelTrain: train,
		ChannelTest:  test,
	}
	paths := make(map[string]string, len(channels))
	for channel, batch := range channels {
		channelDir := filepath.Join(outDir, channel)
		if err := fsys.MkdirAll(channelDir, 0755); err != nil {
			return nil, errors.Wrapf(err, "failed to create channel directory %q", channelDir)
		}
		path := filepath.Join(channelDir, channel+".npz")
		if err := WriteChannelArchive(fsys, path, batch); err != nil {
			return nil, err
		}
		logging.Info("Wrote %s channel archive: %s", channel, path)
		paths[channel] = path
	}
	return paths, nil
}

func decodeBatchFile(fsys afero.Fs, path string) (*Batch, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open batch file %q", path)
	}
	defer f.Close()

	b, err := DecodeBatch(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode batch file %q", path)
	}
	return b, nil
}
