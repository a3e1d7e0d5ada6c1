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

// Package dataset turns the CIFAR-10 binary distribution into the
// compressed tensor archives the training container consumes: one NPZ per
// channel holding the image tensor and one-hot encoded labels.
package dataset

import (
	"io"

	"github.com/pkg/errors"
)

// CIFAR-10 binary format: each record is one label byte followed by a
// 32x32x3 image stored channel-major (1024 red, 1024 green, 1024 blue).
const (
	ImageSize     = 32
	ImageChannels = 3
	NumClasses    = 10

	pixelsPerImage = ImageSize * ImageSize * ImageChannels
	bytesPerRecord = 1 + pixelsPerImage
	planeSize      = ImageSize * ImageSize
)

// Batch holds decoded images and labels. Images are stored NHWC (the layout
// Keras' cifar10.load_data produces), one byte per channel value.
type Batch struct {
	Count  int
	Images []uint8
	Labels []uint8
}

// DecodeBatch reads CIFAR-10 binary records from r until EOF. A truncated
// record or an out-of-range label is an error.
func DecodeBatch(r io.Reader) (*Batch, error) {
	b := &Batch{}
	record := make([]byte, bytesPerRecord)
	for {
		_, err := io.ReadFull(r, record)
		if err == io.EOF {
			return b, nil
		}
		if err == io.ErrUnexpectedEOF {
			return nil, errors.Errorf("truncated record %d: batch file is not a whole number of %d-byte records", b.Count, bytesPerRecord)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed reading record %d", b.Count)
		}

		label := record[0]
		if label >= NumClasses {
			return nil, errors.Errorf("record %d has label %d, outside [0, %d)", b.Count, label, NumClasses)
		}
		b.Labels = append(b.Labels, label)
		b.Images = append(b.Images, toNHWC(record[1:])...)
		b.Count++
	}
}

// toNHWC converts one channel-major image (RRR..GGG..BBB) to HWC order.
func toNHWC(raw []byte) []byte {
	out := make([]byte, pixelsPerImage)
	for h := 0; h < ImageSize; h++ {
		for w := 0; w < ImageSize; w++ {
			for c := 0; c < ImageChannels; c++ {
				out[(h*ImageSize+w)*ImageChannels+c] = raw[c*planeSize+h*ImageSize+w]
			}
		}
	}
	return out
}

// Merge concatenates batches in order.
func Merge(batches ...*Batch) *Batch {
	merged := &Batch{}
	for _, b := range batches {
		merged.Count += b.Count
		merged.Images = append(merged.Images, b.Images...)
		merged.Labels = append(merged.Labels, b.Labels...)
	}
	return merged
}

// OneHot encodes labels as a flat row-major [len(labels)][numClasses]
// float32 matrix, matching keras.utils.to_categorical.
func OneHot(labels []uint8, numClasses int) ([]float32, error) {
	out := make([]float32, len(labels)*numClasses)
	for i, label := range labels {
		if int(label) >= numClasses {
			return nil, errors.Errorf("label %d at index %d is outside [0, %d)", label, i, numClasses)
		}
		out[i*numClasses+int(label)] = 1
	}
	return out, nil
}
