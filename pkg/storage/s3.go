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

// Package storage uploads channel archives to S3 under the
// <prefix>/<channel>/<file> layout the training jobs read from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/spf13/afero"

	"tune-toolkit/pkg/logging"
)

// bucketAPI is the slice of the S3 client used for bucket management.
type bucketAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// uploaderAPI matches the s3 manager uploader.
type uploaderAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Client uploads objects and manages the training bucket.
type Client struct {
	region   string
	buckets  bucketAPI
	uploader uploaderAPI
}

// NewClient creates a storage Client from an AWS configuration.
func NewClient(cfg aws.Config) *Client {
	api := s3.NewFromConfig(cfg)
	return &Client{
		region:   cfg.Region,
		buckets:  api,
		uploader: manager.NewUploader(api),
	}
}

// ChannelKey returns the object key for a channel file.
func ChannelKey(prefix, channel, file string) string {
	return path.Join(prefix, channel, file)
}

// ChannelURI returns the s3:// URI of a channel's key prefix.
func ChannelURI(bucket, prefix, channel string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, path.Join(prefix, channel))
}

// OutputURI returns the s3:// URI training jobs write their artifacts to.
func OutputURI(bucket, prefix string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, path.Join(prefix, "output"))
}

// EnsureBucket checks that the bucket exists and creates it when it does
// not. Buckets outside us-east-1 need an explicit location constraint.
func (c *Client) EnsureBucket(ctx context.Context, bucket string) error {
	_, err := c.buckets.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		logging.Debug("Bucket %q already exists", bucket)
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) || (apiErr.ErrorCode() != "NotFound" && apiErr.ErrorCode() != "NoSuchBucket") {
		return fmt.Errorf("failed to check bucket %q: %w", bucket, err)
	}

	logging.Info("Bucket %q not found. Creating it in %s...", bucket, c.region)
	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if c.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(c.region),
		}
	}
	if _, err := c.buckets.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %q: %w", bucket, err)
	}
	return nil
}

// UploadChannels uploads each channel archive to
// s3://<bucket>/<prefix>/<channel>/<basename> and returns the per-channel
// prefix URIs referenced by training job input configuration.
func (c *Client) UploadChannels(ctx context.Context, fsys afero.Fs, bucket, prefix string, channelPaths map[string]string) (map[string]string, error) {
	channels := make([]string, 0, len(channelPaths))
	for channel := range channelPaths {
		channels = append(channels, channel)
	}
	sort.Strings(channels)

	uris := make(map[string]string, len(channelPaths))
	for _, channel := range channels {
		localPath := channelPaths[channel]
		f, err := fsys.Open(localPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive %q: %w", localPath, err)
		}

		key := ChannelKey(prefix, channel, filepath.Base(localPath))
		logging.Info("Uploading %s to s3://%s/%s", localPath, bucket, key)
		_, err = c.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   f,
		})
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to upload %q: %w", localPath, err)
		}
		uris[channel] = ChannelURI(bucket, prefix, channel)
	}
	return uris, nil
}
