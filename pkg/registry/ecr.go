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

// Package registry manages the ECR side of an image push: making sure the
// repository exists and turning an ECR authorization token into credentials
// that crane can use.
package registry

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/google/go-containerregistry/pkg/authn"

	"tune-toolkit/pkg/logging"
)

// ecrAPI is the slice of the ECR client used by this package.
type ecrAPI interface {
	DescribeRepositories(ctx context.Context, params *ecr.DescribeRepositoriesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeRepositoriesOutput, error)
	CreateRepository(ctx context.Context, params *ecr.CreateRepositoryInput, optFns ...func(*ecr.Options)) (*ecr.CreateRepositoryOutput, error)
	GetAuthorizationToken(ctx context.Context, params *ecr.GetAuthorizationTokenInput, optFns ...func(*ecr.Options)) (*ecr.GetAuthorizationTokenOutput, error)
}

// Client wraps the ECR API for repository management and authentication.
type Client struct {
	api ecrAPI
}

// NewClient creates a registry Client from an AWS configuration.
func NewClient(cfg aws.Config) *Client {
	return &Client{api: ecr.NewFromConfig(cfg)}
}

// EnsureRepository checks that the named repository exists and creates it
// when it does not, returning the repository URI in either case.
func (c *Client) EnsureRepository(ctx context.Context, name string) (string, error) {
	out, err := c.api.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
		RepositoryNames: []string{name},
	})
	if err == nil {
		if len(out.Repositories) == 0 {
			return "", fmt.Errorf("describe repositories returned no entry for %q", name)
		}
		logging.Debug("ECR repository %q already exists", name)
		return aws.ToString(out.Repositories[0].RepositoryUri), nil
	}

	var notFound *ecrtypes.RepositoryNotFoundException
	if !errors.As(err, &notFound) {
		return "", fmt.Errorf("failed to describe ECR repository %q: %w", name, err)
	}

	logging.Info("ECR repository %q not found. Creating it...", name)
	created, err := c.api.CreateRepository(ctx, &ecr.CreateRepositoryInput{
		RepositoryName: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create ECR repository %q: %w", name, err)
	}
	return aws.ToString(created.Repository.RepositoryUri), nil
}

// Authenticator fetches an ECR authorization token and returns crane
// credentials for pushing to this account's registry.
func (c *Client) Authenticator(ctx context.Context) (authn.Authenticator, error) {
	out, err := c.api.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to get ECR authorization token: %w", err)
	}
	if len(out.AuthorizationData) == 0 {
		return nil, fmt.Errorf("ECR returned no authorization data")
	}
	return decodeAuthToken(aws.ToString(out.AuthorizationData[0].AuthorizationToken))
}

// decodeAuthToken decodes the base64 "user:password" token ECR hands out.
func decodeAuthToken(token string) (authn.Authenticator, error) {
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ECR authorization token: %w", err)
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed ECR authorization token")
	}
	return &authn.Basic{Username: parts[0], Password: parts[1]}, nil
}
