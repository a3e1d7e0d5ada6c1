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

// Package session resolves AWS credentials, region and account identity for
// all other packages. When the caller does not pin a region or bucket, the
// values are inferred from the shared config and the caller identity.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"tune-toolkit/pkg/logging"
)

// callerIdentityAPI is the slice of the STS client used here.
type callerIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Session carries the resolved AWS configuration and caller identity.
type Session struct {
	Config  aws.Config
	Region  string
	Account string
}

// New loads the shared AWS configuration (optionally pinned to a region and
// profile) and discovers the account ID through STS.
func New(ctx context.Context, region, profile string) (*Session, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("no AWS region configured; set --region or the AWS_REGION environment variable")
	}

	account, err := resolveAccount(ctx, sts.NewFromConfig(cfg))
	if err != nil {
		return nil, err
	}
	logging.Info("Using AWS account %s in region %s", account, cfg.Region)

	return &Session{Config: cfg, Region: cfg.Region, Account: account}, nil
}

func resolveAccount(ctx context.Context, api callerIdentityAPI) (string, error) {
	out, err := api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to resolve caller identity: %w", err)
	}
	if out.Account == nil || *out.Account == "" {
		return "", fmt.Errorf("caller identity response contained no account ID")
	}
	return *out.Account, nil
}

// DefaultBucket returns the conventional per-account training bucket name.
func (s *Session) DefaultBucket() string {
	return DefaultBucket(s.Region, s.Account)
}

// DefaultBucket returns the conventional bucket name for a region/account.
func DefaultBucket(region, account string) string {
	return fmt.Sprintf("sagemaker-%s-%s", region, account)
}

// RegistryHost returns the ECR registry hostname for this account.
func (s *Session) RegistryHost() string {
	return RegistryHost(s.Account, s.Region)
}

// RegistryHost returns the ECR registry hostname for an account and region.
func RegistryHost(account, region string) string {
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com", account, region)
}

// RoleARN expands a bare role name into a full IAM role ARN for this
// account. Values that are already ARNs pass through unchanged.
func (s *Session) RoleARN(role string) string {
	return RoleARN(s.Account, role)
}

// RoleARN expands a bare role name into a full IAM role ARN. An empty role
// stays empty so that downstream validation can report it as missing
// instead of the service rejecting a malformed ARN.
func RoleARN(account, role string) string {
	if role == "" || strings.HasPrefix(role, "arn:") {
		return role
	}
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", account, role)
}
