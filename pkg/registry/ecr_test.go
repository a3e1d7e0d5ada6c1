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

package registry

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/google/go-containerregistry/pkg/authn"
)

type fakeECR struct {
	repos       map[string]string // name -> URI
	created     []string
	describeErr error
	token       string
}

func (f *fakeECR) DescribeRepositories(ctx context.Context, params *ecr.DescribeRepositoriesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeRepositoriesOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	name := params.RepositoryNames[0]
	uri, ok := f.repos[name]
	if !ok {
		return nil, &ecrtypes.RepositoryNotFoundException{}
	}
	return &ecr.DescribeRepositoriesOutput{
		Repositories: []ecrtypes.Repository{{RepositoryUri: aws.String(uri)}},
	}, nil
}

func (f *fakeECR) CreateRepository(ctx context.Context, params *ecr.CreateRepositoryInput, optFns ...func(*ecr.Options)) (*ecr.CreateRepositoryOutput, error) {
	name := aws.ToString(params.RepositoryName)
	f.created = append(f.created, name)
	uri := "123456789012.dkr.ecr.us-west-2.amazonaws.com/" + name
	return &ecr.CreateRepositoryOutput{
		Repository: &ecrtypes.Repository{RepositoryUri: aws.String(uri)},
	}, nil
}

func (f *fakeECR) GetAuthorizationToken(ctx context.Context, params *ecr.GetAuthorizationTokenInput, optFns ...func(*ecr.Options)) (*ecr.GetAuthorizationTokenOutput, error) {
	return &ecr.GetAuthorizationTokenOutput{
		AuthorizationData: []ecrtypes.AuthorizationData{{AuthorizationToken: aws.String(f.token)}},
	}, nil
}

func TestEnsureRepositoryExisting(t *testing.T) {
	fake := &fakeECR{repos: map[string]string{
		"tunekit-cifar10": "123456789012.dkr.ecr.us-west-2.amazonaws.com/tunekit-cifar10",
	}}
	c := &Client{api: fake}

	uri, err := c.EnsureRepository(context.Background(), "tunekit-cifar10")
	if err != nil {
		t.Fatalf("EnsureRepository: %v", err)
	}
	if uri != "123456789012.dkr.ecr.us-west-2.amazonaws.com/tunekit-cifar10" {
		t.Errorf("unexpected URI %q", uri)
	}
	if len(fake.created) != 0 {
		t.Errorf("CreateRepository called for existing repo: %v", fake.created)
	}
}

func TestEnsureRepositoryCreatesMissing(t *testing.T) {
	fake := &fakeECR{repos: map[string]string{}}
	c := &Client{api: fake}

	uri, err := c.EnsureRepository(context.Background(), "new-repo")
	if err != nil {
		t.Fatalf("EnsureRepository: %v", err)
	}
	if uri != "123456789012.dkr.ecr.us-west-2.amazonaws.com/new-repo" {
		t.Errorf("unexpected URI %q", uri)
	}
	if len(fake.created) != 1 || fake.created[0] != "new-repo" {
		t.Errorf("expected CreateRepository for new-repo, got %v", fake.created)
	}
}

func TestEnsureRepositoryPropagatesOtherErrors(t *testing.T) {
	fake := &fakeECR{describeErr: fmt.Errorf("throttled")}
	c := &Client{api: fake}

	if _, err := c.EnsureRepository(context.Background(), "repo"); err == nil {
		t.Fatal("expected error, got nil")
	}
	if len(fake.created) != 0 {
		t.Errorf("CreateRepository should not run after an unexpected describe error")
	}
}

func TestAuthenticator(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte("AWS:sekrit"))
	fake := &fakeECR{token: token}
	c := &Client{api: fake}

	auth, err := c.Authenticator(context.Background())
	if err != nil {
		t.Fatalf("Authenticator: %v", err)
	}
	basic, ok := auth.(*authn.Basic)
	if !ok {
		t.Fatalf("expected *authn.Basic, got %T", auth)
	}
	if basic.Username != "AWS" || basic.Password != "sekrit" {
		t.Errorf("decoded credentials = %s/%s, want AWS/sekrit", basic.Username, basic.Password)
	}
}

func TestDecodeAuthTokenMalformed(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "Not base64", token: "%%%"},
		{name: "No separator", token: base64.StdEncoding.EncodeToString([]byte("nocolon"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeAuthToken(tt.token); err == nil {
				t.Errorf("decodeAuthToken(%q) succeeded, want error", tt.token)
			}
		})
	}
}
