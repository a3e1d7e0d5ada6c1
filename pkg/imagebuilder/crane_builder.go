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

// Package imagebuilder assembles training container images without a Docker
// daemon: the training code directory becomes a layer appended onto a
// framework base image, the image config is rewritten for the managed
// training contract, and the result is pushed with crane.
package imagebuilder

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/compression"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
	"github.com/moby/patternmatcher"
	"github.com/moby/patternmatcher/ignorefile"
	"github.com/sirupsen/logrus"
)

// CodeMountPath is where the training code layer lands inside the image;
// the managed training runtime invokes the entrypoint from this directory.
const CodeMountPath = "/opt/ml/code"

// DockerPlatform represents the target platform for a Docker image.
type DockerPlatform string

const (
	LinuxAMD64 DockerPlatform = "linux/amd64"
	LinuxARM64 DockerPlatform = "linux/arm64"
)

// BuildOptions holds the parameters for a training image build.
type BuildOptions struct {
	// BaseImage is the framework image to layer onto, e.g.
	// "tensorflow/tensorflow:1.12.0". Its version tag becomes the tag of
	// the built image.
	BaseImage string
	// CodeDir is the directory holding the training entrypoint and its
	// supporting files.
	CodeDir string
	// Platform is the target platform string, e.g. "linux/amd64".
	Platform string
	// RepositoryURI is the destination repository without a tag, e.g.
	// "123456789012.dkr.ecr.us-west-2.amazonaws.com/tunekit-cifar10".
	RepositoryURI string
	// Entrypoint is the command the training runtime executes, e.g.
	// ["python", "train.py"].
	Entrypoint []string
	// Auth authenticates the push to RepositoryURI.
	Auth authn.Authenticator
}

// ImageTag derives the built image's tag from the base image reference:
// the base version tag when present, "latest" otherwise. This keeps the
// trainer image traceable to the framework version it was built on.
func ImageTag(baseImage string) string {
	if idx := strings.LastIndex(baseImage, ":"); idx != -1 && !strings.Contains(baseImage[idx:], "/") {
		return baseImage[idx+1:]
	}
	return "latest"
}

// BuildTrainingImage builds and pushes a training container image. It
// appends a layer created from opts.CodeDir (filtered by ignoreMatcher and
// rooted at CodeMountPath) to the base image, sets the working directory,
// entrypoint and environment expected by the training runtime, and pushes
// the result to opts.RepositoryURI.
func BuildTrainingImage(opts BuildOptions, ignoreMatcher *patternmatcher.PatternMatcher) (string, error) {
	platform, err := parsePlatform(opts.Platform)
	if err != nil {
		return "", err
	}

	imageName := fmt.Sprintf("%s:%s", opts.RepositoryURI, ImageTag(opts.BaseImage))

	logrus.Infof("Starting image build process for %s", imageName)
	logrus.Infof("Base Image: %s", opts.BaseImage)
	logrus.Infof("Code Directory: %s", opts.CodeDir)
	logrus.Infof("Target Platform: %s/%s", platform.OS, platform.Architecture)

	// 1. Create a tarball in a temporary file from the code directory,
	// applying ignore patterns and rooting entries at CodeMountPath.
	tempTarballPath, err := createFilteredTar(opts.CodeDir, ignoreMatcher, CodeMountPath)
	if err != nil {
		return "", fmt.Errorf("failed to create filtered tarball: %w", err)
	}
	defer func() {
		if tempTarballPath != "" {
			os.Remove(tempTarballPath)
			logrus.Debugf("Cleaned up temporary tarball file: %s", tempTarballPath)
		}
	}()

	// 2. Create a v1.Layer from the tarball.
	codeLayer, err := tarball.LayerFromOpener(func() (io.ReadCloser, error) {
		file, openErr := os.Open(tempTarballPath)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open temporary tarball %q: %w", tempTarballPath, openErr)
		}
		return file, nil
	}, tarball.WithCompression(compression.GZip))
	if err != nil {
		return "", fmt.Errorf("failed to create layer from tarball: %w", err)
	}

	// 3. Pull the base image.
	baseRef, err := name.ParseReference(opts.BaseImage)
	if err != nil {
		return "", fmt.Errorf("failed to parse base image reference %q: %w", opts.BaseImage, err)
	}
	baseImg, err := crane.Pull(baseRef.String(), crane.WithPlatform(&platform))
	if err != nil {
		return "", fmt.Errorf("failed to pull base image %q: %w", opts.BaseImage, err)
	}

	// 4. Append the code layer.
	newImg, err := mutate.AppendLayers(baseImg, codeLayer)
	if err != nil {
		return "", fmt.Errorf("failed to append code layer: %w", err)
	}

	// 5. Rewrite the image config for the training contract.
	newImg, err = configureForTraining(newImg, opts.Entrypoint)
	if err != nil {
		return "", err
	}

	// 6. Push the new image.
	imageRef, err := name.ParseReference(imageName)
	if err != nil {
		return "", fmt.Errorf("failed to parse new image reference %q: %w", imageName, err)
	}

	logrus.Infof("Uploading container image to %s", imageName)
	pushOpts := []crane.Option{crane.WithPlatform(&platform)}
	if opts.Auth != nil {
		pushOpts = append(pushOpts, crane.WithAuth(opts.Auth))
	}
	if err := crane.Push(newImg, imageRef.String(), pushOpts...); err != nil {
		return "", fmt.Errorf("failed to push image %q: %w", imageName, err)
	}

	logrus.Infof("Image %s built and uploaded successfully.", imageName)
	return imageName, nil
}

// configureForTraining sets the working directory, entrypoint and
// environment the managed training runtime expects. Keras writes its
// progress bar to stdout, so Python output buffering is disabled.
func configureForTraining(img v1.Image, entrypoint []string) (v1.Image, error) {
	cfgFile, err := img.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to read base image config: %w", err)
	}
	cfg := cfgFile.Config.DeepCopy()
	cfg.WorkingDir = CodeMountPath
	cfg.Entrypoint = entrypoint
	cfg.Cmd = nil
	cfg.Env = append(cfg.Env,
		"PYTHONUNBUFFERED=TRUE",
		"PYTHONDONTWRITEBYTECODE=TRUE",
	)

	newImg, err := mutate.Config(img, *cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set image config: %w", err)
	}
	return newImg, nil
}

// parsePlatform converts a platform string (e.g., "linux/amd64") into a v1.Platform struct.
func parsePlatform(platformStr string) (v1.Platform, error) {
	parts := strings.Split(platformStr, "/")
	if len(parts) != 2 {
		return v1.Platform{}, fmt.Errorf("invalid platform format: %q, expected \"os/arch\"", platformStr)
	}
	return v1.Platform{
		OS:           parts[0],
		Architecture: parts[1],
	}, nil
}

// DefaultIgnorePatterns are always excluded from the code layer.
var DefaultIgnorePatterns = []string{
	".git",
	".ipynb_checkpoints",
	"__pycache__",
	"*.pyc",
	"*.log",
	"tmp/",
	".DS_Store",
}

// ReadDockerignorePatterns combines the default ignore patterns with any
// .dockerignore file found in dir.
func ReadDockerignorePatterns(dir string, defaultPatterns []string) (*patternmatcher.PatternMatcher, error) {
	dockerignorePath := filepath.Join(dir, ".dockerignore")

	patterns := make([]string, len(defaultPatterns))
	copy(patterns, defaultPatterns)

	if _, err := os.Stat(dockerignorePath); err == nil {
		file, err := os.Open(dockerignorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open .dockerignore file %q: %w", dockerignorePath, err)
		}
		defer file.Close()

		filePatterns, err := ignorefile.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read .dockerignore file %q: %w", dockerignorePath, err)
		}
		patterns = append(patterns, filePatterns...)
		logrus.Infof("Found %d patterns in .dockerignore at %q", len(filePatterns), dockerignorePath)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat .dockerignore file %q: %w", dockerignorePath, err)
	}

	matcher, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, fmt.Errorf("failed to create pattern matcher: %w", err)
	}
	return matcher, nil
}

// processTarEntry processes a single file or directory for tarball creation.
func processTarEntry(tarWriter *tar.Writer, sourceDir, mountPath string, ignoreMatcher *patternmatcher.PatternMatcher, filePath string, info fs.FileInfo, errFromWalk error) error {
	if errFromWalk != nil {
		return errFromWalk
	}

	relPath, err := filepath.Rel(sourceDir, filePath)
	if err != nil {
		return fmt.Errorf("failed to get relative path for %q: %w", filePath, err)
	}

	if relPath == "." {
		return nil
	}

	// Directory matching requires a trailing slash, per moby/patternmatcher.
	relPathSlash := filepath.ToSlash(relPath)
	if info.IsDir() && !strings.HasSuffix(relPathSlash, "/") {
		relPathSlash += "/"
	}

	ignored, err := ignoreMatcher.MatchesOrParentMatches(relPathSlash)
	if err != nil {
		return fmt.Errorf("failed to check ignore patterns for %q: %w", filePath, err)
	}

	if ignored {
		if info.IsDir() {
			logrus.Debugf("Ignoring directory %q", relPath)
			return filepath.SkipDir
		}
		logrus.Debugf("Ignoring file %q", relPath)
		return nil
	}

	header, err := tar.FileInfoHeader(info, relPath)
	if err != nil {
		return fmt.Errorf("failed to create tar header for %q: %w", filePath, err)
	}
	header.Name = path.Join(mountPath, filepath.ToSlash(relPath))

	if err := tarWriter.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %q: %w", filePath, err)
	}

	if info.Mode().IsRegular() {
		file, err := os.Open(filePath)
		if err != nil {
			return fmt.Errorf("failed to open file %q: %w", filePath, err)
		}
		defer file.Close()

		if _, err := io.Copy(tarWriter, file); err != nil {
			return fmt.Errorf("failed to write file content for %q: %w", filePath, err)
		}
	}

	return nil
}

// createFilteredTar writes a gzip tarball of sourceDir (filtered by
// ignoreMatcher, with entries rooted at mountPath) to a temporary file and
// returns its path.
func createFilteredTar(sourceDir string, ignoreMatcher *patternmatcher.PatternMatcher, mountPath string) (string, error) {
	tmpFile, err := os.CreateTemp("", "tunekit-code-layer-*.tar.gz")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file for tarball: %w", err)
	}
	defer tmpFile.Close()

	gzipWriter := gzip.NewWriter(tmpFile)
	tarWriter := tar.NewWriter(gzipWriter)

	logrus.Infof("Creating filtered tar from %s to temporary file %s", sourceDir, tmpFile.Name())

	var walkErr error
	defer func() {
		if closeErr := tarWriter.Close(); closeErr != nil && walkErr == nil {
			walkErr = fmt.Errorf("failed to close tar writer: %w", closeErr)
		}
		if closeErr := gzipWriter.Close(); closeErr != nil && walkErr == nil {
			walkErr = fmt.Errorf("failed to close gzip writer: %w", closeErr)
		}
	}()

	walkErr = filepath.Walk(sourceDir, func(filePath string, info fs.FileInfo, err error) error {
		return processTarEntry(tarWriter, sourceDir, mountPath, ignoreMatcher, filePath, info, err)
	})

	if walkErr != nil {
		os.Remove(tmpFile.Name())
		return "", walkErr
	}

	return tmpFile.Name(), nil
}
