// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package test provides the shared test configuration, media fixtures and
// stand-ins for the remote providers, so workflow tests run without network
// access or ffmpeg installed.
package test

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jaycherian/gcp-go-media-studio/internal/cloud"
)

// StateManager caches the configuration so it is loaded once per test binary.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails t when err is set.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// RepositoryRoot is the directory holding go.mod, resolved from this file so
// it works from any package's test working directory.
func RepositoryRoot() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		log.Fatal("failed to resolve the test utility location")
	}
	return filepath.Join(filepath.Dir(file), "..", "..")
}

// SetupOS points the config loader at configs/.env.test.toml.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, filepath.Join(RepositoryRoot(), "configs"))
	if err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig returns the cached test configuration. Callers that change
// fields should copy it first.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load test configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}

// MP4Header is the start of an ISO base media file, enough for sniffing.
func MP4Header() []byte {
	return []byte{
		0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
		'm', 'p', '4', '2', 0x00, 0x00, 0x00, 0x00,
		'm', 'p', '4', '2', 'i', 's', 'o', 'm',
	}
}

// JPEGFrame is a JPEG SOI/APP0 header. Sniffers accept it as an image; it is
// never actually decoded.
func JPEGFrame() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0xFF, 0xD9}
}

// JPEGDataURI is JPEGFrame as a data URI.
func JPEGDataURI() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(JPEGFrame())
}

// ProbeJSON is what ffprobe prints for a single video stream.
func ProbeJSON(durationSeconds float64, width int, height int) []byte {
	return []byte(fmt.Sprintf(`{"programs":[],"streams":[{"width":%d,"height":%d}],"format":{"duration":"%.6f"}}`, width, height, durationSeconds))
}
