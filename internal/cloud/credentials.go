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

package cloud

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// StaleCredentialText is what the provider answers when the selected key no
// longer maps to a usable project.
const StaleCredentialText = "Requested entity was not found."

// IsStaleCredential reports whether err carries the provider's stale
// credential symptom. This is the one place the matching rule lives.
func IsStaleCredential(err error) bool {
	return err != nil && strings.Contains(err.Error(), StaleCredentialText)
}

// CredentialHost is the credential selection collaborator.
// RequestCredentialSelection has no result: callers proceed optimistically.
type CredentialHost interface {
	HasCredential(ctx context.Context) bool
	RequestCredentialSelection(ctx context.Context)
}

// EnvCredentialHost keeps the API key in an environment variable. Selecting a
// credential re-reads an env file so an operator can drop a new key in place
// without restarting.
type EnvCredentialHost struct {
	EnvVar  string
	EnvFile string
}

// NewEnvCredentialHost builds the host from the application config.
func NewEnvCredentialHost(config *Config) *EnvCredentialHost {
	return &EnvCredentialHost{
		EnvVar:  config.Application.APIKeyEnv,
		EnvFile: config.Application.CredentialEnvFile,
	}
}

// HasCredential reports whether an API key is set.
func (h *EnvCredentialHost) HasCredential(_ context.Context) bool {
	return len(strings.TrimSpace(os.Getenv(h.EnvVar))) > 0
}

// RequestCredentialSelection reloads EnvFile so a key added after startup is
// picked up.
func (h *EnvCredentialHost) RequestCredentialSelection(_ context.Context) {
	if len(h.EnvFile) == 0 {
		slog.Warn("credential selection requested but no credential file is configured", "env", h.EnvVar)
		return
	}
	if err := godotenv.Overload(h.EnvFile); err != nil {
		slog.Warn("credential selection failed", "file", h.EnvFile, "error", err)
		return
	}
	slog.Info("credential selection reloaded", "file", h.EnvFile, "present", h.HasCredential(context.Background()))
}

// APIKey returns the current key.
func (h *EnvCredentialHost) APIKey() string {
	return strings.TrimSpace(os.Getenv(h.EnvVar))
}

// AlwaysCredentialed is used with Vertex AI, where application default
// credentials stand in for an API key.
type AlwaysCredentialed struct{}

// HasCredential always reports true.
func (AlwaysCredentialed) HasCredential(context.Context) bool         { return true }
func (AlwaysCredentialed) RequestCredentialSelection(context.Context) {}
