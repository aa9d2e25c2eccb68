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

package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-media-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/cor"
)

// EnsureCredential asks the host for a credential when none is selected and
// then carries on without re-checking. A selection that did not take
// surfaces later as a provider error.
type EnsureCredential struct {
	cor.BaseCommand
	host cloud.CredentialHost
}

// NewEnsureCredential creates the step that prompts for an API key before generation.
func NewEnsureCredential(name string, host cloud.CredentialHost) *EnsureCredential {
	out := &EnsureCredential{BaseCommand: *cor.NewBaseCommand(name), host: host}
	out.InputParamName = ParamGenerationRequest
	return out
}

// Execute asks the host for a key when none is set. It never fails; a missing
// key surfaces from the generation call.
func (c *EnsureCredential) Execute(context cor.Context) {
	ctx := context.GetContext()
	if !c.host.HasCredential(ctx) {
		slog.InfoContext(ctx, "no credential selected, requesting selection")
		c.host.RequestCredentialSelection(ctx)
	}
	c.Succeed(context)
}
