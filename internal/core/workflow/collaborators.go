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

package workflow

import (
	"errors"
	"fmt"

	"github.com/jaycherian/gcp-go-media-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/commands"
)

// ErrMissingCollaborator rejects an orchestrator built without one of its
// external services.
var ErrMissingCollaborator = errors.New("workflow collaborator is not configured")

// Collaborators are the external services the workflows call. Production
// code builds them from cloud.ServiceClients; tests hand in stubs.
type Collaborators struct {
	Credentials cloud.CredentialHost
	Videos      commands.VideoProvider
	Fetcher     commands.AssetSource
	Analysis    cloud.ContentGenerator
	Sources     commands.SourceFactory
}

// Validate reports the first collaborator that is missing.
func (c Collaborators) Validate() error {
	missing := ""
	switch {
	case c.Credentials == nil:
		missing = "credential host"
	case c.Videos == nil:
		missing = "video provider"
	case c.Fetcher == nil:
		missing = "asset fetcher"
	case c.Analysis == nil:
		missing = "analysis model (agent_models." + cloud.AnalysisModelName + ")"
	case c.Sources == nil:
		missing = "video source factory"
	default:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingCollaborator, missing)
}

// CollaboratorsFrom wires the cloud clients and the local ffmpeg tools.
func CollaboratorsFrom(config *cloud.Config, clients *cloud.ServiceClients) Collaborators {
	out := Collaborators{
		Credentials: clients.Credentials,
		Sources:     commands.FFmpegSources(config.Capture, commands.ExecRunner{}),
	}
	// Assign only real clients: a typed nil would pass Validate.
	if clients.VideoProvider != nil {
		out.Videos = clients.VideoProvider
	}
	if clients.Fetcher != nil {
		out.Fetcher = clients.Fetcher
	}
	if analysis, ok := clients.AgentModels[cloud.AnalysisModelName]; ok {
		out.Analysis = analysis
	}
	return out
}
