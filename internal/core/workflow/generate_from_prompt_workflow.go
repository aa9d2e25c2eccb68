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

// Package workflow assembles the commands into the studio's pipelines and
// exposes them through the Orchestrator. This file implements the
// generate-from-prompt workflow.
package workflow

import (
	"go.opentelemetry.io/otel"

	"github.com/jaycherian/gcp-go-media-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/services"
)

// GenerateFromPromptWorkflow turns a prompt into a committed catalog entry.
// On any failure nothing is committed and the downloaded asset, if the
// chain got that far, is released again.
type GenerateFromPromptWorkflow struct {
	cor.BaseCommand
	config    *cloud.Config
	store     *services.Store
	assets    *services.AssetStore
	deps      Collaborators
	generator *commands.VideoGenerator
	chain     cor.Chain
	cleanup   cor.Command
}

// IsExecutable requires a generation request in the context.
func (m *GenerateFromPromptWorkflow) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(commands.ParamGenerationRequest) != nil
}

// Execute runs the chain and releases the session asset when it failed.
func (m *GenerateFromPromptWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
	if context.HasErrors() && m.cleanup.IsExecutable(context) {
		m.cleanup.Execute(context)
	}
}

func (m *GenerateFromPromptWorkflow) initializeChain() {
	capture := m.config.Capture
	out := cor.NewBaseChain(m.GetName())

	// A missing credential triggers selection; the chain then proceeds.
	out.AddCommand(commands.NewEnsureCredential("ensure-credential", m.deps.Credentials))

	// Submit, poll until done, download into the session.
	out.AddCommand(commands.NewGenerateVideo("generate-video", m.generator))

	// Poster frame on a fixed 640x360 canvas, one second in.
	out.AddCommand(commands.NewCaptureThumbnail(
		"capture-generated-thumbnail",
		commands.NewFrameCapturer(capture.Timeout()),
		m.deps.Sources,
		commands.FixedCanvas(capture.GeneratedThumbnailWidth, capture.GeneratedThumbnailHeight, capture.GeneratedQuality),
		commands.FixedOffset(m.config.Generation.ThumbnailOffsetSeconds)))

	out.AddCommand(commands.NewAssembleGeneratedEntry("assemble-generated-entry"))
	out.AddCommand(commands.NewCommitEntry("commit-entry", m.store))

	m.chain = out
	m.cleanup = commands.NewMediaCleanup("release-generated-asset", m.assets)
}

// NewGenerateFromPromptWorkflow wires the generation chain.
func NewGenerateFromPromptWorkflow(config *cloud.Config, store *services.Store, assets *services.AssetStore, deps Collaborators) *GenerateFromPromptWorkflow {
	generator := commands.NewVideoGenerator(deps.Videos, deps.Fetcher, assets, config.Generation, otel.Meter(cor.MeterName))
	generator.Settings.OutputGCSURI = config.Storage.OutputGCSURI

	out := &GenerateFromPromptWorkflow{
		BaseCommand: *cor.NewBaseCommand("generate-from-prompt-workflow"),
		config:      config,
		store:       store,
		assets:      assets,
		deps:        deps,
		generator:   generator,
	}
	out.initializeChain()
	return out
}
