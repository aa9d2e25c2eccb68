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
	goctx "context"
	"sync"

	"github.com/jaycherian/gcp-go-media-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/services"
)

// MediaUploadWorkflow imports one local video into the catalog. The chain
// holds no per-upload state, so one workflow serves concurrent imports.
type MediaUploadWorkflow struct {
	cor.BaseCommand
	config  *cloud.Config
	store   *services.Store
	assets  *services.AssetStore
	deps    Collaborators
	chain   cor.Chain
	cleanup cor.Command
}

// IsExecutable requires an upload request in the context.
func (m *MediaUploadWorkflow) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(commands.ParamUploadRequest) != nil
}

// Execute runs the chain and releases the stored copy when it failed.
func (m *MediaUploadWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
	if context.HasErrors() && m.cleanup.IsExecutable(context) {
		m.cleanup.Execute(context)
	}
}

func (m *MediaUploadWorkflow) initializeChain() {
	capture := m.config.Capture
	capturer := commands.NewFrameCapturer(capture.Timeout())
	out := cor.NewBaseChain(m.GetName())

	out.AddCommand(commands.NewSniffUpload("sniff-upload"))
	out.AddCommand(commands.NewMediaUpload("store-asset", m.assets))

	// Duration for the label; the thumbnail step reuses the result.
	out.AddCommand(commands.NewProbeMedia("probe-media", capturer, m.deps.Sources))

	out.AddCommand(commands.NewCaptureThumbnail(
		"capture-upload-thumbnail",
		capturer,
		m.deps.Sources,
		commands.NativeAspect(capture.ThumbnailWidth, capture.UploadQuality),
		commands.FractionOffset(capture.UploadOffsetFraction, capture.UploadOffsetMaxSeconds)))

	out.AddCommand(commands.NewAssembleUploadEntry("assemble-upload-entry"))
	out.AddCommand(commands.NewCommitEntry("commit-entry", m.store))

	m.chain = out
	m.cleanup = commands.NewMediaCleanup("release-upload-asset", m.assets)
}

// Import runs one upload in its own context and returns the committed entry.
func (m *MediaUploadWorkflow) Import(ctx goctx.Context, request *model.UploadRequest) (*model.CatalogEntry, error) {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	chCtx.Add(commands.ParamUploadRequest, request)
	defer chCtx.Close()

	m.Execute(chCtx)
	if err := chCtx.Err(); err != nil {
		return nil, err
	}
	return chCtx.Get(commands.ParamCatalogEntry).(*model.CatalogEntry), nil
}

// UploadResult is the outcome of one upload of a batch.
type UploadResult struct {
	Index int
	Entry *model.CatalogEntry
	Err   error
}

type uploadJob struct {
	index   int
	request *model.UploadRequest
}

// ImportAll imports requests on a pool of workers. Results come back in
// request order; one failed upload does not stop the others.
func (m *MediaUploadWorkflow) ImportAll(ctx goctx.Context, requests []*model.UploadRequest, workers int) []UploadResult {
	if workers <= 0 {
		workers = 1
	}
	workers = min(workers, len(requests))

	var wg sync.WaitGroup
	jobs := make(chan uploadJob, len(requests))
	results := make(chan UploadResult, len(requests))

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				entry, err := m.Import(ctx, job.request)
				results <- UploadResult{Index: job.index, Entry: entry, Err: err}
			}
		}()
	}

	for i, request := range requests {
		jobs <- uploadJob{index: i, request: request}
	}
	close(jobs)

	wg.Wait()
	close(results)

	out := make([]UploadResult, len(requests))
	for r := range results {
		out[r.Index] = r
	}
	return out
}

// NewMediaUploadWorkflow wires the import chain.
func NewMediaUploadWorkflow(config *cloud.Config, store *services.Store, assets *services.AssetStore, deps Collaborators) *MediaUploadWorkflow {
	out := &MediaUploadWorkflow{
		BaseCommand: *cor.NewBaseCommand("media-upload-workflow"),
		config:      config,
		store:       store,
		assets:      assets,
		deps:        deps,
	}
	out.initializeChain()
	return out
}
