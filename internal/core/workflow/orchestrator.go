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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jaycherian/gcp-go-media-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/services"
)

const (
	NoticeGenerationInterrupted = "The dream manifestation was interrupted. Please try again."
	NoticeUploadUnprocessable   = "Failed to process video. Make sure it's a standard web-compatible format."
)

// ErrEmptyPrompt rejects a generation request before anything is submitted.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Notice is a workflow failure meant to be shown to the user. Message is
// fixed text; the provider's own wording stays in Err for the logs.
type Notice struct {
	Message string
	Err     error
}

// Error returns the message shown to the user.
func (n *Notice) Error() string {
	return fmt.Sprintf("%s: %v", n.Message, n.Err)
}

// Unwrap returns the underlying failure.
func (n *Notice) Unwrap() error {
	return n.Err
}

// UserNotice is the text to display.
func (n *Notice) UserNotice() string {
	return n.Message
}

// Orchestrator is the entry point of the outer surfaces. It owns the three
// workflows and the stores they share.
type Orchestrator struct {
	config      *cloud.Config
	store       *services.Store
	assets      *services.AssetStore
	deps        Collaborators
	generation  *GenerateFromPromptWorkflow
	analysis    *AnalyzeFrameWorkflow
	uploads     *MediaUploadWorkflow
	liveCapture *commands.FrameCapturer
}

// NewOrchestrator builds every workflow. It fails when a collaborator is
// missing or the analysis prompt template is malformed.
func NewOrchestrator(config *cloud.Config, store *services.Store, assets *services.AssetStore, deps Collaborators) (*Orchestrator, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	analysis, err := NewAnalyzeFrameWorkflow(config, store, deps)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		config:      config,
		store:       store,
		assets:      assets,
		deps:        deps,
		generation:  NewGenerateFromPromptWorkflow(config, store, assets, deps),
		analysis:    analysis,
		uploads:     NewMediaUploadWorkflow(config, store, assets, deps),
		liveCapture: commands.NewFrameCapturer(config.Capture.Timeout()),
	}, nil
}

// Store returns the catalog the orchestrator writes to.
func (o *Orchestrator) Store() *services.Store {
	return o.store
}

// Assets returns the session asset store.
func (o *Orchestrator) Assets() *services.AssetStore {
	return o.assets
}

// GenerateFromPrompt creates a clip from prompt and commits it to the
// catalog. The returned entry is the new active selection. Progress messages
// go to onProgress, which may be nil.
func (o *Orchestrator) GenerateFromPrompt(ctx goctx.Context, prompt string, onProgress func(string)) (*model.CatalogEntry, error) {
	return o.Generate(ctx, &model.GenerationRequest{Prompt: prompt, OnProgress: onProgress})
}

// Generate is GenerateFromPrompt over a prepared request; it satisfies
// services.GenerateFunc.
func (o *Orchestrator) Generate(ctx goctx.Context, request *model.GenerationRequest) (*model.CatalogEntry, error) {
	if len(strings.TrimSpace(request.Prompt)) == 0 {
		return nil, ErrEmptyPrompt
	}

	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	chCtx.Add(commands.ParamGenerationRequest, request)
	defer chCtx.Close()

	o.generation.Execute(chCtx)
	if err := chCtx.Err(); err != nil {
		if cloud.IsStaleCredential(err) {
			slog.WarnContext(ctx, "provider rejected the selected credential, requesting a new one")
			o.deps.Credentials.RequestCredentialSelection(ctx)
		}
		slog.ErrorContext(ctx, "generation failed", "error", err)
		return nil, &Notice{Message: NoticeGenerationInterrupted, Err: err}
	}
	return chCtx.Get(commands.ParamCatalogEntry).(*model.CatalogEntry), nil
}

// AnalyzeActiveFrame analyzes frame, the still the user is looking at, and
// merges the result into entry id. On failure the entry keeps its previous
// analysis; the error is returned for logging, never as a notice.
func (o *Orchestrator) AnalyzeActiveFrame(ctx goctx.Context, id string, frame string) (*model.FrameAnalysis, error) {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	chCtx.Add(commands.ParamAnalysisRequest, &model.AnalysisRequest{EntryId: id, Frame: frame})
	defer chCtx.Close()

	o.analysis.Execute(chCtx)
	if err := chCtx.Err(); err != nil {
		return nil, err
	}
	return chCtx.Get(commands.ParamFrameAnalysis).(*model.FrameAnalysis), nil
}

// CaptureLiveFrame renders the entry's video at atSeconds in its native
// size, for callers that cannot grab the frame themselves.
func (o *Orchestrator) CaptureLiveFrame(ctx goctx.Context, id string, atSeconds float64) (string, error) {
	entry, ok := o.store.Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", model.ErrEntryNotFound, id)
	}
	asset, ok := o.assets.Get(entry.AssetRef)
	if len(entry.AssetRef) == 0 || !ok {
		return "", fmt.Errorf("%w: %s", model.ErrAssetUnavailable, id)
	}
	canvas := commands.NativeSize(o.config.Capture.LiveFrameQuality)
	return o.liveCapture.CaptureFrame(ctx, o.deps.Sources(asset.Path), atSeconds, canvas)
}

// ImportUpload adds one local video to the catalog.
func (o *Orchestrator) ImportUpload(ctx goctx.Context, fileName string, size int64, content io.Reader) (*model.CatalogEntry, error) {
	entry, err := o.uploads.Import(ctx, &model.UploadRequest{FileName: fileName, Size: size, Content: content})
	if err != nil {
		return nil, uploadNotice(ctx, fileName, err)
	}
	return entry, nil
}

// ImportAll imports a batch on the configured worker pool.
func (o *Orchestrator) ImportAll(ctx goctx.Context, requests []*model.UploadRequest) []UploadResult {
	results := o.uploads.ImportAll(ctx, requests, o.config.Application.ThreadPoolSize)
	for i := range results {
		if results[i].Err != nil {
			results[i].Err = uploadNotice(ctx, requests[i].FileName, results[i].Err)
		}
	}
	return results
}

// uploadNotice turns capture failures into the format notice. Rejected
// file types and other errors pass through unchanged.
func uploadNotice(ctx goctx.Context, fileName string, err error) error {
	slog.WarnContext(ctx, "upload failed", "file", fileName, "error", err)
	if errors.Is(err, model.ErrMediaDecode) || errors.Is(err, model.ErrMediaTimeout) {
		return &Notice{Message: NoticeUploadUnprocessable, Err: err}
	}
	return err
}

// Delete removes entry id and its session asset. Deleting an absent id is
// not an error; found reports whether anything was removed.
func (o *Orchestrator) Delete(ctx goctx.Context, id string) (found bool, err error) {
	entry, found := o.store.Remove(id)
	if !found {
		return false, nil
	}
	if len(entry.AssetRef) > 0 {
		o.assets.Release(entry.AssetRef)
	}
	if err := o.store.Save(ctx); err != nil {
		return true, err
	}
	slog.InfoContext(ctx, "catalog entry deleted", "id", id)
	return true, nil
}
