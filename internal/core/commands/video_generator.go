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

// This file drives a long running video generation to completion.
//
// The generation moves SUBMITTED -> POLLING -> DONE | FAILED:
//
//  1. The prompt is submitted with the fixed generation settings.
//  2. While the operation is not done, wait one poll interval, fetch the
//     status again and report one progress phrase. The wait is the only place
//     the loop blocks, so cancellation is observed at every poll boundary.
//  3. A done operation without a video, or one carrying a provider error, is
//     a failure and is never retried.
//  4. The video is taken inline when the provider returned bytes, otherwise
//     downloaded from its location, and registered in the session asset store.
//
// Polling stops early, with ErrGenerationFailed, once MaxPolls polls or the
// Timeout wall clock are used up. The remote job is left running: the
// provider offers no abort.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-media-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/services"
)

const (
	MessageInitializing = "Initializing neural engine..."
	MessageSynthesizing = "Synthesizing cinematic frames..."
)

// PollMessages are shown one per poll. They carry no state.
var PollMessages = []string{
	"Rendering lighting and shadows...",
	"Applying cinematic filters...",
	"Finalizing pixel consistency...",
	"NovaStream is manifesting your dream...",
}

var errGenerationDeadline = errors.New("generation did not finish within the configured timeout")

// VideoProvider is the remote side of a long running generation.
type VideoProvider interface {
	Submit(ctx context.Context, prompt string, settings model.GenerationSettings) (*model.GenerationOperation, error)
	Poll(ctx context.Context, op *model.GenerationOperation) (*model.GenerationOperation, error)
}

// AssetSource downloads a finished asset by location.
type AssetSource interface {
	Fetch(ctx context.Context, location string) (io.ReadCloser, error)
}

// VideoGenerator runs the generation state machine.
type VideoGenerator struct {
	Provider     VideoProvider
	Fetcher      AssetSource
	Assets       *services.AssetStore
	Settings     model.GenerationSettings
	PollInterval time.Duration
	MaxPolls     int           // 0 disables the cap
	Timeout      time.Duration // 0 disables the wall clock bound

	pollCounter metric.Int64Counter
}

// NewVideoGenerator reads the polling bounds and settings from config.
func NewVideoGenerator(provider VideoProvider, fetcher AssetSource, assets *services.AssetStore, config cloud.Generation, meter metric.Meter) *VideoGenerator {
	out := &VideoGenerator{
		Provider: provider,
		Fetcher:  fetcher,
		Assets:   assets,
		Settings: model.GenerationSettings{
			Model:          config.Model,
			NumberOfVideos: config.NumberOfVideos,
			Resolution:     config.Resolution,
			AspectRatio:    config.AspectRatio,
		},
		PollInterval: config.PollInterval(),
		MaxPolls:     config.MaxPolls,
		Timeout:      config.Timeout(),
	}
	if meter != nil {
		out.pollCounter, _ = meter.Int64Counter("generation.poll.count")
	}
	return out
}

// Generate submits prompt, polls until the operation settles and returns
// the registered asset. onProgress may be nil.
func (g *VideoGenerator) Generate(ctx context.Context, prompt string, onProgress func(string)) (*model.SessionAsset, error) {
	progress := func(message string) {
		if onProgress != nil {
			onProgress(message)
		}
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, g.Timeout, errGenerationDeadline)
		defer cancel()
	}

	progress(MessageInitializing)
	op, err := g.Provider.Submit(ctx, prompt, g.Settings)
	if err != nil {
		if stopped := interrupted(ctx); stopped != nil {
			return nil, stopped
		}
		return nil, fmt.Errorf("%w: submit: %w", model.ErrGenerationFailed, err)
	}
	slog.InfoContext(ctx, "generation submitted", "operation", op.Name, "stage", model.StageSubmitted)
	progress(MessageSynthesizing)

	polls := 0
	for !op.Done {
		if g.MaxPolls > 0 && polls >= g.MaxPolls {
			return nil, fmt.Errorf("%w: operation %s still running after %d polls", model.ErrGenerationFailed, op.Name, polls)
		}
		select {
		case <-ctx.Done():
			return nil, interrupted(ctx)
		case <-time.After(g.PollInterval):
		}

		polls++
		if g.pollCounter != nil {
			g.pollCounter.Add(ctx, 1)
		}
		next, err := g.Provider.Poll(ctx, op)
		if err != nil {
			if stopped := interrupted(ctx); stopped != nil {
				return nil, stopped
			}
			return nil, fmt.Errorf("%w: poll %d: %w", model.ErrGenerationFailed, polls, err)
		}
		op = next
		slog.DebugContext(ctx, "generation polled", "operation", op.Name, "stage", model.StagePolling, "poll", polls, "done", op.Done)
		progress(PollMessages[rand.IntN(len(PollMessages))])
	}

	if len(op.Failure) > 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrGenerationFailed, op.Failure)
	}
	if !op.HasAsset() {
		return nil, fmt.Errorf("%w: operation %s finished without a video", model.ErrGenerationFailed, op.Name)
	}

	asset, err := DownloadAsset(ctx, g.Fetcher, g.Assets, op)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "generation done", "operation", op.Name, "stage", model.StageDone, "polls", polls, "asset", asset.AssetRef, "size", asset.Size)
	return asset, nil
}

// interrupted tells an own deadline (a generation failure) apart from the
// caller cancelling. It returns nil while ctx is live.
func interrupted(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	if cause := context.Cause(ctx); errors.Is(cause, errGenerationDeadline) {
		return fmt.Errorf("%w: %w", model.ErrGenerationFailed, cause)
	}
	return ctx.Err()
}

// GenerateVideo is the generate-video step: prompt in, session asset out.
type GenerateVideo struct {
	cor.BaseCommand
	generator *VideoGenerator
}

// NewGenerateVideo creates the generation step. It reads
// ParamGenerationRequest and writes the resulting asset to ParamSessionAsset.
//
// Inputs:
//   - name: The command name used in logs and spans.
//   - generator: The generator that starts and polls the Veo operation.
//
// Outputs:
//   - *GenerateVideo: The configured command.
func NewGenerateVideo(name string, generator *VideoGenerator) *GenerateVideo {
	out := &GenerateVideo{BaseCommand: *cor.NewBaseCommand(name), generator: generator}
	out.InputParamName = ParamGenerationRequest
	out.OutputParamName = ParamSessionAsset
	return out
}

// Execute blocks until the video is ready, the request fails, or the context ends.
func (c *GenerateVideo) Execute(context cor.Context) {
	request := context.Get(c.GetInputParam()).(*model.GenerationRequest)
	asset, err := c.generator.Generate(context.GetContext(), request.Prompt, request.Progress)
	if err != nil {
		c.Fail(context, err)
		return
	}
	c.Succeed(context)
	context.Add(c.GetOutputParam(), asset)
	context.Add(cor.CtxOut, asset)
}
