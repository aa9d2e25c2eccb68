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

package workflow_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"

	"github.com/jaycherian/gcp-go-media-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/services"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-media-studio/internal/testutil"
)

const prompt = "A neon city at dusk seen from a slow drone"

type progressLog struct {
	messages []string
}

func (p *progressLog) record(message string) {
	p.messages = append(p.messages, message)
}

func requireNotice(t *testing.T, err error, message string) {
	t.Helper()
	var notice *workflow.Notice
	require.ErrorAs(t, err, &notice)
	assert.Equal(t, message, notice.UserNotice())
}

func TestGenerateFromPromptCommitsEntry(t *testing.T) {
	traceCtx, span := tracer.Start(ctx, "generate-from-prompt-test")
	defer span.End()

	s := newStudio(t)
	progress := &progressLog{}

	entry, err := s.orchestrator.GenerateFromPrompt(traceCtx, prompt, progress.record)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	require.NoError(t, err)

	// Two fixed messages plus one per poll.
	assert.GreaterOrEqual(t, len(progress.messages), 3)
	assert.Equal(t, commands.MessageInitializing, progress.messages[0])
	assert.Equal(t, commands.MessageSynthesizing, progress.messages[1])
	for _, message := range progress.messages[2:] {
		assert.Contains(t, commands.PollMessages, message)
	}
	assert.Equal(t, 2, s.videos.Polls())
	assert.Equal(t, []string{"https://example.com/files/dream-1.mp4"}, s.fetcher.Locations())

	assert.True(t, entry.IsGenerated)
	assert.Equal(t, prompt, entry.Prompt)
	assert.Equal(t, "Dream: A neon city at dusk ...", entry.Title)
	assert.Equal(t, model.GeneratedDurationLabel, entry.DurationLabel)
	assert.Equal(t, model.GeneratedSizeLabel, entry.SizeLabel)
	assert.True(t, strings.HasPrefix(entry.Id, "dream-"))
	assert.True(t, strings.HasPrefix(entry.Thumbnail, "data:image/jpeg;base64,"))

	asset, ok := s.assets.Get(entry.AssetRef)
	require.True(t, ok)
	assert.Equal(t, "video/mp4", asset.MIMEType)

	stored, ok := s.store.Get(entry.Id)
	require.True(t, ok)
	assert.Equal(t, entry.Id, stored.Id)

	persisted := s.persisted(t)
	require.Len(t, persisted, 1)
	assert.Equal(t, entry.Id, persisted[0].Id)
	assert.Empty(t, persisted[0].AssetRef)

	submitted := s.videos.Settings()
	require.Len(t, submitted, 1)
	assert.Equal(t, config.Generation.Model, submitted[0].Model)
	assert.Equal(t, 1, submitted[0].NumberOfVideos)
	assert.Equal(t, "720p", submitted[0].Resolution)
	assert.Equal(t, "16:9", submitted[0].AspectRatio)

	// The generated poster is drawn on the fixed canvas, one second in.
	render := lastCall(s.runner, "ffmpeg")
	require.NotNil(t, render)
	assert.Contains(t, render, "scale=640:360")
	assert.Equal(t, "1.000", argAfter(render, "-ss"))

	span.SetStatus(codes.Ok, "passed - generate from prompt test")
}

func TestGenerationDoneWithoutAssetFails(t *testing.T) {
	s := newStudio(t)
	s.videos.Operations = []*model.GenerationOperation{
		test.PendingOperation("operations/dream-2"),
		test.DoneOperation("operations/dream-2", ""),
	}
	progress := &progressLog{}

	entry, err := s.orchestrator.GenerateFromPrompt(ctx, prompt, progress.record)
	require.Error(t, err)
	assert.Nil(t, entry)
	assert.ErrorIs(t, err, model.ErrGenerationFailed)
	requireNotice(t, err, workflow.NoticeGenerationInterrupted)

	// Every poll still reported progress.
	assert.Equal(t, 1, s.videos.Polls())
	assert.Len(t, progress.messages, 2+s.videos.Polls())
	assert.Empty(t, s.fetcher.Locations())
	assert.Equal(t, 0, s.store.Len())
	assert.Equal(t, 0, s.assets.Len())
}

func TestGenerationProviderFailureIsNotRetried(t *testing.T) {
	s := newStudio(t)
	failed := test.DoneOperation("operations/dream-3", "")
	failed.Failure = "content filtered"
	s.videos.Operations = []*model.GenerationOperation{test.PendingOperation("operations/dream-3"), failed}

	_, err := s.orchestrator.GenerateFromPrompt(ctx, prompt, nil)
	assert.ErrorIs(t, err, model.ErrGenerationFailed)
	assert.Equal(t, 1, s.videos.Polls())
	assert.Equal(t, 0, s.store.Len())
}

func TestGenerationStopsAfterMaxPolls(t *testing.T) {
	s := newStudio(t, func(c *cloud.Config) { c.Generation.MaxPolls = 3 })
	s.videos.Operations = []*model.GenerationOperation{test.PendingOperation("operations/dream-4")}

	_, err := s.orchestrator.GenerateFromPrompt(ctx, prompt, nil)
	assert.ErrorIs(t, err, model.ErrGenerationFailed)
	assert.Equal(t, 3, s.videos.Polls())
	assert.Equal(t, 0, s.store.Len())
}

func TestGenerationStopsAtTimeout(t *testing.T) {
	s := newStudio(t, func(c *cloud.Config) {
		c.Generation.MaxPolls = 0
		c.Generation.TimeoutSeconds = 1
	})
	s.videos.Operations = []*model.GenerationOperation{test.PendingOperation("operations/dream-5")}

	started := time.Now()
	_, err := s.orchestrator.GenerateFromPrompt(ctx, prompt, nil)
	assert.ErrorIs(t, err, model.ErrGenerationFailed)
	assert.False(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(started), 5*time.Second)
}

func TestGenerationCancelledAtPollBoundary(t *testing.T) {
	s := newStudio(t)
	s.videos.Operations = []*model.GenerationOperation{test.PendingOperation("operations/dream-6")}

	cancelCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	polls := 0
	onProgress := func(message string) {
		if slices.Contains(commands.PollMessages, message) {
			polls++
			if polls == 2 {
				cancel()
			}
		}
	}

	_, err := s.orchestrator.GenerateFromPrompt(cancelCtx, prompt, onProgress)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, s.videos.Polls())
	assert.Equal(t, 0, s.store.Len())
	assert.Equal(t, 0, s.assets.Len())
}

func TestStaleCredentialRequestsSelection(t *testing.T) {
	s := newStudio(t)
	s.videos.SubmitErr = errors.New("Error 404, Message: Requested entity was not found., Status: NOT_FOUND")

	_, err := s.orchestrator.GenerateFromPrompt(ctx, prompt, nil)
	requireNotice(t, err, workflow.NoticeGenerationInterrupted)
	assert.ErrorIs(t, err, model.ErrGenerationFailed)
	assert.Equal(t, 1, s.credentials.Requests())
}

func TestOtherFailuresKeepCredential(t *testing.T) {
	s := newStudio(t)
	s.videos.SubmitErr = errors.New("Error 429, Message: quota exhausted")

	_, err := s.orchestrator.GenerateFromPrompt(ctx, prompt, nil)
	require.Error(t, err)
	assert.Equal(t, 0, s.credentials.Requests())
}

func TestMissingCredentialProceedsOptimistically(t *testing.T) {
	s := newStudio(t)
	s.credentials.Present = false

	entry, err := s.orchestrator.GenerateFromPrompt(ctx, prompt, nil)
	require.NoError(t, err)
	assert.NotNil(t, entry)
	assert.Equal(t, 1, s.credentials.Requests())
}

func TestGenerationThumbnailFailureReleasesAsset(t *testing.T) {
	s := newStudio(t)
	s.runner.FrameErr = errors.New("moov atom not found")

	_, err := s.orchestrator.GenerateFromPrompt(ctx, prompt, nil)
	assert.ErrorIs(t, err, model.ErrMediaDecode)
	requireNotice(t, err, workflow.NoticeGenerationInterrupted)
	assert.Equal(t, 0, s.store.Len())
	assert.Equal(t, 0, s.assets.Len())
	assert.Nil(t, s.snapshot.Data)
}

func TestEmptyPromptIsRejected(t *testing.T) {
	s := newStudio(t)
	_, err := s.orchestrator.GenerateFromPrompt(ctx, "   ", nil)
	assert.ErrorIs(t, err, workflow.ErrEmptyPrompt)
	assert.Empty(t, s.videos.Settings())
}

func TestGenerationTrackerRunsOrchestrator(t *testing.T) {
	s := newStudio(t)
	tracker := services.NewGenerationTracker(s.orchestrator.Generate)
	defer tracker.Close()

	job := tracker.Start(ctx, prompt)
	done, err := tracker.Wait(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, model.JobSucceeded, done.Status)
	assert.NotEmpty(t, done.EntryId)
	assert.GreaterOrEqual(t, done.Updates, 3)

	_, ok := s.store.Get(done.EntryId)
	assert.True(t, ok)
}

func TestGenerationTrackerReportsNotice(t *testing.T) {
	s := newStudio(t)
	s.videos.Operations = []*model.GenerationOperation{test.DoneOperation("operations/dream-7", "")}
	tracker := services.NewGenerationTracker(s.orchestrator.Generate)
	defer tracker.Close()

	job := tracker.Start(ctx, prompt)
	done, err := tracker.Wait(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, done.Status)
	assert.Equal(t, workflow.NoticeGenerationInterrupted, done.Notice)
}

// lastCall returns the last runner invocation whose name contains tool.
func lastCall(runner *test.FakeRunner, tool string) []string {
	calls := runner.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if strings.Contains(calls[i][0], tool) && !strings.Contains(calls[i][0], "ffprobe") {
			return calls[i]
		}
	}
	return nil
}

func argAfter(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}
