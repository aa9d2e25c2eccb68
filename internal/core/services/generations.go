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

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
)

// GenerateFunc runs one generation to completion and returns the new entry.
type GenerateFunc func(ctx context.Context, request *model.GenerationRequest) (*model.CatalogEntry, error)

// noticer is implemented by errors that carry a message meant for the user.
type noticer interface {
	UserNotice() string
}

type trackedJob struct {
	job    model.GenerationJob
	cancel context.CancelFunc
	done   chan struct{}
}

// GenerationTracker runs generations in the background so a request can
// return immediately and be polled (or cancelled) by job id.
type GenerationTracker struct {
	generate GenerateFunc

	mu   sync.Mutex
	jobs map[string]*trackedJob
}

// NewGenerationTracker returns a tracker that runs generate for each started job.
func NewGenerationTracker(generate GenerateFunc) *GenerationTracker {
	return &GenerationTracker{generate: generate, jobs: make(map[string]*trackedJob)}
}

// Start launches a generation for prompt. The job outlives ctx's deadline
// and cancellation but keeps its values (trace context, logger attributes).
func (g *GenerationTracker) Start(ctx context.Context, prompt string) *model.GenerationJob {
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	tracked := &trackedJob{
		job: model.GenerationJob{
			Id:        uuid.NewString(),
			Prompt:    prompt,
			Status:    model.JobRunning,
			StartedAt: time.Now(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	g.mu.Lock()
	g.jobs[tracked.job.Id] = tracked
	snapshot := tracked.job
	g.mu.Unlock()

	go g.run(jobCtx, tracked)
	return &snapshot
}

func (g *GenerationTracker) run(ctx context.Context, tracked *trackedJob) {
	defer close(tracked.done)
	defer tracked.cancel()

	request := &model.GenerationRequest{
		Prompt: tracked.job.Prompt,
		OnProgress: func(message string) {
			g.mu.Lock()
			tracked.job.Progress = message
			tracked.job.Updates++
			g.mu.Unlock()
		},
	}
	entry, err := g.generate(ctx, request)

	g.mu.Lock()
	defer g.mu.Unlock()
	finished := time.Now()
	tracked.job.FinishedAt = &finished
	switch {
	case err == nil:
		tracked.job.Status = model.JobSucceeded
		if entry != nil {
			tracked.job.EntryId = entry.Id
		}
	case errors.Is(err, context.Canceled):
		tracked.job.Status = model.JobCancelled
	default:
		tracked.job.Status = model.JobFailed
		var n noticer
		if errors.As(err, &n) {
			tracked.job.Notice = n.UserNotice()
		} else {
			tracked.job.Notice = err.Error()
		}
	}
	slog.InfoContext(ctx, "generation job finished", "job", tracked.job.Id, "status", tracked.job.Status, "error", err)
}

// Get returns a copy of the job's current state.
func (g *GenerationTracker) Get(id string) (*model.GenerationJob, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tracked, ok := g.jobs[id]
	if !ok {
		return nil, false
	}
	snapshot := tracked.job
	return &snapshot, true
}

// List returns every known job, newest first.
func (g *GenerationTracker) List() []*model.GenerationJob {
	g.mu.Lock()
	out := make([]*model.GenerationJob, 0, len(g.jobs))
	for _, tracked := range g.jobs {
		snapshot := tracked.job
		out = append(out, &snapshot)
	}
	g.mu.Unlock()
	slices.SortFunc(out, func(a, b *model.GenerationJob) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return out
}

// Cancel stops a running job. It reports false for unknown ids.
func (g *GenerationTracker) Cancel(id string) bool {
	g.mu.Lock()
	tracked, ok := g.jobs[id]
	g.mu.Unlock()
	if !ok {
		return false
	}
	tracked.cancel()
	return true
}

// Wait blocks until the job finishes or ctx is done.
func (g *GenerationTracker) Wait(ctx context.Context, id string) (*model.GenerationJob, error) {
	g.mu.Lock()
	tracked, ok := g.jobs[id]
	g.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown generation job %s", id)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-tracked.done:
	}
	job, _ := g.Get(id)
	return job, nil
}

// Close cancels all running jobs and waits for them to unwind.
func (g *GenerationTracker) Close() {
	g.mu.Lock()
	jobs := make([]*trackedJob, 0, len(g.jobs))
	for _, tracked := range g.jobs {
		jobs = append(jobs, tracked)
	}
	g.mu.Unlock()
	for _, tracked := range jobs {
		tracked.cancel()
		<-tracked.done
	}
}
