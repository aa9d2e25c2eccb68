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

// Package workflow_test runs the studio workflows end to end against stub
// providers and a fake ffmpeg. TestMain loads the test configuration and
// telemetry once; every test builds its own store and orchestrator.
package workflow_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"

	"github.com/jaycherian/gcp-go-media-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/services"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/workflow"
	"github.com/jaycherian/gcp-go-media-studio/internal/telemetry"
	test "github.com/jaycherian/gcp-go-media-studio/internal/testutil"
)

var (
	ctx    context.Context
	config *cloud.Config
)

const tName = "cloud.google.com/media/tests/workflow"

var (
	tracer = otel.Tracer(tName)
	logger = otelslog.NewLogger(tName)
)

func TestMain(m *testing.M) {
	var cancel context.CancelFunc
	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	config = test.GetConfig()
	telemetry.SetupLogging(config.Application.Runtime)

	shutdown, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		panic(err)
	}

	logger.Info("completed test setup")
	exitCode := m.Run()

	if err := shutdown(ctx); err != nil {
		logger.Error("failed to shutdown telemetry", "error", err)
	}
	os.Exit(exitCode)
}

// studio is one orchestrator wired to stubs.
type studio struct {
	orchestrator *workflow.Orchestrator
	store        *services.Store
	assets       *services.AssetStore
	snapshot     *services.MemorySnapshot
	credentials  *test.StubCredentialHost
	videos       *test.StubVideoProvider
	fetcher      *test.StubFetcher
	analysis     *test.StubGenerator
	runner       *test.FakeRunner
}

// newStudio builds a studio with a healthy provider: one pending poll, then
// a finished clip. Tests replace the stubs' fields before calling in, or
// adjust the config copy through tune.
func newStudio(t *testing.T, tune ...func(*cloud.Config)) *studio {
	t.Helper()
	cfg := *config
	for _, fn := range tune {
		fn(&cfg)
	}

	assets, err := services.NewAssetStore(t.TempDir())
	require.NoError(t, err)

	s := &studio{
		assets:      assets,
		snapshot:    &services.MemorySnapshot{},
		credentials: &test.StubCredentialHost{Present: true},
		videos: &test.StubVideoProvider{Operations: []*model.GenerationOperation{
			test.PendingOperation("operations/dream-1"),
			test.PendingOperation("operations/dream-1"),
			test.DoneOperation("operations/dream-1", "https://example.com/files/dream-1.mp4"),
		}},
		fetcher:  &test.StubFetcher{Data: test.MP4Header()},
		analysis: &test.StubGenerator{Text: `{"summary":"A cat on a sofa.","tags":["cat","sofa"],"suggestedTitle":"Lazy Afternoon"}`},
		runner:   &test.FakeRunner{Probe: test.ProbeJSON(8, 1280, 720), Frame: test.JPEGFrame()},
	}
	s.store = services.NewStore(s.snapshot)

	deps := workflow.Collaborators{
		Credentials: s.credentials,
		Videos:      s.videos,
		Fetcher:     s.fetcher,
		Analysis:    s.analysis,
		Sources:     commands.FFmpegSources(cfg.Capture, s.runner),
	}
	s.orchestrator, err = workflow.NewOrchestrator(&cfg, s.store, assets, deps)
	require.NoError(t, err)
	return s
}

// persisted decodes the last snapshot written.
func (s *studio) persisted(t *testing.T) []*model.CatalogEntry {
	t.Helper()
	restored := services.NewStore(&services.MemorySnapshot{Data: s.snapshot.Data})
	return restored.Load(context.Background())
}
