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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/services"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-media-studio/internal/testutil"
)

// seedEntry inserts an uploaded entry without a session asset.
func seedEntry(t *testing.T, s *studio) *model.CatalogEntry {
	t.Helper()
	entry := model.NewUploadedEntry("cat.mp4", 2048, 12, "", test.JPEGDataURI(), time.Now())
	require.NoError(t, s.store.Insert(entry))
	return entry
}

func TestAnalyzeActiveFrameMergesResult(t *testing.T) {
	s := newStudio(t)
	entry := seedEntry(t, s)

	analysis, err := s.orchestrator.AnalyzeActiveFrame(ctx, entry.Id, test.JPEGDataURI())
	require.NoError(t, err)
	assert.Equal(t, "A cat on a sofa.", analysis.Summary)
	assert.Equal(t, []string{"cat", "sofa"}, analysis.Tags)
	assert.Equal(t, "Lazy Afternoon", analysis.SuggestedTitle)

	updated, ok := s.store.Get(entry.Id)
	require.True(t, ok)
	assert.Equal(t, "A cat on a sofa.", updated.AISummary)
	assert.Equal(t, []string{"cat", "sofa"}, updated.AITags)
	assert.False(t, updated.IsAnalyzing)
	// The suggested title is advisory.
	assert.Equal(t, "cat", updated.Title)

	persisted := s.persisted(t)
	require.Len(t, persisted, 1)
	assert.Equal(t, "A cat on a sofa.", persisted[0].AISummary)

	// The image travels inline, followed by the instruction.
	calls := s.analysis.Calls()
	require.Len(t, calls, 1)
	parts := calls[0][0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/jpeg", parts[0].InlineData.MIMEType)
	assert.Equal(t, test.JPEGFrame(), parts[0].InlineData.Data)
	assert.Equal(t, config.PromptTemplates.AnalysisPrompt, parts[1].Text)
}

func TestAnalyzeActiveFrameAcceptsBareBase64(t *testing.T) {
	s := newStudio(t)
	entry := seedEntry(t, s)

	bare := test.JPEGDataURI()[len("data:image/jpeg;base64,"):]
	_, err := s.orchestrator.AnalyzeActiveFrame(ctx, entry.Id, bare)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", s.analysis.Calls()[0][0].Parts[0].InlineData.MIMEType)
}

func TestAnalyzeActiveFrameFailureClearsFlag(t *testing.T) {
	s := newStudio(t)
	entry := seedEntry(t, s)
	s.analysis.Err = errors.New("rpc error: code = Unavailable")

	analysis, err := s.orchestrator.AnalyzeActiveFrame(ctx, entry.Id, test.JPEGDataURI())
	assert.Nil(t, analysis)
	assert.ErrorIs(t, err, model.ErrAnalysisFailed)

	// Analysis failures are logged, never shown as a notice.
	var notice *workflow.Notice
	assert.False(t, errors.As(err, &notice))

	updated, _ := s.store.Get(entry.Id)
	assert.Empty(t, updated.AISummary)
	assert.Nil(t, updated.AITags)
	assert.False(t, updated.IsAnalyzing)
}

func TestAnalyzeActiveFrameKeepsPreviousAnalysisOnFailure(t *testing.T) {
	s := newStudio(t)
	entry := seedEntry(t, s)
	s.store.UpdateByID(entry.Id, model.AnalysisPatch(&model.FrameAnalysis{Summary: "earlier", Tags: []string{"old"}}))
	s.analysis.Text = `{"summary":"only a summary"}`

	_, err := s.orchestrator.AnalyzeActiveFrame(ctx, entry.Id, test.JPEGDataURI())
	assert.ErrorIs(t, err, model.ErrAnalysisFailed)

	updated, _ := s.store.Get(entry.Id)
	assert.Equal(t, "earlier", updated.AISummary)
	assert.Equal(t, []string{"old"}, updated.AITags)
	assert.False(t, updated.IsAnalyzing)
}

func TestAnalyzeActiveFrameEmptyResponseFails(t *testing.T) {
	s := newStudio(t)
	entry := seedEntry(t, s)
	s.analysis.Text = ""

	_, err := s.orchestrator.AnalyzeActiveFrame(ctx, entry.Id, test.JPEGDataURI())
	assert.ErrorIs(t, err, model.ErrAnalysisFailed)
}

func TestAnalyzeActiveFrameUnknownEntry(t *testing.T) {
	s := newStudio(t)

	_, err := s.orchestrator.AnalyzeActiveFrame(ctx, "missing", test.JPEGDataURI())
	assert.ErrorIs(t, err, model.ErrEntryNotFound)
	assert.Empty(t, s.analysis.Calls())
	assert.Equal(t, 0, s.store.Len())
}

func TestAnalyzeActiveFrameRejectsConcurrentAnalysis(t *testing.T) {
	s := newStudio(t)
	entry := seedEntry(t, s)
	s.store.UpdateByID(entry.Id, model.AnalyzingPatch(true))

	_, err := s.orchestrator.AnalyzeActiveFrame(ctx, entry.Id, test.JPEGDataURI())
	assert.ErrorIs(t, err, model.ErrAnalysisInProgress)
	assert.Empty(t, s.analysis.Calls())

	// The running analysis still owns the flag.
	updated, _ := s.store.Get(entry.Id)
	assert.True(t, updated.IsAnalyzing)
}

func TestAnalyzeActiveFrameInvalidImage(t *testing.T) {
	s := newStudio(t)
	entry := seedEntry(t, s)

	_, err := s.orchestrator.AnalyzeActiveFrame(ctx, entry.Id, "data:image/jpeg;base64,@@@")
	assert.ErrorIs(t, err, model.ErrAnalysisFailed)
	assert.Empty(t, s.analysis.Calls())

	updated, _ := s.store.Get(entry.Id)
	assert.False(t, updated.IsAnalyzing)
}

func TestAnalyzeActiveFramePanicClearsFlag(t *testing.T) {
	s := newStudio(t)
	entry := seedEntry(t, s)
	s.analysis.Panic = "decoder blew up"

	require.Panics(t, func() {
		_, _ = s.orchestrator.AnalyzeActiveFrame(ctx, entry.Id, test.JPEGDataURI())
	})
	updated, _ := s.store.Get(entry.Id)
	assert.False(t, updated.IsAnalyzing)

	// The entry is not locked out of later analyses.
	s.analysis.Panic = ""
	analysis, err := s.orchestrator.AnalyzeActiveFrame(ctx, entry.Id, test.JPEGDataURI())
	require.NoError(t, err)
	assert.Equal(t, "A cat on a sofa.", analysis.Summary)
}

func TestAnalyzeActiveFrameAfterDeleteDropsResult(t *testing.T) {
	s := newStudio(t)
	entry := seedEntry(t, s)
	s.analysis.OnCall = func() {
		found, err := s.orchestrator.Delete(ctx, entry.Id)
		require.NoError(t, err)
		require.True(t, found)
	}

	_, err := s.orchestrator.AnalyzeActiveFrame(ctx, entry.Id, test.JPEGDataURI())
	require.NoError(t, err)

	_, ok := s.store.Get(entry.Id)
	assert.False(t, ok)
	assert.Equal(t, 0, s.store.Len())
	assert.Empty(t, s.persisted(t))
}

func TestNewOrchestratorRequiresCollaborators(t *testing.T) {
	full := workflow.Collaborators{
		Credentials: &test.StubCredentialHost{Present: true},
		Videos:      &test.StubVideoProvider{},
		Fetcher:     &test.StubFetcher{},
		Analysis:    &test.StubGenerator{},
		Sources:     commands.FFmpegSources(config.Capture, &test.FakeRunner{}),
	}
	cases := map[string]func(*workflow.Collaborators){
		"credentials": func(c *workflow.Collaborators) { c.Credentials = nil },
		"videos":      func(c *workflow.Collaborators) { c.Videos = nil },
		"fetcher":     func(c *workflow.Collaborators) { c.Fetcher = nil },
		"analysis":    func(c *workflow.Collaborators) { c.Analysis = nil },
		"sources":     func(c *workflow.Collaborators) { c.Sources = nil },
	}
	for name, drop := range cases {
		t.Run(name, func(t *testing.T) {
			deps := full
			drop(&deps)
			assets, err := services.NewAssetStore(t.TempDir())
			require.NoError(t, err)

			_, err = workflow.NewOrchestrator(config, services.NewStore(&services.MemorySnapshot{}), assets, deps)
			assert.ErrorIs(t, err, workflow.ErrMissingCollaborator)
		})
	}
}
