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

package model_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
)

var fixedNow = time.Date(2025, time.March, 4, 10, 30, 0, 0, time.UTC)

func TestNewGeneratedEntry(t *testing.T) {
	prompt := "A neon koi fish swimming through a rainy Tokyo alley"
	entry := model.NewGeneratedEntry(prompt, "asset-1", "data:image/jpeg;base64,AA==", fixedNow)

	assert.True(t, strings.HasPrefix(entry.Id, "dream-1741084200000-"))
	assert.Equal(t, "Dream: A neon koi fish swim...", entry.Title)
	assert.Equal(t, model.GeneratedDurationLabel, entry.DurationLabel)
	assert.Equal(t, model.GeneratedSizeLabel, entry.SizeLabel)
	assert.Equal(t, "Mar 4, 2025", entry.UploadedLabel)
	assert.True(t, entry.IsGenerated)
	assert.True(t, entry.IsSynced)
	assert.Equal(t, prompt, entry.Prompt)
	assert.NoError(t, entry.Validate())

	other := model.NewGeneratedEntry(prompt, "asset-2", "", fixedNow)
	assert.NotEqual(t, entry.Id, other.Id)
}

func TestNewUploadedEntry(t *testing.T) {
	entry := model.NewUploadedEntry("holiday.final.mp4", 1572864, 125.7, "asset-9", "thumb", fixedNow)

	assert.Equal(t, "holiday", entry.Title)
	assert.Equal(t, "2:05", entry.DurationLabel)
	assert.Equal(t, "1.5 MB", entry.SizeLabel)
	assert.False(t, entry.IsGenerated)
	assert.Empty(t, entry.Prompt)
	assert.NoError(t, entry.Validate())
}

func TestValidateGeneratedNeedsPrompt(t *testing.T) {
	entry := &model.CatalogEntry{Id: "x", IsGenerated: true}
	assert.Error(t, entry.Validate())
	assert.Error(t, (&model.CatalogEntry{}).Validate())
}

func TestSnapshotOmitsAssetRef(t *testing.T) {
	entry := &model.CatalogEntry{Id: "a", Title: "Cats", AssetRef: "/tmp/session/a.mp4"}
	out, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "session")
	assert.NotContains(t, string(out), "aiSummary")
	assert.Contains(t, string(out), `"uploadDate"`)
}

func TestMatches(t *testing.T) {
	entry := &model.CatalogEntry{Title: "Cats", AITags: []string{"Cute", "fluffy"}}
	assert.True(t, entry.Matches("cat"))
	assert.True(t, entry.Matches("CUTE"))
	assert.True(t, entry.Matches(""))
	assert.False(t, entry.Matches("dog"))
}

func TestPatchApply(t *testing.T) {
	entry := &model.CatalogEntry{Id: "a", Title: "Cats", AISummary: "old"}
	model.AnalyzingPatch(true).Apply(entry)
	assert.True(t, entry.IsAnalyzing)
	assert.Equal(t, "old", entry.AISummary)

	model.AnalysisPatch(model.GetExampleAnalysis()).Apply(entry)
	assert.False(t, entry.IsAnalyzing)
	assert.Equal(t, model.GetExampleAnalysis().Summary, entry.AISummary)
	assert.Equal(t, model.GetExampleAnalysis().Tags, entry.AITags)
	assert.Equal(t, "Cats", entry.Title)
}

func TestCloneDoesNotAlias(t *testing.T) {
	entry := &model.CatalogEntry{Id: "a", AITags: []string{"one"}}
	clone := entry.Clone()
	clone.AITags[0] = "two"
	assert.Equal(t, "one", entry.AITags[0])
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "0 Bytes", model.FormatFileSize(0))
	assert.Equal(t, "512 Bytes", model.FormatFileSize(512))
	assert.Equal(t, "1 KB", model.FormatFileSize(1024))
	assert.Equal(t, "1.21 MB", model.FormatFileSize(1268000))
	assert.Equal(t, "2 GB", model.FormatFileSize(2*1024*1024*1024))

	assert.Equal(t, "0:00", model.FormatDuration(0))
	assert.Equal(t, "0:09", model.FormatDuration(9.99))
	assert.Equal(t, "61:01", model.FormatDuration(3661))

	assert.Equal(t, model.UntitledVideo, model.TitleFromFileName(".mp4"))
	assert.Equal(t, "Dream: short...", model.DreamTitle("short"))
}
