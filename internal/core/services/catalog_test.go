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

package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/services"
)

func entry(id, title string, tags ...string) *model.CatalogEntry {
	return &model.CatalogEntry{Id: id, Title: title, AITags: tags, IsSynced: true}
}

func TestFindMatchesTitleAndTags(t *testing.T) {
	store := services.NewStore(&services.MemorySnapshot{})
	require.NoError(t, store.Insert(entry("b", "Dogs", "loyal")))
	require.NoError(t, store.Insert(entry("a", "Cats", "cute")))

	ids := func(entries []*model.CatalogEntry) []string {
		out := make([]string, 0, len(entries))
		for _, e := range entries {
			out = append(out, e.Id)
		}
		return out
	}
	assert.Equal(t, []string{"a"}, ids(store.Find("cat")))
	assert.Equal(t, []string{"b"}, ids(store.Find("D")))
	assert.Equal(t, []string{"a", "b"}, ids(store.Find("")))
	assert.Equal(t, []string{"a"}, ids(store.Find("CUTE")))
	assert.Empty(t, store.Find("horse"))
}

func TestInsertPrependsAndRejectsDuplicates(t *testing.T) {
	store := services.NewStore(&services.MemorySnapshot{})
	require.NoError(t, store.Insert(entry("first", "One")))
	require.NoError(t, store.Insert(entry("second", "Two")))

	err := store.Insert(entry("first", "Again"))
	assert.True(t, errors.Is(err, model.ErrDuplicateEntry))
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, "second", store.List()[0].Id)
}

func TestInsertRejectsGeneratedWithoutPrompt(t *testing.T) {
	store := services.NewStore(&services.MemorySnapshot{})
	bad := entry("dream-1", "Dream")
	bad.IsGenerated = true
	assert.Error(t, store.Insert(bad))
	assert.Equal(t, 0, store.Len())
}

func TestRemoveIsIdempotent(t *testing.T) {
	store := services.NewStore(&services.MemorySnapshot{})
	require.NoError(t, store.Insert(entry("a", "Cats")))

	removed, ok := store.Remove("a")
	require.True(t, ok)
	assert.Equal(t, "a", removed.Id)

	_, ok = store.Remove("a")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestUpdateAbsentIdIsNoop(t *testing.T) {
	store := services.NewStore(&services.MemorySnapshot{})
	require.NoError(t, store.Insert(entry("a", "Cats")))
	before, err := store.Snapshot()
	require.NoError(t, err)

	_, ok := store.UpdateByID("missing", model.AnalyzingPatch(true))
	assert.False(t, ok)

	after, err := store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestReturnedEntriesDoNotAliasStore(t *testing.T) {
	store := services.NewStore(&services.MemorySnapshot{})
	require.NoError(t, store.Insert(entry("a", "Cats", "cute")))

	got, ok := store.Get("a")
	require.True(t, ok)
	got.Title = "Changed"
	got.AITags[0] = "changed"

	again, _ := store.Get("a")
	assert.Equal(t, "Cats", again.Title)
	assert.Equal(t, []string{"cute"}, again.AITags)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	snapshot := &services.MemorySnapshot{}
	store := services.NewStore(snapshot)

	uploaded := entry("a", "Cats", "cute")
	uploaded.AISummary = "A cat on a sofa."
	uploaded.AssetRef = "session-only"
	require.NoError(t, store.Insert(uploaded))
	generated := &model.CatalogEntry{Id: "dream-1", Title: "Dream: neon city", IsGenerated: true, Prompt: "neon city", SizeLabel: model.GeneratedSizeLabel}
	require.NoError(t, store.Insert(generated))
	_, _ = store.UpdateByID("a", model.AnalyzingPatch(true))
	require.NoError(t, store.Save(ctx))

	restored := services.NewStore(snapshot).Load(ctx)
	require.Len(t, restored, 2)
	assert.Equal(t, "dream-1", restored[0].Id)
	assert.Equal(t, "neon city", restored[0].Prompt)
	assert.True(t, restored[0].IsGenerated)
	assert.Equal(t, "a", restored[1].Id)
	assert.Equal(t, "A cat on a sofa.", restored[1].AISummary)
	assert.Equal(t, []string{"cute"}, restored[1].AITags)
	for _, e := range restored {
		assert.False(t, e.IsAnalyzing)
		assert.True(t, e.IsSynced)
		assert.Empty(t, e.AssetRef)
	}
}

func TestSnapshotNeverCarriesAssetRefOrAnalyzing(t *testing.T) {
	store := services.NewStore(&services.MemorySnapshot{})
	e := entry("a", "Cats")
	e.AssetRef = "blob-123"
	e.IsAnalyzing = true
	require.NoError(t, store.Insert(e))

	data, err := store.Snapshot()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "blob-123")

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, false, raw[0]["isAnalyzing"])
}

func TestLoadCorruptSnapshotYieldsEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	for name, snapshot := range map[string]*services.MemorySnapshot{
		"malformed":  {Data: []byte("{not json")},
		"wrong type": {Data: []byte(`{"id":"a"}`)},
		"read error": {Err: errors.New("disk on fire")},
	} {
		t.Run(name, func(t *testing.T) {
			store := services.NewStore(snapshot)
			assert.Empty(t, store.Load(ctx))
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestLoadDropsDuplicateIds(t *testing.T) {
	snapshot := &services.MemorySnapshot{Data: []byte(`[{"id":"a","title":"First"},{"id":"a","title":"Second"},{"id":"","title":"Blank"}]`)}
	entries := services.NewStore(snapshot).Load(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, "First", entries[0].Title)
}

func TestLoadAcceptsLegacySnapshotWithoutOptionalFields(t *testing.T) {
	legacy := `[{"id":"x1","title":"Beach","thumbnail":"data:image/jpeg;base64,AAA","duration":"1:05","uploadDate":"Mar 3, 2024","fileSize":"2.5 MB","isAnalyzing":true,"isSynced":false,"isGenerated":false}]`
	entries := services.NewStore(&services.MemorySnapshot{Data: []byte(legacy)}).Load(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, "1:05", entries[0].DurationLabel)
	assert.Equal(t, "2.5 MB", entries[0].SizeLabel)
	assert.Nil(t, entries[0].AITags)
	assert.False(t, entries[0].IsAnalyzing)
	assert.True(t, entries[0].IsSynced)
}

func TestFileSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "library.json")
	snapshot := services.NewFileSnapshot(path)

	data, err := snapshot.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, snapshot.Write(ctx, []byte(`[]`)))
	require.NoError(t, snapshot.Write(ctx, []byte(`[{"id":"a"}]`)))
	data, err = snapshot.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, string(data))
}

func TestStats(t *testing.T) {
	store := services.NewStore(&services.MemorySnapshot{})
	analyzed := entry("a", "Cats", "cute")
	analyzed.AssetRef = "ref"
	require.NoError(t, store.Insert(analyzed))
	require.NoError(t, store.Insert(&model.CatalogEntry{Id: "d", Title: "Dream", IsGenerated: true, Prompt: "p", IsAnalyzing: true}))

	stats := store.Stats()
	assert.Equal(t, model.CatalogStats{Total: 2, Generated: 1, Uploaded: 1, Analyzed: 1, Analyzing: 1, Playable: 1}, stats)
}

func TestLoadSkipsInvalidEntries(t *testing.T) {
	snapshot := &services.MemorySnapshot{Data: []byte(`[{"id":"g1","title":"Dream","isGenerated":true},{"id":"g2","title":"Fog","isGenerated":true,"prompt":"fog"},{"id":"g1","title":"Later","isGenerated":true,"prompt":"later"}]`)}
	entries := services.NewStore(snapshot).Load(context.Background())
	require.Len(t, entries, 2)
	assert.Equal(t, "g2", entries[0].Id)
	// An invalid record does not claim its id.
	assert.Equal(t, "later", entries[1].Prompt)
}

func TestIdsStayUniqueAcrossOperationSequences(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	for seed := uint64(1); seed <= 25; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*31))
		store := services.NewStore(&services.MemorySnapshot{})
		for step := 0; step < 200; step++ {
			id := ids[rng.IntN(len(ids))]
			switch rng.IntN(3) {
			case 0:
				_ = store.Insert(entry(id, "Clip "+id))
			case 1:
				store.Remove(id)
			case 2:
				store.UpdateByID(id, model.AnalysisPatch(&model.FrameAnalysis{Summary: "s", Tags: []string{id}}))
			}

			seen := make(map[string]bool)
			for _, e := range store.List() {
				require.False(t, seen[e.Id], "seed %d step %d: duplicate id %s", seed, step, e.Id)
				seen[e.Id] = true
			}
			require.Equal(t, len(seen), store.Len())
		}
	}
}
