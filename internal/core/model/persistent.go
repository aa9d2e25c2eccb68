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

// Package model defines the data structures shared by the catalog, the
// provider clients and the workflows. This file holds the types that land in
// the persisted catalog snapshot.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// GeneratedDurationLabel is shown for generated clips; their real
	// duration is never measured.
	GeneratedDurationLabel = "0:05"
	// GeneratedSizeLabel replaces the byte size for generated clips.
	GeneratedSizeLabel = "AI Gen"
	// UntitledVideo is the title of an upload whose file name has no stem.
	UntitledVideo = "Untitled Video"
	// DreamTitlePrefixLength is how much of the prompt a generated title keeps.
	DreamTitlePrefixLength = 20
)

// CatalogEntry is one item of the media library.
//
// The JSON names match the snapshot format written by earlier releases so
// existing libraries keep loading. AssetRef never reaches the snapshot: it
// points at session-local bytes that do not survive a restart.
type CatalogEntry struct {
	Id            string   `json:"id"`
	Title         string   `json:"title"`
	AssetRef      string   `json:"-"`
	Thumbnail     string   `json:"thumbnail"`               // data URI, inlined
	DurationLabel string   `json:"duration"`                // "m:ss"
	UploadedLabel string   `json:"uploadDate"`              // "Jan 2, 2006"
	SizeLabel     string   `json:"fileSize"`                // "1.5 MB" or "AI Gen"
	AISummary     string   `json:"aiSummary,omitempty"`     // empty until analyzed
	AITags        []string `json:"aiTags,omitempty"`        // nil until analyzed
	IsAnalyzing   bool     `json:"isAnalyzing"`             // always false in a snapshot
	IsSynced      bool     `json:"isSynced"`                // normalized to true on load
	IsGenerated   bool     `json:"isGenerated"`             // immutable
	Prompt        string   `json:"prompt,omitempty"`        // set iff IsGenerated
}

// Clone returns a deep copy so callers never alias store memory.
func (e *CatalogEntry) Clone() *CatalogEntry {
	if e == nil {
		return nil
	}
	out := *e
	if e.AITags != nil {
		out.AITags = append([]string(nil), e.AITags...)
	}
	return &out
}

// Analyzed reports whether a completed analysis has been merged.
func (e *CatalogEntry) Analyzed() bool {
	return len(e.AISummary) > 0 || len(e.AITags) > 0
}

// Matches is the library search predicate: case-insensitive substring of
// the title or of any tag. An empty query matches everything.
func (e *CatalogEntry) Matches(query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(e.Title), q) {
		return true
	}
	for _, tag := range e.AITags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// Validate checks the invariants an entry must satisfy before insertion.
func (e *CatalogEntry) Validate() error {
	if len(strings.TrimSpace(e.Id)) == 0 {
		return fmt.Errorf("catalog entry has no id")
	}
	if e.IsGenerated && len(strings.TrimSpace(e.Prompt)) == 0 {
		return fmt.Errorf("generated entry %s has no prompt", e.Id)
	}
	return nil
}

// EntryPatch is a partial update. Nil fields are left untouched.
type EntryPatch struct {
	Title       *string
	AISummary   *string
	AITags      *[]string
	IsAnalyzing *bool
}

// Apply writes the non-nil fields of p onto e.
func (p EntryPatch) Apply(e *CatalogEntry) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.AISummary != nil {
		e.AISummary = *p.AISummary
	}
	if p.AITags != nil {
		e.AITags = append([]string(nil), (*p.AITags)...)
	}
	if p.IsAnalyzing != nil {
		e.IsAnalyzing = *p.IsAnalyzing
	}
}

// AnalyzingPatch toggles only the in-flight flag.
func AnalyzingPatch(analyzing bool) EntryPatch {
	return EntryPatch{IsAnalyzing: &analyzing}
}

// AnalysisPatch merges a completed analysis and clears the in-flight flag.
func AnalysisPatch(analysis *FrameAnalysis) EntryPatch {
	summary := analysis.Summary
	tags := append([]string(nil), analysis.Tags...)
	done := false
	return EntryPatch{AISummary: &summary, AITags: &tags, IsAnalyzing: &done}
}

// NewGeneratedEntry builds the entry for a clip produced from prompt.
func NewGeneratedEntry(prompt string, assetRef string, thumbnail string, now time.Time) *CatalogEntry {
	return &CatalogEntry{
		Id:            fmt.Sprintf("dream-%d-%s", now.UnixMilli(), uuid.NewString()[:8]),
		Title:         DreamTitle(prompt),
		AssetRef:      assetRef,
		Thumbnail:     thumbnail,
		DurationLabel: GeneratedDurationLabel,
		UploadedLabel: FormatUploadDate(now),
		SizeLabel:     GeneratedSizeLabel,
		IsSynced:      true,
		IsGenerated:   true,
		Prompt:        prompt,
	}
}

// NewUploadedEntry builds the entry for a local upload.
func NewUploadedEntry(fileName string, size int64, durationSeconds float64, assetRef string, thumbnail string, now time.Time) *CatalogEntry {
	return &CatalogEntry{
		Id:            uuid.NewString(),
		Title:         TitleFromFileName(fileName),
		AssetRef:      assetRef,
		Thumbnail:     thumbnail,
		DurationLabel: FormatDuration(durationSeconds),
		UploadedLabel: FormatUploadDate(now),
		SizeLabel:     FormatFileSize(size),
		IsSynced:      true,
	}
}
