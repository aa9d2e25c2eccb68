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

// This file holds the commands that write to the catalog Store.
//
// Commit is the last step of the generation and upload chains: it prepends
// the assembled entry and saves the snapshot. If the snapshot cannot be
// written the entry is taken out again, so a failed workflow never leaves a
// half-committed entry behind.
//
// The analysis chain brackets the provider call with MarkAnalyzing and
// MergeAnalysis. MergeAnalysis addresses the entry by id only, so the result
// for an entry deleted while the analysis was in flight is dropped.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/services"
)

// CommitEntry inserts the assembled entry and saves the catalog.
type CommitEntry struct {
	cor.BaseCommand
	store *services.Store
}

// NewCommitEntry creates the commit step. It reads the entry from
// ParamCatalogEntry and passes it on as CtxOut once saved.
//
// Inputs:
//   - name: The command name used in logs and spans.
//   - store: The catalog the entry is inserted into.
//
// Outputs:
//   - *CommitEntry: The configured command.
func NewCommitEntry(name string, store *services.Store) *CommitEntry {
	out := &CommitEntry{BaseCommand: *cor.NewBaseCommand(name), store: store}
	out.InputParamName = ParamCatalogEntry
	return out
}

// Execute inserts and saves the entry, undoing the insert if the save fails.
func (c *CommitEntry) Execute(context cor.Context) {
	entry := context.Get(c.GetInputParam()).(*model.CatalogEntry)
	ctx := context.GetContext()

	if err := c.store.Insert(entry); err != nil {
		c.Fail(context, err)
		return
	}
	if err := c.store.Save(ctx); err != nil {
		c.store.Remove(entry.Id)
		c.Fail(context, err)
		return
	}

	slog.InfoContext(ctx, "catalog entry committed", "id", entry.Id, "title", entry.Title, "generated", entry.IsGenerated)
	c.Succeed(context)
	context.Add(cor.CtxOut, entry)
}

// MarkAnalyzing sets the in-flight flag on the entry being analyzed and
// saves, so a crash mid-analysis still loads with the flag cleared.
type MarkAnalyzing struct {
	cor.BaseCommand
	store *services.Store
}

// NewMarkAnalyzing creates the step that claims an entry for analysis. It
// reads ParamAnalysisRequest and forwards the request frame as CtxOut.
func NewMarkAnalyzing(name string, store *services.Store) *MarkAnalyzing {
	out := &MarkAnalyzing{BaseCommand: *cor.NewBaseCommand(name), store: store}
	out.InputParamName = ParamAnalysisRequest
	return out
}

// Execute fails with model.ErrAnalysisInProgress when the entry is already claimed.
func (c *MarkAnalyzing) Execute(context cor.Context) {
	request := context.Get(c.GetInputParam()).(*model.AnalysisRequest)
	ctx := context.GetContext()

	_, err := c.store.UpdateIf(request.EntryId, func(entry *model.CatalogEntry) error {
		if entry.IsAnalyzing {
			return fmt.Errorf("%w: %s", model.ErrAnalysisInProgress, entry.Id)
		}
		return nil
	}, model.AnalyzingPatch(true))
	if err != nil {
		c.Fail(context, err)
		return
	}
	if err := c.store.Save(ctx); err != nil {
		// The flag is transient; a failed save here does not stop the analysis.
		slog.WarnContext(ctx, "failed to save catalog", "error", err)
	}
	c.Succeed(context)
	context.Add(cor.CtxOut, request.Frame)
}

// MergeAnalysis writes a completed analysis onto the entry and clears the
// in-flight flag.
type MergeAnalysis struct {
	cor.BaseCommand
	store *services.Store
}

// NewMergeAnalysis creates the step that stores a parsed analysis.
//
// Inputs:
//   - name: The command name used in logs and spans.
//   - store: The catalog holding the analyzed entry.
//
// Outputs:
//   - *MergeAnalysis: A command reading ParamFrameAnalysis.
func NewMergeAnalysis(name string, store *services.Store) *MergeAnalysis {
	out := &MergeAnalysis{BaseCommand: *cor.NewBaseCommand(name), store: store}
	out.InputParamName = ParamFrameAnalysis
	return out
}

// IsExecutable also requires the originating request to be in the context.
func (c *MergeAnalysis) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) && context.Get(ParamAnalysisRequest) != nil
}

// Execute merges the analysis, clears the flag and saves the catalog.
func (c *MergeAnalysis) Execute(context cor.Context) {
	analysis := context.Get(c.GetInputParam()).(*model.FrameAnalysis)
	request := context.Get(ParamAnalysisRequest).(*model.AnalysisRequest)
	ctx := context.GetContext()

	updated, ok := c.store.UpdateByID(request.EntryId, model.AnalysisPatch(analysis))
	if !ok {
		slog.InfoContext(ctx, "analyzed entry is gone, dropping result", "id", request.EntryId)
		c.Succeed(context)
		return
	}
	if err := c.store.Save(ctx); err != nil {
		c.Fail(context, err)
		return
	}
	c.Succeed(context)
	context.Add(ParamCatalogEntry, updated)
	context.Add(cor.CtxOut, updated)
}
