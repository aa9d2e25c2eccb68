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
	"errors"
	"fmt"
	"log/slog"
	"text/template"

	"go.opentelemetry.io/otel"

	"github.com/jaycherian/gcp-go-media-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/services"
)

// AnalyzeFrameWorkflow sends one frame of an entry for analysis and merges
// the result. Whatever happens, the entry ends the cycle with isAnalyzing
// cleared.
type AnalyzeFrameWorkflow struct {
	cor.BaseCommand
	store    *services.Store
	client   *commands.FrameAnalysisClient
	template *template.Template
	chain    cor.Chain
}

// IsExecutable requires an analysis request in the context.
func (m *AnalyzeFrameWorkflow) IsExecutable(context cor.Context) bool {
	return context != nil && context.Get(commands.ParamAnalysisRequest) != nil
}

// Execute runs the chain. Unless the chain completed cleanly, the flag set
// by mark-analyzing is cleared on the way out, panics included. The one
// exception is a rejection because another analysis holds the flag.
func (m *AnalyzeFrameWorkflow) Execute(context cor.Context) {
	finished := false
	defer func() {
		if finished && context.Err() == nil {
			return
		}
		m.release(context, finished)
	}()
	m.chain.Execute(context)
	finished = true
}

// release clears isAnalyzing after a failed or aborted cycle.
func (m *AnalyzeFrameWorkflow) release(context cor.Context, finished bool) {
	err := context.Err()
	if errors.Is(err, model.ErrAnalysisInProgress) {
		return
	}
	request := context.Get(commands.ParamAnalysisRequest).(*model.AnalysisRequest)
	ctx := context.GetContext()
	if _, ok := m.store.UpdateByID(request.EntryId, model.AnalyzingPatch(false)); ok {
		if saveErr := m.store.Save(ctx); saveErr != nil {
			slog.WarnContext(ctx, "failed to save catalog", "error", saveErr)
		}
	}
	if !finished {
		slog.ErrorContext(ctx, "frame analysis aborted", "id", request.EntryId)
		return
	}
	slog.ErrorContext(ctx, "frame analysis failed", "id", request.EntryId, "error", err)
}

func (m *AnalyzeFrameWorkflow) initializeChain() {
	out := cor.NewBaseChain(m.GetName())

	// isAnalyzing=true and save; the frame becomes the next input.
	out.AddCommand(commands.NewMarkAnalyzing("mark-analyzing", m.store))

	// Frame plus instruction to the analysis model, raw JSON back.
	out.AddCommand(commands.NewAnalyzeFrame("analyze-frame", m.client, m.template))

	// Require summary, tags and suggestedTitle.
	out.AddCommand(commands.NewParseAnalysisJSON("parse-analysis"))

	// aiSummary and aiTags onto the entry, flag cleared, save.
	out.AddCommand(commands.NewMergeAnalysis("merge-analysis", m.store))

	m.chain = out
}

// NewAnalyzeFrameWorkflow parses the analysis instruction template.
func NewAnalyzeFrameWorkflow(config *cloud.Config, store *services.Store, deps Collaborators) (*AnalyzeFrameWorkflow, error) {
	instruction, err := template.New("analysis-template").Parse(config.PromptTemplates.AnalysisPrompt)
	if err != nil {
		return nil, fmt.Errorf("invalid analysis prompt template: %w", err)
	}
	out := &AnalyzeFrameWorkflow{
		BaseCommand: *cor.NewBaseCommand("analyze-frame-workflow"),
		store:       store,
		client:      commands.NewFrameAnalysisClient(deps.Analysis, otel.Meter(cor.MeterName)),
		template:    instruction,
	}
	out.initializeChain()
	return out, nil
}
