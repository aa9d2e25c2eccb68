// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
)

// wireAnalysis uses pointers so an absent field can be told from an empty one.
type wireAnalysis struct {
	Summary        *string   `json:"summary"`
	Tags           *[]string `json:"tags"`
	SuggestedTitle *string   `json:"suggestedTitle"`
}

// ParseAnalysis turns the model's JSON answer into a FrameAnalysis. Empty
// text counts as "{}", which is missing every required field.
func ParseAnalysis(text string) (*model.FrameAnalysis, error) {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		text = "{}"
	}
	var wire wireAnalysis
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("%w: unreadable response: %w", model.ErrAnalysisFailed, err)
	}

	var missing []string
	if wire.Summary == nil {
		missing = append(missing, "summary")
	}
	if wire.Tags == nil {
		missing = append(missing, "tags")
	}
	if wire.SuggestedTitle == nil {
		missing = append(missing, "suggestedTitle")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: response is missing %s", model.ErrAnalysisFailed, strings.Join(missing, ", "))
	}

	return &model.FrameAnalysis{
		Summary:        *wire.Summary,
		Tags:           append([]string{}, (*wire.Tags)...),
		SuggestedTitle: *wire.SuggestedTitle,
	}, nil
}

// ParseAnalysisJSON is the parse-analysis step.
type ParseAnalysisJSON struct {
	cor.BaseCommand
}

// NewParseAnalysisJSON creates the step that turns the model's JSON reply into a FrameAnalysis.
func NewParseAnalysisJSON(name string) *ParseAnalysisJSON {
	out := ParseAnalysisJSON{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = ParamAnalysisJSON
	out.OutputParamName = ParamFrameAnalysis
	return &out
}

// Execute fails when the reply is not valid analysis JSON.
func (s *ParseAnalysisJSON) Execute(context cor.Context) {
	in := context.Get(s.GetInputParam()).(string)
	analysis, err := ParseAnalysis(in)
	if err != nil {
		s.Fail(context, err)
		return
	}
	s.Succeed(context)
	context.Add(s.GetOutputParam(), analysis)
	context.Add(cor.CtxOut, analysis)
}
