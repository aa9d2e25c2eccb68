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

// This file sends a still frame to the frame analysis model.
//
//  1. The frame arrives as a data URI (or bare base64) and is decoded to
//     bytes; the MIME type comes from the prefix or is sniffed.
//  2. The instruction is rendered from the analysis prompt template. The
//     template may reference EXAMPLE_JSON, a well formed answer, to steer the
//     model towards the expected shape.
//  3. Image and instruction go out as one user turn, with a response schema
//     that requires summary, tags and suggestedTitle.
//  4. The raw JSON text is handed to the parse step.
//
// Transport errors are ErrAnalysisFailed and are not retried here.
package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-media-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
)

// AnalysisSchema is the response schema of the frame analysis model.
func AnalysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary":        {Type: genai.TypeString},
			"tags":           {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"suggestedTitle": {Type: genai.TypeString},
		},
		Required:         []string{"summary", "tags", "suggestedTitle"},
		PropertyOrdering: []string{"summary", "tags", "suggestedTitle"},
	}
}

// FrameAnalysisClient talks to the frame analysis model.
type FrameAnalysisClient struct {
	generator    cloud.ContentGenerator
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
}

// NewFrameAnalysisClient wraps generator. A quota aware model is switched to
// the analysis response schema.
func NewFrameAnalysisClient(generator cloud.ContentGenerator, meter metric.Meter) *FrameAnalysisClient {
	if quota, ok := generator.(*cloud.QuotaAwareGenerativeAIModel); ok {
		generator = quota.WithResponseSchema(AnalysisSchema())
	}
	out := &FrameAnalysisClient{generator: generator}
	if meter != nil {
		out.inputTokens, _ = meter.Int64Counter("analysis.gemini.token.input")
		out.outputTokens, _ = meter.Int64Counter("analysis.gemini.token.output")
	}
	return out
}

// Request returns the model's raw JSON answer for image.
func (f *FrameAnalysisClient) Request(ctx context.Context, image string, instruction string) (string, error) {
	mimeType, data, err := DecodeDataURI(image)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrAnalysisFailed, err)
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(instruction),
		}, genai.RoleUser),
	}
	out, err := cloud.GenerateMultiModalResponse(ctx, f.inputTokens, f.outputTokens, f.generator, contents)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrAnalysisFailed, err)
	}
	return out, nil
}

// Analyze requests and parses in one call.
func (f *FrameAnalysisClient) Analyze(ctx context.Context, image string, instruction string) (*model.FrameAnalysis, error) {
	out, err := f.Request(ctx, image, instruction)
	if err != nil {
		return nil, err
	}
	return ParseAnalysis(out)
}

// AnalyzeFrame is the analyze-frame step: frame in, raw JSON out.
type AnalyzeFrame struct {
	cor.BaseCommand
	client   *FrameAnalysisClient
	template *template.Template
}

// NewAnalyzeFrame renders instruction for every call.
func NewAnalyzeFrame(name string, client *FrameAnalysisClient, instruction *template.Template) *AnalyzeFrame {
	out := &AnalyzeFrame{BaseCommand: *cor.NewBaseCommand(name), client: client, template: instruction}
	out.OutputParamName = ParamAnalysisJSON
	return out
}

// GenerateParams is the data the instruction template is executed with.
func (t *AnalyzeFrame) GenerateParams(_ cor.Context) map[string]any {
	params := make(map[string]any)
	example, _ := json.Marshal(model.GetExampleAnalysis())
	params["EXAMPLE_JSON"] = string(example)
	return params
}

// Execute sends the frame and prompt to the model and writes the raw reply.
func (t *AnalyzeFrame) Execute(context cor.Context) {
	frame, _ := context.Get(t.GetInputParam()).(string)

	var instruction bytes.Buffer
	if err := t.template.Execute(&instruction, t.GenerateParams(context)); err != nil {
		t.Fail(context, fmt.Errorf("failed to execute analysis template: %w", err))
		return
	}

	out, err := t.client.Request(context.GetContext(), frame, instruction.String())
	if err != nil {
		t.Fail(context, err)
		return
	}
	t.Succeed(context)
	context.Add(t.GetOutputParam(), out)
	context.Add(cor.CtxOut, out)
}
