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

package cloud

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
)

// VeoProvider adapts genai's long running video generation to the
// provider-neutral GenerationOperation.
type VeoProvider struct {
	Clients ClientProvider
}

// NewVeoProvider returns a Veo provider that obtains clients from clients.
func NewVeoProvider(clients ClientProvider) *VeoProvider {
	return &VeoProvider{Clients: clients}
}

// Submit starts a generation job for prompt.
func (v *VeoProvider) Submit(ctx context.Context, prompt string, settings model.GenerationSettings) (*model.GenerationOperation, error) {
	client, err := v.Clients.Client(ctx)
	if err != nil {
		return nil, err
	}
	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos: int32(settings.NumberOfVideos),
		Resolution:     settings.Resolution,
		AspectRatio:    settings.AspectRatio,
		OutputGCSURI:   settings.OutputGCSURI,
	}
	op, err := client.Models.GenerateVideos(ctx, settings.Model, prompt, nil, cfg)
	if err != nil {
		return nil, fmt.Errorf("generate videos: %w", err)
	}
	return toGenerationOperation(op), nil
}

// Poll refreshes the status of op.
func (v *VeoProvider) Poll(ctx context.Context, op *model.GenerationOperation) (*model.GenerationOperation, error) {
	handle, ok := op.Handle.(*genai.GenerateVideosOperation)
	if !ok || handle == nil {
		return nil, fmt.Errorf("operation %q was not created by this provider", op.Name)
	}
	client, err := v.Clients.Client(ctx)
	if err != nil {
		return nil, err
	}
	refreshed, err := client.Operations.GetVideosOperation(ctx, handle, nil)
	if err != nil {
		return nil, fmt.Errorf("get videos operation %s: %w", handle.Name, err)
	}
	return toGenerationOperation(refreshed), nil
}

func toGenerationOperation(op *genai.GenerateVideosOperation) *model.GenerationOperation {
	out := &model.GenerationOperation{Name: op.Name, Done: op.Done, Handle: op}
	if len(op.Error) > 0 {
		out.Failure = fmt.Sprint(op.Error["message"])
	}
	if op.Response == nil {
		return out
	}
	for _, generated := range op.Response.GeneratedVideos {
		if generated == nil || generated.Video == nil {
			continue
		}
		out.AssetLocation = generated.Video.URI
		out.AssetBytes = generated.Video.VideoBytes
		out.MIMEType = generated.Video.MIMEType
		break
	}
	if !out.HasAsset() && len(op.Response.RAIMediaFilteredReasons) > 0 {
		out.Failure = strings.Join(op.Response.RAIMediaFilteredReasons, "; ")
	}
	return out
}
