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

package commands

import (
	"time"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
)

// AssembleGeneratedEntry builds the catalog entry for a finished generation
// from the request, the session asset and the captured thumbnail.
type AssembleGeneratedEntry struct {
	cor.BaseCommand
	Now func() time.Time
}

// NewAssembleGeneratedEntry creates the step that builds a catalog entry for a generated video.
func NewAssembleGeneratedEntry(name string) *AssembleGeneratedEntry {
	out := &AssembleGeneratedEntry{BaseCommand: *cor.NewBaseCommand(name), Now: time.Now}
	out.InputParamName = ParamThumbnail
	out.OutputParamName = ParamCatalogEntry
	return out
}

// IsExecutable requires both the session asset and the generation request.
func (c *AssembleGeneratedEntry) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) &&
		context.Get(ParamGenerationRequest) != nil &&
		context.Get(ParamSessionAsset) != nil
}

// Execute writes the new entry to ParamCatalogEntry.
func (c *AssembleGeneratedEntry) Execute(context cor.Context) {
	request := context.Get(ParamGenerationRequest).(*model.GenerationRequest)
	asset := context.Get(ParamSessionAsset).(*model.SessionAsset)
	thumbnail := context.Get(c.GetInputParam()).(string)

	entry := model.NewGeneratedEntry(request.Prompt, asset.AssetRef, thumbnail, c.Now())
	if err := entry.Validate(); err != nil {
		c.Fail(context, err)
		return
	}
	c.Succeed(context)
	context.Add(c.GetOutputParam(), entry)
	context.Add(cor.CtxOut, entry)
}

// AssembleUploadEntry builds the catalog entry for an imported file.
type AssembleUploadEntry struct {
	cor.BaseCommand
	Now func() time.Time
}

// NewAssembleUploadEntry creates the step that builds a catalog entry for an upload.
func NewAssembleUploadEntry(name string) *AssembleUploadEntry {
	out := &AssembleUploadEntry{BaseCommand: *cor.NewBaseCommand(name), Now: time.Now}
	out.InputParamName = ParamThumbnail
	out.OutputParamName = ParamCatalogEntry
	return out
}

// IsExecutable requires both the session asset and the upload request.
func (c *AssembleUploadEntry) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) &&
		context.Get(ParamUploadRequest) != nil &&
		context.Get(ParamSessionAsset) != nil &&
		context.Get(ParamMediaMetadata) != nil
}

// Execute writes the new entry to ParamCatalogEntry.
func (c *AssembleUploadEntry) Execute(context cor.Context) {
	request := context.Get(ParamUploadRequest).(*model.UploadRequest)
	asset := context.Get(ParamSessionAsset).(*model.SessionAsset)
	meta := context.Get(ParamMediaMetadata).(*model.MediaMetadata)
	thumbnail := context.Get(c.GetInputParam()).(string)

	size := request.Size
	if size <= 0 {
		size = asset.Size
	}
	entry := model.NewUploadedEntry(request.FileName, size, meta.DurationSeconds, asset.AssetRef, thumbnail, c.Now())
	c.Succeed(context)
	context.Add(c.GetOutputParam(), entry)
	context.Add(cor.CtxOut, entry)
}
