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

// This file holds the first two steps of an import: checking that the
// upload is a video at all, and copying it into the session asset store.
//
// Sniffing reads only the header the filetype matchers need and then
// stitches it back in front of the remaining stream, so the upload is read
// once and never buffered whole.
package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/h2non/filetype"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/services"
)

// sniffLength is what filetype needs to match any of its types.
const sniffLength = 262

// SniffUpload rejects uploads that are not a recognizable video.
type SniffUpload struct {
	cor.BaseCommand
}

// NewSniffUpload creates the step that checks an upload's content type.
func NewSniffUpload(name string) *SniffUpload {
	out := &SniffUpload{BaseCommand: *cor.NewBaseCommand(name)}
	out.InputParamName = ParamUploadRequest
	out.OutputParamName = ParamUploadMIMEType
	return out
}

// Execute rejects uploads whose leading bytes are not video.
func (c *SniffUpload) Execute(context cor.Context) {
	request := context.Get(c.GetInputParam()).(*model.UploadRequest)
	if request.Content == nil {
		c.Fail(context, fmt.Errorf("%w: %s has no content", model.ErrUnsupportedMedia, request.FileName))
		return
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(request.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		c.Fail(context, fmt.Errorf("failed to read upload %s: %w", request.FileName, err))
		return
	}
	head = head[:n]
	request.Content = io.MultiReader(bytes.NewReader(head), request.Content)

	if !filetype.IsVideo(head) {
		c.Fail(context, fmt.Errorf("%w: %s", model.ErrUnsupportedMedia, request.FileName))
		return
	}
	kind, _ := filetype.Match(head)

	c.Succeed(context)
	context.Add(c.GetOutputParam(), kind.MIME.Value)
}

// MediaUpload copies the sniffed upload into the session asset store.
type MediaUpload struct {
	cor.BaseCommand
	assets *services.AssetStore
}

// NewMediaUpload creates the step that stores an upload as a session asset.
//
// Inputs:
//   - name: The command name used in logs and spans.
//   - assets: The session asset store.
//
// Outputs:
//   - *MediaUpload: A command reading the upload request.
func NewMediaUpload(name string, assets *services.AssetStore) *MediaUpload {
	out := &MediaUpload{BaseCommand: *cor.NewBaseCommand(name), assets: assets}
	out.InputParamName = ParamUploadRequest
	out.OutputParamName = ParamSessionAsset
	return out
}

// Execute copies the upload into the session and writes the asset to the context.
func (v *MediaUpload) Execute(context cor.Context) {
	request := context.Get(v.GetInputParam()).(*model.UploadRequest)
	mimeType, _ := context.Get(ParamUploadMIMEType).(string)

	asset, err := v.assets.Put(context.GetContext(), request.Content, mimeType)
	if err != nil {
		v.Fail(context, err)
		return
	}
	v.Succeed(context)
	context.Add(v.GetOutputParam(), asset)
	context.Add(cor.CtxOut, asset)
}
