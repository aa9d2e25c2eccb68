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

// This file moves a finished generation into the session.
//
// A provider either returns the video inline or a location to download it
// from: an https link that needs the API key, or a gs:// object when the
// job wrote to Cloud Storage. Either way the bytes are streamed straight
// into the AssetStore rather than held in memory.
package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/services"
)

// DownloadAsset registers the operation's video in assets. Every failure
// is ErrGenerationFailed, except cancellation by the caller.
func DownloadAsset(ctx context.Context, fetcher AssetSource, assets *services.AssetStore, op *model.GenerationOperation) (*model.SessionAsset, error) {
	var content io.Reader
	if len(op.AssetBytes) > 0 {
		content = bytes.NewReader(op.AssetBytes)
	} else {
		body, err := fetcher.Fetch(ctx, op.AssetLocation)
		if err != nil {
			if stopped := interrupted(ctx); stopped != nil {
				return nil, stopped
			}
			return nil, fmt.Errorf("%w: download: %w", model.ErrGenerationFailed, err)
		}
		defer func(body io.ReadCloser) {
			if err := body.Close(); err != nil {
				slog.WarnContext(ctx, "failed to close download", "error", err)
			}
		}(body)
		content = body
	}

	asset, err := assets.Put(ctx, content, op.MIMEType)
	if err != nil {
		if stopped := interrupted(ctx); stopped != nil {
			return nil, stopped
		}
		return nil, fmt.Errorf("%w: %w", model.ErrGenerationFailed, err)
	}
	return asset, nil
}
