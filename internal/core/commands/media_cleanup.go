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
	"log/slog"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/services"
)

// MediaCleanup releases the session asset of a workflow that did not commit
// an entry. Workflows run it after a failed chain; it is not a chain step.
type MediaCleanup struct {
	cor.BaseCommand
	assets *services.AssetStore
}

// NewMediaCleanup creates the step that releases a session asset.
//
// Inputs:
//   - name: The command name used in logs and spans.
//   - assets: The session asset store.
//
// Outputs:
//   - *MediaCleanup: The configured command.
func NewMediaCleanup(name string, assets *services.AssetStore) *MediaCleanup {
	out := &MediaCleanup{BaseCommand: *cor.NewBaseCommand(name), assets: assets}
	out.InputParamName = ParamSessionAsset
	return out
}

// IsExecutable requires a session asset to release.
func (v *MediaCleanup) IsExecutable(context cor.Context) bool {
	if context == nil {
		return false
	}
	asset, ok := context.Get(v.GetInputParam()).(*model.SessionAsset)
	return ok && asset != nil
}

// Execute releases the asset named in the context.
func (v *MediaCleanup) Execute(context cor.Context) {
	asset := context.Get(v.GetInputParam()).(*model.SessionAsset)
	v.assets.Release(asset.AssetRef)
	context.Remove(v.GetInputParam())
	slog.DebugContext(context.GetContext(), "released session asset", "ref", asset.AssetRef)
	v.Succeed(context)
}
