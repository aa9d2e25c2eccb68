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
// Package api contains the HTTP routes of the studio server. Every route is a
// thin adapter: it decodes the request, calls the orchestrator or the
// generation tracker, and maps the returned error onto a status code.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/services"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/workflow"
)

// Handlers carries what the routes share.
type Handlers struct {
	Orchestrator *workflow.Orchestrator
	Generations  *services.GenerationTracker

	mediaPath string // absolute path of the media group, set by MediaRouter
}

// NewHandlers binds the routes to one orchestrator and its tracker.
func NewHandlers(orchestrator *workflow.Orchestrator, generations *services.GenerationTracker) *Handlers {
	return &Handlers{Orchestrator: orchestrator, Generations: generations}
}

// Register mounts every route group on r, normally the "/api/v1" group.
func (h *Handlers) Register(r *gin.RouterGroup) {
	h.MediaRouter(r)
	h.FileUpload(r)
	h.GenerationRouter(r)
	h.Dashboard(r)
}
