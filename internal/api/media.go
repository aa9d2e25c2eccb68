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
package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
)

// MediaView is a catalog entry as the API shows it. Playable tells the
// client whether the asset route will stream anything in this session.
type MediaView struct {
	*model.CatalogEntry
	Playable bool   `json:"playable"`
	AssetURL string `json:"assetUrl,omitempty"`
}

// AnalyzeRequest is the body of the analyze route. Frame is the still the
// client is showing, as a data URI or bare base64. Without it the server
// captures the frame at At seconds itself.
type AnalyzeRequest struct {
	Frame string  `json:"frame"`
	At    float64 `json:"at"`
}

// AnalyzeResponse carries the raw analysis, including the suggested title
// that is not merged, and the updated entry.
type AnalyzeResponse struct {
	Analysis *model.FrameAnalysis `json:"analysis"`
	Media    MediaView            `json:"media"`
}

// view decorates entry with its session state.
func (h *Handlers) view(entry *model.CatalogEntry) MediaView {
	out := MediaView{CatalogEntry: entry}
	if len(entry.AssetRef) > 0 {
		if _, ok := h.Orchestrator.Assets().Get(entry.AssetRef); ok {
			out.Playable = true
			out.AssetURL = fmt.Sprintf("%s/%s/asset", h.mediaPath, entry.Id)
		}
	}
	return out
}

// MediaRouter sets up the routes for browsing, analyzing and deleting
// catalog entries.
func (h *Handlers) MediaRouter(r *gin.RouterGroup) {
	media := r.Group("/media")
	h.mediaPath = media.BasePath()
	{
		media.GET("", func(c *gin.Context) {
			entries := h.Orchestrator.Store().Find(c.Query("s"))
			out := make([]MediaView, 0, len(entries))
			for _, entry := range entries {
				out = append(out, h.view(entry))
			}
			c.JSON(http.StatusOK, out)
		})

		media.GET("/:id", func(c *gin.Context) {
			entry, ok := h.Orchestrator.Store().Get(c.Param("id"))
			if !ok {
				abortWithError(c, fmt.Errorf("%w: %s", model.ErrEntryNotFound, c.Param("id")))
				return
			}
			c.JSON(http.StatusOK, h.view(entry))
		})

		media.DELETE("/:id", func(c *gin.Context) {
			found, err := h.Orchestrator.Delete(c.Request.Context(), c.Param("id"))
			if err != nil {
				abortWithError(c, err)
				return
			}
			if !found {
				abortWithError(c, fmt.Errorf("%w: %s", model.ErrEntryNotFound, c.Param("id")))
				return
			}
			c.Status(http.StatusNoContent)
		})

		media.GET("/:id/asset", func(c *gin.Context) {
			entry, ok := h.Orchestrator.Store().Get(c.Param("id"))
			if !ok {
				abortWithError(c, fmt.Errorf("%w: %s", model.ErrEntryNotFound, c.Param("id")))
				return
			}
			body, asset, err := h.Orchestrator.Assets().Open(entry.AssetRef)
			if err != nil {
				abortWithError(c, err)
				return
			}
			defer body.Close()

			c.Header("Content-Type", asset.MIMEType)
			if seeker, ok := body.(io.ReadSeeker); ok {
				// Range requests let players seek.
				http.ServeContent(c.Writer, c.Request, "", time.Time{}, seeker)
				return
			}
			c.DataFromReader(http.StatusOK, asset.Size, asset.MIMEType, body, nil)
		})

		media.POST("/:id/analyze", func(c *gin.Context) {
			var request AnalyzeRequest
			if c.Request.ContentLength != 0 {
				if err := c.ShouldBindJSON(&request); err != nil {
					c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
					return
				}
			}
			ctx := c.Request.Context()
			id := c.Param("id")

			frame := request.Frame
			if len(frame) == 0 {
				captured, err := h.Orchestrator.CaptureLiveFrame(ctx, id, request.At)
				if err != nil {
					abortWithError(c, err)
					return
				}
				frame = captured
			}

			analysis, err := h.Orchestrator.AnalyzeActiveFrame(ctx, id, frame)
			if err != nil {
				abortWithError(c, err)
				return
			}
			entry, ok := h.Orchestrator.Store().Get(id)
			if !ok {
				// Deleted while the analysis was in flight.
				abortWithError(c, fmt.Errorf("%w: %s", model.ErrEntryNotFound, id))
				return
			}
			c.JSON(http.StatusOK, AnalyzeResponse{Analysis: analysis, Media: h.view(entry)})
		})
	}
}
