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
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/workflow"
)

// GenerationRequest is the body of a new generation.
type GenerationRequest struct {
	Prompt string `json:"prompt"`
}

// GenerationRouter sets up the routes for background generations. A POST
// returns at once with a job the client polls until it leaves "running".
func (h *Handlers) GenerationRouter(r *gin.RouterGroup) {
	generations := r.Group("/generations")
	{
		generations.POST("", func(c *gin.Context) {
			var request GenerationRequest
			if err := c.ShouldBindJSON(&request); err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
				return
			}
			if len(strings.TrimSpace(request.Prompt)) == 0 {
				abortWithError(c, workflow.ErrEmptyPrompt)
				return
			}
			job := h.Generations.Start(c.Request.Context(), request.Prompt)
			c.Header("Location", fmt.Sprintf("%s/%s", c.FullPath(), job.Id))
			c.JSON(http.StatusAccepted, job)
		})

		generations.GET("", func(c *gin.Context) {
			c.JSON(http.StatusOK, h.Generations.List())
		})

		generations.GET("/:id", func(c *gin.Context) {
			job, ok := h.Generations.Get(c.Param("id"))
			if !ok {
				c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "generation job not found"})
				return
			}
			c.JSON(http.StatusOK, job)
		})

		generations.DELETE("/:id", func(c *gin.Context) {
			if !h.Generations.Cancel(c.Param("id")) {
				c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "generation job not found"})
				return
			}
			c.Status(http.StatusAccepted)
		})
	}
}
