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
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
)

// UploadOutcome reports one file of a multipart upload.
type UploadOutcome struct {
	File   string     `json:"file"`
	Media  *MediaView `json:"media,omitempty"`
	Error  string     `json:"error,omitempty"`
	Notice string     `json:"notice,omitempty"`
}

// FileUpload sets up the route for importing local videos. Files arrive in
// the "files" field and are imported concurrently; the response lists one
// outcome per file in the order they were sent.
func (h *Handlers) FileUpload(r *gin.RouterGroup) {
	upload := r.Group("/uploads")
	{
		upload.POST("", func(c *gin.Context) {
			form, err := c.MultipartForm()
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "get form err: " + err.Error()})
				return
			}
			files := form.File["files"]
			if len(files) == 0 {
				c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "no files in the \"files\" field"})
				return
			}

			requests := make([]*model.UploadRequest, 0, len(files))
			readers := make([]io.Closer, 0, len(files))
			defer func() {
				for _, reader := range readers {
					if err := reader.Close(); err != nil {
						slog.Warn("failed to close upload part", "error", err)
					}
				}
			}()
			for _, file := range files {
				content, err := file.Open()
				if err != nil {
					c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "upload file err: " + err.Error()})
					return
				}
				readers = append(readers, content)
				requests = append(requests, &model.UploadRequest{FileName: file.Filename, Size: file.Size, Content: content})
			}

			results := h.Orchestrator.ImportAll(c.Request.Context(), requests)
			out := make([]UploadOutcome, len(results))
			imported := 0
			for i, result := range results {
				out[i].File = requests[i].FileName
				if result.Err != nil {
					failure := errorResponse(result.Err)
					out[i].Error = failure.Error
					out[i].Notice = failure.Notice
					continue
				}
				view := h.view(result.Entry)
				out[i].Media = &view
				imported++
			}

			status := http.StatusOK
			if imported == 0 {
				status = statusOf(results[0].Err)
			}
			c.JSON(status, out)
		})
	}
}
