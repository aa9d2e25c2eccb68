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
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/workflow"
)

// ErrorResponse is the body of every failed request. Notice is only set for
// failures the user should see verbatim, and then Error carries the same
// text rather than the provider's wording.
type ErrorResponse struct {
	Error  string `json:"error"`
	Notice string `json:"notice,omitempty"`
}

// statusOf maps the failure taxonomy onto HTTP.
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, workflow.ErrEmptyPrompt):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrAnalysisInProgress), errors.Is(err, model.ErrAssetUnavailable):
		return http.StatusConflict
	case errors.Is(err, model.ErrCredentialMissing):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrMediaTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, model.ErrMediaDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrAnalysisFailed), errors.Is(err, model.ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse builds the body for err. A notice replaces the cause
// entirely; the cause only goes to the log.
func errorResponse(err error) ErrorResponse {
	var notice *workflow.Notice
	if errors.As(err, &notice) {
		return ErrorResponse{Error: notice.UserNotice(), Notice: notice.UserNotice()}
	}
	return ErrorResponse{Error: err.Error()}
}

// abortWithError logs err against the request and writes the mapped status.
func abortWithError(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	} else {
		slog.WarnContext(c.Request.Context(), "request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, errorResponse(err))
}
