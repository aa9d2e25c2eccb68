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

package model

import (
	"io"
	"time"
)

// These objects travel through the workflows but are never persisted.

// FrameAnalysis is the structured answer of the frame analysis provider.
// All three fields are required by the response schema.
type FrameAnalysis struct {
	Summary        string   `json:"summary"`
	Tags           []string `json:"tags"`
	SuggestedTitle string   `json:"suggestedTitle"`
}

// MediaMetadata is what a video source reports once it is decodable.
type MediaMetadata struct {
	DurationSeconds float64
	Width           int
	Height          int
}

// AspectRatio is width over height, or 0 when unknown.
func (m *MediaMetadata) AspectRatio() float64 {
	if m == nil || m.Width <= 0 || m.Height <= 0 {
		return 0
	}
	return float64(m.Width) / float64(m.Height)
}

// GenerationStage is a state of the generation state machine.
type GenerationStage string

const (
	StageSubmitted GenerationStage = "SUBMITTED"
	StagePolling   GenerationStage = "POLLING"
	StageDone      GenerationStage = "DONE"
	StageFailed    GenerationStage = "FAILED"
)

// GenerationOperation is a provider-neutral view of a long-running job.
// Handle carries the provider's own operation object between polls.
type GenerationOperation struct {
	Name          string
	Done          bool
	AssetLocation string // https or gs:// URI, empty if none
	AssetBytes    []byte // inline result, when the provider returns one
	MIMEType      string
	Failure       string // provider error text, if any
	Handle        any
}

// HasAsset reports whether a completed operation produced something fetchable.
func (o *GenerationOperation) HasAsset() bool {
	return o != nil && (len(o.AssetLocation) > 0 || len(o.AssetBytes) > 0)
}

// GenerationSettings is the fixed configuration submitted with every prompt.
type GenerationSettings struct {
	Model          string
	NumberOfVideos int
	Resolution     string
	AspectRatio    string
	OutputGCSURI   string
}

// SessionAsset is playable video registered in the session asset store: an
// upload or a downloaded generation. It does not survive a restart.
type SessionAsset struct {
	AssetRef string
	Path     string
	MIMEType string
	Size     int64
}

// GenerationRequest is the input of the generate-from-prompt workflow.
type GenerationRequest struct {
	Prompt     string
	OnProgress func(message string)
}

// Progress forwards message to the callback when one is set.
func (r *GenerationRequest) Progress(message string) {
	if r != nil && r.OnProgress != nil {
		r.OnProgress(message)
	}
}

// UploadRequest is the input of the media upload workflow.
type UploadRequest struct {
	FileName string
	Size     int64
	Content  io.Reader
}

// AnalysisRequest is the input of the analyze-active-frame workflow. Frame is
// an encoded still, with or without a data URI prefix.
type AnalysisRequest struct {
	EntryId string
	Frame   string
}

// GenerationJobStatus is the lifecycle of a background generation job.
type GenerationJobStatus string

const (
	JobRunning   GenerationJobStatus = "running"
	JobSucceeded GenerationJobStatus = "succeeded"
	JobFailed    GenerationJobStatus = "failed"
	JobCancelled GenerationJobStatus = "cancelled"
)

// GenerationJob is the API view of a background generation.
type GenerationJob struct {
	Id         string              `json:"id"`
	Prompt     string              `json:"prompt"`
	Status     GenerationJobStatus `json:"status"`
	Progress   string              `json:"progress"`
	Updates    int                 `json:"updates"`
	EntryId    string              `json:"entryId,omitempty"`
	Notice     string              `json:"notice,omitempty"`
	StartedAt  time.Time           `json:"startedAt"`
	FinishedAt *time.Time          `json:"finishedAt,omitempty"`
}

// CatalogStats summarizes the library for the dashboard endpoint.
type CatalogStats struct {
	Total     int `json:"total"`
	Generated int `json:"generated"`
	Uploaded  int `json:"uploaded"`
	Analyzed  int `json:"analyzed"`
	Analyzing int `json:"analyzing"`
	Playable  int `json:"playable"`
}
