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

import "errors"

// Failure taxonomy. Components wrap these with fmt.Errorf("...: %w") and
// callers match them with errors.Is.
var (
	// ErrStorageCorrupt marks an unreadable catalog snapshot. It is logged and
	// absorbed; startup continues with an empty catalog.
	ErrStorageCorrupt = errors.New("catalog snapshot is corrupt")

	// ErrMediaTimeout means a video source did not deliver metadata or finish
	// a seek within the capture bound.
	ErrMediaTimeout = errors.New("media source timed out")

	// ErrMediaDecode means a video source could not be probed or rendered.
	ErrMediaDecode = errors.New("media source could not be decoded")

	// ErrAnalysisFailed covers transport and schema failures of frame analysis.
	ErrAnalysisFailed = errors.New("frame analysis failed")

	// ErrGenerationFailed covers operations that finish without a usable
	// asset, failed downloads, and exhausted poll budgets.
	ErrGenerationFailed = errors.New("video generation failed")

	// ErrCredentialMissing is raised before submission when no provider
	// credential is selected.
	ErrCredentialMissing = errors.New("no provider credential selected")

	// ErrAnalysisInProgress rejects a second analysis of the same entry while
	// the first is still in flight.
	ErrAnalysisInProgress = errors.New("entry is already being analyzed")

	ErrDuplicateEntry   = errors.New("catalog entry id already exists")
	ErrEntryNotFound    = errors.New("catalog entry not found")
	ErrUnsupportedMedia = errors.New("file is not a supported video")
	ErrAssetUnavailable = errors.New("asset is not available in this session")
)
