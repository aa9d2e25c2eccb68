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

// Package commands holds the steps the studio workflows are chained from.
// Each command reads named values from the shared cor.Context, does one
// thing, and writes its result under its output key. The keys below are the
// vocabulary the commands share; the workflows seed the request keys.
package commands

const (
	ParamGenerationRequest = "__GENERATION_REQUEST__" // *model.GenerationRequest
	ParamUploadRequest     = "__UPLOAD_REQUEST__"     // *model.UploadRequest
	ParamAnalysisRequest   = "__ANALYSIS_REQUEST__"   // *model.AnalysisRequest
	ParamSessionAsset      = "__SESSION_ASSET__"      // *model.SessionAsset
	ParamMediaMetadata     = "__MEDIA_METADATA__"     // *model.MediaMetadata
	ParamThumbnail         = "__THUMBNAIL__"          // string, data URI
	ParamCatalogEntry      = "__CATALOG_ENTRY__"      // *model.CatalogEntry
	ParamAnalysisJSON      = "__ANALYSIS_JSON__"      // string
	ParamFrameAnalysis     = "__FRAME_ANALYSIS__"     // *model.FrameAnalysis
	ParamUploadMIMEType    = "__UPLOAD_MIME_TYPE__"   // string
)
