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

// Package cloud holds the configuration model and every adapter that talks to
// something outside the process: the genai SDK for generation and analysis,
// Cloud Storage for gs:// generation outputs, plain HTTPS downloads, and the
// credential host. The TOML files in configs/ map onto Config.
package cloud

import (
	"time"

	"google.golang.org/genai"
)

// DefaultSafetySettings keep the analysis model from refusing ordinary film
// stills (fight scenes, horror lighting and so on).
var DefaultSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
}

const (
	BackendGeminiAPI = "gemini"
	BackendVertexAI  = "vertex"

	CatalogBackendFile  = "file"
	CatalogBackendRedis = "redis"

	// DefaultCatalogKey is the single fixed key of the catalog snapshot.
	DefaultCatalogKey = "novastream_library_v2"

	// AnalysisModelName is the agent_models entry used for frame analysis.
	AnalysisModelName = "frame-analysis"
)

// PromptTemplates are text/template sources.
type PromptTemplates struct {
	AnalysisPrompt string `toml:"analysis"` // instruction sent with every frame
}

// VertexAiLLMModel configures one Gemini model used as an agent.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`
	SystemInstructions string  `toml:"system_instructions"`
	Temperature        float32 `toml:"temperature"`
	TopP               float32 `toml:"top_p"`
	TopK               float32 `toml:"top_k"`
	MaxTokens          int32   `toml:"max_tokens"`
	OutputFormat       string  `toml:"output_format"`
	RateLimit          int     `toml:"rate_limit"` // requests per second, burst
}

// Catalog selects where the catalog snapshot lives.
type Catalog struct {
	Backend       string `toml:"backend"`        // "file" or "redis"
	Key           string `toml:"key"`            // snapshot key / redis key
	Path          string `toml:"path"`           // directory of the file backend
	RedisAddress  string `toml:"redis_address"`  // host:port
	RedisPassword string `toml:"redis_password"` // optional
	RedisDB       int    `toml:"redis_db"`
}

// Storage configures the session asset store and remote outputs.
type Storage struct {
	SessionDir   string `toml:"session_dir"`    // empty means a fresh temp dir
	OutputGCSURI string `toml:"output_gcs_uri"` // Vertex only: gs:// prefix for generated clips
}

// Generation configures the video provider and the polling loop.
type Generation struct {
	Model                  string  `toml:"model"`
	NumberOfVideos         int     `toml:"number_of_videos"`
	Resolution             string  `toml:"resolution"`
	AspectRatio            string  `toml:"aspect_ratio"`
	PollIntervalSeconds    float64 `toml:"poll_interval_seconds"`
	MaxPolls               int     `toml:"max_polls"`       // 0 disables the cap
	TimeoutSeconds         int     `toml:"timeout_seconds"` // 0 disables the wall clock bound
	ThumbnailOffsetSeconds float64 `toml:"thumbnail_offset_seconds"`
	DownloadTimeoutSeconds int     `toml:"download_timeout_seconds"`
}

// PollInterval is the wait between two status polls.
func (g Generation) PollInterval() time.Duration {
	return time.Duration(g.PollIntervalSeconds * float64(time.Second))
}

// Timeout is the wall clock bound of one generation, 0 when unbounded.
func (g Generation) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// Capture configures ffmpeg based frame capture.
type Capture struct {
	FFmpegPath               string  `toml:"ffmpeg"`
	FFprobePath              string  `toml:"ffprobe"`
	TimeoutSeconds           float64 `toml:"timeout_seconds"`
	ThumbnailWidth           int     `toml:"thumbnail_width"`
	GeneratedThumbnailWidth  int     `toml:"generated_thumbnail_width"`
	GeneratedThumbnailHeight int     `toml:"generated_thumbnail_height"`
	UploadQuality            float64 `toml:"upload_quality"`
	GeneratedQuality         float64 `toml:"generated_quality"`
	LiveFrameQuality         float64 `toml:"live_frame_quality"`
	UploadOffsetFraction     float64 `toml:"upload_offset_fraction"`
	UploadOffsetMaxSeconds   float64 `toml:"upload_offset_max_seconds"`
}

// Timeout is the bounded wait for metadata and seeks.
func (c Capture) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}

// Telemetry toggles the Google Cloud exporters.
type Telemetry struct {
	Enabled bool `toml:"enabled"`
}

// Config is the root of the TOML configuration.
type Config struct {
	Application struct {
		Name              string `toml:"name"`
		GoogleProjectId   string `toml:"google_project_id"`
		GoogleLocation    string `toml:"location"`
		Backend           string `toml:"backend"`             // "gemini" or "vertex"
		ThreadPoolSize    int    `toml:"thread_pool_size"`    // upload workers
		ListenAddress     string `toml:"listen_address"`      // HTTP server
		APIKeyEnv         string `toml:"api_key_env"`         // env var holding the API key
		CredentialEnvFile string `toml:"credential_env_file"` // re-read on credential selection
		Runtime           string `toml:"runtime"`
	} `toml:"application"`
	Catalog         Catalog                     `toml:"catalog"`
	Storage         Storage                     `toml:"storage"`
	Generation      Generation                  `toml:"generation"`
	Capture         Capture                     `toml:"capture"`
	PromptTemplates PromptTemplates             `toml:"prompt_templates"`
	Telemetry       Telemetry                   `toml:"telemetry"`
	AgentModels     map[string]VertexAiLLMModel `toml:"agent_models"`
}

// NewConfig returns a Config holding the production defaults. TOML files
// loaded on top only need to carry overrides.
func NewConfig() *Config {
	c := &Config{
		Catalog: Catalog{
			Backend:      CatalogBackendFile,
			Key:          DefaultCatalogKey,
			Path:         "data",
			RedisAddress: "localhost:6379",
		},
		Generation: Generation{
			Model:                  "veo-3.1-fast-generate-preview",
			NumberOfVideos:         1,
			Resolution:             "720p",
			AspectRatio:            "16:9",
			PollIntervalSeconds:    10,
			MaxPolls:               90,
			TimeoutSeconds:         900,
			ThumbnailOffsetSeconds: 1,
			DownloadTimeoutSeconds: 120,
		},
		Capture: Capture{
			FFmpegPath:               "ffmpeg",
			FFprobePath:              "ffprobe",
			TimeoutSeconds:           10,
			ThumbnailWidth:           640,
			GeneratedThumbnailWidth:  640,
			GeneratedThumbnailHeight: 360,
			UploadQuality:            0.8,
			GeneratedQuality:         0.92,
			LiveFrameQuality:         0.8,
			UploadOffsetFraction:     0.25,
			UploadOffsetMaxSeconds:   5,
		},
		PromptTemplates: PromptTemplates{
			AnalysisPrompt: "Analyze this cinematic video frame and provide descriptive insights.",
		},
		AgentModels: map[string]VertexAiLLMModel{
			AnalysisModelName: {
				Model:        "gemini-3-flash-preview",
				Temperature:  0.4,
				TopP:         0.95,
				TopK:         40,
				MaxTokens:    2048,
				OutputFormat: "application/json",
				RateLimit:    2,
			},
		},
	}
	c.Application.Name = "media-studio"
	c.Application.GoogleLocation = "us-central1"
	c.Application.Backend = BackendGeminiAPI
	c.Application.ThreadPoolSize = 4
	c.Application.ListenAddress = ":8080"
	c.Application.APIKeyEnv = "API_KEY"
	c.Application.CredentialEnvFile = ".env"
	c.Application.Runtime = "local"
	return c
}
