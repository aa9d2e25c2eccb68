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

package cloud

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// ServiceClients bundles every external collaborator the workflows use.
type ServiceClients struct {
	GenAI         *GenAIClientSource                      // genai clients, rebuilt on key change
	Credentials   CredentialHost                          // credential selection host
	VideoProvider *VeoProvider                            // long running generation
	Fetcher       *AssetFetcher                           // https and gs:// downloads
	AgentModels   map[string]*QuotaAwareGenerativeAIModel // keyed by agent_models name
}

// Close releases clients that hold connections.
func (c *ServiceClients) Close() {
	if c.Fetcher != nil {
		if err := c.Fetcher.Close(); err != nil {
			slog.Warn("failed to close storage client", "error", err)
		}
	}
}

// NewCloudServiceClients wires the clients from config. Nothing here dials
// out: genai and storage clients are built on first use, so a missing API key
// surfaces as ErrCredentialMissing at call time rather than at startup.
func NewCloudServiceClients(_ context.Context, config *Config) (*ServiceClients, error) {
	keys := NewEnvCredentialHost(config)
	source := NewGenAIClientSource(config, keys)

	var host CredentialHost = keys
	if source.IsVertex() {
		host = AlwaysCredentialed{}
	}

	httpClient := &http.Client{Timeout: time.Duration(config.Generation.DownloadTimeoutSeconds) * time.Second}

	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for name, values := range config.AgentModels {
		cfg := &genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](values.Temperature),
			TopP:             genai.Ptr[float32](values.TopP),
			TopK:             genai.Ptr[float32](values.TopK),
			MaxOutputTokens:  values.MaxTokens,
			SafetySettings:   DefaultSafetySettings,
			ResponseMIMEType: values.OutputFormat,
		}
		if len(values.SystemInstructions) > 0 {
			cfg.SystemInstruction = genai.NewContentFromText(values.SystemInstructions, genai.RoleUser)
		}
		agentModels[name] = NewQuotaAwareModel(cfg, values.Model, source, values.RateLimit)
		slog.Debug("configured agent model", "name", name, "model", values.Model)
	}

	return &ServiceClients{
		GenAI:         source,
		Credentials:   host,
		VideoProvider: NewVeoProvider(source),
		Fetcher:       NewAssetFetcher(httpClient, source.APIKey),
		AgentModels:   agentModels,
	}, nil
}
