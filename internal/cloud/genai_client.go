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
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
)

// GenAIClientSource builds genai clients lazily. With the Gemini API backend
// the client is rebuilt whenever the API key changes, so a credential
// selected mid-session is picked up by the very next provider call.
type GenAIClientSource struct {
	config *Config
	keys   *EnvCredentialHost

	mu     sync.Mutex
	client *genai.Client
	key    string
}

// NewGenAIClientSource returns a source that builds clients from config and the current key.
func NewGenAIClientSource(config *Config, keys *EnvCredentialHost) *GenAIClientSource {
	return &GenAIClientSource{config: config, keys: keys}
}

// IsVertex reports whether the Vertex AI backend is configured.
func (s *GenAIClientSource) IsVertex() bool {
	return s.config.Application.Backend == BackendVertexAI
}

// APIKey is the key the current client was built with ("" on Vertex).
func (s *GenAIClientSource) APIKey() string {
	if s.IsVertex() || s.keys == nil {
		return ""
	}
	return s.keys.APIKey()
}

// Client returns a client for the current key, rebuilding it when the key changes.
func (s *GenAIClientSource) Client(ctx context.Context) (*genai.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.IsVertex() {
		if s.client != nil {
			return s.client, nil
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			Project:  s.config.Application.GoogleProjectId,
			Location: s.config.Application.GoogleLocation,
			Backend:  genai.BackendVertexAI,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating vertex genai client: %w", err)
		}
		s.client = client
		return client, nil
	}

	key := s.APIKey()
	if len(key) == 0 {
		return nil, model.ErrCredentialMissing
	}
	if s.client != nil && key == s.key {
		return s.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating genai client: %w", err)
	}
	if s.client != nil {
		slog.Info("api key changed, rebuilt genai client")
	}
	s.client = client
	s.key = key
	return client, nil
}
