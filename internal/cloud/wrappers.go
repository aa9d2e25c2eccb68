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
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ContentGenerator is the slice of the genai Models API the analysis path
// needs. Tests substitute canned responses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error)
}

// ClientProvider hands out a genai client built with the current credential.
type ClientProvider interface {
	Client(ctx context.Context) (*genai.Client, error)
}

// QuotaAwareGenerativeAIModel rate limits calls to one Gemini model. Callers
// block in Wait until a token is available or ctx is done.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig
	ModelName               string
	Clients                 ClientProvider
	RateLimit               *rate.Limiter
}

// NewQuotaAwareModel allows a burst of requestsPerSecond and refills one
// token per second.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, clients ClientProvider, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		Clients:                 clients,
		RateLimit:               rate.NewLimiter(rate.Every(time.Second), requestsPerSecond),
	}
}

// WithResponseSchema returns a copy of the model that asks for JSON matching
// schema. The copy shares the rate limiter.
func (q *QuotaAwareGenerativeAIModel) WithResponseSchema(schema *genai.Schema) *QuotaAwareGenerativeAIModel {
	cfg := genai.GenerateContentConfig{}
	if q.GenerativeContentConfig != nil {
		cfg = *q.GenerativeContentConfig
	}
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseSchema = schema
	out := *q
	out.GenerativeContentConfig = &cfg
	return &out
}

// GenerateContent waits for the rate limiter, then calls the model.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait for %s: %w", q.ModelName, err)
	}
	client, err := q.Clients.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Models.GenerateContent(ctx, q.ModelName, contents, q.GenerativeContentConfig)
}
