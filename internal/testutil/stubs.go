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

package test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
)

// StubVideoProvider replays Operations: Submit returns the first, each Poll
// the next, repeating the last once the list is used up.
type StubVideoProvider struct {
	Operations []*model.GenerationOperation
	SubmitErr  error
	PollErr    error

	mu       sync.Mutex
	polls    int
	prompts  []string
	settings []model.GenerationSettings
}

func (s *StubVideoProvider) Submit(_ context.Context, prompt string, settings model.GenerationSettings) (*model.GenerationOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	s.settings = append(s.settings, settings)
	if s.SubmitErr != nil {
		return nil, s.SubmitErr
	}
	return s.at(0), nil
}

func (s *StubVideoProvider) Poll(_ context.Context, _ *model.GenerationOperation) (*model.GenerationOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	if s.PollErr != nil {
		return nil, s.PollErr
	}
	return s.at(s.polls), nil
}

func (s *StubVideoProvider) at(i int) *model.GenerationOperation {
	op := *s.Operations[min(i, len(s.Operations)-1)]
	return &op
}

// Polls is the number of Poll calls so far.
func (s *StubVideoProvider) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// Settings returns what every Submit was called with.
func (s *StubVideoProvider) Settings() []model.GenerationSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.GenerationSettings{}, s.settings...)
}

// PendingOperation is a running operation.
func PendingOperation(name string) *model.GenerationOperation {
	return &model.GenerationOperation{Name: name}
}

// DoneOperation is a finished operation pointing at location.
func DoneOperation(name string, location string) *model.GenerationOperation {
	return &model.GenerationOperation{Name: name, Done: true, AssetLocation: location, MIMEType: "video/mp4"}
}

// StubFetcher serves Data for every location.
type StubFetcher struct {
	Data []byte
	Err  error

	mu        sync.Mutex
	locations []string
}

func (f *StubFetcher) Fetch(_ context.Context, location string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.locations = append(f.locations, location)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return io.NopCloser(bytes.NewReader(f.Data)), nil
}

// Locations lists the fetched locations in call order.
func (f *StubFetcher) Locations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.locations...)
}

// StubCredentialHost counts selection requests.
type StubCredentialHost struct {
	Present  bool
	requests atomic.Int32
}

func (h *StubCredentialHost) HasCredential(context.Context) bool {
	return h.Present
}

func (h *StubCredentialHost) RequestCredentialSelection(context.Context) {
	h.requests.Add(1)
}

func (h *StubCredentialHost) Requests() int {
	return int(h.requests.Load())
}

// StubGenerator answers every GenerateContent call with Text, or Err. A
// non-empty Panic makes the call panic with that value instead. OnCall, when
// set, runs before the answer is returned.
type StubGenerator struct {
	Text   string
	Err    error
	Panic  string
	OnCall func()

	mu       sync.Mutex
	contents [][]*genai.Content
}

func (g *StubGenerator) GenerateContent(_ context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	g.mu.Lock()
	g.contents = append(g.contents, contents)
	g.mu.Unlock()
	if g.OnCall != nil {
		g.OnCall()
	}
	if len(g.Panic) > 0 {
		panic(g.Panic)
	}
	if g.Err != nil {
		return nil, g.Err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: genai.NewContentFromText(g.Text, genai.RoleModel)},
		},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 258, CandidatesTokenCount: 42},
	}, nil
}

// Calls returns the contents of every request.
func (g *StubGenerator) Calls() [][]*genai.Content {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][]*genai.Content{}, g.contents...)
}

// FakeRunner stands in for ffprobe and ffmpeg. Commands whose name contains
// "ffprobe" get Probe, everything else Frame. When Block is set, every call
// waits on it without watching ctx, like a decoder that hangs.
type FakeRunner struct {
	Probe    []byte
	Frame    []byte
	ProbeErr error
	FrameErr error
	Block    chan struct{}

	mu    sync.Mutex
	calls [][]string
}

func (r *FakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.mu.Unlock()
	if r.Block != nil {
		<-r.Block
	}
	if strings.Contains(name, "ffprobe") {
		return r.Probe, r.ProbeErr
	}
	return r.Frame, r.FrameErr
}

// Calls returns every invocation as name followed by its arguments.
func (r *FakeRunner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string{}, r.calls...)
}
