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

// This file wraps the ffprobe and ffmpeg binaries as a VideoSource.
//
// Probing asks ffprobe for the first video stream's dimensions and the
// container duration as JSON. Rendering seeks with -ss before -i (a fast
// keyframe seek followed by an accurate decode to the timestamp), emits a
// single frame, optionally scales it, and writes it as MJPEG to stdout so no
// temporary image files are needed.
package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-media-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
)

// CommandRunner runs an external program and returns its stdout. Tests
// substitute canned output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs programs with os/exec, killing them when ctx is done.
type ExecRunner struct{}

// Run executes the named binary and returns its stdout. Stderr is folded into
// the error.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		// A killed process says "signal: killed"; report why it was killed.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// FFmpegSource is a VideoSource over one local file.
type FFmpegSource struct {
	Runner      CommandRunner
	FFmpegPath  string
	FFprobePath string
	Path        string
}

// FFmpegSources returns a SourceFactory for the configured binaries.
func FFmpegSources(config cloud.Capture, runner CommandRunner) SourceFactory {
	return func(path string) VideoSource {
		return &FFmpegSource{Runner: runner, FFmpegPath: config.FFmpegPath, FFprobePath: config.FFprobePath, Path: path}
	}
}

type probeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Metadata reads duration and dimensions with ffprobe.
func (s *FFmpegSource) Metadata(ctx context.Context) (*model.MediaMetadata, error) {
	out, err := s.Runner.Run(ctx, s.FFprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:format=duration",
		"-of", "json",
		s.Path)
	if err != nil {
		return nil, err
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("unreadable ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return nil, errors.New("no video stream")
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64)
	if err != nil || math.IsNaN(duration) || duration <= 0 {
		return nil, fmt.Errorf("no usable duration %q", probe.Format.Duration)
	}
	return &model.MediaMetadata{
		DurationSeconds: duration,
		Width:           probe.Streams[0].Width,
		Height:          probe.Streams[0].Height,
	}, nil
}

// RenderFrame returns one JPEG at the given timestamp. A non-positive width
// or height is derived from the other, keeping the aspect ratio; both
// non-positive renders at native size.
func (s *FFmpegSource) RenderFrame(ctx context.Context, at float64, width int, height int, quality float64) ([]byte, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(at, 'f', 3, 64),
		"-i", s.Path,
		"-frames:v", "1",
	}
	if width > 0 || height > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%s:%s", scaleDimension(width), scaleDimension(height)))
	}
	args = append(args,
		"-q:v", strconv.Itoa(QualityScale(quality)),
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"pipe:1")

	out, err := s.Runner.Run(ctx, s.FFmpegPath, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("ffmpeg produced no frame")
	}
	return out, nil
}

func scaleDimension(v int) string {
	if v <= 0 {
		return "-2"
	}
	return strconv.Itoa(v)
}

// QualityScale maps a 0..1 encoder quality onto ffmpeg's -q:v, where 2 is
// the best and 31 the worst.
func QualityScale(quality float64) int {
	quality = math.Max(0, math.Min(1, quality))
	return 31 - int(math.Round(quality*29))
}
