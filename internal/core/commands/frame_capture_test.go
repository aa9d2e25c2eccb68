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

package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-media-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
	test "github.com/jaycherian/gcp-go-media-studio/internal/testutil"
)

// stubSource is a VideoSource that may never answer.
type stubSource struct {
	meta  *model.MediaMetadata
	frame []byte
	hang  bool
}

func (s *stubSource) Metadata(ctx context.Context) (*model.MediaMetadata, error) {
	if s.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.meta, nil
}

func (s *stubSource) RenderFrame(_ context.Context, _ float64, _ int, _ int, _ float64) ([]byte, error) {
	return s.frame, nil
}

func TestClampTimestamp(t *testing.T) {
	assert.Equal(t, 0.0, commands.ClampTimestamp(-3, 10))
	assert.Equal(t, 4.5, commands.ClampTimestamp(4.5, 10))
	assert.InDelta(t, 9.96, commands.ClampTimestamp(10, 10), 1e-9)
	assert.InDelta(t, 9.96, commands.ClampTimestamp(60, 10), 1e-9)
	assert.Equal(t, 0.0, commands.ClampTimestamp(1, 0.02))
	// Unknown duration leaves the timestamp alone.
	assert.Equal(t, 3.0, commands.ClampTimestamp(3, 0))
}

func TestQualityScale(t *testing.T) {
	assert.Equal(t, 2, commands.QualityScale(1))
	assert.Equal(t, 31, commands.QualityScale(0))
	assert.Equal(t, 8, commands.QualityScale(0.8))
	assert.Equal(t, 2, commands.QualityScale(7))
}

func TestCanvasDimensions(t *testing.T) {
	landscape := &model.MediaMetadata{DurationSeconds: 8, Width: 1920, Height: 1080}
	portrait := &model.MediaMetadata{DurationSeconds: 8, Width: 1080, Height: 1920}

	w, h := commands.NativeAspect(640, 0.8).Dimensions(landscape)
	assert.Equal(t, 640, w)
	assert.Equal(t, 360, h)

	w, h = commands.NativeAspect(640, 0.8).Dimensions(portrait)
	assert.Equal(t, 640, w)
	assert.Equal(t, 1138, h)

	w, h = commands.FixedCanvas(640, 360, 0.92).Dimensions(portrait)
	assert.Equal(t, 640, w)
	assert.Equal(t, 360, h)

	w, h = commands.NativeSize(0.8).Dimensions(portrait)
	assert.Equal(t, 1080, w)
	assert.Equal(t, 1920, h)

	// Without a usable ratio the height is left to the encoder.
	w, h = commands.NativeAspect(640, 0.8).Dimensions(&model.MediaMetadata{DurationSeconds: 8})
	assert.Equal(t, 640, w)
	assert.Equal(t, 0, h)
}

func TestCaptureFrameTimesOutOnSilentSource(t *testing.T) {
	capturer := commands.NewFrameCapturer(50 * time.Millisecond)

	started := time.Now()
	_, err := capturer.CaptureFrame(context.Background(), &stubSource{hang: true}, 1, commands.NativeSize(0.8))
	assert.ErrorIs(t, err, model.ErrMediaTimeout)
	assert.Less(t, time.Since(started), time.Second)
}

func TestCaptureFrameRejectsNonImageOutput(t *testing.T) {
	capturer := commands.NewFrameCapturer(time.Second)
	source := &stubSource{meta: &model.MediaMetadata{DurationSeconds: 4, Width: 320, Height: 240}, frame: []byte("not a jpeg")}

	_, err := capturer.CaptureFrame(context.Background(), source, 1, commands.NativeSize(0.8))
	assert.ErrorIs(t, err, model.ErrMediaDecode)
}

func TestCaptureFramePassesCancellationThrough(t *testing.T) {
	capturer := commands.NewFrameCapturer(time.Second)
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := capturer.CaptureFrame(cancelled, &stubSource{hang: true}, 1, commands.NativeSize(0.8))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, model.ErrMediaTimeout))
}

func TestFFmpegSourceMetadata(t *testing.T) {
	runner := &test.FakeRunner{Probe: test.ProbeJSON(12.48, 1280, 720)}
	source := commands.FFmpegSources(cloud.NewConfig().Capture, runner)("/tmp/clip.mp4")

	meta, err := source.Metadata(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 12.48, meta.DurationSeconds, 1e-9)
	assert.Equal(t, 1280, meta.Width)
	assert.Equal(t, 720, meta.Height)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "ffprobe", calls[0][0])
	assert.Equal(t, "/tmp/clip.mp4", calls[0][len(calls[0])-1])
}

func TestFFmpegSourceMetadataFailures(t *testing.T) {
	capture := cloud.NewConfig().Capture
	cases := map[string]*test.FakeRunner{
		"no stream":   {Probe: []byte(`{"streams":[],"format":{"duration":"3.0"}}`)},
		"no duration": {Probe: []byte(`{"streams":[{"width":1,"height":1}],"format":{"duration":"N/A"}}`)},
		"garbage":     {Probe: []byte(`Invalid data found`)},
		"exit status": {ProbeErr: errors.New("exit status 1")},
	}
	for name, runner := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := commands.FFmpegSources(capture, runner)("/tmp/clip.mp4").Metadata(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestFFmpegSourceRenderFrameArguments(t *testing.T) {
	runner := &test.FakeRunner{Frame: test.JPEGFrame()}
	source := commands.FFmpegSources(cloud.NewConfig().Capture, runner)("/tmp/clip.mp4")

	frame, err := source.RenderFrame(context.Background(), 2.5, 640, 0, 0.8)
	require.NoError(t, err)
	assert.Equal(t, test.JPEGFrame(), frame)

	args := runner.Calls()[0]
	assert.Equal(t, "ffmpeg", args[0])
	assert.Subset(t, args, []string{"-ss", "2.500", "-i", "/tmp/clip.mp4", "-frames:v", "1", "-vf", "scale=640:-2", "-q:v", "8", "pipe:1"})
}

func TestFFmpegSourceEmptyFrame(t *testing.T) {
	runner := &test.FakeRunner{}
	source := commands.FFmpegSources(cloud.NewConfig().Capture, runner)("/tmp/clip.mp4")

	_, err := source.RenderFrame(context.Background(), 0, 0, 0, 1)
	assert.Error(t, err)
	assert.NotContains(t, runner.Calls()[0], "-vf")
}

func TestDataURIRoundTrip(t *testing.T) {
	uri := commands.EncodeDataURI("image/jpeg", test.JPEGFrame())
	assert.Equal(t, test.JPEGDataURI(), uri)

	mimeType, data, err := commands.DecodeDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mimeType)
	assert.Equal(t, test.JPEGFrame(), data)
}

func TestDecodeDataURISniffsBareBase64(t *testing.T) {
	uri := commands.EncodeDataURI("image/jpeg", test.JPEGFrame())
	mimeType, _, err := commands.DecodeDataURI(uri[len("data:image/jpeg;base64,"):])
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mimeType)
}

func TestDecodeDataURIFailures(t *testing.T) {
	for _, value := range []string{"", "data:image/png;base64", "data:image/png;base64,%%%", "   "} {
		_, _, err := commands.DecodeDataURI(value)
		assert.Error(t, err, value)
	}
}
