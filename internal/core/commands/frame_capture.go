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

package commands

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/h2non/filetype"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/cor"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
)

// FrameStepSeconds is how far before the end a past-the-end timestamp is
// pulled back: one frame at 25 fps.
const FrameStepSeconds = 0.04

// VideoSource is a decodable video. Both calls must honor ctx.
type VideoSource interface {
	Metadata(ctx context.Context) (*model.MediaMetadata, error)
	RenderFrame(ctx context.Context, at float64, width int, height int, quality float64) ([]byte, error)
}

// SourceFactory opens a VideoSource for a local file.
type SourceFactory func(path string) VideoSource

type canvasMode int

const (
	canvasNativeAspect canvasMode = iota
	canvasFixed
	canvasNativeSize
)

// Canvas decides the output dimensions and encoder quality of a capture.
type Canvas struct {
	mode    canvasMode
	Width   int
	Height  int
	Quality float64
}

// NativeAspect fixes the width and derives the height from the source ratio.
func NativeAspect(width int, quality float64) Canvas {
	return Canvas{mode: canvasNativeAspect, Width: width, Quality: quality}
}

// FixedCanvas draws the frame stretched onto width x height.
func FixedCanvas(width int, height int, quality float64) Canvas {
	return Canvas{mode: canvasFixed, Width: width, Height: height, Quality: quality}
}

// NativeSize keeps the source dimensions.
func NativeSize(quality float64) Canvas {
	return Canvas{mode: canvasNativeSize, Quality: quality}
}

// Dimensions resolves the canvas against the probed source. A zero height
// means "derive from the width".
func (c Canvas) Dimensions(meta *model.MediaMetadata) (width int, height int) {
	switch c.mode {
	case canvasFixed:
		return c.Width, c.Height
	case canvasNativeSize:
		if meta == nil {
			return 0, 0
		}
		return meta.Width, meta.Height
	default:
		ratio := meta.AspectRatio()
		if ratio <= 0 {
			return c.Width, 0
		}
		height = int(math.Round(float64(c.Width) / ratio))
		return c.Width, height - height%2
	}
}

// ClampTimestamp keeps at inside [0, duration).
func ClampTimestamp(at float64, duration float64) float64 {
	if at < 0 || math.IsNaN(at) {
		return 0
	}
	if duration > 0 && at >= duration {
		return math.Max(0, duration-FrameStepSeconds)
	}
	return at
}

// FrameCapturer captures still frames as data URIs. Probing and rendering
// each run under Timeout; a source that does not answer in time fails with
// ErrMediaTimeout, anything else it reports with ErrMediaDecode.
type FrameCapturer struct {
	Timeout time.Duration
}

// NewFrameCapturer returns a capturer whose ffmpeg calls are bounded by timeout.
func NewFrameCapturer(timeout time.Duration) *FrameCapturer {
	return &FrameCapturer{Timeout: timeout}
}

// Probe loads the source metadata.
func (f *FrameCapturer) Probe(ctx context.Context, source VideoSource) (*model.MediaMetadata, error) {
	meta, err := bounded(ctx, f.Timeout, source.Metadata)
	if err != nil {
		return nil, classifyCaptureError("metadata", err)
	}
	return meta, nil
}

// CaptureFrame probes the source, then renders the frame at atSeconds.
func (f *FrameCapturer) CaptureFrame(ctx context.Context, source VideoSource, atSeconds float64, canvas Canvas) (string, error) {
	meta, err := f.Probe(ctx, source)
	if err != nil {
		return "", err
	}
	return f.Render(ctx, source, meta, atSeconds, canvas)
}

// Render draws the frame at atSeconds of an already probed source.
func (f *FrameCapturer) Render(ctx context.Context, source VideoSource, meta *model.MediaMetadata, atSeconds float64, canvas Canvas) (string, error) {
	at := ClampTimestamp(atSeconds, meta.DurationSeconds)
	width, height := canvas.Dimensions(meta)

	data, err := bounded(ctx, f.Timeout, func(ctx context.Context) ([]byte, error) {
		return source.RenderFrame(ctx, at, width, height, canvas.Quality)
	})
	if err != nil {
		return "", classifyCaptureError("seek", err)
	}

	kind, _ := filetype.Match(data)
	if !filetype.IsImage(data) {
		return "", fmt.Errorf("%w: frame at %.2fs is not an image", model.ErrMediaDecode, at)
	}
	return EncodeDataURI(kind.MIME.Value, data), nil
}

// bounded runs fn under timeout and returns as soon as the deadline passes,
// even if fn ignores its context.
func bounded[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := fn(ctx)
		done <- result{value, err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-done:
		return r.value, r.err
	}
}

func classifyCaptureError(stage string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s did not complete in time", model.ErrMediaTimeout, stage)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %s: %w", model.ErrMediaDecode, stage, err)
	}
}

// EncodeDataURI renders data as a base64 data URI.
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI accepts a base64 data URI or bare base64 and returns the
// bytes. The MIME type is sniffed when the prefix does not carry one.
func DecodeDataURI(value string) (mimeType string, data []byte, err error) {
	payload := strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		header, encoded, found := strings.Cut(rest, ",")
		if !found {
			return "", nil, errors.New("data URI has no payload")
		}
		mimeType, _, _ = strings.Cut(header, ";")
		payload = encoded
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 image: %w", err)
	}
	if len(data) == 0 {
		return "", nil, errors.New("empty image")
	}
	if len(mimeType) == 0 {
		if kind, _ := filetype.Match(data); kind != filetype.Unknown {
			mimeType = kind.MIME.Value
		} else {
			mimeType = "image/jpeg"
		}
	}
	return mimeType, data, nil
}

// CaptureThumbnail renders the session asset's poster frame. It reuses the
// metadata of an earlier probe-media step when one ran.
type CaptureThumbnail struct {
	cor.BaseCommand
	capturer *FrameCapturer
	sources  SourceFactory
	canvas   Canvas
	offset   func(meta *model.MediaMetadata) float64
}

// NewCaptureThumbnail builds the command; offset picks the timestamp from
// the source metadata.
func NewCaptureThumbnail(name string, capturer *FrameCapturer, sources SourceFactory, canvas Canvas, offset func(meta *model.MediaMetadata) float64) *CaptureThumbnail {
	out := &CaptureThumbnail{
		BaseCommand: *cor.NewBaseCommand(name),
		capturer:    capturer,
		sources:     sources,
		canvas:      canvas,
		offset:      offset,
	}
	out.InputParamName = ParamSessionAsset
	out.OutputParamName = ParamThumbnail
	return out
}

// FixedOffset always captures at seconds.
func FixedOffset(seconds float64) func(*model.MediaMetadata) float64 {
	return func(*model.MediaMetadata) float64 { return seconds }
}

// FractionOffset captures at fraction of the duration, capped at limit.
func FractionOffset(fraction float64, limit float64) func(*model.MediaMetadata) float64 {
	return func(meta *model.MediaMetadata) float64 {
		return math.Min(meta.DurationSeconds*fraction, limit)
	}
}

// Execute captures the thumbnail frame and writes it as a data URL.
func (c *CaptureThumbnail) Execute(context cor.Context) {
	asset := context.Get(c.GetInputParam()).(*model.SessionAsset)
	ctx := context.GetContext()
	source := c.sources(asset.Path)

	meta, _ := context.Get(ParamMediaMetadata).(*model.MediaMetadata)
	if meta == nil {
		var err error
		if meta, err = c.capturer.Probe(ctx, source); err != nil {
			c.Fail(context, err)
			return
		}
		context.Add(ParamMediaMetadata, meta)
	}

	thumbnail, err := c.capturer.Render(ctx, source, meta, c.offset(meta), c.canvas)
	if err != nil {
		c.Fail(context, err)
		return
	}
	c.Succeed(context)
	context.Add(c.GetOutputParam(), thumbnail)
	context.Add(cor.CtxOut, thumbnail)
}

// ProbeMedia loads the session asset's metadata for the duration label.
type ProbeMedia struct {
	cor.BaseCommand
	capturer *FrameCapturer
	sources  SourceFactory
}

// NewProbeMedia creates the step that reads duration and size from the asset.
func NewProbeMedia(name string, capturer *FrameCapturer, sources SourceFactory) *ProbeMedia {
	out := &ProbeMedia{BaseCommand: *cor.NewBaseCommand(name), capturer: capturer, sources: sources}
	out.InputParamName = ParamSessionAsset
	out.OutputParamName = ParamMediaMetadata
	return out
}

// Execute records the media metadata on the context.
func (c *ProbeMedia) Execute(context cor.Context) {
	asset := context.Get(c.GetInputParam()).(*model.SessionAsset)
	meta, err := c.capturer.Probe(context.GetContext(), c.sources(asset.Path))
	if err != nil {
		c.Fail(context, err)
		return
	}
	c.Succeed(context)
	context.Add(c.GetOutputParam(), meta)
}
