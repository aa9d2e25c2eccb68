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

package services_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/services"
)

// mp4Header is the start of an ISO base media file, enough for sniffing.
var mp4Header = []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0x00, 0x00, 0x00, 0x00, 'm', 'p', '4', '2', 'i', 's', 'o', 'm'}

func TestAssetStorePutOpenRelease(t *testing.T) {
	ctx := context.Background()
	assets, err := services.NewAssetStore(t.TempDir())
	require.NoError(t, err)
	defer assets.Close()

	asset, err := assets.Put(ctx, bytes.NewReader(mp4Header), "")
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", asset.MIMEType)
	assert.Equal(t, int64(len(mp4Header)), asset.Size)
	assert.Equal(t, 1, assets.Len())

	reader, _, err := assets.Open(asset.AssetRef)
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, reader.Close())
	require.NoError(t, err)
	assert.Equal(t, mp4Header, data)

	assets.Release(asset.AssetRef)
	assets.Release(asset.AssetRef)
	_, statErr := os.Stat(asset.Path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))

	_, _, err = assets.Open(asset.AssetRef)
	assert.True(t, errors.Is(err, model.ErrAssetUnavailable))
}

func TestAssetStoreKeepsExplicitMIMEType(t *testing.T) {
	assets, err := services.NewAssetStore(t.TempDir())
	require.NoError(t, err)
	defer assets.Close()

	asset, err := assets.Put(context.Background(), bytes.NewReader([]byte("opaque")), "video/webm")
	require.NoError(t, err)
	assert.Equal(t, "video/webm", asset.MIMEType)
}

func TestOwnedSessionDirectoryIsRemovedOnClose(t *testing.T) {
	assets, err := services.NewAssetStore("")
	require.NoError(t, err)
	_, err = assets.Put(context.Background(), bytes.NewReader(mp4Header), "")
	require.NoError(t, err)

	dir := assets.Dir()
	require.NoError(t, assets.Close())
	_, statErr := os.Stat(dir)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}
