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

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
)

// AssetStore holds the playable video of the current session in a scratch
// directory. References handed out by Put are only meaningful to this store
// and die with it, which is why they are never written to the catalog.
type AssetStore struct {
	dir   string
	owned bool

	mu     sync.Mutex
	assets map[string]*model.SessionAsset
}

// NewAssetStore uses dir when set, otherwise a fresh temp directory that is
// removed again on Close.
func NewAssetStore(dir string) (*AssetStore, error) {
	owned := false
	if len(dir) == 0 {
		tmp, err := os.MkdirTemp("", "media-studio-session-")
		if err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
		dir = tmp
		owned = true
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create session directory %s: %w", dir, err)
	}
	return &AssetStore{dir: dir, owned: owned, assets: make(map[string]*model.SessionAsset)}, nil
}

// Dir is the scratch directory backing the store.
func (a *AssetStore) Dir() string {
	return a.dir
}

// Put copies content into the session and returns its registration. When
// mimeType is empty it is sniffed from the stored bytes.
func (a *AssetStore) Put(ctx context.Context, content io.Reader, mimeType string) (*model.SessionAsset, error) {
	ref := uuid.NewString()
	path := filepath.Join(a.dir, ref)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrAssetUnavailable, err)
	}
	size, err := io.Copy(file, content)
	closeErr := file.Close()
	if err = errors.Join(err, closeErr); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %w", model.ErrAssetUnavailable, err)
	}

	if len(mimeType) == 0 {
		kind, _ := filetype.MatchFile(path)
		if kind != filetype.Unknown {
			mimeType = kind.MIME.Value
		}
	}

	asset := &model.SessionAsset{AssetRef: ref, Path: path, MIMEType: mimeType, Size: size}
	a.mu.Lock()
	a.assets[ref] = asset
	a.mu.Unlock()

	slog.DebugContext(ctx, "asset stored", "ref", ref, "mime", mimeType, "size", size)
	copied := *asset
	return &copied, nil
}

// Get resolves ref to its registration.
func (a *AssetStore) Get(ref string) (*model.SessionAsset, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	asset, ok := a.assets[ref]
	if !ok {
		return nil, false
	}
	copied := *asset
	return &copied, true
}

// Open returns a reader over the stored asset.
func (a *AssetStore) Open(ref string) (io.ReadCloser, *model.SessionAsset, error) {
	asset, ok := a.Get(ref)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", model.ErrAssetUnavailable, ref)
	}
	file, err := os.Open(asset.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", model.ErrAssetUnavailable, err)
	}
	return file, asset, nil
}

// Release forgets ref and deletes its file. Unknown references are ignored.
func (a *AssetStore) Release(ref string) {
	if len(ref) == 0 {
		return
	}
	a.mu.Lock()
	asset, ok := a.assets[ref]
	delete(a.assets, ref)
	a.mu.Unlock()
	if !ok {
		return
	}
	if err := os.Remove(asset.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to release asset", "ref", ref, "error", err)
	}
}

// Len is the number of live assets.
func (a *AssetStore) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.assets)
}

// Close releases every asset, and the directory itself when the store
// created it.
func (a *AssetStore) Close() error {
	a.mu.Lock()
	refs := make([]string, 0, len(a.assets))
	for ref := range a.assets {
		refs = append(refs, ref)
	}
	a.mu.Unlock()
	for _, ref := range refs {
		a.Release(ref)
	}
	if a.owned {
		return os.RemoveAll(a.dir)
	}
	return nil
}
