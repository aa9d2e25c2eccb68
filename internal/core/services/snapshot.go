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
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jaycherian/gcp-go-media-studio/internal/cloud"
)

// Snapshotter reads and writes the catalog snapshot under one fixed key.
// Read returns nil data and no error when nothing was saved yet.
type Snapshotter interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// NewSnapshotter picks the backend named in the catalog config.
func NewSnapshotter(ctx context.Context, config cloud.Catalog) (Snapshotter, error) {
	switch config.Backend {
	case "", cloud.CatalogBackendFile:
		return NewFileSnapshot(filepath.Join(config.Path, config.Key+".json")), nil
	case cloud.CatalogBackendRedis:
		return NewRedisSnapshot(ctx, config)
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", config.Backend)
	}
}

// FileSnapshot keeps the snapshot in a single JSON file, replaced atomically
// on every write.
type FileSnapshot struct {
	Path string
}

// NewFileSnapshot returns a snapshotter backed by the JSON file at path. The
// file and its directory are created on the first Write.
//
// Inputs:
//   - path: Location of the snapshot file.
//
// Outputs:
//   - *FileSnapshot: The file-backed snapshotter.
func NewFileSnapshot(path string) *FileSnapshot {
	return &FileSnapshot{Path: path}
}

// Read returns the file contents, or nil when no snapshot has been written yet.
func (f *FileSnapshot) Read(_ context.Context) ([]byte, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Write replaces the snapshot through a temp file and rename.
func (f *FileSnapshot) Write(_ context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o750); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}

// Close is a no-op; the file is not held open between calls.
func (f *FileSnapshot) Close() error { return nil }

// RedisSnapshot keeps the snapshot as one string value in Redis.
type RedisSnapshot struct {
	Client *redis.Client
	Key    string
}

// NewRedisSnapshot connects and pings the configured Redis.
func NewRedisSnapshot(ctx context.Context, config cloud.Catalog) (*RedisSnapshot, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddress,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", config.RedisAddress, err)
	}
	return &RedisSnapshot{Client: client, Key: config.Key}, nil
}

// Read returns the stored value, or nil when the key does not exist.
func (r *RedisSnapshot) Read(ctx context.Context) ([]byte, error) {
	data, err := r.Client.Get(ctx, r.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.Key, err)
	}
	return data, nil
}

// Write stores data under Key with no expiry.
func (r *RedisSnapshot) Write(ctx context.Context, data []byte) error {
	if err := r.Client.Set(ctx, r.Key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.Key, err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (r *RedisSnapshot) Close() error {
	return r.Client.Close()
}

// MemorySnapshot keeps the snapshot in memory. Used by tests and by the CLI's
// --ephemeral flag.
type MemorySnapshot struct {
	Data []byte
	Err  error
}

// Read returns the last written bytes, or Err when it is set.
func (m *MemorySnapshot) Read(_ context.Context) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Data, nil
}

// Write keeps a copy of data, or fails with Err when it is set.
func (m *MemorySnapshot) Write(_ context.Context, data []byte) error {
	if m.Err != nil {
		return m.Err
	}
	m.Data = append([]byte(nil), data...)
	return nil
}

// Close is a no-op.
func (m *MemorySnapshot) Close() error { return nil }
