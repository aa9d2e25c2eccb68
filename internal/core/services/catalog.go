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

// Package services holds the stateful services behind the workflows: the
// catalog Store and its snapshot backends, the session AssetStore and the
// GenerationTracker for background jobs.
//
// The Store is an explicit object handed to whoever needs it. Every mutation
// goes through Insert, Remove or UpdateByID, all keyed by id, so interleaved
// workflows (an analysis finishing while the same entry is deleted) resolve
// to a no-op rather than a conflict.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
)

// Store is the catalog: an ordered, most-recent-first list of entries plus
// the snapshot it is flushed to.
type Store struct {
	snapshot Snapshotter
	saveMu   sync.Mutex // one write at a time, so the last save wins

	mu      sync.RWMutex
	entries []*model.CatalogEntry
}

// NewStore returns an empty store backed by snapshot. Call Load to restore.
func NewStore(snapshot Snapshotter) *Store {
	return &Store{snapshot: snapshot, entries: make([]*model.CatalogEntry, 0)}
}

// Load replaces the in-memory catalog with the persisted snapshot. A
// missing, unreadable or malformed snapshot yields an empty catalog; the
// error is logged as ErrStorageCorrupt and never returned.
func (s *Store) Load(ctx context.Context) []*model.CatalogEntry {
	entries, err := s.readSnapshot(ctx)
	if err != nil {
		slog.WarnContext(ctx, "discarding catalog snapshot", "error", fmt.Errorf("%w: %w", model.ErrStorageCorrupt, err))
		entries = make([]*model.CatalogEntry, 0)
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	slog.DebugContext(ctx, "catalog loaded", "entries", len(entries))
	return s.List()
}

func (s *Store) readSnapshot(ctx context.Context) ([]*model.CatalogEntry, error) {
	data, err := s.snapshot.Read(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return make([]*model.CatalogEntry, 0), nil
	}
	var raw []*model.CatalogEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	out := make([]*model.CatalogEntry, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, entry := range raw {
		if entry == nil || seen[entry.Id] {
			continue
		}
		if err := entry.Validate(); err != nil {
			slog.WarnContext(ctx, "skipping invalid catalog entry", "error", err)
			continue
		}
		seen[entry.Id] = true
		entry.IsSynced = true
		entry.IsAnalyzing = false
		entry.AssetRef = ""
		out = append(out, entry)
	}
	return out, nil
}

// Save writes the current catalog. AssetRef never leaves the process and
// IsAnalyzing is written as false whatever its in-memory value.
func (s *Store) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	data, err := s.Snapshot()
	if err != nil {
		return err
	}
	if err := s.snapshot.Write(ctx, data); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	return nil
}

// Snapshot renders the persisted form of the current catalog.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	persisted := make([]*model.CatalogEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		copied := entry.Clone()
		copied.IsAnalyzing = false
		copied.AssetRef = ""
		persisted = append(persisted, copied)
	}
	s.mu.RUnlock()

	data, err := json.Marshal(persisted)
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return data, nil
}

// Insert prepends entry. Ids are unique: inserting an existing id fails
// with ErrDuplicateEntry and leaves the store unchanged.
func (s *Store) Insert(entry *model.CatalogEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(entry.Id) >= 0 {
		return fmt.Errorf("%w: %s", model.ErrDuplicateEntry, entry.Id)
	}
	s.entries = slices.Insert(s.entries, 0, entry.Clone())
	return nil
}

// Remove deletes id and reports whether it was present. Removing an absent
// id is a no-op.
func (s *Store) Remove(id string) (*model.CatalogEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, false
	}
	removed := s.entries[i]
	s.entries = slices.Delete(s.entries, i, i+1)
	return removed, true
}

// UpdateByID applies patch to the entry with id and returns the updated
// copy. An absent id leaves the store unchanged.
func (s *Store) UpdateByID(id string, patch model.EntryPatch) (*model.CatalogEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, false
	}
	patch.Apply(s.entries[i])
	return s.entries[i].Clone(), true
}

// UpdateIf applies patch only when guard accepts the current entry, under
// one lock. An absent id fails with ErrEntryNotFound; a guard error is
// returned as is and leaves the entry unchanged.
func (s *Store) UpdateIf(id string, guard func(entry *model.CatalogEntry) error, patch model.EntryPatch) (*model.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrEntryNotFound, id)
	}
	if err := guard(s.entries[i]); err != nil {
		return nil, err
	}
	patch.Apply(s.entries[i])
	return s.entries[i].Clone(), nil
}

// Get returns a copy of the entry with id.
func (s *Store) Get(id string) (*model.CatalogEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return s.entries[i].Clone(), true
}

// List returns copies of all entries, most recent first.
func (s *Store) List() []*model.CatalogEntry {
	return s.Find("")
}

// Len is the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close releases the snapshot backend.
func (s *Store) Close() error {
	return s.snapshot.Close()
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.entries, func(e *model.CatalogEntry) bool { return e.Id == id })
}
