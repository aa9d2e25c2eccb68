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

import "github.com/jaycherian/gcp-go-media-studio/internal/core/model"

// Find returns copies of the entries whose title or any tag contains query,
// case-insensitively, in catalog order.
func (s *Store) Find(query string) []*model.CatalogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.CatalogEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if entry.Matches(query) {
			out = append(out, entry.Clone())
		}
	}
	return out
}

// Stats summarizes the catalog for the dashboard.
func (s *Store) Stats() model.CatalogStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := model.CatalogStats{Total: len(s.entries)}
	for _, entry := range s.entries {
		if entry.IsGenerated {
			out.Generated++
		} else {
			out.Uploaded++
		}
		if entry.Analyzed() {
			out.Analyzed++
		}
		if entry.IsAnalyzing {
			out.Analyzing++
		}
		if len(entry.AssetRef) > 0 {
			out.Playable++
		}
	}
	return out
}
