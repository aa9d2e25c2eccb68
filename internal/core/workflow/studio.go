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
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-media-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/services"
)

// Studio is a fully wired application: the restored catalog, the session
// asset store, the cloud clients and the orchestrator over them. Both the
// server and the command line tool run on one.
type Studio struct {
	Config       *cloud.Config
	Clients      *cloud.ServiceClients
	Store        *services.Store
	Assets       *services.AssetStore
	Orchestrator *Orchestrator
	Generations  *services.GenerationTracker
}

// OpenStudio restores the catalog and wires every collaborator. A nil
// snapshot selects the backend named in config.Catalog.
func OpenStudio(ctx context.Context, config *cloud.Config, snapshot services.Snapshotter) (*Studio, error) {
	if snapshot == nil {
		var err error
		if snapshot, err = services.NewSnapshotter(ctx, config.Catalog); err != nil {
			return nil, err
		}
	}
	store := services.NewStore(snapshot)
	restored := store.Load(ctx)
	slog.InfoContext(ctx, "catalog restored", "entries", len(restored), "backend", config.Catalog.Backend)

	assets, err := services.NewAssetStore(config.Storage.SessionDir)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	clients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		_ = store.Close()
		_ = assets.Close()
		return nil, fmt.Errorf("failed to create cloud clients: %w", err)
	}

	orchestrator, err := NewOrchestrator(config, store, assets, CollaboratorsFrom(config, clients))
	if err != nil {
		clients.Close()
		_ = store.Close()
		_ = assets.Close()
		return nil, err
	}

	return &Studio{
		Config:       config,
		Clients:      clients,
		Store:        store,
		Assets:       assets,
		Orchestrator: orchestrator,
		Generations:  services.NewGenerationTracker(orchestrator.Generate),
	}, nil
}

// Close stops running generations first, then releases the stores and
// clients they were using.
func (s *Studio) Close() {
	s.Generations.Close()
	if err := s.Assets.Close(); err != nil {
		slog.Warn("failed to release session assets", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Warn("failed to close catalog backend", "error", err)
	}
	s.Clients.Close()
}
