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

package cloud

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"cloud.google.com/go/storage"
)

// AssetFetcher downloads a generated asset from the location reported by the
// provider. HTTPS locations get the current API key appended as the "key"
// query parameter; gs:// locations are read with the Cloud Storage client.
type AssetFetcher struct {
	HTTPClient *http.Client
	APIKey     func() string

	mu            sync.Mutex
	storageClient *storage.Client
}

// NewAssetFetcher returns a fetcher using httpClient (http.DefaultClient when
// nil) and apiKey to sign HTTPS downloads.
func NewAssetFetcher(httpClient *http.Client, apiKey func() string) *AssetFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AssetFetcher{HTTPClient: httpClient, APIKey: apiKey}
}

// Fetch opens the asset. The caller closes the reader.
func (f *AssetFetcher) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	if IsGCSURI(location) {
		return f.fetchGCS(ctx, location)
	}
	return f.fetchHTTP(ctx, location)
}

func (f *AssetFetcher) fetchHTTP(ctx context.Context, location string) (io.ReadCloser, error) {
	target, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid asset location: %w", err)
	}
	if f.APIKey != nil {
		if key := f.APIKey(); len(key) > 0 {
			query := target.Query()
			query.Set("key", key)
			target.RawQuery = query.Encode()
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asset download failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("asset download returned %s", resp.Status)
	}
	return resp.Body, nil
}

func (f *AssetFetcher) fetchGCS(ctx context.Context, location string) (io.ReadCloser, error) {
	obj, err := ParseGCSURI(location)
	if err != nil {
		return nil, err
	}
	client, err := f.gcs(ctx)
	if err != nil {
		return nil, err
	}
	reader, err := client.Bucket(obj.Bucket).Object(obj.Name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS reader for %s: %w", location, err)
	}
	return reader, nil
}

// gcs creates the storage client on first use; most sessions never see a
// gs:// location.
func (f *AssetFetcher) gcs(ctx context.Context) (*storage.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storageClient != nil {
		return f.storageClient, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating storage client: %w", err)
	}
	f.storageClient = client
	return client, nil
}

// Close releases the storage client if one was created.
func (f *AssetFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storageClient == nil {
		return nil
	}
	err := f.storageClient.Close()
	f.storageClient = nil
	return err
}
