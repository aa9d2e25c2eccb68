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
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/workflow"
)

func TestUserMessagePrefersNotice(t *testing.T) {
	notice := &workflow.Notice{Message: workflow.NoticeGenerationInterrupted, Err: errors.New("rpc error: quota")}
	assert.Equal(t, workflow.NoticeGenerationInterrupted, userMessage(notice))
	assert.Equal(t, "plain", userMessage(errors.New("plain")))
}

func TestPrintEntriesTable(t *testing.T) {
	entry := model.NewUploadedEntry("harbor.mp4", 1536, 8, "", "", time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC))
	entry.AITags = []string{"harbor", "dusk"}

	var out bytes.Buffer
	require.NoError(t, printEntries(&out, []*model.CatalogEntry{entry}, false))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], entry.Id)
	assert.Contains(t, lines[1], "harbor,dusk")
	assert.Contains(t, lines[1], "1.5 KB")
}

func TestPrintEntriesJSON(t *testing.T) {
	entry := model.NewGeneratedEntry("a lighthouse in fog", "ref-1", "", time.Now())

	var out bytes.Buffer
	require.NoError(t, printEntries(&out, []*model.CatalogEntry{entry}, true))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "a lighthouse in fog", decoded[0]["prompt"])
	assert.NotContains(t, decoded[0], "AssetRef")
}
