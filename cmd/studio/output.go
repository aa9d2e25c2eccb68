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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/workflow"
)

// userMessage prefers the fixed notice text over the wrapped error.
func userMessage(err error) string {
	var notice *workflow.Notice
	if errors.As(err, &notice) {
		return notice.UserNotice()
	}
	return err.Error()
}

// printEntries writes entries as a table, or as JSON when asJSON is set.
func printEntries(w io.Writer, entries []*model.CatalogEntry, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}
	table := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(table, "ID\tTITLE\tDURATION\tSIZE\tADDED\tTAGS")
	for _, entry := range entries {
		fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%s\t%s\n",
			entry.Id, entry.Title, entry.DurationLabel, entry.SizeLabel, entry.UploadedLabel, strings.Join(entry.AITags, ","))
	}
	return table.Flush()
}

// spinner shows provider progress messages while a generation runs.
type spinner struct {
	bar *progressbar.ProgressBar
}

func newSpinner(w io.Writer, description string) *spinner {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
	)
	return &spinner{bar: bar}
}

// Update is a GenerationRequest progress callback.
func (s *spinner) Update(message string) {
	s.bar.Describe(message)
	_ = s.bar.Add(1)
}

// Finish completes the bar.
func (s *spinner) Finish() {
	_ = s.bar.Finish()
}
