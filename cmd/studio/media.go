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
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"
	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-media-studio/internal/core/commands"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/model"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Import local videos into the catalog",
	Long: `Import local videos into the catalog. Files are processed concurrently;
each gets a thumbnail and, with --analyze-at, an analysis of the frame at
that offset.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requests := make([]*model.UploadRequest, 0, len(args))
		for _, path := range args {
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()
			info, err := file.Stat()
			if err != nil {
				return err
			}
			requests = append(requests, &model.UploadRequest{FileName: filepath.Base(path), Size: info.Size(), Content: file})
		}

		analyzeAt, _ := cmd.Flags().GetFloat64("analyze-at")
		analyze := cmd.Flags().Changed("analyze-at")

		failed := 0
		imported := make([]*model.CatalogEntry, 0, len(requests))
		for _, result := range studio.Orchestrator.ImportAll(cmd.Context(), requests) {
			if result.Err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", args[result.Index], userMessage(result.Err))
				continue
			}
			entry := result.Entry
			if analyze {
				if updated, err := analyzeLive(cmd, entry.Id, analyzeAt); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: analysis failed: %v\n", args[result.Index], err)
				} else {
					entry = updated
				}
			}
			imported = append(imported, entry)
		}

		if err := printEntries(cmd.OutOrStdout(), imported, false); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files could not be imported", failed, len(requests))
		}
		return nil
	},
}

// analyzeLive captures the entry's own frame at atSeconds and analyzes it.
func analyzeLive(cmd *cobra.Command, id string, atSeconds float64) (*model.CatalogEntry, error) {
	frame, err := studio.Orchestrator.CaptureLiveFrame(cmd.Context(), id, atSeconds)
	if err != nil {
		return nil, err
	}
	if _, err := studio.Orchestrator.AnalyzeActiveFrame(cmd.Context(), id, frame); err != nil {
		return nil, err
	}
	entry, ok := studio.Store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrEntryNotFound, id)
	}
	return entry, nil
}

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate a clip from a prompt and add it to the catalog",
	Long: `Generate a clip from a prompt and add it to the catalog. Generation takes
minutes; progress is shown until the clip is ready. Interrupting stops the
wait at the next poll.

The clip itself lives only for this run. Use --save to keep a copy.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		progress := newSpinner(cmd.ErrOrStderr(), "Submitting")
		entry, err := studio.Orchestrator.GenerateFromPrompt(cmd.Context(), args[0], progress.Update)
		progress.Finish()
		if err != nil {
			return err
		}

		if path, _ := cmd.Flags().GetString("save"); len(path) > 0 {
			if err := saveAsset(entry, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "saved %s\n", path)
		}
		return printEntries(cmd.OutOrStdout(), []*model.CatalogEntry{entry}, false)
	},
}

// saveAsset copies the entry's session asset to path.
func saveAsset(entry *model.CatalogEntry, path string) error {
	body, _, err := studio.Assets.Open(entry.AssetRef)
	if err != nil {
		return err
	}
	defer body.Close()

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, body); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <id>",
	Short: "Describe a still of an entry and merge the summary and tags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("frame")
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		kind, err := filetype.Match(data)
		if err != nil || !filetype.IsImage(data) {
			return fmt.Errorf("%s is not an image", path)
		}

		analysis, err := studio.Orchestrator.AnalyzeActiveFrame(cmd.Context(), args[0], commands.EncodeDataURI(kind.MIME.Value, data))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Summary:   %s\n", analysis.Summary)
		fmt.Fprintf(out, "Tags:      %v\n", analysis.Tags)
		fmt.Fprintf(out, "Suggested: %s\n", analysis.SuggestedTitle)
		return nil
	},
}

func init() {
	uploadCmd.Flags().Float64("analyze-at", 0, "Analyze the frame at this many seconds after importing")
	generateCmd.Flags().String("save", "", "Copy the generated clip to this path")
	analyzeCmd.Flags().String("frame", "", "Still image to analyze (JPEG, PNG or WebP)")
	_ = analyzeCmd.MarkFlagRequired("frame")
}
