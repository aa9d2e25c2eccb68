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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jaycherian/gcp-go-media-studio/internal/cloud"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/services"
	"github.com/jaycherian/gcp-go-media-studio/internal/core/workflow"
	"github.com/jaycherian/gcp-go-media-studio/internal/telemetry"
)

var studio *workflow.Studio

var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "Generate, import and analyze videos in the media studio catalog",
	Example: `  # Import two clips and list the catalog
  studio upload holiday.mp4 commute.mov
  studio list

  # Generate a clip and keep a copy of it
  studio generate "a lighthouse in fog at dawn" --save lighthouse.mp4

  # Analyze a still of an existing entry
  studio analyze 6f1c... --frame still.jpg`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			_ = os.Setenv("LOG_LEVEL", "debug")
		}
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		telemetry.SetupLogging(config.Application.Runtime)

		var snapshot services.Snapshotter
		if ephemeral, _ := cmd.Flags().GetBool("ephemeral"); ephemeral {
			snapshot = &services.MemorySnapshot{}
		}
		studio, err = workflow.OpenStudio(cmd.Context(), config, snapshot)
		return err
	},
}

// loadConfig reads the layered TOML files. Flags override the environment.
func loadConfig(cmd *cobra.Command) (*cloud.Config, error) {
	if dir, _ := cmd.Flags().GetString("config-dir"); len(dir) > 0 {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, dir); err != nil {
			return nil, err
		}
	} else if len(os.Getenv(cloud.EnvConfigFilePrefix)) == 0 {
		if err := os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return nil, err
		}
	}
	if runtime, _ := cmd.Flags().GetString("runtime"); len(runtime) > 0 {
		if err := os.Setenv(cloud.EnvConfigRuntime, runtime); err != nil {
			return nil, err
		}
	} else if len(os.Getenv(cloud.EnvConfigRuntime)) == 0 {
		if err := os.Setenv(cloud.EnvConfigRuntime, "local"); err != nil {
			return nil, err
		}
	}

	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return config, nil
}

// closeStudio releases whatever the last command opened. It runs after
// every command, failed ones included.
func closeStudio() {
	if studio != nil {
		studio.Close()
		studio = nil
	}
}

// Execute runs the command line with a context cancelled on SIGINT or
// SIGTERM, so a running generation stops at its next poll.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer closeStudio()

	rootCmd.SetContext(ctx)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", userMessage(err))
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config-dir", "", "Directory holding .env.toml (default $GCP_CONFIG_PREFIX or ./configs)")
	rootCmd.PersistentFlags().String("runtime", "", "Configuration overlay to apply (default $GCP_RUNTIME or local)")
	rootCmd.PersistentFlags().Bool("ephemeral", false, "Keep the catalog in memory for this run only")

	rootCmd.AddCommand(listCmd, uploadCmd, generateCmd, analyzeCmd, deleteCmd, statsCmd)
}
