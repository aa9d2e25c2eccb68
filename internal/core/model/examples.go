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

package model

// GetExampleAnalysis is a well-formed analysis. Prompt templates can embed it
// as EXAMPLE_JSON to show the model the expected shape.
func GetExampleAnalysis() *FrameAnalysis {
	return &FrameAnalysis{
		Summary: "A lone lighthouse stands on a basalt cliff at dusk while waves " +
			"break below and the beam sweeps across low storm clouds.",
		Tags:           []string{"lighthouse", "coast", "dusk", "storm", "cinematic"},
		SuggestedTitle: "Keeper of the Storm",
	}
}
