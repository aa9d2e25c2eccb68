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

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// UploadDateLayout renders dates like "Mar 4, 2025".
const UploadDateLayout = "Jan 2, 2006"

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders a byte count with 1024-based units and at most two
// decimals, trailing zeros dropped ("1.5 MB", "0 Bytes").
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	const k = 1024.0
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(k)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	value := math.Round(float64(bytes)/math.Pow(k, float64(i))*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + sizeUnits[i]
}

// FormatDuration renders whole seconds as "m:ss".
func FormatDuration(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	minutes := int(seconds) / 60
	secs := int(math.Mod(seconds, 60))
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// FormatUploadDate renders t with UploadDateLayout.
func FormatUploadDate(t time.Time) string {
	return t.Format(UploadDateLayout)
}

// TitleFromFileName keeps the part of the file name before the first dot.
func TitleFromFileName(fileName string) string {
	stem, _, _ := strings.Cut(fileName, ".")
	if len(stem) == 0 {
		return UntitledVideo
	}
	return stem
}

// DreamTitle derives a generated entry title from its prompt.
func DreamTitle(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > DreamTitlePrefixLength {
		runes = runes[:DreamTitlePrefixLength]
	}
	return fmt.Sprintf("Dream: %s...", string(runes))
}
