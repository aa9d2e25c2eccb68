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
	"fmt"
	"strings"
)

const gcsScheme = "gs://"

// GCSObject addresses one Cloud Storage object.
type GCSObject struct {
	Bucket   string
	Name     string
	MIMEType string
}

// URI renders the object as gs://bucket/name.
func (o *GCSObject) URI() string {
	return fmt.Sprintf("%s%s/%s", gcsScheme, o.Bucket, o.Name)
}

// IsGCSURI reports whether location uses the gs:// scheme.
func IsGCSURI(location string) bool {
	return strings.HasPrefix(location, gcsScheme)
}

// ParseGCSURI splits gs://bucket/path/to/object.
func ParseGCSURI(location string) (*GCSObject, error) {
	if !IsGCSURI(location) {
		return nil, fmt.Errorf("not a gs:// uri: %q", location)
	}
	bucket, name, ok := strings.Cut(strings.TrimPrefix(location, gcsScheme), "/")
	if !ok || len(bucket) == 0 || len(name) == 0 {
		return nil, fmt.Errorf("gs:// uri needs a bucket and an object name: %q", location)
	}
	return &GCSObject{Bucket: bucket, Name: name}, nil
}
