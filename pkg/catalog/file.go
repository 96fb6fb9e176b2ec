// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// FileReader reads a catalog from a YAML or JSON document.
type FileReader struct {
	Fs   afero.Fs
	Path string
}

// NewFileReader creates a reader for path on fs.
func NewFileReader(fs afero.Fs, path string) *FileReader {
	return &FileReader{Fs: fs, Path: path}
}

func (r *FileReader) Read(ctx context.Context) (Catalog, error) {
	zerolog.Ctx(ctx).Debug().Str("path", r.Path).Msg("reading catalog file")

	data, err := afero.ReadFile(r.Fs, r.Path)
	if err != nil {
		return Catalog{}, errors.Errorf("reading catalog file: %w", err)
	}

	var cat Catalog
	switch strings.ToLower(filepath.Ext(r.Path)) {
	case ".json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cat); err != nil {
			return Catalog{}, errors.Errorf("parsing JSON catalog: %w", err)
		}
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cat); err != nil {
			return Catalog{}, errors.Errorf("parsing YAML catalog: %w", err)
		}
	default:
		return Catalog{}, errors.Errorf("unsupported catalog extension %q", filepath.Ext(r.Path))
	}

	return cat, nil
}
