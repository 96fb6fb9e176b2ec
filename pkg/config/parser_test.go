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

package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 🧪 TestParserRegistration tests the parser registration system
func TestParserRegistration(t *testing.T) {
	originalParsers := parsers
	defer func() {
		parsers = originalParsers
	}()

	parsers = nil

	mockParser := &struct {
		Parser
		canParse bool
	}{
		canParse: true,
	}

	Register(mockParser)
	assert.Len(t, parsers, 1, "should have 1 parser registered")
	assert.Equal(t, mockParser, parsers[0], "registered parser should match")
}

// 🧪 TestParserSelection tests parser selection by file extension
func TestParserSelection(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     Parser
	}{
		{name: "yaml_file", filename: "mirror.yaml", want: &YAMLParser{}},
		{name: "yml_file", filename: "mirror.yml", want: &YAMLParser{}},
		{name: "upper_case_yaml", filename: "MIRROR.YAML", want: &YAMLParser{}},
		{name: "json_file", filename: "mirror.json", want: &JSONParser{}},
		{name: "hcl_file", filename: "mirror.hcl", want: &HCLParser{}},
		{name: "unknown_extension", filename: "mirror.txt", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetParser(tt.filename)
			if tt.want == nil {
				assert.Nil(t, got, "should return nil for unknown extension")
				return
			}
			require.NotNil(t, got, "should return a parser")
			assert.IsType(t, tt.want, got, "should return correct parser type")
		})
	}
}

// 🧪 TestHCLParsing tests HCL config parsing
func TestHCLParsing(t *testing.T) {
	tests := []struct {
		name        string
		config      string
		wantErr     bool
		errContains string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "full_hcl",
			config: `
destination = "${env.MIRROR_ROOT}/mirror"
site        = "Bear Traxs"
exclude     = ["**/*.psd"]

catalog {
  driver = "sqlite"
  path   = "shop.db"
}

uploads {
  base_url = "https://shop.example.com/wp-content/uploads"
  base_dir = "/var/www/uploads"
}

store {
  driver = "memory"
}

batch {
  chunk_size = 3
  delay      = "2s"
  lease      = "1m"
}

http {
  get_timeout = "1m30s"
  user_agent  = "mirror-bot"
}

server {
  addr  = "127.0.0.1:9000"
  every = "24h"
}

art {
  legacy_field = "art-file"
}
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/data/mirror", cfg.Destination)
				assert.Equal(t, "Bear Traxs", cfg.Site)
				assert.Equal(t, []string{"**/*.psd"}, cfg.Exclude)
				assert.Equal(t, CatalogArgs{Driver: "sqlite", Path: "shop.db"}, cfg.Catalog)
				assert.Equal(t, "/var/www/uploads", cfg.Uploads.BaseDir)
				assert.Equal(t, "memory", cfg.Store.Driver)
				assert.Equal(t, 3, cfg.Batch.ChunkSize)
				assert.Equal(t, 2*time.Second, cfg.Batch.Delay.Std())
				assert.Equal(t, time.Minute, cfg.Batch.Lease.Std())
				assert.Zero(t, cfg.Batch.JobTTL)
				assert.Equal(t, 90*time.Second, cfg.HTTP.GetTimeout.Std())
				assert.Equal(t, "mirror-bot", cfg.HTTP.UserAgent)
				assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
				assert.Equal(t, 24*time.Hour, cfg.Server.Every.Std())
				assert.Equal(t, "art-file", cfg.Art.LegacyField)
			},
		},
		{
			name: "minimal_hcl",
			config: `
destination = "/srv/mirror"
catalog {
  path = "catalog.yaml"
}
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/srv/mirror", cfg.Destination)
				assert.Equal(t, "catalog.yaml", cfg.Catalog.Path)
				assert.Empty(t, cfg.Store.Driver)
			},
		},
		{
			name: "invalid_hcl_syntax",
			config: `
destination =
`,
			wantErr:     true,
			errContains: "parsing HCL",
		},
		{
			name: "invalid_block_type",
			config: `
destination = "/srv/mirror"
catalog {
  path = "catalog.yaml"
}
unknown_block {
  foo = "bar"
}`,
			wantErr:     true,
			errContains: "decoding HCL",
		},
		{
			name: "missing_catalog_block",
			config: `
destination = "/srv/mirror"
`,
			wantErr:     true,
			errContains: "decoding HCL",
		},
		{
			name: "bad_duration",
			config: `
destination = "/srv/mirror"
catalog {
  path = "catalog.yaml"
}
batch {
  delay = "soon"
}`,
			wantErr:     true,
			errContains: "batch.delay",
		},
	}

	parser := &HCLParser{Environ: func() []string { return []string{"MIRROR_ROOT=/data", "EMPTY="} }}
	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parser.Parse(ctx, []byte(tt.config))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

// 🧪 TestJSONParsing tests strict JSON decoding
func TestJSONParsing(t *testing.T) {
	tests := []struct {
		name        string
		config      string
		errContains string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:   "valid_json",
			config: `{"destination":"/srv/mirror","catalog":{"path":"c.json"},"batch":{"delay":"10s","chunk_size":2}}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/srv/mirror", cfg.Destination)
				assert.Equal(t, 10*time.Second, cfg.Batch.Delay.Std())
				assert.Equal(t, 2, cfg.Batch.ChunkSize)
			},
		},
		{
			name:        "unknown_field",
			config:      `{"destination":"/srv/mirror","bogus":true}`,
			errContains: "parsing JSON",
		},
		{
			name:        "bad_duration",
			config:      `{"destination":"/srv/mirror","batch":{"delay":"later"}}`,
			errContains: "invalid duration",
		},
		{
			name:        "numeric_duration",
			config:      `{"destination":"/srv/mirror","batch":{"delay":5}}`,
			errContains: "decoding duration",
		},
		{
			name:   "leading_bom",
			config: "\xEF\xBB\xBF" + `{"destination":"/srv/mirror","catalog":{"path":"c.json"}}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/srv/mirror", cfg.Destination)
				assert.Equal(t, "c.json", cfg.Catalog.Path)
			},
		},
		{
			name:        "syntax_error_position",
			config:      "{\n  \"destination\": \"/srv/mirror\",\n  \"site\": oops\n}",
			errContains: "parsing JSON at line 3, column",
		},
		{
			name:        "wrong_type_position",
			config:      "{\n  \"destination\": \"/srv/mirror\",\n  \"batch\": {\"chunk_size\": \"six\"}\n}",
			errContains: "parsing JSON at line 3",
		},
		{
			name:        "trailing_object",
			config:      `{"destination":"/srv/mirror"}` + "\n" + `{"destination":"/srv/other"}`,
			errContains: "unexpected data after the config object",
		},
		{
			name:   "trailing_whitespace",
			config: `{"destination":"/srv/mirror"}` + "\n\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/srv/mirror", cfg.Destination)
			},
		},
	}

	parser := &JSONParser{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parser.Parse(context.Background(), []byte(tt.config))
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
