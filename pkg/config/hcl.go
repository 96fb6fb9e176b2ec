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
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct {
	// Environ overrides os.Environ for the env variable, used in tests.
	Environ func() []string
}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".hcl")
}

// 📝 Parse parses the config from HCL. Expressions may read environment
// variables through env, for example destination = "${env.HOME}/mirror".
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	environ := os.Environ
	if p.Environ != nil {
		environ = p.Environ
	}
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envObject(environ()),
		},
	}

	// Define HCL schema
	type hclConfig struct {
		Destination string   `hcl:"destination"`
		Site        string   `hcl:"site,optional"`
		Exclude     []string `hcl:"exclude,optional"`
		Catalog     struct {
			Driver string `hcl:"driver,optional"`
			Path   string `hcl:"path"`
		} `hcl:"catalog,block"`
		Uploads *struct {
			BaseURL string `hcl:"base_url,optional"`
			BaseDir string `hcl:"base_dir,optional"`
		} `hcl:"uploads,block"`
		Store *struct {
			Driver    string `hcl:"driver,optional"`
			Path      string `hcl:"path,optional"`
			Namespace string `hcl:"namespace,optional"`
		} `hcl:"store,block"`
		Batch *struct {
			ChunkSize int    `hcl:"chunk_size,optional"`
			Delay     string `hcl:"delay,optional"`
			JobTTL    string `hcl:"job_ttl,optional"`
			QueueTTL  string `hcl:"queue_ttl,optional"`
			Lease     string `hcl:"lease,optional"`
		} `hcl:"batch,block"`
		HTTP *struct {
			HeadTimeout string `hcl:"head_timeout,optional"`
			GetTimeout  string `hcl:"get_timeout,optional"`
			UserAgent   string `hcl:"user_agent,optional"`
		} `hcl:"http,block"`
		Server *struct {
			Addr  string `hcl:"addr,optional"`
			Every string `hcl:"every,optional"`
		} `hcl:"server,block"`
		Art *struct {
			LegacyField  string `hcl:"legacy_field,optional"`
			FieldPattern string `hcl:"field_pattern,optional"`
		} `hcl:"art,block"`
	}

	// Decode HCL
	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Convert to model
	cfg := &Config{
		Destination: hclCfg.Destination,
		Site:        hclCfg.Site,
		Exclude:     hclCfg.Exclude,
		Catalog: CatalogArgs{
			Driver: hclCfg.Catalog.Driver,
			Path:   hclCfg.Catalog.Path,
		},
	}

	if u := hclCfg.Uploads; u != nil {
		cfg.Uploads = UploadsArgs{BaseURL: u.BaseURL, BaseDir: u.BaseDir}
	}
	if s := hclCfg.Store; s != nil {
		cfg.Store = StoreArgs{Driver: s.Driver, Path: s.Path, Namespace: s.Namespace}
	}
	if a := hclCfg.Art; a != nil {
		cfg.Art = ArtArgs{LegacyField: a.LegacyField, FieldPattern: a.FieldPattern}
	}

	durations := durationParser{}
	if b := hclCfg.Batch; b != nil {
		cfg.Batch = BatchArgs{
			ChunkSize: b.ChunkSize,
			Delay:     durations.parse("batch.delay", b.Delay),
			JobTTL:    durations.parse("batch.job_ttl", b.JobTTL),
			QueueTTL:  durations.parse("batch.queue_ttl", b.QueueTTL),
			Lease:     durations.parse("batch.lease", b.Lease),
		}
	}
	if h := hclCfg.HTTP; h != nil {
		cfg.HTTP = HTTPArgs{
			HeadTimeout: durations.parse("http.head_timeout", h.HeadTimeout),
			GetTimeout:  durations.parse("http.get_timeout", h.GetTimeout),
			UserAgent:   h.UserAgent,
		}
	}
	if s := hclCfg.Server; s != nil {
		cfg.Server = ServerArgs{
			Addr:  s.Addr,
			Every: durations.parse("server.every", s.Every),
		}
	}
	if durations.err != nil {
		return nil, durations.err
	}

	return cfg, nil
}

// durationParser keeps the first error so conversions read as a list.
type durationParser struct {
	err error
}

func (d *durationParser) parse(field, s string) Duration {
	v, err := ParseDuration(s)
	if err != nil && d.err == nil {
		d.err = errors.Errorf("%s: %w", field, err)
	}
	return v
}

func envObject(environ []string) cty.Value {
	vars := map[string]cty.Value{}
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	if len(vars) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vars)
}
