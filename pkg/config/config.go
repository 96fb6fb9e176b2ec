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
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// 🔧 Defaults applied by Validate.
const (
	DefaultChunkSize   = 6
	DefaultDelay       = 5 * time.Second
	DefaultJobTTL      = time.Hour
	DefaultQueueTTL    = 6 * time.Hour
	DefaultLease       = 10 * time.Minute
	DefaultHeadTimeout = 15 * time.Second
	DefaultGetTimeout  = 45 * time.Second
	DefaultUserAgent   = "mediamirror"
	DefaultAddr        = ":8080"
	DefaultStorePath   = "mediamirror.db"

	CatalogFile   = "file"
	CatalogSQLite = "sqlite"
	StoreBolt     = "bolt"
	StoreMemory   = "memory"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse decodes the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📚 CatalogArgs selects where records come from.
type CatalogArgs struct {
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"` // file or sqlite, inferred from the extension when empty
	Path   string `json:"path" yaml:"path"`
}

// 📂 UploadsArgs maps URLs of the local uploads directory back to disk.
type UploadsArgs struct {
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	BaseDir string `json:"base_dir,omitempty" yaml:"base_dir,omitempty"`
}

// 💾 StoreArgs selects the job state backend.
type StoreArgs struct {
	Driver    string `json:"driver,omitempty" yaml:"driver,omitempty"` // bolt or memory
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// ⚙️ BatchArgs tunes chunked execution.
type BatchArgs struct {
	ChunkSize int      `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`
	Delay     Duration `json:"delay,omitempty" yaml:"delay,omitempty"`
	JobTTL    Duration `json:"job_ttl,omitempty" yaml:"job_ttl,omitempty"`
	QueueTTL  Duration `json:"queue_ttl,omitempty" yaml:"queue_ttl,omitempty"`
	Lease     Duration `json:"lease,omitempty" yaml:"lease,omitempty"`
}

// 🌐 HTTPArgs configures remote fetches.
type HTTPArgs struct {
	HeadTimeout Duration `json:"head_timeout,omitempty" yaml:"head_timeout,omitempty"`
	GetTimeout  Duration `json:"get_timeout,omitempty" yaml:"get_timeout,omitempty"`
	UserAgent   string   `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// 🖥️ ServerArgs configures the serve command.
type ServerArgs struct {
	Addr  string   `json:"addr,omitempty" yaml:"addr,omitempty"`
	Every Duration `json:"every,omitempty" yaml:"every,omitempty"` // start a job on this interval, zero disables
}

// 🎨 ArtArgs names the meta fields holding original art URLs.
type ArtArgs struct {
	LegacyField  string `json:"legacy_field,omitempty" yaml:"legacy_field,omitempty"`
	FieldPattern string `json:"field_pattern,omitempty" yaml:"field_pattern,omitempty"`
}

// 📚 Config represents the complete configuration
type Config struct {
	Destination string      `json:"destination" yaml:"destination"`
	Site        string      `json:"site,omitempty" yaml:"site,omitempty"`
	Catalog     CatalogArgs `json:"catalog" yaml:"catalog"`
	Uploads     UploadsArgs `json:"uploads,omitempty" yaml:"uploads,omitempty"`
	Store       StoreArgs   `json:"store,omitempty" yaml:"store,omitempty"`
	Batch       BatchArgs   `json:"batch,omitempty" yaml:"batch,omitempty"`
	HTTP        HTTPArgs    `json:"http,omitempty" yaml:"http,omitempty"`
	Server      ServerArgs  `json:"server,omitempty" yaml:"server,omitempty"`
	Art         ArtArgs     `json:"art,omitempty" yaml:"art,omitempty"`
	Exclude     []string    `json:"exclude,omitempty" yaml:"exclude,omitempty"`

	location string
}

// 🎯 Load loads the configuration from a file on disk
func Load(ctx context.Context, path string) (*Config, error) {
	return LoadFs(ctx, afero.NewOsFs(), path)
}

// 🎯 LoadFs loads, parses and validates the configuration at path in fs.
func LoadFs(ctx context.Context, fs afero.Fs, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}
	cfg.location = path

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Location is the file the config was loaded from, empty when built in code.
func (cfg *Config) Location() string {
	return cfg.location
}

// 🔍 Validate checks required fields, resolves relative paths against the
// config file's directory and fills defaults.
func (cfg *Config) Validate() error {
	if cfg.Destination == "" {
		return errors.Errorf("destination is required")
	}
	if cfg.Catalog.Path == "" {
		return errors.Errorf("catalog.path is required")
	}

	cfg.Destination = cfg.resolve(cfg.Destination)
	cfg.Catalog.Path = cfg.resolve(cfg.Catalog.Path)

	switch cfg.Catalog.Driver {
	case "":
		cfg.Catalog.Driver = inferCatalogDriver(cfg.Catalog.Path)
	case CatalogFile, CatalogSQLite:
	default:
		return errors.Errorf("catalog.driver must be %q or %q, got %q", CatalogFile, CatalogSQLite, cfg.Catalog.Driver)
	}

	switch cfg.Store.Driver {
	case "":
		cfg.Store.Driver = StoreBolt
	case StoreBolt, StoreMemory:
	default:
		return errors.Errorf("store.driver must be %q or %q, got %q", StoreBolt, StoreMemory, cfg.Store.Driver)
	}
	if cfg.Store.Driver == StoreBolt {
		if cfg.Store.Path == "" {
			cfg.Store.Path = DefaultStorePath
		}
		cfg.Store.Path = cfg.resolve(cfg.Store.Path)
	}

	if cfg.Uploads.BaseDir != "" {
		cfg.Uploads.BaseDir = cfg.resolve(cfg.Uploads.BaseDir)
	}
	cfg.Uploads.BaseURL = strings.TrimRight(cfg.Uploads.BaseURL, "/")

	if cfg.Batch.ChunkSize < 0 {
		return errors.Errorf("batch.chunk_size must not be negative")
	}
	if cfg.Batch.ChunkSize == 0 {
		cfg.Batch.ChunkSize = DefaultChunkSize
	}
	defaultDuration(&cfg.Batch.Delay, DefaultDelay)
	defaultDuration(&cfg.Batch.JobTTL, DefaultJobTTL)
	defaultDuration(&cfg.Batch.QueueTTL, DefaultQueueTTL)
	defaultDuration(&cfg.Batch.Lease, DefaultLease)
	if cfg.Batch.QueueTTL < cfg.Batch.JobTTL {
		return errors.Errorf("batch.queue_ttl (%s) must not be shorter than batch.job_ttl (%s)", cfg.Batch.QueueTTL, cfg.Batch.JobTTL)
	}

	defaultDuration(&cfg.HTTP.HeadTimeout, DefaultHeadTimeout)
	defaultDuration(&cfg.HTTP.GetTimeout, DefaultGetTimeout)
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = DefaultUserAgent
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if cfg.Server.Every < 0 {
		return errors.Errorf("server.every must not be negative")
	}

	return nil
}

// resolve makes p relative to the config file's directory.
func (cfg *Config) resolve(p string) string {
	if filepath.IsAbs(p) || cfg.location == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(filepath.Dir(cfg.location), p)
}

func inferCatalogDriver(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return CatalogSQLite
	default:
		return CatalogFile
	}
}

func defaultDuration(d *Duration, def time.Duration) {
	if *d <= 0 {
		*d = Duration(def)
	}
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	return fmt.Sprintf("%s:%s -> %s", cfg.Catalog.Driver, cfg.Catalog.Path, cfg.Destination)
}
