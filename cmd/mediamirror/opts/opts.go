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

package opts

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/mediamirror/pkg/batch"
	"github.com/walteh/mediamirror/pkg/catalog"
	"github.com/walteh/mediamirror/pkg/config"
	"github.com/walteh/mediamirror/pkg/jobstore"
	"github.com/walteh/mediamirror/pkg/kv"
	"github.com/walteh/mediamirror/pkg/kv/boltkv"
	"github.com/walteh/mediamirror/pkg/kv/memkv"
	"github.com/walteh/mediamirror/pkg/log"
	"github.com/walteh/mediamirror/pkg/scheduler"
	"github.com/walteh/mediamirror/pkg/transfer"
	"github.com/walteh/mediamirror/pkg/worklist"
	"gitlab.com/tozd/go/errors"
)

// ConfigEnv names the environment variable that selects the config file.
const ConfigEnv = "MEDIAMIRROR_CONFIG"

// DefaultConfigFile is used when neither --config nor ConfigEnv is set.
const DefaultConfigFile = "mediamirror.yaml"

// RootOpts contains shared options used by all commands
type RootOpts struct {
	ConfigFile string
	Debug      bool

	// Console receives user facing output; os.Stdout when nil.
	Console io.Writer
	// Fs is the filesystem for catalogs, uploads and the destination.
	Fs afero.Fs
}

// 🧩 App is a fully wired processor and its collaborators
type App struct {
	Config    *config.Config
	Processor *batch.Processor
	Timer     *scheduler.Timer
	Logger    *log.Logger

	sweeper interface {
		Sweep(ctx context.Context) (int, error)
	}
	closers []func() error
}

// ConfigPath resolves the config file from the flag, then the environment.
func (o *RootOpts) ConfigPath() string {
	if o.ConfigFile != "" {
		return o.ConfigFile
	}
	if env := os.Getenv(ConfigEnv); env != "" {
		return env
	}
	return DefaultConfigFile
}

func (o *RootOpts) console() io.Writer {
	if o.Console == nil {
		return os.Stdout
	}
	return o.Console
}

func (o *RootOpts) fs() afero.Fs {
	if o.Fs == nil {
		return afero.NewOsFs()
	}
	return o.Fs
}

// 🏗️ Open loads the configuration and wires the catalog, store, executor and
// scheduler into a Processor. Callers must Close the App.
func (o *RootOpts) Open(ctx context.Context) (*App, error) {
	fs := o.fs()

	cfg, err := config.LoadFs(ctx, fs, o.ConfigPath())
	if err != nil {
		return nil, errors.Errorf("loading config: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("config", cfg.String()).Msg("configuration loaded")

	app := &App{Config: cfg}

	reader, err := app.openCatalog(ctx, fs)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	backend, err := app.openStore()
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	planner, err := worklist.NewBuilder(worklist.Options{
		Fs:              fs,
		Site:            cfg.Site,
		UploadsBaseURL:  cfg.Uploads.BaseURL,
		UploadsBaseDir:  cfg.Uploads.BaseDir,
		LegacyArtField:  cfg.Art.LegacyField,
		ArtFieldPattern: cfg.Art.FieldPattern,
		Exclude:         cfg.Exclude,
	})
	if err != nil {
		_ = app.Close()
		return nil, errors.Errorf("creating work list builder: %w", err)
	}

	store := jobstore.New(backend, jobstore.Options{
		Namespace: cfg.Store.Namespace,
		JobTTL:    cfg.Batch.JobTTL.Std(),
		QueueTTL:  cfg.Batch.QueueTTL.Std(),
	})

	executor := transfer.New(transfer.Options{
		Fs:          fs,
		Root:        cfg.Destination,
		HeadTimeout: cfg.HTTP.HeadTimeout.Std(),
		GetTimeout:  cfg.HTTP.GetTimeout.Std(),
		UserAgent:   cfg.HTTP.UserAgent,
	})

	app.Timer = scheduler.NewTimer()
	app.closers = append(app.closers, func() error {
		app.Timer.Stop()
		return nil
	})
	app.Logger = log.New(o.console(), *zerolog.Ctx(ctx))

	app.Processor, err = batch.New(batch.Options{
		Catalog:   reader,
		Planner:   planner,
		Store:     store,
		Executor:  executor,
		Scheduler: app.Timer,
		Observer:  app.Logger,
		ChunkSize: cfg.Batch.ChunkSize,
		Delay:     cfg.Batch.Delay.Std(),
		Lease:     cfg.Batch.Lease.Std(),
	})
	if err != nil {
		_ = app.Close()
		return nil, errors.Errorf("creating processor: %w", err)
	}

	return app, nil
}

func (a *App) openCatalog(ctx context.Context, fs afero.Fs) (catalog.Reader, error) {
	switch a.Config.Catalog.Driver {
	case config.CatalogSQLite:
		reader, err := catalog.OpenSQLite(ctx, a.Config.Catalog.Path)
		if err != nil {
			return nil, errors.Errorf("opening sqlite catalog: %w", err)
		}
		a.closers = append(a.closers, reader.Close)
		return reader, nil
	default:
		return catalog.NewFileReader(fs, a.Config.Catalog.Path), nil
	}
}

func (a *App) openStore() (kv.Store, error) {
	switch a.Config.Store.Driver {
	case config.StoreMemory:
		return memkv.New(), nil
	default:
		store, err := boltkv.Open(a.Config.Store.Path)
		if err != nil {
			return nil, errors.Errorf("opening job store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.sweeper = store
		return store, nil
	}
}

// Sweep drops expired keys from stores that keep them on disk.
func (a *App) Sweep(ctx context.Context) error {
	if a.sweeper == nil {
		return nil
	}
	if _, err := a.sweeper.Sweep(ctx); err != nil {
		return errors.Errorf("sweeping job store: %w", err)
	}
	return nil
}

// Close stops pending callbacks and releases the store and catalog, in
// reverse order of opening.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
