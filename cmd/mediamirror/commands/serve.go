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

package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/mediamirror/cmd/mediamirror/opts"
	"github.com/walteh/mediamirror/pkg/scheduler"
	"github.com/walteh/mediamirror/pkg/server"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

const sweepInterval = 15 * time.Minute

// NewServeCmd creates a new serve command
func NewServeCmd(o *opts.RootOpts) *cobra.Command {
	var (
		addr  string
		every time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the job control API and run chunks in the background",
		Long: `Serve exposes start, progress and cancel over HTTP and keeps running
scheduled chunks until interrupted. With --every (or server.every) a fresh job
is started on that interval. A job left running by an earlier process is
resumed on startup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, o, func(ctx context.Context, app *opts.App) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				logger := zerolog.Ctx(ctx)

				if !cmd.Flags().Changed("addr") {
					addr = app.Config.Server.Addr
				}
				if !cmd.Flags().Changed("every") {
					every = app.Config.Server.Every.Std()
				}

				if prog, err := app.Processor.Resume(ctx, ""); err != nil {
					logger.Warn().Err(err).Msg("resuming previous job")
				} else if prog.Running {
					logger.Info().Str("job_id", prog.JobID).Msg("resumed previous job")
				}

				srv := server.New(app.Processor, GetVersionInfo().Version, *logger)
				app.Logger.Header("serving on " + addr)

				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					return srv.Run(gctx, addr)
				})
				g.Go(func() error {
					return scheduler.Every(gctx, sweepInterval, app.Sweep)
				})
				if every > 0 {
					g.Go(func() error {
						return scheduler.Every(gctx, every, func(ctx context.Context) error {
							jobID, err := app.Processor.Start(ctx)
							if err != nil {
								return errors.Errorf("starting scheduled job: %w", err)
							}
							zerolog.Ctx(ctx).Info().Str("job_id", jobID).Msg("scheduled job started")
							return nil
						})
					})
				}

				return g.Wait()
			})
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (defaults to server.addr)")
	cmd.Flags().DurationVar(&every, "every", 0, "start a fresh job on this interval, 0 disables")

	return cmd
}
