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

	"github.com/spf13/cobra"
	"github.com/walteh/mediamirror/cmd/mediamirror/opts"
	"gitlab.com/tozd/go/errors"
)

// NewStartCmd creates a new start command
func NewStartCmd(o *opts.RootOpts) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Queue a fresh mirror job",
		Long: `Start rebuilds the work list from the catalog and replaces any current job.
It will:
1. Read every published record from the catalog
2. Plan the primary image, variant images and original art of each record
3. Store the queue and run the first chunk
4. With --wait, keep running chunks until the job is done`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, o, func(ctx context.Context, app *opts.App) error {
				out := cmd.OutOrStdout()
				p := newPrinters(out)

				jobID, err := app.Processor.Start(ctx)
				if err != nil {
					return errors.Errorf("starting job: %w", err)
				}

				prog, err := app.Processor.Progress(ctx)
				if err != nil {
					return errors.Errorf("reading progress: %w", err)
				}
				if wait {
					prog, err = app.Processor.Drain(ctx, jobID)
					if err != nil {
						return errors.Errorf("running job %s: %w", jobID, err)
					}
				}

				if err := renderProgress(out, prog, false); err != nil {
					return err
				}
				if prog.Running && prog.JobID == jobID {
					p.info.Printfln("job %s continues with `mediamirror resume`", jobID)
				} else {
					p.success.Printfln("job %s finished", jobID)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "run chunks until the job finishes")

	return cmd
}
