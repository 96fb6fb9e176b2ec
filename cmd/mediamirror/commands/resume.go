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

// NewResumeCmd creates a new resume command
func NewResumeCmd(o *opts.RootOpts) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "resume [job-id]",
		Short: "Run the next chunk of the current job",
		Long: `Resume runs the next chunk of a job left running by an earlier invocation.
Without a job id the current job is used. A job id that is not the current
running job is ignored.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var jobID string
			if len(args) == 1 {
				jobID = args[0]
			}

			return withApp(cmd, o, func(ctx context.Context, app *opts.App) error {
				out := cmd.OutOrStdout()
				p := newPrinters(out)

				prog, err := app.Processor.Resume(ctx, jobID)
				if err != nil {
					return errors.Errorf("resuming job: %w", err)
				}
				if jobID == "" {
					jobID = prog.JobID
				}

				if wait && prog.Running && prog.JobID == jobID {
					prog, err = app.Processor.Drain(ctx, jobID)
					if err != nil {
						return errors.Errorf("running job %s: %w", jobID, err)
					}
				}

				if err := renderProgress(out, prog, false); err != nil {
					return err
				}
				switch {
				case jobID == "":
					p.info.Println("no job to resume")
				case prog.JobID != jobID:
					p.warning.Printfln("job %s is not the current job", jobID)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "run chunks until the job finishes")

	return cmd
}
