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

// NewProgressCmd creates a new progress command
func NewProgressCmd(o *opts.RootOpts) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show the current job's progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, o, func(ctx context.Context, app *opts.App) error {
				prog, err := app.Processor.Progress(ctx)
				if err != nil {
					return errors.Errorf("reading progress: %w", err)
				}
				return renderProgress(cmd.OutOrStdout(), prog, asJSON)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print progress as JSON")

	return cmd
}
