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

// NewCancelCmd creates a new cancel command
func NewCancelCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the current job",
		Long: `Cancel deletes the current job and its queue. Items already mirrored stay
on disk. A chunk in flight stops at its next item.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, o, func(ctx context.Context, app *opts.App) error {
				if err := app.Processor.Cancel(ctx); err != nil {
					return errors.Errorf("canceling job: %w", err)
				}
				newPrinters(cmd.OutOrStdout()).success.Println("canceled")
				return nil
			})
		},
	}
}
