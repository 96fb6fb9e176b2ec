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
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/mediamirror/cmd/mediamirror/opts"
	"github.com/walteh/mediamirror/pkg/batch"
	"github.com/walteh/mediamirror/pkg/status"
)

// withApp opens the wired App for one command invocation and closes it after.
func withApp(cmd *cobra.Command, o *opts.RootOpts, fn func(ctx context.Context, app *opts.App) error) error {
	ctx := cmd.Context()

	app, err := o.Open(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(ctx, app)
}

// 🖨️ printers writes prefixed user messages to the command's output
type printers struct {
	success *pterm.PrefixPrinter
	info    *pterm.PrefixPrinter
	warning *pterm.PrefixPrinter
}

func newPrinters(w io.Writer) printers {
	return printers{
		success: pterm.Success.WithPrefix(pterm.Prefix{Text: "✅"}).WithWriter(w),
		info:    pterm.Info.WithPrefix(pterm.Prefix{Text: "📦"}).WithWriter(w),
		warning: pterm.Warning.WithPrefix(pterm.Prefix{Text: "⚠️"}).WithWriter(w),
	}
}

func renderProgress(w io.Writer, prog batch.Progress, asJSON bool) error {
	format := status.FormatText
	if asJSON {
		format = status.FormatJSON
	}
	return status.NewRenderer().Render(w, prog, format)
}
