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

package status

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/walteh/mediamirror/pkg/batch"
	"gitlab.com/tozd/go/errors"
)

// 📊 State is the coarse lifecycle position of the current job
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateFinished State = "finished"
)

// StateOf classifies prog.
func StateOf(prog batch.Progress) State {
	switch {
	case prog.Running:
		return StateRunning
	case prog.JobID == "":
		return StateIdle
	default:
		return StateFinished
	}
}

// 📄 Format selects how Render prints progress
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a user supplied format name
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON:
		return Format(s), nil
	case "":
		return FormatText, nil
	default:
		return "", errors.Errorf("unknown format %q (want text or json)", s)
	}
}

// 🖨️ Renderer writes progress snapshots
type Renderer struct {
	formatter Formatter
}

// 🏭 NewRenderer creates a renderer using the default formatter
func NewRenderer() *Renderer {
	return &Renderer{formatter: NewDefaultFormatter()}
}

// Render writes prog to w in the given format
func (r *Renderer) Render(w io.Writer, prog batch.Progress, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(prog); err != nil {
			return errors.Errorf("encoding progress: %w", err)
		}
		return nil
	case FormatText, "":
		return r.renderText(w, prog)
	default:
		return errors.Errorf("unknown format %q", format)
	}
}

func (r *Renderer) renderText(w io.Writer, prog batch.Progress) error {
	var header string
	switch StateOf(prog) {
	case StateIdle:
		header = "⚪ idle"
	case StateRunning:
		header = "🟢 running  job " + prog.JobID
	case StateFinished:
		header = "🏁 finished job " + prog.JobID
	}

	if _, err := fmt.Fprintf(w, "%s\n%s\n💬 %s\n",
		header,
		r.formatter.FormatProgress(prog.Done, prog.Total),
		prog.LastMessage,
	); err != nil {
		return errors.Errorf("writing progress: %w", err)
	}
	return nil
}
