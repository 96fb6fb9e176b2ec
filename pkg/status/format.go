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
	"fmt"

	"github.com/walteh/mediamirror/pkg/transfer"
)

// 🎨 Message templates
const (
	EmojiProgress = "⏳"
	EmojiComplete = "✅"
	MsgProgress   = "%s Progress: %d/%d (%.0f%%)"
)

// Formatter defines how progress, outcomes and errors are worded
type Formatter interface {
	// FormatProgress formats a progress message
	FormatProgress(current, total int) string

	// FormatOutcome formats the result of one transfer
	FormatOutcome(outcome transfer.Outcome) string

	// FormatError formats an error message
	FormatError(err error) string
}

// DefaultFormatter provides a default implementation of Formatter
type DefaultFormatter struct{}

// NewDefaultFormatter creates a new DefaultFormatter
func NewDefaultFormatter() *DefaultFormatter {
	return &DefaultFormatter{}
}

// FormatProgress formats a progress message with percentage
func (f *DefaultFormatter) FormatProgress(current, total int) string {
	current = max(current, 0)
	total = max(total, 0)

	var percentage float64
	if total > 0 {
		percentage = min(float64(current)/float64(total)*100, 100)
	}

	emoji := EmojiProgress
	if current >= total && (total > 0 || current == 0) {
		emoji = EmojiComplete
	}
	return fmt.Sprintf(MsgProgress, emoji, current, total, percentage)
}

// FormatOutcome prefixes the outcome message with an emoji for its kind
func (f *DefaultFormatter) FormatOutcome(outcome transfer.Outcome) string {
	switch outcome.Kind {
	case transfer.KindCopied:
		return "✨ " + outcome.Message
	case transfer.KindFetched:
		return "📥 " + outcome.Message
	case transfer.KindSkipped:
		return "👍 " + outcome.Message
	case transfer.KindFailed:
		return "❌ " + outcome.Message
	default:
		return outcome.Message
	}
}

// FormatError formats an error message with emoji
func (f *DefaultFormatter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("❌ Error: %v", err)
}
