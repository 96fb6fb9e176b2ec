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
	"strings"

	"github.com/fatih/color"
	"github.com/walteh/mediamirror/pkg/transfer"
)

// 🎨 Display configuration
const (
	itemIndent   = 4  // spaces to indent item entries
	nameWidth    = 45 // Base width for the item path
	kindWidth    = 10 // Width for the outcome kind
	counterWidth = 9  // Width for the done/total counter
)

// 🎯 FormatItemLine formats one processed item for the console
func FormatItemLine(rel string, kind transfer.Kind, done, total int) string {
	var prefix string
	switch kind {
	case transfer.KindCopied:
		prefix = color.GreenString("✓")
	case transfer.KindFetched:
		prefix = color.BlueString("⇣")
	case transfer.KindFailed:
		prefix = color.RedString("✗")
	default:
		prefix = color.HiBlackString("-")
	}

	namePart := fmt.Sprintf("%-*s", nameWidth, rel)
	kindPart := fmt.Sprintf("%-*s", kindWidth, string(kind))
	counterPart := fmt.Sprintf("%*s", counterWidth, fmt.Sprintf("%d/%d", done, total))

	return fmt.Sprintf("%s%s %s %s %s",
		strings.Repeat(" ", itemIndent),
		prefix,
		namePart,
		kindPart,
		counterPart,
	)
}
