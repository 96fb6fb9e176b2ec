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

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// utf8BOM prefixes files saved by some Windows editors and hosting panels.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// 🔧 JSONParser reads a mirror config written as a single JSON object.
// Unknown fields are rejected and syntax errors carry a line and column.
type JSONParser struct{}

func init() {
	Register(&JSONParser{})
}

// 🔍 CanParse checks if this parser can handle the given file
func (p *JSONParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(filename)), ".json")
}

// 📝 Parse decodes data into a Config
func (p *JSONParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var cfg Config
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		if line, col, ok := jsonErrorPosition(data, err); ok {
			return nil, errors.Errorf("parsing JSON at line %d, column %d: %w", line, col, err)
		}
		return nil, errors.Errorf("parsing JSON: %w", err)
	}

	// a second object or stray text usually means a botched merge
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		line, col := lineColumn(data, decoder.InputOffset())
		return nil, errors.Errorf("parsing JSON at line %d, column %d: unexpected data after the config object", line, col)
	}
	return &cfg, nil
}

func jsonErrorPosition(data []byte, err error) (int, int, bool) {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := lineColumn(data, syntaxErr.Offset)
		return line, col, true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := lineColumn(data, typeErr.Offset)
		return line, col, true
	}
	return 0, 0, false
}

// lineColumn converts a byte offset into 1-based line and column numbers.
func lineColumn(data []byte, offset int64) (int, int) {
	offset = min(max(offset, 0), int64(len(data)))
	before := data[:offset]
	line := bytes.Count(before, []byte("\n")) + 1
	col := len(before) - bytes.LastIndexByte(before, '\n')
	return line, col
}
