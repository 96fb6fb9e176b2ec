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

// Package sanitize turns arbitrary display text into filesystem-safe path segments.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// Untitled is returned for input that is empty after cleanup.
const Untitled = "untitled"

var (
	hostileRun    = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1F\x7F]+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Segment strips markup, decodes entities, replaces path-hostile characters with
// "-" and collapses whitespace. It never returns an empty string, "." or "..".
//
// Control characters, tab and newline included, become "-". Input made only of
// whitespace and control characters is untitled.
func Segment(text string) string {
	s := stripTags(text)
	if strings.TrimFunc(s, isBlank) == "" {
		return Untitled
	}
	s = hostileRun.ReplaceAllString(s, "-")
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	switch s {
	case "", ".", "..":
		return Untitled
	}
	return s
}

func isBlank(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsControl(r)
}

// stripTags returns the text content of s with entities decoded. Script and
// style bodies are dropped.
func stripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			if isRawTextTag(z) {
				skip++
			}
		case html.EndTagToken:
			if isRawTextTag(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.WriteString(z.Token().Data)
			}
		}
	}
}

func isRawTextTag(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}
