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

// Package worklist turns catalog records into the ordered, de-duplicated list
// of files a job has to mirror.
package worklist

import "path"

// SourceKind tags where an item's bytes come from.
type SourceKind string

const (
	SourceLocal  SourceKind = "local"
	SourceRemote SourceKind = "remote"
)

// Source is either a local filesystem path or a remote URL, never both.
type Source struct {
	Kind     SourceKind `json:"kind"`
	Location string     `json:"location"`
}

func LocalSource(p string) Source {
	return Source{Kind: SourceLocal, Location: p}
}

func RemoteSource(u string) Source {
	return Source{Kind: SourceRemote, Location: u}
}

func (s Source) IsRemote() bool {
	return s.Kind == SourceRemote
}

// Item is one planned transfer.
type Item struct {
	// DestDir is the sanitized "<site>/<item>" directory relative to the destination root.
	DestDir string `json:"dir"`
	// Name is the sanitized file name inside DestDir.
	Name string `json:"name"`
	// Size is the expected byte count; 0 when unknown (remote sources).
	Size   int64  `json:"size"`
	Source Source `json:"source"`
}

// RelPath is the slash separated destination path relative to the root.
func (i Item) RelPath() string {
	return path.Join(i.DestDir, i.Name)
}

func (i Item) key() string {
	return i.DestDir + "|" + i.Name
}

// Dedupe drops items whose (DestDir, Name) was already seen, keeping the first
// occurrence and the relative order of the rest.
func Dedupe(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		k := it.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}
