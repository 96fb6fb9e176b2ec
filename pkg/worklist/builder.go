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

package worklist

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/mediamirror/pkg/catalog"
	"github.com/walteh/mediamirror/pkg/sanitize"
	"gitlab.com/tozd/go/errors"
)

const (
	// DefaultLegacyArtField is the single-valued art field older products carry.
	DefaultLegacyArtField = "original-art"
	// DefaultArtFieldPattern matches the multi-valued art field family
	// ("Original Art Front", "original art back", ...).
	DefaultArtFieldPattern = `(?i)^original\s*art\b`

	remotePlaceholder = "remote-file"
)

// Options configures a Builder.
type Options struct {
	Fs afero.Fs

	// Site replaces the catalog's site name when set.
	Site string

	// UploadsBaseURL and UploadsBaseDir map URLs served from the local uploads
	// directory back to files on disk.
	UploadsBaseURL string
	UploadsBaseDir string

	LegacyArtField  string
	ArtFieldPattern string

	// Exclude holds doublestar patterns matched against "<dir>/<name>".
	Exclude []string
}

// Builder produces work lists from catalogs.
type Builder struct {
	fs       afero.Fs
	site     string
	baseURL  string
	baseDir  string
	legacy   string
	artField *regexp.Regexp
	exclude  []string
}

// NewBuilder validates opts and fills defaults.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Fs == nil {
		return nil, errors.New("filesystem is required")
	}

	legacy := opts.LegacyArtField
	if legacy == "" {
		legacy = DefaultLegacyArtField
	}

	pattern := opts.ArtFieldPattern
	if pattern == "" {
		pattern = DefaultArtFieldPattern
	}
	artField, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Errorf("compiling art field pattern: %w", err)
	}

	for _, p := range opts.Exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid exclude pattern %q", p)
		}
	}

	return &Builder{
		fs:       opts.Fs,
		site:     opts.Site,
		baseURL:  opts.UploadsBaseURL,
		baseDir:  opts.UploadsBaseDir,
		legacy:   legacy,
		artField: artField,
		exclude:  opts.Exclude,
	}, nil
}

// Build returns the ordered, de-duplicated work list for cat. Records with
// missing or unreadable media contribute nothing.
func (b *Builder) Build(ctx context.Context, cat catalog.Catalog) ([]Item, error) {
	logger := zerolog.Ctx(ctx)

	siteName := cat.Site
	if b.site != "" {
		siteName = b.site
	}
	site := sanitize.Segment(siteName)

	var items []Item
	for _, rec := range cat.Records {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("building work list: %w", err)
		}
		items = append(items, b.recordItems(site, rec)...)
	}

	emitted := len(items)
	items = b.filterExcluded(items)
	excluded := emitted - len(items)
	items = Dedupe(items)

	logger.Debug().
		Str("site", site).
		Int("records", len(cat.Records)).
		Int("emitted", emitted).
		Int("excluded", excluded).
		Int("items", len(items)).
		Msg("built work list")

	return items, nil
}

func (b *Builder) recordItems(site string, rec catalog.Record) []Item {
	title := rec.Title
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("product-%d", rec.ID)
	}
	dir := path.Join(site, sanitize.Segment(title))

	var items []Item

	if rec.PrimaryImage != "" {
		if size, ok := b.readable(rec.PrimaryImage); ok {
			items = append(items, Item{
				DestDir: dir,
				Name:    sanitize.Segment(filepath.Base(rec.PrimaryImage)),
				Size:    size,
				Source:  LocalSource(rec.PrimaryImage),
			})
		}
	}

	seenVariant := map[string]struct{}{}
	for _, v := range rec.Variants {
		key := strings.TrimSpace(v.Key)
		if key == "" {
			continue
		}
		if _, ok := seenVariant[key]; ok {
			continue
		}
		// the first variant carrying an image claims the key, usable or not
		if v.Path == "" && strings.TrimSpace(v.URL) == "" {
			continue
		}
		seenVariant[key] = struct{}{}

		var item Item
		var ok bool
		if v.Path != "" {
			var size int64
			if size, ok = b.readable(v.Path); ok {
				item = Item{
					Name:   sanitize.Segment(filepath.Base(v.Path)),
					Size:   size,
					Source: LocalSource(v.Path),
				}
			}
		}
		if !ok && strings.TrimSpace(v.URL) != "" {
			item, ok = b.resolve(strings.TrimSpace(v.URL)), true
		}
		if !ok {
			continue
		}

		item.DestDir = dir
		item.Name = sanitize.Segment(key) + "-" + item.Name
		items = append(items, item)
	}

	for _, u := range b.artURLs(rec.Meta) {
		item := b.resolve(u)
		item.DestDir = dir
		items = append(items, item)
	}

	return items
}

// artURLs collects the legacy field followed by every field in the art family,
// de-duplicated by exact string.
func (b *Builder) artURLs(meta catalog.Meta) []string {
	var urls []string
	seen := map[string]struct{}{}
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		urls = append(urls, v)
	}

	add(meta.First(b.legacy))
	for _, key := range meta.Keys() {
		if !b.artField.MatchString(key) {
			continue
		}
		for _, v := range meta[key] {
			add(v)
		}
	}
	return urls
}

// resolve maps location to a local file when the uploads mapping (or the
// location itself) points at a readable file, and to a remote item otherwise.
func (b *Builder) resolve(location string) Item {
	if local := b.localPathFor(location); local != "" {
		if size, ok := b.readable(local); ok {
			return Item{
				Name:   sanitize.Segment(filepath.Base(local)),
				Size:   size,
				Source: LocalSource(local),
			}
		}
	}

	return Item{
		Name:   remoteName(location),
		Source: RemoteSource(location),
	}
}

func (b *Builder) localPathFor(location string) string {
	if b.baseURL != "" && b.baseDir != "" && strings.HasPrefix(location, b.baseURL) {
		rel := strings.TrimPrefix(location, b.baseURL)
		if unescaped, err := url.PathUnescape(rel); err == nil {
			rel = unescaped
		}
		return strings.TrimRight(b.baseDir, "/") + "/" + strings.TrimLeft(rel, "/")
	}
	if !strings.Contains(location, "://") {
		return location
	}
	return ""
}

// readable reports the size of p when it is a regular file that can be opened.
func (b *Builder) readable(p string) (int64, bool) {
	f, err := b.fs.Open(p)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return 0, false
	}
	return info.Size(), true
}

func (b *Builder) filterExcluded(items []Item) []Item {
	if len(b.exclude) == 0 {
		return items
	}
	out := items[:0]
	for _, it := range items {
		if b.excluded(it.RelPath()) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func (b *Builder) excluded(rel string) bool {
	for _, p := range b.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// remoteName derives a file name from the URL path, falling back to a
// placeholder for malformed or path-less URLs.
func remoteName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return remotePlaceholder
	}
	name := path.Base(u.Path)
	switch name {
	case "", ".", "/":
		return remotePlaceholder
	}
	return sanitize.Segment(name)
}
