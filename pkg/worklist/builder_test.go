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
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/mediamirror/pkg/catalog"
)

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

func writeFile(t *testing.T, fs afero.Fs, p string, size int) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, p, []byte(strings.Repeat("x", size)), 0644))
}

func newBuilder(t *testing.T, fs afero.Fs, mutate func(*Options)) *Builder {
	t.Helper()
	opts := Options{
		Fs:             fs,
		UploadsBaseURL: "https://shop.example.com/wp-content/uploads",
		UploadsBaseDir: "/srv/uploads",
	}
	if mutate != nil {
		mutate(&opts)
	}
	b, err := NewBuilder(opts)
	require.NoError(t, err)
	return b
}

func TestBuildPrimaryImages(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/srv/uploads/tee.png", 1000)
	writeFile(t, fs, "/srv/uploads/mug.png", 2000)

	items, err := newBuilder(t, fs, nil).Build(testContext(t), catalog.Catalog{
		Site: "Bear Traxs",
		Records: []catalog.Record{
			{ID: 1, Title: "Logo Tee", PrimaryImage: "/srv/uploads/tee.png"},
			{ID: 2, Title: "Camp Mug", PrimaryImage: "/srv/uploads/mug.png"},
			{ID: 3, Title: "Ghost", PrimaryImage: "/srv/uploads/missing.png"},
			{ID: 4, Title: "No Image"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []Item{
		{DestDir: "Bear Traxs/Logo Tee", Name: "tee.png", Size: 1000, Source: LocalSource("/srv/uploads/tee.png")},
		{DestDir: "Bear Traxs/Camp Mug", Name: "mug.png", Size: 2000, Source: LocalSource("/srv/uploads/mug.png")},
	}, items)
}

func TestBuildSanitizesNames(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/srv/uploads/a.png", 10)
	writeFile(t, fs, "/srv/uploads/b.png", 10)

	items, err := newBuilder(t, fs, nil).Build(testContext(t), catalog.Catalog{
		Site: "<b>Bear</b> Traxs: Shop",
		Records: []catalog.Record{
			{ID: 1, Title: "Tee / Black &amp; White", PrimaryImage: "/srv/uploads/a.png"},
			{ID: 42, Title: "   ", PrimaryImage: "/srv/uploads/b.png"},
		},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Bear Traxs- Shop/Tee - Black & White", items[0].DestDir)
	assert.Equal(t, "Bear Traxs- Shop/product-42", items[1].DestDir)
}

func TestBuildDotTitlesStayInsideDestination(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/srv/uploads/a.png", 10)
	writeFile(t, fs, "/srv/uploads/b.png", 10)

	items, err := newBuilder(t, fs, nil).Build(testContext(t), catalog.Catalog{
		Site: "..",
		Records: []catalog.Record{
			{ID: 1, Title: "..", PrimaryImage: "/srv/uploads/a.png"},
			{ID: 2, Title: ".", PrimaryImage: "/srv/uploads/b.png"},
		},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "untitled/untitled", items[0].DestDir)
	assert.Equal(t, "untitled/untitled", items[1].DestDir)
	for _, it := range items {
		assert.False(t, strings.HasPrefix(it.RelPath(), ".."), "%s escapes the root", it.RelPath())
	}
}

func TestBuildSiteOverride(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/srv/uploads/a.png", 10)

	items, err := newBuilder(t, fs, func(o *Options) { o.Site = "Override" }).Build(testContext(t), catalog.Catalog{
		Site:    "Catalog Site",
		Records: []catalog.Record{{ID: 1, Title: "Tee", PrimaryImage: "/srv/uploads/a.png"}},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Override/Tee", items[0].DestDir)
}

func TestBuildVariants(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/srv/uploads/tee-red.png", 300)
	writeFile(t, fs, "/srv/uploads/tee-red-2.png", 301)
	writeFile(t, fs, "/srv/uploads/tee-green.png", 302)

	items, err := newBuilder(t, fs, nil).Build(testContext(t), catalog.Catalog{
		Site: "Shop",
		Records: []catalog.Record{{
			ID:    1,
			Title: "Tee",
			Variants: []catalog.Variant{
				{Key: "Red", Path: "/srv/uploads/tee-red.png"},
				{Key: "Red", Path: "/srv/uploads/tee-red-2.png"},
				{Key: "Navy/Blue", Path: "/srv/uploads/gone.png", URL: "https://cdn.example.com/img/tee-navy.png"},
				{Key: "Green"},
				{Key: "Green", Path: "/srv/uploads/tee-green.png"},
				{Key: "Black", Path: "/srv/uploads/gone-black.png"},
				{Key: "Black", Path: "/srv/uploads/tee-red-2.png"},
				{Key: "", Path: "/srv/uploads/tee-red-2.png"},
			},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, []Item{
		{DestDir: "Shop/Tee", Name: "Red-tee-red.png", Size: 300, Source: LocalSource("/srv/uploads/tee-red.png")},
		{DestDir: "Shop/Tee", Name: "Navy-Blue-tee-navy.png", Source: RemoteSource("https://cdn.example.com/img/tee-navy.png")},
		{DestDir: "Shop/Tee", Name: "Green-tee-green.png", Size: 302, Source: LocalSource("/srv/uploads/tee-green.png")},
	}, items, "an unreadable Black image still claims the key")
}

func TestBuildArtURLs(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/srv/uploads/2025/01/front art.ai", 4096)

	items, err := newBuilder(t, fs, nil).Build(testContext(t), catalog.Catalog{
		Site: "Shop",
		Records: []catalog.Record{{
			ID:    1,
			Title: "Tee",
			Meta: catalog.Meta{
				"original-art":       {"  https://art.example.com/files/legacy.pdf  "},
				"Original Art Front": {"https://shop.example.com/wp-content/uploads/2025/01/front%20art.ai"},
				"original art back":  {"https://art.example.com/files/legacy.pdf", "", "https://shop.example.com/wp-content/uploads/missing.ai"},
				"OriginalArt":        {"https://art.example.com"},
				"original artwork":   {"https://art.example.com/ignored.ai"},
				"color":              {"https://art.example.com/not-art.ai"},
			},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, []Item{
		{DestDir: "Shop/Tee", Name: "legacy.pdf", Source: RemoteSource("https://art.example.com/files/legacy.pdf")},
		{DestDir: "Shop/Tee", Name: "front art.ai", Size: 4096, Source: LocalSource("/srv/uploads/2025/01/front art.ai")},
		{DestDir: "Shop/Tee", Name: "remote-file", Source: RemoteSource("https://art.example.com")},
		{DestDir: "Shop/Tee", Name: "missing.ai", Source: RemoteSource("https://shop.example.com/wp-content/uploads/missing.ai")},
	}, items)
}

func TestBuildMalformedURLUsesPlaceholder(t *testing.T) {
	items, err := newBuilder(t, afero.NewMemMapFs(), nil).Build(testContext(t), catalog.Catalog{
		Site: "Shop",
		Records: []catalog.Record{{
			ID:    1,
			Title: "Tee",
			Meta:  catalog.Meta{"original-art": {"http://[::1"}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "remote-file", items[0].Name)
	assert.True(t, items[0].Source.IsRemote())
}

func TestBuildDeduplicatesFirstWins(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/srv/uploads/a/tee.png", 100)
	writeFile(t, fs, "/srv/uploads/b/tee.png", 200)

	items, err := newBuilder(t, fs, nil).Build(testContext(t), catalog.Catalog{
		Site: "Shop",
		Records: []catalog.Record{
			{ID: 1, Title: "Tee", PrimaryImage: "/srv/uploads/a/tee.png"},
			{ID: 2, Title: "Tee", PrimaryImage: "/srv/uploads/b/tee.png"},
		},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(100), items[0].Size)
	assert.Equal(t, "/srv/uploads/a/tee.png", items[0].Source.Location)
}

func TestBuildExclude(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/srv/uploads/tee.png", 10)

	items, err := newBuilder(t, fs, func(o *Options) { o.Exclude = []string{"**/*.ai"} }).Build(testContext(t), catalog.Catalog{
		Site: "Shop",
		Records: []catalog.Record{{
			ID:           1,
			Title:        "Tee",
			PrimaryImage: "/srv/uploads/tee.png",
			Meta:         catalog.Meta{"original-art": {"https://art.example.com/tee.ai"}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Shop/Tee/tee.png", items[0].RelPath())
}

func TestNewBuilderValidation(t *testing.T) {
	tests := []struct {
		name        string
		opts        Options
		errContains string
	}{
		{name: "missing_fs", opts: Options{}, errContains: "filesystem is required"},
		{name: "bad_art_pattern", opts: Options{Fs: afero.NewMemMapFs(), ArtFieldPattern: "("}, errContains: "compiling art field pattern"},
		{name: "bad_exclude", opts: Options{Fs: afero.NewMemMapFs(), Exclude: []string{"[a-"}}, errContains: "invalid exclude pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder(tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestDedupe(t *testing.T) {
	in := []Item{
		{DestDir: "a", Name: "1"},
		{DestDir: "a", Name: "2"},
		{DestDir: "a", Name: "1", Size: 9},
		{DestDir: "b", Name: "1"},
	}
	assert.Equal(t, []Item{
		{DestDir: "a", Name: "1"},
		{DestDir: "a", Name: "2"},
		{DestDir: "b", Name: "1"},
	}, Dedupe(in))
}
