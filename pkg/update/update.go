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

// Package update checks GitHub for a newer mediamirror release.
package update

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/mod/semver"
)

const (
	DefaultOwner = "walteh"
	DefaultRepo  = "mediamirror"
)

// ReleaseClient is the slice of the GitHub API the checker needs
type ReleaseClient interface {
	GetLatestRelease(ctx context.Context, owner, repo string) (*github.RepositoryRelease, *github.Response, error)
}

// Options configures a Checker.
type Options struct {
	Owner string
	Repo  string
	// Token is optional; anonymous requests are rate limited harder.
	Token string
	// BaseURL overrides the API endpoint (GitHub Enterprise or tests).
	BaseURL    string
	HTTPClient *http.Client
}

// Release describes the latest published release.
type Release struct {
	Version     string `json:"version"`
	DownloadURL string `json:"download_url"`
	PageURL     string `json:"page_url"`
	Newer       bool   `json:"newer"`
}

// 🔎 Checker looks up the latest release of one repository
type Checker struct {
	repos ReleaseClient
	owner string
	repo  string
}

// New builds a Checker backed by the GitHub REST API.
func New(opts Options) (*Checker, error) {
	client := github.NewClient(opts.HTTPClient)
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, errors.Errorf("parsing base url: %w", err)
		}
		client.BaseURL = u
	}
	return NewWithClient(client.Repositories, opts.Owner, opts.Repo), nil
}

// NewWithClient builds a Checker on top of an existing release client.
func NewWithClient(repos ReleaseClient, owner, repo string) *Checker {
	if owner == "" {
		owner = DefaultOwner
	}
	if repo == "" {
		repo = DefaultRepo
	}
	return &Checker{repos: repos, owner: owner, repo: repo}
}

// Check fetches the latest release and reports whether it is newer than
// current. A current version that is not semver ("dev") is always older.
func (c *Checker) Check(ctx context.Context, current string) (Release, error) {
	logger := zerolog.Ctx(ctx)

	rel, _, err := c.repos.GetLatestRelease(ctx, c.owner, c.repo)
	if err != nil {
		if ctx.Err() != nil {
			return Release{}, errors.Errorf("context error: %w", ctx.Err())
		}
		var rate *github.RateLimitError
		if errors.As(err, &rate) {
			return Release{}, errors.Errorf("rate limit exceeded: %w", err)
		}
		return Release{}, errors.Errorf("getting latest release from GitHub: %w", err)
	}

	latest := Normalize(rel.GetTagName())
	if latest == "" {
		return Release{}, errors.Errorf("latest release has no tag")
	}

	out := Release{
		Version:     latest,
		DownloadURL: downloadURL(rel),
		PageURL:     rel.GetHTMLURL(),
		Newer:       IsNewer(latest, current),
	}

	logger.Debug().
		Str("repo", c.owner+"/"+c.repo).
		Str("latest", out.Version).
		Str("current", current).
		Bool("newer", out.Newer).
		Msg("checked latest release")

	return out, nil
}

// Normalize strips surrounding space and a leading "v".
func Normalize(tag string) string {
	return strings.TrimPrefix(strings.TrimSpace(tag), "v")
}

// IsNewer reports whether latest sorts after current in semver order.
func IsNewer(latest, current string) bool {
	return semver.Compare("v"+Normalize(latest), "v"+Normalize(current)) > 0
}

func downloadURL(rel *github.RepositoryRelease) string {
	for _, asset := range rel.Assets {
		if strings.HasSuffix(strings.ToLower(asset.GetName()), ".zip") {
			return asset.GetBrowserDownloadURL()
		}
	}
	return rel.GetZipballURL()
}
