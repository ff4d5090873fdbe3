// Package fixtures fetches "golden" recorded scheduling traces — JSON
// process-table snapshots captured by trace.Recorder during a known-good
// run of one of spec.md §8's literal scenarios (a)-(h) — published as
// GitHub release artifacts, so a regression test can replay a scenario
// and diff its live trace against the recorded one instead of re-deriving
// the expected sequence by hand every time.
package fixtures

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/go-github/v48/github"
	"golang.org/x/oauth2"
)

// GoldenTraceAssetPrefix is the naming convention golden-trace release
// assets follow, e.g. "scenario-mlfq-promotion.json",
// "scenario-rwlock-exclusion.json".
const GoldenTraceAssetPrefix = "scenario-"

// GoldenTraceRef describes one golden-trace asset without its content.
type GoldenTraceRef struct {
	Name        string
	URL         string
	ContentType string
	ReleaseTag  string
}

// Retriever is the interface Fetcher implements, so tests can substitute a
// fake that never touches the network.
type Retriever interface {
	ListGoldenTraces(repoURL string) ([]GoldenTraceRef, error)
	FetchGoldenTrace(repoURL string, assetName string) ([]byte, error)
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	// GHToken authenticates against GitHub. Required for private
	// repositories; anonymous access is rate-limited but works for public
	// ones.
	GHToken string
}

// Fetcher retrieves golden-trace release assets from a GitHub repository.
type Fetcher struct {
	FetcherConfig
	client *github.Client
}

// NewFetcher takes an optional configuration (conf) and returns a
// *Fetcher. If required configuration values are not set, defaults are
// used. While conf is variadic, only the last conf argument passed is
// used.
func NewFetcher(conf ...FetcherConfig) *Fetcher {
	opts := FetcherConfig{}
	if len(conf) > 0 {
		opts = conf[len(conf)-1]
	}

	var httpClient *http.Client
	if opts.GHToken != "" {
		srcToken := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: opts.GHToken},
		)
		httpClient = oauth2.NewClient(context.Background(), srcToken)
	}

	return &Fetcher{FetcherConfig: opts, client: github.NewClient(httpClient)}
}

// ListGoldenTraces lists every release asset under repoURL (ORG/REPO) whose
// name starts with GoldenTraceAssetPrefix, across all releases.
func (f *Fetcher) ListGoldenTraces(repoURL string) ([]GoldenTraceRef, error) {
	owner, repo, err := splitRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	releases, _, err := f.client.Repositories.ListReleases(context.Background(), owner, repo, &github.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("fixtures: failed listing releases for %s: %w", repoURL, err)
	}

	var refs []GoldenTraceRef
	for _, release := range releases {
		for _, asset := range release.Assets {
			if !strings.HasPrefix(asset.GetName(), GoldenTraceAssetPrefix) {
				continue
			}
			refs = append(refs, GoldenTraceRef{
				Name:        asset.GetName(),
				URL:         asset.GetURL(),
				ContentType: asset.GetContentType(),
				ReleaseTag:  release.GetTagName(),
			})
		}
	}
	return refs, nil
}

// FetchGoldenTrace downloads the named asset's raw bytes (the JSON
// []kernel.IndexedPCB snapshot trace.Recorder.Record would have written).
// It is left to the caller to json.Unmarshal into whatever shape the test
// needs, rather than importing kernel here and coupling fixtures to its
// exact snapshot type.
func (f *Fetcher) FetchGoldenTrace(repoURL string, assetName string) ([]byte, error) {
	owner, repo, err := splitRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	releases, _, err := f.client.Repositories.ListReleases(context.Background(), owner, repo, &github.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("fixtures: failed listing releases for %s: %w", repoURL, err)
	}

	var assetID int64 = -1
	for _, release := range releases {
		for _, asset := range release.Assets {
			if asset.GetName() == assetName {
				assetID = asset.GetID()
			}
		}
	}
	if assetID == -1 {
		return nil, fmt.Errorf("fixtures: no golden-trace asset named %q in %s", assetName, repoURL)
	}

	rc, _, err := f.client.Repositories.DownloadReleaseAsset(context.Background(), owner, repo, assetID, http.DefaultClient)
	if err != nil {
		return nil, fmt.Errorf("fixtures: failed downloading asset %q: %w", assetName, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("fixtures: failed reading asset %q: %w", assetName, err)
	}
	return data, nil
}

func splitRepoURL(repoURL string) (owner, repo string, err error) {
	parts := strings.Split(repoURL, "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("fixtures: repoURL (%s) must be ORG_NAME/REPO_NAME", repoURL)
	}
	return parts[0], parts[1], nil
}
