// Package releases fetches the list of published Rust releases.
package releases

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"slices"
	"strings"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/bayleafwalker/msrv/internal/event"
	"github.com/bayleafwalker/msrv/internal/semver"
)

const (
	DefaultChangelogURL = "https://raw.githubusercontent.com/rust-lang/rust/master/RELEASES.md"
	DefaultDistURL      = "https://static.rust-lang.org/manifests.txt"
)

var (
	// "Version 1.56.0 (2021-10-21)"
	changelogHeading = regexp.MustCompile(`^Version\s+(\d+\.\d+\.\d+)\s+\(`)
	// "static.rust-lang.org/dist/2021-10-21/channel-rust-1.56.0.toml"
	distManifest = regexp.MustCompile(`channel-rust-(\d+\.\d+\.\d+)\.toml$`)
)

// Publisher is the reporter capability the fetcher needs.
type Publisher interface {
	Publish(ev event.Event) error
}

type Fetcher struct {
	Client       *http.Client
	ChangelogURL string
	DistURL      string
	Reporter     Publisher
}

func NewFetcher(reporter Publisher) *Fetcher {
	return &Fetcher{
		Client:       http.DefaultClient,
		ChangelogURL: DefaultChangelogURL,
		DistURL:      DefaultDistURL,
		Reporter:     reporter,
	}
}

// Fetch reports a FetchIndex event and downloads the index of source. The
// versions are returned newest first without duplicates.
func (f *Fetcher) Fetch(ctx context.Context, source event.ReleaseSource) ([]semver.Version, error) {
	logger := log.FromContext(ctx).WithValues("source", source)

	var url string
	var pattern *regexp.Regexp
	switch source {
	case event.ReleaseSourceRustChangelog:
		url, pattern = f.ChangelogURL, changelogHeading
	case event.ReleaseSourceRustDist:
		url, pattern = f.DistURL, distManifest
	default:
		return nil, fmt.Errorf("releases: unknown source %q", source)
	}

	if f.Reporter != nil {
		if err := f.Reporter.Publish(event.New(event.NewFetchIndex(source))); err != nil {
			return nil, fmt.Errorf("releases: report fetch: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("releases: build request: %w", err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	logger.V(1).Info("fetching release index", "url", url)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("releases: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("releases: fetch %s: unexpected status %s", url, resp.Status)
	}

	versions, err := parse(resp.Body, pattern)
	if err != nil {
		return nil, fmt.Errorf("releases: parse %s: %w", url, err)
	}
	logger.V(1).Info("fetched release index", "releases", len(versions))
	return versions, nil
}

func parse(r io.Reader, pattern *regexp.Regexp) ([]semver.Version, error) {
	seen := map[string]bool{}
	var out []semver.Version

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := pattern.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil || seen[m[1]] {
			continue
		}
		v, err := semver.ParseVersion(m[1])
		if err != nil {
			continue
		}
		seen[m[1]] = true
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b semver.Version) int { return semver.Compare(b, a) })
	return out, nil
}

// Contains reports whether the release v (compared on major.minor.patch) is
// part of versions.
func Contains(versions []semver.Version, v semver.Version) bool {
	return slices.ContainsFunc(versions, func(candidate semver.Version) bool {
		return semver.Compare(candidate, v) == 0
	})
}
