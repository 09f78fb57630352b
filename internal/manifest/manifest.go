// Package manifest reads the list of releases to compare, one row per
// downloaded snapshot, and groups it into per-repository timelines.
package manifest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrEmpty is returned for a manifest without any release.
var ErrEmpty = errors.New("manifest has no releases")

// Release is one snapshot of a repository.
type Release struct {
	// Source is the repository as listed, usually a URL.
	Source string
	// Name is the directory name derived from Source.
	Name string
	// Branch is the release branch or tag with "/" replaced by "-".
	Branch string
	Date   time.Time
}

// Timeline holds the releases of one repository in chronological order.
type Timeline struct {
	Name     string
	Releases []Release
}

type row struct {
	Repository string `yaml:"repository"`
	Branch     string `yaml:"branch"`
	Date       string `yaml:"date"`
}

// Read loads a manifest file, choosing YAML for .yaml/.yml and CSV otherwise.
func Read(path string) ([]Release, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ReadYAML(f)
	default:
		return ReadCSV(f)
	}
}

// ReadCSV reads a manifest with a header row naming at least the repository,
// branch and date columns. Other columns are ignored.
func ReadCSV(r io.Reader) ([]Release, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("reading manifest header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"repository", "branch", "date"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("manifest is missing the %q column", required)
		}
	}

	var rows []row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading manifest: %w", err)
		}
		get := func(col string) string {
			if i := cols[col]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		rows = append(rows, row{Repository: get("repository"), Branch: get("branch"), Date: get("date")})
	}
	return toReleases(rows)
}

// ReadYAML reads a manifest written as a list of {repository, branch, date} maps.
func ReadYAML(r io.Reader) ([]Release, error) {
	var rows []row
	if err := yaml.NewDecoder(r).Decode(&rows); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return toReleases(rows)
}

func toReleases(rows []row) ([]Release, error) {
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	releases := make([]Release, 0, len(rows))
	for i, r := range rows {
		if r.Repository == "" || r.Branch == "" {
			return nil, fmt.Errorf("release %d: repository and branch are required", i+1)
		}
		date, err := ParseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("release %d (%s %s): %w", i+1, r.Repository, r.Branch, err)
		}
		releases = append(releases, Release{
			Source: r.Repository,
			Name:   RepositoryName(r.Repository),
			Branch: strings.ReplaceAll(r.Branch, "/", "-"),
			Date:   date,
		})
	}
	return releases, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// ParseDate accepts RFC 3339 timestamps, "date time[offset]" and plain dates.
// Dates without an offset are taken as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// RepositoryName derives the snapshot directory name of a repository: the last
// path segment of a GitHub URL, otherwise the second-to-last segment.
func RepositoryName(source string) string {
	parts := strings.Split(strings.TrimRight(source, "/"), "/")
	if strings.Contains(source, "github") || len(parts) < 2 {
		return strings.TrimSuffix(parts[len(parts)-1], ".git")
	}
	return parts[len(parts)-2]
}

// Group splits releases per repository name. Timelines are sorted by name and
// their releases by date, keeping manifest order for equal dates.
func Group(releases []Release) []Timeline {
	byName := make(map[string][]Release)
	for _, r := range releases {
		byName[r.Name] = append(byName[r.Name], r)
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	slices.Sort(names)

	timelines := make([]Timeline, 0, len(names))
	for _, name := range names {
		rs := byName[name]
		slices.SortStableFunc(rs, func(a, b Release) int { return a.Date.Compare(b.Date) })
		timelines = append(timelines, Timeline{Name: name, Releases: rs})
	}
	return timelines
}
