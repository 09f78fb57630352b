package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		source string
		want   string
	}{
		{"https://github.com/psf/requests", "requests"},
		{"https://github.com/psf/requests/", "requests"},
		{"https://github.com/psf/requests.git", "requests"},
		{"https://gitlab.com/group/project/-", "project"},
		{"https://bitbucket.org/team/tool/src", "tool"},
		{"local", "local"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, RepositoryName(tt.source))
		})
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	want := time.Date(2021, 3, 4, 10, 0, 0, 0, time.UTC)
	for _, s := range []string{
		"2021-03-04T10:00:00Z",
		"2021-03-04T12:00:00+02:00",
		"2021-03-04 10:00:00+00:00",
		"2021-03-04 10:00:00",
	} {
		got, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), "%s parsed as %s", s, got)
	}

	day, err := ParseDate("2021-03-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), day)

	_, err = ParseDate("last tuesday")
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	data := `name,repository,branch,date,download_link
v2,https://github.com/acme/tool,release/2.0,2022-01-01,http://x
v1,https://github.com/acme/tool,release/1.0,2021-01-01,http://y
`
	releases, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, releases, 2)
	assert.Equal(t, "tool", releases[0].Name)
	assert.Equal(t, "release-2.0", releases[0].Branch)
	assert.Equal(t, "https://github.com/acme/tool", releases[0].Source)
}

func TestReadCSVErrors(t *testing.T) {
	t.Parallel()

	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = ReadCSV(strings.NewReader("repository,branch,date\n"))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = ReadCSV(strings.NewReader("repository,date\nx,2020-01-01\n"))
	assert.ErrorContains(t, err, "branch")

	_, err = ReadCSV(strings.NewReader("repository,branch,date\nx,v1,soon\n"))
	assert.ErrorContains(t, err, "unrecognized date")
}

func TestReadYAMLFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "releases.yaml")
	content := `- repository: https://github.com/acme/tool
  branch: v1
  date: "2021-01-01"
- repository: https://github.com/acme/lib
  branch: v1
  date: "2020-06-01"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	releases, err := Read(path)
	require.NoError(t, err)
	require.Len(t, releases, 2)
	assert.Equal(t, "lib", releases[1].Name)
}

func TestGroup(t *testing.T) {
	t.Parallel()

	d := func(s string) time.Time {
		tm, _ := ParseDate(s)
		return tm
	}
	releases := []Release{
		{Name: "tool", Branch: "v3", Date: d("2023-01-01")},
		{Name: "lib", Branch: "v1", Date: d("2020-01-01")},
		{Name: "tool", Branch: "v1", Date: d("2021-01-01")},
		{Name: "tool", Branch: "v2a", Date: d("2022-01-01")},
		{Name: "tool", Branch: "v2b", Date: d("2022-01-01")},
	}

	timelines := Group(releases)
	require.Len(t, timelines, 2)
	assert.Equal(t, "lib", timelines[0].Name)

	var branches []string
	for _, r := range timelines[1].Releases {
		branches = append(branches, r.Branch)
	}
	assert.Equal(t, []string{"v1", "v2a", "v2b", "v3"}, branches)
}
