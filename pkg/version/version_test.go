package version

import (
	"encoding/json"
	"runtime"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestGetVersionInfo(t *testing.T) {
	is := is.New(t)

	info := GetVersionInfo()
	is.True(strings.HasPrefix(info, "finvox version dev"))
	is.True(strings.Contains(info, "commit: unknown"))
	is.True(strings.Contains(info, runtime.Version()))
}

func TestGet_CustomValues(t *testing.T) {
	is := is.New(t)

	originalVersion, originalCommit, originalBuildTime := Version, GitCommit, BuildTime
	t.Cleanup(func() {
		Version, GitCommit, BuildTime = originalVersion, originalCommit, originalBuildTime
	})

	Version = "v1.0.0"
	GitCommit = "abc123"
	BuildTime = "2025-02-12T00:00:00Z"

	info := Get()
	is.Equal(info.Version, "v1.0.0")
	is.True(strings.Contains(info.String(), "abc123"))

	data, err := json.Marshal(info)
	is.NoErr(err)
	is.True(strings.Contains(string(data), `"build_time":"2025-02-12T00:00:00Z"`))
}
