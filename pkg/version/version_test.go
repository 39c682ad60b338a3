package version

import (
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
	assert.Equal(t, BuildTime, info.BuildTime)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestInfoString(t *testing.T) {
	info := Info{Version: "1.2.0", GitCommit: "abc123", BuildTime: "2026-10-17", GoVersion: "go1.25.1"}
	assert.Equal(t, "skillroute 1.2.0 (commit abc123, built 2026-10-17, go1.25.1)", info.String())
}

func TestInfoJSON(t *testing.T) {
	info := Info{Version: "1.2.0", GitCommit: "abc123", BuildTime: "2026-10-17", GoVersion: "go1.25.1"}

	out, err := info.JSON()
	require.NoError(t, err)

	var decoded Info
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, info, decoded)
	assert.Contains(t, out, `"gitCommit": "abc123"`)
}
