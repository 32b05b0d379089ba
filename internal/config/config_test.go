package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultUsesBuiltInValues(t *testing.T) {
	s := Default()
	assert.True(t, s.Authentication)
	assert.Equal(t, "", s.PinnedFingerprint())
	assert.Equal(t, "info", s.LogLevel)
}

func TestLoadMergesOverlayFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rdpgo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
authentication: false
pinnedFingerprint: "deadbeef"
logLevel: "debug"
`), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.False(t, s.Authentication)
	assert.Equal(t, "deadbeef", s.PinnedFingerprint())
	assert.Equal(t, "debug", s.LogLevel)
	// fields absent from the overlay keep their built-in defaults
	assert.Equal(t, "", s.CertFile)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}
