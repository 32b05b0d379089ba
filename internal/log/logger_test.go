package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpensLogFileAndReturnsUsableLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transport.log")

	logger, f, err := New(path, false)
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer f.Close()

	logger.Info("hello from the transport core")
	require.NoError(t, logger.Sync())

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestNewWrapsOpenFileFailure(t *testing.T) {
	orig := osOpenFile
	defer func() { osOpenFile = orig }()
	osOpenFile = func(string, int, os.FileMode) (*os.File, error) {
		return nil, assert.AnError
	}

	_, _, err := New("unused.log", false)
	require.Error(t, err)
}
