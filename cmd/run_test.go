package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunwatch/internal/capture"
	"tunwatch/internal/config"
)

func TestOpenFailureReturnsWithoutLogging(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "tunwatch.log")

	configFile = ""
	v = config.New()
	bindFlags(v, boundFlags)
	rootCmd.SetArgs([]string{
		"--interface", "nosuchdev0",
		"--log-file", logFile,
		"--no-events",
		"--ui", "plain",
	})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, capture.ErrOpen) || errors.Is(err, capture.ErrPermission), err.Error())

	// main prints the returned error; nothing else reports it.
	data, readErr := os.ReadFile(logFile)
	if readErr == nil {
		assert.NotContains(t, string(data), "level=error")
		assert.NotContains(t, string(data), `"level":"error"`)
	} else {
		assert.ErrorIs(t, readErr, os.ErrNotExist)
	}
}
