package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunwatch/internal/config"
)

func TestValidateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interface: eth0\nclient_subnet: 10.8.0.0/24\nevents:\n  enabled: false\n"), 0o644))

	v = config.New()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"validate", "--config", path})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "interface:      eth0 (link capture)")
	assert.Contains(t, out.String(), "client subnet:  10.8.0.0/24")
	assert.Contains(t, out.String(), "event logs:     disabled")
	assert.Contains(t, out.String(), "configuration is valid")
}

func TestValidateCommandRejectsBadSubnet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("client_subnet: nope\n"), 0o644))

	v = config.New()
	rootCmd.SetArgs([]string{"validate", "--config", path})
	err := rootCmd.Execute()
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestWantTUI(t *testing.T) {
	assert.True(t, wantTUI("tui"))
	assert.False(t, wantTUI("plain"))
}
