package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestLoadStepOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.toml")
	content := `
[steps.purge-defaults]
enabled = false

[steps.terminal-emulator]
critical = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	overrides, err := LoadStepOverrides(path)
	require.NoError(t, err)
	require.Len(t, overrides, 2)

	require.NotNil(t, overrides["purge-defaults"].Enabled)
	assert.False(t, *overrides["purge-defaults"].Enabled)
	assert.Nil(t, overrides["purge-defaults"].Critical)

	require.NotNil(t, overrides["terminal-emulator"].Critical)
	assert.True(t, *overrides["terminal-emulator"].Critical)
}

func TestLoadStepOverridesMissingFile(t *testing.T) {
	overrides, err := LoadStepOverrides(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Nil(t, overrides)
}

func TestLoadStepOverridesMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.toml")
	require.NoError(t, os.WriteFile(path, []byte("[steps\n"), 0644))

	_, err := LoadStepOverrides(path)
	assert.Error(t, err)
}

func TestMergeOverrides(t *testing.T) {
	base := map[string]Override{
		"flatpak-apps": {Enabled: boolPtr(true)},
		"cli-tool":     {Critical: boolPtr(false)},
	}
	extra := map[string]Override{
		"flatpak-apps": {Critical: boolPtr(true)},
		"apt-update":   {Enabled: boolPtr(false)},
	}

	merged := MergeOverrides(base, extra)

	// Field-level layering: extra's critical lands next to base's enabled
	require.NotNil(t, merged["flatpak-apps"].Enabled)
	assert.True(t, *merged["flatpak-apps"].Enabled)
	require.NotNil(t, merged["flatpak-apps"].Critical)
	assert.True(t, *merged["flatpak-apps"].Critical)

	assert.NotNil(t, merged["cli-tool"].Critical)
	assert.NotNil(t, merged["apt-update"].Enabled)

	// Inputs untouched
	assert.Nil(t, base["flatpak-apps"].Critical)
}
