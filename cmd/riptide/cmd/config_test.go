package cmd

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptide-search/riptide/internal/config"
)

func TestConfigPathCmd_PrintsUserConfigPath(t *testing.T) {
	tempProject(t)

	output, err := runCLI(t, "config", "path")

	require.NoError(t, err)
	assert.Equal(t, config.GetUserConfigPath(), strings.TrimSpace(output))
	assert.Contains(t, output, "riptide")
}

func TestConfigInitCmd_CreatesUserConfig(t *testing.T) {
	tempProject(t)

	output, err := runCLI(t, "config", "init")

	require.NoError(t, err)
	assert.Contains(t, output, "Created user configuration")
	assert.FileExists(t, config.GetUserConfigPath())
}

func TestConfigInitCmd_ExistingWithoutForce(t *testing.T) {
	tempProject(t)

	_, err := runCLI(t, "config", "init")
	require.NoError(t, err)

	// Second run leaves the file alone and says so.
	output, err := runCLI(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, output, "already exists")
}

func TestConfigInitCmd_ForceKeepsBackup(t *testing.T) {
	tempProject(t)

	_, err := runCLI(t, "config", "init")
	require.NoError(t, err)

	// Customize the file so the backup is distinguishable.
	path := config.GetUserConfigPath()
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o644))

	output, err := runCLI(t, "config", "init", "--force")
	require.NoError(t, err)
	assert.Contains(t, output, "Backed up")

	// The template replaced the customized file.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, "log_level: debug\n", string(data))
}

func TestConfigShowCmd_MergedOutput(t *testing.T) {
	root := tempProject(t)

	// Project config overrides one field; the shown config reflects it.
	require.NoError(t, os.WriteFile(root+"/.riptide.yaml",
		[]byte("search:\n  default_top_k: 7\n"), 0o644))

	output, err := runCLI(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, output, "data_dir")
	assert.Contains(t, output, "default_top_k: 7")
}

func TestConfigShowCmd_EnvOverride(t *testing.T) {
	tempProject(t)
	t.Setenv("RIPTIDE_DATA_DIR", "custom-data")

	output, err := runCLI(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, output, "custom-data")
}
