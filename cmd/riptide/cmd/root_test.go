package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_ShowsHelp(t *testing.T) {
	// When: executing with --help
	output, err := runCLI(t, "--help")

	// Then: usage lists the main commands
	require.NoError(t, err)
	assert.Contains(t, output, "riptide")
	assert.Contains(t, output, "index")
	assert.Contains(t, output, "search")
	assert.Contains(t, output, "serve")
	assert.Contains(t, output, "stats")
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{
		"serve", "index", "search", "stats", "doctor", "config", "init", "logs", "version",
	} {
		assert.True(t, names[want], "subcommand %q should be registered", want)
	}
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	_, err := runCLI(t, "frobnicate")
	require.Error(t, err)
}

func TestRootCmd_VersionFlag(t *testing.T) {
	output, err := runCLI(t, "--version")

	require.NoError(t, err)
	assert.Contains(t, output, "riptide version")
}
