package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"extract", "levels"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "sitrep-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentPreRunE)
}

func TestExtractCommand_Flags(t *testing.T) {
	flag := extractCmd.Flags().Lookup("report")
	require.NotNil(t, flag, "extract command should have --report flag")
	assert.Equal(t, []string{"true"}, flag.Annotations[cobra.BashCompOneRequiredFlag])

	for _, name := range []string{"out", "json"} {
		assert.NotNil(t, extractCmd.Flags().Lookup(name), "extract should have --%s flag", name)
	}
	assert.Equal(t, "false", extractCmd.Flags().Lookup("json").DefValue)
}

func TestLevelsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range levelsCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"show", "reset"} {
		assert.True(t, names[name], "levels should have subcommand %q", name)
	}
}
