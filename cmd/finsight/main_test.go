package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "FinSight dev")
}

func TestAnalyzeCommand_RequiresTicker(t *testing.T) {
	rootCmd.SetArgs([]string{"analyze"})
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetErr(nil) })

	assert.Error(t, rootCmd.Execute())
}

func TestOptional(t *testing.T) {
	v := 28.456
	assert.Equal(t, "28.46", optional(&v))
	assert.Equal(t, "N/A", optional(nil))
}
