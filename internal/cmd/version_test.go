package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersionCmd(t *testing.T) {
	t.Run("creates version command", func(t *testing.T) {
		t.Parallel()
		cmd := NewVersionCmd("1.2.3")
		assert.NotNil(t, cmd)
		assert.Equal(t, "version", cmd.Use)
		assert.Equal(t, "Show version information", cmd.Short)
	})

	t.Run("command executes without error", func(t *testing.T) {
		t.Parallel()
		cmd := NewVersionCmd("1.2.3")
		err := cmd.Execute()
		require.NoError(t, err)
	})
}

func TestVersionCmd_VariedFormats(t *testing.T) {
	testCases := []struct {
		name    string
		version string
	}{
		{"empty", ""},
		{"dev", "dev"},
		{"semantic", "1.2.3"},
		{"prerelease", "1.0.0-beta.1"},
		{"git_describe", "1.2.3-0-gabcdef"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cmd := NewVersionCmd(tc.version)
			assert.NotNil(t, cmd)
			err := cmd.Execute()
			require.NoError(t, err)
		})
	}
}
