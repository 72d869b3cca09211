package cmd

import (
	"bytes"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/modctl/internal/config"
)

func TestNewVerifyCmd(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	log := zerolog.New(io.Discard)

	cmd := NewVerifyCmd(cfg, &log)

	assert.NotNil(t, cmd)
	assert.Equal(t, "verify", cmd.Use)
}

func TestVerifyCmd_CleanEngine(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	log := zerolog.New(io.Discard)
	cmd := NewVerifyCmd(cfg, &log)

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)

	cmd.SetArgs([]string{})
	err := cmd.Execute()
	assert.NoError(t, err)
}

func TestVerifyCmd_RegisteredButInactiveMod(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	seedMod(t, cfg, "skyui")

	log := zerolog.New(io.Discard)
	cmd := NewVerifyCmd(cfg, &log)

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)

	cmd.SetArgs([]string{})
	err := cmd.Execute()
	require.NoError(t, err)
}
