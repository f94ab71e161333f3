package cmd

import (
	"bytes"
	"testing"

	"biotune/internal/config"
	"biotune/pkg/build"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantRun     bool
		wantCommand string
	}{
		{"run by default", nil, true, ""},
		{"list", []string{"list"}, false, CommandList},
		{"catalog with config", []string{"catalog", "--config", "x.yaml"}, false, CommandCatalog},
		{"version", []string{"--version"}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseArgs(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRun, opts.Run)
			assert.Equal(t, tt.wantCommand, opts.Command)
		})
	}
}

func TestParseArgsRejectsUnknown(t *testing.T) {
	_, err := ParseArgs([]string{"--bogus"})
	assert.Error(t, err)

	_, err = ParseArgs([]string{"extra"})
	assert.Error(t, err)
}

func TestApplyOnlyChangedFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Serial.Port = "/dev/ttyACM0"
	cfg.Serial.BaudRate = 9600

	opts, err := ParseArgs([]string{"--baud", "57600", "-r", "-o", "/tmp/rec"})
	require.NoError(t, err)
	opts.Apply(cfg)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 57600, cfg.Serial.BaudRate)
	assert.True(t, cfg.Recording.Enabled)
	assert.Equal(t, "/tmp/rec", cfg.Recording.OutputDir)
	assert.False(t, cfg.Debug)
}

func TestApplyVerbose(t *testing.T) {
	cfg := config.Default()
	opts, err := ParseArgs([]string{"-v", "--port", "/dev/ttyUSB1"})
	require.NoError(t, err)
	opts.Apply(cfg)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, "/dev/ttyUSB1", opts.Port)
}

func TestVersionOutput(t *testing.T) {
	var buf bytes.Buffer
	root := newRootCommand(&Options{changed: make(map[string]bool)})
	root.SetOut(&buf)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, build.GetBuildFlags().String()+"\n", buf.String())
}
