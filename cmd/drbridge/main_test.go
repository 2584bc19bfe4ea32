package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/drbridge/pkg/config"
	"github.com/cuemby/drbridge/pkg/log"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		debug      bool
		trace      bool
		want       log.Level
	}{
		{name: "config only", configured: "warn", want: log.WarnLevel},
		{name: "unknown config falls back to info", configured: "loud", want: log.InfoLevel},
		{name: "debug overrides config", configured: "error", debug: true, want: log.DebugLevel},
		{name: "trace overrides debug", configured: "info", debug: true, trace: true, want: log.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, logLevel(tt.configured, tt.debug, tt.trace))
		})
	}
}

func newQueryCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", config.DefaultFile, "")
	cmd.Flags().String("addr", "", "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestResolveAddr(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bridge.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"wrb_contract_addr: 0x8c49cafc4542d9ea9107d4e48412acedb2d87e2a\nhttp_addr: 10.0.0.5:9000\n"), 0600))

	addr, err := resolveAddr(newQueryCmd(t, "--addr", "bridge:1234"))
	require.NoError(t, err)
	assert.Equal(t, "bridge:1234", addr)

	addr, err = resolveAddr(newQueryCmd(t, "--config", cfgPath))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:9000", addr)

	_, err = resolveAddr(newQueryCmd(t, "--config", filepath.Join(dir, "missing.yaml")))
	assert.Error(t, err, "an explicit config must exist")
}

func TestResolveAddr_DefaultWithoutConfigFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	addr, err := resolveAddr(newQueryCmd(t))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultHTTPAddr, addr)
}

func TestOpenStore_Bolt(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()

	store, err := openStore(t.Context(), cfg)
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.LastKnownID()
	require.NoError(t, err)
	assert.False(t, ok)
}
