package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/isabella232/anoma/types"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, "anoma-devnet", cfg.ChainID)
	require.NotZero(t, cfg.Gas.TxLimit)
	require.NotZero(t, cfg.Gas.BlockLimit)
	require.Len(t, cfg.Genesis, 2)

	addr, err := cfg.Genesis[0].Address()
	require.NoError(t, err)
	require.Equal(t, types.ValidatorAddress("va"), addr)
	addr, err = cfg.Genesis[1].Address()
	require.NoError(t, err)
	require.Equal(t, types.BasicAddress("ba"), addr)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
chainID: testnet-7
engine:
  listenAddr: 127.0.0.1:9999
gas:
  txLimit: 1000
  blockLimit: 100000
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "testnet-7", cfg.ChainID)
	require.Equal(t, "127.0.0.1:9999", cfg.Engine.ListenAddr)
	require.Equal(t, uint64(1000), cfg.Gas.TxLimit)
	require.Equal(t, uint64(100000), cfg.Gas.BlockLimit)
	// Untouched sections keep their defaults.
	require.Equal(t, ".anoma", cfg.HomeDir)
	require.Len(t, cfg.Genesis, 2)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bogusKey: 1\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestUnknownAccountKind(t *testing.T) {
	_, err := GenesisAccount{Name: "x", Kind: "weird"}.Address()
	require.Error(t, err)
}
