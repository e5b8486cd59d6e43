// Package config defines the node configuration file format and its
// defaults.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/isabella232/anoma/gas"
	"github.com/isabella232/anoma/pkg/log"
	"github.com/isabella232/anoma/types"
)

// GenesisAccount seeds one account at chain start: its validity
// predicate and initial token balances.
type GenesisAccount struct {
	Name      string            `yaml:"name"`
	Kind      string            `yaml:"kind"`
	Predicate string            `yaml:"predicate"`
	Balances  map[string]uint64 `yaml:"balances"`
}

// Address resolves the account's typed address.
func (a GenesisAccount) Address() (types.Address, error) {
	var addr types.Address
	switch a.Kind {
	case "validator":
		addr = types.ValidatorAddress(a.Name)
	case "basic":
		addr = types.BasicAddress(a.Name)
	default:
		return types.Address{}, errors.Errorf("unknown account kind %q for %q", a.Kind, a.Name)
	}
	if err := addr.Validate(); err != nil {
		return types.Address{}, errors.Wrapf(err, "genesis account %q", a.Name)
	}
	return addr, nil
}

// Engine configures the connection to the consensus engine.
type Engine struct {
	// ListenAddr is the address the shell gRPC service binds to.
	ListenAddr string `yaml:"listenAddr"`
}

// Gas configures the gas limits enforced by the shell.
type Gas struct {
	TxLimit    uint64 `yaml:"txLimit"`
	BlockLimit uint64 `yaml:"blockLimit"`
}

// Config is the root node configuration.
type Config struct {
	ChainID string           `yaml:"chainID"`
	HomeDir string           `yaml:"homeDir"`
	Engine  Engine           `yaml:"engine"`
	Gas     Gas              `yaml:"gas"`
	Log     log.Config       `yaml:"log"`
	Genesis []GenesisAccount `yaml:"genesis"`
}

// Default returns the configuration used when no file is given: a
// single-node ledger with two seeded accounts guarded by the
// balance-checking predicate.
func Default() Config {
	return Config{
		ChainID: "anoma-devnet",
		HomeDir: ".anoma",
		Engine: Engine{
			ListenAddr: "127.0.0.1:26658",
		},
		Gas: Gas{
			TxLimit:    gas.DefaultTxGasLimit,
			BlockLimit: gas.DefaultBlockGasLimit,
		},
		Log: log.Config{
			Level: "info",
		},
		Genesis: []GenesisAccount{
			{
				Name:      "va",
				Kind:      "validator",
				Predicate: "vp/balance",
				Balances:  map[string]uint64{"eth": 10_000},
			},
			{
				Name:      "ba",
				Kind:      "basic",
				Predicate: "vp/balance",
				Balances:  map[string]uint64{"eth": 100},
			},
		},
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config %s", path)
	}
	if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "failed to parse config %s", path)
	}
	return cfg, nil
}

// DBDir is the directory holding the persistent store.
func (c Config) DBDir() string {
	return filepath.Join(c.HomeDir, "db")
}

// EngineDir is the directory the consensus engine keeps its local
// state in. The node only ever deletes it, on reset.
func (c Config) EngineDir() string {
	return filepath.Join(c.HomeDir, "engine")
}
