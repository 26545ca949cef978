// Package config loads the relaynode's on-disk configuration: a single
// YAML file with CLI flag overrides layered on top, following the
// teacher's top-level-struct-with-sub-configs pattern
// (pkg/config.Config in the teacher repo).
package config

import (
	"fmt"
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v3"
)

// Version is set at build time via -ldflags, same as the teacher's
// config.Version.
var Version string

const userAgentFormat = "/relaynode:%s/"

// Config is the top-level struct loaded from relaynode.yml.
type Config struct {
	P2P     P2P     `yaml:"P2P"`
	Logger  Logger  `yaml:"Logger"`
	Storage Storage `yaml:"Storage"`
	I2P     I2P     `yaml:"I2P"`
}

// P2P holds the listener/dialer tunables named in spec.md §6.
type P2P struct {
	ListenHost      string        `yaml:"ListenHost"`
	ListenPort      uint16        `yaml:"ListenPort"`
	ConnectionLimit int           `yaml:"ConnectionLimit"`
	OutgoingTarget  int           `yaml:"OutgoingTarget"`
	NoIncoming      bool          `yaml:"NoIncoming"`
	NoOutgoing      bool          `yaml:"NoOutgoing"`
	NoIP            bool          `yaml:"NoIP"`
	TrustedPeer     string        `yaml:"TrustedPeer"`
	DNSSeeds        []string      `yaml:"DNSSeeds"`
	IPSeedFile      string        `yaml:"IPSeedFile"`
	CoreNodesFile   string        `yaml:"CoreNodesFile"`
}

// Storage holds the on-disk locations for the object store and peer
// pool snapshots.
type Storage struct {
	DataDir string `yaml:"DataDir"`
}

// I2P holds the SAMv3 bridge settings.
type I2P struct {
	Enabled      bool   `yaml:"Enabled"`
	SAMHost      string `yaml:"SAMHost"`
	SAMPort      uint16 `yaml:"SAMPort"`
	TunnelLength int    `yaml:"TunnelLength"`
	Transient    bool   `yaml:"Transient"`
	SeedFile     string `yaml:"SeedFile"`
}

// GenerateUserAgent builds the wire protocol user agent string, the
// same responsibility the teacher's Config.GenerateUserAgent carries.
func (c Config) GenerateUserAgent() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	return fmt.Sprintf(userAgentFormat, v)
}

// Validate cross-checks sub-config values that YAML unmarshaling alone
// cannot enforce.
func (c Config) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return err
	}
	if c.P2P.ListenPort == 0 {
		return fmt.Errorf("config: P2P.ListenPort must be set")
	}
	return nil
}

// Default returns the built-in configuration applied before the YAML
// file and CLI flags are layered on top.
func Default() Config {
	return Config{
		P2P: P2P{
			ListenHost:      "0.0.0.0",
			ListenPort:      8444,
			ConnectionLimit: 150,
			OutgoingTarget:  8,
		},
		Logger: Logger{
			LogEncoding: "console",
			LogLevel:    "info",
		},
		Storage: Storage{
			DataDir: "./data",
		},
		I2P: I2P{
			SAMHost:      "127.0.0.1",
			SAMPort:      7656,
			TunnelLength: 3,
		},
	}
}

// Load reads and parses the YAML file at path on top of Default(),
// mirroring the teacher's config.Load (read file, unmarshal onto a
// zero-value-seeded struct).
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
