package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration loaded from TOML.
type Config struct {
	RPCAddress string `toml:"RPCAddress"`
	DataDir    string `toml:"DataDir"`
	// BlockIntervalSeconds maps wall-clock time onto the block-height scale
	// used by sale windows and rate limits.
	BlockIntervalSeconds uint64 `toml:"BlockIntervalSeconds"`

	// Genesis authorities, hex-encoded 20-byte addresses. Seeded into the
	// role store on first start only.
	OwnerAddress      string `toml:"OwnerAddress"`
	GovernanceAddress string `toml:"GovernanceAddress"`

	// Initial sale parameters, applied on first start only; later changes go
	// through the role-gated admin surface.
	FeeCollector   string `toml:"FeeCollector"`
	FeeBps         uint32 `toml:"FeeBps"`
	BuyLimitCount  uint64 `toml:"BuyLimitCount"`
	BuyLimitPeriod uint64 `toml:"BuyLimitPeriod"`
	PriceModel     string `toml:"PriceModel"`
	// FixedPrice is the unit price (base units, decimal string) quoted by
	// the built-in "fixed" price model.
	FixedPrice string `toml:"FixedPrice"`
	// TierBase, TierStep and TierSize parameterise the built-in
	// "ascending-tier" price model.
	TierBase string `toml:"TierBase"`
	TierStep string `toml:"TierStep"`
	TierSize uint64 `toml:"TierSize"`
}

// Load reads the configuration from path, creating a commented default file
// when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown fields: %v", path, undecoded)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.RPCAddress == "" {
		cfg.RPCAddress = "127.0.0.1:8561"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./mintgate-data"
	}
	if cfg.BlockIntervalSeconds == 0 {
		cfg.BlockIntervalSeconds = 5
	}
	if cfg.BuyLimitCount == 0 {
		cfg.BuyLimitCount = 10
	}
	if cfg.BuyLimitPeriod == 0 {
		cfg.BuyLimitPeriod = 100
	}
	if cfg.PriceModel == "" {
		cfg.PriceModel = "fixed"
	}
	if cfg.FixedPrice == "" {
		cfg.FixedPrice = "1000000000000000000"
	}
	if cfg.TierBase == "" {
		cfg.TierBase = cfg.FixedPrice
	}
	if cfg.TierStep == "" {
		cfg.TierStep = "0"
	}
	if cfg.TierSize == 0 {
		cfg.TierSize = 100
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if _, err := f.WriteString(defaultConfigHeader); err != nil {
		return nil, err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

const defaultConfigHeader = `# mintgated configuration.
# OwnerAddress and GovernanceAddress must be set before sales can be
# administered; both are hex-encoded 20-byte addresses and are seeded into
# the role store on first start.

`
