package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"corepay/crypto"
)

// TokenConfig declares a native token registered at startup.
type TokenConfig struct {
	Symbol   string `toml:"Symbol"`
	Name     string `toml:"Name"`
	Decimals uint8  `toml:"Decimals"`
}

// RewardUnitConfig sets the incentive scalar for a token. Amount is a decimal
// string so large values survive TOML round-trips.
type RewardUnitConfig struct {
	Token  string `toml:"Token"`
	Amount string `toml:"Amount"`
}

// AllocationConfig seeds an initial balance at startup.
type AllocationConfig struct {
	Address string `toml:"Address"`
	Token   string `toml:"Token"`
	Amount  string `toml:"Amount"`
}

type Config struct {
	RPCAddress     string             `toml:"RPCAddress"`
	DataDir        string             `toml:"DataDir"`
	NetworkName    string             `toml:"NetworkName"`
	Environment    string             `toml:"Environment"`
	ChainID        uint64             `toml:"ChainID"`
	ServiceAddress string             `toml:"ServiceAddress"`
	RewardToken    string             `toml:"RewardToken"`
	RPCToken       string             `toml:"RPCToken"`
	Tokens         []TokenConfig      `toml:"Tokens"`
	RewardUnits    []RewardUnitConfig `toml:"RewardUnits"`
	Stakers        []string           `toml:"Stakers"`
	Allocations    []AllocationConfig `toml:"Allocations"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./coredata"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "corepay-local"
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = 1991
	}
	if strings.TrimSpace(cfg.RewardToken) == "" {
		cfg.RewardToken = "CORE"
	}
	if cfg.Tokens == nil {
		cfg.Tokens = []TokenConfig{{Symbol: "CORE", Name: "CorePay Token", Decimals: 18}}
	}
}

// Validate checks cross-field consistency: the service address must decode
// and the reward token must be among the registered tokens.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.ServiceAddress) != "" {
		if _, err := crypto.DecodeAddress(cfg.ServiceAddress); err != nil {
			return fmt.Errorf("config: invalid ServiceAddress: %w", err)
		}
	}
	rewardToken := strings.ToUpper(strings.TrimSpace(cfg.RewardToken))
	found := false
	for _, token := range cfg.Tokens {
		if strings.ToUpper(strings.TrimSpace(token.Symbol)) == rewardToken {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config: reward token %s is not in the Tokens list", rewardToken)
	}
	for _, staker := range cfg.Stakers {
		if _, err := crypto.DecodeAddress(staker); err != nil {
			return fmt.Errorf("config: invalid staker address %q: %w", staker, err)
		}
	}
	for _, alloc := range cfg.Allocations {
		if _, err := crypto.DecodeAddress(alloc.Address); err != nil {
			return fmt.Errorf("config: invalid allocation address %q: %w", alloc.Address, err)
		}
		if _, ok := new(big.Int).SetString(strings.TrimSpace(alloc.Amount), 10); !ok {
			return fmt.Errorf("config: invalid allocation amount %q", alloc.Amount)
		}
	}
	for _, unit := range cfg.RewardUnits {
		if _, ok := new(big.Int).SetString(strings.TrimSpace(unit.Amount), 10); !ok {
			return fmt.Errorf("config: invalid reward unit amount %q", unit.Amount)
		}
	}
	return nil
}

// ServiceAddressBytes decodes the configured service identity. An empty
// setting yields the zero address.
func (c *Config) ServiceAddressBytes() ([20]byte, error) {
	var addr [20]byte
	if strings.TrimSpace(c.ServiceAddress) == "" {
		return addr, nil
	}
	decoded, err := crypto.DecodeAddress(c.ServiceAddress)
	if err != nil {
		return addr, err
	}
	return decoded.Raw(), nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
