package main

import (
	"flag"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"corepay/config"
	"corepay/core"
	"corepay/core/events"
	"corepay/crypto"
	"corepay/observability/logging"
	"corepay/rpc"
	"corepay/storage"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the node configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.Setup("cored", cfg.Environment)
	log.Info("starting node", "network", cfg.NetworkName, "chainId", cfg.ChainID)

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		log.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	service, err := cfg.ServiceAddressBytes()
	if err != nil {
		log.Error("decode service address", "err", err)
		os.Exit(1)
	}

	node := core.NewNode(db, cfg.ChainID, service, cfg.RewardToken, log)
	node.SetEmitter(events.NewLogEmitter(log))
	if err := seed(node, cfg); err != nil {
		log.Error("seed genesis state", "err", err)
		os.Exit(1)
	}

	server := rpc.NewServer(node, cfg.RPCToken, log)
	if err := server.Start(cfg.RPCAddress); err != nil {
		log.Error("rpc server stopped", "err", err)
		os.Exit(1)
	}
}

// seed applies the configured tokens, reward units, stakers, and initial
// allocations. Token registration skips existing symbols and allocations run
// once per data directory, so restarting against existing data is safe.
// Reward units and staker flags re-apply on every start to pick up config
// changes.
func seed(node *core.Node, cfg *config.Config) error {
	for _, token := range cfg.Tokens {
		if err := node.RegisterToken(token.Symbol, token.Name, token.Decimals); err != nil {
			return fmt.Errorf("register token %s: %w", token.Symbol, err)
		}
	}
	for _, unit := range cfg.RewardUnits {
		amount, ok := new(big.Int).SetString(strings.TrimSpace(unit.Amount), 10)
		if !ok {
			return fmt.Errorf("invalid reward unit amount %q", unit.Amount)
		}
		if err := node.SetRewardUnit(unit.Token, amount); err != nil {
			return fmt.Errorf("set reward unit for %s: %w", unit.Token, err)
		}
	}
	for _, staker := range cfg.Stakers {
		addr, err := crypto.DecodeAddress(staker)
		if err != nil {
			return fmt.Errorf("decode staker %q: %w", staker, err)
		}
		if err := node.SetStaker(addr.Raw(), true); err != nil {
			return fmt.Errorf("set staker %s: %w", staker, err)
		}
	}
	seeded, err := node.AllocationsSeeded()
	if err != nil {
		return fmt.Errorf("read allocation marker: %w", err)
	}
	if seeded {
		return nil
	}
	for _, alloc := range cfg.Allocations {
		addr, err := crypto.DecodeAddress(alloc.Address)
		if err != nil {
			return fmt.Errorf("decode allocation address %q: %w", alloc.Address, err)
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(alloc.Amount), 10)
		if !ok {
			return fmt.Errorf("invalid allocation amount %q", alloc.Amount)
		}
		if err := node.Mint(addr.Raw(), alloc.Token, amount); err != nil {
			return fmt.Errorf("apply allocation for %s: %w", alloc.Address, err)
		}
	}
	return node.MarkAllocationsSeeded()
}
