// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads ledgerd settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

var (
	ErrMissingOwner  = errors.New("config: owner address is required")
	ErrInvalidBranch = errors.New("config: malformed branch")
	ErrZeroConverter = errors.New("config: converter denominator must be nonzero")
)

// Branch is a branch chain registered at startup.
type Branch struct {
	ChainID  uint64
	Contract common.Address
	Supply   *uint256.Int
	Fee      *uint256.Int
}

// Config is the full ledgerd configuration.
type Config struct {
	ChainID     uint64 `env:"LEDGER_CHAIN_ID"       envDefault:"96369"`
	TokenName   string `env:"LEDGER_TOKEN_NAME"     envDefault:"Branch Token"`
	TokenSymbol string `env:"LEDGER_TOKEN_SYMBOL"   envDefault:"BRT"`
	Decimals    uint8  `env:"LEDGER_TOKEN_DECIMALS" envDefault:"18"`

	LedgerAddress common.Address `env:"LEDGER_ADDRESS"        envDefault:"0x0000000000000000000000000000000000006600"`
	BridgeAddress common.Address `env:"LEDGER_BRIDGE_ADDRESS" envDefault:"0x0000000000000000000000000000000000006601"`
	DexAddress    common.Address `env:"LEDGER_DEX_ADDRESS"    envDefault:"0x0000000000000000000000000000000000006602"`
	Owner         common.Address `env:"LEDGER_OWNER"`
	Executor      common.Address `env:"LEDGER_EXECUTOR"`

	// Minted to the bridge on the current chain.
	InitialSupply *uint256.Int `env:"LEDGER_INITIAL_SUPPLY"`
	// Each entry is chainID:contract:supply:fee.
	BranchEntries []string `env:"LEDGER_BRANCHES" envSeparator:","`
	Branches      []Branch `env:"-"`

	LockOffPrice *uint256.Int `env:"LEDGER_LOCK_OFF_PRICE"`
	UnbanPrice   *uint256.Int `env:"LEDGER_UNBAN_PRICE"`
	ConverterNum *uint256.Int `env:"LEDGER_CONVERTER_NUM"`
	ConverterDen *uint256.Int `env:"LEDGER_CONVERTER_DEN"`

	AllowTagReplay bool `env:"LEDGER_ALLOW_TAG_REPLAY" envDefault:"false"`

	HTTPAddr        string        `env:"LEDGER_HTTP_ADDR"        envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"LEDGER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses the environment, applies defaults and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	branches, err := parseBranches(cfg.BranchEntries)
	if err != nil {
		return Config{}, err
	}
	cfg.Branches = branches
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.InitialSupply == nil {
		c.InitialSupply = uint256.NewInt(0)
	}
	if c.LockOffPrice == nil {
		c.LockOffPrice = uint256.NewInt(0)
	}
	if c.UnbanPrice == nil {
		c.UnbanPrice = uint256.NewInt(0)
	}
	if c.ConverterNum == nil {
		c.ConverterNum = uint256.NewInt(0)
	}
	if c.ConverterDen == nil {
		c.ConverterDen = uint256.NewInt(1)
	}
}

func (c Config) Validate() error {
	if c.Owner == (common.Address{}) {
		return ErrMissingOwner
	}
	if c.ConverterDen.IsZero() {
		return ErrZeroConverter
	}
	for _, b := range c.Branches {
		if b.ChainID == c.ChainID {
			return fmt.Errorf("%w: chain %d is the current chain", ErrInvalidBranch, b.ChainID)
		}
	}
	return nil
}

func parseBranches(entries []string) ([]Branch, error) {
	out := make([]Branch, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		b, err := parseBranch(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func parseBranch(entry string) (Branch, error) {
	parts := strings.Split(entry, ":")
	if len(parts) != 4 {
		return Branch{}, fmt.Errorf("%w: %q", ErrInvalidBranch, entry)
	}
	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return Branch{}, fmt.Errorf("%w: chain id %q: %v", ErrInvalidBranch, parts[0], err)
	}
	if !common.IsHexAddress(parts[1]) {
		return Branch{}, fmt.Errorf("%w: contract %q", ErrInvalidBranch, parts[1])
	}
	supply, err := uint256.FromDecimal(parts[2])
	if err != nil {
		return Branch{}, fmt.Errorf("%w: supply %q: %v", ErrInvalidBranch, parts[2], err)
	}
	fee, err := uint256.FromDecimal(parts[3])
	if err != nil {
		return Branch{}, fmt.Errorf("%w: fee %q: %v", ErrInvalidBranch, parts[3], err)
	}
	return Branch{
		ChainID:  id,
		Contract: common.HexToAddress(parts[1]),
		Supply:   supply,
		Fee:      fee,
	}, nil
}
