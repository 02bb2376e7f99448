// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

const testOwner = "0x1111111111111111111111111111111111111111"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LEDGER_OWNER", testOwner)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, uint64(96369), cfg.ChainID)
	require.Equal(t, "BRT", cfg.TokenSymbol)
	require.Equal(t, uint8(18), cfg.Decimals)
	require.Equal(t, common.HexToAddress(testOwner), cfg.Owner)
	require.Equal(t, common.HexToAddress("0x6600"), cfg.LedgerAddress)
	require.True(t, cfg.InitialSupply.IsZero())
	require.Equal(t, uint256.NewInt(1), cfg.ConverterDen)
	require.False(t, cfg.AllowTagReplay)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	require.Empty(t, cfg.Branches)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LEDGER_OWNER", testOwner)
	t.Setenv("LEDGER_CHAIN_ID", "137")
	t.Setenv("LEDGER_INITIAL_SUPPLY", "1000000000000000000000")
	t.Setenv("LEDGER_UNBAN_PRICE", "0x10")
	t.Setenv("LEDGER_ALLOW_TAG_REPLAY", "true")
	t.Setenv("LEDGER_BRANCHES", "56:0x4444444444444444444444444444444444444444:5000:10, 1:0x5555555555555555555555555555555555555555:0:0")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, uint64(137), cfg.ChainID)
	require.Equal(t, "1000000000000000000000", cfg.InitialSupply.Dec())
	require.Equal(t, uint256.NewInt(16), cfg.UnbanPrice)
	require.True(t, cfg.AllowTagReplay)

	require.Len(t, cfg.Branches, 2)
	require.Equal(t, uint64(56), cfg.Branches[0].ChainID)
	require.Equal(t, common.HexToAddress("0x4444444444444444444444444444444444444444"), cfg.Branches[0].Contract)
	require.Equal(t, uint256.NewInt(5000), cfg.Branches[0].Supply)
	require.Equal(t, uint256.NewInt(10), cfg.Branches[0].Fee)
	require.Equal(t, uint64(1), cfg.Branches[1].ChainID)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing owner", func(t *testing.T) {
		_, err := Load()
		require.ErrorIs(t, err, ErrMissingOwner)
	})
	t.Run("bad chain id", func(t *testing.T) {
		t.Setenv("LEDGER_OWNER", testOwner)
		t.Setenv("LEDGER_CHAIN_ID", "not-a-number")
		_, err := Load()
		require.ErrorContains(t, err, "parse env:")
	})
	t.Run("zero converter", func(t *testing.T) {
		t.Setenv("LEDGER_OWNER", testOwner)
		t.Setenv("LEDGER_CONVERTER_DEN", "0")
		_, err := Load()
		require.ErrorIs(t, err, ErrZeroConverter)
	})
	t.Run("branch on current chain", func(t *testing.T) {
		t.Setenv("LEDGER_OWNER", testOwner)
		t.Setenv("LEDGER_BRANCHES", "96369:0x4444444444444444444444444444444444444444:0:0")
		_, err := Load()
		require.ErrorIs(t, err, ErrInvalidBranch)
	})
}

func TestParseBranch(t *testing.T) {
	for _, entry := range []string{
		"56",
		"x:0x4444444444444444444444444444444444444444:0:0",
		"56:nothex:0:0",
		"56:0x4444444444444444444444444444444444444444:-1:0",
		"56:0x4444444444444444444444444444444444444444:0:fee",
	} {
		_, err := parseBranch(entry)
		require.ErrorIs(t, err, ErrInvalidBranch, entry)
	}
}
