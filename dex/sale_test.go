// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/parsdao/ledger/contract"
)

func TestSetConverters(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.engine.SetConverters(as(bob), u(4), u(10)), contract.ErrAuthorization)
	require.ErrorIs(t, f.engine.SetConverters(as(owner), u(4), u(0)), ErrDivideByZero)
	require.NoError(t, f.engine.SetConverters(as(owner), u(4), u(10)))

	require.Equal(t, u(4), f.engine.GetSaleCourse(u(10)))
	require.Equal(t, u(0), f.engine.GetSaleCourse(u(2)))

	huge := new(uint256.Int).SetAllOne()
	require.NoError(t, f.engine.SetConverters(as(owner), huge, u(1)))
	require.Equal(t, huge, f.engine.GetSaleCourse(u(2)))
}

func TestSetSaleActivity(t *testing.T) {
	f := newFixture(t)
	require.False(t, f.engine.SaleIsActive())
	require.ErrorIs(t, f.engine.SetSaleActivity(as(bob), true), contract.ErrAuthorization)
	require.NoError(t, f.engine.SetSaleActivity(as(executor), true))
	require.True(t, f.engine.SaleIsActive())
}

func TestPurchase(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Purchase(pay(bob, 1))
	require.ErrorIs(t, err, ErrSalesClosed)

	require.NoError(t, f.engine.SetSaleActivity(as(owner), true))
	require.NoError(t, f.engine.SetConverters(as(owner), u(4), u(10)))

	_, err = f.engine.Purchase(pay(bob, 1))
	require.ErrorIs(t, err, ErrNotEnoughFunds)

	_, err = f.engine.Purchase(pay(bob, 10))
	require.ErrorIs(t, err, ErrNotEnoughTokens)

	require.NoError(t, f.ledger.Transfer(as(owner), engineAddr, u(4)))
	require.Equal(t, u(4), f.engine.AvailableTokens())

	tokens, err := f.engine.Purchase(pay(bob, 10))
	require.NoError(t, err)
	require.Equal(t, u(4), tokens)
	require.Equal(t, u(4), f.ledger.BalanceOf(bob))
	require.True(t, f.engine.AvailableTokens().IsZero())
	require.Equal(t, u(10), f.engine.LiquidityBalance())
	require.Equal(t, uint64(9_990), f.native(bob))
	require.Equal(t, 1, f.count(eventPurchase))
}

func TestReturnTokensToOwner(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.engine.ReturnTokensToOwner(as(alice)), contract.ErrAuthorization)
	require.NoError(t, f.engine.ReturnTokensToOwner(as(owner)))

	require.NoError(t, f.ledger.Transfer(as(owner), engineAddr, u(1_000)))
	require.Equal(t, u(999_000), f.ledger.BalanceOf(owner))

	require.NoError(t, f.engine.ReturnTokensToOwner(as(owner)))
	require.Equal(t, u(1_000_000), f.ledger.BalanceOf(owner))
	require.True(t, f.engine.AvailableTokens().IsZero())
	require.NoError(t, f.ledger.CheckConservation())
}
