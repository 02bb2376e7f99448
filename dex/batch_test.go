// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/parsdao/ledger/contract"
)

func amounts(vs ...uint64) []*uint256.Int {
	out := make([]*uint256.Int, len(vs))
	for i, v := range vs {
		out[i] = u(v)
	}
	return out
}

func TestBatchReserveOrders(t *testing.T) {
	f := newFixture(t)
	id := f.place(t, alice, 100, 1_000)

	_, err := f.engine.BatchReserveOrders(as(bob), 1, nil, nil)
	require.ErrorIs(t, err, contract.ErrAuthorization)
	_, err = f.engine.BatchReserveOrders(as(owner), 1, []uint64{id}, nil)
	require.ErrorIs(t, err, ErrWrongData)

	results, err := f.engine.BatchReserveOrders(as(owner), 1, []uint64{id}, amounts(100))
	require.NoError(t, err)
	require.Empty(t, Failed(results))
	require.Zero(t, f.count(eventReserveOrderException))

	reserved, err := f.engine.ReservedOrderAmount(id)
	require.NoError(t, err)
	require.Equal(t, u(100), reserved)

	results, err = f.engine.BatchReserveOrders(as(owner), 2, []uint64{id}, amounts(100))
	require.NoError(t, err)
	require.Len(t, Failed(results), 1)
	require.ErrorIs(t, results[0].Err, ErrOverReserve)

	logs := Events.Filter(f.state.Logs(), engineAddr, eventReserveOrderException)
	require.Len(t, logs, 1)
	fields, err := Events.UnpackEvent(eventReserveOrderException, logs[0])
	require.NoError(t, err)
	require.Zero(t, big.NewInt(100).Cmp(fields["value"].(*big.Int)))
	require.Equal(t, common.BigToHash(big.NewInt(2)), logs[0].Topics[1])
	require.Equal(t, common.BigToHash(big.NewInt(int64(id))), logs[0].Topics[2])
}

// TestBatchReservePartialFailure reserves the satisfiable item and reports
// exactly one exception for the over-reserving one.
func TestBatchReservePartialFailure(t *testing.T) {
	f := newFixture(t)
	first := f.place(t, alice, 100, 1_000)
	second := f.place(t, bob, 10, 100)

	results, err := f.engine.BatchReserveOrders(as(executor), 7, []uint64{first, second}, amounts(60, 11))
	require.NoError(t, err)
	require.True(t, results[0].OK)
	require.False(t, results[1].OK)
	require.Len(t, Failed(results), 1)
	require.Equal(t, 1, f.count(eventReserveOrderException))

	reserved, err := f.engine.ReservedOrderAmount(first)
	require.NoError(t, err)
	require.Equal(t, u(60), reserved)
	reserved, err = f.engine.ReservedOrderAmount(second)
	require.NoError(t, err)
	require.True(t, reserved.IsZero())
}

func TestBatchReserveUnknownOrder(t *testing.T) {
	f := newFixture(t)
	results, err := f.engine.BatchReserveOrders(as(executor), 1, []uint64{42}, amounts(1))
	require.NoError(t, err)
	require.ErrorIs(t, results[0].Err, ErrOrderNotFound)
	require.Equal(t, 1, f.count(eventReserveOrderException))
}

func TestBatchUnreserveFloorsAtZero(t *testing.T) {
	f := newFixture(t)
	id := f.place(t, alice, 100, 1_000)

	_, err := f.engine.BatchUnreserveOrders(as(owner), []uint64{id}, nil)
	require.ErrorIs(t, err, ErrWrongData)

	_, err = f.engine.BatchReserveOrders(as(owner), 1, []uint64{id}, amounts(50))
	require.NoError(t, err)
	_, err = f.engine.BatchUnreserveOrders(as(owner), []uint64{id}, amounts(20))
	require.NoError(t, err)
	reserved, err := f.engine.ReservedOrderAmount(id)
	require.NoError(t, err)
	require.Equal(t, u(30), reserved)

	_, err = f.engine.BatchUnreserveOrders(as(owner), []uint64{id}, amounts(1_000))
	require.NoError(t, err)
	reserved, err = f.engine.ReservedOrderAmount(id)
	require.NoError(t, err)
	require.True(t, reserved.IsZero())
}

func TestBatchWriteOffBalance(t *testing.T) {
	f := newFixture(t)
	first := f.place(t, alice, 100, 1_000)
	second := f.place(t, bob, 100, 1_000)

	_, err := f.engine.BatchWriteOffBalance(as(owner), 1, []uint64{first}, nil)
	require.ErrorIs(t, err, ErrWrongData)

	results, err := f.engine.BatchWriteOffBalance(as(owner), 1, []uint64{first}, amounts(100))
	require.NoError(t, err)
	require.ErrorIs(t, results[0].Err, ErrOverWriteOff)
	require.Equal(t, 1, f.count(eventWriteOffException))

	_, err = f.engine.BatchReserveOrders(as(owner), 1, []uint64{second}, amounts(100))
	require.NoError(t, err)

	_, err = f.engine.BatchWriteOffBalance(as(owner), 2, []uint64{second}, amounts(40))
	require.NoError(t, err)
	require.Equal(t, 1, f.count(eventWriteOffException))
	require.Equal(t, u(400), f.engine.LiquidityBalance())

	order, err := f.engine.OrderInfo(second)
	require.NoError(t, err)
	require.Equal(t, u(60), order.Balance)
	require.Equal(t, u(60), order.Reserved)
	require.Equal(t, u(600), order.Escrow)

	active, err := f.engine.ActiveOrderIDs()
	require.NoError(t, err)
	require.Equal(t, []uint64{first, second}, active)

	_, err = f.engine.BatchWriteOffBalance(as(owner), 3, []uint64{second}, amounts(60))
	require.NoError(t, err)
	require.Equal(t, u(1_000), f.engine.LiquidityBalance())
	require.Equal(t, 1, f.count(eventFilledOrder))
	require.Equal(t, 2, f.count(eventWriteOffBalance))

	active, err = f.engine.ActiveOrderIDs()
	require.NoError(t, err)
	require.Equal(t, []uint64{first}, active)

	order, err = f.engine.OrderInfo(second)
	require.NoError(t, err)
	require.Equal(t, StatusFilled, order.Status)
	require.True(t, order.Reserved.IsZero())
	require.True(t, order.Escrow.IsZero())

	require.ErrorIs(t, f.engine.CloseExchangeOrder(as(bob), second), ErrOrderClosed)
}

func TestBatchSendExchangedBalance(t *testing.T) {
	f := newFixture(t)

	require.ErrorIs(t, f.engine.BatchSendExchangedBalance(as(bob), 1, nil, nil), contract.ErrAuthorization)
	require.ErrorIs(t, f.engine.BatchSendExchangedBalance(as(owner), 1, amounts(1), nil), ErrWrongData)
	require.ErrorIs(t,
		f.engine.BatchSendExchangedBalance(as(owner), 1, amounts(1_000), []common.Address{bob}),
		ErrInsufficientLiquidity,
	)
	require.ErrorIs(t,
		f.engine.BatchSendExchangedBalance(as(owner), 1, amounts(1), []common.Address{{}}),
		contract.ErrZeroAddress,
	)

	require.NoError(t, f.engine.IncreaseLiquidity(pay(owner, 1_000)))
	require.NoError(t, f.engine.BatchSendExchangedBalance(as(owner), 1, amounts(500, 500), []common.Address{bob, alice}))

	require.Equal(t, uint64(10_500), f.native(alice))
	require.Equal(t, uint64(10_500), f.native(bob))
	require.Zero(t, f.native(engineAddr))
	require.True(t, f.engine.LiquidityBalance().IsZero())
	require.Equal(t, 2, f.count(eventSendExchangedBalance))
}

// TestEscrowAccounting checks that engine custody always equals open escrow
// plus liquidity.
func TestEscrowAccounting(t *testing.T) {
	f := newFixture(t)
	a := f.place(t, alice, 100, 999)
	b := f.place(t, bob, 3, 7)
	require.NoError(t, f.engine.IncreaseLiquidity(pay(owner, 50)))

	_, err := f.engine.BatchReserveOrders(as(owner), 1, []uint64{a, b}, amounts(33, 3))
	require.NoError(t, err)
	_, err = f.engine.BatchWriteOffBalance(as(owner), 2, []uint64{a, b}, amounts(33, 1))
	require.NoError(t, err)
	_, err = f.engine.BatchWriteOffBalance(as(owner), 3, []uint64{b}, amounts(2))
	require.NoError(t, err)

	total := f.engine.LiquidityBalance()
	for _, id := range []uint64{a, b} {
		order, err := f.engine.OrderInfo(id)
		require.NoError(t, err)
		total.Add(total, order.Escrow)
	}
	require.Equal(t, f.state.GetBalance(engineAddr), total)
}
