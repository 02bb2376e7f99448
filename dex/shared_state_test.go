// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/parsdao/ledger/bridge"
	"github.com/parsdao/ledger/contract"
	"github.com/parsdao/ledger/ledger"
	"github.com/parsdao/ledger/registry"
)

var (
	controllerAddr = common.HexToAddress("0x0000000000000000000000000000000000008800")
	dave           = common.HexToAddress("0x7777777777777777777777777777777777777777")
)

// hookedState runs before ahead of the next native transfer.
type hookedState struct {
	*contract.MemoryState
	before func()
}

func (h *hookedState) Transfer(from, to common.Address, amount *uint256.Int) error {
	if hook := h.before; hook != nil {
		h.before = nil
		hook()
	}
	return h.MemoryState.Transfer(from, to, amount)
}

type sharedFixture struct {
	engine *Engine
	ctrl   *bridge.Controller
	ledger *ledger.Ledger
	state  *hookedState
}

// newSharedFixture wires an engine and a move-order controller onto one
// state. The eth transfer fee is 10 and alice has approved 10_000 tokens.
func newSharedFixture(t *testing.T) *sharedFixture {
	t.Helper()
	st := &hookedState{MemoryState: contract.NewMemoryState()}
	reg := registry.New(polygon, ledgerAddr)
	l, err := ledger.New(ledger.Config{
		Symbol:        "BRT",
		Address:       ledgerAddr,
		Owner:         owner,
		InitialSupply: u(1_000_000),
	}, reg, st)
	require.NoError(t, err)
	require.NoError(t, l.CreateBranch(as(owner), eth, ethToken, u(0)))

	db := memdb.New()
	t.Cleanup(func() { _ = db.Close() })
	e, err := NewEngine(EngineConfig{
		Address:  engineAddr,
		Owner:    owner,
		Executor: executor,
	}, l, reg, NewStore(db, engineAddr), st)
	require.NoError(t, err)

	ctrl, err := bridge.NewController(bridge.Config{
		Address:  controllerAddr,
		Owner:    owner,
		Executor: executor,
	}, l, reg, st)
	require.NoError(t, err)
	require.NoError(t, ctrl.SetCrossChainTransferFee(as(executor), u(10), eth))

	require.NoError(t, l.Transfer(as(owner), alice, u(10_000)))
	require.NoError(t, l.Approve(as(alice), controllerAddr, u(10_000)))
	st.AddBalance(alice, u(1_000), tracing.BalanceChangeTransfer)
	st.AddBalance(bob, u(1_000), tracing.BalanceChangeTransfer)
	st.AddBalance(dave, u(5), tracing.BalanceChangeTransfer)
	return &sharedFixture{engine: e, ctrl: ctrl, ledger: l, state: st}
}

// TestFailedPaymentKeepsOtherComponentTransfers tests that an engine call
// failing to collect its payment leaves a move order fee collected in the
// middle of it in place
func TestFailedPaymentKeepsOtherComponentTransfers(t *testing.T) {
	f := newSharedFixture(t)

	var increaseErr error
	f.state.before = func() {
		increaseErr = f.ctrl.IncreaseMoveToBranchOrder(pay(alice, 10), u(100), eth)
	}
	_, err := f.engine.PlaceExchangeOrder(pay(dave, 50), u(100), eth, dave)
	require.ErrorIs(t, err, contract.ErrInsufficientFunds)
	require.NoError(t, increaseErr)

	order, ok := f.ctrl.MoveToBranchOrder(alice, eth)
	require.True(t, ok)
	require.Equal(t, u(10), order.Fee)
	require.Equal(t, u(100), order.Amount)
	require.Equal(t, u(10), f.state.GetBalance(controllerAddr))
	require.Equal(t, u(990), f.state.GetBalance(alice))
	require.Equal(t, u(5), f.state.GetBalance(dave))
	require.Len(t, bridge.Events.Filter(f.state.Logs(), controllerAddr, "MoveOrderIncreased"), 1)

	require.NoError(t, f.ctrl.CloseMoveToBranchOrder(as(alice), eth))
	require.Equal(t, u(1_000), f.state.GetBalance(alice))
	require.True(t, f.state.GetBalance(controllerAddr).IsZero())
}

// TestConcurrentComponentsOnSharedState tests that native balances stay
// backed when the engine and the controller run side by side
func TestConcurrentComponentsOnSharedState(t *testing.T) {
	f := newSharedFixture(t)
	const rounds = 50

	var g errgroup.Group
	g.Go(func() error {
		for i := 0; i < rounds; i++ {
			if _, err := f.engine.PlaceExchangeOrder(pay(dave, 50), u(100), eth, dave); err == nil {
				return contract.ErrInvariant
			}
			if _, err := f.engine.PlaceExchangeOrder(pay(bob, 1), u(1), eth, bob); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		for i := 0; i < rounds; i++ {
			if err := f.ctrl.IncreaseMoveToBranchOrder(pay(alice, 10), u(1), eth); err != nil {
				return err
			}
			if err := f.ctrl.CancelMoveToBranchOrder(as(alice), eth); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, g.Wait())

	require.True(t, f.state.GetBalance(controllerAddr).IsZero())
	require.Equal(t, u(1_000), f.state.GetBalance(alice))
	require.Equal(t, u(10_000), f.ledger.BalanceOf(alice))
	require.Equal(t, u(rounds), f.state.GetBalance(engineAddr))
	require.Equal(t, u(1_000-rounds), f.state.GetBalance(bob))
	require.Equal(t, u(5), f.state.GetBalance(dave))

	ids, err := f.engine.ActiveOrderIDs()
	require.NoError(t, err)
	require.Len(t, ids, rounds)
	require.Len(t, bridge.Events.Filter(f.state.Logs(), controllerAddr, "MoveOrderIncreased"), rounds)
}
