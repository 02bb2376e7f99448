// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	carol = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

const testEventsABI = `[
	{"type":"event","name":"Moved","anonymous":false,"inputs":[
		{"name":"from","type":"address","indexed":true},
		{"name":"id","type":"uint64","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}
	]}
]`

// TestConcurrentSends tests that concurrent debits of one account never
// overdraw it
func TestConcurrentSends(t *testing.T) {
	st := NewMemoryState()
	st.AddBalance(alice, uint256.NewInt(100), tracing.BalanceChangeTransfer)

	var (
		wg   sync.WaitGroup
		sent atomic.Int64
	)
	for _, to := range []common.Address{bob, carol} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if Send(st, alice, to, uint256.NewInt(1)) == nil {
					sent.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(100), sent.Load())
	require.True(t, st.GetBalance(alice).IsZero())
	total := new(uint256.Int).Add(st.GetBalance(bob), st.GetBalance(carol))
	require.Equal(t, uint64(100), total.Uint64())
}

// TestReturnPayment tests that a received payment goes back to the caller
// without touching other accounts
func TestReturnPayment(t *testing.T) {
	st := NewMemoryState()
	st.AddBalance(alice, uint256.NewInt(10), tracing.BalanceChangeTransfer)
	st.AddBalance(bob, uint256.NewInt(3), tracing.BalanceChangeTransfer)
	call := NewCall(alice, 0).WithValue(uint256.NewInt(4))

	got, err := Receive(st, call, carol)
	require.NoError(t, err)
	require.NoError(t, Send(st, bob, carol, uint256.NewInt(3)))
	require.NoError(t, ReturnPayment(st, call, carol, got))

	require.Equal(t, uint64(10), st.GetBalance(alice).Uint64())
	require.True(t, st.GetBalance(bob).IsZero())
	require.Equal(t, uint64(3), st.GetBalance(carol).Uint64())

	require.NoError(t, Covers(st, carol, uint256.NewInt(3)))
	require.NoError(t, Covers(st, carol, nil))
	require.ErrorIs(t, Covers(st, carol, uint256.NewInt(4)), ErrInsufficientFunds)
}

func TestSendInsufficientFunds(t *testing.T) {
	st := NewMemoryState()
	err := Send(st, alice, bob, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.ErrorIs(t, err, ErrInsufficientPayment)
}

func TestReceive(t *testing.T) {
	st := NewMemoryState()
	st.AddBalance(alice, uint256.NewInt(7), tracing.BalanceChangeTransfer)

	got, err := Receive(st, NewCall(alice, 0).WithValue(uint256.NewInt(7)), carol)
	require.NoError(t, err)
	require.Equal(t, uint64(7), got.Uint64())
	require.Equal(t, uint64(7), st.GetBalance(carol).Uint64())

	got, err = Receive(st, NewCall(alice, 0), carol)
	require.NoError(t, err)
	require.True(t, got.IsZero())

	_, err = Receive(st, NewCall(alice, 0).WithValue(uint256.NewInt(1)), carol)
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestNonPayable(t *testing.T) {
	require.NoError(t, NonPayable(NewCall(alice, 0)))
	require.NoError(t, NonPayable(NewCall(alice, 0).WithValue(new(uint256.Int))))
	require.ErrorIs(t, NonPayable(NewCall(alice, 0).WithValue(uint256.NewInt(1))), ErrNonPayable)
}

// TestOwnable tests owner and executor checks
func TestOwnable(t *testing.T) {
	o := NewOwnable(alice, bob)

	tests := []struct {
		name     string
		check    func(Call) error
		caller   common.Address
		expected error
	}{
		{"owner as owner", o.OnlyOwner, alice, nil},
		{"executor as owner", o.OnlyOwner, bob, ErrUnauthorized},
		{"owner as operator", o.OnlyOperator, alice, nil},
		{"executor as operator", o.OnlyOperator, bob, nil},
		{"stranger as operator", o.OnlyOperator, carol, ErrNotOperator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check(NewCall(tt.caller, 0))
			if tt.expected == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.expected)
			require.True(t, errors.Is(err, ErrAuthorization))
		})
	}

	require.ErrorIs(t, o.ChangeExecutor(NewCall(bob, 0), carol), ErrUnauthorized)
	require.NoError(t, o.ChangeExecutor(NewCall(alice, 0), carol))
	require.Equal(t, carol, o.Executor())
	require.ErrorIs(t, o.TransferOwnership(NewCall(alice, 0), common.Address{}), ErrZeroAddress)
	require.NoError(t, o.TransferOwnership(NewCall(alice, 0), bob))
	require.Equal(t, bob, o.Owner())
}

// TestEmitEvent tests topic and data packing of an event
func TestEmitEvent(t *testing.T) {
	events := ParseABI(testEventsABI)
	st := NewMemoryState()

	require.NoError(t, events.Emit(st, carol, "Moved", alice, uint64(9), uint256.NewInt(500)))
	logs := events.Filter(st.Logs(), carol, "Moved")
	require.Len(t, logs, 1)

	l := logs[0]
	require.Len(t, l.Topics, 3)
	require.Equal(t, events.EventID("Moved"), l.Topics[0])
	require.Equal(t, common.BytesToHash(alice.Bytes()), l.Topics[1])
	require.Equal(t, common.BigToHash(big.NewInt(9)), l.Topics[2])

	out, err := events.UnpackEvent("Moved", l)
	require.NoError(t, err)
	require.Zero(t, big.NewInt(500).Cmp(out["amount"].(*big.Int)))

	require.Empty(t, events.Filter(st.Logs(), alice, "Moved"))
}

func TestPackEventErrors(t *testing.T) {
	events := ParseABI(testEventsABI)

	_, _, err := events.PackEvent("Missing")
	require.Error(t, err)

	_, _, err = events.PackEvent("Moved", alice)
	require.Error(t, err)

	_, _, err = events.PackEvent("Moved", alice, 1.5, uint256.NewInt(1))
	require.Error(t, err)
}
