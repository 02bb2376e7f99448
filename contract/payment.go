// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
)

// Receive moves the value attached to c from the caller to self and returns
// the amount received.
func Receive(st StateDB, c Call, self common.Address) (*uint256.Int, error) {
	amount := c.Payment()
	if amount.IsZero() {
		return amount, nil
	}
	if err := Send(st, c.Caller, self, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// ReturnPayment sends amount taken by Receive back to the caller when a
// later step of the same operation fails. self must only be debited by the
// component that owns it, under that component's lock.
func ReturnPayment(st StateDB, c Call, self common.Address, amount *uint256.Int) error {
	return Send(st, self, c.Caller, amount)
}

// Covers reports ErrInsufficientFunds when addr holds less than amount.
func Covers(st StateDB, addr common.Address, amount *uint256.Int) error {
	if amount != nil && st.GetBalance(addr).Lt(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// Send transfers native currency between two accounts.
func Send(st StateDB, from, to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	if t, ok := st.(transferer); ok {
		return t.Transfer(from, to, amount)
	}
	if st.GetBalance(from).Lt(amount) {
		return ErrInsufficientFunds
	}
	st.SubBalance(from, amount, tracing.BalanceChangeTransfer)
	st.AddBalance(to, amount, tracing.BalanceChangeTransfer)
	return nil
}
