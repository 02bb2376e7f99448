// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/ledger/contract"
)

func (l *Ledger) BalanceOf(addr common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balanceLocked(addr).Clone()
}

func (l *Ledger) Allowance(owner, spender common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowanceLocked(owner, spender).Clone()
}

// Transfer moves amount from the caller to to.
func (l *Ledger) Transfer(call contract.Call, to common.Address, amount *uint256.Int) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.transferLocked(call.Caller, to, amount)
}

// Approve sets the caller's allowance for spender.
func (l *Ledger) Approve(call contract.Call, spender common.Address, amount *uint256.Int) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}
	if spender == (common.Address{}) {
		return contract.ErrZeroAddress
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.setAllowanceLocked(call.Caller, spender, amount.Clone())
	return nil
}

func (l *Ledger) IncreaseAllowance(call contract.Call, spender common.Address, added *uint256.Int) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}
	if spender == (common.Address{}) {
		return contract.ErrZeroAddress
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next, overflow := new(uint256.Int).AddOverflow(l.allowanceLocked(call.Caller, spender), added)
	if overflow {
		return ErrSupplyOverflow
	}
	l.setAllowanceLocked(call.Caller, spender, next)
	return nil
}

func (l *Ledger) DecreaseAllowance(call contract.Call, spender common.Address, subtracted *uint256.Int) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.allowanceLocked(call.Caller, spender)
	if current.Lt(subtracted) {
		return ErrAllowanceBelowZero
	}
	l.setAllowanceLocked(call.Caller, spender, new(uint256.Int).Sub(current, subtracted))
	return nil
}

// TransferFrom moves amount from from to to against the caller's allowance.
func (l *Ledger) TransferFrom(call contract.Call, from, to common.Address, amount *uint256.Int) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	allowed := l.allowanceLocked(from, call.Caller)
	if allowed.Lt(amount) {
		return ErrInsufficientAllow
	}
	if err := l.transferLocked(from, to, amount); err != nil {
		return err
	}
	l.setAllowanceLocked(from, call.Caller, new(uint256.Int).Sub(allowed, amount))
	return nil
}

// Mint creates amount on the current chain for to. Owner only.
func (l *Ledger) Mint(call contract.Call, to common.Address, amount *uint256.Int) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.roles.OnlyOwner(call); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return ErrMintToZero
	}
	total, overflow := new(uint256.Int).AddOverflow(l.totalSupply, amount)
	if overflow {
		return ErrSupplyOverflow
	}

	l.totalSupply = total
	l.currentSupply = new(uint256.Int).Add(l.currentSupply, amount)
	l.balances[to] = new(uint256.Int).Add(l.balanceLocked(to), amount)
	l.emit(eventTransfer, common.Address{}, to, amount)
	l.publishLocked()
	return nil
}

// Burn destroys amount of the caller's balance.
func (l *Ledger) Burn(call contract.Call, amount *uint256.Int) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.burnLocked(call.Caller, amount); err != nil {
		return err
	}
	l.totalSupply = new(uint256.Int).Sub(l.totalSupply, amount)
	l.publishLocked()
	return nil
}

func (l *Ledger) transferLocked(from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return contract.ErrZeroAddress
	}
	balance := l.balanceLocked(from)
	if balance.Lt(amount) {
		return ErrExceedsBalance
	}
	l.balances[from] = new(uint256.Int).Sub(balance, amount)
	l.balances[to] = new(uint256.Int).Add(l.balanceLocked(to), amount)
	l.emit(eventTransfer, from, to, amount)
	return nil
}

// burnLocked removes amount from holder and from the current chain supply.
// The caller adjusts whichever figure receives the burned amount.
func (l *Ledger) burnLocked(holder common.Address, amount *uint256.Int) error {
	balance := l.balanceLocked(holder)
	if balance.Lt(amount) {
		return ErrExceedsBalance
	}
	if l.currentSupply.Lt(amount) {
		return ErrExceedsSupply
	}
	l.balances[holder] = new(uint256.Int).Sub(balance, amount)
	l.currentSupply = new(uint256.Int).Sub(l.currentSupply, amount)
	l.emit(eventTransfer, holder, common.Address{}, amount)
	return nil
}

func (l *Ledger) allowanceLocked(owner, spender common.Address) *uint256.Int {
	if m, ok := l.allowances[owner]; ok {
		if v, ok := m[spender]; ok {
			return v
		}
	}
	return new(uint256.Int)
}

func (l *Ledger) setAllowanceLocked(owner, spender common.Address, amount *uint256.Int) {
	m, ok := l.allowances[owner]
	if !ok {
		m = make(map[common.Address]*uint256.Int)
		l.allowances[owner] = m
	}
	m[spender] = amount
	l.emit(eventApproval, owner, spender, amount)
}
