// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"
)

// StateDB is the subset of the EVM state used for native balances and logs.
//
// Components sharing one StateDB never roll it back: an operation that fails
// after taking payment returns the payment with a compensating transfer, so
// balance changes made by other components are never undone.
type StateDB interface {
	GetBalance(common.Address) *uint256.Int
	AddBalance(common.Address, *uint256.Int, tracing.BalanceChangeReason) uint256.Int
	SubBalance(common.Address, *uint256.Int, tracing.BalanceChangeReason) uint256.Int

	AddLog(*ethtypes.Log)
	Logs() []*ethtypes.Log
}

// transferer is implemented by states that can check and move a balance
// under one lock.
type transferer interface {
	Transfer(from, to common.Address, amount *uint256.Int) error
}

// MemoryState is an in-process StateDB.
type MemoryState struct {
	mu       sync.RWMutex
	balances map[common.Address]*uint256.Int
	logs     []*ethtypes.Log
}

// NewMemoryState returns an empty state.
func NewMemoryState() *MemoryState {
	return &MemoryState{
		balances: make(map[common.Address]*uint256.Int),
		logs:     make([]*ethtypes.Log, 0),
	}
}

func (m *MemoryState) GetBalance(addr common.Address) *uint256.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if bal, ok := m.balances[addr]; ok {
		return bal.Clone()
	}
	return uint256.NewInt(0)
}

func (m *MemoryState) AddBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.balanceLocked(addr)
	m.balances[addr] = new(uint256.Int).Add(prev, amount)
	return *prev
}

func (m *MemoryState) SubBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.balanceLocked(addr)
	m.balances[addr] = new(uint256.Int).Sub(prev, amount)
	return *prev
}

// Transfer moves amount from one account to another, failing with
// ErrInsufficientFunds without any change when from cannot cover it.
func (m *MemoryState) Transfer(from, to common.Address, amount *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bal := m.balanceLocked(from)
	if bal.Lt(amount) {
		return ErrInsufficientFunds
	}
	m.balances[from] = new(uint256.Int).Sub(bal, amount)
	m.balances[to] = new(uint256.Int).Add(m.balanceLocked(to), amount)
	return nil
}

func (m *MemoryState) balanceLocked(addr common.Address) *uint256.Int {
	if bal, ok := m.balances[addr]; ok {
		return bal
	}
	return uint256.NewInt(0)
}

func (m *MemoryState) AddLog(log *ethtypes.Log) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log.Index = uint(len(m.logs))
	m.logs = append(m.logs, log)
}

// Logs returns a copy of the emitted logs in emission order.
func (m *MemoryState) Logs() []*ethtypes.Log {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*ethtypes.Log, len(m.logs))
	copy(out, m.logs)
	return out
}
