// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry tracks the execution domains a token is deployed on.
//
// The current chain is the domain this instance runs on. Every other domain
// is a branch: it is created once, may have its counterpart contract
// re-pointed, and is eventually deprecated. A deprecated branch is never
// re-created, so its id cannot be reused for a different deployment.
package registry

import (
	"fmt"
	"sync"

	"github.com/luxfi/geth/common"

	"github.com/parsdao/ledger/contract"
)

var (
	ErrOnlyBranch     = fmt.Errorf("%w: operation allowed only for branch", contract.ErrRegistryState)
	ErrAlreadyCreated = fmt.Errorf("%w: branch already created", contract.ErrRegistryState)
	ErrNotCreated     = fmt.Errorf("%w: branch not created", contract.ErrRegistryState)
	ErrDeprecated     = fmt.Errorf("%w: branch is deprecated", contract.ErrRegistryState)
)

// Status is the lifecycle position of a chain id.
type Status uint8

const (
	Unregistered Status = iota
	Active
	Deprecated
	Current
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Deprecated:
		return "deprecated"
	case Current:
		return "current"
	default:
		return "unregistered"
	}
}

// Guard is consulted under the registry lock before a chain is deprecated.
type Guard func(chainID uint64) error

// Branch describes one registered chain.
type Branch struct {
	ChainID  uint64
	Contract common.Address
	Status   Status
}

// Registry is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	current    uint64
	contracts  map[uint64]common.Address
	active     *OrderedSet[uint64]
	deprecated *OrderedSet[uint64]
}

// New returns a registry whose current chain is bound to self.
func New(currentChainID uint64, self common.Address) *Registry {
	return &Registry{
		current:    currentChainID,
		contracts:  map[uint64]common.Address{currentChainID: self},
		active:     NewOrderedSet[uint64](),
		deprecated: NewOrderedSet[uint64](),
	}
}

func (r *Registry) CurrentChainID() uint64 {
	return r.current
}

// Create registers a new active branch bound to addr.
func (r *Registry) Create(chainID uint64, addr common.Address) error {
	if addr == (common.Address{}) {
		return contract.ErrZeroAddress
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.statusLocked(chainID) {
	case Current:
		return ErrOnlyBranch
	case Active:
		return ErrAlreadyCreated
	case Deprecated:
		return ErrDeprecated
	}
	r.contracts[chainID] = addr
	r.active.Add(chainID)
	return nil
}

// Deprecate moves an active branch to the deprecated set once every guard
// accepts it.
func (r *Registry) Deprecate(chainID uint64, guards ...Guard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.statusLocked(chainID) {
	case Current:
		return ErrOnlyBranch
	case Unregistered:
		return ErrNotCreated
	case Deprecated:
		return ErrDeprecated
	}
	for _, guard := range guards {
		if err := guard(chainID); err != nil {
			return err
		}
	}
	r.active.Remove(chainID)
	r.deprecated.Add(chainID)
	return nil
}

// ChangeContract re-points a registered branch, deprecated ones included.
func (r *Registry) ChangeContract(chainID uint64, addr common.Address) error {
	if addr == (common.Address{}) {
		return contract.ErrZeroAddress
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.statusLocked(chainID) {
	case Current:
		return ErrOnlyBranch
	case Unregistered:
		return ErrNotCreated
	}
	r.contracts[chainID] = addr
	return nil
}

// CheckActiveBranch fails unless chainID is a registered, non-deprecated
// branch.
func (r *Registry) CheckActiveBranch(chainID uint64) error {
	switch r.Status(chainID) {
	case Current:
		return ErrOnlyBranch
	case Unregistered:
		return ErrNotCreated
	case Deprecated:
		return ErrDeprecated
	}
	return nil
}

// CheckKnownBranch fails unless chainID is a registered branch, deprecated or
// not.
func (r *Registry) CheckKnownBranch(chainID uint64) error {
	switch r.Status(chainID) {
	case Current:
		return ErrOnlyBranch
	case Unregistered:
		return ErrNotCreated
	}
	return nil
}

func (r *Registry) Status(chainID uint64) Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statusLocked(chainID)
}

func (r *Registry) statusLocked(chainID uint64) Status {
	switch {
	case chainID == r.current:
		return Current
	case r.active.Contains(chainID):
		return Active
	case r.deprecated.Contains(chainID):
		return Deprecated
	default:
		return Unregistered
	}
}

// Contract returns the counterpart address of chainID, or the zero address.
func (r *Registry) Contract(chainID uint64) common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.contracts[chainID]
}

// UsedChains lists the current chain followed by active branches in
// registration order.
func (r *Registry) UsedChains() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]uint64, 0, r.active.Len()+1)
	out = append(out, r.current)
	return append(out, r.active.Items()...)
}

// DeprecatedChains lists deprecated branches in deprecation order.
func (r *Registry) DeprecatedChains() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.deprecated.Items()
}

// Branches returns every registered chain, current first, then active, then
// deprecated.
func (r *Registry) Branches() []Branch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Branch{{ChainID: r.current, Contract: r.contracts[r.current], Status: Current}}
	for _, id := range r.active.Items() {
		out = append(out, Branch{ChainID: id, Contract: r.contracts[id], Status: Active})
	}
	for _, id := range r.deprecated.Items() {
		out = append(out, Branch{ChainID: id, Contract: r.contracts[id], Status: Deprecated})
	}
	return out
}
