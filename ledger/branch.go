// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/ledger/contract"
)

// CreateBranch registers chainID bound to branchContract and records
// initialSupply as already circulating there. Total supply grows by the same
// amount.
func (l *Ledger) CreateBranch(call contract.Call, chainID uint64, branchContract common.Address, initialSupply *uint256.Int) error {
	defer l.metrics.ObserveOperation("create_branch", time.Now())
	if err := contract.NonPayable(call); err != nil {
		return err
	}
	if branchContract == (common.Address{}) {
		return ErrMintToZero
	}
	if initialSupply == nil {
		initialSupply = new(uint256.Int)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.roles.OnlyOwner(call); err != nil {
		return err
	}
	total, overflow := new(uint256.Int).AddOverflow(l.totalSupply, initialSupply)
	if overflow {
		return ErrSupplyOverflow
	}
	if err := l.registry.Create(chainID, branchContract); err != nil {
		return err
	}

	l.totalSupply = total
	l.branchSupply[chainID] = initialSupply.Clone()
	l.emit(eventBranchCreated, chainID, branchContract, initialSupply)
	l.publishLocked()
	l.log.Info("branch created",
		"chainID", chainID,
		"contract", branchContract,
		"supply", initialSupply.Dec(),
	)
	return nil
}

// TransferToBranch burns amount from the caller and credits it to chainID's
// recorded supply.
func (l *Ledger) TransferToBranch(call contract.Call, chainID uint64, amount *uint256.Int) error {
	defer l.metrics.ObserveOperation("transfer_to_branch", time.Now())
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.roles.OnlyOwner(call); err != nil {
		return err
	}
	if err := l.registry.CheckActiveBranch(chainID); err != nil {
		return err
	}
	if err := l.burnLocked(call.Caller, amount); err != nil {
		return err
	}

	l.branchSupply[chainID] = new(uint256.Int).Add(l.branchSupplyLocked(chainID), amount)
	l.emit(eventBranchTransfer, l.registry.CurrentChainID(), chainID, amount)
	l.publishLocked()
	l.metrics.IncBranchTransfer("out", chainID)
	l.log.Info("transferred to branch", "chainID", chainID, "amount", amount.Dec())
	return nil
}

// TransferFromBranch applies a relayed claim: claimed leaves chainID's supply
// and is minted to recipients on the current chain.
func (l *Ledger) TransferFromBranch(
	call contract.Call,
	chainID uint64,
	claimed *uint256.Int,
	tag common.Hash,
	recipients []common.Address,
	amounts []*uint256.Int,
) error {
	defer l.metrics.ObserveOperation("transfer_from_branch", time.Now())
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.roles.OnlyOwner(call); err != nil {
		return err
	}
	if err := l.registry.CheckKnownBranch(chainID); err != nil {
		return err
	}
	if len(recipients) == 0 || len(recipients) != len(amounts) {
		return ErrWrongData
	}
	supply := l.branchSupplyLocked(chainID)
	if supply.Lt(claimed) {
		return ErrExceedsBranchSupply
	}
	sum := new(uint256.Int)
	for i, amount := range amounts {
		if recipients[i] == (common.Address{}) {
			return ErrMintToZero
		}
		if _, overflow := sum.AddOverflow(sum, amount); overflow {
			return ErrWrongAmount
		}
	}
	if !sum.Eq(claimed) {
		return ErrWrongAmount
	}
	if !l.allowTagReplay {
		if _, seen := l.consumedTags[tag]; seen {
			return ErrTagConsumed
		}
		l.consumedTags[tag] = struct{}{}
	}

	l.branchSupply[chainID] = new(uint256.Int).Sub(supply, claimed)
	l.currentSupply = new(uint256.Int).Add(l.currentSupply, claimed)
	for i, to := range recipients {
		l.balances[to] = new(uint256.Int).Add(l.balanceLocked(to), amounts[i])
		l.emit(eventTransfer, common.Address{}, to, amounts[i])
	}
	l.emit(eventBranchTransfer, chainID, l.registry.CurrentChainID(), claimed)
	l.emit(eventCrossChainTransfer, tag, claimed)
	l.publishLocked()
	l.metrics.IncBranchTransfer("in", chainID)
	l.log.Info("transferred from branch",
		"chainID", chainID,
		"amount", claimed.Dec(),
		"tag", tag,
		"recipients", len(recipients),
	)
	return nil
}

// TransferBetweenBranches moves recorded supply from one branch to another
// without touching the current chain.
func (l *Ledger) TransferBetweenBranches(call contract.Call, from, to uint64, amount *uint256.Int) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}
	if from == to {
		return ErrSameBranch
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.roles.OnlyOwner(call); err != nil {
		return err
	}
	if err := l.registry.CheckKnownBranch(from); err != nil {
		return err
	}
	if err := l.registry.CheckActiveBranch(to); err != nil {
		return err
	}
	source := l.branchSupplyLocked(from)
	if source.Lt(amount) {
		return ErrExceedsBranchSupply
	}

	l.branchSupply[from] = new(uint256.Int).Sub(source, amount)
	l.branchSupply[to] = new(uint256.Int).Add(l.branchSupplyLocked(to), amount)
	l.emit(eventBranchTransfer, from, to, amount)
	l.publishLocked()
	l.log.Info("transferred between branches", "from", from, "to", to, "amount", amount.Dec())
	return nil
}

// DeprecateBranch retires chainID. Its recorded supply must be zero.
func (l *Ledger) DeprecateBranch(call contract.Call, chainID uint64) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.roles.OnlyOwner(call); err != nil {
		return err
	}
	err := l.registry.Deprecate(chainID, func(id uint64) error {
		if !l.branchSupplyLocked(id).IsZero() {
			return ErrBranchHasBalance
		}
		return nil
	})
	if err != nil {
		return err
	}
	l.emit(eventBranchDeprecated, chainID)
	l.log.Info("branch deprecated", "chainID", chainID)
	return nil
}

// ChangeBranchContract re-points chainID to a new counterpart address.
func (l *Ledger) ChangeBranchContract(call contract.Call, chainID uint64, branchContract common.Address) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.roles.OnlyOwner(call); err != nil {
		return err
	}
	if err := l.registry.ChangeContract(chainID, branchContract); err != nil {
		return err
	}
	l.emit(eventBranchContractChanged, chainID, branchContract)
	return nil
}

// TagConsumed reports whether an inbound relay already used tag.
func (l *Ledger) TagConsumed(tag common.Hash) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.consumedTags[tag]
	return ok
}
