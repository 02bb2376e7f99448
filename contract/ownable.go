// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import "github.com/luxfi/geth/common"

// Ownable binds the two privileged identities of a component. It is not
// safe for concurrent use; the embedding component guards it.
type Ownable struct {
	owner    common.Address
	executor common.Address
}

func NewOwnable(owner, executor common.Address) Ownable {
	return Ownable{owner: owner, executor: executor}
}

func (o *Ownable) Owner() common.Address    { return o.owner }
func (o *Ownable) Executor() common.Address { return o.executor }

// OnlyOwner fails unless the caller is the owner.
func (o *Ownable) OnlyOwner(c Call) error {
	if c.Caller != o.owner {
		return ErrUnauthorized
	}
	return nil
}

// OnlyOperator fails unless the caller is the owner or the executor.
func (o *Ownable) OnlyOperator(c Call) error {
	if c.Caller == o.owner {
		return nil
	}
	if o.executor != (common.Address{}) && c.Caller == o.executor {
		return nil
	}
	return ErrNotOperator
}

// TransferOwnership hands the owner role to next.
func (o *Ownable) TransferOwnership(c Call, next common.Address) error {
	if err := o.OnlyOwner(c); err != nil {
		return err
	}
	if next == (common.Address{}) {
		return ErrZeroAddress
	}
	o.owner = next
	return nil
}

// ChangeExecutor rebinds the executor role. Only the owner may do so.
func (o *Ownable) ChangeExecutor(c Call, next common.Address) error {
	if err := o.OnlyOwner(c); err != nil {
		return err
	}
	if next == (common.Address{}) {
		return ErrZeroAddress
	}
	o.executor = next
	return nil
}
