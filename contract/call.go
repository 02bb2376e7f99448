// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Call is the execution context of a single state transition. It is passed
// into every mutating operation and carries the authenticated caller, the
// native value attached to the call and the caller's observed block time.
type Call struct {
	Caller    common.Address
	Value     *uint256.Int
	Timestamp uint64
}

// NewCall returns a call context with no attached value.
func NewCall(caller common.Address, timestamp uint64) Call {
	return Call{Caller: caller, Timestamp: timestamp}
}

// WithValue returns a copy of c carrying value.
func (c Call) WithValue(value *uint256.Int) Call {
	c.Value = value
	return c
}

// Payment returns the attached value, never nil.
func (c Call) Payment() *uint256.Int {
	if c.Value == nil {
		return new(uint256.Int)
	}
	return c.Value.Clone()
}

// Paid reports whether a nonzero value is attached.
func (c Call) Paid() bool {
	return c.Value != nil && !c.Value.IsZero()
}

// As returns a call made by caller within the same transaction. Components
// use it to invoke each other under their own identity.
func (c Call) As(caller common.Address) Call {
	return Call{Caller: caller, Timestamp: c.Timestamp}
}

// NonPayable rejects calls that carry value.
func NonPayable(c Call) error {
	if c.Paid() {
		return ErrNonPayable
	}
	return nil
}
