// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/ledger/contract"
	"github.com/parsdao/ledger/ledger"
)

var (
	ErrWrongData   = ledger.ErrWrongData
	ErrWrongAmount = ledger.ErrWrongAmount

	ErrUnusedChain           = fmt.Errorf("%w: unused chain", contract.ErrRegistryState)
	ErrPendingOrders         = fmt.Errorf("%w: branch has pending move orders", contract.ErrRegistryState)
	ErrOrderNotInit          = fmt.Errorf("%w: order not init", contract.ErrRegistryState)
	ErrDexNotSet             = fmt.Errorf("%w: exchange address not set", contract.ErrRegistryState)
	ErrInsufficientAllowance = fmt.Errorf("%w: insufficient allowance", contract.ErrInvariant)
	ErrExceedsOrder          = fmt.Errorf("%w: amount exceeds queued order", contract.ErrInvariant)
	ErrInsufficientTreasury  = fmt.Errorf("%w: amount exceeds free treasury", contract.ErrInvariant)
	ErrOperationProcessed    = fmt.Errorf("%w: operation already processed", contract.ErrInvariant)
	ErrNotEnoughFees         = fmt.Errorf("%w: not enough fees", contract.ErrInsufficientPayment)
	ErrTagMismatch           = fmt.Errorf("%w: correlation tag does not match message", contract.ErrInputShape)
)

// MoveOrder is a holder's queued request to move tokens to a branch. The
// tokens sit in controller custody and Fee is the native relay fee escrowed
// alongside them.
type MoveOrder struct {
	Holder  common.Address
	ChainID uint64
	Amount  *uint256.Int
	Fee     *uint256.Int
}

func (o *MoveOrder) clone() *MoveOrder {
	return &MoveOrder{
		Holder:  o.Holder,
		ChainID: o.ChainID,
		Amount:  o.Amount.Clone(),
		Fee:     o.Fee.Clone(),
	}
}

// RelayResult reports the outcome of one relayed outbound transfer. A relay
// that the ledger rejects is not an error: Succeeded is false and Err holds
// the reason.
type RelayResult struct {
	OperationID uint64
	Holder      common.Address
	ChainID     uint64
	Amount      *uint256.Int
	Tag         common.Hash
	Settled     bool // a queued move order was consumed
	Succeeded   bool
	Err         error
}

// InboundMessage is a relayed claim that tokens left a branch and must be
// minted on the current chain.
type InboundMessage struct {
	SourceChain uint64
	OperationID uint64
	Amount      *uint256.Int
	Tag         common.Hash
	Recipients  []common.Address
	Amounts     []*uint256.Int
}
