// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/ledger/contract"
)

// RatioPrecision scales Order.Ratio: native escrow per asked unit times 1e18.
var RatioPrecision = uint256.NewInt(1_000_000_000_000_000_000)

var (
	ErrWrongData              = fmt.Errorf("%w: wrong data", contract.ErrInputShape)
	ErrZeroValue              = fmt.Errorf("%w: order value and escrow must be nonzero", contract.ErrInputShape)
	ErrUnbanZeroAddress       = fmt.Errorf("%w: unban for zero address", contract.ErrInputShape)
	ErrDivideByZero           = fmt.Errorf("%w: cannot be divided by zero", contract.ErrInputShape)
	ErrOrderNotFound          = fmt.Errorf("%w: order not found", contract.ErrRegistryState)
	ErrOrderClosed            = fmt.Errorf("%w: order already close", contract.ErrRegistryState)
	ErrSalesClosed            = fmt.Errorf("%w: sales are not open", contract.ErrRegistryState)
	ErrNotSeller              = fmt.Errorf("%w: caller is not the seller", contract.ErrAuthorization)
	ErrWrongStoreOwner        = fmt.Errorf("%w: wrong store owner", contract.ErrAuthorization)
	ErrSelectedForExchange    = fmt.Errorf("%w: the order is selected for exchange", contract.ErrInvariant)
	ErrOverReserve            = fmt.Errorf("%w: reservation exceeds unreserved balance", contract.ErrInvariant)
	ErrOverWriteOff           = fmt.Errorf("%w: write-off exceeds reservation", contract.ErrInvariant)
	ErrOrderInactive          = fmt.Errorf("%w: order is not active", contract.ErrInvariant)
	ErrInsufficientLiquidity  = fmt.Errorf("%w: not enough balance", contract.ErrInvariant)
	ErrNotEnoughTokens        = fmt.Errorf("%w: not enough tokens", contract.ErrInvariant)
	ErrBanned                 = fmt.Errorf("%w: address is banned", contract.ErrRestriction)
	ErrTemporarilyUnavailable = fmt.Errorf("%w: operation is temporarily unavailable", contract.ErrRestriction)
	ErrUnbanPayment           = fmt.Errorf("%w: payment below restriction price", contract.ErrInsufficientPayment)
	ErrNotEnoughFunds         = fmt.Errorf("%w: not enough funds", contract.ErrInsufficientPayment)
)

// OrderStatus is the lifecycle position of an order.
type OrderStatus uint8

const (
	StatusOpen OrderStatus = iota
	StatusFilled
	StatusClosed
)

func (s OrderStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusFilled:
		return "filled"
	case StatusClosed:
		return "closed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Order is a seller's escrowed offer of native currency in exchange for
// AskedValue tokens delivered to Recipient on ChainID.
type Order struct {
	ID         uint64
	AskedValue *uint256.Int
	Ratio      *uint256.Int
	Balance    *uint256.Int // asked value not yet written off
	Escrow     *uint256.Int // native currency still held for this order
	Reserved   *uint256.Int
	ChainID    uint64
	Recipient  common.Address
	Seller     common.Address
	Status     OrderStatus
}

func (o *Order) Clone() *Order {
	c := *o
	c.AskedValue = o.AskedValue.Clone()
	c.Ratio = o.Ratio.Clone()
	c.Balance = o.Balance.Clone()
	c.Escrow = o.Escrow.Clone()
	c.Reserved = o.Reserved.Clone()
	return &c
}

// Unreserved is the part of Balance that can still be reserved.
func (o *Order) Unreserved() *uint256.Int {
	if o.Balance.Lt(o.Reserved) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(o.Balance, o.Reserved)
}

// Prices are the native payments required to lift a seller restriction.
type Prices struct {
	LockOff *uint256.Int
	Unban   *uint256.Int
}

// ItemResult reports one element of a batch operation.
type ItemResult struct {
	OrderID uint64
	Amount  *uint256.Int
	OK      bool
	Err     error
}

// Failed returns the results that did not apply.
func Failed(results []ItemResult) []ItemResult {
	var out []ItemResult
	for _, r := range results {
		if !r.OK {
			out = append(out, r)
		}
	}
	return out
}
