// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/ledger/contract"
)

// PlaceExchangeOrder escrows call.Value against value tokens to be
// delivered to recipient on chainID and returns the new order id.
func (e *Engine) PlaceExchangeOrder(call contract.Call, value *uint256.Int, chainID uint64, recipient common.Address) (uint64, error) {
	defer e.observe("place_order")()

	if err := e.registry.CheckActiveBranch(chainID); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tx := e.store.Begin()
	restriction, err := tx.Restriction(call.Caller)
	if err != nil {
		return 0, err
	}
	if err := restriction.Check(call.Timestamp); err != nil {
		return 0, err
	}
	if recipient == (common.Address{}) {
		return 0, contract.ErrZeroAddress
	}
	escrow := call.Payment()
	if value == nil || value.IsZero() || escrow.IsZero() {
		return 0, ErrZeroValue
	}
	ratio, overflow := new(uint256.Int).MulDivOverflow(escrow, RatioPrecision, value)
	if overflow {
		return 0, ErrWrongData
	}

	id, err := e.store.NextOrderID()
	if err != nil {
		return 0, err
	}
	order := newOrder(id, value, ratio, escrow, chainID, recipient, call.Caller)

	if _, err := contract.Receive(e.state, call, e.address); err != nil {
		return 0, err
	}
	tx.Insert(order)
	if err := e.commitPaidLocked(tx, call, escrow, nil); err != nil {
		return 0, err
	}

	e.emit(eventPlaceOrder, order.Seller, id)
	e.metrics.IncExchangeOrder("placed")
	e.log.Info("exchange order placed",
		"orderID", id,
		"seller", order.Seller,
		"chainID", chainID,
		"value", value.Dec(),
		"escrow", escrow.Dec(),
	)
	return id, nil
}

// PlaceOrderFromLiquidity opens an order on behalf of the caller backed by
// value*ratio/RatioPrecision of the liquidity pool.
func (e *Engine) PlaceOrderFromLiquidity(call contract.Call, value, ratio *uint256.Int, chainID uint64) (uint64, error) {
	defer e.observe("place_order_from_liquidity")()

	if err := contract.NonPayable(call); err != nil {
		return 0, err
	}
	if err := e.registry.CheckActiveBranch(chainID); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.OnlyOperator(call); err != nil {
		return 0, err
	}
	if value == nil || ratio == nil || value.IsZero() || ratio.IsZero() {
		return 0, ErrZeroValue
	}
	escrow, overflow := new(uint256.Int).MulDivOverflow(value, ratio, RatioPrecision)
	if overflow || escrow.Gt(e.liquidity) {
		return 0, ErrInsufficientLiquidity
	}
	if escrow.IsZero() {
		return 0, ErrZeroValue
	}

	id, err := e.store.NextOrderID()
	if err != nil {
		return 0, err
	}
	order := newOrder(id, value, ratio, escrow, chainID, call.Caller, call.Caller)

	tx := e.store.Begin()
	tx.Insert(order)
	if err := e.commitLocked(tx, new(uint256.Int).Sub(e.liquidity, escrow)); err != nil {
		return 0, err
	}

	e.emit(eventPlaceOrder, order.Seller, id)
	e.metrics.IncExchangeOrder("placed")
	e.log.Info("liquidity order placed",
		"orderID", id,
		"chainID", chainID,
		"value", value.Dec(),
		"escrow", escrow.Dec(),
	)
	return id, nil
}

func newOrder(id uint64, value, ratio, escrow *uint256.Int, chainID uint64, recipient, seller common.Address) *Order {
	return &Order{
		ID:         id,
		AskedValue: value.Clone(),
		Ratio:      ratio.Clone(),
		Balance:    value.Clone(),
		Escrow:     escrow.Clone(),
		Reserved:   new(uint256.Int),
		ChainID:    chainID,
		Recipient:  recipient,
		Seller:     seller,
		Status:     StatusOpen,
	}
}

// IncreaseLiquidity adds call.Value to the liquidity pool.
func (e *Engine) IncreaseLiquidity(call contract.Call) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.OnlyOperator(call); err != nil {
		return err
	}
	received, err := contract.Receive(e.state, call, e.address)
	if err != nil {
		return err
	}
	e.liquidity = new(uint256.Int).Add(e.liquidity, received)
	e.metrics.SetLiquidity(e.liquidity)

	e.emit(eventIncreaseLiquidity, call.Caller, received)
	e.log.Info("liquidity increased", "sender", call.Caller, "value", received.Dec())
	return nil
}

// CloseExchangeOrder refunds the remaining escrow of an open, unreserved
// order to its seller.
func (e *Engine) CloseExchangeOrder(call contract.Call, orderID uint64) error {
	defer e.observe("close_order")()

	if err := contract.NonPayable(call); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tx := e.store.Begin()
	order, err := tx.Order(orderID)
	if err != nil {
		return err
	}
	if order.Seller != call.Caller {
		return ErrNotSeller
	}
	if order.Status != StatusOpen {
		return ErrOrderClosed
	}
	if !order.Reserved.IsZero() {
		return ErrSelectedForExchange
	}

	refund := order.Escrow.Clone()
	if err := contract.Covers(e.state, e.address, refund); err != nil {
		e.log.Error("escrow not covered", "orderID", orderID, "refund", refund.Dec())
		return err
	}
	order.Escrow = new(uint256.Int)
	order.Status = StatusClosed
	tx.PutOrder(order)
	tx.Deactivate(orderID)
	if err := e.commitLocked(tx, nil); err != nil {
		return err
	}
	if err := contract.Send(e.state, e.address, order.Seller, refund); err != nil {
		e.log.Error("escrow refund failed", "orderID", orderID, "refund", refund.Dec(), "err", err)
		return err
	}

	e.emit(eventCloseOrder, order.Seller, orderID)
	e.metrics.IncExchangeOrder("closed")
	e.log.Info("exchange order closed", "orderID", orderID, "seller", order.Seller, "refund", refund.Dec())
	return nil
}

// OrderInfo returns a copy of the stored order.
func (e *Engine) OrderInfo(orderID uint64) (*Order, error) {
	return e.Store().Order(orderID)
}

// OrderBalance is the asked value not yet written off.
func (e *Engine) OrderBalance(orderID uint64) (*uint256.Int, error) {
	order, err := e.OrderInfo(orderID)
	if err != nil {
		return nil, err
	}
	return order.Balance, nil
}

func (e *Engine) ReservedOrderAmount(orderID uint64) (*uint256.Int, error) {
	order, err := e.OrderInfo(orderID)
	if err != nil {
		return nil, err
	}
	return order.Reserved, nil
}

// ActiveOrderIDs lists open orders in placement order.
func (e *Engine) ActiveOrderIDs() ([]uint64, error) {
	return e.Store().ActiveOrderIDs()
}

// MyOrders lists every order placed by seller, closed and filled included.
func (e *Engine) MyOrders(seller common.Address) ([]uint64, error) {
	return e.Store().SellerOrderIDs(seller)
}
