// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/ledger/contract"
)

// IncreaseMoveToBranchOrder pulls amount from the caller into custody and
// queues it for chainID. The escrowed fee is always re-set to the current
// fee for chainID: call.Value tops it up and any excess is refunded in the
// same call.
func (c *Controller) IncreaseMoveToBranchOrder(call contract.Call, amount *uint256.Int, chainID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.registry.CheckActiveBranch(chainID); err != nil {
		return ErrUnusedChain
	}
	amount = orZero(amount)
	holder := call.Caller
	queue := c.queues[chainID]
	var existing *MoveOrder
	if queue != nil {
		existing = queue.orders[holder]
	}
	if existing == nil && amount.IsZero() {
		return ErrWrongAmount
	}
	if c.ledger.Allowance(holder, c.address).Lt(amount) {
		return ErrInsufficientAllowance
	}

	escrowed := new(uint256.Int)
	if existing != nil {
		escrowed.Set(existing.Fee)
	}
	available, overflow := new(uint256.Int).AddOverflow(escrowed, call.Payment())
	fee := c.feeLocked(chainID)
	if overflow || available.Lt(fee) {
		return ErrNotEnoughFees
	}

	paid, err := contract.Receive(c.state, call, c.address)
	if err != nil {
		return err
	}
	refund := new(uint256.Int).Sub(available, fee)
	if err := contract.Covers(c.state, c.address, refund); err != nil {
		c.log.Error("fee refund not covered", "holder", holder, "refund", refund.Dec())
		return c.returnPaymentLocked(call, paid, err)
	}
	if err := c.ledger.TransferFrom(c.self(call), holder, c.address, amount); err != nil {
		return c.returnPaymentLocked(call, paid, err)
	}
	if err := contract.Send(c.state, c.address, holder, refund); err != nil {
		c.log.Error("fee refund failed", "holder", holder, "refund", refund.Dec(), "err", err)
		if terr := c.ledger.Transfer(c.self(call), holder, amount); terr != nil {
			err = errors.Join(err, terr)
		}
		return c.returnPaymentLocked(call, paid, err)
	}

	if queue == nil {
		queue = newMoveQueue()
		c.queues[chainID] = queue
	}
	if existing == nil {
		existing = &MoveOrder{Holder: holder, ChainID: chainID, Amount: new(uint256.Int)}
		queue.holders.Add(holder)
		queue.orders[holder] = existing
		c.metrics.IncMoveOrder("opened")
	}
	existing.Amount = new(uint256.Int).Add(existing.Amount, amount)
	existing.Fee = fee.Clone()
	c.custody = new(uint256.Int).Add(c.custody, amount)

	c.emit(eventMoveOrderIncreased, holder, chainID, amount, existing.Amount, existing.Fee)
	c.log.Info("move order increased",
		"holder", holder,
		"chainID", chainID,
		"amount", amount.Dec(),
		"queued", existing.Amount.Dec(),
	)
	return nil
}

// CloseMoveToBranchOrder moves the caller's queued amount to chainID on the
// ledger and refunds the escrowed fee.
func (c *Controller) CloseMoveToBranchOrder(call contract.Call, chainID uint64) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	order, err := c.orderLocked(call.Caller, chainID)
	if err != nil {
		return err
	}

	if err := contract.Covers(c.state, c.address, order.Fee); err != nil {
		c.log.Error("escrowed fee not covered", "holder", order.Holder, "fee", order.Fee.Dec())
		return err
	}
	if err := c.ledger.TransferToBranch(c.self(call), chainID, order.Amount); err != nil {
		return err
	}
	c.removeOrderLocked(order)
	if err := contract.Send(c.state, c.address, order.Holder, order.Fee); err != nil {
		c.log.Error("fee refund failed", "holder", order.Holder, "fee", order.Fee.Dec(), "err", err)
		return err
	}

	c.emit(eventMoveOrderClosed, order.Holder, chainID, order.Amount)
	c.metrics.IncMoveOrder("closed")
	c.log.Info("move order closed", "holder", order.Holder, "chainID", chainID, "amount", order.Amount.Dec())
	return nil
}

// CancelMoveToBranchOrder returns the caller's queued tokens and escrowed fee
// without moving anything across chains.
func (c *Controller) CancelMoveToBranchOrder(call contract.Call, chainID uint64) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	order, err := c.orderLocked(call.Caller, chainID)
	if err != nil {
		return err
	}
	if err := contract.Covers(c.state, c.address, order.Fee); err != nil {
		c.log.Error("escrowed fee not covered", "holder", order.Holder, "fee", order.Fee.Dec())
		return err
	}
	if err := c.ledger.Transfer(c.self(call), order.Holder, order.Amount); err != nil {
		return err
	}
	c.removeOrderLocked(order)
	if err := contract.Send(c.state, c.address, order.Holder, order.Fee); err != nil {
		c.log.Error("fee refund failed", "holder", order.Holder, "fee", order.Fee.Dec(), "err", err)
		return err
	}

	c.emit(eventMoveOrderCancelled, order.Holder, chainID, order.Amount)
	c.metrics.IncMoveOrder("cancelled")
	return nil
}

// MoveToBranchOrders lists holders with a pending order to chainID in the
// order they first queued.
func (c *Controller) MoveToBranchOrders(chainID uint64) []common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()

	queue, ok := c.queues[chainID]
	if !ok {
		return []common.Address{}
	}
	return queue.holders.Items()
}

// MoveToBranchOrder returns the pending order of holder, or false.
func (c *Controller) MoveToBranchOrder(holder common.Address, chainID uint64) (*MoveOrder, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	order, err := c.orderLocked(holder, chainID)
	if err != nil {
		return nil, false
	}
	return order.clone(), true
}

func (c *Controller) orderLocked(holder common.Address, chainID uint64) (*MoveOrder, error) {
	queue, ok := c.queues[chainID]
	if !ok {
		return nil, ErrOrderNotInit
	}
	order, ok := queue.orders[holder]
	if !ok {
		return nil, ErrOrderNotInit
	}
	return order, nil
}

// returnPaymentLocked gives back what Receive took from call and returns
// cause.
func (c *Controller) returnPaymentLocked(call contract.Call, paid *uint256.Int, cause error) error {
	if err := contract.ReturnPayment(c.state, call, c.address, paid); err != nil {
		c.log.Error("payment return failed", "caller", call.Caller, "amount", paid.Dec(), "err", err)
		return errors.Join(cause, err)
	}
	return cause
}

func (c *Controller) removeOrderLocked(order *MoveOrder) {
	queue := c.queues[order.ChainID]
	queue.holders.Remove(order.Holder)
	delete(queue.orders, order.Holder)
	if queue.holders.Len() == 0 {
		delete(c.queues, order.ChainID)
	}
	c.custody = new(uint256.Int).Sub(c.custody, order.Amount)
}
