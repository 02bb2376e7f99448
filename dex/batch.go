// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/ledger/contract"
)

// BatchReserveOrders earmarks amounts[i] of order ids[i] for operationID.
// Items that are inactive or would over-reserve are skipped and reported
// with a ReserveOrderException; the rest of the batch still applies.
func (e *Engine) BatchReserveOrders(call contract.Call, operationID uint64, ids []uint64, amounts []*uint256.Int) ([]ItemResult, error) {
	defer e.observe("batch_reserve")()

	if err := contract.NonPayable(call); err != nil {
		return nil, err
	}
	if len(ids) != len(amounts) {
		return nil, ErrWrongData
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.OnlyOperator(call); err != nil {
		return nil, err
	}

	tx := e.store.Begin()
	results := make([]ItemResult, len(ids))
	for i, id := range ids {
		amount := orZero(amounts[i])
		results[i] = ItemResult{OrderID: id, Amount: amount}

		order, err := tx.Order(id)
		switch {
		case err != nil:
			results[i].Err = err
		case order.Status != StatusOpen:
			results[i].Err = ErrOrderInactive
		case amount.Gt(order.Unreserved()):
			results[i].Err = ErrOverReserve
		default:
			order.Reserved = new(uint256.Int).Add(order.Reserved, amount)
			tx.PutOrder(order)
			results[i].OK = true
		}
	}
	if err := e.commitLocked(tx, nil); err != nil {
		return nil, err
	}

	for _, r := range results {
		e.metrics.IncBatchItem("reserve", r.OK)
		if !r.OK {
			e.emit(eventReserveOrderException, operationID, r.OrderID, r.Amount)
			e.log.Debug("reserve skipped", "operationID", operationID, "orderID", r.OrderID, "err", r.Err)
		}
	}
	return results, nil
}

// BatchUnreserveOrders releases amounts[i] of the reservation on ids[i],
// flooring at zero. Unknown orders are skipped.
func (e *Engine) BatchUnreserveOrders(call contract.Call, ids []uint64, amounts []*uint256.Int) ([]ItemResult, error) {
	if err := contract.NonPayable(call); err != nil {
		return nil, err
	}
	if len(ids) != len(amounts) {
		return nil, ErrWrongData
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.OnlyOperator(call); err != nil {
		return nil, err
	}

	tx := e.store.Begin()
	results := make([]ItemResult, len(ids))
	for i, id := range ids {
		amount := orZero(amounts[i])
		results[i] = ItemResult{OrderID: id, Amount: amount}

		order, err := tx.Order(id)
		if err != nil {
			results[i].Err = err
			continue
		}
		if amount.Gt(order.Reserved) {
			order.Reserved = new(uint256.Int)
		} else {
			order.Reserved = new(uint256.Int).Sub(order.Reserved, amount)
		}
		tx.PutOrder(order)
		results[i].OK = true
	}
	if err := e.commitLocked(tx, nil); err != nil {
		return nil, err
	}
	for _, r := range results {
		e.metrics.IncBatchItem("unreserve", r.OK)
	}
	return results, nil
}

// BatchWriteOffBalance settles amounts[i] of the reservation on ids[i]. The
// matching share of escrow moves into the liquidity pool; an order whose
// balance reaches zero is filled, releases all remaining escrow and leaves
// the active index. Items exceeding the reservation are skipped and
// reported with a WriteOffException.
func (e *Engine) BatchWriteOffBalance(call contract.Call, operationID uint64, ids []uint64, amounts []*uint256.Int) ([]ItemResult, error) {
	defer e.observe("batch_write_off")()

	if err := contract.NonPayable(call); err != nil {
		return nil, err
	}
	if len(ids) != len(amounts) {
		return nil, ErrWrongData
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.OnlyOperator(call); err != nil {
		return nil, err
	}

	type writeOff struct {
		released *uint256.Int
		filled   bool
	}
	tx := e.store.Begin()
	liquidity := e.liquidity.Clone()
	results := make([]ItemResult, len(ids))
	applied := make([]writeOff, len(ids))
	for i, id := range ids {
		amount := orZero(amounts[i])
		results[i] = ItemResult{OrderID: id, Amount: amount}

		order, err := tx.Order(id)
		switch {
		case err != nil:
			results[i].Err = err
			continue
		case order.Status != StatusOpen:
			results[i].Err = ErrOrderInactive
			continue
		case amount.Gt(order.Reserved):
			results[i].Err = ErrOverWriteOff
			continue
		}

		order.Balance = new(uint256.Int).Sub(order.Balance, amount)
		order.Reserved = new(uint256.Int).Sub(order.Reserved, amount)
		released, overflow := new(uint256.Int).MulDivOverflow(amount, order.Ratio, RatioPrecision)
		if overflow || released.Gt(order.Escrow) || order.Balance.IsZero() {
			released = order.Escrow.Clone()
		}
		order.Escrow = new(uint256.Int).Sub(order.Escrow, released)
		if order.Balance.IsZero() {
			order.Status = StatusFilled
			tx.Deactivate(id)
		}
		tx.PutOrder(order)
		liquidity.Add(liquidity, released)

		results[i].OK = true
		applied[i] = writeOff{released: released, filled: order.Status == StatusFilled}
	}
	if err := e.commitLocked(tx, liquidity); err != nil {
		return nil, err
	}

	for i, r := range results {
		e.metrics.IncBatchItem("write_off", r.OK)
		if !r.OK {
			e.emit(eventWriteOffException, operationID, r.OrderID, r.Amount)
			e.log.Debug("write-off skipped", "operationID", operationID, "orderID", r.OrderID, "err", r.Err)
			continue
		}
		e.emit(eventWriteOffBalance, operationID, r.OrderID, r.Amount, applied[i].released)
		if applied[i].filled {
			e.emit(eventFilledOrder, operationID, r.OrderID, r.Amount)
			e.metrics.IncExchangeOrder("filled")
			e.log.Info("exchange order filled", "operationID", operationID, "orderID", r.OrderID)
		}
	}
	return results, nil
}

// BatchSendExchangedBalance pays amounts[i] from the liquidity pool to
// recipients[i]. The whole batch fails if the pool cannot cover the sum.
func (e *Engine) BatchSendExchangedBalance(call contract.Call, operationID uint64, amounts []*uint256.Int, recipients []common.Address) error {
	defer e.observe("batch_send")()

	if err := contract.NonPayable(call); err != nil {
		return err
	}
	if len(amounts) != len(recipients) {
		return ErrWrongData
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.OnlyOperator(call); err != nil {
		return err
	}

	total := new(uint256.Int)
	for i, amount := range amounts {
		if recipients[i] == (common.Address{}) {
			return contract.ErrZeroAddress
		}
		if _, overflow := total.AddOverflow(total, orZero(amount)); overflow {
			return ErrInsufficientLiquidity
		}
	}
	if total.Gt(e.liquidity) {
		return ErrInsufficientLiquidity
	}

	if err := contract.Covers(e.state, e.address, total); err != nil {
		e.log.Error("liquidity not covered", "operationID", operationID, "total", total.Dec())
		return err
	}

	sent := new(uint256.Int)
	for i, amount := range amounts {
		if err := contract.Send(e.state, e.address, recipients[i], amount); err != nil {
			e.liquidity = new(uint256.Int).Sub(e.liquidity, sent)
			e.metrics.SetLiquidity(e.liquidity)
			e.log.Error("exchanged balance send failed", "operationID", operationID, "index", i, "err", err)
			return err
		}
		sent.Add(sent, orZero(amount))
	}
	e.liquidity = new(uint256.Int).Sub(e.liquidity, total)
	e.metrics.SetLiquidity(e.liquidity)

	for i, amount := range amounts {
		e.emit(eventSendExchangedBalance, operationID, recipients[i], orZero(amount))
	}
	e.log.Info("exchanged balance sent", "operationID", operationID, "recipients", len(recipients), "total", total.Dec())
	return nil
}
