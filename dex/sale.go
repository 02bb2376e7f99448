// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/parsdao/ledger/contract"
)

// SetConverters sets the sale course to num/den tokens per native unit.
func (e *Engine) SetConverters(call contract.Call, num, den *uint256.Int) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}
	if den == nil || den.IsZero() {
		return ErrDivideByZero
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.OnlyOperator(call); err != nil {
		return err
	}
	e.converterNum = orZero(num)
	e.converterDen = den.Clone()
	e.log.Info("sale course changed", "num", e.converterNum.Dec(), "den", e.converterDen.Dec())
	return nil
}

// GetSaleCourse returns the tokens value buys. It saturates instead of
// overflowing.
func (e *Engine) GetSaleCourse(value *uint256.Int) *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.courseLocked(value)
}

func (e *Engine) courseLocked(value *uint256.Int) *uint256.Int {
	out, overflow := new(uint256.Int).MulDivOverflow(orZero(value), e.converterNum, e.converterDen)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return out
}

func (e *Engine) SetSaleActivity(call contract.Call, active bool) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.OnlyOperator(call); err != nil {
		return err
	}
	e.saleActive = active
	e.log.Info("sale activity changed", "active", active)
	return nil
}

func (e *Engine) SaleIsActive() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.saleActive
}

// AvailableTokens is the engine's token balance on offer.
func (e *Engine) AvailableTokens() *uint256.Int {
	return e.token.BalanceOf(e.address)
}

// Purchase sells tokens for call.Value at the current course. The payment
// joins the liquidity pool.
func (e *Engine) Purchase(call contract.Call) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.saleActive {
		return nil, ErrSalesClosed
	}
	paid := call.Payment()
	tokens := e.courseLocked(paid)
	if tokens.IsZero() {
		return nil, ErrNotEnoughFunds
	}
	if tokens.Gt(e.token.BalanceOf(e.address)) {
		return nil, ErrNotEnoughTokens
	}

	if _, err := contract.Receive(e.state, call, e.address); err != nil {
		return nil, err
	}
	if err := e.token.Transfer(call.As(e.address), call.Caller, tokens); err != nil {
		if rerr := contract.ReturnPayment(e.state, call, e.address, paid); rerr != nil {
			e.log.Error("payment return failed", "buyer", call.Caller, "paid", paid.Dec(), "err", rerr)
			return nil, errors.Join(err, rerr)
		}
		return nil, err
	}
	e.liquidity = new(uint256.Int).Add(e.liquidity, paid)
	e.metrics.SetLiquidity(e.liquidity)

	e.emit(eventPurchase, call.Caller, tokens)
	e.log.Info("tokens purchased", "buyer", call.Caller, "paid", paid.Dec(), "tokens", tokens.Dec())
	return tokens, nil
}

// ReturnTokensToOwner sends the engine's whole token balance to the owner.
func (e *Engine) ReturnTokensToOwner(call contract.Call) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.OnlyOwner(call); err != nil {
		return err
	}
	balance := e.token.BalanceOf(e.address)
	if balance.IsZero() {
		return nil
	}
	if err := e.token.Transfer(call.As(e.address), e.roles.Owner(), balance); err != nil {
		return err
	}
	e.log.Info("tokens returned to owner", "owner", e.roles.Owner(), "amount", balance.Dec())
	return nil
}
