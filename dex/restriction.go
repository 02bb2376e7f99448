// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/ledger/contract"
)

// Escalation thresholds on the failure counter.
const (
	FirstLockThreshold  = 4
	SecondLockThreshold = 6
	BanThreshold        = 10

	FirstLockDuration  = time.Hour
	SecondLockDuration = 24 * time.Hour
)

// Restriction is the escalation record of a seller that failed to deliver.
type Restriction struct {
	FailureCount uint32
	LockUntil    uint64
	Banned       bool
}

// Escalate records one more failure observed at now.
func (r Restriction) Escalate(now uint64) Restriction {
	r.FailureCount++
	if r.Banned {
		return r
	}
	switch {
	case r.FailureCount >= BanThreshold:
		r.Banned = true
	case r.FailureCount == SecondLockThreshold:
		r.LockUntil = now + uint64(SecondLockDuration/time.Second)
	case r.FailureCount == FirstLockThreshold:
		r.LockUntil = now + uint64(FirstLockDuration/time.Second)
	}
	return r
}

// Locked reports whether a timed lock is still in force at now.
func (r Restriction) Locked(now uint64) bool {
	return now < r.LockUntil
}

// Check fails when the seller may not place orders at now.
func (r Restriction) Check(now uint64) error {
	if r.Banned {
		return ErrBanned
	}
	if r.Locked(now) {
		return ErrTemporarilyUnavailable
	}
	return nil
}

// Restricted reports whether lifting the record would change anything.
func (r Restriction) Restricted(now uint64) bool {
	return r.Banned || r.Locked(now)
}

// SetLockTime records one failed delivery for each seller at call.Timestamp.
func (e *Engine) SetLockTime(call contract.Call, sellers []common.Address) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.OnlyOperator(call); err != nil {
		return err
	}

	tx := e.store.Begin()
	changed := make([]common.Address, 0, len(sellers))
	for _, seller := range sellers {
		r, err := tx.Restriction(seller)
		if err != nil {
			return err
		}
		if !containsAddr(changed, seller) {
			changed = append(changed, seller)
		}
		tx.PutRestriction(seller, r.Escalate(call.Timestamp))
	}
	if err := e.commitLocked(tx, nil); err != nil {
		return err
	}

	for _, seller := range changed {
		r := tx.restrictions[seller]
		e.emit(eventRestrictionChanged, seller, r.FailureCount, r.LockUntil, r.Banned)
		e.metrics.IncRestriction(transition(r))
		e.log.Info("seller restricted",
			"seller", seller,
			"failures", r.FailureCount,
			"lockUntil", r.LockUntil,
			"banned", r.Banned,
		)
	}
	return nil
}

func transition(r Restriction) string {
	switch {
	case r.Banned:
		return "banned"
	case r.LockUntil != 0:
		return "locked"
	default:
		return "counted"
	}
}

// UnbanContract lifts the restriction on seller for the lock-off price, or
// the unban price when seller is banned. The payment joins the liquidity
// pool.
func (e *Engine) UnbanContract(call contract.Call, seller common.Address) error {
	if seller == (common.Address{}) {
		return ErrUnbanZeroAddress
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tx := e.store.Begin()
	r, err := tx.Restriction(seller)
	if err != nil {
		return err
	}
	prices, _, err := e.store.Prices()
	if err != nil {
		return err
	}
	price := prices.LockOff
	if r.Banned {
		price = prices.Unban
	}
	paid := call.Payment()
	if paid.Lt(price) {
		return ErrUnbanPayment
	}

	if _, err := contract.Receive(e.state, call, e.address); err != nil {
		return err
	}
	tx.PutRestriction(seller, Restriction{})
	if err := e.commitPaidLocked(tx, call, paid, new(uint256.Int).Add(e.liquidity, paid)); err != nil {
		return err
	}

	e.emit(eventPurchaseUnban, seller, paid)
	e.emit(eventRestrictionChanged, seller, uint32(0), uint64(0), false)
	e.metrics.IncRestriction("unbanned")
	e.log.Info("seller unbanned", "seller", seller, "payer", call.Caller, "paid", paid.Dec())
	return nil
}

// UnbanContractOwned resets seller's restriction without payment.
func (e *Engine) UnbanContractOwned(call contract.Call, seller common.Address) error {
	return e.resetRestriction(call, seller, func(Restriction) Restriction { return Restriction{} })
}

// DropRefuseCounterOwned clears seller's failure counter and keeps any lock
// or ban in force.
func (e *Engine) DropRefuseCounterOwned(call contract.Call, seller common.Address) error {
	return e.resetRestriction(call, seller, func(r Restriction) Restriction {
		r.FailureCount = 0
		return r
	})
}

func (e *Engine) resetRestriction(call contract.Call, seller common.Address, reset func(Restriction) Restriction) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}
	if seller == (common.Address{}) {
		return ErrUnbanZeroAddress
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.OnlyOwner(call); err != nil {
		return err
	}

	tx := e.store.Begin()
	r, err := tx.Restriction(seller)
	if err != nil {
		return err
	}
	r = reset(r)
	tx.PutRestriction(seller, r)
	if err := e.commitLocked(tx, nil); err != nil {
		return err
	}

	e.emit(eventRestrictionChanged, seller, r.FailureCount, r.LockUntil, r.Banned)
	e.metrics.IncRestriction("reset")
	e.log.Info("seller restriction reset", "seller", seller, "failures", r.FailureCount, "banned", r.Banned)
	return nil
}

// SetRestrictionsPrice stores the lock-off and unban prices.
func (e *Engine) SetRestrictionsPrice(call contract.Call, lockOff, unban *uint256.Int) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.OnlyOwner(call); err != nil {
		return err
	}
	tx := e.store.Begin()
	tx.PutPrices(Prices{LockOff: orZero(lockOff), Unban: orZero(unban)})
	if err := e.commitLocked(tx, nil); err != nil {
		return err
	}
	e.log.Info("restriction prices changed", "lockOff", orZero(lockOff).Dec(), "unban", orZero(unban).Dec())
	return nil
}

func (e *Engine) RestrictionsPrice() (Prices, error) {
	prices, _, err := e.Store().Prices()
	return prices, err
}

func (e *Engine) SellerRestriction(seller common.Address) (Restriction, error) {
	return e.Store().Restriction(seller)
}
