// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dex is the escrow exchange engine.
//
// Sellers escrow native currency against a requested amount of tokens to be
// delivered on a branch chain. The executor matches orders off-chain and
// drives them through reservation, write-off and payout batches. Sellers
// that repeatedly fail to deliver are rate limited and eventually banned.
package dex

import (
	"errors"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/parsdao/ledger/contract"
	"github.com/parsdao/ledger/ledger"
	"github.com/parsdao/ledger/metrics"
	"github.com/parsdao/ledger/registry"
)

// EngineConfig describes an engine deployment.
type EngineConfig struct {
	Address  common.Address
	Owner    common.Address
	Executor common.Address

	// Seeded into the store when it holds no prices yet.
	LockOffPrice *uint256.Int
	UnbanPrice   *uint256.Int

	// Token sale course: tokens = value * ConverterNum / ConverterDen.
	ConverterNum *uint256.Int
	ConverterDen *uint256.Int
}

type Option func(*Engine)

func WithLogger(logger log.Logger) Option {
	return func(e *Engine) { e.log = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine is safe for concurrent use.
type Engine struct {
	mu sync.RWMutex

	address  common.Address
	roles    contract.Ownable
	token    *ledger.Ledger
	registry *registry.Registry
	store    *Store
	state    contract.StateDB
	log      log.Logger
	metrics  *metrics.Metrics

	liquidity    *uint256.Int
	saleActive   bool
	converterNum *uint256.Int
	converterDen *uint256.Int
}

// NewEngine returns an engine writing to store, which must already be owned
// by cfg.Address.
func NewEngine(
	cfg EngineConfig,
	token *ledger.Ledger,
	reg *registry.Registry,
	store *Store,
	st contract.StateDB,
	opts ...Option,
) (*Engine, error) {
	if token == nil || reg == nil || store == nil || st == nil {
		return nil, errors.New("dex: token, registry, store and state are required")
	}
	if cfg.Address == (common.Address{}) || cfg.Owner == (common.Address{}) {
		return nil, contract.ErrZeroAddress
	}
	if store.Owner() != cfg.Address {
		return nil, ErrWrongStoreOwner
	}

	e := &Engine{
		address:      cfg.Address,
		roles:        contract.NewOwnable(cfg.Owner, cfg.Executor),
		token:        token,
		registry:     reg,
		store:        store,
		state:        st,
		log:          log.Root(),
		liquidity:    new(uint256.Int),
		converterNum: orZero(cfg.ConverterNum),
		converterDen: uint256.NewInt(1),
	}
	if cfg.ConverterDen != nil {
		if cfg.ConverterDen.IsZero() {
			return nil, ErrDivideByZero
		}
		e.converterDen = cfg.ConverterDen.Clone()
	}
	for _, opt := range opts {
		opt(e)
	}

	if _, ok, err := store.Prices(); err != nil {
		return nil, err
	} else if !ok {
		tx := store.Begin()
		tx.PutPrices(Prices{LockOff: orZero(cfg.LockOffPrice), Unban: orZero(cfg.UnbanPrice)})
		if err := tx.Commit(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}

func (e *Engine) Address() common.Address { return e.address }

func (e *Engine) Owner() common.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.roles.Owner()
}

func (e *Engine) Executor() common.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.roles.Executor()
}

func (e *Engine) ChangeExecutor(call contract.Call, next common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.roles.ChangeExecutor(call, next); err != nil {
		return err
	}
	e.log.Info("executor changed", "executor", next)
	return nil
}

func (e *Engine) TransferOwnership(call contract.Call, next common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.roles.TransferOwnership(call, next); err != nil {
		return err
	}
	e.log.Info("ownership transferred", "owner", next)
	return nil
}

// Store returns the order store the engine currently writes to.
func (e *Engine) Store() *Store {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store
}

// ChangeStore switches to next. next must already be owned by the engine;
// orders recorded in the previous store stay there. The order counter of
// next is advanced past every id the previous store handed out.
func (e *Engine) ChangeStore(call contract.Call, next *Store) error {
	if next == nil {
		return contract.ErrZeroAddress
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.roles.OnlyOwner(call); err != nil {
		return err
	}
	if next.Owner() != e.address {
		return ErrWrongStoreOwner
	}
	prev, err := e.store.NextOrderID()
	if err != nil {
		return err
	}
	seeded, err := next.NextOrderID()
	if err != nil {
		return err
	}
	if prev > seeded {
		tx := next.Begin()
		tx.AdvanceOrderID(prev)
		if err := e.commitLocked(tx, nil); err != nil {
			return err
		}
	}
	e.store = next
	e.log.Info("order store changed")
	return nil
}

// LiquidityBalance is the native pool used for payouts and liquidity-backed
// orders.
func (e *Engine) LiquidityBalance() *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.liquidity.Clone()
}

func (e *Engine) UsedChains() []uint64       { return e.registry.UsedChains() }
func (e *Engine) DeprecatedChains() []uint64 { return e.registry.DeprecatedChains() }

// commitLocked writes tx and publishes liquidity once the write succeeds.
func (e *Engine) commitLocked(tx *Tx, liquidity *uint256.Int) error {
	if err := tx.Commit(); err != nil {
		e.log.Error("order store commit failed", "err", err)
		return err
	}
	if liquidity != nil {
		e.liquidity = liquidity
		e.metrics.SetLiquidity(liquidity)
	}
	return nil
}

// commitPaidLocked writes tx for an operation that already took call's
// payment, returning the payment when the write fails.
func (e *Engine) commitPaidLocked(tx *Tx, call contract.Call, paid, liquidity *uint256.Int) error {
	if err := e.commitLocked(tx, liquidity); err != nil {
		if rerr := contract.ReturnPayment(e.state, call, e.address, paid); rerr != nil {
			e.log.Error("payment return failed", "caller", call.Caller, "amount", paid.Dec(), "err", rerr)
			return errors.Join(err, rerr)
		}
		return err
	}
	return nil
}

func (e *Engine) observe(op string) func() {
	start := time.Now()
	return func() { e.metrics.ObserveOperation(op, start) }
}
