// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger implements a fungible token whose supply is split between
// the current chain and any number of branch chains.
//
// Balances exist only for the current chain. A branch is represented by a
// single supply figure that is raised when tokens are burned here for that
// branch and lowered when a relayed claim mints them back. At every point
//
//	totalSupply == currentChainSupply + sum(branchSupply)
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/parsdao/ledger/contract"
	"github.com/parsdao/ledger/metrics"
	"github.com/parsdao/ledger/registry"
)

var (
	ErrMintToZero           = fmt.Errorf("%w: mint to the zero address", contract.ErrInputShape)
	ErrWrongData            = fmt.Errorf("%w: wrong data", contract.ErrInputShape)
	ErrWrongAmount          = fmt.Errorf("%w: wrong amount", contract.ErrInputShape)
	ErrSameBranch           = fmt.Errorf("%w: source and destination branch are equal", contract.ErrInputShape)
	ErrExceedsBalance       = fmt.Errorf("%w: transfer amount exceeds balance", contract.ErrInvariant)
	ErrExceedsSupply        = fmt.Errorf("%w: amount exceeds current chain supply", contract.ErrInvariant)
	ErrExceedsBranchSupply  = fmt.Errorf("%w: amount exceeds branch supply", contract.ErrInvariant)
	ErrInsufficientAllow    = fmt.Errorf("%w: insufficient allowance", contract.ErrInvariant)
	ErrAllowanceBelowZero   = fmt.Errorf("%w: decreased allowance below zero", contract.ErrInvariant)
	ErrSupplyOverflow       = fmt.Errorf("%w: supply overflow", contract.ErrInvariant)
	ErrBranchHasBalance     = fmt.Errorf("%w: branch has balance", contract.ErrInvariant)
	ErrTagConsumed          = fmt.Errorf("%w: correlation tag already consumed", contract.ErrInvariant)
	ErrConservationViolated = errors.New("supply conservation violated")
)

// Config describes a ledger deployment.
type Config struct {
	Name     string
	Symbol   string
	Decimals uint8

	// Address is the ledger's own identity, used as the log emitter.
	Address common.Address
	// Owner receives InitialSupply and holds the administrative role.
	Owner         common.Address
	InitialSupply *uint256.Int
	// CurrentContract is recorded in the registry for the current chain.
	CurrentContract common.Address

	// AllowTagReplay accepts a correlation tag more than once on inbound
	// relays.
	AllowTagReplay bool
}

type Option func(*Ledger)

func WithLogger(logger log.Logger) Option {
	return func(l *Ledger) { l.log = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu sync.RWMutex

	name     string
	symbol   string
	decimals uint8
	address  common.Address
	roles    contract.Ownable

	registry *registry.Registry
	state    contract.StateDB
	log      log.Logger
	metrics  *metrics.Metrics

	balances   map[common.Address]*uint256.Int
	allowances map[common.Address]map[common.Address]*uint256.Int

	totalSupply   *uint256.Int
	currentSupply *uint256.Int
	branchSupply  map[uint64]*uint256.Int

	allowTagReplay bool
	consumedTags   map[common.Hash]struct{}
}

// New creates the ledger and mints cfg.InitialSupply to cfg.Owner on the
// current chain.
func New(cfg Config, reg *registry.Registry, st contract.StateDB, opts ...Option) (*Ledger, error) {
	if cfg.Owner == (common.Address{}) {
		return nil, ErrMintToZero
	}
	if reg == nil || st == nil {
		return nil, errors.New("ledger: registry and state are required")
	}

	l := &Ledger{
		name:           cfg.Name,
		symbol:         cfg.Symbol,
		decimals:       cfg.Decimals,
		address:        cfg.Address,
		roles:          contract.NewOwnable(cfg.Owner, common.Address{}),
		registry:       reg,
		state:          st,
		log:            log.Root(),
		balances:       make(map[common.Address]*uint256.Int),
		allowances:     make(map[common.Address]map[common.Address]*uint256.Int),
		totalSupply:    new(uint256.Int),
		currentSupply:  new(uint256.Int),
		branchSupply:   make(map[uint64]*uint256.Int),
		allowTagReplay: cfg.AllowTagReplay,
		consumedTags:   make(map[common.Hash]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	if cfg.InitialSupply != nil && !cfg.InitialSupply.IsZero() {
		l.totalSupply.Set(cfg.InitialSupply)
		l.currentSupply.Set(cfg.InitialSupply)
		l.balances[cfg.Owner] = cfg.InitialSupply.Clone()
		l.emit(eventTransfer, common.Address{}, cfg.Owner, cfg.InitialSupply)
	}
	l.publishLocked()
	return l, nil
}

func (l *Ledger) Name() string           { return l.name }
func (l *Ledger) Symbol() string         { return l.symbol }
func (l *Ledger) Decimals() uint8        { return l.decimals }
func (l *Ledger) Address() common.Address { return l.address }

func (l *Ledger) Owner() common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.roles.Owner()
}

// TransferOwnership hands the administrative role to next.
func (l *Ledger) TransferOwnership(call contract.Call, next common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.roles.TransferOwnership(call, next); err != nil {
		return err
	}
	l.log.Info("ledger ownership transferred", "from", call.Caller, "to", next)
	return nil
}

func (l *Ledger) CurrentChainID() uint64 { return l.registry.CurrentChainID() }

func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalSupply.Clone()
}

func (l *Ledger) CurrentChainSupply() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.currentSupply.Clone()
}

// BranchSupply returns the recorded supply of chainID, zero when unknown.
func (l *Ledger) BranchSupply(chainID uint64) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.branchSupplyLocked(chainID).Clone()
}

func (l *Ledger) BranchContract(chainID uint64) common.Address {
	return l.registry.Contract(chainID)
}

func (l *Ledger) UsedChains() []uint64       { return l.registry.UsedChains() }
func (l *Ledger) DeprecatedChains() []uint64 { return l.registry.DeprecatedChains() }

// Supply is a consistent view of every supply figure.
type Supply struct {
	Total    *uint256.Int
	Current  *uint256.Int
	Branches map[uint64]*uint256.Int
}

func (l *Ledger) Supply() Supply {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := Supply{
		Total:    l.totalSupply.Clone(),
		Current:  l.currentSupply.Clone(),
		Branches: make(map[uint64]*uint256.Int, len(l.branchSupply)),
	}
	for id, v := range l.branchSupply {
		out.Branches[id] = v.Clone()
	}
	return out
}

// CheckConservation verifies total == current + sum(branches).
func (l *Ledger) CheckConservation() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sum := l.currentSupply.Clone()
	for id, v := range l.branchSupply {
		if _, overflow := sum.AddOverflow(sum, v); overflow {
			return fmt.Errorf("%w: overflow at branch %d", ErrConservationViolated, id)
		}
	}
	if !sum.Eq(l.totalSupply) {
		return fmt.Errorf("%w: total %s, accounted %s", ErrConservationViolated, l.totalSupply.Dec(), sum.Dec())
	}
	return nil
}

func (l *Ledger) branchSupplyLocked(chainID uint64) *uint256.Int {
	if v, ok := l.branchSupply[chainID]; ok {
		return v
	}
	return new(uint256.Int)
}

func (l *Ledger) balanceLocked(addr common.Address) *uint256.Int {
	if v, ok := l.balances[addr]; ok {
		return v
	}
	return new(uint256.Int)
}

func (l *Ledger) publishLocked() {
	if l.metrics == nil {
		return
	}
	l.metrics.SetSupply(l.totalSupply, l.currentSupply, l.branchSupply)
}
