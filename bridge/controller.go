// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bridge sequences cross-chain ledger operations.
//
// The Controller owns the ledger. Holders queue move-to-branch orders by
// handing tokens and a native relay fee to the controller; an operator
// settles the queue with relayed batches or the holder closes the order
// directly. Inbound relays from branches pass through a Verifier before the
// ledger mints.
package bridge

import (
	"errors"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/parsdao/ledger/contract"
	"github.com/parsdao/ledger/ledger"
	"github.com/parsdao/ledger/metrics"
	"github.com/parsdao/ledger/registry"
)

// Config describes a controller deployment.
type Config struct {
	Address  common.Address
	Owner    common.Address
	Executor common.Address
	Dex      common.Address
}

type Option func(*Controller)

func WithLogger(logger log.Logger) Option {
	return func(c *Controller) { c.log = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithVerifier replaces the default TrustedRelayer.
func WithVerifier(v Verifier) Option {
	return func(c *Controller) { c.verifier = v }
}

type moveQueue struct {
	holders *registry.OrderedSet[common.Address]
	orders  map[common.Address]*MoveOrder
}

func newMoveQueue() *moveQueue {
	return &moveQueue{
		holders: registry.NewOrderedSet[common.Address](),
		orders:  make(map[common.Address]*MoveOrder),
	}
}

// Controller is safe for concurrent use.
type Controller struct {
	mu sync.RWMutex

	address  common.Address
	roles    contract.Ownable
	dex      common.Address
	ledger   *ledger.Ledger
	registry *registry.Registry
	state    contract.StateDB
	verifier Verifier
	log      log.Logger
	metrics  *metrics.Metrics

	fees         map[uint64]*uint256.Int
	queues       map[uint64]*moveQueue
	custody      *uint256.Int
	executorFees *uint256.Int
	completed    map[uint64]struct{}
}

// NewController returns a controller. l must already be owned by
// cfg.Address.
func NewController(cfg Config, l *ledger.Ledger, reg *registry.Registry, st contract.StateDB, opts ...Option) (*Controller, error) {
	if l == nil || reg == nil || st == nil {
		return nil, errors.New("bridge: ledger, registry and state are required")
	}
	if cfg.Address == (common.Address{}) || cfg.Owner == (common.Address{}) {
		return nil, contract.ErrZeroAddress
	}

	c := &Controller{
		address:      cfg.Address,
		roles:        contract.NewOwnable(cfg.Owner, cfg.Executor),
		dex:          cfg.Dex,
		ledger:       l,
		registry:     reg,
		state:        st,
		verifier:     TrustedRelayer{},
		log:          log.Root(),
		fees:         make(map[uint64]*uint256.Int),
		queues:       make(map[uint64]*moveQueue),
		custody:      new(uint256.Int),
		executorFees: new(uint256.Int),
		completed:    make(map[uint64]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Controller) Address() common.Address { return c.address }

// self returns the identity the controller uses when calling the ledger.
func (c *Controller) self(call contract.Call) contract.Call {
	return call.As(c.address)
}

func (c *Controller) Owner() common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roles.Owner()
}

func (c *Controller) Executor() common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roles.Executor()
}

func (c *Controller) Dex() common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dex
}

func (c *Controller) ChangeExecutor(call contract.Call, next common.Address) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roles.ChangeExecutor(call, next)
}

func (c *Controller) TransferOwnership(call contract.Call, next common.Address) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roles.TransferOwnership(call, next)
}

// ChangeDex rebinds the exchange engine that receives treasury liquidity.
func (c *Controller) ChangeDex(call contract.Call, dex common.Address) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}
	if dex == (common.Address{}) {
		return contract.ErrZeroAddress
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.OnlyOwner(call); err != nil {
		return err
	}
	c.dex = dex
	return nil
}

// TransferTokenOwnership hands the ledger to a successor controller.
func (c *Controller) TransferTokenOwnership(call contract.Call, next common.Address) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.OnlyOwner(call); err != nil {
		return err
	}
	if !c.custody.IsZero() {
		return ErrPendingOrders
	}
	return c.ledger.TransferOwnership(c.self(call), next)
}

// SetCrossChainTransferFee sets the native fee escrowed with move orders to
// chainID.
func (c *Controller) SetCrossChainTransferFee(call contract.Call, fee *uint256.Int, chainID uint64) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}
	fee = orZero(fee)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.OnlyOperator(call); err != nil {
		return err
	}
	if err := c.registry.CheckActiveBranch(chainID); err != nil {
		return err
	}
	c.fees[chainID] = fee.Clone()
	c.emit(eventTransferFeeChanged, chainID, fee)
	return nil
}

func (c *Controller) CrossChainTransferFee(chainID uint64) *uint256.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.feeLocked(chainID).Clone()
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}

func (c *Controller) feeLocked(chainID uint64) *uint256.Int {
	if v, ok := c.fees[chainID]; ok {
		return v
	}
	return new(uint256.Int)
}

// CreateBranch registers a branch on the ledger and sets its transfer fee.
func (c *Controller) CreateBranch(call contract.Call, chainID uint64, branchContract common.Address, supply, fee *uint256.Int) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}
	fee = orZero(fee)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.OnlyOwner(call); err != nil {
		return err
	}
	if err := c.ledger.CreateBranch(c.self(call), chainID, branchContract, supply); err != nil {
		return err
	}
	c.fees[chainID] = fee.Clone()
	c.emit(eventTransferFeeChanged, chainID, fee)
	return nil
}

// DeprecateBranch retires chainID. Pending move orders block it.
func (c *Controller) DeprecateBranch(call contract.Call, chainID uint64) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.OnlyOwner(call); err != nil {
		return err
	}
	if q, ok := c.queues[chainID]; ok && q.holders.Len() > 0 {
		return ErrPendingOrders
	}
	if err := c.ledger.DeprecateBranch(c.self(call), chainID); err != nil {
		return err
	}
	delete(c.fees, chainID)
	return nil
}

func (c *Controller) ChangeBranchContract(call contract.Call, chainID uint64, branchContract common.Address) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.OnlyOwner(call); err != nil {
		return err
	}
	return c.ledger.ChangeBranchContract(c.self(call), chainID, branchContract)
}

// TransferBetweenBranches rebalances recorded supply between two branches.
func (c *Controller) TransferBetweenBranches(call contract.Call, from, to uint64, amount *uint256.Int) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.OnlyOperator(call); err != nil {
		return err
	}
	return c.ledger.TransferBetweenBranches(c.self(call), from, to, amount)
}

// AddDexLiquidity moves free treasury tokens to the exchange engine.
func (c *Controller) AddDexLiquidity(call contract.Call, amount *uint256.Int) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.OnlyOwner(call); err != nil {
		return err
	}
	if c.dex == (common.Address{}) {
		return ErrDexNotSet
	}
	if c.freeTreasuryLocked().Lt(amount) {
		return ErrInsufficientTreasury
	}
	if err := c.ledger.Transfer(c.self(call), c.dex, amount); err != nil {
		return err
	}
	c.emit(eventDexLiquidityAdded, c.dex, amount)
	c.log.Info("added exchange liquidity", "dex", c.dex, "amount", amount.Dec())
	return nil
}

// GetFeesForExecutor pays the accumulated relay fees to the caller.
func (c *Controller) GetFeesForExecutor(call contract.Call) (*uint256.Int, error) {
	if err := contract.NonPayable(call); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.OnlyOperator(call); err != nil {
		return nil, err
	}
	paid := c.executorFees.Clone()
	if paid.IsZero() {
		return paid, nil
	}
	if err := contract.Send(c.state, c.address, call.Caller, paid); err != nil {
		return nil, err
	}
	c.executorFees = new(uint256.Int)
	c.emit(eventExecutorFeesPaid, call.Caller, paid)
	return paid, nil
}

func (c *Controller) ExecutorFees() *uint256.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.executorFees.Clone()
}

// Custody is the token amount held for pending move orders.
func (c *Controller) Custody() *uint256.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.custody.Clone()
}

// Balance is the controller's token balance not held for move orders.
func (c *Controller) Balance() *uint256.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.freeTreasuryLocked()
}

func (c *Controller) freeTreasuryLocked() *uint256.Int {
	held := c.ledger.BalanceOf(c.address)
	if held.Lt(c.custody) {
		return new(uint256.Int)
	}
	return held.Sub(held, c.custody)
}

func (c *Controller) UsedChains() []uint64 { return c.registry.UsedChains() }
