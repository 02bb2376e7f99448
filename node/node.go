// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package node assembles a ledger deployment from configuration.
package node

import (
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	log "github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/parsdao/ledger/api"
	"github.com/parsdao/ledger/bridge"
	"github.com/parsdao/ledger/config"
	"github.com/parsdao/ledger/contract"
	"github.com/parsdao/ledger/dex"
	"github.com/parsdao/ledger/ledger"
	"github.com/parsdao/ledger/metrics"
	"github.com/parsdao/ledger/registry"
)

// Node is one chain's ledger, bridge controller and exchange engine sharing
// a registry and native state.
type Node struct {
	Registry   *registry.Registry
	Ledger     *ledger.Ledger
	Controller *bridge.Controller
	Engine     *dex.Engine
	State      *contract.MemoryState
	Metrics    *metrics.Metrics
	Prometheus *prometheus.Registry
	API        *api.Handler

	db database.Database
}

// New wires a node. The ledger is owned by the bridge controller, which
// registers cfg.Branches at startup.
func New(cfg config.Config, logger log.Logger) (*Node, error) {
	if logger == nil {
		logger = log.Root()
	}
	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)
	st := contract.NewMemoryState()
	reg := registry.New(cfg.ChainID, cfg.LedgerAddress)

	l, err := ledger.New(ledger.Config{
		Name:           cfg.TokenName,
		Symbol:         cfg.TokenSymbol,
		Decimals:       cfg.Decimals,
		Address:        cfg.LedgerAddress,
		Owner:          cfg.BridgeAddress,
		InitialSupply:  cfg.InitialSupply,
		AllowTagReplay: cfg.AllowTagReplay,
	}, reg, st, ledger.WithLogger(logger), ledger.WithMetrics(m))
	if err != nil {
		return nil, fmt.Errorf("create ledger: %w", err)
	}

	ctrl, err := bridge.NewController(bridge.Config{
		Address:  cfg.BridgeAddress,
		Owner:    cfg.Owner,
		Executor: cfg.Executor,
		Dex:      cfg.DexAddress,
	}, l, reg, st, bridge.WithLogger(logger), bridge.WithMetrics(m))
	if err != nil {
		return nil, fmt.Errorf("create bridge: %w", err)
	}
	for _, b := range cfg.Branches {
		call := contract.NewCall(cfg.Owner, 0)
		if err := ctrl.CreateBranch(call, b.ChainID, b.Contract, b.Supply, b.Fee); err != nil {
			return nil, fmt.Errorf("create branch %d: %w", b.ChainID, err)
		}
	}

	db := memdb.New()
	engine, err := dex.NewEngine(dex.EngineConfig{
		Address:      cfg.DexAddress,
		Owner:        cfg.Owner,
		Executor:     cfg.Executor,
		LockOffPrice: cfg.LockOffPrice,
		UnbanPrice:   cfg.UnbanPrice,
		ConverterNum: cfg.ConverterNum,
		ConverterDen: cfg.ConverterDen,
	}, l, reg, dex.NewStore(db, cfg.DexAddress), st, dex.WithLogger(logger), dex.WithMetrics(m))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create exchange: %w", err)
	}

	n := &Node{
		Registry:   reg,
		Ledger:     l,
		Controller: ctrl,
		Engine:     engine,
		State:      st,
		Metrics:    m,
		Prometheus: promReg,
		db:         db,
	}
	n.API = api.New(api.Deps{
		Supply:     l,
		Chains:     reg,
		MoveOrders: ctrl,
		Orders:     engine,
		Logs:       st,
		Gatherer:   promReg,
	}, logger)

	logger.Info("node assembled",
		"chainID", cfg.ChainID,
		"branches", len(cfg.Branches),
		"totalSupply", l.TotalSupply().Dec(),
	)
	return n, nil
}

// Close releases the order database.
func (n *Node) Close() error {
	return n.db.Close()
}
