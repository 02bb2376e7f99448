// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api serves read-only JSON views of the ledger, bridge and exchange
// for relayers and indexers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	ethtypes "github.com/luxfi/geth/core/types"
	log "github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parsdao/ledger/bridge"
	"github.com/parsdao/ledger/contract"
	"github.com/parsdao/ledger/dex"
	"github.com/parsdao/ledger/ledger"
	"github.com/parsdao/ledger/registry"
)

// SupplyReader is implemented by *ledger.Ledger.
type SupplyReader interface {
	Supply() ledger.Supply
}

// ChainReader is implemented by *registry.Registry.
type ChainReader interface {
	Branches() []registry.Branch
	Status(chainID uint64) registry.Status
	Contract(chainID uint64) common.Address
}

// MoveOrderReader is implemented by *bridge.Controller.
type MoveOrderReader interface {
	MoveToBranchOrders(chainID uint64) []common.Address
	MoveToBranchOrder(holder common.Address, chainID uint64) (*bridge.MoveOrder, bool)
	CrossChainTransferFee(chainID uint64) *uint256.Int
}

// OrderReader is implemented by *dex.Engine.
type OrderReader interface {
	ActiveOrderIDs() ([]uint64, error)
	OrderInfo(orderID uint64) (*dex.Order, error)
	MyOrders(seller common.Address) ([]uint64, error)
	SellerRestriction(seller common.Address) (dex.Restriction, error)
	LiquidityBalance() *uint256.Int
}

// LogReader is implemented by *contract.MemoryState.
type LogReader interface {
	Logs() []*ethtypes.Log
}

// Deps are the components the API reads from.
type Deps struct {
	Supply     SupplyReader
	Chains     ChainReader
	MoveOrders MoveOrderReader
	Orders     OrderReader
	Logs       LogReader
	Gatherer   prometheus.Gatherer
}

// Handler wires the read endpoints to the components.
type Handler struct {
	deps Deps
	log  log.Logger
}

func New(deps Deps, logger log.Logger) *Handler {
	if logger == nil {
		logger = log.Root()
	}
	return &Handler{deps: deps, log: logger}
}

// Register mounts the endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/supply", h.HandleSupply)
		r.Get("/chains", h.HandleChains)
		r.Get("/chains/{chainID}", h.HandleChain)
		r.Get("/move-orders/{chainID}", h.HandleMoveOrders)
		r.Get("/orders/active", h.HandleActiveOrders)
		r.Get("/orders/{orderID}", h.HandleOrder)
		r.Get("/sellers/{address}/restriction", h.HandleRestriction)
		r.Get("/sellers/{address}/orders", h.HandleSellerOrders)
		r.Get("/events", h.HandleEvents)
	})
	if h.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.deps.Gatherer, promhttp.HandlerOpts{}))
	}
}

// Router returns a chi router with every endpoint registered.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

type supplyResponse struct {
	Total    string            `json:"total"`
	Current  string            `json:"current"`
	Branches map[string]string `json:"branches"`
}

func (h *Handler) HandleSupply(w http.ResponseWriter, _ *http.Request) {
	s := h.deps.Supply.Supply()
	resp := supplyResponse{
		Total:    s.Total.Dec(),
		Current:  s.Current.Dec(),
		Branches: make(map[string]string, len(s.Branches)),
	}
	for id, v := range s.Branches {
		resp.Branches[strconv.FormatUint(id, 10)] = v.Dec()
	}
	writeJSON(w, http.StatusOK, resp)
}

type chainResponse struct {
	ChainID  uint64         `json:"chain_id"`
	Contract common.Address `json:"contract"`
	Status   string         `json:"status"`
	Supply   string         `json:"supply"`
}

func (h *Handler) chain(b registry.Branch, supply ledger.Supply) chainResponse {
	amount := supply.Current
	if b.Status != registry.Current {
		amount = supply.Branches[b.ChainID]
	}
	if amount == nil {
		amount = new(uint256.Int)
	}
	return chainResponse{
		ChainID:  b.ChainID,
		Contract: b.Contract,
		Status:   b.Status.String(),
		Supply:   amount.Dec(),
	}
}

func (h *Handler) HandleChains(w http.ResponseWriter, _ *http.Request) {
	supply := h.deps.Supply.Supply()
	branches := h.deps.Chains.Branches()
	out := make([]chainResponse, 0, len(branches))
	for _, b := range branches {
		out = append(out, h.chain(b, supply))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleChain(w http.ResponseWriter, r *http.Request) {
	id, ok := h.uintParam(w, r, "chainID")
	if !ok {
		return
	}
	status := h.deps.Chains.Status(id)
	if status == registry.Unregistered {
		writeError(w, http.StatusNotFound, registry.ErrNotCreated)
		return
	}
	b := registry.Branch{ChainID: id, Contract: h.deps.Chains.Contract(id), Status: status}
	writeJSON(w, http.StatusOK, h.chain(b, h.deps.Supply.Supply()))
}

type moveOrderResponse struct {
	Holder common.Address `json:"holder"`
	Amount string         `json:"amount"`
	Fee    string         `json:"fee"`
}

type moveOrdersResponse struct {
	ChainID uint64              `json:"chain_id"`
	Fee     string              `json:"fee"`
	Orders  []moveOrderResponse `json:"orders"`
}

func (h *Handler) HandleMoveOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := h.uintParam(w, r, "chainID")
	if !ok {
		return
	}
	resp := moveOrdersResponse{
		ChainID: id,
		Fee:     h.deps.MoveOrders.CrossChainTransferFee(id).Dec(),
		Orders:  []moveOrderResponse{},
	}
	for _, holder := range h.deps.MoveOrders.MoveToBranchOrders(id) {
		order, ok := h.deps.MoveOrders.MoveToBranchOrder(holder, id)
		if !ok {
			continue
		}
		resp.Orders = append(resp.Orders, moveOrderResponse{
			Holder: order.Holder,
			Amount: order.Amount.Dec(),
			Fee:    order.Fee.Dec(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type activeOrdersResponse struct {
	OrderIDs  []uint64 `json:"order_ids"`
	Liquidity string   `json:"liquidity"`
}

func (h *Handler) HandleActiveOrders(w http.ResponseWriter, _ *http.Request) {
	ids, err := h.deps.Orders.ActiveOrderIDs()
	if err != nil {
		h.fail(w, "list active orders", err)
		return
	}
	writeJSON(w, http.StatusOK, activeOrdersResponse{
		OrderIDs:  ids,
		Liquidity: h.deps.Orders.LiquidityBalance().Dec(),
	})
}

type orderResponse struct {
	ID         uint64         `json:"id"`
	AskedValue string         `json:"asked_value"`
	Ratio      string         `json:"ratio"`
	Balance    string         `json:"balance"`
	Escrow     string         `json:"escrow"`
	Reserved   string         `json:"reserved"`
	ChainID    uint64         `json:"chain_id"`
	Recipient  common.Address `json:"recipient"`
	Seller     common.Address `json:"seller"`
	Status     string         `json:"status"`
}

func (h *Handler) HandleOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.uintParam(w, r, "orderID")
	if !ok {
		return
	}
	o, err := h.deps.Orders.OrderInfo(id)
	if errors.Is(err, dex.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.fail(w, "load order", err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{
		ID:         o.ID,
		AskedValue: o.AskedValue.Dec(),
		Ratio:      o.Ratio.Dec(),
		Balance:    o.Balance.Dec(),
		Escrow:     o.Escrow.Dec(),
		Reserved:   o.Reserved.Dec(),
		ChainID:    o.ChainID,
		Recipient:  o.Recipient,
		Seller:     o.Seller,
		Status:     o.Status.String(),
	})
}

type restrictionResponse struct {
	Seller       common.Address `json:"seller"`
	FailureCount uint32         `json:"failure_count"`
	LockUntil    uint64         `json:"lock_until"`
	Banned       bool           `json:"banned"`
	Restricted   bool           `json:"restricted"`
}

// HandleRestriction reports the seller's record. Restricted is evaluated at
// ?at (unix seconds), defaulting to now.
func (h *Handler) HandleRestriction(w http.ResponseWriter, r *http.Request) {
	seller, ok := h.addressParam(w, r)
	if !ok {
		return
	}
	at := uint64(time.Now().Unix())
	if raw := r.URL.Query().Get("at"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, contract.ErrInputShape)
			return
		}
		at = v
	}
	res, err := h.deps.Orders.SellerRestriction(seller)
	if err != nil {
		h.fail(w, "load restriction", err)
		return
	}
	writeJSON(w, http.StatusOK, restrictionResponse{
		Seller:       seller,
		FailureCount: res.FailureCount,
		LockUntil:    res.LockUntil,
		Banned:       res.Banned,
		Restricted:   res.Restricted(at),
	})
}

func (h *Handler) HandleSellerOrders(w http.ResponseWriter, r *http.Request) {
	seller, ok := h.addressParam(w, r)
	if !ok {
		return
	}
	ids, err := h.deps.Orders.MyOrders(seller)
	if err != nil {
		h.fail(w, "list seller orders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]uint64{"order_ids": ids})
}

type eventResponse struct {
	Index   uint           `json:"index"`
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    string         `json:"data"`
}

// HandleEvents returns logs with index >= ?from.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	var from uint64
	if raw := r.URL.Query().Get("from"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, contract.ErrInputShape)
			return
		}
		from = v
	}
	out := []eventResponse{}
	for _, l := range h.deps.Logs.Logs() {
		if uint64(l.Index) < from {
			continue
		}
		out = append(out, eventResponse{
			Index:   l.Index,
			Address: l.Address,
			Topics:  l.Topics,
			Data:    "0x" + common.Bytes2Hex(l.Data),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) uintParam(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, contract.ErrInputShape)
		return 0, false
	}
	return v, true
}

func (h *Handler) addressParam(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	raw := chi.URLParam(r, "address")
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, contract.ErrZeroAddress)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func (h *Handler) fail(w http.ResponseWriter, what string, err error) {
	h.log.Error("api read failed", "op", what, "err", err)
	writeError(w, http.StatusInternalServerError, errors.New("internal error"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
