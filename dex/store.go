// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/ledger/contract"
)

// Key layout
var (
	prefixOrder       = []byte("o/")
	prefixActive      = []byte("a/")
	prefixSeller      = []byte("s/")
	prefixRestriction = []byte("r/")
	keyNextID         = []byte("m/next")
	keyPrices         = []byte("m/prices")
)

// Encoded sizes
const (
	orderSize       = 8 + 5*32 + 8 + 2*common.AddressLength + 1
	restrictionSize = 4 + 8 + 1
	pricesSize      = 2 * 32
)

var errCorrupt = errors.New("corrupt record")

// Store persists orders, the active order index, per-seller order lists,
// seller restrictions and restriction prices. It is owned by the engine that
// writes to it and can be handed to a successor engine with its history
// intact.
type Store struct {
	db database.Database

	mu    sync.RWMutex
	owner common.Address
}

func NewStore(db database.Database, owner common.Address) *Store {
	return &Store{db: db, owner: owner}
}

func (s *Store) Owner() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// TransferOwnership hands the store to next.
func (s *Store) TransferOwnership(call contract.Call, next common.Address) error {
	if next == (common.Address{}) {
		return contract.ErrZeroAddress
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if call.Caller != s.owner {
		return contract.ErrUnauthorized
	}
	s.owner = next
	return nil
}

// Order loads id or returns ErrOrderNotFound.
func (s *Store) Order(id uint64) (*Order, error) {
	raw, err := s.db.Get(orderKey(id))
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	return decodeOrder(raw)
}

// ActiveOrderIDs lists open orders in placement order.
func (s *Store) ActiveOrderIDs() ([]uint64, error) {
	return s.scanIDs(prefixActive)
}

// SellerOrderIDs lists every order ever placed by seller.
func (s *Store) SellerOrderIDs(seller common.Address) ([]uint64, error) {
	return s.scanIDs(sellerPrefix(seller))
}

func (s *Store) IsActive(id uint64) (bool, error) {
	return s.db.Has(activeKey(id))
}

// Restriction returns the record of seller, zero when none is stored.
func (s *Store) Restriction(seller common.Address) (Restriction, error) {
	raw, err := s.db.Get(restrictionKey(seller))
	if errors.Is(err, database.ErrNotFound) {
		return Restriction{}, nil
	}
	if err != nil {
		return Restriction{}, fmt.Errorf("load restriction %s: %w", seller, err)
	}
	return decodeRestriction(raw)
}

// Prices returns the stored restriction prices and whether any are stored.
func (s *Store) Prices() (Prices, bool, error) {
	raw, err := s.db.Get(keyPrices)
	if errors.Is(err, database.ErrNotFound) {
		return Prices{LockOff: new(uint256.Int), Unban: new(uint256.Int)}, false, nil
	}
	if err != nil {
		return Prices{}, false, fmt.Errorf("load prices: %w", err)
	}
	if len(raw) != pricesSize {
		return Prices{}, false, errCorrupt
	}
	return Prices{
		LockOff: new(uint256.Int).SetBytes(raw[:32]),
		Unban:   new(uint256.Int).SetBytes(raw[32:]),
	}, true, nil
}

// NextOrderID returns the id the next placed order receives. Ids start at 1.
func (s *Store) NextOrderID() (uint64, error) {
	raw, err := s.db.Get(keyNextID)
	if errors.Is(err, database.ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load order counter: %w", err)
	}
	if len(raw) != 8 {
		return 0, errCorrupt
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (s *Store) scanIDs(prefix []byte) ([]uint64, error) {
	it := s.db.NewIteratorWithPrefix(prefix)
	defer it.Release()

	ids := make([]uint64, 0)
	for it.Next() {
		key := it.Key()
		if len(key) < len(prefix)+8 {
			return nil, errCorrupt
		}
		ids = append(ids, binary.BigEndian.Uint64(key[len(key)-8:]))
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("scan %q: %w", prefix, err)
	}
	return ids, nil
}

// Begin opens a unit of work. Reads through the Tx observe its own pending
// writes; nothing reaches the database until Commit.
func (s *Store) Begin() *Tx {
	return &Tx{
		store:        s,
		orders:       make(map[uint64]*Order),
		restrictions: make(map[common.Address]Restriction),
	}
}

// Tx buffers the writes of one engine operation.
type Tx struct {
	store *Store

	orders       map[uint64]*Order
	dirtyOrders  []uint64
	restrictions map[common.Address]Restriction
	dirtySellers []common.Address
	activate     []uint64
	deactivate   []uint64
	sellerOrders []*Order
	prices       *Prices
	nextID       uint64
}

// Order returns the pending copy of id, loading it on first access. The
// returned order may be mutated; call PutOrder to persist it.
func (tx *Tx) Order(id uint64) (*Order, error) {
	if o, ok := tx.orders[id]; ok {
		return o, nil
	}
	o, err := tx.store.Order(id)
	if err != nil {
		return nil, err
	}
	tx.orders[id] = o
	return o, nil
}

func (tx *Tx) PutOrder(o *Order) {
	if !containsID(tx.dirtyOrders, o.ID) {
		tx.dirtyOrders = append(tx.dirtyOrders, o.ID)
	}
	tx.orders[o.ID] = o
}

// Insert stores a new order, appends it to its seller's list and the
// active index.
func (tx *Tx) Insert(o *Order) {
	tx.PutOrder(o)
	tx.activate = append(tx.activate, o.ID)
	tx.sellerOrders = append(tx.sellerOrders, o)
	tx.nextID = o.ID + 1
}

// AdvanceOrderID raises the order counter to next. Lower values are ignored.
func (tx *Tx) AdvanceOrderID(next uint64) {
	if next > tx.nextID {
		tx.nextID = next
	}
}

// Deactivate drops id from the active index.
func (tx *Tx) Deactivate(id uint64) {
	tx.deactivate = append(tx.deactivate, id)
}

func (tx *Tx) Restriction(seller common.Address) (Restriction, error) {
	if r, ok := tx.restrictions[seller]; ok {
		return r, nil
	}
	r, err := tx.store.Restriction(seller)
	if err != nil {
		return Restriction{}, err
	}
	tx.restrictions[seller] = r
	return r, nil
}

func (tx *Tx) PutRestriction(seller common.Address, r Restriction) {
	if !containsAddr(tx.dirtySellers, seller) {
		tx.dirtySellers = append(tx.dirtySellers, seller)
	}
	tx.restrictions[seller] = r
}

func (tx *Tx) PutPrices(p Prices) {
	tx.prices = &Prices{LockOff: p.LockOff.Clone(), Unban: p.Unban.Clone()}
}

// Commit writes every buffered change in a single database batch.
func (tx *Tx) Commit() error {
	batch := tx.store.db.NewBatch()
	for _, id := range tx.dirtyOrders {
		if err := batch.Put(orderKey(id), encodeOrder(tx.orders[id])); err != nil {
			return fmt.Errorf("write order %d: %w", id, err)
		}
	}
	for _, o := range tx.sellerOrders {
		if err := batch.Put(sellerKey(o.Seller, o.ID), nil); err != nil {
			return fmt.Errorf("index seller order %d: %w", o.ID, err)
		}
	}
	for _, id := range tx.activate {
		if err := batch.Put(activeKey(id), nil); err != nil {
			return fmt.Errorf("activate order %d: %w", id, err)
		}
	}
	for _, id := range tx.deactivate {
		if err := batch.Delete(activeKey(id)); err != nil {
			return fmt.Errorf("deactivate order %d: %w", id, err)
		}
	}
	for _, seller := range tx.dirtySellers {
		if err := batch.Put(restrictionKey(seller), encodeRestriction(tx.restrictions[seller])); err != nil {
			return fmt.Errorf("write restriction %s: %w", seller, err)
		}
	}
	if tx.prices != nil {
		if err := batch.Put(keyPrices, encodePrices(*tx.prices)); err != nil {
			return fmt.Errorf("write prices: %w", err)
		}
	}
	if tx.nextID != 0 {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], tx.nextID)
		if err := batch.Put(keyNextID, buf[:]); err != nil {
			return fmt.Errorf("write order counter: %w", err)
		}
	}
	if batch.Size() == 0 {
		return nil
	}
	return batch.Write()
}

func containsID(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsAddr(addrs []common.Address, a common.Address) bool {
	for _, v := range addrs {
		if v == a {
			return true
		}
	}
	return false
}

func idKey(prefix []byte, id uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], id)
	return key
}

func orderKey(id uint64) []byte  { return idKey(prefixOrder, id) }
func activeKey(id uint64) []byte { return idKey(prefixActive, id) }

func sellerPrefix(seller common.Address) []byte {
	return append(append([]byte{}, prefixSeller...), seller.Bytes()...)
}

func sellerKey(seller common.Address, id uint64) []byte {
	return idKey(sellerPrefix(seller), id)
}

func restrictionKey(seller common.Address) []byte {
	return append(append([]byte{}, prefixRestriction...), seller.Bytes()...)
}

func encodeOrder(o *Order) []byte {
	buf := make([]byte, orderSize)
	off := 0
	binary.BigEndian.PutUint64(buf[off:], o.ID)
	off += 8
	for _, v := range []*uint256.Int{o.AskedValue, o.Ratio, o.Balance, o.Escrow, o.Reserved} {
		v.WriteToSlice(buf[off : off+32])
		off += 32
	}
	binary.BigEndian.PutUint64(buf[off:], o.ChainID)
	off += 8
	copy(buf[off:], o.Recipient.Bytes())
	off += common.AddressLength
	copy(buf[off:], o.Seller.Bytes())
	off += common.AddressLength
	buf[off] = byte(o.Status)
	return buf
}

func decodeOrder(raw []byte) (*Order, error) {
	if len(raw) != orderSize {
		return nil, fmt.Errorf("%w: order length %d", errCorrupt, len(raw))
	}
	o := &Order{}
	off := 0
	o.ID = binary.BigEndian.Uint64(raw[off:])
	off += 8
	words := make([]*uint256.Int, 5)
	for i := range words {
		words[i] = new(uint256.Int).SetBytes(raw[off : off+32])
		off += 32
	}
	o.AskedValue, o.Ratio, o.Balance, o.Escrow, o.Reserved = words[0], words[1], words[2], words[3], words[4]
	o.ChainID = binary.BigEndian.Uint64(raw[off:])
	off += 8
	o.Recipient = common.BytesToAddress(raw[off : off+common.AddressLength])
	off += common.AddressLength
	o.Seller = common.BytesToAddress(raw[off : off+common.AddressLength])
	off += common.AddressLength
	o.Status = OrderStatus(raw[off])
	return o, nil
}

func encodeRestriction(r Restriction) []byte {
	buf := make([]byte, restrictionSize)
	binary.BigEndian.PutUint32(buf[0:], r.FailureCount)
	binary.BigEndian.PutUint64(buf[4:], r.LockUntil)
	if r.Banned {
		buf[12] = 1
	}
	return buf
}

func decodeRestriction(raw []byte) (Restriction, error) {
	if len(raw) != restrictionSize {
		return Restriction{}, fmt.Errorf("%w: restriction length %d", errCorrupt, len(raw))
	}
	return Restriction{
		FailureCount: binary.BigEndian.Uint32(raw[0:]),
		LockUntil:    binary.BigEndian.Uint64(raw[4:]),
		Banned:       raw[12] == 1,
	}, nil
}

func encodePrices(p Prices) []byte {
	buf := make([]byte, pricesSize)
	p.LockOff.WriteToSlice(buf[:32])
	p.Unban.WriteToSlice(buf[32:])
	return buf
}
