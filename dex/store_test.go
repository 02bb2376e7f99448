// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/parsdao/ledger/contract"
)

func testOrder(id uint64, seller common.Address) *Order {
	return newOrder(id, u(100), new(uint256.Int).Mul(u(3), RatioPrecision), u(300), eth, alice, seller)
}

func TestStoreOrderRoundTrip(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	s := NewStore(db, engineAddr)

	_, err := s.Order(1)
	require.ErrorIs(t, err, ErrOrderNotFound)
	next, err := s.NextOrderID()
	require.NoError(t, err)
	require.Equal(t, uint64(1), next)

	order := testOrder(1, bob)
	order.Reserved = u(25)
	order.Status = StatusFilled
	tx := s.Begin()
	tx.Insert(order)
	require.NoError(t, tx.Commit())

	got, err := s.Order(1)
	require.NoError(t, err)
	require.Equal(t, order, got)

	next, err = s.NextOrderID()
	require.NoError(t, err)
	require.Equal(t, uint64(2), next)
}

func TestStoreIndexes(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	s := NewStore(db, engineAddr)

	tx := s.Begin()
	for id := uint64(1); id <= 300; id++ {
		seller := alice
		if id%3 == 0 {
			seller = bob
		}
		tx.Insert(testOrder(id, seller))
	}
	require.NoError(t, tx.Commit())

	tx = s.Begin()
	tx.Deactivate(2)
	tx.Deactivate(256)
	require.NoError(t, tx.Commit())

	active, err := s.ActiveOrderIDs()
	require.NoError(t, err)
	require.Len(t, active, 298)
	require.Equal(t, []uint64{1, 3, 4}, active[:3])
	require.Equal(t, uint64(255), active[253])
	require.Equal(t, uint64(257), active[254])

	ok, err := s.IsActive(256)
	require.NoError(t, err)
	require.False(t, ok)

	mine, err := s.SellerOrderIDs(bob)
	require.NoError(t, err)
	require.Len(t, mine, 100)
	require.Equal(t, uint64(3), mine[0])
	require.Equal(t, uint64(300), mine[99])
}

func TestStoreTxReadsOwnWrites(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	s := NewStore(db, engineAddr)

	tx := s.Begin()
	tx.Insert(testOrder(1, bob))
	order, err := tx.Order(1)
	require.NoError(t, err)
	order.Reserved = u(7)
	tx.PutOrder(order)

	_, err = s.Order(1)
	require.ErrorIs(t, err, ErrOrderNotFound)

	r, err := tx.Restriction(bob)
	require.NoError(t, err)
	tx.PutRestriction(bob, r.Escalate(now))
	r, err = tx.Restriction(bob)
	require.NoError(t, err)
	require.Equal(t, uint32(1), r.FailureCount)

	require.NoError(t, tx.Commit())
	stored, err := s.Order(1)
	require.NoError(t, err)
	require.Equal(t, u(7), stored.Reserved)
	r, err = s.Restriction(bob)
	require.NoError(t, err)
	require.Equal(t, uint32(1), r.FailureCount)
}

func TestStoreRestrictionAndPrices(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	s := NewStore(db, engineAddr)

	r, err := s.Restriction(bob)
	require.NoError(t, err)
	require.Equal(t, Restriction{}, r)

	_, ok, err := s.Prices()
	require.NoError(t, err)
	require.False(t, ok)

	want := Restriction{FailureCount: 10, LockUntil: now, Banned: true}
	tx := s.Begin()
	tx.PutRestriction(bob, want)
	tx.PutPrices(Prices{LockOff: u(5), Unban: new(uint256.Int).SetAllOne()})
	require.NoError(t, tx.Commit())

	r, err = s.Restriction(bob)
	require.NoError(t, err)
	require.Equal(t, want, r)

	prices, ok, err := s.Prices()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, u(5), prices.LockOff)
	require.Equal(t, new(uint256.Int).SetAllOne(), prices.Unban)
}

func TestStoreEmptyCommit(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	require.NoError(t, NewStore(db, engineAddr).Begin().Commit())
}

func TestStoreTransferOwnership(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	s := NewStore(db, owner)

	require.ErrorIs(t, s.TransferOwnership(as(bob), bob), contract.ErrUnauthorized)
	require.ErrorIs(t, s.TransferOwnership(as(owner), common.Address{}), contract.ErrZeroAddress)
	require.NoError(t, s.TransferOwnership(as(owner), engineAddr))
	require.Equal(t, engineAddr, s.Owner())
}

func TestDecodeCorrupt(t *testing.T) {
	_, err := decodeOrder([]byte{1, 2, 3})
	require.ErrorIs(t, err, errCorrupt)
	_, err = decodeRestriction(nil)
	require.ErrorIs(t, err, errCorrupt)
}
