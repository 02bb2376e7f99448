// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Verifier decides whether an inbound message may be applied. The caller
// has already been authenticated as an operator when it runs.
type Verifier interface {
	VerifyInbound(destChain uint64, msg InboundMessage) error
}

// TrustedRelayer accepts every message from an authorised operator.
type TrustedRelayer struct{}

func (TrustedRelayer) VerifyInbound(uint64, InboundMessage) error { return nil }

// DigestVerifier requires the message tag to equal the digest the source
// chain emitted for the same operation.
type DigestVerifier struct{}

func (DigestVerifier) VerifyInbound(destChain uint64, msg InboundMessage) error {
	if RelayTag(msg.SourceChain, destChain, msg.OperationID, msg.Recipients, msg.Amounts) != msg.Tag {
		return ErrTagMismatch
	}
	return nil
}

// RelayTag derives the correlation tag of an outbound relay. The destination
// chain passes it back on the inbound leg.
func RelayTag(source, dest, operationID uint64, recipients []common.Address, amounts []*uint256.Int) common.Hash {
	hasher := blake3.New()

	var buf [8]byte
	for _, v := range []uint64{source, dest, operationID} {
		binary.BigEndian.PutUint64(buf[:], v)
		hasher.Write(buf[:])
	}
	for i, r := range recipients {
		hasher.Write(r[:])
		if i < len(amounts) && amounts[i] != nil {
			word := amounts[i].Bytes32()
			hasher.Write(word[:])
		}
	}

	var tag common.Hash
	copy(tag[:], hasher.Sum(nil))
	return tag
}
