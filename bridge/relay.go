// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/ledger/contract"
)

// TransferToBranch applies one relayed outbound batch identified by
// operationID.
//
// When recipients[0] has a pending move order to chainID the batch settles
// it out of custody and, once the order is exhausted, its escrowed fee is
// credited to the executor pool. Otherwise the batch is paid from the free
// treasury. A batch the ledger rejects does not return an error; the
// returned RelayResult and a TransferOrderToBranchFailed event carry the
// reason so the relayer can retry.
func (c *Controller) TransferToBranch(
	call contract.Call,
	operationID uint64,
	amount *uint256.Int,
	chainID uint64,
	recipients []common.Address,
	amounts []*uint256.Int,
) (RelayResult, error) {
	defer c.metrics.ObserveOperation("relay_to_branch", time.Now())
	if err := contract.NonPayable(call); err != nil {
		return RelayResult{}, err
	}
	if len(recipients) == 0 || len(recipients) != len(amounts) {
		return RelayResult{}, ErrWrongData
	}
	sum := new(uint256.Int)
	for _, a := range amounts {
		if _, overflow := sum.AddOverflow(sum, a); overflow {
			return RelayResult{}, ErrWrongAmount
		}
	}
	if !sum.Eq(amount) {
		return RelayResult{}, ErrWrongAmount
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.OnlyOperator(call); err != nil {
		return RelayResult{}, err
	}
	if _, done := c.completed[operationID]; done {
		return RelayResult{}, ErrOperationProcessed
	}

	result := RelayResult{
		OperationID: operationID,
		Holder:      recipients[0],
		ChainID:     chainID,
		Amount:      amount.Clone(),
		Tag:         RelayTag(c.registry.CurrentChainID(), chainID, operationID, recipients, amounts),
	}
	order, _ := c.orderLocked(result.Holder, chainID)
	result.Settled = order != nil
	result.Err = c.relayLocked(call, order, amount, chainID)
	if result.Err != nil {
		c.emit(eventRelayFailed, operationID, result.Holder, amount, chainID, result.Err.Error())
		c.metrics.IncRelay("failed")
		c.log.Warn("relay to branch failed",
			"operationID", operationID,
			"holder", result.Holder,
			"chainID", chainID,
			"err", result.Err,
		)
		return result, nil
	}

	result.Succeeded = true
	c.completed[operationID] = struct{}{}
	c.emit(eventRelaySucceeded, operationID, result.Holder, amount, chainID, [32]byte(result.Tag))
	c.metrics.IncRelay("succeeded")
	c.log.Info("relayed to branch",
		"operationID", operationID,
		"chainID", chainID,
		"amount", amount.Dec(),
		"tag", result.Tag,
	)
	return result, nil
}

func (c *Controller) relayLocked(call contract.Call, order *MoveOrder, amount *uint256.Int, chainID uint64) error {
	if order == nil {
		if c.freeTreasuryLocked().Lt(amount) {
			return ErrInsufficientTreasury
		}
		return c.ledger.TransferToBranch(c.self(call), chainID, amount)
	}

	if order.Amount.Lt(amount) {
		return ErrExceedsOrder
	}
	if err := c.ledger.TransferToBranch(c.self(call), chainID, amount); err != nil {
		return err
	}
	order.Amount = new(uint256.Int).Sub(order.Amount, amount)
	c.custody = new(uint256.Int).Sub(c.custody, amount)
	if order.Amount.IsZero() {
		c.executorFees = new(uint256.Int).Add(c.executorFees, order.Fee)
		c.removeOrderLocked(order)
		c.metrics.IncMoveOrder("settled")
	}
	return nil
}

// TransferFromBranch applies an inbound claim after the configured Verifier
// accepts it.
func (c *Controller) TransferFromBranch(call contract.Call, msg InboundMessage) error {
	if err := contract.NonPayable(call); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.OnlyOperator(call); err != nil {
		return err
	}
	if err := c.verifier.VerifyInbound(c.registry.CurrentChainID(), msg); err != nil {
		return err
	}
	if err := c.ledger.TransferFromBranch(c.self(call), msg.SourceChain, msg.Amount, msg.Tag, msg.Recipients, msg.Amounts); err != nil {
		return err
	}
	c.emit(eventInboundTransferApply, msg.OperationID, msg.SourceChain, [32]byte(msg.Tag), msg.Amount)
	return nil
}
