// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import "github.com/parsdao/ledger/contract"

const (
	eventMoveOrderIncreased   = "MoveOrderIncreased"
	eventMoveOrderClosed      = "MoveOrderClosed"
	eventMoveOrderCancelled   = "MoveOrderCancelled"
	eventRelaySucceeded       = "TransferOrderToBranchSucceed"
	eventRelayFailed          = "TransferOrderToBranchFailed"
	eventTransferFeeChanged   = "CrossChainTransferFeeChanged"
	eventExecutorFeesPaid     = "ExecutorFeesPaid"
	eventDexLiquidityAdded    = "DexLiquidityAdded"
	eventInboundTransferApply = "InboundTransferApplied"
)

const rawEventsABI = `[
	{"type":"event","name":"MoveOrderIncreased","inputs":[
		{"name":"holder","type":"address","indexed":true},
		{"name":"chainId","type":"uint64","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"queued","type":"uint256","indexed":false},
		{"name":"fee","type":"uint256","indexed":false}]},
	{"type":"event","name":"MoveOrderClosed","inputs":[
		{"name":"holder","type":"address","indexed":true},
		{"name":"chainId","type":"uint64","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"MoveOrderCancelled","inputs":[
		{"name":"holder","type":"address","indexed":true},
		{"name":"chainId","type":"uint64","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"TransferOrderToBranchSucceed","inputs":[
		{"name":"operationId","type":"uint64","indexed":true},
		{"name":"holder","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"chainId","type":"uint64","indexed":false},
		{"name":"tag","type":"bytes32","indexed":false}]},
	{"type":"event","name":"TransferOrderToBranchFailed","inputs":[
		{"name":"operationId","type":"uint64","indexed":true},
		{"name":"holder","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"chainId","type":"uint64","indexed":false},
		{"name":"reason","type":"string","indexed":false}]},
	{"type":"event","name":"CrossChainTransferFeeChanged","inputs":[
		{"name":"chainId","type":"uint64","indexed":true},
		{"name":"fee","type":"uint256","indexed":false}]},
	{"type":"event","name":"ExecutorFeesPaid","inputs":[
		{"name":"executor","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"DexLiquidityAdded","inputs":[
		{"name":"dex","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"InboundTransferApplied","inputs":[
		{"name":"operationId","type":"uint64","indexed":true},
		{"name":"sourceChain","type":"uint64","indexed":true},
		{"name":"tag","type":"bytes32","indexed":false},
		{"name":"amount","type":"uint256","indexed":false}]}
]`

// Events is the event ABI emitted by the controller.
var Events = contract.ParseABI(rawEventsABI)

func (c *Controller) emit(name string, args ...interface{}) {
	if err := Events.Emit(c.state, c.address, name, args...); err != nil {
		c.log.Error("failed to emit bridge event", "event", name, "err", err)
	}
}
