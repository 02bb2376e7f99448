// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import "github.com/parsdao/ledger/contract"

const (
	eventTransfer              = "Transfer"
	eventApproval              = "Approval"
	eventBranchCreated         = "BranchCreated"
	eventBranchDeprecated      = "BranchDeprecated"
	eventBranchContractChanged = "BranchContractChanged"
	eventBranchTransfer        = "BranchTransfer"
	eventCrossChainTransfer    = "CrossChainTransfer"
)

const rawEventsABI = `[
	{"type":"event","name":"Transfer","inputs":[
		{"name":"from","type":"address","indexed":true},
		{"name":"to","type":"address","indexed":true},
		{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"Approval","inputs":[
		{"name":"owner","type":"address","indexed":true},
		{"name":"spender","type":"address","indexed":true},
		{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"BranchCreated","inputs":[
		{"name":"chainId","type":"uint64","indexed":true},
		{"name":"branchContract","type":"address","indexed":false},
		{"name":"supply","type":"uint256","indexed":false}]},
	{"type":"event","name":"BranchDeprecated","inputs":[
		{"name":"chainId","type":"uint64","indexed":true}]},
	{"type":"event","name":"BranchContractChanged","inputs":[
		{"name":"chainId","type":"uint64","indexed":true},
		{"name":"branchContract","type":"address","indexed":false}]},
	{"type":"event","name":"BranchTransfer","inputs":[
		{"name":"fromChain","type":"uint64","indexed":true},
		{"name":"toChain","type":"uint64","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"CrossChainTransfer","inputs":[
		{"name":"tag","type":"bytes32","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]}
]`

// Events is the event ABI emitted by the ledger.
var Events = contract.ParseABI(rawEventsABI)

func (l *Ledger) emit(name string, args ...interface{}) {
	if err := Events.Emit(l.state, l.address, name, args...); err != nil {
		l.log.Error("failed to emit ledger event", "event", name, "err", err)
	}
}
