// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import "github.com/parsdao/ledger/contract"

const (
	eventPlaceOrder            = "PlaceOrder"
	eventCloseOrder            = "CloseOrder"
	eventFilledOrder           = "FilledOrder"
	eventWriteOffBalance       = "WriteOffBalance"
	eventReserveOrderException = "ReserveOrderException"
	eventWriteOffException     = "WriteOffException"
	eventIncreaseLiquidity     = "IncreaseLiquidity"
	eventSendExchangedBalance  = "SendExchangedBalance"
	eventRestrictionChanged    = "RestrictionChanged"
	eventPurchaseUnban         = "PurchaseUnban"
	eventPurchase              = "Purchase"
)

const rawEventsABI = `[
	{"type":"event","name":"PlaceOrder","inputs":[
		{"name":"seller","type":"address","indexed":true},
		{"name":"orderId","type":"uint64","indexed":true}]},
	{"type":"event","name":"CloseOrder","inputs":[
		{"name":"seller","type":"address","indexed":true},
		{"name":"orderId","type":"uint64","indexed":true}]},
	{"type":"event","name":"FilledOrder","inputs":[
		{"name":"operationId","type":"uint64","indexed":true},
		{"name":"orderId","type":"uint64","indexed":true},
		{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"WriteOffBalance","inputs":[
		{"name":"operationId","type":"uint64","indexed":true},
		{"name":"orderId","type":"uint64","indexed":true},
		{"name":"value","type":"uint256","indexed":false},
		{"name":"released","type":"uint256","indexed":false}]},
	{"type":"event","name":"ReserveOrderException","inputs":[
		{"name":"operationId","type":"uint64","indexed":true},
		{"name":"orderId","type":"uint64","indexed":true},
		{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"WriteOffException","inputs":[
		{"name":"operationId","type":"uint64","indexed":true},
		{"name":"orderId","type":"uint64","indexed":true},
		{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"IncreaseLiquidity","inputs":[
		{"name":"sender","type":"address","indexed":true},
		{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"SendExchangedBalance","inputs":[
		{"name":"operationId","type":"uint64","indexed":true},
		{"name":"recipient","type":"address","indexed":true},
		{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"RestrictionChanged","inputs":[
		{"name":"seller","type":"address","indexed":true},
		{"name":"failureCount","type":"uint32","indexed":false},
		{"name":"lockUntil","type":"uint64","indexed":false},
		{"name":"banned","type":"bool","indexed":false}]},
	{"type":"event","name":"PurchaseUnban","inputs":[
		{"name":"seller","type":"address","indexed":true},
		{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"Purchase","inputs":[
		{"name":"buyer","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]}
]`

// Events is the event ABI emitted by the exchange engine.
var Events = contract.ParseABI(rawEventsABI)

func (e *Engine) emit(name string, args ...interface{}) {
	if err := Events.Emit(e.state, e.address, name, args...); err != nil {
		e.log.Error("failed to emit exchange event", "event", name, "err", err)
	}
}
