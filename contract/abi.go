// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
	ethtypes "github.com/luxfi/geth/core/types"
)

// EventABI wraps a parsed ABI that only declares events.
type EventABI struct {
	abi.ABI
}

// ParseABI parses the raw ABI JSON. It panics on malformed input since every
// ABI in this module is a compile-time constant.
func ParseABI(rawABI string) EventABI {
	parsed, err := abi.JSON(strings.NewReader(rawABI))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ABI: %v", err))
	}
	return EventABI{ABI: parsed}
}

// EventID returns the topic0 of the named event.
func (e EventABI) EventID(name string) common.Hash {
	return e.Events[name].ID
}

// PackEvent packs the given event name and arguments.
// Returns the topics for the event and the packed data of non-indexed args.
func (e EventABI) PackEvent(name string, args ...interface{}) ([]common.Hash, []byte, error) {
	event, exist := e.Events[name]
	if !exist {
		return nil, nil, fmt.Errorf("event '%s' not found", name)
	}
	if len(args) != len(event.Inputs) {
		return nil, nil, fmt.Errorf("event '%s' unexpected number of inputs %d", name, len(args))
	}

	var (
		nonIndexedInputs = make([]interface{}, 0, len(args))
		nonIndexedArgs   abi.Arguments
		topics           = make([]common.Hash, 0, len(args)+1)
	)
	if !event.Anonymous {
		topics = append(topics, event.ID)
	}
	for i, arg := range event.Inputs {
		value := normalize(args[i])
		if !arg.Indexed {
			nonIndexedArgs = append(nonIndexedArgs, arg)
			nonIndexedInputs = append(nonIndexedInputs, value)
			continue
		}
		topic, err := packTopic(value)
		if err != nil {
			return nil, nil, err
		}
		topics = append(topics, topic)
	}

	data, err := nonIndexedArgs.Pack(nonIndexedInputs...)
	if err != nil {
		return nil, nil, err
	}
	return topics, data, nil
}

// UnpackEvent decodes the non-indexed arguments of log into a name/value map.
func (e EventABI) UnpackEvent(name string, log *ethtypes.Log) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if err := e.UnpackIntoMap(out, name, log.Data); err != nil {
		return nil, err
	}
	return out, nil
}

// Emit packs the event and appends it to the state's log.
func (e EventABI) Emit(st StateDB, emitter common.Address, name string, args ...interface{}) error {
	topics, data, err := e.PackEvent(name, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", name, err)
	}
	st.AddLog(&ethtypes.Log{
		Address: emitter,
		Topics:  topics,
		Data:    data,
	})
	return nil
}

// Filter returns the logs emitted by emitter whose topic0 is the named event.
func (e EventABI) Filter(logs []*ethtypes.Log, emitter common.Address, name string) []*ethtypes.Log {
	id := e.EventID(name)
	var out []*ethtypes.Log
	for _, l := range logs {
		if l.Address == emitter && len(l.Topics) > 0 && l.Topics[0] == id {
			out = append(out, l)
		}
	}
	return out
}

func normalize(value interface{}) interface{} {
	if v, ok := value.(*uint256.Int); ok {
		if v == nil {
			return new(big.Int)
		}
		return v.ToBig()
	}
	return value
}

// packTopic packs a single indexed argument into a topic hash
func packTopic(value interface{}) (common.Hash, error) {
	switch v := value.(type) {
	case common.Address:
		return common.BytesToHash(v.Bytes()), nil
	case common.Hash:
		return v, nil
	case uint64:
		return common.BigToHash(new(big.Int).SetUint64(v)), nil
	case *big.Int:
		return common.BigToHash(v), nil
	case bool:
		if v {
			return common.BigToHash(big.NewInt(1)), nil
		}
		return common.Hash{}, nil
	case []byte:
		return common.BytesToHash(crypto.Keccak256(v)), nil
	case string:
		return common.BytesToHash(crypto.Keccak256([]byte(v))), nil
	default:
		return common.Hash{}, fmt.Errorf("unsupported indexed type: %T", value)
	}
}
