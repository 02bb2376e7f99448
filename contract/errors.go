// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"errors"
	"fmt"
)

// Error classes. Every package-specific error wraps exactly one of these so
// callers can branch on the class with errors.Is.
var (
	ErrAuthorization       = errors.New("unauthorized")
	ErrRegistryState       = errors.New("registry state")
	ErrInvariant           = errors.New("invariant violation")
	ErrInputShape          = errors.New("invalid input")
	ErrRestriction         = errors.New("restricted")
	ErrInsufficientPayment = errors.New("insufficient payment")
)

var (
	ErrUnauthorized      = fmt.Errorf("%w: caller is not admin", ErrAuthorization)
	ErrNotOperator       = fmt.Errorf("%w: caller is not owner or executor", ErrAuthorization)
	ErrNonPayable        = fmt.Errorf("%w: does not accept payments", ErrInputShape)
	ErrZeroAddress       = fmt.Errorf("%w: wrong address", ErrInputShape)
	ErrInsufficientFunds = fmt.Errorf("%w: insufficient native balance", ErrInsufficientPayment)
)
