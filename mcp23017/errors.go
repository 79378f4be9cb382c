package mcp23017

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by every register operation of a Device before Initialize.
	// No bus transaction is attempted in that case.
	ErrNotInitialized = errors.New("mcp23017: device not initialized")

	// ErrAlreadyInitialized is returned when Initialize is called twice on the same Device.
	ErrAlreadyInitialized = errors.New("mcp23017: device already initialized")
)

// TransportError wraps a failed bus transaction.
type TransportError struct {
	Address  byte // Device address
	Register byte // Physical register address
	Write    bool
	Err      error
}

func (e *TransportError) Error() string {
	op := "read from"
	if e.Write {
		op = "write to"
	}
	return fmt.Sprintf("mcp23017 %#02x: %v register %#02x failed: %v", e.Address, op, e.Register, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
