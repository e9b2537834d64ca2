package database

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection matches every *ConnectionError.
	ErrConnection = errors.New("database: connection error")
	// ErrQuery matches every *QueryError.
	ErrQuery = errors.New("database: query error")
	// ErrState matches every *StateError.
	ErrState = errors.New("database: state error")
	// ErrMissingCapability matches every *MissingCapabilityError.
	ErrMissingCapability = errors.New("database: missing capability")

	errNoConnection = errors.New("no connection")
)

// ConnectionError is returned when there is no usable connection, or when
// connecting or selecting a database fails.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) Is(err error) bool {
	return err == ErrConnection
}

// QueryError is returned when the engine rejects a statement. Code and Message
// come from the connector error when it exposes them.
type QueryError struct {
	Code    string
	Message string
	SQL     string
	Err     error
}

func (e *QueryError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("database: query failed: %s %s SQL=%s", e.Code, e.Message, e.SQL)
	}
	return fmt.Sprintf("database: query failed: %s SQL=%s", e.Message, e.SQL)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func (e *QueryError) Is(err error) bool {
	return err == ErrQuery
}

// StateError is returned for an operation that the driver cannot perform in
// its current state, like starting a query while a cursor is still open.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("database: %s: %s", e.Op, e.Reason)
}

func (e *StateError) Is(err error) bool {
	return err == ErrState
}

// MissingCapabilityError is returned when an optional component is not
// registered for the dialect.
type MissingCapabilityError struct {
	Dialect    string
	Capability string
}

func (e *MissingCapabilityError) Error() string {
	return fmt.Sprintf("database: %s is not available for %s", e.Capability, e.Dialect)
}

func (e *MissingCapabilityError) Is(err error) bool {
	return err == ErrMissingCapability
}

func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection)
}

func IsQueryError(err error) bool {
	return errors.Is(err, ErrQuery)
}

func IsStateError(err error) bool {
	return errors.Is(err, ErrState)
}

func IsMissingCapability(err error) bool {
	return errors.Is(err, ErrMissingCapability)
}
