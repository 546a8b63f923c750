/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Registry faults. These are the only outcomes a caller of the guardian
// registry needs to interpret; every one of them is terminal for the call.
var (
	// ErrInvalidGuardianSetup is returned when the guardian set is too small or contains a duplicate
	ErrInvalidGuardianSetup = errors.New("invalid guardian setup")

	// ErrInvalidThreshold is returned when the threshold is zero or exceeds the guardian count
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrAlreadyInitialized is returned when an account already has a committed guardian record
	ErrAlreadyInitialized = errors.New("guardians already initialized")

	// ErrAccountNotFound is returned when a query requires a record the account does not have
	ErrAccountNotFound = errors.New("account not found")
)

// Store and boundary faults.
var (
	// ErrNotFound is returned when a stored item is not found
	ErrNotFound = errors.New("item not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when an optimistic commit loses a race
	ErrConditionFailed = errors.New("condition check failed")

	// ErrCorruptSlot is returned when a slot holds bytes that do not decode as its field
	ErrCorruptSlot = errors.New("corrupt slot value")

	// ErrInvalidArgument is returned when a named argument is missing or malformed
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownEntryPoint is returned when a call names an entry point that does not exist
	ErrUnknownEntryPoint = errors.New("unknown entry point")
)

// Code is the stable numeric identifier of a registry fault as reported to the host.
type Code uint16

const (
	CodeInvalidGuardianSetup Code = 1
	CodeInvalidThreshold     Code = 2
	CodeAlreadyInitialized   Code = 3
	CodeAccountNotFound      Code = 4
)

var codeSentinels = map[Code]error{
	CodeInvalidGuardianSetup: ErrInvalidGuardianSetup,
	CodeInvalidThreshold:     ErrInvalidThreshold,
	CodeAlreadyInitialized:   ErrAlreadyInitialized,
	CodeAccountNotFound:      ErrAccountNotFound,
}

var codeNames = map[Code]string{
	CodeInvalidGuardianSetup: "InvalidGuardianSetup",
	CodeInvalidThreshold:     "InvalidThreshold",
	CodeAlreadyInitialized:   "AlreadyInitialized",
	CodeAccountNotFound:      "AccountNotFound",
}

// String returns the fault name, e.g. "InvalidThreshold".
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", uint16(c))
}

// GuardianError is a registry fault for a specific account.
type GuardianError struct {
	Code    Code
	Account string
	Reason  string
}

func (e *GuardianError) Error() string {
	msg := fmt.Sprintf("%s for account %s", e.Code, e.Account)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *GuardianError) Is(target error) bool {
	sentinel, ok := codeSentinels[e.Code]
	return ok && target == sentinel
}

// NotFoundError represents an error when a stored item is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// ArgumentError represents a named argument that could not be decoded at the entry boundary
type ArgumentError struct {
	Name    string
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument %q: %s", e.Name, e.Message)
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// Helper functions for creating errors

// NewGuardianError creates a new GuardianError
func NewGuardianError(code Code, account, reason string) error {
	return &GuardianError{Code: code, Account: account, Reason: reason}
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(itemType, key string) error {
	return &NotFoundError{Type: itemType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewArgumentError creates a new ArgumentError
func NewArgumentError(name, message string) error {
	return &ArgumentError{Name: name, Message: message}
}

// CodeOf returns the registry fault code carried by err, if any.
func CodeOf(err error) (Code, bool) {
	var ge *GuardianError
	if errors.As(err, &ge) {
		return ge.Code, true
	}
	for code, sentinel := range codeSentinels {
		if errors.Is(err, sentinel) {
			return code, true
		}
	}
	return 0, false
}

// IsInvalidGuardianSetup checks if an error is an invalid guardian setup fault
func IsInvalidGuardianSetup(err error) bool {
	return errors.Is(err, ErrInvalidGuardianSetup)
}

// IsInvalidThreshold checks if an error is an invalid threshold fault
func IsInvalidThreshold(err error) bool {
	return errors.Is(err, ErrInvalidThreshold)
}

// IsAlreadyInitialized checks if an error is an already initialized fault
func IsAlreadyInitialized(err error) bool {
	return errors.Is(err, ErrAlreadyInitialized)
}

// IsAccountNotFound checks if an error is an account not found fault
func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsCorruptSlot checks if an error is a corrupt slot error
func IsCorruptSlot(err error) bool {
	return errors.Is(err, ErrCorruptSlot)
}

// IsInvalidArgument checks if an error is an invalid argument error
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsUnknownEntryPoint checks if an error names an entry point that does not exist
func IsUnknownEntryPoint(err error) bool {
	return errors.Is(err, ErrUnknownEntryPoint)
}
