/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestGuardianError(t *testing.T) {
	tests := []struct {
		name      string
		code      Code
		reason    string
		sentinel  error
		predicate func(error) bool
		expected  string
	}{
		{
			name:      "invalid setup",
			code:      CodeInvalidGuardianSetup,
			reason:    "need at least 2 guardians, got 1",
			sentinel:  ErrInvalidGuardianSetup,
			predicate: IsInvalidGuardianSetup,
			expected:  "InvalidGuardianSetup for account abc: need at least 2 guardians, got 1",
		},
		{
			name:      "invalid threshold",
			code:      CodeInvalidThreshold,
			sentinel:  ErrInvalidThreshold,
			predicate: IsInvalidThreshold,
			expected:  "InvalidThreshold for account abc",
		},
		{
			name:      "already initialized",
			code:      CodeAlreadyInitialized,
			sentinel:  ErrAlreadyInitialized,
			predicate: IsAlreadyInitialized,
			expected:  "AlreadyInitialized for account abc",
		},
		{
			name:      "account not found",
			code:      CodeAccountNotFound,
			sentinel:  ErrAccountNotFound,
			predicate: IsAccountNotFound,
			expected:  "AccountNotFound for account abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewGuardianError(tt.code, "abc", tt.reason)

			if err.Error() != tt.expected {
				t.Errorf("Expected error message %q, got %q", tt.expected, err.Error())
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("GuardianError(%s) should match %v", tt.code, tt.sentinel)
			}
			if !tt.predicate(fmt.Errorf("wrapped: %w", err)) {
				t.Error("predicate should match wrapped GuardianError")
			}
			code, ok := CodeOf(err)
			if !ok || code != tt.code {
				t.Errorf("CodeOf = %v, %v; want %v", code, ok, tt.code)
			}
		})
	}
}

func TestGuardianErrorDoesNotCrossMatch(t *testing.T) {
	err := NewGuardianError(CodeInvalidThreshold, "abc", "")
	if IsInvalidGuardianSetup(err) || IsAlreadyInitialized(err) || IsAccountNotFound(err) {
		t.Error("InvalidThreshold fault must not match other registry sentinels")
	}
}

func TestCodeOfSentinel(t *testing.T) {
	code, ok := CodeOf(fmt.Errorf("ctx: %w", ErrAlreadyInitialized))
	if !ok || code != CodeAlreadyInitialized {
		t.Errorf("CodeOf(sentinel) = %v, %v", code, ok)
	}

	if _, ok := CodeOf(ErrNotFound); ok {
		t.Error("store errors carry no registry code")
	}
}

func TestCodeString(t *testing.T) {
	if CodeAccountNotFound.String() != "AccountNotFound" {
		t.Errorf("unexpected name %q", CodeAccountNotFound.String())
	}
	if Code(99).String() != "Code(99)" {
		t.Errorf("unexpected name %q", Code(99).String())
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("slot", "uref-1")

	expected := `slot with key "uref-1" not found`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}

	if !IsNotFound(err) {
		t.Error("IsNotFound should return true for NotFoundError")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "with field",
			field:    "backend",
			message:  "unknown backend",
			expected: `validation failed for field "backend": unknown backend`,
		},
		{
			name:     "without field",
			field:    "",
			message:  "missing required fields",
			expected: "validation failed: missing required fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message)

			if err.Error() != tt.expected {
				t.Errorf("Expected error message %q, got %q", tt.expected, err.Error())
			}

			if !IsValidationError(err) {
				t.Error("IsValidationError should return true for ValidationError")
			}
		})
	}
}

func TestConditionFailedError(t *testing.T) {
	err := NewConditionFailedError("commit", "Version = :v")

	expected := "condition check failed for commit operation: Version = :v"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !IsConditionFailed(err) {
		t.Error("IsConditionFailed should return true for ConditionFailedError")
	}
}

func TestArgumentError(t *testing.T) {
	err := NewArgumentError("threshold", "missing")
	if err.Error() != `argument "threshold": missing` {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !IsInvalidArgument(fmt.Errorf("decode: %w", err)) {
		t.Error("IsInvalidArgument should work with wrapped errors")
	}
}

func TestSentinelErrors(t *testing.T) {
	// Ensure sentinel errors are distinct
	sentinels := []error{
		ErrInvalidGuardianSetup,
		ErrInvalidThreshold,
		ErrAlreadyInitialized,
		ErrAccountNotFound,
		ErrNotFound,
		ErrInvalidInput,
		ErrConditionFailed,
		ErrCorruptSlot,
		ErrInvalidArgument,
		ErrUnknownEntryPoint,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v matches %v", err1, err2)
			}
		}
	}
}
