// Package errors provides structured error handling for nexasec operations.
// It defines error codes, error types, and utilities for creating and
// inspecting errors with context about probes, the device store, and
// configuration.
package errors

import (
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"

	// Probe and discovery errors.
	CodeToolUnavailable ErrorCode = "TOOL_UNAVAILABLE"
	CodeToolFailed      ErrorCode = "TOOL_FAILED"
	CodeParseFailed     ErrorCode = "PARSE_FAILED"
	CodeProbeTimeout    ErrorCode = "PROBE_TIMEOUT"
	CodeHostUnreachable ErrorCode = "HOST_UNREACHABLE"
	CodeDiscoveryFailed ErrorCode = "DISCOVERY_FAILED"
	CodeNetworkInvalid  ErrorCode = "NETWORK_INVALID"

	// Device store errors.
	CodeStoreConnection ErrorCode = "STORE_CONNECTION"
	CodeStoreQuery      ErrorCode = "STORE_QUERY"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeConflict        ErrorCode = "CONFLICT"

	// Service errors.
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// ProbeError represents an error from a host discovery probe or a
// liveness check.
type ProbeError struct {
	Code     ErrorCode
	Message  string
	Network  string
	Strategy string
	Cause    error
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	if e.Network != "" {
		return fmt.Sprintf("[%s] %s (network: %s)", e.Code, e.Message, e.Network)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// NewProbeError creates a new probe error with the specified code and message.
func NewProbeError(code ErrorCode, message string) *ProbeError {
	return &ProbeError{Code: code, Message: message}
}

// WrapProbeError wraps an existing error as a probe error.
func WrapProbeError(code ErrorCode, message string, err error) *ProbeError {
	return &ProbeError{Code: code, Message: message, Cause: err}
}

// WithNetwork attaches the scanned network to the error.
func (e *ProbeError) WithNetwork(network string) *ProbeError {
	e.Network = network
	return e
}

// WithStrategy attaches the probe strategy name to the error.
func (e *ProbeError) WithStrategy(strategy string) *ProbeError {
	e.Strategy = strategy
	return e
}

// StoreError represents device store errors.
type StoreError struct {
	Code      ErrorCode
	Message   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s (operation: %s)", e.Code, e.Message, e.Operation)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewStoreError creates a new store error.
func NewStoreError(code ErrorCode, message string) *StoreError {
	return &StoreError{Code: code, Message: message}
}

// WrapStoreError wraps an existing error as a store error.
func WrapStoreError(code ErrorCode, message string, err error) *StoreError {
	return &StoreError{Code: code, Message: message, Cause: err}
}

// DiscoveryError represents errors from a discovery cycle.
type DiscoveryError struct {
	Code    ErrorCode
	Message string
	Network string
	Cause   error
}

// Error implements the error interface.
func (e *DiscoveryError) Error() string {
	if e.Network != "" {
		return fmt.Sprintf("[%s] %s (network: %s)", e.Code, e.Message, e.Network)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DiscoveryError) Unwrap() error {
	return e.Cause
}

// WrapDiscoveryError wraps an existing error as a discovery error.
func WrapDiscoveryError(code ErrorCode, message string, err error) *DiscoveryError {
	return &DiscoveryError{Code: code, Message: message, Cause: err}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{Code: code, Message: message, Field: field, Value: value}
}

// Utility functions for common error operations

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	switch e := err.(type) {
	case *ProbeError:
		return e.Code
	case *StoreError:
		return e.Code
	case *DiscoveryError:
		return e.Code
	case *ConfigError:
		return e.Code
	}
	return CodeUnknown
}

// IsRetryable determines if an error indicates a retryable condition.
func IsRetryable(err error) bool {
	switch GetCode(err) {
	case CodeTimeout, CodeProbeTimeout, CodeHostUnreachable, CodeStoreConnection:
		return true
	default:
		return false
	}
}

// IsFatal determines if an error indicates a condition that should stop
// startup rather than be retried by a discovery loop.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case CodeConfiguration, CodeValidation:
		return true
	default:
		return false
	}
}

// Common error creation functions

// ErrToolUnavailable creates an error for a missing external utility.
func ErrToolUnavailable(tool string) *ProbeError {
	return NewProbeError(CodeToolUnavailable, fmt.Sprintf("required utility %q not found in PATH", tool))
}

// ErrToolFailed creates an error for an external utility that exited
// non-zero or produced unusable output.
func ErrToolFailed(tool string, err error) *ProbeError {
	return WrapProbeError(CodeToolFailed, fmt.Sprintf("utility %q failed", tool), err)
}

// ErrHostUnreachable creates an error for a host that did not answer a
// liveness probe.
func ErrHostUnreachable(ip string) *ProbeError {
	return NewProbeError(CodeHostUnreachable, fmt.Sprintf("host %s is unreachable", ip))
}

// ErrStoreConnection creates an error for device store connection failures.
func ErrStoreConnection(err error) *StoreError {
	return WrapStoreError(CodeStoreConnection, "failed to connect to device store", err)
}

// ErrStoreQuery creates an error for device store query failures.
func ErrStoreQuery(operation string, err error) *StoreError {
	e := WrapStoreError(CodeStoreQuery, "device store operation failed", err)
	e.Operation = operation
	return e
}

// ErrConfigInvalid creates an error for invalid configuration values.
func ErrConfigInvalid(field string, value interface{}) *ConfigError {
	return NewConfigFieldError(CodeValidation, "invalid configuration value", field, value)
}

// ErrConfigMissing creates an error for missing required configuration.
func ErrConfigMissing(field string) *ConfigError {
	return NewConfigFieldError(CodeConfiguration, "required configuration field missing", field, nil)
}
