// Package util provides logging, naming helpers and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	ErrConnection       = errors.New("EDA connection failed")
	ErrAlreadyExists    = errors.New("resource already exists")
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidTopology  = errors.New("invalid topology")
	ErrUnsupportedKind  = errors.New("unsupported node kind")
	ErrUnreachable      = errors.New("node unreachable")
)

// ConnectionError reports that the EDA cluster could not be reached or
// refused the supplied credentials.
type ConnectionError struct {
	Op     string
	Detail string
}

func (e *ConnectionError) Error() string {
	if e.Detail == "" {
		return "EDA " + e.Op + " failed"
	}
	return fmt.Sprintf("EDA %s failed: %s", e.Op, e.Detail)
}

func (e *ConnectionError) Unwrap() error {
	return ErrConnection
}

// NewConnectionError creates a connection error
func NewConnectionError(op, detail string) *ConnectionError {
	return &ConnectionError{Op: op, Detail: detail}
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}

// NodeError wraps a failure that is scoped to a single topology node.
type NodeError struct {
	Node string
	Op   string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.Node, e.Op, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// NewNodeError creates a node-scoped error
func NewNodeError(node, op string, err error) *NodeError {
	return &NodeError{Node: node, Op: op, Err: err}
}
