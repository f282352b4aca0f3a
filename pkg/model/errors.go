package model

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNotFound         = errors.New("entity not found")
	ErrDuplicateID      = errors.New("duplicate id")
	ErrEmptyID          = errors.New("empty id")
	ErrInvalidPotential = errors.New("invalid attack potential")
	ErrInvalidShape     = errors.New("invalid node shape")
	ErrInvalidLevel     = errors.New("invalid level")
	ErrNilProject       = errors.New("nil project")
)

// Entity kind names used in structured errors.
const (
	EntityProject       = "project"
	EntityAsset         = "asset"
	EntityDamage        = "damage scenario"
	EntityThreat        = "threat"
	EntityScenario      = "threat scenario"
	EntityNode          = "attack-tree node"
	EntityConfiguration = "configuration"
	EntityControl       = "control"
	EntityGoal          = "goal"
)

// ModelError provides structured error information for project operations.
type ModelError struct {
	Op      string // Operation that failed (e.g., "AddThreat", "DeleteNode")
	Entity  string // Entity kind (e.g., "threat", "attack-tree node")
	ID      string // Entity ID (if applicable)
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %q: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *ModelError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *ModelError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building ModelErrors.
type ErrorBuilder struct {
	err ModelError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: ModelError{Op: op}}
}

// Entity sets the entity kind and ID.
func (b *ErrorBuilder) Entity(kind, id string) *ErrorBuilder {
	b.err.Entity = kind
	b.err.ID = id
	return b
}

// Node sets the entity to an attack-tree node with the given ID.
func (b *ErrorBuilder) Node(id string) *ErrorBuilder {
	return b.Entity(EntityNode, id)
}

// Threat sets the entity to a threat with the given ID.
func (b *ErrorBuilder) Threat(id string) *ErrorBuilder {
	return b.Entity(EntityThreat, id)
}

// Scenario sets the entity to a threat scenario with the given ID.
func (b *ErrorBuilder) Scenario(id string) *ErrorBuilder {
	return b.Entity(EntityScenario, id)
}

// Project sets the entity to a project with the given ID.
func (b *ErrorBuilder) Project(id string) *ErrorBuilder {
	return b.Entity(EntityProject, id)
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed ModelError.
func (b *ErrorBuilder) Build() *ModelError {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// Convenience functions for common error patterns

// NotFoundError creates a not found error for the given entity kind and ID.
func NotFoundError(op, kind, id string) error {
	return NewError(op).Entity(kind, id).Cause(ErrNotFound).Err()
}

// DuplicateIDError creates a duplicate id error for the given entity kind and ID.
func DuplicateIDError(op, kind, id string) error {
	return NewError(op).Entity(kind, id).Cause(ErrDuplicateID).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate returns true if the error is a duplicate id error.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateID)
}
