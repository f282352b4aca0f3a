package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestModelError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ModelError
		expected string
	}{
		{
			name: "with ID",
			err: &ModelError{
				Op:     "AddThreat",
				Entity: EntityThreat,
				ID:     "THR_001",
				Cause:  fmt.Errorf("duplicate id"),
			},
			expected: `AddThreat threat "THR_001": duplicate id`,
		},
		{
			name: "with context",
			err: &ModelError{
				Op:      "validate",
				Entity:  EntityProject,
				Context: "during import",
				Cause:   fmt.Errorf("3 problem(s)"),
			},
			expected: "validate project (during import): 3 problem(s)",
		},
		{
			name: "minimal",
			err: &ModelError{
				Op:     "load",
				Entity: EntityProject,
				Cause:  fmt.Errorf("corrupt data"),
			},
			expected: "load project: corrupt data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestModelError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := &ModelError{Op: "AddNode", Entity: EntityNode, Cause: cause}

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestModelError_Is(t *testing.T) {
	err := &ModelError{
		Op:     "GetNode",
		Entity: EntityNode,
		ID:     "AT_ROOT",
		Cause:  ErrNotFound,
	}

	if !errors.Is(err, ErrNotFound) {
		t.Error("Expected errors.Is to match ErrNotFound")
	}
	if errors.Is(err, ErrDuplicateID) {
		t.Error("Expected errors.Is to not match ErrDuplicateID")
	}
}

func TestErrorBuilder(t *testing.T) {
	err := NewError("DeleteNode").
		Node("AT_042").
		Cause(fmt.Errorf("still linked")).
		Build()

	if err.Op != "DeleteNode" {
		t.Errorf("Op = %q, want %q", err.Op, "DeleteNode")
	}
	if err.Entity != EntityNode {
		t.Errorf("Entity = %q, want %q", err.Entity, EntityNode)
	}
	if err.ID != "AT_042" {
		t.Errorf("ID = %q, want %q", err.ID, "AT_042")
	}
}

func TestErrorBuilder_Scenario(t *testing.T) {
	err := NewError("UpdateScenario").Scenario("TS_007").Build()

	if err.Entity != EntityScenario {
		t.Errorf("Entity = %q, want %q", err.Entity, EntityScenario)
	}
	if err.ID != "TS_007" {
		t.Errorf("ID = %q, want %q", err.ID, "TS_007")
	}
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("GetThreat", EntityThreat, "THR_004")

	if !errors.Is(err, ErrNotFound) {
		t.Error("Expected error to wrap ErrNotFound")
	}

	expected := `GetThreat threat "THR_004": entity not found`
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"not found", NotFoundError("get", EntityAsset, "A_1"), true},
		{"duplicate", DuplicateIDError("add", EntityAsset, "A_1"), false},
		{"other error", fmt.Errorf("other"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.expected {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsDuplicate(t *testing.T) {
	if !IsDuplicate(DuplicateIDError("add", EntityNode, "AT_1")) {
		t.Error("Expected IsDuplicate to match a duplicate id error")
	}
	if IsDuplicate(fmt.Errorf("other")) {
		t.Error("Expected IsDuplicate to not match an unrelated error")
	}
}
