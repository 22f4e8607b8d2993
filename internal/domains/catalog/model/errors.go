package model

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"librarium/internal/shared/response"
)

// Error taxonomy. Invariant problems are reported as structured violations,
// never as opaque strings, so callers can render precise remediation guidance.

// NotFoundError signals that a referenced id does not exist.
type NotFoundError struct {
	Kind EntityKind
	ID   uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// NewNotFound builds a NotFoundError.
func NewNotFound(kind EntityKind, id uuid.UUID) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// BlockedByInvariantError means the operation would violate a
// minimum-cardinality or sole-author rule. It carries the full violation list.
type BlockedByInvariantError struct {
	Op         string
	Violations []Violation
}

func (e *BlockedByInvariantError) Error() string {
	return fmt.Sprintf("%s blocked: %d invariant violation(s)", e.Op, len(e.Violations))
}

// ValidationError signals malformed input to a mutation, e.g. a missing
// required foreign key. Err holds the underlying field errors when present.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError wraps field-level validation failures.
func NewValidationError(message string, err error) error {
	return &ValidationError{Message: message, Err: err}
}

// StorageError means the underlying store failed. The enclosing transaction
// has already been rolled back by the time the caller sees this.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps a store-level failure.
func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// HandleCatalogError maps engine errors to the HTTP envelope. Returns true
// if err was non-nil and a response was written.
func HandleCatalogError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		response.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", notFound.Error())
		return true
	}

	var blocked *BlockedByInvariantError
	if errors.As(err, &blocked) {
		response.ErrorWithDetails(c, http.StatusConflict, "BLOCKED_BY_INVARIANT",
			blocked.Error(), blocked.Violations)
		return true
	}

	var invalid *ValidationError
	if errors.As(err, &invalid) {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR",
			invalid.Message, errDetails(invalid.Err))
		return true
	}

	var storage *StorageError
	if errors.As(err, &storage) {
		log.Error().Err(storage.Err).Str("op", storage.Op).Msg("storage failure")
		response.ErrorResponse(c, http.StatusInternalServerError, "STORAGE_ERROR",
			"the catalog store failed; the operation was rolled back")
		return true
	}

	log.Error().Err(err).Msg("unhandled catalog error")
	response.InternalServerError(c, "internal server error")
	return true
}

func errDetails(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}
