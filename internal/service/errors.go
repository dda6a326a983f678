package service

import (
	"errors"

	"github.com/richharbor/access-service/internal/repository"
	"github.com/richharbor/access-service/internal/validation"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

// storeError converts repository failures into the error taxonomy. Domain
// errors pass through untouched.
func storeError(err error, resource string, details map[string]any) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, details)
	}
	var conflict *repository.ConflictError
	if errors.As(err, &conflict) {
		return apperrors.NewConflict(resource+" conflicts with an existing record", map[string]any{"constraint": conflict.Constraint})
	}
	return apperrors.NewInternalError(err)
}

// schemaError turns a payload validation failure into INVALID_REQUEST with
// per-field details.
func schemaError(err error, message string) error {
	var vErr *validation.Error
	if errors.As(err, &vErr) {
		return apperrors.NewInvalidRequest(message, map[string]any{
			"schema": vErr.Key,
			"fields": vErr.Issues,
		})
	}
	return apperrors.NewInternalError(err)
}

func notFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
