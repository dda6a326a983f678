package postgres

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/richharbor/access-service/internal/repository"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

// translate maps driver errors onto the store contract.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return &repository.ConflictError{Constraint: pgErr.ConstraintName}
		case pgErr.Code == "22P02":
			// malformed uuid in a lookup matches no row
			return repository.ErrNotFound
		case isTransientCode(pgErr.Code):
			return apperrors.NewStoreUnavailable(err)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return apperrors.NewStoreUnavailable(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperrors.NewStoreUnavailable(err)
	}
	return err
}

// isTransientCode covers connection exceptions, serialization failures,
// deadlocks and server shutdown or overload.
func isTransientCode(code string) bool {
	if strings.HasPrefix(code, "08") {
		return true
	}
	switch code {
	case "40001", "40P01", "57P01", "57P02", "57P03", "53300":
		return true
	}
	return false
}

func jsonObject(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
