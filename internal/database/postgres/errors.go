package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dkovalev/schemalens/internal/errs"
)

// SQLSTATE class prefixes relevant to read-only introspection.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	sqlstateClassConnection = "08" // connection exceptions
	sqlstateClassAuth       = "28" // invalid authorization
	sqlstateClassPrivilege  = "42501"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := errs.ErrKindQueryFailed
		switch {
		case strings.HasPrefix(pgErr.Code, sqlstateClassConnection),
			strings.HasPrefix(pgErr.Code, sqlstateClassAuth):
			kind = errs.ErrKindConnectionFailed
		case pgErr.Code == sqlstateClassPrivilege:
			// Insufficient privilege on a catalog view is a query failure,
			// not a connectivity problem: the user may retry other schemas.
			kind = errs.ErrKindQueryFailed
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// Fallthrough: network, TLS, and DNS failures surface as plain errors.
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}
