package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dkovalev/schemalens/internal/errs"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{
			name: "nil passes through",
			err:  nil,
			pred: func(err error) bool { return err == nil },
		},
		{
			name: "deadline exceeded is timeout",
			err:  context.DeadlineExceeded,
			pred: errs.IsTimeout,
		},
		{
			name: "no rows is not found",
			err:  pgx.ErrNoRows,
			pred: errs.IsNotFound,
		},
		{
			name: "connection exception class 08",
			err:  &pgconn.PgError{Code: "08006", Message: "connection failure"},
			pred: errs.IsConnectionFailed,
		},
		{
			name: "invalid password class 28",
			err:  &pgconn.PgError{Code: "28P01", Message: "password authentication failed"},
			pred: errs.IsConnectionFailed,
		},
		{
			name: "undefined table is query failure",
			err:  &pgconn.PgError{Code: "42P01", Message: "relation does not exist"},
			pred: errs.IsQueryFailed,
		},
		{
			name: "insufficient privilege is query failure",
			err:  &pgconn.PgError{Code: "42501", Message: "permission denied"},
			pred: errs.IsQueryFailed,
		},
		{
			name: "network error is connection failure",
			err:  errors.New("dial tcp 10.0.0.1:5432: connect: connection refused"),
			pred: errs.IsConnectionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.pred(mapError(tt.err, "test")))
		})
	}
}

func TestMapErrorPreservesCause(t *testing.T) {
	cause := &pgconn.PgError{Code: "42601", Message: "syntax error"}
	err := mapError(cause, "query failed")

	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "42601", pgErr.Code)
}
