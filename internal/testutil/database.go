// Package testutil provides testing utilities shared by repository and use case tests.
//
// Repository tests run against go-sqlmock so they need no live database:
//
//	db, mock := testutil.NewMockDB(t)
//	mock.ExpectExec("INSERT INTO outbox_items").WillReturnResult(sqlmock.NewResult(0, 1))
//
// Expectations are verified automatically when the test finishes.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewMockDB creates a sqlmock-backed *sql.DB. Queries are matched as regular
// expressions. ExpectationsWereMet is asserted on cleanup.
func NewMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "failed to create sqlmock")

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return db, mock
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// PassthroughTxManager runs the callback directly. It satisfies database.TxManager
// for use case tests that do not care about transaction boundaries.
type PassthroughTxManager struct{}

// WithTx calls fn with ctx.
func (PassthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
