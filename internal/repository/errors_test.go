package repository

import (
	"context"
	"fmt"
	"io"
	"testing"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestWriteFailureSeparatesRejectedFromUnconfirmed(t *testing.T) {
	rejected := writeFailure("commit order", fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001", Message: "could not serialize access"}))
	assert.ErrorIs(t, rejected, domain.ErrPersistence)
	assert.NotErrorIs(t, rejected, domain.ErrOutcomeUnknown)

	for _, cause := range []error{context.DeadlineExceeded, io.ErrUnexpectedEOF} {
		err := writeFailure("commit order", cause)
		assert.ErrorIs(t, err, domain.ErrOutcomeUnknown)
		assert.ErrorIs(t, err, domain.ErrPersistence)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "failed to commit order")
	}
}
