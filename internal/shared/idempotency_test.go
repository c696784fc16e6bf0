package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type stubExecer struct {
	err   error
	calls int
	args  []any
}

func (s *stubExecer) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	s.calls++
	s.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), s.err
}

func TestClaimIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	exec := &stubExecer{}
	require.NoError(t, ClaimIdempotencyKey(ctx, exec, "ar.payment", "", at))
	require.Zero(t, exec.calls)

	require.NoError(t, ClaimIdempotencyKey(ctx, exec, "ar.payment", "k-1", at))
	require.Equal(t, []any{"k-1", "ar.payment", at}, exec.args)

	dup := &stubExecer{err: &pgconn.PgError{Code: "23505"}}
	err := ClaimIdempotencyKey(ctx, dup, "ar.payment", "k-1", at)
	require.ErrorIs(t, err, ErrConflict)

	broken := &stubExecer{err: errors.New("conn reset")}
	err = ClaimIdempotencyKey(ctx, broken, "ar.payment", "k-2", at)
	require.ErrorIs(t, err, ErrStorage)

	require.ErrorIs(t, ClaimIdempotencyKey(ctx, exec, "", "k-3", at), ErrValidation)
}
