package shared

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by pgx.Tx and *pgxpool.Pool.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// MaxIdempotencyKeyLength bounds client supplied keys.
const MaxIdempotencyKeyLength = 128

// ValidateIdempotencyKey accepts an empty key, meaning the caller opted out.
func ValidateIdempotencyKey(key string) error {
	if len(key) > MaxIdempotencyKeyLength {
		return NewValidation("idempotency_key", "must be at most 128 characters")
	}
	return nil
}

// ClaimIdempotencyKey records key for module inside the caller's transaction.
// A key claimed before yields a ConflictError; rolling the transaction back
// releases the claim.
func ClaimIdempotencyKey(ctx context.Context, exec Execer, module, key string, at time.Time) error {
	if key == "" {
		return nil
	}
	if err := ValidateIdempotencyKey(key); err != nil {
		return err
	}
	if module == "" {
		return NewValidation("module", "required")
	}
	_, err := exec.Exec(ctx, `INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3)`, key, module, at)
	if err != nil {
		if IsUniqueViolation(err, "") {
			return &ConflictError{Entity: module, Reason: "request with idempotency key " + key + " already processed"}
		}
		return WrapStorage("shared.claim_idempotency_key", err)
	}
	return nil
}
