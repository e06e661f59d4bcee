package store

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/irontrace/internal/db"
)

// RevokeToken adds a token's JTI to the revocation list.
func RevokeToken(ctx context.Context, ex db.Execer, jti string, expiresAt time.Time) error {
	_, err := ex.Exec(ctx,
		`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?) ON CONFLICT (jti) DO NOTHING`,
		jti, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	// Opportunistically clean up expired revocations.
	_, _ = ex.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < ?`, time.Now().UTC())

	return nil
}

// IsTokenRevoked checks if a token's JTI has been revoked.
func IsTokenRevoked(ctx context.Context, ex db.Execer, jti string) (bool, error) {
	row, err := db.QueryOne(ctx, ex, `SELECT COUNT(*) AS n FROM revoked_tokens WHERE jti = ?`, jti)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return row.Int("n") > 0, nil
}
