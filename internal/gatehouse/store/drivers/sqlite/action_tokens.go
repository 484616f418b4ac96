package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/okapi-systems/gatehouse/internal/gatehouse/domain"
)

type actionTokensRepo struct {
	db dbtx
}

const actionTokenColumns = `id, user_id, token_hash, purpose, expires_at, consumed_at, created_at`

func scanActionToken(row interface{ Scan(...any) error }) (domain.ActionToken, error) {
	var (
		t        domain.ActionToken
		consumed sql.NullTime
	)
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.TokenHash,
		&t.Purpose,
		&t.ExpiresAt,
		&consumed,
		&t.CreatedAt,
	)
	if consumed.Valid {
		at := consumed.Time
		t.ConsumedAt = &at
	}
	return t, err
}

func (r *actionTokensRepo) CreateActionToken(ctx context.Context, t domain.ActionToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO action_tokens (id, user_id, token_hash, purpose, expires_at, consumed_at, created_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?)`,
		t.ID, t.UserID, t.TokenHash, string(t.Purpose), t.ExpiresAt, t.CreatedAt)
	return mapStoreErr(err)
}

func (r *actionTokensRepo) GetActionTokenByHash(ctx context.Context, hash string) (domain.ActionToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+actionTokenColumns+`
		FROM action_tokens
		WHERE token_hash = ?`, hash)

	t, err := scanActionToken(row)
	if err != nil {
		return domain.ActionToken{}, mapStoreErr(err)
	}
	return t, nil
}

func (r *actionTokensRepo) MarkActionTokenConsumed(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE action_tokens
		SET consumed_at = ?
		WHERE id = ? AND consumed_at IS NULL`,
		at, id)
	if err != nil {
		return mapStoreErr(err)
	}
	return requireRowsAffected(res)
}

func (r *actionTokensRepo) InvalidateActiveActionTokens(ctx context.Context, userID string, purpose domain.TokenPurpose) error {
	// Deleting rather than flagging means a superseded link fails lookup
	// outright instead of leaking why it stopped working.
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM action_tokens
		WHERE user_id = ? AND purpose = ? AND consumed_at IS NULL`,
		userID, string(purpose))
	return mapStoreErr(err)
}

func (r *actionTokensRepo) DeleteExpiredActionTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM action_tokens
		WHERE expires_at < ?`,
		time.Now().UTC())
	return mapStoreErr(err)
}
