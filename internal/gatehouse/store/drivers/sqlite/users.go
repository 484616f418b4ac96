package sqlite

import (
	"context"
	"time"

	"github.com/okapi-systems/gatehouse/internal/gatehouse/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, name, email, password_hash, state, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.State,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapStoreErr(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = ?`, email)

	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapStoreErr(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.State), u.CreatedAt, u.UpdatedAt)
	return mapStoreErr(err)
}

func (r *usersRepo) UpdateUserState(ctx context.Context, userID string, state domain.AccountState) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET state = ?, updated_at = ?
		WHERE id = ?`,
		string(state), time.Now().UTC(), userID)
	if err != nil {
		return mapStoreErr(err)
	}
	return requireRowsAffected(res)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?, updated_at = ?
		WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
	if err != nil {
		return mapStoreErr(err)
	}
	return requireRowsAffected(res)
}
