package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/digkill/ContentPlanner/internal/database"
	"github.com/digkill/ContentPlanner/internal/models"
)

const userColumns = `id, open_id, COALESCE(name, ''), COALESCE(email, ''), COALESCE(login_method, ''), role, created_at, updated_at, last_signed_in`

type UserRepository struct {
	db *database.Handle
}

func NewUserRepository(db *database.Handle) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByOpenID(ctx context.Context, openID string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE open_id = ?`, openID)
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// Upsert creates the user on first login or refreshes the profile fields on
// later ones. Empty profile fields never overwrite stored values. promote
// grants the admin role; it is never revoked here.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User, promote bool) (*models.User, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	role := models.RoleUser
	if promote {
		role = models.RoleAdmin
	}
	const query = `
INSERT INTO users (open_id, name, email, login_method, role, last_signed_in)
VALUES (?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?, ?)
ON DUPLICATE KEY UPDATE
    name = COALESCE(VALUES(name), name),
    email = COALESCE(VALUES(email), email),
    login_method = COALESCE(VALUES(login_method), login_method),
    role = IF(?, 'admin', role),
    last_signed_in = VALUES(last_signed_in)`
	if _, err := db.ExecContext(ctx, query, user.OpenID, user.Name, user.Email, user.LoginMethod, role, user.LastSignedIn, promote); err != nil {
		return nil, fmt.Errorf("upsert user: %w", database.Classify(err))
	}
	return r.FindByOpenID(ctx, user.OpenID)
}

func (r *UserRepository) TouchLastSignedIn(ctx context.Context, userID int64, at time.Time) error {
	db, err := r.db.DB(ctx)
	if err != nil {
		return err
	}
	const query = `UPDATE users SET last_signed_in = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, at, userID); err != nil {
		return fmt.Errorf("touch last signed in: %w", database.Classify(err))
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	var u models.User
	row := db.QueryRowContext(ctx, query, arg)
	if err := row.Scan(&u.ID, &u.OpenID, &u.Name, &u.Email, &u.LoginMethod, &u.Role, &u.CreatedAt, &u.UpdatedAt, &u.LastSignedIn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", database.Classify(err))
	}
	return &u, nil
}
