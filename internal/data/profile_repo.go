package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/target/storefront-gate/internal/data/pgxutil"
	domainauth "github.com/target/storefront-gate/internal/domain/auth"
	apperrors "github.com/target/storefront-gate/internal/errors"
	"github.com/target/storefront-gate/internal/ports"
)

var _ ports.ProfileStore = (*ProfileRepo)(nil)

// ProfileRepo stores role-bearing user profiles in Postgres.
type ProfileRepo struct {
	DB *sql.DB
}

// NewProfileRepo creates a new ProfileRepo.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db}
}

const profileColumns = `user_id, email, display_name, role, email_verified, created_at, updated_at`

type profileRow struct {
	UserID        string    `db:"user_id"`
	Email         string    `db:"email"`
	DisplayName   string    `db:"display_name"`
	Role          string    `db:"role"`
	EmailVerified bool      `db:"email_verified"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r profileRow) toDomain() *domainauth.Profile {
	return &domainauth.Profile{
		UserID:        r.UserID,
		Email:         r.Email,
		DisplayName:   r.DisplayName,
		Role:          domainauth.Role(r.Role),
		EmailVerified: r.EmailVerified,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (r *ProfileRepo) queryOne(ctx context.Context, query string, args ...any) (*domainauth.Profile, error) {
	var row profileRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[profileRow])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return row.toDomain(), nil
}

// Get returns the profile for userID or ErrProfileNotFound.
func (r *ProfileRepo) Get(ctx context.Context, userID string) (*domainauth.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserIDRequired
	}
	p, err := r.queryOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Upsert inserts or refreshes a profile from a sign-in. Identity fields are
// overwritten; an existing role is kept unless the stored one is empty, so
// roles granted with SetRole survive later logins.
func (r *ProfileRepo) Upsert(ctx context.Context, p domainauth.Profile) (*domainauth.Profile, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return nil, ErrUserIDRequired
	}
	const q = `
		INSERT INTO profiles (user_id, email, display_name, role, email_verified)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			email_verified = EXCLUDED.email_verified,
			role = CASE WHEN profiles.role = '' THEN EXCLUDED.role ELSE profiles.role END
		RETURNING ` + profileColumns
	out, err := r.queryOne(ctx, q, p.UserID, p.Email, p.DisplayName, string(p.Role), p.EmailVerified)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return out, nil
}

// SetRole changes the role of an existing profile.
func (r *ProfileRepo) SetRole(ctx context.Context, userID string, role domainauth.Role) (*domainauth.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserIDRequired
	}
	const q = `UPDATE profiles SET role = $2 WHERE user_id = $1 RETURNING ` + profileColumns
	out, err := r.queryOne(ctx, q, userID, string(role))
	if err != nil {
		return nil, fmt.Errorf("set profile role: %w", err)
	}
	return out, nil
}

// ListByRole returns profiles holding role, newest first, at most limit rows.
func (r *ProfileRepo) ListByRole(ctx context.Context, role domainauth.Role, limit int) ([]*domainauth.Profile, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var rows []profileRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		res, err := conn.Query(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE role = $1 ORDER BY updated_at DESC LIMIT $2`,
			string(role), limit)
		if err != nil {
			return err
		}
		rows, err = pgx.CollectRows(res, pgx.RowToStructByName[profileRow])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", apperrors.MapDBError(err))
	}
	out := make([]*domainauth.Profile, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
