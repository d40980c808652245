package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fileshare/internal/model"
)

var ErrInvalidNotificationField = errors.New("invalid notification field")

type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	ByID(ctx context.Context, id string) (*model.Profile, error)
	List(ctx context.Context) ([]*model.Profile, error)
	ListWithStats(ctx context.Context, search string) ([]*model.UserStats, error)
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
	SetNotification(ctx context.Context, id, field string, enabled bool) error
	SetAllNotifications(ctx context.Context, enabled bool) (int64, error)
}

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepository{db: db}
}

const profileColumns = `id, username, full_name, avatar_url, created_at, is_admin, notification_access, notification_expiry`

func (r *profileRepository) Create(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, profile.ID, profile.Username, profile.FullName, profile.AvatarURL, profile.CreatedAt,
		profile.IsAdmin, profile.NotificationAccess, profile.NotificationExpiry)

	return err
}

func (r *profileRepository) ByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.GetContext(ctx, &profile, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func (r *profileRepository) List(ctx context.Context) ([]*model.Profile, error) {
	var profiles []*model.Profile
	err := r.db.SelectContext(ctx, &profiles, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *profileRepository) ListWithStats(ctx context.Context, search string) ([]*model.UserStats, error) {
	var users []*model.UserStats
	err := r.db.SelectContext(ctx, &users, `
		SELECT p.id, p.username, p.full_name, p.avatar_url, p.created_at, p.is_admin,
		       p.notification_access, p.notification_expiry,
		       COUNT(f.id) AS file_count,
		       COALESCE(SUM(f.file_size), 0) AS total_size
		FROM profiles p
		LEFT JOIN file_shares f ON f.user_id = p.id
		WHERE LOWER(COALESCE(p.username, '')) LIKE $1
		   OR LOWER(COALESCE(p.full_name, '')) LIKE $1
		GROUP BY p.id, p.username, p.full_name, p.avatar_url, p.created_at, p.is_admin,
		         p.notification_access, p.notification_expiry
		ORDER BY p.created_at DESC
	`, likePattern(search))
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *profileRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE profiles SET is_admin = $1 WHERE id = $2`, isAdmin, id)
	if err != nil {
		return err
	}
	return expectOneRow(result, ErrProfileNotFound)
}

// notificationColumns whitelists the columns SetNotification may write.
var notificationColumns = map[string]string{
	model.NotificationAccess: "notification_access",
	model.NotificationExpiry: "notification_expiry",
}

func (r *profileRepository) SetNotification(ctx context.Context, id, field string, enabled bool) error {
	column, ok := notificationColumns[field]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidNotificationField, field)
	}

	result, err := r.db.ExecContext(ctx, `UPDATE profiles SET `+column+` = $1 WHERE id = $2`, enabled, id)
	if err != nil {
		return err
	}
	return expectOneRow(result, ErrProfileNotFound)
}

func (r *profileRepository) SetAllNotifications(ctx context.Context, enabled bool) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET notification_access = $1, notification_expiry = $2`, enabled, enabled)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func expectOneRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
