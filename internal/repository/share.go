package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fileshare/internal/model"
)

var (
	ErrShareNotFound      = errors.New("share not found")
	ErrDuplicateShareLink = errors.New("share link already exists")
)

type ShareRepository interface {
	Create(ctx context.Context, share *model.FileShare) error
	ByID(ctx context.Context, id string) (*model.FileShare, error)
	ByShareLink(ctx context.Context, link string) (*model.FileShare, error)
	ByUser(ctx context.Context, userID string) ([]*model.OwnedShare, error)
	All(ctx context.Context) ([]*model.FileShare, error)
	CreatedSince(ctx context.Context, since time.Time) ([]*model.FileShare, error)
	Flagged(ctx context.Context, minSize int64, search string) ([]*model.FlaggedFile, error)
	ExpiringUnnotified(ctx context.Context, from, to time.Time) ([]*model.ExpiringShare, error)
	Delete(ctx context.Context, id string) error
}

type shareRepository struct {
	db *sqlx.DB
}

func NewShareRepository(db *sqlx.DB) ShareRepository {
	return &shareRepository{db: db}
}

const shareColumns = `id, user_id, file_name, file_size, file_path, file_url, share_link, mime_type, message, created_at, expires_at, expiry_notified_at`

func (r *shareRepository) Create(ctx context.Context, share *model.FileShare) error {
	query := `INSERT INTO file_shares (id, user_id, file_name, file_size, file_path, file_url, share_link, mime_type, message, created_at, expires_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		share.ID,
		share.UserID,
		share.FileName,
		share.FileSize,
		share.FilePath,
		share.FileURL,
		share.ShareLink,
		share.MimeType,
		share.Message,
		share.CreatedAt,
		share.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateShareLink
	}
	return err
}

func (r *shareRepository) ByID(ctx context.Context, id string) (*model.FileShare, error) {
	return r.one(ctx, `SELECT `+shareColumns+` FROM file_shares WHERE id = $1`, id)
}

func (r *shareRepository) ByShareLink(ctx context.Context, link string) (*model.FileShare, error) {
	return r.one(ctx, `SELECT `+shareColumns+` FROM file_shares WHERE share_link = $1`, link)
}

func (r *shareRepository) one(ctx context.Context, query string, args ...any) (*model.FileShare, error) {
	share := &model.FileShare{}
	err := r.db.GetContext(ctx, share, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShareNotFound
	}
	if err != nil {
		return nil, err
	}
	return share, nil
}

func (r *shareRepository) ByUser(ctx context.Context, userID string) ([]*model.OwnedShare, error) {
	var shares []*model.OwnedShare
	err := r.db.SelectContext(ctx, &shares, `
		SELECT f.id, f.user_id, f.file_name, f.file_size, f.file_path, f.file_url, f.share_link,
		       f.mime_type, f.message, f.created_at, f.expires_at, f.expiry_notified_at,
		       COUNT(d.id) AS download_count
		FROM file_shares f
		LEFT JOIN file_downloads d ON d.file_share_id = f.id
		WHERE f.user_id = $1
		GROUP BY f.id, f.user_id, f.file_name, f.file_size, f.file_path, f.file_url, f.share_link,
		         f.mime_type, f.message, f.created_at, f.expires_at, f.expiry_notified_at
		ORDER BY f.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return shares, nil
}

func (r *shareRepository) All(ctx context.Context) ([]*model.FileShare, error) {
	var shares []*model.FileShare
	err := r.db.SelectContext(ctx, &shares, `SELECT `+shareColumns+` FROM file_shares ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return shares, nil
}

func (r *shareRepository) CreatedSince(ctx context.Context, since time.Time) ([]*model.FileShare, error) {
	var shares []*model.FileShare
	err := r.db.SelectContext(ctx, &shares,
		`SELECT `+shareColumns+` FROM file_shares WHERE created_at >= $1 ORDER BY created_at`, since)
	if err != nil {
		return nil, err
	}
	return shares, nil
}

func (r *shareRepository) Flagged(ctx context.Context, minSize int64, search string) ([]*model.FlaggedFile, error) {
	var files []*model.FlaggedFile
	err := r.db.SelectContext(ctx, &files, `
		SELECT f.id, f.user_id, f.file_name, f.file_size, f.file_path, f.file_url, f.share_link,
		       f.mime_type, f.message, f.created_at, f.expires_at, f.expiry_notified_at,
		       p.username AS owner_username, p.full_name AS owner_full_name
		FROM file_shares f
		LEFT JOIN profiles p ON p.id = f.user_id
		WHERE f.file_size > $1
		  AND (LOWER(f.file_name) LIKE $2
		       OR LOWER(COALESCE(p.username, '')) LIKE $2
		       OR LOWER(COALESCE(p.full_name, '')) LIKE $2)
		ORDER BY f.file_size DESC
	`, minSize, likePattern(search))
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (r *shareRepository) ExpiringUnnotified(ctx context.Context, from, to time.Time) ([]*model.ExpiringShare, error) {
	var shares []*model.ExpiringShare
	err := r.db.SelectContext(ctx, &shares, `
		SELECT id, user_id, file_name, expires_at
		FROM file_shares
		WHERE expires_at >= $1 AND expires_at <= $2 AND expiry_notified_at IS NULL
		ORDER BY expires_at
	`, from, to)
	if err != nil {
		return nil, err
	}
	return shares, nil
}

func (r *shareRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM file_shares WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(result, ErrShareNotFound)
}
