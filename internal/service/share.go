package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/repository"
	"github.com/templui/fileshare/internal/storage"
	"github.com/templui/fileshare/internal/validation"
)

var (
	ErrShareNotFound    = errors.New("file not available")
	ErrShareExpired     = errors.New("share link has expired")
	ErrNotShareOwner    = errors.New("share belongs to another user")
	ErrShareIDExhausted = errors.New("could not allocate a unique share link")
	ErrStorageFailed    = errors.New("file storage failed")
)

const (
	shareIDLength     = 10
	shareIDAlphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"
	maxIssueAttempts  = 3
	cleanupTimeout    = 30 * time.Second
	defaultMimeType   = "application/octet-stream"
	shareRoutePrefix  = "/share/"
	storageKeyPrefix  = "shares/"
	shareIDRejectFrom = 252 // largest multiple of 36 below 256
)

var shareIDPattern = regexp.MustCompile(`^[0-9a-z]{10}$`)

type ShareConfig struct {
	AppURL        string
	MaxUploadSize int64
	TTL           time.Duration
	EnforceExpiry bool
}

type ShareService struct {
	shares     repository.ShareRepository
	downloads  repository.DownloadRepository
	profiles   repository.ProfileRepository
	storage    storage.Storage
	activities *ActivityService
	emails     *EmailService
	cfg        ShareConfig
	now        func() time.Time
	newID      func() (string, error)
}

func NewShareService(
	shares repository.ShareRepository,
	downloads repository.DownloadRepository,
	profiles repository.ProfileRepository,
	store storage.Storage,
	activities *ActivityService,
	emails *EmailService,
	cfg ShareConfig,
) *ShareService {
	cfg.AppURL = strings.TrimSuffix(cfg.AppURL, "/")
	return &ShareService{
		shares:     shares,
		downloads:  downloads,
		profiles:   profiles,
		storage:    store,
		activities: activities,
		emails:     emails,
		cfg:        cfg,
		now:        time.Now,
		newID:      NewShareID,
	}
}

// Upload is a file to be shared.
type Upload struct {
	OwnerID        string
	FileName       string
	Size           int64
	Body           io.ReadSeeker
	RecipientEmail string
	Message        string
	IP             string
}

// Viewer identifies who is looking at a share. Both fields may be empty.
type Viewer struct {
	UserID string
	IP     string
}

// NewShareID returns 10 random characters from [0-9a-z].
func NewShareID() (string, error) {
	out := make([]byte, 0, shareIDLength)
	buf := make([]byte, 16)
	for len(out) < shareIDLength {
		_, err := rand.Read(buf)
		if err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= shareIDRejectFrom {
				continue
			}
			out = append(out, shareIDAlphabet[int(b)%len(shareIDAlphabet)])
			if len(out) == shareIDLength {
				break
			}
		}
	}
	return string(out), nil
}

func ValidShareID(id string) bool {
	return shareIDPattern.MatchString(id)
}

// ShareLink is the canonical public URL for a share id.
func (s *ShareService) ShareLink(id string) string {
	return s.cfg.AppURL + shareRoutePrefix + id
}

// Issue stores the upload and creates its share record.
// The object is uploaded first; if the record cannot be written the object is removed again.
func (s *ShareService) Issue(ctx context.Context, in Upload) (*model.FileShare, error) {
	in.FileName = validation.CleanFileName(in.FileName)
	if err := validation.ValidateUpload(in.FileName, in.Size, s.cfg.MaxUploadSize); err != nil {
		return nil, err
	}
	if err := validation.ValidateMessage(in.Message); err != nil {
		return nil, err
	}
	in.RecipientEmail = normalizeEmail(in.RecipientEmail)
	if in.RecipientEmail != "" {
		if err := validation.ValidateEmail(in.RecipientEmail); err != nil {
			return nil, ErrInvalidEmail
		}
	}

	mimeType, err := detectMimeType(in.Body)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(in.FileName))

	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		share, err := s.issueOnce(ctx, in, mimeType, ext)
		if err == nil {
			s.afterIssue(ctx, in, share)
			return share, nil
		}
		if !errors.Is(err, storage.ErrObjectExists) && !errors.Is(err, repository.ErrDuplicateShareLink) {
			return nil, err
		}
		slog.Warn("share id collision, retrying", "attempt", attempt, "error", err)
	}

	return nil, ErrShareIDExhausted
}

func (s *ShareService) issueOnce(ctx context.Context, in Upload, mimeType, ext string) (*model.FileShare, error) {
	_, err := in.Body.Seek(0, io.SeekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to rewind upload: %w", err)
	}

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate share id: %w", err)
	}

	now := s.now().UTC()
	key := fmt.Sprintf("%s%d-%s%s", storageKeyPrefix, now.UnixMilli(), id, ext)

	err = s.storage.Save(ctx, key, in.Body, storage.SaveOptions{ContentType: mimeType, Size: in.Size})
	if err != nil {
		if errors.Is(err, storage.ErrObjectExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}

	fileURL, err := s.storage.URL(ctx, key, s.cfg.TTL)
	if err != nil {
		s.discardObject(ctx, key)
		return nil, fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}

	share := &model.FileShare{
		ID:        uuid.NewString(),
		UserID:    in.OwnerID,
		FileName:  in.FileName,
		FileSize:  in.Size,
		FilePath:  &key,
		FileURL:   &fileURL,
		ShareLink: s.ShareLink(id),
		MimeType:  mimeType,
		Message:   strings.TrimSpace(in.Message),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}

	err = s.shares.Create(ctx, share)
	if err != nil {
		s.discardObject(ctx, key)
		if errors.Is(err, repository.ErrDuplicateShareLink) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create share record: %w", err)
	}

	return share, nil
}

func (s *ShareService) afterIssue(ctx context.Context, in Upload, share *model.FileShare) {
	s.activities.Record(ctx, Entry{
		Type:   model.ActivityUpload,
		UserID: in.OwnerID,
		FileID: share.ID,
		IP:     in.IP,
		Metadata: model.Metadata{
			"file_name": share.FileName,
			"file_size": share.FileSize,
		},
	})

	slog.Info("share issued", "share_id", share.ID, "user_id", in.OwnerID, "size", share.FileSize)

	if in.RecipientEmail == "" {
		return
	}
	var senderName string
	profile, err := s.profiles.ByID(ctx, in.OwnerID)
	if err == nil {
		senderName = profile.DisplayName()
	}
	err = s.emails.SendShareLink(ctx, in.RecipientEmail, senderName, share)
	if err != nil {
		slog.Warn("failed to email share link", "error", err, "share_id", share.ID)
	}
}

// discardObject removes an uploaded object whose record could not be written.
func (s *ShareService) discardObject(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	err := s.storage.Delete(ctx, key)
	if err != nil {
		slog.Error("failed to delete file from storage during cleanup", "error", err, "path", key)
	}
}

func detectMimeType(body io.ReadSeeker) (string, error) {
	mtype, err := mimetype.DetectReader(body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	_, err = body.Seek(0, io.SeekStart)
	if err != nil {
		return "", fmt.Errorf("failed to rewind upload: %w", err)
	}
	if mtype == nil || mtype.String() == "" {
		return defaultMimeType, nil
	}
	return mtype.String(), nil
}

// lookup finds a share by its public id and applies the expiry policy.
func (s *ShareService) lookup(ctx context.Context, shareID string) (*model.FileShare, error) {
	if !ValidShareID(shareID) {
		return nil, ErrShareNotFound
	}

	share, err := s.shares.ByShareLink(ctx, s.ShareLink(shareID))
	if err != nil {
		if errors.Is(err, repository.ErrShareNotFound) {
			return nil, ErrShareNotFound
		}
		return nil, fmt.Errorf("failed to load share: %w", err)
	}

	if s.cfg.EnforceExpiry && share.Expired(s.now()) {
		return share, ErrShareExpired
	}
	return share, nil
}

// Resolve returns the share behind a public id and records the view.
// With expiry enforcement off, expired shares are still returned.
func (s *ShareService) Resolve(ctx context.Context, shareID string, viewer Viewer) (*model.FileShare, error) {
	share, err := s.lookup(ctx, shareID)
	if err != nil {
		return nil, err
	}

	s.activities.Record(ctx, Entry{
		Type:   model.ActivityView,
		UserID: viewer.UserID,
		FileID: share.ID,
		IP:     viewer.IP,
	})

	return share, nil
}

// Download records the download and opens the stored object. The caller closes the reader.
func (s *ShareService) Download(ctx context.Context, shareID string, viewer Viewer) (*model.FileShare, io.ReadCloser, error) {
	share, err := s.lookup(ctx, shareID)
	if err != nil {
		return nil, nil, err
	}

	body, err := s.storage.Open(ctx, share.StorageKey())
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			slog.Error("share object missing from storage", "share_id", share.ID, "path", share.StorageKey())
			return nil, nil, ErrShareNotFound
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}

	download := &model.FileDownload{
		ID:           uuid.NewString(),
		FileShareID:  share.ID,
		UserID:       nullable(viewer.UserID),
		IPAddress:    nullable(viewer.IP),
		DownloadedAt: s.now().UTC(),
	}
	err = s.downloads.Create(context.WithoutCancel(ctx), download)
	if err != nil {
		slog.Warn("failed to record download", "error", err, "share_id", share.ID)
	}

	s.activities.Record(ctx, Entry{
		Type:   model.ActivityDownload,
		UserID: viewer.UserID,
		FileID: share.ID,
		IP:     viewer.IP,
	})

	return share, body, nil
}

// PublicID extracts the share id from a stored share link.
func PublicID(share *model.FileShare) string {
	i := strings.LastIndex(share.ShareLink, shareRoutePrefix)
	if i < 0 {
		return ""
	}
	return share.ShareLink[i+len(shareRoutePrefix):]
}

// ListForOwner returns the owner's shares newest first, each with its download count.
func (s *ShareService) ListForOwner(ctx context.Context, ownerID string) ([]*model.OwnedShare, error) {
	shares, err := s.shares.ByUser(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	return shares, nil
}

// DeleteOwned deletes a share on behalf of its owner.
func (s *ShareService) DeleteOwned(ctx context.Context, ownerID, id, ip string) error {
	share, err := s.shares.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrShareNotFound) {
			return ErrShareNotFound
		}
		return err
	}
	if share.UserID != ownerID {
		return ErrNotShareOwner
	}
	return s.remove(ctx, share, ownerID, ip)
}

// Delete removes any share. Used by admins.
func (s *ShareService) Delete(ctx context.Context, actorID, id, ip string) error {
	share, err := s.shares.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrShareNotFound) {
			return ErrShareNotFound
		}
		return err
	}
	return s.remove(ctx, share, actorID, ip)
}

// remove deletes the record first, then the stored object on a best-effort basis.
func (s *ShareService) remove(ctx context.Context, share *model.FileShare, actorID, ip string) error {
	err := s.shares.Delete(ctx, share.ID)
	if err != nil {
		if errors.Is(err, repository.ErrShareNotFound) {
			return ErrShareNotFound
		}
		return fmt.Errorf("failed to delete share record: %w", err)
	}

	if key := share.StorageKey(); key != "" {
		s.discardObject(ctx, key)
	}

	s.activities.Record(ctx, Entry{
		Type:   model.ActivityDelete,
		UserID: actorID,
		FileID: share.ID,
		IP:     ip,
		Metadata: model.Metadata{
			"file_name": share.FileName,
			"owner_id":  share.UserID,
		},
	})

	slog.Info("share deleted", "share_id", share.ID, "actor_id", actorID)
	return nil
}
