package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/repository"
	"golang.org/x/sync/errgroup"
)

type NotificationConfig struct {
	DownloadScanLimit int
	ExpiryWindow      time.Duration
}

// NotificationResult counts the activity rows written by one run.
type NotificationResult struct {
	AccessNotifications int `json:"access"`
	ExpiryNotifications int `json:"expiry"`
}

// NotificationService tells share owners about downloads and upcoming expiries.
// An owner's activity rows and notified markers commit together, so repeated
// runs never notify twice.
type NotificationService struct {
	downloads  repository.DownloadRepository
	shares     repository.ShareRepository
	profiles   repository.ProfileRepository
	users      repository.UserRepository
	activities repository.ActivityRepository
	emails     *EmailService
	cfg        NotificationConfig
	now        func() time.Time
}

func NewNotificationService(
	downloads repository.DownloadRepository,
	shares repository.ShareRepository,
	profiles repository.ProfileRepository,
	users repository.UserRepository,
	activities repository.ActivityRepository,
	emails *EmailService,
	cfg NotificationConfig,
) *NotificationService {
	if cfg.DownloadScanLimit <= 0 {
		cfg.DownloadScanLimit = 50
	}
	if cfg.ExpiryWindow <= 0 {
		cfg.ExpiryWindow = 24 * time.Hour
	}
	return &NotificationService{
		downloads:  downloads,
		shares:     shares,
		profiles:   profiles,
		users:      users,
		activities: activities,
		emails:     emails,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run executes the access and expiry passes concurrently.
func (s *NotificationService) Run(ctx context.Context) (*NotificationResult, error) {
	var access, expiry int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.accessPass(gctx)
		access = n
		if err != nil {
			return fmt.Errorf("access notifications: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		n, err := s.expiryPass(gctx)
		expiry = n
		if err != nil {
			return fmt.Errorf("expiry notifications: %w", err)
		}
		return nil
	})

	err := g.Wait()
	result := &NotificationResult{AccessNotifications: access, ExpiryNotifications: expiry}
	if err != nil {
		return result, err
	}

	slog.Info("notifications processed", "access", access, "expiry", expiry)
	return result, nil
}

func (s *NotificationService) accessPass(ctx context.Context) (int, error) {
	now := s.now().UTC()

	downloads, err := s.downloads.RecentUnnotified(ctx, s.cfg.DownloadScanLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to load downloads: %w", err)
	}

	var (
		owners  []string
		byOwner = make(map[string][]*model.OwnedDownload)
		self    []string
	)
	for _, d := range downloads {
		if d.SelfDownload() {
			self = append(self, d.ID)
			continue
		}
		if _, ok := byOwner[d.OwnerID]; !ok {
			owners = append(owners, d.OwnerID)
		}
		byOwner[d.OwnerID] = append(byOwner[d.OwnerID], d)
	}

	err = s.downloads.MarkAccessNotified(ctx, self, now)
	if err != nil {
		return 0, fmt.Errorf("failed to mark self downloads: %w", err)
	}

	written := 0
	for _, ownerID := range owners {
		items := byOwner[ownerID]

		profile, err := s.profiles.ByID(ctx, ownerID)
		if err != nil {
			slog.Error("failed to load profile for access notifications", "error", err, "user_id", ownerID)
			continue
		}

		var (
			activities []*model.UserActivity
			digest     []AccessItem
		)
		if profile.NotificationAccess {
			for _, d := range items {
				ip := ""
				if d.IPAddress != nil {
					ip = *d.IPAddress
				}
				activities = append(activities, &model.UserActivity{
					ID:           uuid.NewString(),
					UserID:       &profile.ID,
					ActivityType: model.ActivityAccessNotification,
					FileID:       &d.FileShareID,
					CreatedAt:    now,
					Metadata: model.Metadata{
						"download_id":   d.ID,
						"downloaded_at": d.DownloadedAt.UTC().Format(time.RFC3339),
						"file_name":     d.FileName,
						"ip_address":    ip,
					},
				})
				digest = append(digest, AccessItem{FileName: d.FileName, DownloadedAt: d.DownloadedAt, IPAddress: ip})
			}
		}

		ids := make([]string, 0, len(items))
		for _, d := range items {
			ids = append(ids, d.ID)
		}
		err = s.activities.CreateMany(ctx, activities, repository.AccessNotified(ids, now))
		if err != nil {
			return written, fmt.Errorf("failed to record access notifications: %w", err)
		}
		written += len(activities)

		if len(digest) > 0 {
			s.sendDigest(ctx, ownerID, profile, func(to, name string) error {
				return s.emails.SendAccessDigest(ctx, to, name, digest)
			})
		}
	}

	return written, nil
}

func (s *NotificationService) expiryPass(ctx context.Context) (int, error) {
	now := s.now().UTC()

	shares, err := s.shares.ExpiringUnnotified(ctx, now, now.Add(s.cfg.ExpiryWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to load expiring shares: %w", err)
	}

	var owners []string
	byOwner := make(map[string][]*model.ExpiringShare)
	for _, sh := range shares {
		if _, ok := byOwner[sh.UserID]; !ok {
			owners = append(owners, sh.UserID)
		}
		byOwner[sh.UserID] = append(byOwner[sh.UserID], sh)
	}

	written := 0
	for _, ownerID := range owners {
		items := byOwner[ownerID]

		profile, err := s.profiles.ByID(ctx, ownerID)
		if err != nil {
			slog.Error("failed to load profile for expiry notifications", "error", err, "user_id", ownerID)
			continue
		}

		var (
			activities []*model.UserActivity
			digest     []ExpiryItem
		)
		if profile.NotificationExpiry {
			for _, sh := range items {
				activities = append(activities, &model.UserActivity{
					ID:           uuid.NewString(),
					UserID:       &profile.ID,
					ActivityType: model.ActivityExpiryNotification,
					FileID:       &sh.ID,
					CreatedAt:    now,
					Metadata: model.Metadata{
						"expires_at": sh.ExpiresAt.UTC().Format(time.RFC3339),
						"file_name":  sh.FileName,
					},
				})
				digest = append(digest, ExpiryItem{FileName: sh.FileName, ExpiresAt: sh.ExpiresAt})
			}
		}

		ids := make([]string, 0, len(items))
		for _, sh := range items {
			ids = append(ids, sh.ID)
		}
		err = s.activities.CreateMany(ctx, activities, repository.ExpiryNotified(ids, now))
		if err != nil {
			return written, fmt.Errorf("failed to record expiry notifications: %w", err)
		}
		written += len(activities)

		if len(digest) > 0 {
			s.sendDigest(ctx, ownerID, profile, func(to, name string) error {
				return s.emails.SendExpiryDigest(ctx, to, name, digest)
			})
		}
	}

	return written, nil
}

// sendDigest emails the owner; failures are logged only.
func (s *NotificationService) sendDigest(ctx context.Context, ownerID string, profile *model.Profile, send func(to, name string) error) {
	if s.emails == nil {
		return
	}
	user, err := s.users.ByID(ctx, ownerID)
	if err != nil {
		slog.Warn("failed to load owner email for digest", "error", err, "user_id", ownerID)
		return
	}
	err = send(user.Email, profile.DisplayName())
	if err != nil {
		slog.Warn("failed to send notification digest", "error", err, "user_id", ownerID)
	}
}
