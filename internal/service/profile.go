package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/repository"
)

type ProfileService struct {
	profileRepo repository.ProfileRepository
}

func NewProfileService(profileRepo repository.ProfileRepository) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
	}
}

func (s *ProfileService) ByID(ctx context.Context, id string) (*model.Profile, error) {
	return s.profileRepo.ByID(ctx, id)
}

// NotificationSettings lists every profile with its notification flags.
func (s *ProfileService) NotificationSettings(ctx context.Context) ([]*model.Profile, error) {
	return s.profileRepo.List(ctx)
}

func (s *ProfileService) SetNotification(ctx context.Context, id, field string, enabled bool) error {
	if !model.IsNotificationField(field) {
		return fmt.Errorf("%w: %q", repository.ErrInvalidNotificationField, field)
	}
	return s.profileRepo.SetNotification(ctx, id, field, enabled)
}

// SetAllNotifications sets both flags on every profile.
func (s *ProfileService) SetAllNotifications(ctx context.Context, enabled bool) (int64, error) {
	n, err := s.profileRepo.SetAllNotifications(ctx, enabled)
	if err != nil {
		return 0, fmt.Errorf("failed to update notification settings: %w", err)
	}
	slog.Info("notification settings updated for all users", "enabled", enabled, "profiles", n)
	return n, nil
}
