package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/repository"
)

type UserService struct {
	userRepository    repository.UserRepository
	profileRepository repository.ProfileRepository
}

func NewUserService(userRepository repository.UserRepository, profileRepository repository.ProfileRepository) *UserService {
	return &UserService{
		userRepository:    userRepository,
		profileRepository: profileRepository,
	}
}

func (s *UserService) ByID(ctx context.Context, id string) (*model.User, error) {
	return s.userRepository.ByID(ctx, id)
}

func (s *UserService) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.userRepository.ByEmail(ctx, normalizeEmail(email))
}

// Users lists every profile with its share count and total bytes, newest first.
func (s *UserService) Users(ctx context.Context, search string) ([]*model.UserStats, error) {
	users, err := s.profileRepository.ListWithStats(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ToggleAdmin flips is_admin on exactly one profile and returns the result.
func (s *UserService) ToggleAdmin(ctx context.Context, id string) (*model.Profile, error) {
	profile, err := s.profileRepository.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.SetAdmin(ctx, profile.ID, !profile.IsAdmin)
}

func (s *UserService) SetAdmin(ctx context.Context, id string, isAdmin bool) (*model.Profile, error) {
	err := s.profileRepository.SetAdmin(ctx, id, isAdmin)
	if err != nil {
		return nil, err
	}

	slog.Info("admin flag changed", "user_id", id, "is_admin", isAdmin)
	return s.profileRepository.ByID(ctx, id)
}
