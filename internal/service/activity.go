package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/repository"
)

// ActivityService writes the audit log. Recording is best-effort: failures are logged, never returned.
type ActivityService struct {
	repo repository.ActivityRepository
	now  func() time.Time
}

func NewActivityService(repo repository.ActivityRepository) *ActivityService {
	return &ActivityService{repo: repo, now: time.Now}
}

// Entry describes an activity to record. Empty strings are stored as NULL.
type Entry struct {
	Type     string
	UserID   string
	FileID   string
	IP       string
	Metadata model.Metadata
}

func (s *ActivityService) Record(ctx context.Context, e Entry) {
	activity := &model.UserActivity{
		ID:           uuid.NewString(),
		UserID:       nullable(e.UserID),
		ActivityType: e.Type,
		FileID:       nullable(e.FileID),
		IPAddress:    nullable(e.IP),
		CreatedAt:    s.now().UTC(),
		Metadata:     e.Metadata,
	}

	err := s.repo.Create(context.WithoutCancel(ctx), activity)
	if err != nil {
		slog.Warn("failed to record activity", "error", err, "type", e.Type, "user_id", e.UserID, "file_id", e.FileID)
	}
}

func (s *ActivityService) List(ctx context.Context, filter model.ActivityFilter, search string) ([]*model.ActivityEntry, error) {
	return s.repo.List(ctx, filter, search)
}

// RecordSessions returns a subscriber that writes session events to the log.
func (s *ActivityService) RecordSessions() func(SessionEvent) {
	return func(ev SessionEvent) {
		meta := model.Metadata{}
		if ev.Method != "" {
			meta["method"] = ev.Method
		}
		s.Record(context.Background(), Entry{
			Type:     string(ev.Type),
			UserID:   ev.UserID,
			IP:       ev.IP,
			Metadata: meta,
		})
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
