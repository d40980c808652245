package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/templui/fileshare/internal/format"
	"github.com/templui/fileshare/internal/model"
	"github.com/templui/fileshare/internal/repository"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

var ErrInvalidPeriod = errors.New("period must be daily, weekly or monthly")

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodDaily, nil
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return Period(s), nil
	}
	return "", ErrInvalidPeriod
}

// Buckets is the number of series points the period covers.
func (p Period) Buckets() int {
	switch p {
	case PeriodWeekly:
		return 4
	case PeriodMonthly:
		return 6
	default:
		return 7
	}
}

// Since returns the start of the oldest bucket in the window ending at now.
func (p Period) Since(now time.Time) time.Time {
	start := p.bucket(now)
	for i := 1; i < p.Buckets(); i++ {
		start = p.prev(start)
	}
	return start
}

// bucket returns the start of the bucket containing t.
func (p Period) bucket(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	switch p {
	case PeriodWeekly:
		return day.AddDate(0, 0, -int(day.Weekday()))
	case PeriodMonthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	default:
		return day
	}
}

func (p Period) next(start time.Time) time.Time {
	switch p {
	case PeriodWeekly:
		return start.AddDate(0, 0, 7)
	case PeriodMonthly:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

func (p Period) prev(start time.Time) time.Time {
	switch p {
	case PeriodWeekly:
		return start.AddDate(0, 0, -7)
	case PeriodMonthly:
		return start.AddDate(0, -1, 0)
	default:
		return start.AddDate(0, 0, -1)
	}
}

func (p Period) label(start time.Time) string {
	switch p {
	case PeriodWeekly:
		return "Week of " + start.Format("Jan 2")
	case PeriodMonthly:
		return start.Format("Jan 2006")
	default:
		return start.Format("Jan 2")
	}
}

type StatPoint struct {
	Label     string    `json:"label"`
	Start     time.Time `json:"start"`
	Uploads   int64     `json:"uploads"`
	Downloads int64     `json:"downloads"`
	Bandwidth int64     `json:"bandwidth"`
}

type PlatformStats struct {
	Period             Period      `json:"period"`
	Since              time.Time   `json:"since"`
	TotalUploads       int64       `json:"total_uploads"`
	TotalDownloads     int64       `json:"total_downloads"`
	ActiveUsers        int64       `json:"active_users"`
	Bandwidth          int64       `json:"bandwidth"`
	BandwidthFormatted string      `json:"bandwidth_formatted"`
	UploadsFormatted   string      `json:"uploads_formatted"`
	DownloadsFormatted string      `json:"downloads_formatted"`
	Series             []StatPoint `json:"series"`
}

type CategoryStat struct {
	Name          string `json:"name"`
	Count         int64  `json:"count"`
	Size          int64  `json:"size"`
	SizeFormatted string `json:"size_formatted"`
}

type FileAnalytics struct {
	TotalFiles           int64              `json:"total_files"`
	TotalSize            int64              `json:"total_size"`
	AverageSize          int64              `json:"average_size"`
	AverageSizeFormatted string             `json:"average_size_formatted"`
	Categories           []CategoryStat     `json:"categories"`
	Largest              []*model.FileShare `json:"largest"`
}

const largestFilesLimit = 10

type AnalyticsService struct {
	shares          repository.ShareRepository
	downloads       repository.DownloadRepository
	flaggedFileSize int64
	now             func() time.Time
}

func NewAnalyticsService(shares repository.ShareRepository, downloads repository.DownloadRepository, flaggedFileSize int64) *AnalyticsService {
	return &AnalyticsService{
		shares:          shares,
		downloads:       downloads,
		flaggedFileSize: flaggedFileSize,
		now:             time.Now,
	}
}

// PlatformStats aggregates uploads, downloads and active users over the period.
// Series holds one point per bucket, including empty ones.
func (s *AnalyticsService) PlatformStats(ctx context.Context, period Period) (*PlatformStats, error) {
	now := s.now().UTC()
	since := period.Since(now)

	shares, err := s.shares.CreatedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load uploads: %w", err)
	}
	downloads, err := s.downloads.Since(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load downloads: %w", err)
	}

	var series []StatPoint
	index := make(map[time.Time]int)
	for start := since; !start.After(now); start = period.next(start) {
		index[start] = len(series)
		series = append(series, StatPoint{Label: period.label(start), Start: start})
	}

	stats := &PlatformStats{Period: period, Since: since}
	active := make(map[string]struct{})

	for _, sh := range shares {
		stats.TotalUploads++
		stats.Bandwidth += sh.FileSize
		active[sh.UserID] = struct{}{}
		if i, ok := index[period.bucket(sh.CreatedAt.UTC())]; ok {
			series[i].Uploads++
			series[i].Bandwidth += sh.FileSize
		}
	}
	for _, d := range downloads {
		stats.TotalDownloads++
		if d.UserID != nil {
			active[*d.UserID] = struct{}{}
		}
		if i, ok := index[period.bucket(d.DownloadedAt.UTC())]; ok {
			series[i].Downloads++
		}
	}

	stats.ActiveUsers = int64(len(active))
	stats.BandwidthFormatted = format.Size(stats.Bandwidth)
	stats.UploadsFormatted = format.Count(stats.TotalUploads)
	stats.DownloadsFormatted = format.Count(stats.TotalDownloads)
	stats.Series = series
	return stats, nil
}

// FileAnalytics breaks all shares down by category and lists the largest ones.
func (s *AnalyticsService) FileAnalytics(ctx context.Context) (*FileAnalytics, error) {
	shares, err := s.shares.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load shares: %w", err)
	}

	out := &FileAnalytics{Categories: []CategoryStat{}, Largest: []*model.FileShare{}}
	byCategory := make(map[string]*CategoryStat)
	for _, sh := range shares {
		out.TotalFiles++
		out.TotalSize += sh.FileSize

		name := format.CategoryOf(sh.FileName)
		c, ok := byCategory[name]
		if !ok {
			c = &CategoryStat{Name: name}
			byCategory[name] = c
		}
		c.Count++
		c.Size += sh.FileSize
	}

	for _, c := range byCategory {
		c.SizeFormatted = format.Size(c.Size)
		out.Categories = append(out.Categories, *c)
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		if out.Categories[i].Size != out.Categories[j].Size {
			return out.Categories[i].Size > out.Categories[j].Size
		}
		return out.Categories[i].Name < out.Categories[j].Name
	})

	if out.TotalFiles > 0 {
		out.AverageSize = out.TotalSize / out.TotalFiles
	}
	out.AverageSizeFormatted = format.Size(out.AverageSize)

	largest := make([]*model.FileShare, len(shares))
	copy(largest, shares)
	sort.SliceStable(largest, func(i, j int) bool { return largest[i].FileSize > largest[j].FileSize })
	if len(largest) > largestFilesLimit {
		largest = largest[:largestFilesLimit]
	}
	out.Largest = largest

	return out, nil
}

// FlaggedFiles lists shares above the flagged size threshold, largest first.
func (s *AnalyticsService) FlaggedFiles(ctx context.Context, search string) ([]*model.FlaggedFile, error) {
	files, err := s.shares.Flagged(ctx, s.flaggedFileSize, search)
	if err != nil {
		return nil, fmt.Errorf("failed to load flagged files: %w", err)
	}
	return files, nil
}
