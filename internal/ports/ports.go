package ports

import (
	"context"
	"time"

	"AnalystScanner/internal/domain"
)

// FragmentSource loads pages and isolates text fragments that may hold an announcement.
type FragmentSource interface {
	FetchFragments(ctx context.Context, day time.Time) ([]domain.RawFragment, error)
}

// AnnouncementRepository keeps extracted announcements for deduplication and display.
type AnnouncementRepository interface {
	AlreadySeen(ctx context.Context, keys []string) (map[string]bool, error)
	Save(ctx context.Context, day time.Time, announcements []domain.Announcement) error
	ListDay(ctx context.Context, day time.Time) ([]domain.Announcement, error)
}

// Notifier streams digests of new announcements to Telegram, email or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// ChatClient asks an LLM API (e.g., ChatGPT) to comment on a JSON digest.
type ChatClient interface {
	Comment(ctx context.Context, payload []byte) (string, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
