package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"AnalystScanner/internal/domain"
	"AnalystScanner/internal/extractor"
	"AnalystScanner/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.FragmentSource
	Repository ports.AnnouncementRepository
	Notifiers  []ports.Notifier
	ChatClient ports.ChatClient
	Logger     *slog.Logger
	// Live makes Board scrape on every call instead of reading the repository.
	Live bool
}

// Pipeline implements the scrape, extract, store and notify workflow.
type Pipeline struct {
	source     ports.FragmentSource
	repository ports.AnnouncementRepository
	notifiers  []ports.Notifier
	chatClient ports.ChatClient
	logger     *slog.Logger
	live       bool
}

// Report summarizes one ProcessDay run.
type Report struct {
	Collected []domain.Announcement
	Fresh     []domain.Announcement
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:     deps.Source,
		repository: deps.Repository,
		notifiers:  deps.Notifiers,
		chatClient: deps.ChatClient,
		logger:     deps.Logger,
		live:       deps.Live,
	}
}

// Collect fetches the fragments for the day and extracts their announcements.
func (p *Pipeline) Collect(ctx context.Context, day time.Time) ([]domain.Announcement, error) {
	if p.source == nil {
		return []domain.Announcement{}, nil
	}

	fragments, err := p.source.FetchFragments(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("fetch fragments: %w", err)
	}

	records := extractor.ExtractAll(fragments)
	p.log(slog.LevelDebug, "extracted announcements", "fragments", len(fragments), "records", len(records))
	return records, nil
}

// Board returns the announcements to display for the day.
func (p *Pipeline) Board(ctx context.Context, day time.Time) ([]domain.Announcement, error) {
	if p.live || p.repository == nil {
		return p.Collect(ctx, day)
	}

	records, err := p.repository.ListDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	return records, nil
}

// ProcessDay collects the day's announcements, stores the unseen ones and sends digests about them.
func (p *Pipeline) ProcessDay(ctx context.Context, day time.Time) (Report, error) {
	collected, err := p.Collect(ctx, day)
	if err != nil {
		return Report{}, err
	}

	fresh, err := p.unseen(ctx, collected)
	if err != nil {
		return Report{}, err
	}
	report := Report{Collected: collected, Fresh: fresh}

	p.log(slog.LevelInfo, "processed day", "day", day.Format("2006-01-02"), "collected", len(collected), "fresh", len(fresh))
	if len(fresh) == 0 {
		return report, nil
	}

	if p.repository != nil {
		if err := p.repository.Save(ctx, day, fresh); err != nil {
			return report, fmt.Errorf("persist announcements: %w", err)
		}
	}

	if len(p.notifiers) == 0 {
		return report, nil
	}

	message := buildDigestMessage(fresh)
	if p.chatClient != nil {
		payload, err := json.Marshal(fresh)
		if err != nil {
			return report, fmt.Errorf("build chatgpt payload: %w", err)
		}
		comment, err := p.chatClient.Comment(ctx, payload)
		if err != nil {
			p.log(slog.LevelWarn, "chatgpt comment failed", "error", err)
		} else if comment != "" {
			message += "\n" + comment + "\n"
		}
	}

	for _, n := range p.notifiers {
		if err := n.PublishDigest(ctx, message); err != nil {
			p.log(slog.LevelWarn, "publish digest failed", "notifier", fmt.Sprintf("%T", n), "error", err)
		}
	}

	return report, nil
}

// unseen drops records already stored or repeated earlier in the batch.
func (p *Pipeline) unseen(ctx context.Context, records []domain.Announcement) ([]domain.Announcement, error) {
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = r.Key()
	}

	skip := map[string]bool{}
	if p.repository != nil && len(keys) > 0 {
		var err error
		skip, err = p.repository.AlreadySeen(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("load seen announcements: %w", err)
		}
		if skip == nil {
			skip = map[string]bool{}
		}
	}

	fresh := make([]domain.Announcement, 0, len(records))
	for i, r := range records {
		if skip[keys[i]] {
			continue
		}
		skip[keys[i]] = true
		fresh = append(fresh, r)
	}
	return fresh, nil
}

func buildDigestMessage(records []domain.Announcement) string {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "- %s: price target %s", r.CompanyName, strings.ToLower(r.Direction.String()))
		if target, ok := r.Target(); ok && target != "" {
			fmt.Fprintf(&b, " to %s", target)
		}
		fmt.Fprintf(&b, " (%s)\n", r.Analyst)
	}
	return b.String()
}

func (p *Pipeline) log(level slog.Level, msg string, args ...any) {
	if p.logger != nil {
		p.logger.Log(context.Background(), level, msg, args...)
	}
}
