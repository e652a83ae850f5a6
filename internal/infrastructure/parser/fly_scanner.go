package parser

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"

	"AnalystScanner/internal/domain"
	"AnalystScanner/internal/extractor"
	"AnalystScanner/internal/scanner"
)

const (
	flyNewsURL               = "https://thefly.com/news.php"
	newsTableSelector        = "table.week_day.news_table"
	defaultPageParam         = "page"
	defaultMaxScrollAttempts = 10
	defaultScrollDelay       = 5 * time.Second
	defaultUserAgent         = "AnalystScanner/1.0"
)

// FlyScanner loads the analyst recommendations feed and collects price target sentences.
// Lazy loading is emulated by requesting successive pages until no new news table appears.
type FlyScanner struct {
	client *http.Client
	logger *slog.Logger

	mu     sync.Mutex
	robots map[string]*robotstxt.RobotsData
}

// NewFlyScanner wires an HTTP client; a nil client gets a 30s timeout.
func NewFlyScanner(client *http.Client, logger *slog.Logger) *FlyScanner {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &FlyScanner{
		client: client,
		logger: logger,
		robots: map[string]*robotstxt.RobotsData{},
	}
}

// Name identifies the strategy inside the registry.
func (f *FlyScanner) Name() string {
	return "thefly"
}

type scanOptions struct {
	pageParam     string
	maxAttempts   int
	scrollDelay   time.Duration
	userAgent     string
	respectRobots bool
}

func parseOptions(req scanner.Request) (scanOptions, error) {
	opts := scanOptions{
		pageParam:   req.Option("pageParam", defaultPageParam),
		maxAttempts: defaultMaxScrollAttempts,
		scrollDelay: defaultScrollDelay,
		userAgent:   req.Option("userAgent", defaultUserAgent),
	}

	if v := req.Option("maxScrollAttempts", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, fmt.Errorf("invalid maxScrollAttempts %q", v)
		}
		opts.maxAttempts = n
	}
	if v := req.Option("scrollDelay", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return opts, fmt.Errorf("invalid scrollDelay %q: %w", v, err)
		}
		opts.scrollDelay = d
	}
	if v := req.Option("respectRobots", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid respectRobots %q: %w", v, err)
		}
		opts.respectRobots = b
	}

	return opts, nil
}

// Scan loads the feed for req.Day and returns the price target fragments in page order.
func (f *FlyScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawFragment, error) {
	opts, err := parseOptions(req)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", req.SiteName, err)
	}

	base := req.URL
	if base == "" {
		base = flyNewsURL
	}

	var (
		fragments []domain.RawFragment
		seen      = map[[sha256.Size]byte]struct{}{}
	)

	for attempt := 0; attempt < opts.maxAttempts; attempt++ {
		pageURL, err := buildPageURL(base, req.Day, opts.pageParam, attempt)
		if err != nil {
			return nil, err
		}

		if opts.respectRobots {
			if !f.allowed(ctx, pageURL, opts.userAgent) {
				return nil, fmt.Errorf("%s disallowed by robots.txt", pageURL)
			}
		}

		doc, err := f.fetchDocument(ctx, pageURL, opts.userAgent)
		if err != nil {
			if attempt == 0 {
				return nil, err
			}
			f.warn("stop loading more tables", "attempt", attempt, "error", err)
			break
		}

		newTables := 0
		doc.Find(newsTableSelector).Each(func(_ int, table *goquery.Selection) {
			markup, err := goquery.OuterHtml(table)
			if err != nil {
				return
			}
			key := sha256.Sum256([]byte(markup))
			if _, ok := seen[key]; ok {
				return
			}
			seen[key] = struct{}{}
			newTables++
			fragments = append(fragments, tableFragments(table)...)
		})

		f.debug("page loaded", "attempt", attempt, "new_tables", newTables, "tables", len(seen))
		if newTables == 0 {
			break
		}

		if attempt < opts.maxAttempts-1 {
			if err := wait(ctx, opts.scrollDelay); err != nil {
				return nil, err
			}
		}
	}

	f.debug("scan done", "site", req.SiteName, "fragments", len(fragments))
	return fragments, nil
}

// tableFragments returns the text of leaf spans mentioning a price target.
func tableFragments(table *goquery.Selection) []domain.RawFragment {
	var out []domain.RawFragment
	table.Find("span").Each(func(_ int, span *goquery.Selection) {
		if span.Children().Length() > 0 {
			return
		}
		text := normalizeText(span.Text())
		if extractor.Qualifies(text) {
			out = append(out, domain.RawFragment{Text: text})
		}
	})
	return out
}

func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func (f *FlyScanner) fetchDocument(ctx context.Context, pageURL, userAgent string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news page returned %s", resp.Status)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// allowed consults robots.txt of the page host; an unreachable robots.txt allows everything.
func (f *FlyScanner) allowed(ctx context.Context, pageURL, userAgent string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	data, ok := f.robots[u.Host]
	f.mu.Unlock()

	if !ok {
		data, err = f.loadRobots(ctx, u)
		if err != nil {
			f.warn("robots.txt unavailable, continuing", "host", u.Host, "error", err)
			return true
		}
		f.mu.Lock()
		f.robots[u.Host] = data
		f.mu.Unlock()
	}

	return data.TestAgent(u.Path, userAgent)
}

func (f *FlyScanner) loadRobots(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request robots: %w", err)
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data, nil
}

func buildPageURL(base string, day time.Time, pageParam string, attempt int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid news url %s: %w", base, err)
	}

	query := parsed.Query()
	if !day.IsZero() {
		query.Set("fecha", day.Format("2006-01-02"))
	}
	for _, filter := range []string{"analyst_recommendations", "upgrade_filter", "downgrade_filter", "initiate_filter", "no_change_filter"} {
		query.Set(filter, "on")
	}
	if !query.Has("symbol") {
		query.Set("symbol", "")
	}
	if attempt > 0 {
		query.Set(pageParam, strconv.Itoa(attempt))
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (f *FlyScanner) debug(msg string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func (f *FlyScanner) warn(msg string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
