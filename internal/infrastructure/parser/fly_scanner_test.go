package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	"AnalystScanner/internal/domain"
	"AnalystScanner/internal/scanner"
)

const firstTable = `
<table class="week_day news_table">
  <tr><td><span>Acme Corp price target raised to $50 from $40 at Barclays</span></td></tr>
  <tr><td><span>Beta Co initiated with a Buy at Jefferies</span></td></tr>
  <tr><td><span class="outer"><span>XYZ Inc
     PRICE TARGET lowered to $10 at UBS</span></span></td></tr>
</table>`

const secondTable = `
<table class="week_day news_table">
  <tr><td><span>Gamma Ltd price target raised to $7 at Citi</span></td></tr>
</table>`

func TestBuildPageURL(t *testing.T) {
	t.Parallel()

	day := time.Date(2023, time.July, 22, 0, 0, 0, 0, time.UTC)
	u, err := buildPageURL("https://thefly.com/news.php", day, "page", 2)
	if err != nil {
		t.Fatalf("buildPageURL returned error: %v", err)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if parsed.Host != "thefly.com" || parsed.Path != "/news.php" {
		t.Fatalf("unexpected url: %s", u)
	}

	q := parsed.Query()
	if q.Get("fecha") != "2023-07-22" {
		t.Fatalf("expected fecha=2023-07-22, got %s", q.Get("fecha"))
	}
	for _, filter := range []string{"analyst_recommendations", "upgrade_filter", "downgrade_filter", "initiate_filter", "no_change_filter"} {
		if q.Get(filter) != "on" {
			t.Fatalf("expected %s=on", filter)
		}
	}
	if !q.Has("symbol") {
		t.Fatalf("expected empty symbol parameter")
	}
	if q.Get("page") != "2" {
		t.Fatalf("expected page=2, got %s", q.Get("page"))
	}

	first, err := buildPageURL("https://thefly.com/news.php", day, "page", 0)
	if err != nil {
		t.Fatalf("buildPageURL returned error: %v", err)
	}
	if strings.Contains(first, "page=") {
		t.Fatalf("first page must not carry the page parameter: %s", first)
	}
}

func TestTableFragmentsCollapsesNonBreakingSpaces(t *testing.T) {
	t.Parallel()

	page := `<table class="week_day news_table">
  <tr><td><span>Delta&nbsp;Air price target raised to&nbsp;$60 from $55 at&nbsp;Jefferies&nbsp;</span></td></tr>
</table>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	got := tableFragments(doc.Find(newsTableSelector).First())
	want := []domain.RawFragment{{Text: "Delta Air price target raised to $60 from $55 at Jefferies"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fragments mismatch (-want +got):\n%s", diff)
	}
}

func TestTableFragments(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(firstTable))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	got := tableFragments(doc.Find(newsTableSelector).First())
	want := []domain.RawFragment{
		{Text: "Acme Corp price target raised to $50 from $40 at Barclays"},
		{Text: "XYZ Inc PRICE TARGET lowered to $10 at UBS"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fragments mismatch (-want +got):\n%s", diff)
	}
}

func TestFlyScannerLoadsUntilNoNewTables(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Query().Get("page") {
		case "":
			_, _ = w.Write([]byte("<html><body>" + firstTable + "</body></html>"))
		default:
			_, _ = w.Write([]byte("<html><body>" + firstTable + secondTable + "</body></html>"))
		}
	}))
	defer server.Close()

	sc := NewFlyScanner(server.Client(), nil)
	req := scanner.Request{
		Day:      time.Date(2023, time.July, 22, 0, 0, 0, 0, time.UTC),
		SiteName: "thefly",
		URL:      server.URL + "/news.php",
		Options:  map[string]string{"scrollDelay": "0s", "maxScrollAttempts": "5"},
	}

	got, err := sc.Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	want := []domain.RawFragment{
		{Text: "Acme Corp price target raised to $50 from $40 at Barclays"},
		{Text: "XYZ Inc PRICE TARGET lowered to $10 at UBS"},
		{Text: "Gamma Ltd price target raised to $7 at Citi"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fragments mismatch (-want +got):\n%s", diff)
	}

	// page 0 and 1 bring new tables, page 2 does not
	if n := requests.Load(); n != 3 {
		t.Fatalf("expected 3 requests, got %d", n)
	}
}

func TestFlyScannerStopsAtAttemptLimit(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		var b strings.Builder
		for i := int32(0); i < n; i++ {
			b.WriteString(`<table class="week_day news_table"><tr><td><span>T` + string(rune('A'+i)) + ` price target raised to $1</span></td></tr></table>`)
		}
		_, _ = w.Write([]byte(b.String()))
	}))
	defer server.Close()

	sc := NewFlyScanner(server.Client(), nil)
	got, err := sc.Scan(context.Background(), scanner.Request{
		URL:     server.URL,
		Options: map[string]string{"scrollDelay": "0s", "maxScrollAttempts": "2"},
	})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if requests.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", requests.Load())
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(got))
	}
}

func TestFlyScannerFirstPageFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	sc := NewFlyScanner(server.Client(), nil)
	_, err := sc.Scan(context.Background(), scanner.Request{URL: server.URL, Options: map[string]string{"scrollDelay": "0s"}})
	if err == nil {
		t.Fatalf("expected error for failing page")
	}
}

func TestFlyScannerRespectsRobots(t *testing.T) {
	t.Parallel()

	var pageHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /news.php\n"))
			return
		}
		pageHits.Add(1)
		_, _ = w.Write([]byte(firstTable))
	}))
	defer server.Close()

	sc := NewFlyScanner(server.Client(), nil)
	_, err := sc.Scan(context.Background(), scanner.Request{
		URL:     server.URL + "/news.php",
		Options: map[string]string{"respectRobots": "true", "scrollDelay": "0s"},
	})
	if err == nil {
		t.Fatalf("expected robots.txt to block the scan")
	}
	if pageHits.Load() != 0 {
		t.Fatalf("page must not be requested when disallowed")
	}
}

func TestParseOptionsRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	for _, opts := range []map[string]string{
		{"maxScrollAttempts": "0"},
		{"maxScrollAttempts": "many"},
		{"scrollDelay": "soon"},
		{"respectRobots": "maybe"},
	} {
		if _, err := parseOptions(scanner.Request{Options: opts}); err == nil {
			t.Fatalf("expected error for %v", opts)
		}
	}
}
