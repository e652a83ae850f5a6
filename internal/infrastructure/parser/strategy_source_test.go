package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"AnalystScanner/internal/config"
	"AnalystScanner/internal/domain"
	"AnalystScanner/internal/scanner"
)

type fakeScanner struct {
	name string
	out  map[string][]domain.RawFragment
	err  error
	seen []scanner.Request
}

func (f *fakeScanner) Name() string { return f.name }

func (f *fakeScanner) Scan(_ context.Context, req scanner.Request) ([]domain.RawFragment, error) {
	f.seen = append(f.seen, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.out[req.SiteName], nil
}

func TestStrategySourceConcatenatesSites(t *testing.T) {
	t.Parallel()

	fake := &fakeScanner{name: "fake", out: map[string][]domain.RawFragment{
		"a": {{Text: "A price target raised to $1"}},
		"b": {{Text: "B price target lowered to $2"}, {Text: "C price target raised to $3"}},
	}}
	reg := scanner.NewRegistry()
	reg.Register(fake)

	day := time.Date(2023, time.July, 22, 0, 0, 0, 0, time.UTC)
	src := NewStrategySource(reg, []config.SiteConfig{
		{Name: "a", Scanner: "fake", URL: "https://a.example"},
		{Name: "b", Scanner: "fake", Options: map[string]string{"k": "v"}},
	}, nil)

	got, err := src.FetchFragments(context.Background(), day)
	if err != nil {
		t.Fatalf("FetchFragments error: %v", err)
	}
	if len(got) != 3 || got[0].Text != "A price target raised to $1" || got[2].Text != "C price target raised to $3" {
		t.Fatalf("unexpected fragments: %#v", got)
	}
	if fake.seen[0].URL != "https://a.example" || !fake.seen[1].Day.Equal(day) || fake.seen[1].Options["k"] != "v" {
		t.Fatalf("requests not forwarded: %#v", fake.seen)
	}
}

func TestStrategySourceErrors(t *testing.T) {
	t.Parallel()

	reg := scanner.NewRegistry()
	reg.Register(&fakeScanner{name: "broken", err: errors.New("offline")})

	src := NewStrategySource(reg, []config.SiteConfig{{Name: "x", Scanner: "unknown"}}, nil)
	if _, err := src.FetchFragments(context.Background(), time.Now()); err == nil {
		t.Fatalf("expected error for unknown scanner")
	}

	src = NewStrategySource(reg, []config.SiteConfig{{Name: "x", Scanner: "broken"}}, nil)
	if _, err := src.FetchFragments(context.Background(), time.Now()); err == nil {
		t.Fatalf("expected scan error to propagate")
	}

	src = NewStrategySource(nil, nil, nil)
	if _, err := src.FetchFragments(context.Background(), time.Now()); err == nil {
		t.Fatalf("expected error without registry")
	}
}
