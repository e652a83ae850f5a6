package scanner

import (
	"context"
	"fmt"
	"time"

	"AnalystScanner/internal/domain"
)

// Request carries all parameters required to execute a scan.
type Request struct {
	Day      time.Time
	SiteName string
	URL      string
	Options  map[string]string
}

// Option returns the named option or fallback when it is unset.
func (r Request) Option(name, fallback string) string {
	if v, ok := r.Options[name]; ok && v != "" {
		return v
	}
	return fallback
}

// Scanner captures a single page strategy (thefly, etc.).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.RawFragment, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}
