package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"AnalystScanner/internal/config"
	"AnalystScanner/internal/domain"
	"AnalystScanner/internal/ports"
	"AnalystScanner/internal/scanner"
)

// StrategySource implements FragmentSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	logger   *slog.Logger
}

var _ ports.FragmentSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sites:    sites,
		logger:   log,
	}
}

// FetchFragments runs every configured site's scanner and concatenates fragments in site order.
func (s *StrategySource) FetchFragments(ctx context.Context, day time.Time) ([]domain.RawFragment, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch fragments", "sites", len(s.sites), "day", day.Format("2006-01-02"))

	var aggregated []domain.RawFragment
	for _, site := range s.sites {
		s.debug("process site", "site", site.Name, "scanner", site.Scanner)
		strategy, err := s.registry.Resolve(site.Scanner)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}

		req := scanner.Request{
			Day:      day,
			SiteName: site.Name,
			URL:      site.URL,
			Options:  site.Options,
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("scan site %s: %w", site.Name, err)
		}

		s.debug("site produced fragments", "site", site.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	s.debug("strategy source done", "total_fragments", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
