package limits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/source"
)

// DefaultCacheTTL is how long a fetched limit is reused.
const DefaultCacheTTL = 5 * time.Minute

// Lookup resolves a fund's purchase limit: cache first, then each limit
// provider in priority order. Concurrent lookups for the same fund share one
// upstream round trip.
type Lookup struct {
	fetchers []source.Bound[domain.PurchaseLimitFetcher]
	cache    domain.LimitCache
	ttl      time.Duration
	group    singleflight.Group
	logger   *slog.Logger
}

// NewLookup creates a Lookup. cache may be nil to disable caching.
func NewLookup(sources *source.Set, cache domain.LimitCache, ttl time.Duration, logger *slog.Logger) *Lookup {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Lookup{
		fetchers: sources.LimitFetchers(),
		cache:    cache,
		ttl:      ttl,
		logger:   logger.With(slog.String("component", "limits")),
	}
}

// Get returns the fund's limit. It never fails: when every provider fails
// the fund is reported as unlimited and a warning is logged.
func (l *Lookup) Get(ctx context.Context, fundCode string) domain.PurchaseLimit {
	if l.cache != nil {
		if cached, err := l.cache.GetLimit(ctx, fundCode); err == nil {
			return cached
		} else if !errors.Is(err, domain.ErrNotFound) {
			l.logger.WarnContext(ctx, "limit cache read failed",
				slog.String("fund", fundCode), slog.String("error", err.Error()))
		}
	}

	v, _, _ := l.group.Do(fundCode, func() (any, error) {
		limit, err := l.fetch(ctx, fundCode)
		if err != nil {
			l.logger.WarnContext(ctx, "purchase limit lookup failed, treating as unlimited",
				slog.String("fund", fundCode), slog.String("error", err.Error()))
			return domain.UnlimitedPurchase(fundCode), nil
		}
		if l.cache != nil {
			if err := l.cache.SetLimit(ctx, limit, l.ttl); err != nil {
				l.logger.WarnContext(ctx, "limit cache write failed",
					slog.String("fund", fundCode), slog.String("error", err.Error()))
			}
		}
		return limit, nil
	})
	return v.(domain.PurchaseLimit)
}

func (l *Lookup) fetch(ctx context.Context, fundCode string) (domain.PurchaseLimit, error) {
	if len(l.fetchers) == 0 {
		return domain.PurchaseLimit{}, fmt.Errorf("limits: fetch %s: no limit providers: %w", fundCode, domain.ErrUpstreamUnavailable)
	}
	var errs []error
	for _, f := range l.fetchers {
		callCtx, cancel := f.WithTimeout(ctx)
		limit, err := f.Fetcher.FetchPurchaseLimit(callCtx, fundCode)
		cancel()
		if err == nil {
			limit.FundCode = fundCode
			return limit, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", f.ID, err))
	}
	return domain.PurchaseLimit{}, fmt.Errorf("limits: fetch %s: %w: %w", fundCode, domain.ErrUpstreamUnavailable, errors.Join(errs...))
}
