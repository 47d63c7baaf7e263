package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/source"
)

// Capability names used in logs and metrics.
const (
	CapPrice = "price"
	CapNav   = "nav"
)

// CallObserver is told about every provider call. err is nil on success.
type CallObserver func(providerID, capability string, d time.Duration, err error)

// Gatherer queries every enabled provider for a fund concurrently and
// reconciles the answers.
type Gatherer struct {
	sources *source.Set
	opts    Options
	observe CallObserver
	logger  *slog.Logger
}

// NewGatherer creates a Gatherer. observe may be nil.
func NewGatherer(sources *source.Set, opts Options, observe CallObserver, logger *slog.Logger) *Gatherer {
	if observe == nil {
		observe = func(string, string, time.Duration, error) {}
	}
	return &Gatherer{
		sources: sources,
		opts:    opts,
		observe: observe,
		logger:  logger.With(slog.String("component", "reconcile")),
	}
}

// Quote fans out to every price provider and reconciles the results.
// Provider failures are absorbed; only a total absence of valid quotes is
// reported, as domain.ErrNoData.
func (g *Gatherer) Quote(ctx context.Context, fundCode string) (domain.ReconciledQuote, error) {
	quotes := gather(ctx, g, fundCode, CapPrice, g.sources.PriceFetchers(),
		func(ctx context.Context, f domain.PriceFetcher) (domain.Quote, error) {
			return f.FetchPrice(ctx, fundCode)
		})
	return Quotes(quotes, g.opts)
}

// Nav fans out to every NAV provider and reconciles the results.
func (g *Gatherer) Nav(ctx context.Context, fundCode string) (domain.ReconciledNav, error) {
	navs := gather(ctx, g, fundCode, CapNav, g.sources.NavFetchers(),
		func(ctx context.Context, f domain.NavFetcher) (domain.NavReading, error) {
			return f.FetchNav(ctx, fundCode)
		})
	return Navs(navs, g.opts)
}

// gather calls every provider with its own timeout and returns the
// successful results in provider priority order. It waits for all calls.
func gather[F, R any](
	ctx context.Context,
	g *Gatherer,
	fundCode, capability string,
	providers []source.Bound[F],
	call func(context.Context, F) (R, error),
) []R {
	results := make([]R, len(providers))
	ok := make([]bool, len(providers))

	var eg errgroup.Group
	for i, p := range providers {
		eg.Go(func() error {
			callCtx, cancel := p.WithTimeout(ctx)
			defer cancel()

			start := time.Now()
			r, err := safeCall(callCtx, p.Fetcher, call)
			g.observe(p.ID, capability, time.Since(start), err)
			if err != nil {
				g.logger.DebugContext(ctx, "provider call failed",
					slog.String("provider", p.ID),
					slog.String("capability", capability),
					slog.String("fund", fundCode),
					slog.String("error", err.Error()),
				)
				return nil
			}
			results[i], ok[i] = r, true
			return nil
		})
	}
	_ = eg.Wait()

	out := make([]R, 0, len(providers))
	for i := range results {
		if ok[i] {
			out = append(out, results[i])
		}
	}
	return out
}

// safeCall converts a provider panic into an error so one broken parser
// cannot take down a screen.
func safeCall[F, R any](ctx context.Context, f F, call func(context.Context, F) (R, error)) (r R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("provider panic: %v", p)
		}
	}()
	return call(ctx, f)
}
