package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/lofbot/internal/arbitrage"
	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/reconcile"
	"github.com/alanyoungcy/lofbot/internal/source"
)

// MarketData reconciles one fund's exchange quote and NAV across sources.
// *reconcile.Gatherer satisfies it.
type MarketData interface {
	Quote(ctx context.Context, fundCode string) (domain.ReconciledQuote, error)
	Nav(ctx context.Context, fundCode string) (domain.ReconciledNav, error)
}

// LimitLookup resolves purchase limits; it never fails. *limits.Lookup
// satisfies it.
type LimitLookup interface {
	Get(ctx context.Context, fundCode string) domain.PurchaseLimit
}

// ScreenObserver receives the outcome of each screening pass.
type ScreenObserver interface {
	ObserveScreen(d time.Duration, funds, opportunities int)
}

// FundConfig is the read-only snapshot FundService calculates with.
type FundConfig struct {
	// Funds maps code to display name for the monitored universe.
	Funds       map[string]string
	Fees        domain.FeeSchedule
	Thresholds  domain.Thresholds
	Liquidation reconcile.LiquidationOptions
	Workers     int
	SnapshotTTL time.Duration
	// IncludeUpstream merges the upstream LOF list into ListFunds.
	IncludeUpstream bool
}

// DefaultScreenWorkers bounds concurrent fund reconciliations in ScreenFunds.
const DefaultScreenWorkers = 30

// FundService turns reconciled market data into snapshots and arbitrage
// verdicts.
type FundService struct {
	market    MarketData
	listers   []source.Bound[domain.FundLister]
	limits    LimitLookup
	snapshots domain.SnapshotCache
	observer  ScreenObserver
	cfg       FundConfig
	now       func() time.Time
	logger    *slog.Logger
}

// NewFundService creates a FundService. snapshots and observer may be nil.
func NewFundService(
	market MarketData,
	sources *source.Set,
	limits LimitLookup,
	snapshots domain.SnapshotCache,
	observer ScreenObserver,
	cfg FundConfig,
	logger *slog.Logger,
) *FundService {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultScreenWorkers
	}
	return &FundService{
		market:    market,
		listers:   sources.FundListers(),
		limits:    limits,
		snapshots: snapshots,
		observer:  observer,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "fund_service")),
	}
}

// GetFundSnapshot returns the reconciled view of a fund. A fund with neither
// a quote nor a NAV is domain.ErrNoData. Funds suspected of liquidation are
// still returned, flagged, so callers can show why they were excluded.
func (s *FundService) GetFundSnapshot(ctx context.Context, fundCode string) (domain.FundSnapshot, error) {
	if s.snapshots != nil {
		if snap, err := s.snapshots.GetSnapshot(ctx, fundCode); err == nil {
			return snap, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "fund_service: snapshot cache read failed",
				slog.String("fund", fundCode), slog.String("error", err.Error()))
		}
	}

	var (
		quote *domain.ReconciledQuote
		nav   *domain.ReconciledNav
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := s.market.Quote(gctx, fundCode)
		if err == nil {
			quote = &q
		}
		return nil
	})
	g.Go(func() error {
		n, err := s.market.Nav(gctx, fundCode)
		if err == nil {
			nav = &n
		}
		return nil
	})
	_ = g.Wait()

	if quote == nil && nav == nil {
		if err := ctx.Err(); err != nil {
			return domain.FundSnapshot{}, fmt.Errorf("service: snapshot %s: %w", fundCode, err)
		}
		return domain.FundSnapshot{}, fmt.Errorf("service: snapshot %s: %w", fundCode, domain.ErrNoData)
	}

	now := s.now()
	verdict := reconcile.Detect(fundCode, quote, nav, now, s.cfg.Liquidation)
	snap := domain.FundSnapshot{
		FundCode:             fundCode,
		FundName:             s.cfg.Funds[fundCode],
		LiquidationSuspected: verdict.Liquidated,
		LiquidationReason:    verdict.Reason,
		UpdatedAt:            now.UTC(),
	}
	if quote != nil {
		snap.Price = quote.Price
		snap.QuoteConfidence = quote.Confidence
		snap.PriceSource = quote.SourceID
	}
	if nav != nil {
		snap.Nav = nav.Nav
		snap.NavDate = nav.NavDate
		snap.NavConfidence = nav.Confidence
		snap.NavSource = nav.SourceID
	}

	if verdict.Liquidated {
		s.logger.DebugContext(ctx, "fund_service: liquidation suspected",
			slog.String("fund", fundCode), slog.String("reason", verdict.Reason))
	}
	if s.snapshots != nil && s.cfg.SnapshotTTL > 0 {
		if err := s.snapshots.SetSnapshot(ctx, snap, s.cfg.SnapshotTTL); err != nil {
			s.logger.WarnContext(ctx, "fund_service: snapshot cache write failed",
				slog.String("fund", fundCode), slog.String("error", err.Error()))
		}
	}
	return snap, nil
}

// GetArbitrageOpportunity calculates the fund's current premium or discount.
// Missing data and suspected liquidation both yield domain.ErrNoData.
func (s *FundService) GetArbitrageOpportunity(ctx context.Context, fundCode string) (domain.ArbitrageOpportunity, error) {
	snap, err := s.GetFundSnapshot(ctx, fundCode)
	if err != nil {
		return domain.ArbitrageOpportunity{}, err
	}
	if snap.LiquidationSuspected || !snap.HasPrice() || !snap.HasNav() {
		return domain.ArbitrageOpportunity{}, fmt.Errorf("service: opportunity %s: %w", fundCode, domain.ErrNoData)
	}

	opp, ok := arbitrage.Calculate(snap.Price, snap.Nav, s.cfg.Fees, s.cfg.Thresholds)
	if !ok {
		return domain.ArbitrageOpportunity{}, fmt.Errorf("service: opportunity %s: %w", fundCode, domain.ErrNoData)
	}
	opp.FundCode = fundCode
	opp.FundName = snap.FundName
	if !snap.NavDate.IsZero() {
		d := snap.NavDate
		opp.NavDate = &d
	}
	return opp, nil
}

// ScreenFunds evaluates every fund with at most cfg.Workers in flight and
// returns the results ranked by profit rate. Funds without a result are
// skipped. Premium opportunities carry the fund's purchase limit.
//
// When ctx is cancelled the results gathered so far are returned, ranked,
// together with ctx.Err().
func (s *FundService) ScreenFunds(ctx context.Context, fundCodes []string) ([]domain.ArbitrageOpportunity, error) {
	start := s.now()

	var (
		mu      sync.Mutex
		results = make([]domain.ArbitrageOpportunity, 0, len(fundCodes))
	)
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)

	for _, code := range fundCodes {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			opp, err := s.GetArbitrageOpportunity(ctx, code)
			if err != nil {
				if !errors.Is(err, domain.ErrNoData) && ctx.Err() == nil {
					s.logger.WarnContext(ctx, "fund_service: screen fund failed",
						slog.String("fund", code), slog.String("error", err.Error()))
				}
				return nil
			}
			if opp.HasOpportunity && opp.Type == domain.ArbPremium && s.limits != nil {
				limit := s.limits.Get(ctx, code)
				opp.PurchaseLimit = &limit
			}
			mu.Lock()
			results = append(results, opp)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	arbitrage.SortByProfit(results)

	found := 0
	for _, o := range results {
		if o.HasOpportunity {
			found++
		}
	}
	elapsed := s.now().Sub(start)
	if s.observer != nil {
		s.observer.ObserveScreen(elapsed, len(results), found)
	}
	s.logger.InfoContext(ctx, "fund_service: screen finished",
		slog.Int("requested", len(fundCodes)),
		slog.Int("results", len(results)),
		slog.Int("opportunities", found),
		slog.Duration("elapsed", elapsed),
	)

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("service: screen: %w", err)
	}
	return results, nil
}

// ListFunds returns the configured fund universe, merged with the upstream
// LOF list when enabled, sorted by code. An upstream failure degrades to the
// configured list.
func (s *FundService) ListFunds(ctx context.Context) ([]domain.Fund, error) {
	byCode := make(map[string]string, len(s.cfg.Funds))
	for code, name := range s.cfg.Funds {
		byCode[code] = name
	}

	if s.cfg.IncludeUpstream {
		upstream, err := s.fetchFundList(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "fund_service: upstream fund list unavailable",
				slog.String("error", err.Error()))
		}
		for _, f := range upstream {
			if !domain.IsLOF(f) {
				continue
			}
			if _, ok := byCode[f.Code]; !ok {
				byCode[f.Code] = f.Name
			}
		}
	}

	funds := make([]domain.Fund, 0, len(byCode))
	for code, name := range byCode {
		funds = append(funds, domain.Fund{Code: code, Name: name})
	}
	sort.Slice(funds, func(i, j int) bool { return funds[i].Code < funds[j].Code })
	return funds, nil
}

// FundCodes is ListFunds reduced to codes, the input ScreenFunds expects.
func (s *FundService) FundCodes(ctx context.Context) ([]string, error) {
	funds, err := s.ListFunds(ctx)
	if err != nil {
		return nil, err
	}
	codes := make([]string, len(funds))
	for i, f := range funds {
		codes[i] = f.Code
	}
	return codes, nil
}

// GetPurchaseLimit returns the fund's subscription cap.
func (s *FundService) GetPurchaseLimit(ctx context.Context, fundCode string) domain.PurchaseLimit {
	if s.limits == nil {
		return domain.UnlimitedPurchase(fundCode)
	}
	return s.limits.Get(ctx, fundCode)
}

func (s *FundService) fetchFundList(ctx context.Context) ([]domain.Fund, error) {
	if len(s.listers) == 0 {
		return nil, fmt.Errorf("service: fund list: no providers: %w", domain.ErrUpstreamUnavailable)
	}
	var errs []error
	for _, l := range s.listers {
		callCtx, cancel := l.WithTimeout(ctx)
		funds, err := l.Fetcher.FetchFundList(callCtx)
		cancel()
		if err == nil && len(funds) > 0 {
			return funds, nil
		}
		if err == nil {
			err = domain.ErrNoData
		}
		errs = append(errs, fmt.Errorf("%s: %w", l.ID, err))
	}
	return nil, fmt.Errorf("service: fund list: %w: %w", domain.ErrUpstreamUnavailable, errors.Join(errs...))
}
