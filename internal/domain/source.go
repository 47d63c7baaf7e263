package domain

import "context"

// PriceFetcher returns the current exchange quote for a fund.
type PriceFetcher interface {
	FetchPrice(ctx context.Context, fundCode string) (Quote, error)
}

// NavFetcher returns the latest published NAV for a fund.
type NavFetcher interface {
	FetchNav(ctx context.Context, fundCode string) (NavReading, error)
}

// FundLister returns the upstream fund universe.
type FundLister interface {
	FetchFundList(ctx context.Context) ([]Fund, error)
}

// PurchaseLimitFetcher returns a fund's subscription cap.
type PurchaseLimitFetcher interface {
	FetchPurchaseLimit(ctx context.Context, fundCode string) (PurchaseLimit, error)
}
