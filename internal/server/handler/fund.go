package handler

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/alanyoungcy/lofbot/internal/arbitrage"
	"github.com/alanyoungcy/lofbot/internal/domain"
)

// FundService defines what the fund handler needs from the service layer.
type FundService interface {
	ListFunds(ctx context.Context) ([]domain.Fund, error)
	FundCodes(ctx context.Context) ([]string, error)
	GetFundSnapshot(ctx context.Context, fundCode string) (domain.FundSnapshot, error)
	GetArbitrageOpportunity(ctx context.Context, fundCode string) (domain.ArbitrageOpportunity, error)
	GetPurchaseLimit(ctx context.Context, fundCode string) domain.PurchaseLimit
	ScreenFunds(ctx context.Context, fundCodes []string) ([]domain.ArbitrageOpportunity, error)
}

var fundCodePattern = regexp.MustCompile(`^\d{6}$`)

// FundHandler serves fund snapshot, opportunity and screening endpoints.
type FundHandler struct {
	funds  FundService
	logger *slog.Logger
}

// NewFundHandler creates a FundHandler.
func NewFundHandler(funds FundService, logger *slog.Logger) *FundHandler {
	return &FundHandler{funds: funds, logger: logger}
}

type listFundsResponse struct {
	Funds []domain.Fund `json:"funds"`
	Count int           `json:"count"`
}

// ListFunds returns the monitored fund universe.
// GET /api/funds
func (h *FundHandler) ListFunds(w http.ResponseWriter, r *http.Request) {
	funds, err := h.funds.ListFunds(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listFundsResponse{Funds: funds, Count: len(funds)})
}

// GetFund returns the reconciled snapshot for one fund.
// GET /api/funds/{code}
func (h *FundHandler) GetFund(w http.ResponseWriter, r *http.Request) {
	code, ok := h.fundCode(w, r)
	if !ok {
		return
	}
	snap, err := h.funds.GetFundSnapshot(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetOpportunity returns the fund's current arbitrage verdict.
// GET /api/funds/{code}/opportunity
func (h *FundHandler) GetOpportunity(w http.ResponseWriter, r *http.Request) {
	code, ok := h.fundCode(w, r)
	if !ok {
		return
	}
	opp, err := h.funds.GetArbitrageOpportunity(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if opp.Type == domain.ArbPremium {
		limit := h.funds.GetPurchaseLimit(r.Context(), code)
		opp.PurchaseLimit = &limit
	}
	writeJSON(w, http.StatusOK, opp)
}

// GetLimit returns the fund's subscription cap.
// GET /api/funds/{code}/limit
func (h *FundHandler) GetLimit(w http.ResponseWriter, r *http.Request) {
	code, ok := h.fundCode(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.funds.GetPurchaseLimit(r.Context(), code))
}

type screenRequest struct {
	FundCodes         []string `json:"fund_codes" validate:"omitempty,max=2000,dive,len=6,numeric"`
	OnlyOpportunities bool     `json:"only_opportunities"`
}

type screenResponse struct {
	Results []domain.ArbitrageOpportunity `json:"results"`
	Count   int                           `json:"count"`
	Partial bool                          `json:"partial,omitempty"`
}

// Screen evaluates the requested funds, or the whole universe when none are
// given, and returns them ranked by profit rate.
// POST /api/screen
func (h *FundHandler) Screen(w http.ResponseWriter, r *http.Request) {
	var req screenRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
	}

	codes := req.FundCodes
	if len(codes) == 0 {
		var err error
		if codes, err = h.funds.FundCodes(r.Context()); err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
	}

	results, err := h.funds.ScreenFunds(r.Context(), codes)
	if err != nil && len(results) == 0 {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if req.OnlyOpportunities {
		results = arbitrage.FilterOpportunities(results)
	}
	writeJSON(w, http.StatusOK, screenResponse{Results: results, Count: len(results), Partial: err != nil})
}

func (h *FundHandler) fundCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	code := pathParam(r, "code")
	if !fundCodePattern.MatchString(code) {
		writeError(w, http.StatusBadRequest, "fund code must be 6 digits")
		return "", false
	}
	return code, true
}
