package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/service"
)

// RecordService defines what the record handler needs from the service layer.
type RecordService interface {
	CreateRecord(ctx context.Context, in service.CreateRecordInput) (string, error)
	CompleteRecord(ctx context.Context, in service.CompleteRecordInput) (domain.ArbitrageRecord, error)
	CancelRecord(ctx context.Context, id, owner string) (bool, error)
	GetRecord(ctx context.Context, id, owner string) (domain.ArbitrageRecord, error)
	ListRecords(ctx context.Context, filter domain.RecordFilter) ([]domain.ArbitrageRecord, error)
	DeleteRecord(ctx context.Context, id, owner string) error
	GetDailySubscriptionTotal(ctx context.Context, owner, fundCode, date string) (float64, error)
	CheckPurchaseLimit(ctx context.Context, owner, fundCode string, amount float64) (domain.LimitCheck, error)
	Statistics(ctx context.Context, owner string) (domain.RecordStatistics, error)
}

// RecordHandler serves the caller's arbitrage records. Every route requires
// the X-Owner header.
type RecordHandler struct {
	records RecordService
	logger  *slog.Logger
}

// NewRecordHandler creates a RecordHandler.
func NewRecordHandler(records RecordService, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{records: records, logger: logger}
}

type createRecordRequest struct {
	FundCode      string  `json:"fund_code" validate:"required,len=6,numeric"`
	FundName      string  `json:"fund_name" validate:"max=64"`
	ArbitrageType string  `json:"arbitrage_type" validate:"required,oneof=premium discount"`
	InitialPrice  float64 `json:"initial_price" validate:"gt=0"`
	InitialShares float64 `json:"initial_shares" validate:"gte=0"`
	InitialAmount float64 `json:"initial_amount" validate:"gt=0"`
	InitialDate   string  `json:"initial_date" validate:"omitempty,datetime=2006-01-02"`
}

type createRecordResponse struct {
	ID string `json:"id"`
}

// CreateRecord opens a new arbitrage record. Premium records over the daily
// cap are rejected with 400 and the limit check.
// POST /api/records
func (h *RecordHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var req createRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	id, err := h.records.CreateRecord(r.Context(), service.CreateRecordInput{
		Owner:         owner,
		FundCode:      req.FundCode,
		FundName:      req.FundName,
		Type:          domain.ArbType(req.ArbitrageType),
		InitialPrice:  req.InitialPrice,
		InitialShares: req.InitialShares,
		InitialAmount: req.InitialAmount,
		InitialDate:   req.InitialDate,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, createRecordResponse{ID: id})
}

type listRecordsResponse struct {
	Records []domain.ArbitrageRecord `json:"records"`
	Count   int                      `json:"count"`
}

// ListRecords returns the caller's records, newest first.
// GET /api/records?fund_code=&status=&limit=&offset=&since=&until=
func (h *RecordHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	records, err := h.records.ListRecords(r.Context(), domain.RecordFilter{
		Owner:    owner,
		FundCode: q.Get("fund_code"),
		Status:   domain.RecordStatus(q.Get("status")),
		ListOpts: parseListOpts(r),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if records == nil {
		records = []domain.ArbitrageRecord{}
	}
	writeJSON(w, http.StatusOK, listRecordsResponse{Records: records, Count: len(records)})
}

// GetRecord returns one of the caller's records.
// GET /api/records/{id}
func (h *RecordHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	rec, err := h.records.GetRecord(r.Context(), pathParam(r, "id"), owner)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type completeRecordRequest struct {
	FinalPrice  float64 `json:"final_price" validate:"gt=0"`
	FinalShares *float64 `json:"final_shares" validate:"omitempty,gte=0"`
	FinalAmount *float64 `json:"final_amount" validate:"omitempty,gte=0"`
	FinalDate   string  `json:"final_date" validate:"omitempty,datetime=2006-01-02"`
}

// CompleteRecord settles an in-progress record.
// POST /api/records/{id}/complete
func (h *RecordHandler) CompleteRecord(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var req completeRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	rec, err := h.records.CompleteRecord(r.Context(), service.CompleteRecordInput{
		ID:          pathParam(r, "id"),
		Owner:       owner,
		FinalPrice:  req.FinalPrice,
		FinalShares: req.FinalShares,
		FinalAmount: req.FinalAmount,
		FinalDate:   req.FinalDate,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// CancelRecord cancels an in-progress record.
// POST /api/records/{id}/cancel
func (h *RecordHandler) CancelRecord(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	cancelled, err := h.records.CancelRecord(r.Context(), pathParam(r, "id"), owner)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

// DeleteRecord removes one of the caller's records.
// DELETE /api/records/{id}
func (h *RecordHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	if err := h.records.DeleteRecord(r.Context(), pathParam(r, "id"), owner); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type dailyTotalResponse struct {
	FundCode string  `json:"fund_code"`
	Date     string  `json:"date,omitempty"`
	Total    float64 `json:"total"`
}

// DailyTotal sums the caller's counted premium subscriptions for a fund.
// GET /api/records/daily-total?fund_code=161725&date=2024-03-15
func (h *RecordHandler) DailyTotal(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	code := q.Get("fund_code")
	if !fundCodePattern.MatchString(code) {
		writeError(w, http.StatusBadRequest, "fund_code must be 6 digits")
		return
	}
	total, err := h.records.GetDailySubscriptionTotal(r.Context(), owner, code, q.Get("date"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dailyTotalResponse{FundCode: code, Date: q.Get("date"), Total: total})
}

// Statistics summarises the caller's records.
// GET /api/records/stats
func (h *RecordHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	st, err := h.records.Statistics(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type checkLimitRequest struct {
	FundCode string  `json:"fund_code" validate:"required,len=6,numeric"`
	Amount   float64 `json:"amount" validate:"gt=0"`
}

// CheckLimit previews whether the caller may subscribe amount today.
// POST /api/limits/check
func (h *RecordHandler) CheckLimit(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var req checkLimitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	check, err := h.records.CheckPurchaseLimit(r.Context(), owner, req.FundCode, req.Amount)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}
