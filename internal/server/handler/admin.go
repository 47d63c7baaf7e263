package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/service"
)

// AdminRecords is the cross-owner read path.
type AdminRecords interface {
	AdminStatistics(ctx context.Context) (domain.AdminStatistics, error)
	ListAllRecords(ctx context.Context, filter domain.RecordFilter) ([]domain.ArbitrageRecord, error)
}

// Reports exports and lists stored reports.
type Reports interface {
	Export(ctx context.Context, at time.Time) (service.ReportResult, error)
	ListReports(ctx context.Context) ([]domain.BlobInfo, error)
	OpenReport(ctx context.Context, path string) (io.ReadCloser, error)
}

// AdminHandler serves administrative endpoints guarded by the admin key.
type AdminHandler struct {
	records AdminRecords
	reports Reports
	logger  *slog.Logger
}

// NewAdminHandler creates an AdminHandler. reports may be nil when object
// storage is disabled.
func NewAdminHandler(records AdminRecords, reports Reports, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{records: records, reports: reports, logger: logger}
}

// Statistics aggregates every owner's records.
// GET /api/admin/stats
func (h *AdminHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.records.AdminStatistics(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ListRecords returns records across owners.
// GET /api/admin/records?owner=&fund_code=&status=
func (h *AdminHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	records, err := h.records.ListAllRecords(r.Context(), domain.RecordFilter{
		Owner:    q.Get("owner"),
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

// ListReports returns stored report objects, newest first.
// GET /api/admin/reports
func (h *AdminHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeError(w, http.StatusNotFound, "reports disabled")
		return
	}
	infos, err := h.reports.ListReports(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if infos == nil {
		infos = []domain.BlobInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": infos, "count": len(infos)})
}

// ExportReport runs a report export immediately.
// POST /api/admin/reports
func (h *AdminHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeError(w, http.StatusNotFound, "reports disabled")
		return
	}
	res, err := h.reports.Export(r.Context(), time.Now())
	if err != nil && len(res.Paths) == 0 {
		writeServiceError(w, r, h.logger, err)
		return
	}
	status := http.StatusCreated
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: report export incomplete", slog.String("error", err.Error()))
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, res)
}

// GetReport streams one stored report.
// GET /api/admin/reports/{path...}
func (h *AdminHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeError(w, http.StatusNotFound, "reports disabled")
		return
	}
	path := pathParam(r, "path")
	body, err := h.reports.OpenReport(r.Context(), path)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer body.Close()

	contentType := "application/json"
	if strings.HasSuffix(path, ".jsonl") {
		contentType = "application/x-ndjson"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "handler: stream report",
			slog.String("path", path), slog.String("error", err.Error()))
	}
}
