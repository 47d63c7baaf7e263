package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alanyoungcy/lofbot/internal/arbitrage"
	"github.com/alanyoungcy/lofbot/internal/domain"
)

// ReportSink persists report documents. *s3blob.Exporter satisfies it.
type ReportSink interface {
	Prefix() string
	PutJSON(ctx context.Context, kind string, at time.Time, v any) (string, error)
	ExportRecords(ctx context.Context, records []domain.ArbitrageRecord, at time.Time) (string, int, error)
}

// ScreenReport is the document written for each scheduled screen.
type ScreenReport struct {
	GeneratedAt   time.Time                     `json:"generated_at"`
	FundCount     int                           `json:"fund_count"`
	Opportunities []domain.ArbitrageOpportunity `json:"opportunities"`
	Results       []domain.ArbitrageOpportunity `json:"results"`
}

// ReportResult lists the objects one Export run wrote.
type ReportResult struct {
	Paths   []string `json:"paths"`
	Records int      `json:"records"`
}

// ReportService exports screening results, admin statistics and a record
// dump to object storage on a schedule.
type ReportService struct {
	funds   *FundService
	records *RecordService
	sink    ReportSink
	reader  domain.BlobReader
	logger  *slog.Logger
}

// NewReportService creates a ReportService. reader may be nil, which
// disables ListReports and OpenReport.
func NewReportService(funds *FundService, records *RecordService, sink ReportSink, reader domain.BlobReader, logger *slog.Logger) *ReportService {
	return &ReportService{
		funds:   funds,
		records: records,
		sink:    sink,
		reader:  reader,
		logger:  logger.With(slog.String("component", "report_service")),
	}
}

// Export screens the fund universe and writes the screen, the admin
// statistics and every record. A failed step does not stop later ones; the
// joined error is returned with whatever was written.
func (s *ReportService) Export(ctx context.Context, at time.Time) (ReportResult, error) {
	var (
		res  ReportResult
		errs []error
	)

	codes, err := s.funds.FundCodes(ctx)
	if err == nil {
		results, screenErr := s.funds.ScreenFunds(ctx, codes)
		if screenErr != nil {
			errs = append(errs, screenErr)
		}
		report := ScreenReport{
			GeneratedAt:   at.UTC(),
			FundCount:     len(codes),
			Opportunities: arbitrage.FilterOpportunities(results),
			Results:       results,
		}
		if path, err := s.sink.PutJSON(ctx, "screen", at, report); err != nil {
			errs = append(errs, err)
		} else {
			res.Paths = append(res.Paths, path)
		}
	} else {
		errs = append(errs, err)
	}

	if stats, err := s.records.AdminStatistics(ctx); err != nil {
		errs = append(errs, err)
	} else if path, err := s.sink.PutJSON(ctx, "stats", at, stats); err != nil {
		errs = append(errs, err)
	} else {
		res.Paths = append(res.Paths, path)
	}

	if recs, err := s.records.ListAllRecords(ctx, domain.RecordFilter{}); err != nil {
		errs = append(errs, err)
	} else if path, n, err := s.sink.ExportRecords(ctx, recs, at); err != nil {
		errs = append(errs, err)
	} else if n > 0 {
		res.Paths = append(res.Paths, path)
		res.Records = n
	}

	if len(errs) > 0 {
		return res, fmt.Errorf("service: export report: %w", errors.Join(errs...))
	}
	s.logger.InfoContext(ctx, "report_service: report exported",
		slog.Int("objects", len(res.Paths)),
		slog.Int("records", res.Records),
	)
	return res, nil
}

// ListReports returns stored report objects, newest first.
func (s *ReportService) ListReports(ctx context.Context) ([]domain.BlobInfo, error) {
	if s.reader == nil {
		return nil, fmt.Errorf("service: list reports: %w", domain.ErrNotFound)
	}
	infos, err := s.reader.List(ctx, s.sink.Prefix()+"/")
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path > infos[j].Path })
	return infos, nil
}

// OpenReport returns the body of a stored report. Paths outside the report
// prefix are reported as domain.ErrNotFound.
func (s *ReportService) OpenReport(ctx context.Context, path string) (io.ReadCloser, error) {
	if s.reader == nil {
		return nil, fmt.Errorf("service: open report: %w", domain.ErrNotFound)
	}
	if !strings.HasPrefix(path, s.sink.Prefix()+"/") || strings.Contains(path, "..") {
		return nil, fmt.Errorf("service: open report %q: %w", path, domain.ErrNotFound)
	}
	body, err := s.reader.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("service: open report: %w", err)
	}
	return body, nil
}
