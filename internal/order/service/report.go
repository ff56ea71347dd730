package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/doorcalc/internal/order/domain"
	"github.com/smallbiznis/doorcalc/internal/pricing"
)

const reportDateLayout = "2006-01-02"

// Report summarizes the orders created within the requested days. Progress is
// taken as of the end day, or today when the range is open.
func (s *Service) Report(ctx context.Context, req domain.ReportRequest) (domain.Report, error) {
	report := domain.Report{}
	start, end := parseReportRange(req.StartDate, req.EndDate)

	var from, to *time.Time
	if start != nil {
		from = start
		report.StartDate = start
	}
	if end != nil {
		next := end.AddDate(0, 0, 1)
		to = &next
		report.EndDate = end
	}
	report.AsOf = startOfDay(s.clock.Now())
	if end != nil {
		report.AsOf = *end
	}

	orders, err := s.repo.ListOrdersCreatedBetween(ctx, s.db, from, to)
	if err != nil {
		return domain.Report{}, err
	}
	ids := make([]snowflake.ID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	latest, err := s.repo.LatestProgress(ctx, s.db, ids, report.AsOf)
	if err != nil {
		return domain.Report{}, err
	}

	return summarizeReport(report, orders, latest), nil
}

func summarizeReport(report domain.Report, orders []domain.Order, latest map[snowflake.ID]domain.Progress) domain.Report {
	report.Rows = make([]domain.ReportRow, 0, len(orders))
	report.Active = []domain.ReportRow{}
	report.Postponed = []domain.ReportRow{}
	report.TotalValue = decimal.Zero
	report.AverageProgress = decimal.Zero

	progressSum := 0
	for _, o := range orders {
		row := domain.ReportRow{Order: o, Progress: o.CompletionPercent}
		if entry, ok := latest[o.ID]; ok {
			row.Progress = entry.Percent
		}
		report.Rows = append(report.Rows, row)

		if o.Status == domain.StatusPostponed {
			report.Postponed = append(report.Postponed, row)
			continue
		}
		report.Active = append(report.Active, row)
		report.TotalValue = report.TotalValue.Add(o.TotalCost)
		progressSum += row.Progress
	}
	report.TotalValue = pricing.Round2(report.TotalValue)
	if n := len(report.Active); n > 0 {
		report.AverageProgress = pricing.Round2(decimal.NewFromInt(int64(progressSum)).Div(decimal.NewFromInt(int64(n))))
	}
	return report
}

// parseReportRange reads both bounds; one unreadable bound drops both.
func parseReportRange(startRaw, endRaw string) (*time.Time, *time.Time) {
	var start, end *time.Time
	if raw := strings.TrimSpace(startRaw); raw != "" {
		t, err := time.Parse(reportDateLayout, raw)
		if err != nil {
			return nil, nil
		}
		start = &t
	}
	if raw := strings.TrimSpace(endRaw); raw != "" {
		t, err := time.Parse(reportDateLayout, raw)
		if err != nil {
			return nil, nil
		}
		end = &t
	}
	return start, end
}
