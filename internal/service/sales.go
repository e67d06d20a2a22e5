package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Subby02/web-project/internal/domain"
)

// endOfDay is the last millisecond of a calendar day.
const endOfDay = 24*time.Hour - time.Millisecond

// SalesReport aggregates orders dated within [start, end] by product. Both
// bounds are calendar days in the service location and end is inclusive
// through its last millisecond. Revenue uses each order's stored paid
// amount, never the live price.
func (s *Service) SalesReport(ctx context.Context, start string, end string) (domain.SalesReport, error) {
	from, err := s.parseDay(start)
	if err != nil {
		return domain.SalesReport{}, fmt.Errorf("%w: start: %v", ErrInvalidRange, err)
	}
	toDay, err := s.parseDay(end)
	if err != nil {
		return domain.SalesReport{}, fmt.Errorf("%w: end: %v", ErrInvalidRange, err)
	}
	if from.After(toDay) {
		return domain.SalesReport{}, fmt.Errorf("%w: start is after end", ErrInvalidRange)
	}
	to := toDay.Add(endOfDay)

	orders, err := s.repo.ListOrdersBetween(ctx, from, to)
	if err != nil {
		return domain.SalesReport{}, err
	}

	rows := make([]domain.SalesSummaryRow, 0, 16)
	index := make(map[string]int, 16)
	for _, order := range orders {
		i, ok := index[order.ProductID]
		if !ok {
			i = len(rows)
			index[order.ProductID] = i
			rows = append(rows, domain.SalesSummaryRow{ProductID: order.ProductID})
		}
		rows[i].Units += int64(order.Quantity)
		rows[i].Revenue += order.PaidAmount * int64(order.Quantity)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return domain.SalesReport{}, err
	}

	var totals domain.SalesTotals
	for i := range rows {
		rows[i].Name = unknownProductName
		if product, ok := products[rows[i].ProductID]; ok {
			rows[i].Name = product.Name
		}
		totals.Units += rows[i].Units
		totals.Revenue += rows[i].Revenue
	}

	// Ties keep group-creation order.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Revenue > rows[j].Revenue
	})

	return domain.SalesReport{
		Range: domain.SalesRange{
			Start: from.Format(domain.DateLayout),
			End:   toDay.Format(domain.DateLayout),
		},
		Items:  rows,
		Totals: totals,
	}, nil
}

// parseDay accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the start
// of that calendar day in the service location.
func (s *Service) parseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if day, err := time.ParseInLocation(domain.DateLayout, raw, s.loc); err == nil {
		return day, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a date", raw)
	}
	ts = ts.In(s.loc)
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, s.loc), nil
}
