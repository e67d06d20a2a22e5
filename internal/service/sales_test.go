package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Subby02/web-project/internal/domain"
)

func seedOrder(t *testing.T, f *fixture, productID string, quantity int, paid int64, at time.Time) {
	t.Helper()
	_, err := f.repo.CreateOrder(context.Background(), domain.Order{
		OrderID:    fmt.Sprintf("ORD-%d-%04d", at.UnixNano(), quantity),
		UserID:     "u1",
		ProductID:  productID,
		Quantity:   quantity,
		Size:       "270",
		PaidAmount: paid,
		Date:       at,
	})
	require.NoError(t, err)
}

func TestSalesReportUsesStoredPaidAmount(t *testing.T) {
	f := newFixture(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	seedOrder(t, f, "p-runner", 2, 100, day.Add(9*time.Hour))
	seedOrder(t, f, "p-runner", 1, 120, day.Add(15*time.Hour))
	seedOrder(t, f, "p-plain", 1, 500, day.Add(16*time.Hour))

	product, err := f.repo.GetProduct(context.Background(), "p-runner")
	require.NoError(t, err)
	product.BasePrice = 999999
	f.repo.PutProduct(*product)

	report, err := f.svc.SalesReport(context.Background(), "2026-03-10", "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, domain.SalesRange{Start: "2026-03-10", End: "2026-03-10"}, report.Range)
	require.Len(t, report.Items, 2)

	assert.Equal(t, "p-plain", report.Items[0].ProductID)
	assert.Equal(t, int64(500), report.Items[0].Revenue)
	assert.Equal(t, "p-runner", report.Items[1].ProductID)
	assert.Equal(t, "Runner", report.Items[1].Name)
	assert.Equal(t, int64(3), report.Items[1].Units)
	assert.Equal(t, int64(320), report.Items[1].Revenue)

	assert.Equal(t, domain.SalesTotals{Units: 4, Revenue: 820}, report.Totals)
}

func TestSalesReportEndDayIsInclusive(t *testing.T) {
	f := newFixture(t)
	end := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	seedOrder(t, f, "p-runner", 1, 100, end.Add(24*time.Hour-time.Millisecond))
	seedOrder(t, f, "p-plain", 1, 100, end.Add(24*time.Hour))
	seedOrder(t, f, "p-sale", 1, 100, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))

	report, err := f.svc.SalesReport(context.Background(), "2026-03-10", "2026-03-12")
	require.NoError(t, err)
	require.Len(t, report.Items, 2)
	assert.Equal(t, "p-runner", report.Items[0].ProductID)
	assert.Equal(t, "p-sale", report.Items[1].ProductID)
}

func TestSalesReportTiesKeepFirstSeenOrder(t *testing.T) {
	f := newFixture(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	seedOrder(t, f, "p-plain", 1, 200, day.Add(1*time.Hour))
	seedOrder(t, f, "p-runner", 2, 100, day.Add(2*time.Hour))

	report, err := f.svc.SalesReport(context.Background(), "2026-03-10", "2026-03-10")
	require.NoError(t, err)
	require.Len(t, report.Items, 2)
	assert.Equal(t, "p-plain", report.Items[0].ProductID)
	assert.Equal(t, "p-runner", report.Items[1].ProductID)
}

func TestSalesReportRejectsBadRanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for name, bounds := range map[string][2]string{
		"missing start": {"", "2026-03-10"},
		"missing end":   {"2026-03-10", ""},
		"garbage":       {"yesterday", "2026-03-10"},
		"reversed":      {"2026-03-11", "2026-03-10"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.SalesReport(ctx, bounds[0], bounds[1])
			assert.ErrorIs(t, err, ErrInvalidRange)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestSalesReportHonoursLocation(t *testing.T) {
	f := newFixture(t)
	seoul := time.FixedZone("KST", 9*3600)
	svc := New(f.repo, Options{Now: f.clock.Now, Location: seoul})

	// 2026-03-10 23:30 in Seoul is still 2026-03-10 14:30 UTC.
	seedOrder(t, f, "p-runner", 1, 100, time.Date(2026, 3, 10, 23, 30, 0, 0, seoul))
	// 2026-03-11 01:00 in Seoul falls on the 10th in UTC but not in Seoul.
	seedOrder(t, f, "p-plain", 1, 100, time.Date(2026, 3, 11, 1, 0, 0, 0, seoul))

	report, err := svc.SalesReport(context.Background(), "2026-03-10", "2026-03-10")
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, "p-runner", report.Items[0].ProductID)
}
