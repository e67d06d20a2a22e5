package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Subby02/web-project/internal/domain"
	"github.com/Subby02/web-project/internal/store/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	svc   *Service
	repo  *memory.Store
	clock *testClock
	logs  *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := memory.New()
	clock := &testClock{now: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	for _, p := range testCatalog(clock.now) {
		repo.PutProduct(p)
	}

	return &fixture{
		svc:   New(repo, Options{Now: clock.Now, Logger: logger}),
		repo:  repo,
		clock: clock,
		logs:  hook,
	}
}

func testCatalog(now time.Time) []domain.Product {
	saleStart := now.Add(-24 * time.Hour)
	saleEnd := now.Add(24 * time.Hour)
	return []domain.Product{
		{
			ID: "p-runner", Name: "Runner", BasePrice: 100000, Sizes: []string{"260", "270", "280"},
			ColorVariants: []domain.ColorVariant{
				{Name: "Black", Images: []string{"/img/runner-black.jpg"}},
				{Name: "White", Images: []string{"/img/runner-white.jpg"}},
			},
		},
		{
			ID: "p-sale", Name: "Sale Shoe", BasePrice: 10000, DiscountRate: 30,
			SaleStart: &saleStart, SaleEnd: &saleEnd, Sizes: []string{"270"},
			ColorVariants: []domain.ColorVariant{{Name: "Grey", Images: []string{"/img/sale-grey.jpg"}}},
		},
		{
			ID: "p-plain", Name: "Plain Shoe", BasePrice: 50000, Sizes: []string{"270"},
		},
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	events []domain.CartEvent
}

func (o *recordingObserver) Publish(_ context.Context, event domain.CartEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
	return nil
}

func (o *recordingObserver) Events() []domain.CartEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.CartEvent(nil), o.events...)
}

func ptr[T any](v T) *T {
	return &v
}
