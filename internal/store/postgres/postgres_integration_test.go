package postgres

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Subby02/web-project/internal/domain"
	"github.com/Subby02/web-project/internal/store"
	"github.com/Subby02/web-project/internal/store/memory"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("WEBPROJECT_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set WEBPROJECT_TEST_DATABASE_URL to run postgres integration test")
	}

	s, err := New(context.Background(), databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	require.NoError(t, s.Migrate())
	return s
}

func TestUpsertCartLineMergesConcurrentAdds(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	owner := fmt.Sprintf("usr-it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = s.ClearCart(ctx, owner)
	})

	line := domain.CartLine{OwnerID: owner, ProductID: "prd-wool-runner", Size: "270", Color: "Natural Black"}

	const workers = 8
	var wg sync.WaitGroup
	created := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, isNew, err := s.UpsertCartLine(ctx, line, 1)
			assert.NoError(t, err)
			created <- isNew
		}()
	}
	wg.Wait()
	close(created)

	inserts := 0
	for isNew := range created {
		if isNew {
			inserts++
		}
	}
	assert.Equal(t, 1, inserts)

	lines, err := s.ListCartLines(ctx, owner)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, workers, lines[0].Quantity)
}

func TestUpsertCartLineKeepsNoColorDistinct(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	owner := fmt.Sprintf("usr-it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = s.ClearCart(ctx, owner)
	})

	_, _, err := s.UpsertCartLine(ctx, domain.CartLine{OwnerID: owner, ProductID: "prd-plant-pacer", Size: "280"}, 2)
	require.NoError(t, err)
	_, _, err = s.UpsertCartLine(ctx, domain.CartLine{OwnerID: owner, ProductID: "prd-plant-pacer", Size: "280", Color: "Natural Black"}, 1)
	require.NoError(t, err)

	lines, err := s.ListCartLines(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestCreateOrderRejectsDuplicateOrderID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	stamp := time.Now().UnixNano()
	user := fmt.Sprintf("usr-it-%d", stamp)
	orderID := fmt.Sprintf("ORD-%d-0001", stamp)
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM orders WHERE user_id = $1`, user)
	})

	order := domain.Order{
		OrderID: orderID, UserID: user, ProductID: "prd-wool-runner",
		Quantity: 2, Size: "270", PaidAmount: 111200, Date: time.Now().UTC(),
	}
	_, err := s.CreateOrder(ctx, order)
	require.NoError(t, err)

	_, err = s.CreateOrder(ctx, order)
	assert.ErrorIs(t, err, store.ErrConflict)

	got, err := s.GetOrder(ctx, user, orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(111200), got.PaidAmount)

	_, err = s.GetOrder(ctx, "someone-else", orderID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateProductDiscountRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	original, err := s.GetProduct(ctx, "prd-wool-lounger")
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = s.UpdateProductDiscount(ctx, original.ID, original.DiscountRate, original.SaleStart, original.SaleEnd)
	})

	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 5, 31, 23, 59, 59, 999_000_000, time.UTC)
	updated, err := s.UpdateProductDiscount(ctx, original.ID, 15, &start, &end)
	require.NoError(t, err)
	assert.Equal(t, 15.0, updated.DiscountRate)
	require.NotNil(t, updated.SaleEnd)
	assert.True(t, updated.SaleEnd.Equal(end))
	assert.NotEmpty(t, updated.ColorVariants)
}

func TestAdjustCartLineNeverRecreatesDeletedLine(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	owner := fmt.Sprintf("usr-it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = s.ClearCart(ctx, owner)
	})

	line, _, err := s.UpsertCartLine(ctx, domain.CartLine{OwnerID: owner, ProductID: "prd-wool-runner", Size: "270", Color: "Natural Black"}, 2)
	require.NoError(t, err)

	adjusted, removed, err := s.AdjustCartLine(ctx, owner, line.ID, -1)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 1, adjusted.Quantity)

	_, _, err = s.AdjustCartLine(ctx, "someone-else", line.ID, -1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteCartLine(ctx, owner, line.ID))
	_, _, err = s.AdjustCartLine(ctx, owner, line.ID, -1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	lines, err := s.ListCartLines(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestAdjustCartLineDeletesAtZero(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	owner := fmt.Sprintf("usr-it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = s.ClearCart(ctx, owner)
	})

	line, _, err := s.UpsertCartLine(ctx, domain.CartLine{OwnerID: owner, ProductID: "prd-plant-pacer", Size: "270"}, 1)
	require.NoError(t, err)

	_, removed, err := s.AdjustCartLine(ctx, owner, line.ID, -5)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = s.GetCartLine(ctx, owner, line.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpsertCartLineRejectsOverflowingMerge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	owner := fmt.Sprintf("usr-it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = s.ClearCart(ctx, owner)
	})

	line := domain.CartLine{OwnerID: owner, ProductID: "prd-wool-runner", Size: "280", Color: "Stony Cream"}
	_, _, err := s.UpsertCartLine(ctx, line, store.MaxLineQuantity)
	require.NoError(t, err)

	_, _, err = s.UpsertCartLine(ctx, line, 2)
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	lines, err := s.ListCartLines(ctx, owner)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, store.MaxLineQuantity, lines[0].Quantity)
}

func TestSeedCatalogMatchesMemorySeed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want, err := memory.NewSeeded().ListProducts(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(want))
	for _, p := range want {
		ids = append(ids, p.ID)
	}
	got, err := s.GetProductsByIDs(ctx, ids)
	require.NoError(t, err)
	require.Len(t, got, len(want))

	for _, p := range want {
		seeded := got[p.ID]
		assert.Equal(t, p.BasePrice, seeded.BasePrice, p.ID)
		assert.Equal(t, p.DiscountRate, seeded.DiscountRate, p.ID)
		assert.Equal(t, p.SaleStart != nil, seeded.SaleStart != nil, p.ID)
		assert.Len(t, seeded.ColorVariants, len(p.ColorVariants), p.ID)
	}
}
