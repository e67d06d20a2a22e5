package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Subby02/web-project/internal/domain"
	"github.com/Subby02/web-project/internal/pricing"
	"github.com/Subby02/web-project/internal/store"
)

func (s *Service) ListProducts(ctx context.Context) ([]domain.ProductView, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]domain.ProductView, 0, len(products))
	for _, product := range products {
		views = append(views, s.productView(product, now))
	}
	return views, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.ProductView, error) {
	product, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ProductView{}, notFound("product")
		}
		return domain.ProductView{}, err
	}
	return s.productView(*product, s.now()), nil
}

// UpdateDiscount edits a product's discount schedule. Omitted fields keep
// their stored value and an empty date clears that bound. The merged
// schedule must have both bounds or neither, with start not after end.
func (s *Service) UpdateDiscount(ctx context.Context, productID string, req domain.DiscountUpdateRequest) (domain.DiscountView, error) {
	product, err := s.repo.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.DiscountView{}, notFound("product")
		}
		return domain.DiscountView{}, err
	}

	rate := product.DiscountRate
	if req.DiscountRate != nil {
		rate = *req.DiscountRate
		if math.IsNaN(rate) || rate < 0 || rate > 100 {
			return domain.DiscountView{}, fmt.Errorf("%w: discountRate must be between 0 and 100", ErrInvalidDiscount)
		}
	}

	saleStart, saleEnd := product.SaleStart, product.SaleEnd
	if req.SaleStart != nil {
		if saleStart, err = s.parseBound(*req.SaleStart, false); err != nil {
			return domain.DiscountView{}, fmt.Errorf("%w: saleStart: %v", ErrInvalidDiscount, err)
		}
	}
	if req.SaleEnd != nil {
		if saleEnd, err = s.parseBound(*req.SaleEnd, true); err != nil {
			return domain.DiscountView{}, fmt.Errorf("%w: saleEnd: %v", ErrInvalidDiscount, err)
		}
	}
	if (saleStart == nil) != (saleEnd == nil) {
		return domain.DiscountView{}, fmt.Errorf("%w: saleStart and saleEnd must be set together", ErrInvalidDiscount)
	}
	if saleStart != nil && saleStart.After(*saleEnd) {
		return domain.DiscountView{}, fmt.Errorf("%w: saleStart is after saleEnd", ErrInvalidDiscount)
	}

	updated, err := s.repo.UpdateProductDiscount(ctx, product.ID, rate, saleStart, saleEnd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.DiscountView{}, notFound("product")
		}
		return domain.DiscountView{}, err
	}

	actor, _ := ActorFromContext(ctx)
	s.log.WithFields(logrus.Fields{
		"product": updated.ID,
		"rate":    updated.DiscountRate,
		"actor":   actor.Username,
	}).Info("discount schedule updated")

	return domain.DiscountView{
		ID:           updated.ID,
		DiscountRate: updated.DiscountRate,
		SaleStart:    domain.FormatDate(updated.SaleStart, s.loc),
		SaleEnd:      domain.FormatDate(updated.SaleEnd, s.loc),
	}, nil
}

// parseBound reads a sale window bound. A bare date covers the whole day: it
// starts at midnight, or ends at the last millisecond when endBound is set.
func (s *Service) parseBound(raw string, endBound bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if day, err := time.ParseInLocation(domain.DateLayout, raw, s.loc); err == nil {
		if endBound {
			day = day.Add(endOfDay)
		}
		return &day, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%q is not a date", raw)
	}
	return &ts, nil
}

func (s *Service) productView(product domain.Product, now time.Time) domain.ProductView {
	quote := pricing.Resolve(product, now)
	view := domain.ProductView{
		ID:            product.ID,
		Name:          product.Name,
		Description:   product.Description,
		Price:         product.BasePrice,
		UnitPrice:     quote.UnitPrice,
		IsDiscounted:  quote.IsDiscounted,
		DiscountRate:  product.DiscountRate,
		SaleStart:     domain.FormatDate(product.SaleStart, s.loc),
		SaleEnd:       domain.FormatDate(product.SaleEnd, s.loc),
		Sizes:         product.Sizes,
		ColorVariants: product.ColorVariants,
		Image:         product.Image(""),
	}
	if !product.ReleaseDate.IsZero() {
		view.ReleaseDate = product.ReleaseDate.In(s.loc).Format(domain.DateLayout)
	}
	if view.Sizes == nil {
		view.Sizes = []string{}
	}
	if view.ColorVariants == nil {
		view.ColorVariants = []domain.ColorVariant{}
	}
	return view
}
