package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Subby02/web-project/internal/domain"
	"github.com/Subby02/web-project/internal/pricing"
	"github.com/Subby02/web-project/internal/store"
)

// ListCart returns the owner's cart, newest line first, priced at the
// current time. Lines whose product has left the catalog are not shown;
// they are dropped when the cart is next checked out.
func (s *Service) ListCart(ctx context.Context, ownerID string) ([]domain.CartLineView, error) {
	lines, err := s.repo.ListCartLines(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	sortByRecency(lines)

	products, err := s.repo.GetProductsByIDs(ctx, productIDs(lines))
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]domain.CartLineView, 0, len(lines))
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			s.log.WithFields(logrus.Fields{"owner": ownerID, "line": line.ID, "product": line.ProductID}).Debug("cart line references missing product")
			continue
		}
		quote := pricing.Resolve(product, now)
		views = append(views, domain.CartLineView{
			ID:           line.ID,
			ProductID:    line.ProductID,
			ProductName:  product.Name,
			Price:        product.BasePrice,
			UnitPrice:    quote.UnitPrice,
			IsDiscounted: quote.IsDiscounted,
			Image:        domain.OptionalString(product.Image(line.Color)),
			Color:        domain.OptionalString(line.Color),
			Size:         line.Size,
			Quantity:     line.Quantity,
		})
	}
	return views, nil
}

// AddToCart merges the request into the owner's cart. The returned bool is
// true when a new line was created.
func (s *Service) AddToCart(ctx context.Context, ownerID string, req domain.AddToCartRequest) (domain.CartLineResponse, bool, error) {
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	line, created, err := s.addLine(ctx, ownerID, req.ProductID, string(req.Size), req.Color, quantity)
	if err != nil {
		return domain.CartLineResponse{}, false, err
	}
	s.notifyCart(ctx, ownerID, domain.CartActionAdd)

	resp := lineResponse(*line)
	if created {
		resp.Message = "added to cart"
	} else {
		resp.Message = "cart quantity updated"
	}
	return resp, created, nil
}

// addLine is the merge engine: it resolves the product, applies the default
// color policy and upserts by (owner, product, size, color).
func (s *Service) addLine(ctx context.Context, ownerID string, productID string, size string, color *string, quantity int) (*domain.CartLine, bool, error) {
	productID = strings.TrimSpace(productID)
	size = strings.TrimSpace(size)
	if productID == "" || size == "" {
		return nil, false, fmt.Errorf("%w: productId and size are required", ErrMissingField)
	}
	if quantity < 1 || quantity > store.MaxLineQuantity {
		return nil, false, ErrInvalidQuantity
	}

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, notFound("product")
		}
		return nil, false, err
	}

	// An omitted color takes the product's default variant once, here. An
	// explicit color, even an empty one, is stored as given.
	var resolved string
	if color == nil {
		resolved, _ = product.DefaultColor()
	} else {
		resolved = strings.TrimSpace(*color)
	}

	line, created, err := s.repo.UpsertCartLine(ctx, domain.CartLine{
		OwnerID:   ownerID,
		ProductID: product.ID,
		Size:      size,
		Color:     resolved,
	}, quantity)
	if err != nil {
		if errors.Is(err, store.ErrInvalidInput) {
			return nil, false, fmt.Errorf("%w: merged quantity out of range", ErrInvalidQuantity)
		}
		return nil, false, err
	}
	return line, created, nil
}

func (s *Service) SetQuantity(ctx context.Context, ownerID string, lineID string, quantity *int) (domain.CartLineResponse, error) {
	if quantity == nil || *quantity < 1 || *quantity > store.MaxLineQuantity {
		return domain.CartLineResponse{}, ErrInvalidQuantity
	}

	line, err := s.repo.SetCartLineQuantity(ctx, ownerID, lineID, *quantity)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.CartLineResponse{}, notFound("cart item")
		}
		return domain.CartLineResponse{}, err
	}
	s.notifyCart(ctx, ownerID, domain.CartActionUpdate)

	resp := lineResponse(*line)
	resp.Message = "quantity updated"
	return resp, nil
}

// AdjustLine applies a signed delta to an existing line. A result of zero or
// less deletes the line, reported by the returned bool.
func (s *Service) AdjustLine(ctx context.Context, ownerID string, lineID string, delta int) (domain.CartLineResponse, bool, error) {
	if delta == 0 {
		return domain.CartLineResponse{}, false, fmt.Errorf("%w: delta must not be zero", ErrInvalidQuantity)
	}

	line, removed, err := s.repo.AdjustCartLine(ctx, ownerID, lineID, delta)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return domain.CartLineResponse{}, false, notFound("cart item")
		case errors.Is(err, store.ErrInvalidInput):
			return domain.CartLineResponse{}, false, fmt.Errorf("%w: quantity out of range", ErrInvalidQuantity)
		}
		return domain.CartLineResponse{}, false, err
	}

	if removed {
		s.notifyCart(ctx, ownerID, domain.CartActionRemove)

		resp := lineResponse(*line)
		resp.Quantity = 0
		resp.Message = "removed from cart"
		return resp, true, nil
	}

	s.notifyCart(ctx, ownerID, domain.CartActionUpdate)
	resp := lineResponse(*line)
	resp.Message = "quantity updated"
	return resp, false, nil
}

func (s *Service) RemoveLine(ctx context.Context, ownerID string, lineID string) error {
	if err := s.repo.DeleteCartLine(ctx, ownerID, lineID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("cart item")
		}
		return err
	}
	s.notifyCart(ctx, ownerID, domain.CartActionRemove)
	return nil
}

func (s *Service) ClearCart(ctx context.Context, ownerID string) (int, error) {
	removed, err := s.repo.ClearCart(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	s.notifyCart(ctx, ownerID, domain.CartActionClear)
	return removed, nil
}

// CartCount is the badge value: the sum of quantities over the lines ListCart
// shows, so lines whose product is gone are not counted.
func (s *Service) CartCount(ctx context.Context, ownerID string) (int, error) {
	lines, err := s.repo.ListCartLines(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, nil
	}
	products, err := s.repo.GetProductsByIDs(ctx, productIDs(lines))
	if err != nil {
		return 0, err
	}
	count := 0
	for _, line := range lines {
		if _, ok := products[line.ProductID]; ok {
			count += line.Quantity
		}
	}
	return count, nil
}

func lineResponse(line domain.CartLine) domain.CartLineResponse {
	return domain.CartLineResponse{
		ID:        line.ID,
		ProductID: line.ProductID,
		Size:      line.Size,
		Color:     domain.OptionalString(line.Color),
		Quantity:  line.Quantity,
	}
}

func sortByRecency(lines []domain.CartLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		if !lines[i].CreatedAt.Equal(lines[j].CreatedAt) {
			return lines[i].CreatedAt.After(lines[j].CreatedAt)
		}
		return lines[i].ID < lines[j].ID
	})
}

func productIDs(lines []domain.CartLine) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}
