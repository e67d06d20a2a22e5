package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Subby02/web-project/internal/domain"
	"github.com/Subby02/web-project/internal/pricing"
	"github.com/Subby02/web-project/internal/store"
	"github.com/Subby02/web-project/internal/xid"
)

const orderIDAttempts = 5

const unknownProductName = "unknown product"

type orderLine struct {
	productID string
	size      string
	color     string
	quantity  int
}

// PlaceOrder turns explicit items, or the owner's whole cart when items is
// empty, into one order per line priced at the current time. Lines whose
// product no longer exists are skipped. The cart is cleared only when it was
// the source.
func (s *Service) PlaceOrder(ctx context.Context, userID string, items []domain.OrderItemRequest) ([]domain.OrderView, error) {
	fromCart := len(items) == 0

	var lines []orderLine
	if fromCart {
		cartLines, err := s.repo.ListCartLines(ctx, userID)
		if err != nil {
			return nil, err
		}
		sortByRecency(cartLines)
		for _, line := range cartLines {
			lines = append(lines, orderLine{productID: line.ProductID, size: line.Size, color: line.Color, quantity: line.Quantity})
		}
	} else {
		for _, item := range items {
			productID := strings.TrimSpace(item.ProductID)
			size := strings.TrimSpace(string(item.Size))
			if productID == "" || size == "" {
				return nil, fmt.Errorf("%w: every item needs productId and size", ErrMissingField)
			}
			if item.Quantity < 1 {
				return nil, ErrInvalidQuantity
			}
			color := ""
			if item.Color != nil {
				color = strings.TrimSpace(*item.Color)
			}
			lines = append(lines, orderLine{productID: productID, size: size, color: color, quantity: item.Quantity})
		}
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.productID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	views := make([]domain.OrderView, 0, len(lines))
	for _, line := range lines {
		product, ok := products[line.productID]
		if !ok {
			s.log.WithFields(logrus.Fields{"user": userID, "product": line.productID}).Warn("order line skipped: product not found")
			continue
		}

		quote := pricing.Resolve(product, now)
		order, err := s.createOrder(ctx, domain.Order{
			UserID:     userID,
			ProductID:  product.ID,
			Quantity:   line.quantity,
			Size:       line.size,
			Color:      line.color,
			PaidAmount: quote.UnitPrice,
			Date:       now,
		}, now)
		if err != nil {
			return nil, err
		}
		views = append(views, orderView(*order, &product))
	}

	if len(views) == 0 {
		return nil, ErrNoOrderableItems
	}

	if fromCart {
		if _, err := s.repo.ClearCart(ctx, userID); err != nil {
			s.log.WithError(err).WithField("user", userID).Warn("orders placed but cart clear failed")
		} else {
			s.notifyCart(ctx, userID, domain.CartActionClear)
		}
	}

	s.log.WithFields(logrus.Fields{"user": userID, "orders": len(views), "fromCart": fromCart}).Info("orders placed")
	return views, nil
}

// createOrder allocates an order id, retrying on the rare collision.
func (s *Service) createOrder(ctx context.Context, order domain.Order, now time.Time) (*domain.Order, error) {
	for attempt := 1; attempt <= orderIDAttempts; attempt++ {
		order.OrderID = xid.NewOrderID(now)
		created, err := s.repo.CreateOrder(ctx, order)
		if errors.Is(err, store.ErrConflict) {
			s.log.WithFields(logrus.Fields{"orderId": order.OrderID, "attempt": attempt}).Debug("order id collision, retrying")
			continue
		}
		return created, err
	}
	return nil, fmt.Errorf("allocate order id after %d attempts: %w", orderIDAttempts, store.ErrConflict)
}

// ListOrders returns the user's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, userID string) ([]domain.OrderView, error) {
	orders, err := s.repo.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.orderViews(ctx, orders)
}

func (s *Service) GetOrder(ctx context.Context, userID string, orderID string) (domain.OrderView, error) {
	order, err := s.repo.GetOrder(ctx, userID, strings.TrimSpace(orderID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.OrderView{}, notFound("order")
		}
		return domain.OrderView{}, err
	}
	views, err := s.orderViews(ctx, []domain.Order{*order})
	if err != nil {
		return domain.OrderView{}, err
	}
	return views[0], nil
}

func (s *Service) orderViews(ctx context.Context, orders []domain.Order) ([]domain.OrderView, error) {
	ids := make([]string, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]domain.OrderView, 0, len(orders))
	for _, order := range orders {
		var product *domain.Product
		if p, ok := products[order.ProductID]; ok {
			product = &p
		}
		views = append(views, orderView(order, product))
	}
	return views, nil
}

// orderView pairs the stored snapshot with live catalog data for display.
// PaidAmount and TotalPrice always come from the order itself.
func orderView(order domain.Order, product *domain.Product) domain.OrderView {
	view := domain.OrderView{
		ID:          order.ID,
		OrderID:     order.OrderID,
		ProductID:   order.ProductID,
		ProductName: unknownProductName,
		Size:        order.Size,
		Color:       domain.OptionalString(order.Color),
		Quantity:    order.Quantity,
		PaidAmount:  order.PaidAmount,
		TotalPrice:  order.PaidAmount * int64(order.Quantity),
		Date:        order.Date,
	}
	if product != nil {
		view.ProductName = product.Name
		view.ProductImage = product.Image(order.Color)
		view.Price = product.BasePrice
	}
	return view
}
