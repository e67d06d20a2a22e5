package memory

import (
	"context"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Subby02/web-project/internal/domain"
	"github.com/Subby02/web-project/internal/store"
	"github.com/Subby02/web-project/internal/xid"
)

type Store struct {
	mu           sync.RWMutex
	products     map[string]domain.Product
	productOrder []string
	cartLines    map[string]domain.CartLine
	cartKeys     map[domain.CartKey]string
	orders       []domain.Order
	orderIDs     map[string]struct{}
	users        map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		products:  make(map[string]domain.Product),
		cartLines: make(map[string]domain.CartLine),
		cartKeys:  make(map[domain.CartKey]string),
		orders:    make([]domain.Order, 0, 64),
		orderIDs:  make(map[string]struct{}),
		users:     make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store with a demo catalog and two accounts. Seed
// passwords come from SEED_ADMIN_PASSWORD and SEED_CUSTOMER_PASSWORD.
func NewSeeded() *Store {
	s := New()
	for _, p := range seedProducts(time.Now().UTC()) {
		s.PutProduct(p)
	}
	for _, u := range seedUsers() {
		s.users[u.Username] = u
	}
	return s
}

func seedProducts(now time.Time) []domain.Product {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	activeStart := day.AddDate(0, 0, -7)
	activeEnd := day.AddDate(0, 0, 7)
	pastStart := day.AddDate(0, -2, 0)
	pastEnd := day.AddDate(0, -1, 0)
	sizes := []string{"260", "265", "270", "275", "280", "285", "290", "295", "300"}

	return []domain.Product{
		{
			ID: "prd-wool-runner", Name: "Wool Runner", Description: "Everyday merino wool sneaker.",
			BasePrice: 139000, Sizes: sizes, ReleaseDate: day.AddDate(0, -6, 0),
			ColorVariants: []domain.ColorVariant{
				{Name: "Natural Black", Images: []string{"/images/wool-runner-black-1.jpg"}},
				{Name: "Stony Cream", Images: []string{"/images/wool-runner-cream-1.jpg"}},
			},
		},
		{
			ID: "prd-tree-runner", Name: "Tree Runner", Description: "Breathable eucalyptus knit runner.",
			BasePrice: 139000, DiscountRate: 20, SaleStart: &activeStart, SaleEnd: &activeEnd,
			Sizes: sizes, ReleaseDate: day.AddDate(0, 0, -10),
			ColorVariants: []domain.ColorVariant{
				{Name: "Kaikoura White", Images: []string{"/images/tree-runner-white-1.jpg"}, Thumbnail: "/images/tree-runner-white-thumb.jpg"},
				{Name: "Jet Black", Images: []string{"/images/tree-runner-black-1.jpg"}},
			},
		},
		{
			ID: "prd-wool-lounger", Name: "Wool Lounger", Description: "Slip-on wool lounger.",
			BasePrice: 119000, Sizes: sizes, ReleaseDate: day.AddDate(-1, 0, 0),
			ColorVariants: []domain.ColorVariant{
				{Name: "Charcoal", Images: []string{"/images/wool-lounger-charcoal-1.jpg"}},
			},
		},
		{
			ID: "prd-tree-dasher", Name: "Tree Dasher 2", Description: "Cushioned running shoe.",
			BasePrice: 169000, DiscountRate: 30, SaleStart: &pastStart, SaleEnd: &pastEnd,
			Sizes: sizes, ReleaseDate: day.AddDate(0, -3, 0),
			ColorVariants: []domain.ColorVariant{
				{Name: "Blizzard", Images: []string{"/images/tree-dasher-blizzard-1.jpg"}},
				{Name: "Thunder", Images: []string{"/images/tree-dasher-thunder-1.jpg"}},
			},
		},
		{
			ID: "prd-plant-pacer", Name: "Plant Pacer", Description: "Plant-based leather sneaker.",
			BasePrice: 149000, Sizes: sizes, ReleaseDate: day.AddDate(0, -1, 0),
		},
	}
}

func seedUsers() []domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	customerPwd := envOr("SEED_CUSTOMER_PASSWORD", "shopper123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CUSTOMER_PASSWORD") == "" {
		log.WithField("component", "store").Warn("using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_CUSTOMER_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := make([]domain.UserAccount, 0, 2)
	for _, u := range []struct {
		id       string
		username string
		password string
		role     string
	}{
		{"usr-admin", "admin", adminPwd, domain.RoleAdmin},
		{"usr-shopper", "shopper", customerPwd, domain.RoleCustomer},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.WithError(err).Fatalf("failed to hash seed password for %s", u.username)
		}
		users = append(users, domain.UserAccount{
			ID:        u.id,
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		})
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// PutProduct inserts or replaces a catalog product. The catalog is owned by an
// external collaborator; this is its write path for the in-memory adapter.
func (s *Store) PutProduct(product domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[product.ID]; !exists {
		s.productOrder = append(s.productOrder, product.ID)
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.products[product.ID] = cloneProduct(product)
}

func (s *Store) DeleteProduct(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
	s.productOrder = slices.DeleteFunc(s.productOrder, func(v string) bool { return v == id })
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		out = append(out, cloneProduct(s.products[id]))
	}
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneProduct(product)
	return &out, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			result[id] = cloneProduct(product)
		}
	}
	return result, nil
}

func (s *Store) UpdateProductDiscount(_ context.Context, id string, rate float64, saleStart *time.Time, saleEnd *time.Time) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	product.DiscountRate = rate
	product.SaleStart = cloneTime(saleStart)
	product.SaleEnd = cloneTime(saleEnd)
	s.products[id] = product

	out := cloneProduct(product)
	return &out, nil
}

func (s *Store) ListCartLines(_ context.Context, ownerID string) ([]domain.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]domain.CartLine, 0, 8)
	for _, line := range s.cartLines {
		if line.OwnerID == ownerID {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (s *Store) GetCartLine(_ context.Context, ownerID string, lineID string) (*domain.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	line, ok := s.cartLines[lineID]
	if !ok || line.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	return &line, nil
}

func (s *Store) UpsertCartLine(_ context.Context, line domain.CartLine, delta int) (*domain.CartLine, bool, error) {
	if line.OwnerID == "" || line.ProductID == "" || line.Size == "" {
		return nil, false, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	key := line.Key()
	if id, ok := s.cartKeys[key]; ok {
		existing := s.cartLines[id]
		merged := int64(existing.Quantity) + int64(delta)
		if merged < 1 || merged > store.MaxLineQuantity {
			return nil, false, store.ErrInvalidInput
		}
		existing.Quantity = int(merged)
		existing.UpdatedAt = now
		s.cartLines[id] = existing
		return &existing, false, nil
	}

	if delta > store.MaxLineQuantity {
		return nil, false, store.ErrInvalidInput
	}
	if line.ID == "" {
		line.ID = xid.NewLineID()
	}
	line.Quantity = max(delta, 1)
	line.CreatedAt = now
	line.UpdatedAt = now
	s.cartLines[line.ID] = line
	s.cartKeys[key] = line.ID

	created := line
	return &created, true, nil
}

func (s *Store) AdjustCartLine(_ context.Context, ownerID string, lineID string, delta int) (*domain.CartLine, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.cartLines[lineID]
	if !ok || line.OwnerID != ownerID {
		return nil, false, store.ErrNotFound
	}

	next := int64(line.Quantity) + int64(delta)
	if next > store.MaxLineQuantity {
		return nil, false, store.ErrInvalidInput
	}
	line.UpdatedAt = time.Now().UTC()
	if next <= 0 {
		delete(s.cartLines, lineID)
		delete(s.cartKeys, line.Key())
		line.Quantity = 0
		return &line, true, nil
	}
	line.Quantity = int(next)
	s.cartLines[lineID] = line
	return &line, false, nil
}

func (s *Store) SetCartLineQuantity(_ context.Context, ownerID string, lineID string, quantity int) (*domain.CartLine, error) {
	if quantity < 1 || quantity > store.MaxLineQuantity {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.cartLines[lineID]
	if !ok || line.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	line.Quantity = quantity
	line.UpdatedAt = time.Now().UTC()
	s.cartLines[lineID] = line
	return &line, nil
}

func (s *Store) DeleteCartLine(_ context.Context, ownerID string, lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.cartLines[lineID]
	if !ok || line.OwnerID != ownerID {
		return store.ErrNotFound
	}
	delete(s.cartLines, lineID)
	delete(s.cartKeys, line.Key())
	return nil
}

func (s *Store) ClearCart(_ context.Context, ownerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, line := range s.cartLines {
		if line.OwnerID != ownerID {
			continue
		}
		delete(s.cartLines, id)
		delete(s.cartKeys, line.Key())
		removed++
	}
	return removed, nil
}

func (s *Store) CreateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	if order.OrderID == "" || order.UserID == "" || order.ProductID == "" || order.Quantity < 1 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.orderIDs[order.OrderID]; taken {
		return nil, store.ErrConflict
	}
	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	s.orders = append(s.orders, order)
	s.orderIDs[order.OrderID] = struct{}{}

	created := order
	return &created, nil
}

func (s *Store) ListOrdersByUser(_ context.Context, userID string) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Order, 0, 16)
	for _, order := range s.orders {
		if order.UserID == userID {
			out = append(out, order)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetOrder(_ context.Context, userID string, orderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, order := range s.orders {
		if order.OrderID == orderID && order.UserID == userID {
			found := order
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListOrdersBetween(_ context.Context, from time.Time, to time.Time) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Order, 0, 32)
	for _, order := range s.orders {
		if order.Date.Before(from) || order.Date.After(to) {
			continue
		}
		out = append(out, order)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return store.ErrConflict
	}
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Username = username
	s.users[username] = user
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func cloneProduct(src domain.Product) domain.Product {
	dst := src
	dst.Sizes = slices.Clone(src.Sizes)
	dst.SaleStart = cloneTime(src.SaleStart)
	dst.SaleEnd = cloneTime(src.SaleEnd)
	if src.ColorVariants != nil {
		dst.ColorVariants = make([]domain.ColorVariant, len(src.ColorVariants))
		for i, variant := range src.ColorVariants {
			variant.Images = slices.Clone(variant.Images)
			dst.ColorVariants[i] = variant
		}
	}
	return dst
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
