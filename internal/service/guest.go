package service

import (
	"fmt"
	"strings"

	"github.com/Subby02/web-project/internal/domain"
	"github.com/Subby02/web-project/internal/store"
)

// GuestCart holds the lines of a cart that has no server-side owner. It
// mirrors the rules the browser applies to its local cart so a login body
// can be normalised before migration.
type GuestCart struct {
	lines []domain.GuestCartLine
}

// NewGuestCart builds a guest cart by adding each line in order, so lines
// sharing a key collapse into one. Lines without a product or size, or whose
// merge would exceed the line quantity limit, are returned as rejected.
func NewGuestCart(lines []domain.GuestCartLine) (*GuestCart, []domain.GuestCartLine) {
	cart := &GuestCart{}
	var rejected []domain.GuestCartLine
	for _, line := range lines {
		if err := cart.Add(line); err != nil {
			rejected = append(rejected, line)
		}
	}
	return cart, rejected
}

// GuestLineKey is productId-size, with -color appended when a color is set.
func GuestLineKey(productID string, size string, color *string) string {
	key := fmt.Sprintf("%s-%s", productID, size)
	if color != nil && *color != "" {
		key += "-" + *color
	}
	return key
}

func (c *GuestCart) Add(line domain.GuestCartLine) error {
	line.ProductID = strings.TrimSpace(line.ProductID)
	line.Size = domain.SizeCode(strings.TrimSpace(string(line.Size)))
	if line.ProductID == "" || line.Size == "" {
		return fmt.Errorf("%w: productId and size are required", ErrMissingField)
	}
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	if line.Quantity > store.MaxLineQuantity {
		return ErrInvalidQuantity
	}
	line.Key = GuestLineKey(line.ProductID, string(line.Size), line.Color)

	for i := range c.lines {
		if c.lines[i].Key == line.Key {
			if c.lines[i].Quantity > store.MaxLineQuantity-line.Quantity {
				return ErrInvalidQuantity
			}
			c.lines[i].Quantity += line.Quantity
			return nil
		}
	}
	c.lines = append(c.lines, line)
	return nil
}

// SetQuantity sets a line's quantity; zero or less removes it. It reports
// whether the key was present.
func (c *GuestCart) SetQuantity(key string, quantity int) bool {
	for i := range c.lines {
		if c.lines[i].Key != key {
			continue
		}
		if quantity <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		} else {
			c.lines[i].Quantity = quantity
		}
		return true
	}
	return false
}

func (c *GuestCart) Remove(key string) bool {
	return c.SetQuantity(key, 0)
}

func (c *GuestCart) Clear() {
	c.lines = nil
}

func (c *GuestCart) Count() int {
	count := 0
	for _, line := range c.lines {
		count += line.Quantity
	}
	return count
}

func (c *GuestCart) Lines() []domain.GuestCartLine {
	return append([]domain.GuestCartLine(nil), c.lines...)
}
