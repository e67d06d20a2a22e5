package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day wire format used for sale windows and report ranges.
const DateLayout = "2006-01-02"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type ColorVariant struct {
	Name      string   `json:"name"`
	Images    []string `json:"images"`
	Thumbnail string   `json:"thumbnail,omitempty"`
}

type Product struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	BasePrice     int64          `json:"price"`
	DiscountRate  float64        `json:"discountRate"`
	SaleStart     *time.Time     `json:"saleStart,omitempty"`
	SaleEnd       *time.Time     `json:"saleEnd,omitempty"`
	Sizes         []string       `json:"sizes"`
	ColorVariants []ColorVariant `json:"colorVariants"`
	ReleaseDate   time.Time      `json:"releaseDate"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// DefaultColor returns the name of the product's default color variant.
// The catalog lists the default variant first, so the default is always
// ColorVariants[0]; products without variants have no default.
func (p Product) DefaultColor() (string, bool) {
	if len(p.ColorVariants) == 0 {
		return "", false
	}
	return p.ColorVariants[0].Name, true
}

// Image picks the display image for a color: the matching variant's
// thumbnail or first image, falling back to the default variant.
func (p Product) Image(color string) string {
	var variant *ColorVariant
	for i := range p.ColorVariants {
		if color != "" && p.ColorVariants[i].Name == color {
			variant = &p.ColorVariants[i]
			break
		}
	}
	if variant == nil && len(p.ColorVariants) > 0 {
		variant = &p.ColorVariants[0]
	}
	if variant == nil {
		return ""
	}
	if variant.Thumbnail != "" {
		return variant.Thumbnail
	}
	if len(variant.Images) > 0 {
		return variant.Images[0]
	}
	return ""
}

// CartKey identifies a cart line. An empty Color is a distinct key value and
// never matches an explicit color, even one equal to the product default.
type CartKey struct {
	OwnerID   string
	ProductID string
	Size      string
	Color     string
}

type CartLine struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"-"`
	ProductID string    `json:"productId"`
	Size      string    `json:"size"`
	Color     string    `json:"color"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (l CartLine) Key() CartKey {
	return CartKey{OwnerID: l.OwnerID, ProductID: l.ProductID, Size: l.Size, Color: l.Color}
}

// Order is one purchased line. PaidAmount is the per-unit price captured at
// creation and is never recomputed.
type Order struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"orderId"`
	UserID     string    `json:"userId"`
	ProductID  string    `json:"productId"`
	Quantity   int       `json:"quantity"`
	Size       string    `json:"size"`
	Color      string    `json:"color"`
	PaidAmount int64     `json:"paidAmount"`
	Date       time.Time `json:"date"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SizeCode accepts a size as either a JSON string or a JSON number ("270" or 270).
type SizeCode string

func (s *SizeCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*s = SizeCode(strings.TrimSpace(raw))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("size must be a string or number")
	}
	*s = SizeCode(num.String())
	return nil
}

type AddToCartRequest struct {
	ProductID string   `json:"productId"`
	Size      SizeCode `json:"size"`
	Color     *string  `json:"color,omitempty"`
	Quantity  *int     `json:"quantity,omitempty"`
}

type UpdateCartLineRequest struct {
	Quantity *int `json:"quantity"`
}

type AdjustCartLineRequest struct {
	Delta int `json:"delta"`
}

type CartLineView struct {
	ID           string  `json:"id"`
	ProductID    string  `json:"productId"`
	ProductName  string  `json:"productName"`
	Price        int64   `json:"price"`
	UnitPrice    int64   `json:"unitPrice"`
	IsDiscounted bool    `json:"isDiscounted"`
	Image        *string `json:"image"`
	Color        *string `json:"color"`
	Size         string  `json:"size"`
	Quantity     int     `json:"quantity"`
}

type CartLineResponse struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	Size      string  `json:"size"`
	Color     *string `json:"color"`
	Quantity  int     `json:"quantity"`
	Message   string  `json:"message,omitempty"`
}

type CartCountResponse struct {
	Count int `json:"count"`
}

// GuestCartLine is a line from the client-local guest cart. Display fields the
// client keeps alongside the line are accepted and ignored.
type GuestCartLine struct {
	Key         string   `json:"key,omitempty"`
	ID          string   `json:"id,omitempty"`
	ProductID   string   `json:"productId"`
	ProductName string   `json:"productName,omitempty"`
	Price       int64    `json:"price,omitempty"`
	Image       string   `json:"image,omitempty"`
	Size        SizeCode `json:"size"`
	Color       *string  `json:"color,omitempty"`
	Quantity    int      `json:"quantity"`
}

type OrderItemRequest struct {
	ProductID string   `json:"productId"`
	Quantity  int      `json:"quantity"`
	Size      SizeCode `json:"size"`
	Color     *string  `json:"color,omitempty"`
}

type PlaceOrderRequest struct {
	Items []OrderItemRequest `json:"items,omitempty"`
}

type OrderView struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"orderId"`
	ProductID    string    `json:"productId"`
	ProductName  string    `json:"productName"`
	ProductImage string    `json:"productImage,omitempty"`
	Size         string    `json:"size"`
	Color        *string   `json:"color"`
	Quantity     int       `json:"quantity"`
	PaidAmount   int64     `json:"paidAmount"`
	TotalPrice   int64     `json:"totalPrice"`
	Price        int64     `json:"price"`
	Date         time.Time `json:"date"`
}

type PlaceOrderResponse struct {
	Message string      `json:"message"`
	Orders  []OrderView `json:"orders"`
}

type SalesSummaryRow struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Units     int64  `json:"units"`
	Revenue   int64  `json:"revenue"`
}

type SalesTotals struct {
	Units   int64 `json:"units"`
	Revenue int64 `json:"revenue"`
}

type SalesRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type SalesReport struct {
	Range  SalesRange        `json:"range"`
	Items  []SalesSummaryRow `json:"items"`
	Totals SalesTotals       `json:"totals"`
}

type ProductView struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Price         int64          `json:"price"`
	UnitPrice     int64          `json:"unitPrice"`
	IsDiscounted  bool           `json:"isDiscounted"`
	DiscountRate  float64        `json:"discountRate"`
	SaleStart     *string        `json:"saleStart"`
	SaleEnd       *string        `json:"saleEnd"`
	ReleaseDate   string         `json:"releaseDate"`
	Sizes         []string       `json:"sizes"`
	ColorVariants []ColorVariant `json:"colorVariants"`
	Image         string         `json:"image"`
}

// DiscountUpdateRequest edits a product's discount schedule. Absent fields are
// left unchanged; an empty date string clears that bound.
type DiscountUpdateRequest struct {
	DiscountRate *float64 `json:"discountRate,omitempty"`
	SaleStart    *string  `json:"saleStart,omitempty"`
	SaleEnd      *string  `json:"saleEnd,omitempty"`
}

type DiscountView struct {
	ID           string  `json:"id"`
	DiscountRate float64 `json:"discountRate"`
	SaleStart    *string `json:"saleStart"`
	SaleEnd      *string `json:"saleEnd"`
}

type LoginRequest struct {
	Username  string          `json:"username"`
	Password  string          `json:"password"`
	GuestCart []GuestCartLine `json:"guestCart,omitempty"`
}

type LoginResponse struct {
	AccessToken   string `json:"accessToken"`
	Role          string `json:"role"`
	ExpiresAt     string `json:"expiresAt"`
	MigratedLines int    `json:"migratedLines"`

	// GuestCartCleared tells the client to empty its local guest cart. It is
	// set on every successful login, whatever migration managed to move.
	GuestCartCleared bool `json:"guestCartCleared"`
}

type Actor struct {
	UserID   string
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	ID        string
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

// CartEvent is published to observers after every cart mutation.
type CartEvent struct {
	OwnerID string    `json:"ownerId"`
	Action  string    `json:"action"`
	Count   int       `json:"count"`
	At      time.Time `json:"at"`
}

const (
	CartActionAdd     = "add"
	CartActionUpdate  = "update"
	CartActionRemove  = "remove"
	CartActionClear   = "clear"
	CartActionMigrate = "migrate"
)

// FormatDate renders an optional timestamp as YYYY-MM-DD in loc.
func FormatDate(t *time.Time, loc *time.Location) *string {
	if t == nil {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	s := t.In(loc).Format(DateLayout)
	return &s
}

func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
