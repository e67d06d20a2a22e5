package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/Subby02/web-project/internal/domain"
	"github.com/Subby02/web-project/internal/store"
	"github.com/Subby02/web-project/internal/xid"
)

type Store struct {
	db *sqlx.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(pingCtx, "pgx", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type productRow struct {
	ID            string       `db:"id"`
	Name          string       `db:"name"`
	Description   string       `db:"description"`
	BasePrice     int64        `db:"base_price"`
	DiscountRate  float64      `db:"discount_rate"`
	SaleStart     sql.NullTime `db:"sale_start"`
	SaleEnd       sql.NullTime `db:"sale_end"`
	Sizes         []byte       `db:"sizes"`
	ColorVariants []byte       `db:"color_variants"`
	ReleaseDate   time.Time    `db:"release_date"`
	CreatedAt     time.Time    `db:"created_at"`
}

const productColumns = `id, name, description, base_price, discount_rate, sale_start, sale_end,
	sizes, color_variants, release_date, created_at`

func (r productRow) toDomain() (domain.Product, error) {
	p := domain.Product{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		BasePrice:    r.BasePrice,
		DiscountRate: r.DiscountRate,
		SaleStart:    nullTime(r.SaleStart),
		SaleEnd:      nullTime(r.SaleEnd),
		ReleaseDate:  r.ReleaseDate,
		CreatedAt:    r.CreatedAt,
	}
	if len(r.Sizes) > 0 {
		if err := json.Unmarshal(r.Sizes, &p.Sizes); err != nil {
			return domain.Product{}, errors.Wrapf(err, "decode sizes of product %s", r.ID)
		}
	}
	if len(r.ColorVariants) > 0 {
		if err := json.Unmarshal(r.ColorVariants, &p.ColorVariants); err != nil {
			return domain.Product{}, errors.Wrapf(err, "decode color variants of product %s", r.ID)
		}
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+productColumns+` FROM products ORDER BY release_date DESC, id`); err != nil {
		return nil, errors.Wrap(err, "list products")
	}

	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	p, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT `+productColumns+` FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "build product lookup")
	}
	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "lookup products")
	}
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	return result, nil
}

func (s *Store) UpdateProductDiscount(ctx context.Context, id string, rate float64, saleStart *time.Time, saleEnd *time.Time) (*domain.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE products
		SET discount_rate = $2, sale_start = $3, sale_end = $4
		WHERE id = $1
		RETURNING `+productColumns,
		id, rate, toNullTime(saleStart), toNullTime(saleEnd))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrapf(err, "update discount of product %s", id)
	}
	p, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type cartLineRow struct {
	ID        string    `db:"id"`
	OwnerID   string    `db:"owner_id"`
	ProductID string    `db:"product_id"`
	Size      string    `db:"size"`
	Color     string    `db:"color"`
	Quantity  int       `db:"quantity"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const cartLineColumns = `id, owner_id, product_id, size, color, quantity, created_at, updated_at`

func (r cartLineRow) toDomain() domain.CartLine {
	return domain.CartLine{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		ProductID: r.ProductID,
		Size:      r.Size,
		Color:     r.Color,
		Quantity:  r.Quantity,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (s *Store) ListCartLines(ctx context.Context, ownerID string) ([]domain.CartLine, error) {
	var rows []cartLineRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT `+cartLineColumns+`
		FROM cart_lines
		WHERE owner_id = $1
		ORDER BY created_at DESC, id
	`, ownerID); err != nil {
		return nil, errors.Wrap(err, "list cart lines")
	}

	lines := make([]domain.CartLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.toDomain())
	}
	return lines, nil
}

func (s *Store) GetCartLine(ctx context.Context, ownerID string, lineID string) (*domain.CartLine, error) {
	var row cartLineRow
	err := s.db.GetContext(ctx, &row, `SELECT `+cartLineColumns+` FROM cart_lines WHERE id = $1 AND owner_id = $2`, lineID, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "get cart line")
	}
	line := row.toDomain()
	return &line, nil
}

// UpsertCartLine leans on the cart_lines_identity constraint so concurrent
// adds of the same key collapse into one row. xmax is zero only for a row
// this statement inserted.
func (s *Store) UpsertCartLine(ctx context.Context, line domain.CartLine, delta int) (*domain.CartLine, bool, error) {
	if line.OwnerID == "" || line.ProductID == "" || line.Size == "" {
		return nil, false, store.ErrInvalidInput
	}
	if delta > store.MaxLineQuantity || delta < -store.MaxLineQuantity {
		return nil, false, store.ErrInvalidInput
	}
	if line.ID == "" {
		line.ID = xid.NewLineID()
	}

	var out struct {
		cartLineRow
		Inserted bool `db:"inserted"`
	}
	err := s.db.GetContext(ctx, &out, `
		INSERT INTO cart_lines (id, owner_id, product_id, size, color, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, GREATEST($6::int, 1), now(), now())
		ON CONFLICT ON CONSTRAINT cart_lines_identity
		DO UPDATE SET quantity = cart_lines.quantity + $6::int, updated_at = now()
		WHERE cart_lines.quantity::bigint + $6::bigint BETWEEN 1 AND $7
		RETURNING `+cartLineColumns+`, (xmax = 0) AS inserted
	`, line.ID, line.OwnerID, line.ProductID, line.Size, line.Color, delta, int64(store.MaxLineQuantity))
	if err != nil {
		// The guarded DO UPDATE returns no row when the merge is out of range.
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, store.ErrInvalidInput
		}
		return nil, false, errors.Wrap(err, "upsert cart line")
	}

	merged := out.cartLineRow.toDomain()
	return &merged, out.Inserted, nil
}

// AdjustCartLine locks the row, so a concurrent delete either runs first and
// yields ErrNotFound or waits for this transaction.
func (s *Store) AdjustCartLine(ctx context.Context, ownerID string, lineID string, delta int) (*domain.CartLine, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "begin adjust cart line")
	}
	defer func() { _ = tx.Rollback() }()

	var row cartLineRow
	err = tx.GetContext(ctx, &row, `
		SELECT `+cartLineColumns+`
		FROM cart_lines
		WHERE id = $1 AND owner_id = $2
		FOR UPDATE`, lineID, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, store.ErrNotFound
		}
		return nil, false, errors.Wrap(err, "lock cart line")
	}

	next := int64(row.Quantity) + int64(delta)
	if next > store.MaxLineQuantity {
		return nil, false, store.ErrInvalidInput
	}

	removed := next <= 0
	if removed {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE id = $1`, lineID); err != nil {
			return nil, false, errors.Wrap(err, "delete cart line")
		}
		row.Quantity = 0
	} else {
		err = tx.GetContext(ctx, &row, `
			UPDATE cart_lines
			SET quantity = $2, updated_at = now()
			WHERE id = $1
			RETURNING `+cartLineColumns, lineID, next)
		if err != nil {
			return nil, false, errors.Wrap(err, "adjust cart line")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, errors.Wrap(err, "commit adjust cart line")
	}
	line := row.toDomain()
	return &line, removed, nil
}

func (s *Store) SetCartLineQuantity(ctx context.Context, ownerID string, lineID string, quantity int) (*domain.CartLine, error) {
	if quantity < 1 || quantity > store.MaxLineQuantity {
		return nil, store.ErrInvalidInput
	}

	var row cartLineRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE cart_lines
		SET quantity = $3, updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+cartLineColumns,
		lineID, ownerID, quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "set cart line quantity")
	}
	line := row.toDomain()
	return &line, nil
}

func (s *Store) DeleteCartLine(ctx context.Context, ownerID string, lineID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE id = $1 AND owner_id = $2`, lineID, ownerID)
	if err != nil {
		return errors.Wrap(err, "delete cart line")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete cart line")
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ClearCart(ctx context.Context, ownerID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, errors.Wrap(err, "clear cart")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "clear cart")
	}
	return int(affected), nil
}

type orderRow struct {
	ID         string    `db:"id"`
	OrderID    string    `db:"order_id"`
	UserID     string    `db:"user_id"`
	ProductID  string    `db:"product_id"`
	Quantity   int       `db:"quantity"`
	Size       string    `db:"size"`
	Color      string    `db:"color"`
	PaidAmount int64     `db:"paid_amount"`
	Date       time.Time `db:"date"`
	CreatedAt  time.Time `db:"created_at"`
}

const orderColumns = `id, order_id, user_id, product_id, quantity, size, color, paid_amount, date, created_at`

func (r orderRow) toDomain() domain.Order {
	return domain.Order{
		ID:         r.ID,
		OrderID:    r.OrderID,
		UserID:     r.UserID,
		ProductID:  r.ProductID,
		Quantity:   r.Quantity,
		Size:       r.Size,
		Color:      r.Color,
		PaidAmount: r.PaidAmount,
		Date:       r.Date,
		CreatedAt:  r.CreatedAt,
	}
}

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if order.OrderID == "" || order.UserID == "" || order.ProductID == "" || order.Quantity < 1 {
		return nil, store.ErrInvalidInput
	}
	if order.ID == "" {
		order.ID = xid.New("ord")
	}

	var row orderRow
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO orders (id, order_id, user_id, product_id, quantity, size, color, paid_amount, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING `+orderColumns,
		order.ID, order.OrderID, order.UserID, order.ProductID, order.Quantity,
		order.Size, order.Color, order.PaidAmount, order.Date)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, errors.Wrap(err, "insert order")
	}
	created := row.toDomain()
	return &created, nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY date DESC, created_at DESC
	`, userID); err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return ordersFromRows(rows), nil
}

func (s *Store) GetOrder(ctx context.Context, userID string, orderID string) (*domain.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1 AND user_id = $2`, orderID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %s", orderID)
	}
	order := row.toDomain()
	return &order, nil
}

func (s *Store) ListOrdersBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.Order, error) {
	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE date >= $1 AND date <= $2
		ORDER BY date ASC, created_at ASC
	`, from.UTC(), to.UTC()); err != nil {
		return nil, errors.Wrap(err, "list orders in range")
	}
	return ordersFromRows(rows), nil
}

func ordersFromRows(rows []orderRow) []domain.Order {
	orders := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, row.toDomain())
	}
	return orders
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.ID == "" {
		user.ID = xid.New("usr")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, user.ID, username, user.Password, user.Role, user.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return errors.Wrap(err, "insert user")
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var row struct {
		ID           string    `db:"id"`
		Username     string    `db:"username"`
		PasswordHash string    `db:"password_hash"`
		Role         string    `db:"role"`
		Active       bool      `db:"active"`
		CreatedAt    time.Time `db:"created_at"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT id, username, password_hash, role, active, created_at
		FROM users
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, errors.Wrap(err, "get user")
	}
	return &domain.UserAccount{
		ID:        row.ID,
		Username:  row.Username,
		Password:  row.PasswordHash,
		Role:      row.Role,
		Active:    row.Active,
		CreatedAt: row.CreatedAt,
	}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
