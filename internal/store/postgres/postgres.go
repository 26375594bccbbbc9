package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"savdo/backend/internal/domain"
	"savdo/backend/internal/money"
	"savdo/backend/internal/store"
	"savdo/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Store) SearchProducts(ctx context.Context, storeID int64, query string, limit int) ([]domain.ProductSnapshot, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, COALESCE(p.barcode, ''),
		       p.selling_price, p.min_price,
		       COALESCE(a.quantity, 0), COALESCE(a.extra_quantity, 0),
		       p.sell_from_stock
		FROM products p
		LEFT JOIN product_availability a ON a.product_id = p.id AND a.store_id = $1
		WHERE p.active = true
		  AND ($2 = '' OR p.name ILIKE '%' || $2 || '%' OR p.barcode = $2)
		ORDER BY p.name
		LIMIT $3
	`, storeID, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.ProductSnapshot, 0, limit)
	ids := make([]int64, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	units, err := s.unitsByProduct(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Units = units[products[i].ID]
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, storeID, productID int64) (*domain.ProductSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.name, COALESCE(p.barcode, ''),
		       p.selling_price, p.min_price,
		       COALESCE(a.quantity, 0), COALESCE(a.extra_quantity, 0),
		       p.sell_from_stock
		FROM products p
		LEFT JOIN product_availability a ON a.product_id = p.id AND a.store_id = $1
		WHERE p.id = $2 AND p.active = true
	`, storeID, productID)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", productID, store.ErrNotFound)
		}
		return nil, err
	}
	units, err := s.unitsByProduct(ctx, []int64{p.ID})
	if err != nil {
		return nil, err
	}
	p.Units = units[p.ID]
	return &p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.ProductSnapshot, error) {
	var (
		p            domain.ProductSnapshot
		sellingPrice sql.NullString
		minPrice     sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.Barcode, &sellingPrice, &minPrice,
		&p.AvailableQuantity, &p.ExtraQuantity, &p.RequiresStockSelection)
	if err != nil {
		return p, err
	}
	if p.SellingPrice, err = nullAmount(sellingPrice); err != nil {
		return p, err
	}
	if p.MinPrice, err = nullAmount(minPrice); err != nil {
		return p, err
	}
	return p, nil
}

func nullAmount(v sql.NullString) (*money.Amount, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, err
	}
	a := money.FromDecimal(d)
	return &a, nil
}

func (s *Store) unitsByProduct(ctx context.Context, productIDs []int64) (map[int64][]domain.UnitSpec, error) {
	out := make(map[int64][]domain.UnitSpec, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT pu.product_id, u.id, u.short_name, pu.factor, pu.is_base
		FROM product_units pu
		JOIN units u ON u.id = pu.unit_id
		WHERE pu.product_id = ANY($1)
		ORDER BY pu.product_id, pu.is_base DESC, u.id
	`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			productID int64
			u         domain.UnitSpec
		)
		if err := rows.Scan(&productID, &u.ID, &u.ShortName, &u.Factor, &u.IsBase); err != nil {
			return nil, err
		}
		out[productID] = append(out[productID], u)
	}
	return out, rows.Err()
}

func (s *Store) ListStocks(ctx context.Context, storeID, productID int64) ([]domain.StockRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(batch_code, ''), quantity
		FROM stocks
		WHERE store_id = $1 AND product_id = $2 AND quantity > 0
		ORDER BY created_at
	`, storeID, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []domain.StockRef
	for rows.Next() {
		var r domain.StockRef
		if err := rows.Scan(&r.ID, &r.BatchCode, &r.Quantity); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func (s *Store) ListStores(ctx context.Context) ([]domain.Store, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, is_main
		FROM stores
		ORDER BY is_main DESC, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stores []domain.Store
	for rows.Next() {
		var st domain.Store
		if err := rows.Scan(&st.ID, &st.Name, &st.IsMain); err != nil {
			return nil, err
		}
		stores = append(stores, st)
	}
	return stores, rows.Err()
}

func (s *Store) SearchClients(ctx context.Context, query string, limit int) ([]domain.Client, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type
		FROM clients
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Type); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (s *Store) GetClient(ctx context.Context, clientID int64) (*domain.Client, error) {
	var c domain.Client
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, type FROM clients WHERE id = $1
	`, clientID).Scan(&c.ID, &c.Name, &c.Type)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("client %d: %w", clientID, store.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateClient(ctx context.Context, req domain.ClientCreateRequest) (*domain.Client, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("client name: %w", store.ErrInvalidSale)
	}
	clientType := req.Type
	if clientType == "" {
		clientType = "individual"
	}
	var c domain.Client
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO clients (name, type, phone_number, address, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), now())
		RETURNING id, name, type
	`, req.Name, clientType, req.PhoneNumber, req.Address).Scan(&c.ID, &c.Name, &c.Type)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("client %s: %w", req.Name, store.ErrDuplicate)
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) LatestCurrencyRate(ctx context.Context, currency string) (*domain.CurrencyRate, error) {
	var r domain.CurrencyRate
	err := s.db.QueryRowContext(ctx, `
		SELECT rate, currency, fetched_at
		FROM currency_rates
		WHERE currency = $1
		ORDER BY fetched_at DESC
		LIMIT 1
	`, currency).Scan(&r.Rate, &r.Currency, &r.FetchedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rate %s: %w", currency, store.ErrNotFound)
		}
		return nil, err
	}
	return &r, nil
}

// CreateSale persists the payload and decrements availability in one
// transaction. Batch rows are decremented with a guard so concurrent
// sales cannot take a batch below zero.
func (s *Store) CreateSale(ctx context.Context, payload domain.SalePayload) (*domain.SaleRecord, error) {
	if len(payload.SaleItems) == 0 {
		return nil, fmt.Errorf("no items: %w", store.ErrInvalidSale)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rec := domain.SaleRecord{
		ID:      xid.New("sale"),
		Payload: payload,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO sales (id, store_id, payment_method, total_amount, discount_amount, on_credit, sold_by, client_id, payload, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8, $9, now())
		RETURNING created_at
	`, rec.ID, payload.Store, payload.PaymentMethod, payload.TotalAmount, payload.DiscountAmount,
		payload.OnCredit, payload.SoldBy, saleClientID(payload), body).Scan(&rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, item := range payload.SaleItems {
		res, err := tx.ExecContext(ctx, `
			UPDATE product_availability
			SET quantity = quantity - $3::numeric
			WHERE store_id = $1 AND product_id = $2
		`, payload.Store, item.ProductWrite, item.Quantity)
		if err != nil {
			return nil, err
		}
		if affected, err := res.RowsAffected(); err != nil {
			return nil, err
		} else if affected == 0 {
			return nil, fmt.Errorf("product %d availability: %w", item.ProductWrite, store.ErrNotFound)
		}

		if item.Stock != nil {
			res, err := tx.ExecContext(ctx, `
				UPDATE stocks
				SET quantity = quantity - $2::numeric
				WHERE id = $1 AND quantity >= $2::numeric
			`, *item.Stock, item.Quantity)
			if err != nil {
				return nil, err
			}
			if affected, err := res.RowsAffected(); err != nil {
				return nil, err
			} else if affected == 0 {
				return nil, fmt.Errorf("stock %d: %w", *item.Stock, store.ErrInvalidSale)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &rec, nil
}

func saleClientID(payload domain.SalePayload) *int64 {
	if payload.SaleDebt != nil {
		id := payload.SaleDebt.Client
		return &id
	}
	return payload.Client
}

func (s *Store) GetSale(ctx context.Context, saleID string) (*domain.SaleRecord, error) {
	var (
		rec  domain.SaleRecord
		body []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, payload, created_at FROM sales WHERE id = $1
	`, saleID).Scan(&rec.ID, &body, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sale %s: %w", saleID, store.ErrNotFound)
		}
		return nil, err
	}
	if err := json.Unmarshal(body, &rec.Payload); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var u domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password, role, store_id, active, created_at
		FROM users
		WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.Password, &u.Role, &u.StoreID, &u.Active, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", username, store.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password, role, store_id, active, created_at)
		VALUES ($1, $2, $3, $4, true, now())
		RETURNING id, created_at
	`, user.Username, user.Password, user.Role, user.StoreID).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %s: %w", user.Username, store.ErrDuplicate)
		}
		return nil, err
	}
	user.Active = true
	return &user, nil
}

func (s *Store) ListSellers(ctx context.Context, storeID int64) ([]domain.SellerUser, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, role, store_id, active, created_at
		FROM users
		WHERE role = $1 AND active = true AND ($2 = 0 OR store_id = $2)
		ORDER BY username
	`, domain.RoleSeller, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sellers []domain.SellerUser
	for rows.Next() {
		var u domain.SellerUser
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &u.StoreID, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		sellers = append(sellers, u)
	}
	return sellers, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, passwordHash)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("user %s: %w", username, store.ErrNotFound)
	}
	return nil
}
