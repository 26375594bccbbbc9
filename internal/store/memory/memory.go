package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"savdo/backend/internal/domain"
	"savdo/backend/internal/money"
	"savdo/backend/internal/store"
	"savdo/backend/internal/xid"
)

// Store is an in-memory Repository for dev/demo mode and tests.
type Store struct {
	mu         sync.RWMutex
	stores     []domain.Store
	products   map[int64]domain.ProductSnapshot
	stocks     map[int64][]domain.StockRef
	clients    map[int64]domain.Client
	rates      map[string]domain.CurrencyRate
	sales      map[string]domain.SaleRecord
	users      map[string]domain.UserAccount
	nextClient int64
	nextUser   int64
}

// seedUsers builds the initial accounts for dev/demo mode. Credentials
// come from SEED_ADMIN_PASSWORD and SEED_SELLER_PASSWORD; hardcoded dev
// defaults apply when unset, with a warning printed.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	sellerPwd := envOr("SEED_SELLER_PASSWORD", "seller123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_SELLER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_SELLER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for i, u := range []struct {
		username string
		password string
		role     string
		storeID  int64
	}{
		{"admin", adminPwd, domain.RoleAdmin, 1},
		{"seller", sellerPwd, domain.RoleSeller, 1},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			ID:        int64(i + 1),
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			StoreID:   u.storeID,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func amount(v int64) *money.Amount {
	a := money.FromInt(v)
	return &a
}

func NewSeeded() *Store {
	pieces := []domain.UnitSpec{
		{ID: 1, ShortName: "pcs", Factor: decimal.NewFromInt(1), IsBase: true},
	}
	weighted := []domain.UnitSpec{
		{ID: 2, ShortName: "kg", Factor: decimal.NewFromInt(1), IsBase: true},
		{ID: 3, ShortName: "sack", Factor: decimal.NewFromInt(50)},
	}

	products := []domain.ProductSnapshot{
		{ID: 101, Name: "Portland cement 50kg", Barcode: "4780001000011", SellingPrice: amount(62000), MinPrice: amount(58000), AvailableQuantity: decimal.NewFromInt(140), Units: pieces},
		{ID: 102, Name: "River sand", Barcode: "4780001000028", SellingPrice: amount(90000), MinPrice: amount(85000), AvailableQuantity: decimal.NewFromInt(35), Units: weighted},
		{ID: 103, Name: "Rebar 12mm", Barcode: "4780001000035", SellingPrice: amount(118000), MinPrice: amount(110000), AvailableQuantity: decimal.NewFromInt(420), ExtraQuantity: decimal.NewFromInt(60), Units: pieces},
		{ID: 104, Name: "Plywood sheet 18mm", Barcode: "4780001000042", SellingPrice: amount(145000), MinPrice: amount(138000), AvailableQuantity: decimal.NewFromInt(80), Units: pieces, RequiresStockSelection: true},
		{ID: 105, Name: "Wall paint 10L", Barcode: "4780001000059", MinPrice: amount(95000), AvailableQuantity: decimal.NewFromInt(24), Units: pieces},
		{ID: 106, Name: "Nails 100mm", Barcode: "4780001000066", AvailableQuantity: decimal.NewFromInt(300), Units: pieces},
		{ID: 107, Name: "Ceramic tile 60x60", Barcode: "4780001000073", SellingPrice: amount(82000), MinPrice: amount(76000), AvailableQuantity: decimal.Zero, Units: pieces},
	}

	productMap := make(map[int64]domain.ProductSnapshot, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}

	stocks := map[int64][]domain.StockRef{
		104: {
			{ID: 9001, BatchCode: "PLY-2406", Quantity: decimal.NewFromInt(50)},
			{ID: 9002, BatchCode: "PLY-2411", Quantity: decimal.NewFromInt(30)},
		},
	}

	clients := map[int64]domain.Client{
		1: {ID: 1, Name: "Bunyodkor LLC", Type: "legal"},
		2: {ID: 2, Name: "Karimov A.", Type: "individual"},
	}

	return &Store{
		stores: []domain.Store{
			{ID: 1, Name: "Main warehouse", IsMain: true},
			{ID: 2, Name: "City branch"},
		},
		products: productMap,
		stocks:   stocks,
		clients:  clients,
		rates: map[string]domain.CurrencyRate{
			"USD": {Rate: decimal.NewFromInt(12650), Currency: "USD", FetchedAt: time.Now().UTC()},
		},
		sales:      map[string]domain.SaleRecord{},
		users:      seedUsers(),
		nextClient: 3,
		nextUser:   3,
	}
}

func (s *Store) SearchProducts(ctx context.Context, storeID int64, query string, limit int) ([]domain.ProductSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var out []domain.ProductSnapshot
	for _, p := range s.products {
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) || p.Barcode == q {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetProduct(ctx context.Context, storeID, productID int64) (*domain.ProductSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", productID, store.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) ListStocks(ctx context.Context, storeID, productID int64) ([]domain.StockRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := s.stocks[productID]
	out := make([]domain.StockRef, len(refs))
	copy(out, refs)
	return out, nil
}

func (s *Store) ListStores(ctx context.Context) ([]domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Store, len(s.stores))
	copy(out, s.stores)
	return out, nil
}

func (s *Store) SearchClients(ctx context.Context, query string, limit int) ([]domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var out []domain.Client
	for _, c := range s.clients {
		if q == "" || strings.Contains(strings.ToLower(c.Name), q) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetClient(ctx context.Context, clientID int64) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("client %d: %w", clientID, store.ErrNotFound)
	}
	return &c, nil
}

func (s *Store) CreateClient(ctx context.Context, req domain.ClientCreateRequest) (*domain.Client, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("client name: %w", store.ErrInvalidSale)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := domain.Client{ID: s.nextClient, Name: req.Name, Type: req.Type}
	if c.Type == "" {
		c.Type = "individual"
	}
	s.clients[c.ID] = c
	s.nextClient++
	return &c, nil
}

func (s *Store) LatestCurrencyRate(ctx context.Context, currency string) (*domain.CurrencyRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rates[currency]
	if !ok {
		return nil, fmt.Errorf("rate %s: %w", currency, store.ErrNotFound)
	}
	return &r, nil
}

// CreateSale records the payload and decrements availability for each
// sold line, the stock batch first when one is named.
func (s *Store) CreateSale(ctx context.Context, payload domain.SalePayload) (*domain.SaleRecord, error) {
	if len(payload.SaleItems) == 0 {
		return nil, fmt.Errorf("no items: %w", store.ErrInvalidSale)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range payload.SaleItems {
		if _, ok := s.products[item.ProductWrite]; !ok {
			return nil, fmt.Errorf("product %d: %w", item.ProductWrite, store.ErrNotFound)
		}
	}
	for _, item := range payload.SaleItems {
		qty, err := decimal.NewFromString(item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("quantity %q: %w", item.Quantity, store.ErrInvalidSale)
		}
		p := s.products[item.ProductWrite]
		p.AvailableQuantity = p.AvailableQuantity.Sub(qty)
		s.products[item.ProductWrite] = p
		if item.Stock != nil {
			refs := s.stocks[item.ProductWrite]
			for i := range refs {
				if refs[i].ID == *item.Stock {
					refs[i].Quantity = refs[i].Quantity.Sub(qty)
				}
			}
		}
	}

	rec := domain.SaleRecord{
		ID:        xid.New("sale"),
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	s.sales[rec.ID] = rec
	return &rec, nil
}

func (s *Store) GetSale(ctx context.Context, saleID string) (*domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sales[saleID]
	if !ok {
		return nil, fmt.Errorf("sale %s: %w", saleID, store.ErrNotFound)
	}
	return &rec, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", username, store.ErrNotFound)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return nil, fmt.Errorf("user %s: %w", user.Username, store.ErrDuplicate)
	}
	user.ID = s.nextUser
	s.nextUser++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.Username] = user
	return &user, nil
}

func (s *Store) ListSellers(ctx context.Context, storeID int64) ([]domain.SellerUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.SellerUser
	for _, u := range s.users {
		if u.Role != domain.RoleSeller || !u.Active {
			continue
		}
		if storeID > 0 && u.StoreID != storeID {
			continue
		}
		out = append(out, domain.SellerUser{
			ID:        u.ID,
			Username:  u.Username,
			Role:      u.Role,
			StoreID:   u.StoreID,
			Active:    u.Active,
			CreatedAt: u.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return fmt.Errorf("user %s: %w", username, store.ErrNotFound)
	}
	u.Password = passwordHash
	s.users[username] = u
	return nil
}
