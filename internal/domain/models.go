package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"savdo/backend/internal/money"
)

// UnitSpec describes one sellable unit of measure for a product. Factor
// expresses how many base units one unit of this spec represents; exactly
// one unit per product has IsBase set.
type UnitSpec struct {
	ID        int64           `json:"id"`
	ShortName string          `json:"short_name"`
	Factor    decimal.Decimal `json:"factor"`
	IsBase    bool            `json:"is_base"`
}

// SyntheticBaseUnit is used when a product declares no units at all.
func SyntheticBaseUnit() UnitSpec {
	return UnitSpec{ID: 0, ShortName: "pcs", Factor: decimal.NewFromInt(1), IsBase: true}
}

// BaseUnit resolves the base unit of a declared unit list: the one marked
// IsBase, the first declared unit as fallback, or a synthesized piece unit.
func BaseUnit(units []UnitSpec) UnitSpec {
	for _, u := range units {
		if u.IsBase {
			return u
		}
	}
	if len(units) > 0 {
		return units[0]
	}
	return SyntheticBaseUnit()
}

// ProductSnapshot is the point-in-time view of a product handed to the
// draft engine. Availability and prices are read from the snapshot taken
// when the line was created or edited, never re-fetched per keystroke.
type ProductSnapshot struct {
	ID                     int64           `json:"id"`
	Name                   string          `json:"name"`
	Barcode                string          `json:"barcode,omitempty"`
	SellingPrice           *money.Amount   `json:"selling_price,omitempty"`
	MinPrice               *money.Amount   `json:"min_price,omitempty"`
	AvailableQuantity      decimal.Decimal `json:"quantity"`
	ExtraQuantity          decimal.Decimal `json:"extra_quantity"`
	Units                  []UnitSpec      `json:"available_units"`
	RequiresStockSelection bool            `json:"sell_from_stock"`
}

// TotalAvailable is the quantity shown next to a product in search
// results: on-hand plus extra.
func (p ProductSnapshot) TotalAvailable() decimal.Decimal {
	return p.AvailableQuantity.Add(p.ExtraQuantity)
}

// StockRef identifies the stock batch a line sells from, for products
// whose category mandates stock-level selling.
type StockRef struct {
	ID        int64           `json:"id"`
	BatchCode string          `json:"batch_code,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type Store struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	IsMain bool   `json:"is_main"`
}

type Client struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type ClientCreateRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Address     string `json:"address,omitempty"`
}

// CurrencyRate is a point-in-time exchange-rate snapshot. The draft
// engine never re-fetches mid-calculation.
type CurrencyRate struct {
	Rate      decimal.Decimal `json:"rate"`
	Currency  string          `json:"currency"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Payment methods accepted by the draft engine.
const (
	PayCash     = "cash"
	PayClick    = "click"
	PayCard     = "card"
	PayTransfer = "transfer"
	PayCurrency = "currency"
)

func IsSupportedPaymentMethod(method string) bool {
	switch method {
	case PayCash, PayClick, PayCard, PayTransfer, PayCurrency:
		return true
	default:
		return false
	}
}

// Operator is the identity context a draft is constructed with. Role
// gating is decided here, not looked up ambiently: an admin may choose
// store and seller, everyone else is pinned to their own.
type Operator struct {
	UserID   int64
	Username string
	Role     string
	StoreID  int64
}

const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
)

func (o Operator) Privileged() bool {
	return o.Role == RoleAdmin
}

// Actor is the authenticated principal carried through request contexts.
type Actor struct {
	UserID   int64
	Username string
	Role     string
	StoreID  int64
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	StoreID     int64  `json:"store_id"`
	ExpiresAt   string `json:"expires_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	ID        int64
	Username  string
	Password  string
	Role      string
	StoreID   int64
	Active    bool
	CreatedAt time.Time
}

type SellerCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	StoreID  int64  `json:"store_id"`
}

type SellerUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	StoreID   int64     `json:"store_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// SalePayload is the immutable record finalize() emits. Field names and
// string formats (two fractional digits for amounts) are stable contract
// with the downstream sale ledger.
type SalePayload struct {
	Store          int64                `json:"store"`
	PaymentMethod  string               `json:"payment_method"`
	TotalAmount    string               `json:"total_amount"`
	DiscountAmount string               `json:"discount_amount"`
	SoldBy         *int64               `json:"sold_by,omitempty"`
	OnCredit       bool                 `json:"on_credit"`
	SaleItems      []SaleItemPayload    `json:"sale_items"`
	SalePayments   []SalePaymentPayload `json:"sale_payments"`
	Client         *int64               `json:"client,omitempty"`
	SaleDebt       *SaleDebtPayload     `json:"sale_debt,omitempty"`
}

type SaleItemPayload struct {
	ProductWrite int64  `json:"product_write"`
	Quantity     string `json:"quantity"`
	SellingUnit  int64  `json:"selling_unit"`
	PricePerUnit string `json:"price_per_unit"`
	Stock        *int64 `json:"stock,omitempty"`
}

// SalePaymentPayload carries one allocation. For a foreign-currency
// payment Amount is the foreign figure and ExchangeRate/ChangeAmount are
// present; for every other method Amount is in the base currency.
type SalePaymentPayload struct {
	PaymentMethod string           `json:"payment_method"`
	Amount        string           `json:"amount"`
	ExchangeRate  *decimal.Decimal `json:"exchange_rate,omitempty"`
	ChangeAmount  *string          `json:"change_amount,omitempty"`
}

type SaleDebtPayload struct {
	Client               int64   `json:"client"`
	DueDate              string  `json:"due_date"`
	Deposit              *string `json:"deposit,omitempty"`
	DepositPaymentMethod *string `json:"deposit_payment_method,omitempty"`
}

// SaleRecord is the persisted form of an accepted sale.
type SaleRecord struct {
	ID        string      `json:"id"`
	Payload   SalePayload `json:"payload"`
	CreatedAt time.Time   `json:"created_at"`
}
