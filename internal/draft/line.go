package draft

import (
	"github.com/shopspring/decimal"

	"savdo/backend/internal/domain"
	"savdo/backend/internal/money"
)

// LineState tracks how far a cart line has progressed. Quantity and
// price edits only take full effect once the line is committed.
type LineState string

const (
	LineEmpty        LineState = "empty"
	LinePendingStock LineState = "pending_stock"
	LineCommitted    LineState = "committed"
)

// fallbackUnitPrice covers products with neither a selling price nor a
// minimum price on record.
var fallbackUnitPrice = money.FromInt(10000)

// Line is one row of the draft. Raw operator input is kept alongside
// the parsed values so half-typed numbers survive a re-render.
type Line struct {
	ID    string
	State LineState

	Product *domain.ProductSnapshot
	Unit    domain.UnitSpec
	Stock   *domain.StockRef

	QuantityText string
	Quantity     decimal.Decimal
	PriceText    string
	UnitPrice    money.Amount
	Total        money.Amount
}

func newLine(id string) *Line {
	return &Line{
		ID:           id,
		State:        LineEmpty,
		Unit:         domain.SyntheticBaseUnit(),
		QuantityText: "1",
		Quantity:     decimal.NewFromInt(1),
	}
}

// commit binds a product snapshot (and, for batch-tracked products, a
// resolved stock) to the line. A quantity typed before the product was
// picked is preserved, then clamped to what the snapshot allows.
func (l *Line) commit(snap domain.ProductSnapshot, stock *domain.StockRef) {
	l.Product = &snap
	l.Stock = stock
	l.Unit = domain.BaseUnit(snap.Units)
	l.UnitPrice = defaultPrice(snap)
	l.PriceText = l.UnitPrice.String()
	l.State = LineCommitted
	if l.Quantity.IsZero() || l.Quantity.IsNegative() {
		l.Quantity = decimal.NewFromInt(1)
		l.QuantityText = "1"
	}
	l.clampQuantity()
	l.recompute()
}

func defaultPrice(snap domain.ProductSnapshot) money.Amount {
	if snap.SellingPrice != nil && !snap.SellingPrice.IsZero() {
		return *snap.SellingPrice
	}
	if snap.MinPrice != nil && !snap.MinPrice.IsZero() {
		return *snap.MinPrice
	}
	return fallbackUnitPrice
}

// available reports how much of the product a single line may sell.
func (l *Line) available() decimal.Decimal {
	if l.Stock != nil {
		return l.Stock.Quantity
	}
	if l.Product != nil {
		return l.Product.AvailableQuantity
	}
	return decimal.Zero
}

// clampQuantity pulls the quantity down to availability. Returns true
// when a clamp happened so the caller can surface a warning.
func (l *Line) clampQuantity() bool {
	if l.State != LineCommitted {
		return false
	}
	avail := l.available()
	if l.Quantity.Cmp(avail) <= 0 {
		return false
	}
	l.Quantity = avail
	l.QuantityText = avail.String()
	return true
}

func (l *Line) recompute() {
	l.Total = l.UnitPrice.Mul(l.Quantity)
}
