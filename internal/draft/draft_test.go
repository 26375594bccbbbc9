package draft

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"savdo/backend/internal/domain"
	"savdo/backend/internal/money"
)

type staticRate struct{ rate decimal.Decimal }

func (s staticRate) LatestRate() decimal.Decimal { return s.rate }

var testRates = staticRate{rate: decimal.NewFromInt(12500)}

func admin() domain.Operator {
	return domain.Operator{UserID: 1, Username: "boss", Role: domain.RoleAdmin, StoreID: 1}
}

func seller() domain.Operator {
	return domain.Operator{UserID: 7, Username: "kassir", Role: domain.RoleSeller, StoreID: 2}
}

func amt(v int64) *money.Amount {
	a := money.FromInt(v)
	return &a
}

func snapshot(id int64, price, min *money.Amount, avail int64) domain.ProductSnapshot {
	return domain.ProductSnapshot{
		ID:                 id,
		Name:               "product",
		SellingPrice:       price,
		MinPrice:           min,
		AvailableQuantity:  decimal.NewFromInt(avail),
		Units: []domain.UnitSpec{
			{ID: 1, ShortName: "pcs", Factor: decimal.NewFromInt(1), IsBase: true},
		},
	}
}

func mustSelect(t *testing.T, d *Draft, lineID string, snap domain.ProductSnapshot) {
	t.Helper()
	pending, err := d.SelectProduct(lineID, snap)
	if err != nil {
		t.Fatalf("select product: %v", err)
	}
	if pending {
		t.Fatalf("unexpected pending stock selection")
	}
}

func firstLine(t *testing.T, d *Draft) Line {
	t.Helper()
	lines := d.Lines()
	if len(lines) == 0 {
		t.Fatalf("draft has no lines")
	}
	return lines[0]
}

func TestNewDraftDefaults(t *testing.T) {
	d := New(seller(), testRates)
	if got := len(d.Lines()); got != 1 {
		t.Fatalf("lines = %d, want 1", got)
	}
	if d.StoreID() != 2 {
		t.Fatalf("store = %d, want operator store 2", d.StoreID())
	}
	if d.SoldBy() == nil || *d.SoldBy() != 7 {
		t.Fatalf("sold_by not pinned to the seller")
	}
	allocs := d.Allocations()
	if len(allocs) != 1 || allocs[0].Method != domain.PayCash {
		t.Fatalf("want a single cash allocation, got %+v", allocs)
	}

	priv := New(admin(), testRates)
	if priv.SoldBy() != nil {
		t.Fatalf("privileged operator must pick the seller explicitly")
	}
}

func TestSelectProductDefaultsPriceAndUnit(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID

	mustSelect(t, d, lineID, snapshot(10, amt(15000), amt(12000), 50))
	l := firstLine(t, d)
	if l.State != LineCommitted {
		t.Fatalf("state = %s, want committed", l.State)
	}
	if l.UnitPrice.String() != "15000.00" {
		t.Fatalf("price = %s, want selling price", l.UnitPrice)
	}
	if !l.Unit.IsBase || l.Unit.ID != 1 {
		t.Fatalf("unit = %+v, want base unit", l.Unit)
	}
	if l.Total.String() != "15000.00" {
		t.Fatalf("total = %s, want quantity 1 at 15000", l.Total)
	}
}

func TestSelectProductPriceFallbacks(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID

	mustSelect(t, d, lineID, snapshot(10, nil, amt(9000), 50))
	if got := firstLine(t, d).UnitPrice.String(); got != "9000.00" {
		t.Fatalf("price = %s, want min price fallback", got)
	}

	mustSelect(t, d, lineID, snapshot(11, nil, nil, 50))
	if got := firstLine(t, d).UnitPrice.String(); got != "10000.00" {
		t.Fatalf("price = %s, want default fallback", got)
	}
}

func TestSelectProductWithoutUnitsSynthesizesBase(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	snap := snapshot(10, amt(5000), nil, 10)
	snap.Units = nil

	mustSelect(t, d, lineID, snap)
	u := firstLine(t, d).Unit
	if !u.IsBase || u.ShortName != "pcs" || !u.Factor.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("unit = %+v, want synthesized base", u)
	}
}

func TestSelectProductOutOfStock(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	_, err := d.SelectProduct(lineID, snapshot(10, amt(5000), nil, 0))
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if firstLine(t, d).State != LineEmpty {
		t.Fatalf("line must stay empty after a rejected selection")
	}
}

func TestSelectProductExtraQuantityDoesNotSell(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID

	// Extra quantity shows up in search results but is not sellable;
	// a product with no available quantity is rejected even when extra
	// stock is on record.
	snap := snapshot(10, amt(5000), nil, 0)
	snap.ExtraQuantity = decimal.NewFromInt(5)
	_, err := d.SelectProduct(lineID, snap)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if firstLine(t, d).State != LineEmpty {
		t.Fatalf("line must stay empty after a rejected selection")
	}
}

func TestPendingStockSelection(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	snap := snapshot(10, amt(5000), nil, 40)
	snap.RequiresStockSelection = true

	pending, err := d.SelectProduct(lineID, snap)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !pending {
		t.Fatalf("want pending stock selection")
	}
	if err := d.SetQuantity(lineID, "3"); !errors.Is(err, ErrStockSelectionPending) {
		t.Fatalf("quantity edit on pending line: err = %v", err)
	}
	if _, err := d.Finalize(); !errors.Is(err, ErrStockSelectionPending) {
		t.Fatalf("finalize with pending line: err = %v", err)
	}

	stock := domain.StockRef{ID: 77, BatchCode: "B-1", Quantity: decimal.NewFromInt(5)}
	if err := d.ResolveStock(lineID, stock); err != nil {
		t.Fatalf("resolve stock: %v", err)
	}
	l := firstLine(t, d)
	if l.State != LineCommitted || l.Stock == nil || l.Stock.ID != 77 {
		t.Fatalf("line not committed with stock: %+v", l)
	}
}

func TestDiscardPendingStock(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	snap := snapshot(10, amt(5000), nil, 40)
	snap.RequiresStockSelection = true
	if _, err := d.SelectProduct(lineID, snap); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := d.DiscardPendingStock(lineID); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if l := firstLine(t, d); l.State != LineEmpty || l.Product != nil {
		t.Fatalf("line not reverted: %+v", l)
	}
}

func TestQuantityInputSanitation(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	mustSelect(t, d, lineID, snapshot(10, amt(1000), nil, 100))

	// Comma reads as a decimal separator.
	if err := d.SetQuantity(lineID, "2,5"); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if got := firstLine(t, d).Total.String(); got != "2500.00" {
		t.Fatalf("total = %s, want 2500.00", got)
	}

	// A second separator is ignored and the previous value kept.
	if err := d.SetQuantity(lineID, "2.5."); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if got := firstLine(t, d).QuantityText; got != "2.5" {
		t.Fatalf("quantity text = %q, want previous value kept", got)
	}
}

func TestQuantityTransientInputTotalsZero(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	mustSelect(t, d, lineID, snapshot(10, amt(1000), nil, 100))

	if err := d.SetQuantity(lineID, "1."); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	l := firstLine(t, d)
	if l.QuantityText != "1." {
		t.Fatalf("raw text = %q, want preserved", l.QuantityText)
	}
	if !l.Quantity.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("quantity = %s, want 1", l.Quantity)
	}

	if err := d.SetQuantity(lineID, "1.5"); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if got := firstLine(t, d).Total.String(); got != "1500.00" {
		t.Fatalf("total = %s, want 1500.00", got)
	}

	if err := d.SetQuantity(lineID, ""); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if got := d.GrandTotal().String(); got != "0.00" {
		t.Fatalf("grand total = %s, want 0.00 while input is empty", got)
	}
}

func TestQuantityClampedToAvailability(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	mustSelect(t, d, lineID, snapshot(10, amt(1000), nil, 8))

	err := d.SetQuantity(lineID, "20")
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want clamp warning", err)
	}
	l := firstLine(t, d)
	if !l.Quantity.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("quantity = %s, want clamped to 8", l.Quantity)
	}
	if l.Total.String() != "8000.00" {
		t.Fatalf("total = %s, want recomputed after clamp", l.Total)
	}
}

func TestSinglePaymentTracksExpectedTotal(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	mustSelect(t, d, lineID, snapshot(10, amt(30000), nil, 10))

	if got := d.Allocations()[0].Amount.String(); got != "30000.00" {
		t.Fatalf("allocation = %s, want force-set to total", got)
	}

	if err := d.SetQuantity(lineID, "3"); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if got := d.Allocations()[0].Amount.String(); got != "90000.00" {
		t.Fatalf("allocation = %s, want to follow the total", got)
	}

	if err := d.SetDiscount("10000"); err != nil {
		t.Fatalf("set discount: %v", err)
	}
	if got := d.Allocations()[0].Amount.String(); got != "80000.00" {
		t.Fatalf("allocation = %s, want total minus discount", got)
	}
}

func TestSplitPaymentLastAbsorbsRemainder(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	mustSelect(t, d, lineID, snapshot(10, amt(100000), nil, 10))

	if err := d.SetAllocationAmount(0, "60000"); err != nil {
		t.Fatalf("set amount: %v", err)
	}
	if err := d.AddAllocation(); err != nil {
		t.Fatalf("add allocation: %v", err)
	}
	if err := d.SetAllocationMethod(1, domain.PayCard); err != nil {
		t.Fatalf("set method: %v", err)
	}
	allocs := d.Allocations()
	if allocs[1].Amount.String() != "40000.00" {
		t.Fatalf("second allocation = %s, want remainder 40000", allocs[1].Amount)
	}

	// A discount shrinks the expected total; the last allocation gives
	// the difference back.
	if err := d.SetDiscount("10000"); err != nil {
		t.Fatalf("set discount: %v", err)
	}
	allocs = d.Allocations()
	if allocs[0].Amount.String() != "60000.00" {
		t.Fatalf("first allocation = %s, must keep the operator amount", allocs[0].Amount)
	}
	if allocs[1].Amount.String() != "30000.00" {
		t.Fatalf("second allocation = %s, want 30000 after discount", allocs[1].Amount)
	}
}

func TestAllocationAmountClippedToHeadroom(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	mustSelect(t, d, lineID, snapshot(10, amt(100000), nil, 10))

	if err := d.SetAllocationAmount(0, "60000"); err != nil {
		t.Fatalf("set amount: %v", err)
	}
	if err := d.AddAllocation(); err != nil {
		t.Fatalf("add allocation: %v", err)
	}
	// Editing the first slice above its headroom clips it so the plan
	// never exceeds the expected total.
	if err := d.SetAllocationAmount(0, "90000"); err != nil {
		t.Fatalf("set amount: %v", err)
	}
	if got := d.Allocations()[0].Amount.String(); got != "60000.00" {
		t.Fatalf("first allocation = %s, want clipped to headroom", got)
	}
}

func TestAddAllocationRejectedWhenCovered(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	mustSelect(t, d, lineID, snapshot(10, amt(50000), nil, 10))

	// The single allocation already covers the total.
	if err := d.AddAllocation(); !errors.Is(err, ErrPlanFull) {
		t.Fatalf("err = %v, want ErrPlanFull", err)
	}
}

func TestRemoveAllocation(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	mustSelect(t, d, lineID, snapshot(10, amt(100000), nil, 10))

	if err := d.SetAllocationAmount(0, "60000"); err != nil {
		t.Fatalf("set amount: %v", err)
	}
	if err := d.AddAllocation(); err != nil {
		t.Fatalf("add allocation: %v", err)
	}
	if err := d.RemoveAllocation(0); !errors.Is(err, ErrFirstAllocation) {
		t.Fatalf("err = %v, want ErrFirstAllocation", err)
	}
	if err := d.RemoveAllocation(1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	// Back to a single allocation; the total flows back into it.
	if got := d.Allocations()[0].Amount.String(); got != "100000.00" {
		t.Fatalf("allocation = %s, want re-absorbed total", got)
	}
}

func TestForeignCurrencyPayment(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	mustSelect(t, d, lineID, snapshot(10, amt(100000), nil, 10))
	if err := d.SetSoldBy(3); err != nil {
		t.Fatalf("set sold_by: %v", err)
	}

	if err := d.SetAllocationMethod(0, domain.PayCurrency); err != nil {
		t.Fatalf("set method: %v", err)
	}
	a := d.Allocations()[0]
	if !a.ExchangeRate.Equal(decimal.NewFromInt(12500)) {
		t.Fatalf("rate = %s, want seeded from the snapshot", a.ExchangeRate)
	}

	if err := d.SetForeignAmount(0, "10"); err != nil {
		t.Fatalf("set foreign amount: %v", err)
	}
	a = d.Allocations()[0]
	if a.Amount.String() != "125000.00" {
		t.Fatalf("amount = %s, want 10 * 12500", a.Amount)
	}
	if a.Change.String() != "25000.00" {
		t.Fatalf("change = %s, want excess over 100000", a.Change)
	}
	if a.NetContribution().String() != "100000.00" {
		t.Fatalf("net = %s, want expected total", a.NetContribution())
	}

	payload, err := d.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	pay := payload.SalePayments[0]
	if pay.Amount != "10.00" {
		t.Fatalf("payment amount = %s, want the foreign figure", pay.Amount)
	}
	if pay.ExchangeRate == nil || !pay.ExchangeRate.Equal(decimal.NewFromInt(12500)) {
		t.Fatalf("exchange rate missing from payload")
	}
	if pay.ChangeAmount == nil || *pay.ChangeAmount != "25000.00" {
		t.Fatalf("change amount missing from payload")
	}
}

func TestExchangeRateEditKeepsForeignFigure(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	mustSelect(t, d, lineID, snapshot(10, amt(100000), nil, 10))

	if err := d.SetAllocationMethod(0, domain.PayCurrency); err != nil {
		t.Fatalf("set method: %v", err)
	}
	if err := d.SetForeignAmount(0, "10"); err != nil {
		t.Fatalf("set foreign: %v", err)
	}
	if err := d.SetExchangeRate(0, decimal.NewFromInt(13000)); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	a := d.Allocations()[0]
	if !a.ForeignAmount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("foreign = %s, want held at 10", a.ForeignAmount)
	}
	if a.Amount.String() != "130000.00" {
		t.Fatalf("amount = %s, want re-derived at the new rate", a.Amount)
	}
	if a.Change.String() != "30000.00" {
		t.Fatalf("change = %s, want refreshed", a.Change)
	}
}

func TestFinalizeValidation(t *testing.T) {
	d := New(seller(), testRates)
	if _, err := d.Finalize(); !errors.Is(err, ErrMissingRequiredField) {
		t.Fatalf("empty line: err = %v, want missing field", err)
	}

	lineID := firstLine(t, d).ID
	mustSelect(t, d, lineID, snapshot(10, amt(5000), amt(5000), 10))
	if err := d.SetUnitPrice(lineID, "4000"); err != nil {
		t.Fatalf("set price: %v", err)
	}
	if _, err := d.Finalize(); !errors.Is(err, ErrBelowMinimumPrice) {
		t.Fatalf("err = %v, want ErrBelowMinimumPrice", err)
	}

	if err := d.SetUnitPrice(lineID, "5000"); err != nil {
		t.Fatalf("set price: %v", err)
	}
	payload, err := d.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if payload.Store != 2 || payload.SoldBy == nil || *payload.SoldBy != 7 {
		t.Fatalf("payload store/seller wrong: %+v", payload)
	}
	if len(payload.SaleItems) != 1 || payload.SaleItems[0].PricePerUnit != "5000.00" {
		t.Fatalf("sale items wrong: %+v", payload.SaleItems)
	}
}

func TestFinalizeRequiresSellerForPrivileged(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	mustSelect(t, d, lineID, snapshot(10, amt(5000), nil, 10))

	if _, err := d.Finalize(); !errors.Is(err, ErrMissingRequiredField) {
		t.Fatalf("err = %v, want missing sold_by", err)
	}
	if err := d.SetSoldBy(3); err != nil {
		t.Fatalf("set sold_by: %v", err)
	}
	if _, err := d.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
}

func TestFinalizePaymentMismatch(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	mustSelect(t, d, lineID, snapshot(10, amt(100000), nil, 10))
	if err := d.SetSoldBy(3); err != nil {
		t.Fatalf("set sold_by: %v", err)
	}

	// A currency allocation with nothing typed leaves the plan short.
	if err := d.SetAllocationMethod(0, domain.PayCurrency); err != nil {
		t.Fatalf("set method: %v", err)
	}
	if _, err := d.Finalize(); !errors.Is(err, ErrPaymentMismatch) {
		t.Fatalf("err = %v, want ErrPaymentMismatch", err)
	}
}

func TestCreditSale(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	mustSelect(t, d, lineID, snapshot(10, amt(50000), nil, 10))
	if err := d.SetSoldBy(3); err != nil {
		t.Fatalf("set sold_by: %v", err)
	}
	if err := d.SetOnCredit(true); err != nil {
		t.Fatalf("set on credit: %v", err)
	}
	if _, err := d.Finalize(); !errors.Is(err, ErrMissingRequiredField) {
		t.Fatalf("err = %v, want missing client", err)
	}

	if err := d.SetClient(42); err != nil {
		t.Fatalf("set client: %v", err)
	}
	if err := d.SetDeposit("20000"); err != nil {
		t.Fatalf("set deposit: %v", err)
	}
	due := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	if err := d.SetDueDate(due); err != nil {
		t.Fatalf("set due date: %v", err)
	}

	payload, err := d.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !payload.OnCredit || payload.SaleDebt == nil {
		t.Fatalf("payload missing debt: %+v", payload)
	}
	debt := payload.SaleDebt
	if debt.Client != 42 || debt.DueDate != "2026-10-01" {
		t.Fatalf("debt = %+v", debt)
	}
	if debt.Deposit == nil || *debt.Deposit != "20000.00" {
		t.Fatalf("deposit missing: %+v", debt)
	}
	if debt.DepositPaymentMethod == nil || *debt.DepositPaymentMethod != domain.PayCash {
		t.Fatalf("deposit method = %+v, want cash default", debt.DepositPaymentMethod)
	}
	if payload.Client != nil {
		t.Fatalf("client must ride on the debt for credit sales")
	}
}

func TestClientOnCashSale(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	mustSelect(t, d, lineID, snapshot(10, amt(50000), nil, 10))
	if err := d.SetSoldBy(3); err != nil {
		t.Fatalf("set sold_by: %v", err)
	}
	if err := d.SetClient(42); err != nil {
		t.Fatalf("set client: %v", err)
	}
	payload, err := d.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if payload.Client == nil || *payload.Client != 42 {
		t.Fatalf("client missing on cash sale: %+v", payload)
	}
	if payload.SaleDebt != nil {
		t.Fatalf("cash sale must not carry debt")
	}
}

func TestCreditDefaults(t *testing.T) {
	d := New(admin(), testRates)
	if err := d.SetOnCredit(true); err != nil {
		t.Fatalf("set on credit: %v", err)
	}
	debt := d.DebtTerms()
	if debt == nil {
		t.Fatalf("debt terms not seeded")
	}
	wantDue := time.Now().Add(defaultCreditTerm)
	if diff := debt.DueDate.Sub(wantDue); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("due date = %s, want about a month out", debt.DueDate)
	}
	if debt.DepositMethod != domain.PayCash {
		t.Fatalf("deposit method = %s, want cash", debt.DepositMethod)
	}
	if err := d.SetOnCredit(false); err != nil {
		t.Fatalf("unset on credit: %v", err)
	}
	if d.DebtTerms() != nil {
		t.Fatalf("debt terms must drop when credit is off")
	}
}

func TestOperatorPermissions(t *testing.T) {
	d := New(seller(), testRates)
	if err := d.SetStore(5); !errors.Is(err, ErrForbidden) {
		t.Fatalf("store change: err = %v, want ErrForbidden", err)
	}
	if err := d.SetSoldBy(9); !errors.Is(err, ErrForbidden) {
		t.Fatalf("seller change: err = %v, want ErrForbidden", err)
	}

	priv := New(admin(), testRates)
	if err := priv.SetSoldBy(9); err != nil {
		t.Fatalf("set sold_by: %v", err)
	}
	if err := priv.SetStore(5); err != nil {
		t.Fatalf("set store: %v", err)
	}
	if priv.SoldBy() != nil {
		t.Fatalf("seller must reset when the store changes")
	}
}

func TestRemoveLineKeepsAtLeastOne(t *testing.T) {
	d := New(admin(), testRates)
	only := firstLine(t, d).ID
	if err := d.RemoveLine(only); !errors.Is(err, ErrLastLine) {
		t.Fatalf("err = %v, want ErrLastLine", err)
	}
	second, err := d.AddLine()
	if err != nil {
		t.Fatalf("add line: %v", err)
	}
	if err := d.RemoveLine(second); err != nil {
		t.Fatalf("remove line: %v", err)
	}
	if got := len(d.Lines()); got != 1 {
		t.Fatalf("lines = %d, want 1", got)
	}
}

func TestSubmittedDraftIsFrozen(t *testing.T) {
	d := New(admin(), testRates)
	lineID := firstLine(t, d).ID
	mustSelect(t, d, lineID, snapshot(10, amt(5000), nil, 10))
	if err := d.SetSoldBy(3); err != nil {
		t.Fatalf("set sold_by: %v", err)
	}
	if _, err := d.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	d.MarkSubmitted()

	if err := d.SetQuantity(lineID, "2"); !errors.Is(err, ErrSubmitted) {
		t.Fatalf("edit after submit: err = %v, want ErrSubmitted", err)
	}
	if _, err := d.Finalize(); !errors.Is(err, ErrSubmitted) {
		t.Fatalf("finalize after submit: err = %v, want ErrSubmitted", err)
	}
}
