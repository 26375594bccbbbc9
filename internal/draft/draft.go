package draft

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"savdo/backend/internal/domain"
	"savdo/backend/internal/money"
	"savdo/backend/internal/xid"
)

// RateSource supplies the most recent known exchange-rate snapshot.
// A zero rate means no snapshot is available and the fallback applies.
type RateSource interface {
	LatestRate() decimal.Decimal
}

// fallbackExchangeRate seeds a currency allocation when no live rate
// snapshot is around.
var fallbackExchangeRate = decimal.NewFromInt(12500)

const defaultCreditTerm = 30 * 24 * time.Hour

// Debt describes the credit side of an on-credit sale.
type Debt struct {
	ClientID      int64
	DueDate       time.Time
	DepositText   string
	Deposit       money.Amount
	DepositMethod string
}

// Draft is the mutable working state of a sale under construction. It
// holds no locks; callers serialise access per draft.
type Draft struct {
	id    string
	op    domain.Operator
	rates RateSource

	lines        []*Line
	storeID      int64
	soldBy       *int64
	clientID     *int64
	discountText string
	discount     money.Amount
	grandTotal   money.Amount

	allocations []Allocation
	onCredit    bool
	debt        *Debt

	submitted bool
}

// New opens a draft for the given operator with one blank line and a
// single cash allocation. Non-privileged operators are pinned to their
// own store and recorded as the seller.
func New(op domain.Operator, rates RateSource) *Draft {
	d := &Draft{
		id:      xid.New("draft"),
		op:      op,
		rates:   rates,
		storeID: op.StoreID,
		allocations: []Allocation{
			{Method: domain.PayCash},
		},
	}
	if !op.Privileged() {
		uid := op.UserID
		d.soldBy = &uid
	}
	d.lines = append(d.lines, newLine(xid.New("line")))
	d.recompute()
	return d
}

func (d *Draft) ID() string                 { return d.id }
func (d *Draft) Operator() domain.Operator  { return d.op }
func (d *Draft) StoreID() int64             { return d.storeID }
func (d *Draft) SoldBy() *int64             { return d.soldBy }
func (d *Draft) ClientID() *int64           { return d.clientID }
func (d *Draft) OnCredit() bool             { return d.onCredit }
func (d *Draft) Submitted() bool            { return d.submitted }
func (d *Draft) Discount() money.Amount     { return d.discount }
func (d *Draft) DiscountText() string       { return d.discountText }
func (d *Draft) GrandTotal() money.Amount   { return d.grandTotal }

// ExpectedNetTotal is what the payment plan must cover: the grand total
// minus the discount, never negative.
func (d *Draft) ExpectedNetTotal() money.Amount {
	return d.grandTotal.Sub(d.discount).ClampZero()
}

// Lines returns value copies; mutate through the draft methods only.
func (d *Draft) Lines() []Line {
	out := make([]Line, len(d.lines))
	for i, l := range d.lines {
		out[i] = *l
	}
	return out
}

func (d *Draft) Allocations() []Allocation {
	out := make([]Allocation, len(d.allocations))
	copy(out, d.allocations)
	return out
}

func (d *Draft) DebtTerms() *Debt {
	if d.debt == nil {
		return nil
	}
	cp := *d.debt
	return &cp
}

func (d *Draft) guard() error {
	if d.submitted {
		return ErrSubmitted
	}
	return nil
}

func (d *Draft) line(id string) (*Line, error) {
	for _, l := range d.lines {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLineNotFound, id)
}

// AddLine appends a blank line and returns its id.
func (d *Draft) AddLine() (string, error) {
	if err := d.guard(); err != nil {
		return "", err
	}
	l := newLine(xid.New("line"))
	d.lines = append(d.lines, l)
	return l.ID, nil
}

// RemoveLine drops a line. The draft always keeps at least one.
func (d *Draft) RemoveLine(id string) error {
	if err := d.guard(); err != nil {
		return err
	}
	if len(d.lines) == 1 {
		return ErrLastLine
	}
	for i, l := range d.lines {
		if l.ID == id {
			d.lines = append(d.lines[:i], d.lines[i+1:]...)
			d.recompute()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrLineNotFound, id)
}

// SelectProduct binds a product to a line. Products with nothing
// available are rejected outright. Products that track stock batches
// park the line in a pending state until ResolveStock is called; the
// returned flag reports that case.
func (d *Draft) SelectProduct(lineID string, snap domain.ProductSnapshot) (pending bool, err error) {
	if err := d.guard(); err != nil {
		return false, err
	}
	l, err := d.line(lineID)
	if err != nil {
		return false, err
	}
	if !snap.AvailableQuantity.IsPositive() {
		return false, fmt.Errorf("%w: %s", ErrInsufficientStock, snap.Name)
	}
	if snap.RequiresStockSelection {
		l.Product = &snap
		l.Stock = nil
		l.State = LinePendingStock
		return true, nil
	}
	l.commit(snap, nil)
	d.recompute()
	return false, nil
}

// ResolveStock completes a pending selection with the chosen batch.
func (d *Draft) ResolveStock(lineID string, stock domain.StockRef) error {
	if err := d.guard(); err != nil {
		return err
	}
	l, err := d.line(lineID)
	if err != nil {
		return err
	}
	if l.State != LinePendingStock || l.Product == nil {
		return ErrNoPendingStock
	}
	l.commit(*l.Product, &stock)
	d.recompute()
	return nil
}

// DiscardPendingStock abandons a pending selection, reverting the line
// to empty.
func (d *Draft) DiscardPendingStock(lineID string) error {
	if err := d.guard(); err != nil {
		return err
	}
	l, err := d.line(lineID)
	if err != nil {
		return err
	}
	if l.State != LinePendingStock {
		return ErrNoPendingStock
	}
	l.Product = nil
	l.State = LineEmpty
	return nil
}

// SetQuantity applies raw operator input to a line. Input with a second
// decimal separator is ignored, keeping the previous value. A value
// above availability is clamped down and ErrInsufficientStock returned
// as a warning; the draft is still updated.
func (d *Draft) SetQuantity(lineID, raw string) error {
	if err := d.guard(); err != nil {
		return err
	}
	l, err := d.line(lineID)
	if err != nil {
		return err
	}
	if l.State == LinePendingStock {
		return ErrStockSelectionPending
	}
	sanitized, ok := money.Sanitize(raw)
	if !ok {
		return nil
	}
	l.QuantityText = sanitized
	qty, _ := money.ParseQuantity(sanitized)
	l.Quantity = qty
	clamped := l.clampQuantity()
	l.recompute()
	d.recompute()
	if clamped {
		return fmt.Errorf("%w: only %s available", ErrInsufficientStock, l.available())
	}
	return nil
}

// SetUnitPrice applies raw price input. Unparseable input reads as zero
// so the running totals stay defined while the operator types.
func (d *Draft) SetUnitPrice(lineID, raw string) error {
	if err := d.guard(); err != nil {
		return err
	}
	l, err := d.line(lineID)
	if err != nil {
		return err
	}
	if l.State == LinePendingStock {
		return ErrStockSelectionPending
	}
	sanitized, ok := money.Sanitize(raw)
	if !ok {
		return nil
	}
	l.PriceText = sanitized
	l.UnitPrice = money.ParseLenient(sanitized)
	l.recompute()
	d.recompute()
	return nil
}

// SetSellingUnit switches the display unit of a committed line. The
// quantity and price values are left untouched.
func (d *Draft) SetSellingUnit(lineID string, unitID int64) error {
	if err := d.guard(); err != nil {
		return err
	}
	l, err := d.line(lineID)
	if err != nil {
		return err
	}
	if l.State != LineCommitted || l.Product == nil {
		return fmt.Errorf("%w: no product on line", ErrUnknownUnit)
	}
	for _, u := range l.Product.Units {
		if u.ID == unitID {
			l.Unit = u
			return nil
		}
	}
	if len(l.Product.Units) == 0 && unitID == l.Unit.ID {
		return nil
	}
	return fmt.Errorf("%w: unit %d", ErrUnknownUnit, unitID)
}

// SetDiscount applies raw discount input against the grand total.
func (d *Draft) SetDiscount(raw string) error {
	if err := d.guard(); err != nil {
		return err
	}
	sanitized, ok := money.Sanitize(raw)
	if !ok {
		return nil
	}
	d.discountText = sanitized
	d.discount = money.ParseLenient(sanitized)
	d.recompute()
	return nil
}

// SetStore moves the draft to another store. Only privileged operators
// may do this; the seller assignment is reset with the move.
func (d *Draft) SetStore(storeID int64) error {
	if err := d.guard(); err != nil {
		return err
	}
	if !d.op.Privileged() {
		return fmt.Errorf("%w: store change", ErrForbidden)
	}
	d.storeID = storeID
	d.soldBy = nil
	return nil
}

// SetSoldBy records which seller the sale is attributed to. Privileged
// operators only; everyone else is pinned to themselves.
func (d *Draft) SetSoldBy(userID int64) error {
	if err := d.guard(); err != nil {
		return err
	}
	if !d.op.Privileged() {
		return fmt.Errorf("%w: seller change", ErrForbidden)
	}
	d.soldBy = &userID
	return nil
}

// SetClient attaches a client to the sale. On credit sales the client
// becomes the debtor; otherwise it is recorded on the sale itself.
func (d *Draft) SetClient(clientID int64) error {
	if err := d.guard(); err != nil {
		return err
	}
	d.clientID = &clientID
	if d.debt != nil {
		d.debt.ClientID = clientID
	}
	return nil
}

// SetOnCredit toggles credit mode. Enabling it seeds the debt terms
// with a due date one month out and a cash deposit method; disabling
// drops them.
func (d *Draft) SetOnCredit(on bool) error {
	if err := d.guard(); err != nil {
		return err
	}
	if d.onCredit == on {
		return nil
	}
	d.onCredit = on
	if !on {
		d.debt = nil
		return nil
	}
	d.debt = &Debt{
		DueDate:       time.Now().Add(defaultCreditTerm),
		DepositMethod: domain.PayCash,
	}
	if d.clientID != nil {
		d.debt.ClientID = *d.clientID
	}
	return nil
}

func (d *Draft) SetDueDate(due time.Time) error {
	if err := d.guard(); err != nil {
		return err
	}
	if d.debt == nil {
		return ErrNotOnCredit
	}
	d.debt.DueDate = due
	return nil
}

func (d *Draft) SetDeposit(raw string) error {
	if err := d.guard(); err != nil {
		return err
	}
	if d.debt == nil {
		return ErrNotOnCredit
	}
	sanitized, ok := money.Sanitize(raw)
	if !ok {
		return nil
	}
	d.debt.DepositText = sanitized
	d.debt.Deposit = money.ParseLenient(sanitized)
	return nil
}

func (d *Draft) SetDepositMethod(method string) error {
	if err := d.guard(); err != nil {
		return err
	}
	if d.debt == nil {
		return ErrNotOnCredit
	}
	if !domain.IsSupportedPaymentMethod(method) {
		return fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
	d.debt.DepositMethod = method
	return nil
}

// AddAllocation splits the payment plan. The new allocation starts as
// cash covering the uncovered remainder; adding one when the plan is
// already covered is rejected.
func (d *Draft) AddAllocation() error {
	if err := d.guard(); err != nil {
		return err
	}
	expected := d.ExpectedNetTotal()
	covered := contributed(d.allocations, -1)
	remainder := expected.Sub(covered)
	if !remainder.Decimal().IsPositive() {
		return ErrPlanFull
	}
	d.allocations = append(d.allocations, Allocation{
		Method:     domain.PayCash,
		Amount:     remainder,
		AmountText: remainder.String(),
	})
	d.recompute()
	return nil
}

// RemoveAllocation drops an allocation; the freed amount flows back
// into the last remaining one on rebalance. The first allocation is
// permanent.
func (d *Draft) RemoveAllocation(index int) error {
	if err := d.guard(); err != nil {
		return err
	}
	if index < 0 || index >= len(d.allocations) {
		return ErrAllocationNotFound
	}
	if index == 0 {
		return ErrFirstAllocation
	}
	d.allocations = append(d.allocations[:index], d.allocations[index+1:]...)
	d.recompute()
	return nil
}

// SetAllocationMethod switches the payment method. Switching to the
// currency method seeds the exchange rate from the latest snapshot and
// resets the amount; the operator then types the foreign figure.
func (d *Draft) SetAllocationMethod(index int, method string) error {
	if err := d.guard(); err != nil {
		return err
	}
	if index < 0 || index >= len(d.allocations) {
		return ErrAllocationNotFound
	}
	if !domain.IsSupportedPaymentMethod(method) {
		return fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
	a := &d.allocations[index]
	if a.Method == method {
		return nil
	}
	wasCurrency := a.Method == domain.PayCurrency
	a.Method = method
	if method == domain.PayCurrency {
		a.ExchangeRate = d.latestRate()
		a.ForeignAmount = decimal.Zero
		a.ForeignText = ""
		a.Amount = money.Zero()
		a.AmountText = ""
		a.Change = money.Zero()
	} else if wasCurrency {
		a.ExchangeRate = decimal.Zero
		a.ForeignAmount = decimal.Zero
		a.ForeignText = ""
		a.Change = money.Zero()
	}
	d.recompute()
	return nil
}

func (d *Draft) latestRate() decimal.Decimal {
	if d.rates != nil {
		if r := d.rates.LatestRate(); r.IsPositive() {
			return r
		}
	}
	return fallbackExchangeRate
}

// SetAllocationAmount applies raw input to a non-currency allocation.
// The value is clipped so the whole plan never exceeds the expected
// total.
func (d *Draft) SetAllocationAmount(index int, raw string) error {
	if err := d.guard(); err != nil {
		return err
	}
	if index < 0 || index >= len(d.allocations) {
		return ErrAllocationNotFound
	}
	a := &d.allocations[index]
	if a.Method == domain.PayCurrency {
		return ErrDerivedAmount
	}
	sanitized, ok := money.Sanitize(raw)
	if !ok {
		return nil
	}
	amt := money.ParseLenient(sanitized)
	headroom := d.ExpectedNetTotal().Sub(contributed(d.allocations, index)).ClampZero()
	if amt.Cmp(headroom) > 0 {
		amt = headroom
		sanitized = headroom.String()
	}
	a.AmountText = sanitized
	a.Amount = amt
	// No rebalance here: the clip already keeps the plan within the
	// expected total, and rebalancing would overwrite the edit itself.
	return nil
}

// SetForeignAmount applies raw foreign-currency input; the local amount
// is derived through the exchange rate.
func (d *Draft) SetForeignAmount(index int, raw string) error {
	if err := d.guard(); err != nil {
		return err
	}
	if index < 0 || index >= len(d.allocations) {
		return ErrAllocationNotFound
	}
	a := &d.allocations[index]
	if a.Method != domain.PayCurrency {
		return fmt.Errorf("%w: %s", ErrUnsupportedMethod, a.Method)
	}
	sanitized, ok := money.Sanitize(raw)
	if !ok {
		return nil
	}
	foreign, _ := money.ParseQuantity(sanitized)
	a.ForeignText = sanitized
	a.ForeignAmount = foreign
	a.Amount = money.FromDecimal(foreign.Mul(a.ExchangeRate))
	a.AmountText = a.Amount.String()
	d.recompute()
	return nil
}

// SetExchangeRate re-rates a currency allocation. The implied foreign
// amount is held constant and the local amount re-derived from it.
func (d *Draft) SetExchangeRate(index int, rate decimal.Decimal) error {
	if err := d.guard(); err != nil {
		return err
	}
	if index < 0 || index >= len(d.allocations) {
		return ErrAllocationNotFound
	}
	a := &d.allocations[index]
	if a.Method != domain.PayCurrency {
		return fmt.Errorf("%w: %s", ErrUnsupportedMethod, a.Method)
	}
	if !rate.IsPositive() {
		return fmt.Errorf("%w: exchange rate must be positive", ErrMissingRequiredField)
	}
	implied := a.ForeignAmount
	if a.ExchangeRate.IsPositive() && !a.Amount.IsZero() {
		implied = a.Amount.Div(a.ExchangeRate)
	}
	a.ExchangeRate = rate
	a.ForeignAmount = implied
	a.ForeignText = implied.String()
	a.Amount = money.FromDecimal(implied.Mul(rate))
	a.AmountText = a.Amount.String()
	d.recompute()
	return nil
}

// recompute refreshes the grand total from the lines and rebalances the
// payment plan against it. Every mutation funnels through here.
func (d *Draft) recompute() {
	total := money.Zero()
	for _, l := range d.lines {
		total = total.Add(l.Total)
	}
	d.grandTotal = total
	d.allocations = rebalance(d.ExpectedNetTotal(), d.allocations)
}

// MarkSubmitted freezes the draft. Called only after the sale has been
// durably recorded; a failed submission leaves the draft editable.
func (d *Draft) MarkSubmitted() {
	d.submitted = true
}
