package draft

import (
	"fmt"

	"savdo/backend/internal/domain"
)

// Finalize validates the draft and assembles the sale payload. The
// draft itself is not frozen here: if persisting the payload fails the
// operator keeps an editable draft, and MarkSubmitted is called only
// once the sale is durably recorded.
func (d *Draft) Finalize() (domain.SalePayload, error) {
	var zero domain.SalePayload
	if err := d.guard(); err != nil {
		return zero, err
	}
	for i, l := range d.lines {
		switch l.State {
		case LinePendingStock:
			return zero, fmt.Errorf("%w: line %d", ErrStockSelectionPending, i+1)
		case LineEmpty:
			return zero, fmt.Errorf("%w: product on line %d", ErrMissingRequiredField, i+1)
		}
	}
	if d.storeID <= 0 {
		return zero, fmt.Errorf("%w: store", ErrMissingRequiredField)
	}
	if d.op.Privileged() && d.soldBy == nil {
		return zero, fmt.Errorf("%w: sold_by", ErrMissingRequiredField)
	}
	if d.onCredit {
		if d.debt == nil || d.debt.ClientID <= 0 {
			return zero, fmt.Errorf("%w: client for credit sale", ErrMissingRequiredField)
		}
		if d.debt.DueDate.IsZero() {
			return zero, fmt.Errorf("%w: due date for credit sale", ErrMissingRequiredField)
		}
	}
	for _, l := range d.lines {
		if l.Product != nil && l.Product.MinPrice != nil && l.UnitPrice.Cmp(*l.Product.MinPrice) < 0 {
			return zero, fmt.Errorf("%w: %s priced %s, minimum %s",
				ErrBelowMinimumPrice, l.Product.Name, l.UnitPrice, *l.Product.MinPrice)
		}
	}
	expected := d.ExpectedNetTotal()
	paid := contributed(d.allocations, -1)
	if !paid.WithinEpsilon(expected) {
		return zero, fmt.Errorf("%w: paid %s, expected %s", ErrPaymentMismatch, paid, expected)
	}
	return d.payload(), nil
}

func (d *Draft) payload() domain.SalePayload {
	p := domain.SalePayload{
		Store:          d.storeID,
		PaymentMethod:  d.allocations[0].Method,
		TotalAmount:    d.grandTotal.String(),
		DiscountAmount: d.discount.String(),
		SoldBy:         d.soldBy,
		OnCredit:       d.onCredit,
	}
	for _, l := range d.lines {
		item := domain.SaleItemPayload{
			ProductWrite: l.Product.ID,
			Quantity:     l.Quantity.String(),
			SellingUnit:  l.Unit.ID,
			PricePerUnit: l.UnitPrice.String(),
		}
		if l.Stock != nil {
			item.Stock = &l.Stock.ID
		}
		p.SaleItems = append(p.SaleItems, item)
	}
	for _, a := range d.allocations {
		pay := domain.SalePaymentPayload{PaymentMethod: a.Method}
		if a.Method == domain.PayCurrency {
			pay.Amount = a.ForeignAmount.StringFixed(2)
			rate := a.ExchangeRate
			pay.ExchangeRate = &rate
			if !a.Change.IsZero() {
				change := a.Change.String()
				pay.ChangeAmount = &change
			}
		} else {
			pay.Amount = a.Amount.String()
		}
		p.SalePayments = append(p.SalePayments, pay)
	}
	if d.onCredit {
		debt := &domain.SaleDebtPayload{
			Client:  d.debt.ClientID,
			DueDate: d.debt.DueDate.Format("2006-01-02"),
		}
		if !d.debt.Deposit.IsZero() {
			dep := d.debt.Deposit.String()
			debt.Deposit = &dep
			method := d.debt.DepositMethod
			if method == "" {
				method = domain.PayCash
			}
			debt.DepositPaymentMethod = &method
		}
		p.SaleDebt = debt
	} else if d.clientID != nil {
		p.Client = d.clientID
	}
	return p
}
