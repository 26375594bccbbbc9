package service

import (
	"savdo/backend/internal/domain"
	"savdo/backend/internal/draft"
)

// DraftView is the wire representation of a draft. All amounts are
// strings with two fractional digits; raw operator input is echoed back
// untouched so half-typed numbers keep their caret.
type DraftView struct {
	ID               string           `json:"id"`
	StoreID          int64            `json:"store_id"`
	SoldBy           *int64           `json:"sold_by,omitempty"`
	ClientID         *int64           `json:"client_id,omitempty"`
	Lines            []LineView       `json:"lines"`
	GrandTotal       string           `json:"grand_total"`
	DiscountText     string           `json:"discount"`
	ExpectedNetTotal string           `json:"expected_net_total"`
	Payments         []AllocationView `json:"payments"`
	OnCredit         bool             `json:"on_credit"`
	Debt             *DebtView        `json:"debt,omitempty"`
	Submitted        bool             `json:"submitted"`
	Warnings         []string         `json:"warnings,omitempty"`
}

type LineView struct {
	ID           string                  `json:"id"`
	State        string                  `json:"state"`
	Product      *domain.ProductSnapshot `json:"product,omitempty"`
	Unit         domain.UnitSpec         `json:"unit"`
	Stock        *domain.StockRef        `json:"stock,omitempty"`
	StockOptions []domain.StockRef       `json:"stock_options,omitempty"`
	QuantityText string                  `json:"quantity"`
	PriceText    string                  `json:"price_per_unit"`
	Total        string                  `json:"total"`
}

type AllocationView struct {
	Method        string `json:"payment_method"`
	AmountText    string `json:"amount"`
	Amount        string `json:"amount_value"`
	ForeignText   string `json:"foreign_amount,omitempty"`
	ExchangeRate  string `json:"exchange_rate,omitempty"`
	Change        string `json:"change_amount,omitempty"`
}

type DebtView struct {
	ClientID      int64  `json:"client_id,omitempty"`
	DueDate       string `json:"due_date"`
	DepositText   string `json:"deposit"`
	DepositMethod string `json:"deposit_payment_method"`
}

func viewOf(d *draft.Draft, warnings []string) DraftView {
	view := DraftView{
		ID:               d.ID(),
		StoreID:          d.StoreID(),
		SoldBy:           d.SoldBy(),
		ClientID:         d.ClientID(),
		GrandTotal:       d.GrandTotal().String(),
		DiscountText:     d.DiscountText(),
		ExpectedNetTotal: d.ExpectedNetTotal().String(),
		OnCredit:         d.OnCredit(),
		Submitted:        d.Submitted(),
		Warnings:         warnings,
	}
	for _, l := range d.Lines() {
		view.Lines = append(view.Lines, LineView{
			ID:           l.ID,
			State:        string(l.State),
			Product:      l.Product,
			Unit:         l.Unit,
			Stock:        l.Stock,
			QuantityText: l.QuantityText,
			PriceText:    l.PriceText,
			Total:        l.Total.String(),
		})
	}
	for _, a := range d.Allocations() {
		av := AllocationView{
			Method:     a.Method,
			AmountText: a.AmountText,
			Amount:     a.Amount.String(),
		}
		if a.Method == domain.PayCurrency {
			av.ForeignText = a.ForeignText
			av.ExchangeRate = a.ExchangeRate.String()
			av.Change = a.Change.String()
		}
		view.Payments = append(view.Payments, av)
	}
	if debt := d.DebtTerms(); debt != nil {
		view.Debt = &DebtView{
			ClientID:      debt.ClientID,
			DueDate:       debt.DueDate.Format("2006-01-02"),
			DepositText:   debt.DepositText,
			DepositMethod: debt.DepositMethod,
		}
	}
	return view
}
