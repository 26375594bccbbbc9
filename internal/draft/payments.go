package draft

import (
	"github.com/shopspring/decimal"

	"savdo/backend/internal/domain"
	"savdo/backend/internal/money"
)

// Allocation is one slice of the payment plan. For currency payments
// the operator types the foreign amount and the local Amount is derived
// from it; Change carries whatever exceeds the expected total back to
// the customer.
type Allocation struct {
	Method        string
	Amount        money.Amount
	AmountText    string
	ForeignText   string
	ForeignAmount decimal.Decimal
	ExchangeRate  decimal.Decimal
	Change        money.Amount
}

// NetContribution is what the allocation actually pays toward the sale:
// the local amount minus any change handed back.
func (a Allocation) NetContribution() money.Amount {
	if a.Method == domain.PayCurrency {
		return a.Amount.Sub(a.Change)
	}
	return a.Amount
}

// rebalance reconciles the plan against the expected net total. With a
// single non-currency allocation the amount is force-set to the total.
// With several, the earlier allocations keep their operator-set amounts
// and the last one absorbs the remainder, clamped at zero. Currency
// allocations keep their derived amount; their change is refreshed
// against whatever remains to be covered at their position instead.
func rebalance(expected money.Amount, allocs []Allocation) []Allocation {
	if len(allocs) == 0 {
		return allocs
	}
	out := make([]Allocation, len(allocs))
	copy(out, allocs)

	remaining := expected.ClampZero()
	for i := range out {
		last := i == len(out)-1
		if out[i].Method == domain.PayCurrency {
			out[i].Change = out[i].Amount.Sub(remaining).ClampZero()
		} else {
			if last {
				out[i].Amount = remaining
				out[i].AmountText = out[i].Amount.String()
			}
			out[i].Change = money.Zero()
		}
		remaining = remaining.Sub(out[i].NetContribution()).ClampZero()
	}
	return out
}

// contributed sums the net contributions of every allocation except the
// one at skip. Pass a negative skip to sum them all.
func contributed(allocs []Allocation, skip int) money.Amount {
	total := money.Zero()
	for i, a := range allocs {
		if i == skip {
			continue
		}
		total = total.Add(a.NetContribution())
	}
	return total
}
