package draft

import "errors"

var (
	// ErrInsufficientStock is non-fatal on quantity edits (the value is
	// clamped) and fatal on selecting a product with zero availability.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStockSelectionPending blocks commits and finalize until the
	// external stock choice lands.
	ErrStockSelectionPending = errors.New("stock selection pending")
	// ErrBelowMinimumPrice blocks finalize; the offending price is kept
	// editable, never silently corrected.
	ErrBelowMinimumPrice = errors.New("price below minimum")
	// ErrPaymentMismatch blocks finalize when allocations do not cover
	// the expected net total within the rounding epsilon.
	ErrPaymentMismatch = errors.New("payment total mismatch")
	// ErrMissingRequiredField blocks finalize and names the field.
	ErrMissingRequiredField = errors.New("missing required field")

	ErrSubmitted          = errors.New("draft already submitted")
	ErrLineNotFound       = errors.New("line not found")
	ErrAllocationNotFound = errors.New("payment allocation not found")
	ErrLastLine           = errors.New("the first line cannot be removed")
	ErrFirstAllocation    = errors.New("the first allocation cannot be removed")
	ErrPlanFull           = errors.New("payments already cover the expected total")
	ErrForbidden          = errors.New("not permitted for this operator")
	ErrUnknownUnit        = errors.New("unit not declared for product")
	ErrUnsupportedMethod  = errors.New("unsupported payment method")
	ErrDerivedAmount      = errors.New("amount is derived for currency payments")
	ErrNoPendingStock     = errors.New("line has no pending stock selection")
	ErrNotOnCredit        = errors.New("draft is not on credit")
)
