package tax

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/evgarage-erp/evgarage-erp/internal/shared"
)

// AllocationStrategy selects how a payment spreads across open invoices.
type AllocationStrategy string

const (
	StrategyOldestFirst  AllocationStrategy = "oldest_first"
	StrategyProportional AllocationStrategy = "proportional"
)

// OpenInvoice is the slice of invoice state the allocator needs.
type OpenInvoice struct {
	ID      string
	Date    time.Time
	Balance decimal.Decimal
}

// Allocation maps one invoice to the portion of the payment applied to it.
type Allocation struct {
	InvoiceID string
	Amount    decimal.Decimal
}

// AllocatePayment splits amount across the invoices. oldest_first fills each
// invoice's balance in date order until the amount runs out; proportional
// weights by each invoice's share of the total outstanding balance, with the
// rounding remainder assigned to the largest allocation. The allocated sum
// never exceeds amount.
func AllocatePayment(amount decimal.Decimal, invoices []OpenInvoice, strategy AllocationStrategy) ([]Allocation, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: payment amount cannot be negative", shared.ErrValidation)
	}
	switch strategy {
	case StrategyOldestFirst:
		return allocateOldestFirst(amount, invoices), nil
	case StrategyProportional:
		return allocateProportional(amount, invoices), nil
	default:
		return nil, fmt.Errorf("%w: unknown allocation strategy %q", shared.ErrValidation, strategy)
	}
}

func allocateOldestFirst(amount decimal.Decimal, invoices []OpenInvoice) []Allocation {
	ordered := make([]OpenInvoice, len(invoices))
	copy(ordered, invoices)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	byID := make(map[string]decimal.Decimal, len(ordered))
	remaining := amount
	for _, inv := range ordered {
		if !remaining.IsPositive() {
			break
		}
		// Stored and subtracted at the same 2dp precision, so the
		// allocations never sum past the payment.
		applied := RoundMoney(decimal.Min(remaining, inv.Balance))
		if applied.GreaterThan(remaining) {
			break
		}
		byID[inv.ID] = applied
		remaining = remaining.Sub(applied)
	}
	out := make([]Allocation, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, Allocation{InvoiceID: inv.ID, Amount: byID[inv.ID]})
	}
	return out
}

func allocateProportional(amount decimal.Decimal, invoices []OpenInvoice) []Allocation {
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.Balance)
	}
	out := make([]Allocation, len(invoices))
	if total.IsZero() {
		for i, inv := range invoices {
			out[i] = Allocation{InvoiceID: inv.ID}
		}
		return out
	}
	// Payments above the total outstanding cap at the balances themselves.
	if amount.GreaterThan(total) {
		amount = total
	}

	allocated := decimal.Zero
	largest := 0
	for i, inv := range invoices {
		share := RoundMoney(amount.Mul(inv.Balance).Div(total))
		out[i] = Allocation{InvoiceID: inv.ID, Amount: share}
		allocated = allocated.Add(share)
		if share.GreaterThan(out[largest].Amount) {
			largest = i
		}
	}
	// Rounding remainder (positive or negative) lands on the largest allocation.
	if diff := amount.Sub(allocated); !diff.IsZero() {
		out[largest].Amount = RoundMoney(out[largest].Amount.Add(diff))
	}
	return out
}
