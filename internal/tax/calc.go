// Package tax holds the pure calculation primitives for GST line items,
// invoice totals, receivable aging and payment allocation. Nothing in this
// package touches storage or the clock beyond what callers pass in.
package tax

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// RoundMoney is the single rounding primitive for currency values: half-up to
// two decimals. Every monetary figure the engine emits passes through here so
// results are identical across call sites.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineItemInput describes one invoice or bill line before tax.
type LineItemInput struct {
	Qty         decimal.Decimal
	Rate        decimal.Decimal
	TaxRatePct  decimal.Decimal
	DiscountPct decimal.Decimal
	// IGST selects inter-state treatment: the full rate goes to IGST.
	// Otherwise the rate splits exactly in half between CGST and SGST.
	IGST bool
	// Inclusive means Rate already contains tax; the taxable amount is
	// back-computed as total / (1 + rate/100).
	Inclusive bool
}

// LineItemResult is the fully computed tax split for one line.
type LineItemResult struct {
	Amount         decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	TaxAmount      decimal.Decimal
	CGST           decimal.Decimal
	SGST           decimal.Decimal
	IGST           decimal.Decimal
	ItemTotal      decimal.Decimal
}

// LineItem computes the amount, discount, taxable base and CGST/SGST/IGST
// split for a single line.
func LineItem(in LineItemInput) LineItemResult {
	var res LineItemResult
	res.Amount = RoundMoney(in.Qty.Mul(in.Rate))
	res.DiscountAmount = RoundMoney(res.Amount.Mul(in.DiscountPct).Div(hundred))
	after := res.Amount.Sub(res.DiscountAmount)

	if in.Inclusive {
		res.TaxableAmount = RoundMoney(after.Mul(hundred).Div(hundred.Add(in.TaxRatePct)))
	} else {
		res.TaxableAmount = after
	}

	if in.IGST {
		res.IGST = RoundMoney(res.TaxableAmount.Mul(in.TaxRatePct).Div(hundred))
		res.TaxAmount = res.IGST
	} else {
		// Half the rate to each of CGST and SGST; the halves are rounded
		// identically so the two components are always equal.
		half := RoundMoney(res.TaxableAmount.Mul(in.TaxRatePct.Div(two)).Div(hundred))
		res.CGST = half
		res.SGST = half
		res.TaxAmount = half.Add(half)
	}
	res.ItemTotal = res.TaxableAmount.Add(res.TaxAmount)
	return res
}

// InvoiceTotals aggregates computed lines into document totals.
type InvoiceTotals struct {
	Subtotal   decimal.Decimal
	TaxTotal   decimal.Decimal
	GrandTotal decimal.Decimal
}

// Totals computes grand_total = subtotal - discount + tax + shipping + adjustment.
func Totals(lines []LineItemResult, discount, shipping, adjustment decimal.Decimal) InvoiceTotals {
	var t InvoiceTotals
	for _, line := range lines {
		t.Subtotal = t.Subtotal.Add(line.TaxableAmount)
		t.TaxTotal = t.TaxTotal.Add(line.TaxAmount)
	}
	t.Subtotal = RoundMoney(t.Subtotal)
	t.TaxTotal = RoundMoney(t.TaxTotal)
	t.GrandTotal = RoundMoney(t.Subtotal.Sub(discount).Add(t.TaxTotal).Add(shipping).Add(adjustment))
	return t
}

// Aging bucket labels, ordered from least to most overdue.
const (
	BucketCurrent = "current"
	Bucket1To30   = "1-30"
	Bucket31To60  = "31-60"
	Bucket61To90  = "61-90"
	Bucket90Plus  = "90+"
)

// AgingBucket classifies an invoice by days overdue as of the reference date.
// Boundary values belong to the lower bucket: exactly 30 days overdue is "1-30".
func AgingBucket(dueDate, asOf time.Time) string {
	days := int(asOf.Sub(dueDate).Hours() / 24)
	switch {
	case days <= 0:
		return BucketCurrent
	case days <= 30:
		return Bucket1To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return Bucket90Plus
	}
}
