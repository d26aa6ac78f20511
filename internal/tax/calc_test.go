package tax

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLineItemIntraState(t *testing.T) {
	res := LineItem(LineItemInput{
		Qty:        d("2"),
		Rate:       d("500"),
		TaxRatePct: d("18"),
	})
	require.True(t, res.Amount.Equal(d("1000")), "amount %s", res.Amount)
	require.True(t, res.TaxableAmount.Equal(d("1000")))
	require.True(t, res.CGST.Equal(d("90")), "cgst %s", res.CGST)
	require.True(t, res.CGST.Equal(res.SGST), "CGST and SGST must match")
	require.True(t, res.IGST.IsZero())
	require.True(t, res.TaxAmount.Equal(d("180")))
	require.True(t, res.ItemTotal.Equal(d("1180")))
}

// An odd taxable base must still yield equal halves: both components come
// from the same rounded figure.
func TestLineItemIntraStateHalvesAlwaysEqual(t *testing.T) {
	res := LineItem(LineItemInput{
		Qty:        d("1"),
		Rate:       d("999.99"),
		TaxRatePct: d("18"),
	})
	require.True(t, res.CGST.Equal(res.SGST), "cgst %s sgst %s", res.CGST, res.SGST)
	require.True(t, res.TaxAmount.Equal(res.CGST.Add(res.SGST)))
}

func TestLineItemInterState(t *testing.T) {
	res := LineItem(LineItemInput{
		Qty:        d("1"),
		Rate:       d("1000"),
		TaxRatePct: d("18"),
		IGST:       true,
	})
	require.True(t, res.IGST.Equal(d("180")))
	require.True(t, res.CGST.IsZero())
	require.True(t, res.SGST.IsZero())
	require.True(t, res.TaxAmount.Equal(d("180")))
}

func TestLineItemDiscountBeforeTax(t *testing.T) {
	res := LineItem(LineItemInput{
		Qty:         d("1"),
		Rate:        d("1000"),
		TaxRatePct:  d("18"),
		DiscountPct: d("10"),
	})
	require.True(t, res.DiscountAmount.Equal(d("100")))
	require.True(t, res.TaxableAmount.Equal(d("900")))
	require.True(t, res.TaxAmount.Equal(d("162")))
}

func TestLineItemInclusiveBacksOutTax(t *testing.T) {
	res := LineItem(LineItemInput{
		Qty:        d("1"),
		Rate:       d("1180"),
		TaxRatePct: d("18"),
		Inclusive:  true,
	})
	require.True(t, res.TaxableAmount.Equal(d("1000")), "taxable %s", res.TaxableAmount)
	require.True(t, res.TaxAmount.Equal(d("180")))
	require.True(t, res.ItemTotal.Equal(d("1180")))
}

func TestTotals(t *testing.T) {
	lines := []LineItemResult{
		LineItem(LineItemInput{Qty: d("2"), Rate: d("500"), TaxRatePct: d("18")}),
		LineItem(LineItemInput{Qty: d("1"), Rate: d("200"), TaxRatePct: d("12"), IGST: true}),
	}
	totals := Totals(lines, d("50"), d("100"), d("-0.50"))
	require.True(t, totals.Subtotal.Equal(d("1200")))
	require.True(t, totals.TaxTotal.Equal(d("204")))
	// 1200 - 50 + 204 + 100 - 0.50
	require.True(t, totals.GrandTotal.Equal(d("1453.50")), "grand %s", totals.GrandTotal)
}

func TestRoundMoneyHalfUp(t *testing.T) {
	require.Equal(t, "10.13", RoundMoney(d("10.125")).StringFixed(2))
	require.Equal(t, "10.12", RoundMoney(d("10.124")).StringFixed(2))
}

func TestAgingBucketBoundaries(t *testing.T) {
	due := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		days int
		want string
	}{
		{-5, BucketCurrent},
		{0, BucketCurrent},
		{1, Bucket1To30},
		{30, Bucket1To30},
		{31, Bucket31To60},
		{60, Bucket31To60},
		{61, Bucket61To90},
		{90, Bucket61To90},
		{91, Bucket90Plus},
		{400, Bucket90Plus},
	}
	for _, tc := range cases {
		got := AgingBucket(due, due.AddDate(0, 0, tc.days))
		require.Equal(t, tc.want, got, "days=%d", tc.days)
	}
}
