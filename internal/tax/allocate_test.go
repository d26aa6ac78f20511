package tax

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2026, 3, n, 0, 0, 0, 0, time.UTC)
}

func TestAllocateOldestFirst(t *testing.T) {
	invoices := []OpenInvoice{
		{ID: "INV-2", Date: day(10), Balance: d("500")},
		{ID: "INV-1", Date: day(1), Balance: d("1000")},
	}
	got, err := AllocatePayment(d("1000"), invoices, StrategyOldestFirst)
	require.NoError(t, err)
	// Output follows input order; amounts follow invoice date order.
	require.Len(t, got, 2)
	require.Equal(t, "INV-2", got[0].InvoiceID)
	require.True(t, got[0].Amount.IsZero(), "newest invoice got %s", got[0].Amount)
	require.True(t, got[1].Amount.Equal(d("1000")))
}

func TestAllocateOldestFirstSpillsOver(t *testing.T) {
	invoices := []OpenInvoice{
		{ID: "INV-1", Date: day(1), Balance: d("600")},
		{ID: "INV-2", Date: day(5), Balance: d("900")},
	}
	got, err := AllocatePayment(d("1000"), invoices, StrategyOldestFirst)
	require.NoError(t, err)
	require.True(t, got[0].Amount.Equal(d("600")))
	require.True(t, got[1].Amount.Equal(d("400")))
}

func TestAllocateProportional(t *testing.T) {
	invoices := []OpenInvoice{
		{ID: "INV-1", Date: day(1), Balance: d("600")},
		{ID: "INV-2", Date: day(2), Balance: d("300")},
	}
	got, err := AllocatePayment(d("450"), invoices, StrategyProportional)
	require.NoError(t, err)
	require.True(t, got[0].Amount.Equal(d("300")))
	require.True(t, got[1].Amount.Equal(d("150")))
}

func TestAllocateProportionalRemainderOnLargest(t *testing.T) {
	invoices := []OpenInvoice{
		{ID: "INV-1", Date: day(1), Balance: d("100")},
		{ID: "INV-2", Date: day(2), Balance: d("100")},
		{ID: "INV-3", Date: day(3), Balance: d("100")},
	}
	got, err := AllocatePayment(d("100"), invoices, StrategyProportional)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, a := range got {
		sum = sum.Add(a.Amount)
	}
	require.True(t, sum.Equal(d("100")), "allocated %s", sum)
}

func TestAllocateProportionalOverpaymentCaps(t *testing.T) {
	invoices := []OpenInvoice{
		{ID: "INV-1", Date: day(1), Balance: d("200")},
		{ID: "INV-2", Date: day(2), Balance: d("100")},
	}
	got, err := AllocatePayment(d("1000"), invoices, StrategyProportional)
	require.NoError(t, err)
	require.True(t, got[0].Amount.Equal(d("200")))
	require.True(t, got[1].Amount.Equal(d("100")))
}

// Sub-cent invoice balances must not round the allocations past the payment.
func TestAllocateOldestFirstSubCentBalances(t *testing.T) {
	invoices := []OpenInvoice{
		{ID: "INV-1", Date: day(1), Balance: d("0.005")},
		{ID: "INV-2", Date: day(2), Balance: d("0.005")},
	}
	amount := d("0.01")
	got, err := AllocatePayment(amount, invoices, StrategyOldestFirst)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, a := range got {
		sum = sum.Add(a.Amount)
	}
	require.True(t, sum.LessThanOrEqual(amount), "allocated %s for payment %s", sum, amount)
	require.True(t, got[0].Amount.Equal(d("0.01")))
	require.True(t, got[1].Amount.IsZero())
}

func TestAllocateRejectsBadInput(t *testing.T) {
	_, err := AllocatePayment(d("-1"), nil, StrategyOldestFirst)
	require.Error(t, err)
	_, err = AllocatePayment(d("10"), nil, AllocationStrategy("newest_first"))
	require.Error(t, err)
}
