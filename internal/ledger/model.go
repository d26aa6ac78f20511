// Package ledger converts money-moving business events into balanced
// double-entry journal entries and persists them behind the period lock gate.
// Entries are immutable once written; corrections are reversal entries.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account pairs a chart-of-accounts code with its display name.
type Account struct {
	Code string
	Name string
}

// Fixed chart used by the posting mappings. Expense lines may carry a
// caller-supplied account instead.
var (
	AccountReceivable     = Account{"1200", "Accounts Receivable"}
	AccountBank           = Account{"1001", "Bank"}
	AccountCash           = Account{"1002", "Cash"}
	AccountGSTInputCGST   = Account{"1401", "GST Input Credit - CGST"}
	AccountGSTInputSGST   = Account{"1402", "GST Input Credit - SGST"}
	AccountGSTInputIGST   = Account{"1403", "GST Input Credit - IGST"}
	AccountPayable        = Account{"2100", "Accounts Payable"}
	AccountGSTPayableCGST = Account{"2301", "GST Payable - CGST"}
	AccountGSTPayableSGST = Account{"2302", "GST Payable - SGST"}
	AccountGSTPayableIGST = Account{"2303", "GST Payable - IGST"}
	AccountSalaryPayable  = Account{"2401", "Salary Payable"}
	AccountTDSPayable     = Account{"2402", "TDS Payable"}
	AccountEmployeePF     = Account{"2403", "Employee PF Payable"}
	AccountEmployerPFDue  = Account{"2404", "Employer PF Payable"}
	AccountESIPayable     = Account{"2405", "ESI Payable"}
	AccountProfTaxPayable = Account{"2406", "Professional Tax Payable"}
	AccountSalesRevenue   = Account{"4000", "Sales Revenue"}
	AccountCOGS           = Account{"5000", "Cost of Goods Sold"}
	AccountSalaryExpense  = Account{"5100", "Salary Expense"}
	AccountEmployerPFExp  = Account{"5110", "Employer PF Expense"}
	AccountEmployerESIExp = Account{"5120", "Employer ESI Expense"}
	AccountGeneralExpense = Account{"5900", "General Expense"}
)

// Line is one debit or credit against an account. Exactly one of Debit and
// Credit is non-zero.
type Line struct {
	AccountCode string
	AccountName string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// JournalEntry is one balanced posting. Never mutated after insert.
type JournalEntry struct {
	ID         int64
	OrgID      uuid.UUID
	Date       time.Time
	Lines      []Line
	SourceType string
	SourceID   string
	CreatedBy  string
	ReversalOf *int64
	CreatedAt  time.Time
}

func debit(acc Account, amount decimal.Decimal) Line {
	return Line{AccountCode: acc.Code, AccountName: acc.Name, Debit: amount}
}

func credit(acc Account, amount decimal.Decimal) Line {
	return Line{AccountCode: acc.Code, AccountName: acc.Name, Credit: amount}
}
