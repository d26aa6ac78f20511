package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/evgarage-erp/evgarage-erp/internal/shared"
	"github.com/evgarage-erp/evgarage-erp/internal/tax"
)

// Source document types as persisted on journal entries.
const (
	KindInvoice     = "INVOICE"
	KindPayment     = "PAYMENT"
	KindBill        = "BILL"
	KindBillPayment = "BILL_PAYMENT"
	KindExpense     = "EXPENSE"
	KindPayroll     = "PAYROLL"
	KindReversal    = "REVERSAL"
)

// Instrument selects the cash-side account for payments and expenses.
type Instrument string

const (
	InstrumentBank Instrument = "BANK"
	InstrumentCash Instrument = "CASH"
)

func (i Instrument) account() (Account, error) {
	switch i {
	case InstrumentBank:
		return AccountBank, nil
	case InstrumentCash:
		return AccountCash, nil
	default:
		return Account{}, fmt.Errorf("%w: unknown instrument %q", shared.ErrValidation, i)
	}
}

// Header carries the fields every posting event shares.
type Header struct {
	OrgID    uuid.UUID
	Date     time.Time
	SourceID string
	ActorID  string
}

// PostingEvent is the tagged union of money-moving business events. The set
// of implementations is closed; Post dispatches over it exhaustively.
type PostingEvent interface {
	Kind() string
	header() Header
	posting()
}

func (h Header) header() Header { return h }
func (Header) posting()         {}

// InvoicePosting debits Accounts Receivable and credits Sales Revenue plus
// GST Payable, split CGST+SGST or IGST by place of supply.
type InvoicePosting struct {
	Header
	Taxable decimal.Decimal
	CGST    decimal.Decimal
	SGST    decimal.Decimal
	IGST    decimal.Decimal
}

func (InvoicePosting) Kind() string { return KindInvoice }

// PaymentPosting records a customer payment: debit Bank/Cash, credit AR.
type PaymentPosting struct {
	Header
	Amount     decimal.Decimal
	Instrument Instrument
}

func (PaymentPosting) Kind() string { return KindPayment }

// BillPosting records a vendor bill: debit expense/COGS and GST input credit,
// credit Accounts Payable.
type BillPosting struct {
	Header
	ExpenseAccount Account
	Taxable        decimal.Decimal
	CGST           decimal.Decimal
	SGST           decimal.Decimal
	IGST           decimal.Decimal
}

func (BillPosting) Kind() string { return KindBill }

// BillPaymentPosting settles a vendor bill: debit AP, credit Bank/Cash.
type BillPaymentPosting struct {
	Header
	Amount     decimal.Decimal
	Instrument Instrument
}

func (BillPaymentPosting) Kind() string { return KindBillPayment }

// ExpensePosting records a direct expense paid from bank, cash, or on credit.
type ExpensePosting struct {
	Header
	Amount         decimal.Decimal
	ExpenseAccount Account
	// OnCredit books the credit side to Accounts Payable instead of the
	// instrument.
	OnCredit   bool
	Instrument Instrument
}

func (ExpensePosting) Kind() string { return KindExpense }

// PayrollPosting is one batched entry for an entire payroll run. Net pay is
// derived: gross minus the employee-side withholdings.
type PayrollPosting struct {
	Header
	GrossSalary     decimal.Decimal
	EmployerPF      decimal.Decimal
	EmployerESI     decimal.Decimal
	TDS             decimal.Decimal
	EmployeePF      decimal.Decimal
	EmployeeESI     decimal.Decimal
	ProfessionalTax decimal.Decimal
}

func (PayrollPosting) Kind() string { return KindPayroll }

// NetPay is the salary-payable portion of the run.
func (p PayrollPosting) NetPay() decimal.Decimal {
	return p.GrossSalary.Sub(p.TDS).Sub(p.EmployeePF).Sub(p.EmployeeESI).Sub(p.ProfessionalTax)
}

// amount rejects negative caller input and rounds through the shared money
// primitive.
func amount(name string, v decimal.Decimal) (decimal.Decimal, error) {
	if v.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: %s cannot be negative", shared.ErrValidation, name)
	}
	return tax.RoundMoney(v), nil
}

// normalizeEvent validates and rounds every monetary field of the event before
// line mapping. Totals are summed from the rounded components, so an entry
// built from a normalized event always balances; anything validateLines still
// rejects afterwards is a mapping bug.
func normalizeEvent(ev PostingEvent) (PostingEvent, error) {
	var err error
	switch e := ev.(type) {
	case InvoicePosting:
		if e.Taxable, err = amount("taxable", e.Taxable); err != nil {
			return nil, err
		}
		if e.CGST, err = amount("cgst", e.CGST); err != nil {
			return nil, err
		}
		if e.SGST, err = amount("sgst", e.SGST); err != nil {
			return nil, err
		}
		if e.IGST, err = amount("igst", e.IGST); err != nil {
			return nil, err
		}
		return e, nil

	case PaymentPosting:
		if e.Amount, err = amount("amount", e.Amount); err != nil {
			return nil, err
		}
		return e, nil

	case BillPosting:
		if e.Taxable, err = amount("taxable", e.Taxable); err != nil {
			return nil, err
		}
		if e.CGST, err = amount("cgst", e.CGST); err != nil {
			return nil, err
		}
		if e.SGST, err = amount("sgst", e.SGST); err != nil {
			return nil, err
		}
		if e.IGST, err = amount("igst", e.IGST); err != nil {
			return nil, err
		}
		return e, nil

	case BillPaymentPosting:
		if e.Amount, err = amount("amount", e.Amount); err != nil {
			return nil, err
		}
		return e, nil

	case ExpensePosting:
		if e.Amount, err = amount("amount", e.Amount); err != nil {
			return nil, err
		}
		return e, nil

	case PayrollPosting:
		if e.GrossSalary, err = amount("gross_salary", e.GrossSalary); err != nil {
			return nil, err
		}
		if e.EmployerPF, err = amount("employer_pf", e.EmployerPF); err != nil {
			return nil, err
		}
		if e.EmployerESI, err = amount("employer_esi", e.EmployerESI); err != nil {
			return nil, err
		}
		if e.TDS, err = amount("tds", e.TDS); err != nil {
			return nil, err
		}
		if e.EmployeePF, err = amount("employee_pf", e.EmployeePF); err != nil {
			return nil, err
		}
		if e.EmployeeESI, err = amount("employee_esi", e.EmployeeESI); err != nil {
			return nil, err
		}
		if e.ProfessionalTax, err = amount("professional_tax", e.ProfessionalTax); err != nil {
			return nil, err
		}
		if e.NetPay().IsNegative() {
			return nil, fmt.Errorf("%w: withholdings exceed gross salary", shared.ErrValidation)
		}
		return e, nil

	default:
		return nil, fmt.Errorf("%w: unsupported posting event %T", shared.ErrValidation, ev)
	}
}

// buildLines maps an event onto its fixed debit/credit lines. The switch is
// exhaustive over the closed event set.
func buildLines(ev PostingEvent) ([]Line, error) {
	switch e := ev.(type) {
	case InvoicePosting:
		total := e.Taxable.Add(e.CGST).Add(e.SGST).Add(e.IGST)
		lines := []Line{debit(AccountReceivable, total), credit(AccountSalesRevenue, e.Taxable)}
		if e.IGST.IsPositive() {
			lines = append(lines, credit(AccountGSTPayableIGST, e.IGST))
		}
		if e.CGST.IsPositive() {
			lines = append(lines, credit(AccountGSTPayableCGST, e.CGST))
		}
		if e.SGST.IsPositive() {
			lines = append(lines, credit(AccountGSTPayableSGST, e.SGST))
		}
		return lines, nil

	case PaymentPosting:
		acc, err := e.Instrument.account()
		if err != nil {
			return nil, err
		}
		return []Line{debit(acc, e.Amount), credit(AccountReceivable, e.Amount)}, nil

	case BillPosting:
		expense := e.ExpenseAccount
		if expense == (Account{}) {
			expense = AccountCOGS
		}
		total := e.Taxable.Add(e.CGST).Add(e.SGST).Add(e.IGST)
		lines := []Line{debit(expense, e.Taxable)}
		if e.IGST.IsPositive() {
			lines = append(lines, debit(AccountGSTInputIGST, e.IGST))
		}
		if e.CGST.IsPositive() {
			lines = append(lines, debit(AccountGSTInputCGST, e.CGST))
		}
		if e.SGST.IsPositive() {
			lines = append(lines, debit(AccountGSTInputSGST, e.SGST))
		}
		return append(lines, credit(AccountPayable, total)), nil

	case BillPaymentPosting:
		acc, err := e.Instrument.account()
		if err != nil {
			return nil, err
		}
		return []Line{debit(AccountPayable, e.Amount), credit(acc, e.Amount)}, nil

	case ExpensePosting:
		expense := e.ExpenseAccount
		if expense == (Account{}) {
			expense = AccountGeneralExpense
		}
		if e.OnCredit {
			return []Line{debit(expense, e.Amount), credit(AccountPayable, e.Amount)}, nil
		}
		acc, err := e.Instrument.account()
		if err != nil {
			return nil, err
		}
		return []Line{debit(expense, e.Amount), credit(acc, e.Amount)}, nil

	case PayrollPosting:
		lines := []Line{debit(AccountSalaryExpense, e.GrossSalary)}
		if e.EmployerPF.IsPositive() {
			lines = append(lines, debit(AccountEmployerPFExp, e.EmployerPF))
		}
		if e.EmployerESI.IsPositive() {
			lines = append(lines, debit(AccountEmployerESIExp, e.EmployerESI))
		}
		lines = append(lines, credit(AccountSalaryPayable, e.NetPay()))
		if e.TDS.IsPositive() {
			lines = append(lines, credit(AccountTDSPayable, e.TDS))
		}
		if e.EmployeePF.IsPositive() {
			lines = append(lines, credit(AccountEmployeePF, e.EmployeePF))
		}
		if e.EmployerPF.IsPositive() {
			lines = append(lines, credit(AccountEmployerPFDue, e.EmployerPF))
		}
		if esi := e.EmployeeESI.Add(e.EmployerESI); esi.IsPositive() {
			lines = append(lines, credit(AccountESIPayable, esi))
		}
		if e.ProfessionalTax.IsPositive() {
			lines = append(lines, credit(AccountProfTaxPayable, e.ProfessionalTax))
		}
		return lines, nil

	default:
		return nil, fmt.Errorf("%w: unsupported posting event %T", shared.ErrValidation, ev)
	}
}
