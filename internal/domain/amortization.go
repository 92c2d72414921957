package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidEarlyPaymentPreference = errors.New("preference must be 'reduce_term' or 'reduce_installment'")

// AmortizationRow is one computed installment. Rows are derived from a financing's
// static parameters on demand and never persisted. Amounts keep full precision.
type AmortizationRow struct {
	InstallmentNumber int32           `json:"installmentNumber"`
	DueDate           time.Time       `json:"dueDate"`
	Payment           decimal.Decimal `json:"payment"`
	Principal         decimal.Decimal `json:"principal"`
	Interest          decimal.Decimal `json:"interest"`
	Balance           decimal.Decimal `json:"balance"`
}

// AmortizationTable is the nominal schedule of a financing with column totals
type AmortizationTable struct {
	FinancingID        int32              `json:"financingId"`
	AmortizationMethod AmortizationMethod `json:"amortizationMethod"`
	Principal          decimal.Decimal    `json:"principal"`
	InterestRate       decimal.Decimal    `json:"interestRate"`
	TermMonths         int32              `json:"termMonths"`
	Rows               []AmortizationRow  `json:"rows"`
	TotalPayment       decimal.Decimal    `json:"totalPayment"`
	TotalInterest      decimal.Decimal    `json:"totalInterest"`
	PaidInstallments   int32              `json:"paidInstallments"`
}

type EarlyPaymentPreference string

const (
	PreferenceReduceTerm        EarlyPaymentPreference = "reduce_term"
	PreferenceReduceInstallment EarlyPaymentPreference = "reduce_installment"
)

// IsValid reports whether p is a known preference
func (p EarlyPaymentPreference) IsValid() bool {
	return p == PreferenceReduceTerm || p == PreferenceReduceInstallment
}

// EarlyPaymentSimulation compares the remaining schedule with and without an extra principal payment
type EarlyPaymentSimulation struct {
	FinancingID                   int32                  `json:"financingId"`
	Preference                    EarlyPaymentPreference `json:"preference"`
	PaymentDate                   time.Time              `json:"paymentDate"`
	ExtraAmount                   decimal.Decimal        `json:"extraAmount"`
	CurrentBalance                decimal.Decimal        `json:"currentBalance"`
	NewBalance                    decimal.Decimal        `json:"newBalance"`
	OriginalRemainingInstallments int32                  `json:"originalRemainingInstallments"`
	NewRemainingInstallments      int32                  `json:"newRemainingInstallments"`
	OriginalInstallment           decimal.Decimal        `json:"originalInstallment"`
	NewInstallment                decimal.Decimal        `json:"newInstallment"`
	OriginalRemainingInterest     decimal.Decimal        `json:"originalRemainingInterest"`
	NewRemainingInterest          decimal.Decimal        `json:"newRemainingInterest"`
	InterestSavings               decimal.Decimal        `json:"interestSavings"`
	Schedule                      []AmortizationRow      `json:"schedule"`
}
