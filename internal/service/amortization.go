package service

import (
	"sort"
	"time"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/dafibh/fortuna/financing-backend/internal/util"
	"github.com/shopspring/decimal"
)

// workingPrecision bounds the scale of intermediate schedule values so long PRICE
// schedules do not grow unbounded decimal digits. Amounts are rounded to cents
// only when persisted or rendered.
const workingPrecision = 10

// FinancingTerms are the static parameters a schedule is derived from
type FinancingTerms struct {
	Principal    decimal.Decimal
	InterestRate decimal.Decimal
	TermMonths   int
	Method       domain.AmortizationMethod
	StartDate    time.Time
}

// TermsOf extracts the static parameters of a financing
func TermsOf(f *domain.Financing) FinancingTerms {
	return FinancingTerms{
		Principal:    f.TotalAmount,
		InterestRate: f.InterestRate,
		TermMonths:   int(f.TermMonths),
		Method:       f.AmortizationMethod,
		StartDate:    f.StartDate,
	}
}

// DueDate returns the due date of installment n, one calendar month per installment after start
func DueDate(startDate time.Time, n int) time.Time {
	return util.AddMonths(startDate, n)
}

// CalculateMonthlyPayment returns the installment amount of the first period.
// PRICE: annuity payment principal*r / (1 - (1+r)^-n), principal/n when r is zero.
// SAC: constant quota principal/n plus first period interest.
func CalculateMonthlyPayment(principal, rate decimal.Decimal, term int, method domain.AmortizationMethod) decimal.Decimal {
	if term <= 0 {
		return decimal.Zero
	}
	n := decimal.NewFromInt(int64(term))
	if method == domain.AmortizationSAC {
		return principal.Div(n).Add(principal.Mul(rate)).Round(workingPrecision)
	}
	return pricePayment(principal, rate, term)
}

func pricePayment(principal, rate decimal.Decimal, term int) decimal.Decimal {
	n := decimal.NewFromInt(int64(term))
	if rate.IsZero() {
		return principal.Div(n).Round(workingPrecision)
	}
	// principal * r * (1+r)^n / ((1+r)^n - 1), equivalent to the negative exponent form
	growth := decimal.NewFromInt(1).Add(rate).Pow(n)
	return principal.Mul(rate).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1))).Round(workingPrecision)
}

// ComputeSchedule produces the nominal amortization schedule. It is a pure function
// of its inputs. The final row's principal is forced to the exact remaining balance
// so the schedule always ends at zero.
func ComputeSchedule(principal, rate decimal.Decimal, term int, method domain.AmortizationMethod, startDate time.Time) ([]domain.AmortizationRow, error) {
	if err := domain.ValidateFinancingTerms(principal, rate, term, method); err != nil {
		return nil, err
	}
	return buildSchedule(principal, rate, term, method, startDate, 1), nil
}

// buildSchedule generates term rows numbered from firstNumber. Inputs are assumed valid.
func buildSchedule(principal, rate decimal.Decimal, term int, method domain.AmortizationMethod, startDate time.Time, firstNumber int) []domain.AmortizationRow {
	rows := make([]domain.AmortizationRow, 0, term)
	balance := principal

	quota := principal.Div(decimal.NewFromInt(int64(term))).Round(workingPrecision)
	payment := pricePayment(principal, rate, term)

	for i := 0; i < term; i++ {
		interest := balance.Mul(rate).Round(workingPrecision)

		var amortized decimal.Decimal
		switch {
		case i == term-1:
			amortized = balance
		case method == domain.AmortizationSAC:
			amortized = quota
		default:
			amortized = payment.Sub(interest)
		}
		if amortized.GreaterThan(balance) {
			amortized = balance
		}

		balance = balance.Sub(amortized)
		number := firstNumber + i
		rows = append(rows, domain.AmortizationRow{
			InstallmentNumber: int32(number),
			DueDate:           DueDate(startDate, number),
			Payment:           amortized.Add(interest),
			Principal:         amortized,
			Interest:          interest,
			Balance:           balance,
		})
	}
	return rows
}

// ScheduleRow returns the nominal row of installment n
func ScheduleRow(terms FinancingTerms, n int) (*domain.AmortizationRow, error) {
	if n < 1 || n > terms.TermMonths {
		return nil, domain.ErrInvalidInstallmentNumber
	}
	rows, err := ComputeSchedule(terms.Principal, terms.InterestRate, terms.TermMonths, terms.Method, terms.StartDate)
	if err != nil {
		return nil, err
	}
	row := rows[n-1]
	return &row, nil
}

// BuildAmortizationTable computes the schedule of a financing with column totals
func BuildAmortizationTable(f *domain.Financing) (*domain.AmortizationTable, error) {
	rows, err := ComputeSchedule(f.TotalAmount, f.InterestRate, int(f.TermMonths), f.AmortizationMethod, f.StartDate)
	if err != nil {
		return nil, err
	}

	totalPayment := decimal.Zero
	totalInterest := decimal.Zero
	for _, row := range rows {
		totalPayment = totalPayment.Add(row.Payment)
		totalInterest = totalInterest.Add(row.Interest)
	}

	return &domain.AmortizationTable{
		FinancingID:        f.ID,
		AmortizationMethod: f.AmortizationMethod,
		Principal:          f.TotalAmount,
		InterestRate:       f.InterestRate,
		TermMonths:         f.TermMonths,
		Rows:               rows,
		TotalPayment:       totalPayment,
		TotalInterest:      totalInterest,
		PaidInstallments:   f.PaidInstallments,
	}, nil
}

// SimulateEarlyPayment projects the remaining schedule after applying extraAmount
// entirely to principal. reduce_installment keeps the remaining term and lowers the
// installment, reduce_term keeps the installment (PRICE) or principal quota (SAC)
// and shortens the term. Nothing is persisted.
func SimulateEarlyPayment(f *domain.Financing, extraAmount decimal.Decimal, paymentDate time.Time, preference domain.EarlyPaymentPreference) (*domain.EarlyPaymentSimulation, error) {
	if f.IsSettled() {
		return nil, domain.ErrFinancingSettled
	}
	if !preference.IsValid() {
		return nil, domain.ErrInvalidEarlyPaymentPreference
	}
	if extraAmount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrPaymentAmountInvalid
	}
	if extraAmount.GreaterThanOrEqual(f.CurrentBalance) {
		return nil, domain.ErrEarlyPaymentTooLarge
	}
	if err := domain.ValidateFinancingTerms(f.TotalAmount, f.InterestRate, int(f.TermMonths), f.AmortizationMethod); err != nil {
		return nil, err
	}

	remaining := int(f.RemainingInstallments())
	if remaining < 1 {
		remaining = 1
	}
	firstNumber := int(f.PaidInstallments) + 1

	original := buildSchedule(f.CurrentBalance, f.InterestRate, remaining, f.AmortizationMethod, f.StartDate, firstNumber)
	newBalance := f.CurrentBalance.Sub(extraAmount)

	var projected []domain.AmortizationRow
	if preference == domain.PreferenceReduceInstallment {
		projected = buildSchedule(newBalance, f.InterestRate, remaining, f.AmortizationMethod, f.StartDate, firstNumber)
	} else {
		projected = shortenedSchedule(f, original, newBalance, remaining, firstNumber)
	}

	originalInterest := sumInterest(original)
	newInterest := sumInterest(projected)

	return &domain.EarlyPaymentSimulation{
		FinancingID:                   f.ID,
		Preference:                    preference,
		PaymentDate:                   paymentDate,
		ExtraAmount:                   extraAmount,
		CurrentBalance:                f.CurrentBalance,
		NewBalance:                    newBalance,
		OriginalRemainingInstallments: int32(len(original)),
		NewRemainingInstallments:      int32(len(projected)),
		OriginalInstallment:           original[0].Payment,
		NewInstallment:                projected[0].Payment,
		OriginalRemainingInterest:     originalInterest,
		NewRemainingInterest:          newInterest,
		InterestSavings:               originalInterest.Sub(newInterest),
		Schedule:                      projected,
	}, nil
}

// shortenedSchedule amortizes balance at the pace of the original remaining schedule
// until it is exhausted
func shortenedSchedule(f *domain.Financing, original []domain.AmortizationRow, balance decimal.Decimal, maxRows, firstNumber int) []domain.AmortizationRow {
	payment := original[0].Payment
	quota := original[0].Principal

	rows := make([]domain.AmortizationRow, 0, maxRows)
	for i := 0; i < maxRows && balance.IsPositive(); i++ {
		interest := balance.Mul(f.InterestRate).Round(workingPrecision)

		var amortized decimal.Decimal
		if f.AmortizationMethod == domain.AmortizationSAC {
			amortized = quota
		} else {
			amortized = payment.Sub(interest)
		}
		if amortized.GreaterThan(balance) || i == maxRows-1 {
			amortized = balance
		}

		balance = balance.Sub(amortized)
		number := firstNumber + i
		rows = append(rows, domain.AmortizationRow{
			InstallmentNumber: int32(number),
			DueDate:           DueDate(f.StartDate, number),
			Payment:           amortized.Add(interest),
			Principal:         amortized,
			Interest:          interest,
			Balance:           balance,
		})
	}
	return rows
}

// CalculateUpdatedBalance replays the payment history against the nominal schedule
// and returns the outstanding balance. A scheduled row recorded without any split
// (principal, interest and discount all zero) falls back to the nominal principal of
// its installment. Never negative.
func CalculateUpdatedBalance(terms FinancingTerms, payments []*domain.FinancingPayment) (decimal.Decimal, error) {
	rows, err := ComputeSchedule(terms.Principal, terms.InterestRate, terms.TermMonths, terms.Method, terms.StartDate)
	if err != nil {
		return decimal.Zero, err
	}

	ordered := make([]*domain.FinancingPayment, len(payments))
	copy(ordered, payments)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].PaymentDate.Equal(ordered[j].PaymentDate) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].PaymentDate.Before(ordered[j].PaymentDate)
	})

	balance := terms.Principal
	for _, p := range ordered {
		principal := p.PrincipalAmount
		if p.InstallmentNumber != nil && unsplit(p) {
			n := int(*p.InstallmentNumber)
			if n >= 1 && n <= len(rows) {
				principal = rows[n-1].Principal
			}
		}
		balance = balance.Sub(principal)
	}

	if balance.IsNegative() {
		return decimal.Zero, nil
	}
	return balance, nil
}

func unsplit(p *domain.FinancingPayment) bool {
	return p.PrincipalAmount.IsZero() && p.InterestAmount.IsZero() && p.DiscountAmount.IsZero()
}

func sumInterest(rows []domain.AmortizationRow) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Interest)
	}
	return total
}
