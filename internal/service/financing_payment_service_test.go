package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/dafibh/fortuna/financing-backend/internal/messaging"
	"github.com/dafibh/fortuna/financing-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentFixture struct {
	financings   *testutil.MockFinancingRepository
	accounts     *testutil.MockAccountRepository
	payments     *testutil.MockFinancingPaymentRepository
	transactions *testutil.MockTransactionRepository
	categories   *testutil.MockBudgetCategoryRepository
	ledger       *testutil.MockFinancingLedger
	publisher    *testutil.RecordingPublisher
	notifier     *testutil.RecordingNotifier
	service      *FinancingPaymentService
}

var paymentDate = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		financings:   testutil.NewMockFinancingRepository(),
		accounts:     testutil.NewMockAccountRepository(),
		payments:     testutil.NewMockFinancingPaymentRepository(),
		transactions: testutil.NewMockTransactionRepository(),
		categories:   testutil.NewMockBudgetCategoryRepository(),
		publisher:    &testutil.RecordingPublisher{},
		notifier:     &testutil.RecordingNotifier{},
	}
	f.ledger = testutil.NewMockFinancingLedger(f.financings, f.accounts, f.payments, f.transactions, f.categories)
	f.service = NewFinancingPaymentService(f.ledger, f.financings, f.payments, f.transactions)
	f.service.SetEventPublisher(f.publisher)
	f.service.SetNotifier(f.notifier)

	f.financings.AddFinancing(&domain.Financing{
		ID:                 1,
		WorkspaceID:        1,
		Description:        "Car",
		TotalAmount:        dec("12000"),
		InterestRate:       dec("0.01"),
		TermMonths:         12,
		AmortizationMethod: domain.AmortizationSAC,
		StartDate:          scheduleStart,
		MonthlyPayment:     dec("1120"),
		CurrentBalance:     dec("12000"),
		TotalPaid:          decimal.Zero,
		TotalInterestPaid:  decimal.Zero,
		Status:             domain.FinancingStatusActive,
	})
	f.accounts.AddAccount(&domain.Account{
		ID:          1,
		WorkspaceID: 1,
		Name:        "Checking",
		AccountType: domain.AccountTypeAsset,
		Template:    domain.TemplateBank,
		Balance:     dec("50000"),
	})
	f.categories.AddBudgetCategory(&domain.BudgetCategory{ID: 3, WorkspaceID: 1, Name: "Loans"})
	return f
}

func (f *paymentFixture) financing(id int32) *domain.Financing {
	return f.financings.Financings[id]
}

func (f *paymentFixture) account(id int32) *domain.Account {
	return f.accounts.Accounts[id]
}

func payInstallmentInput(n int32) PayInstallmentInput {
	return PayInstallmentInput{
		InstallmentNumber: n,
		AccountID:         1,
		PaymentDate:       paymentDate,
		PaymentMethod:     domain.PaymentMethodBankTransfer,
	}
}

func TestPayInstallment_Success(t *testing.T) {
	f := newPaymentFixture()
	categoryID := int32(3)
	input := payInstallmentInput(1)
	input.CategoryID = &categoryID

	result, err := f.service.PayInstallment(context.Background(), 1, 1, input)
	require.NoError(t, err)

	payment := result.Payment
	assert.Equal(t, domain.PaymentTypeScheduled, payment.PaymentType)
	assertDecimalEqual(t, dec("1120"), payment.PaymentAmount)
	assertDecimalEqual(t, dec("1000"), payment.PrincipalAmount)
	assertDecimalEqual(t, dec("120"), payment.InterestAmount)
	assertDecimalEqual(t, dec("12000"), payment.BalanceBefore)
	assertDecimalEqual(t, dec("11000"), payment.BalanceAfter)
	require.NotNil(t, payment.TransactionID)

	assertDecimalEqual(t, dec("11000"), result.Financing.CurrentBalance)
	assertDecimalEqual(t, dec("1120"), result.Financing.TotalPaid)
	assertDecimalEqual(t, dec("120"), result.Financing.TotalInterestPaid)
	assert.Equal(t, int32(1), result.Financing.PaidInstallments)
	assert.Equal(t, domain.FinancingStatusActive, result.Financing.Status)

	assertDecimalEqual(t, dec("48880"), f.account(1).Balance)
	assertDecimalEqual(t, dec("11000"), f.financing(1).CurrentBalance)

	tx := f.transactions.Transactions[*payment.TransactionID]
	require.NotNil(t, tx)
	assert.Equal(t, domain.TransactionTypeExpense, tx.Type)
	assert.Equal(t, "Car - installment 1/12", tx.Name)
	assert.Equal(t, &categoryID, tx.CategoryID)
	require.NotNil(t, tx.FinancingPaymentID)
	assert.Equal(t, payment.ID, *tx.FinancingPaymentID)

	assert.Equal(t, []string{"financing_payment.created", "account.updated", "financing.updated"}, f.publisher.Types())
	assert.Equal(t, []string{messaging.RoutingPaymentRecorded}, f.notifier.RoutingKeys())
	assert.Equal(t, 1, f.ledger.Commits)
}

func TestPayInstallment_DuplicateRejected(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	_, err := f.service.PayInstallment(ctx, 1, 1, payInstallmentInput(1))
	require.NoError(t, err)

	_, err = f.service.PayInstallment(ctx, 1, 1, payInstallmentInput(1))
	assert.ErrorIs(t, err, domain.ErrInstallmentAlreadyPaid)

	assert.Len(t, f.payments.Payments, 1)
	assert.Len(t, f.transactions.Transactions, 1)
	assertDecimalEqual(t, dec("48880"), f.account(1).Balance)
	assert.Equal(t, int32(1), f.financing(1).PaidInstallments)
}

func TestPayInstallment_ConcurrentDuplicateCaughtByUniqueness(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	_, err := f.service.PayInstallment(ctx, 1, 1, payInstallmentInput(1))
	require.NoError(t, err)

	// the pre-check misses the row committed by a concurrent request
	f.ledger.InstallmentPaidFn = func(financingID int32, installmentNumber int32) (bool, error) {
		return false, nil
	}

	_, err = f.service.PayInstallment(ctx, 1, 1, payInstallmentInput(1))
	assert.ErrorIs(t, err, domain.ErrInstallmentAlreadyPaid)
	assert.Len(t, f.payments.Payments, 1)
	assert.Equal(t, 1, f.ledger.Rollbacks)
}

func TestPayInstallment_Underpayment(t *testing.T) {
	f := newPaymentFixture()
	input := payInstallmentInput(1)
	amount := dec("1119.99")
	input.PaymentAmount = &amount

	_, err := f.service.PayInstallment(context.Background(), 1, 1, input)
	assert.ErrorIs(t, err, domain.ErrUnderpayment)
	assert.Empty(t, f.payments.Payments)
}

func TestPayInstallment_ExcessGoesToPrincipal(t *testing.T) {
	f := newPaymentFixture()
	input := payInstallmentInput(1)
	amount := dec("1620")
	input.PaymentAmount = &amount

	result, err := f.service.PayInstallment(context.Background(), 1, 1, input)
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentTypePartial, result.Payment.PaymentType)
	assertDecimalEqual(t, dec("1500"), result.Payment.PrincipalAmount)
	assertDecimalEqual(t, dec("120"), result.Payment.InterestAmount)
	assertDecimalEqual(t, dec("10500"), result.Financing.CurrentBalance)
}

func TestPayInstallment_SecondInstallmentUsesScheduleSplit(t *testing.T) {
	f := newPaymentFixture()

	result, err := f.service.PayInstallment(context.Background(), 1, 1, payInstallmentInput(2))
	require.NoError(t, err)

	assertDecimalEqual(t, dec("1110"), result.Payment.PaymentAmount)
	assertDecimalEqual(t, dec("110"), result.Payment.InterestAmount)
	assertDecimalEqual(t, dec("1000"), result.Payment.PrincipalAmount)
}

func TestPayInstallment_InvalidInstallmentNumber(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.service.PayInstallment(context.Background(), 1, 1, payInstallmentInput(13))
	assert.ErrorIs(t, err, domain.ErrInvalidInstallmentNumber)

	_, err = f.service.PayInstallment(context.Background(), 1, 1, payInstallmentInput(0))
	assert.ErrorIs(t, err, domain.ErrInvalidInstallmentNumber)
}

func TestPayInstallment_InsufficientAccountBalance(t *testing.T) {
	f := newPaymentFixture()
	f.account(1).Balance = dec("100")

	_, err := f.service.PayInstallment(context.Background(), 1, 1, payInstallmentInput(1))
	assert.ErrorIs(t, err, domain.ErrInsufficientAccountBalance)

	assert.Empty(t, f.payments.Payments)
	assert.Empty(t, f.transactions.Transactions)
	assertDecimalEqual(t, dec("100"), f.account(1).Balance)
	assertDecimalEqual(t, dec("12000"), f.financing(1).CurrentBalance)
	assert.Empty(t, f.publisher.Events)
}

func TestPayInstallment_WorkspaceIsolation(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.service.PayInstallment(context.Background(), 2, 1, payInstallmentInput(1))
	assert.ErrorIs(t, err, domain.ErrFinancingNotFound)

	f.accounts.AddAccount(&domain.Account{ID: 9, WorkspaceID: 2, Balance: dec("50000")})
	input := payInstallmentInput(1)
	input.AccountID = 9
	_, err = f.service.PayInstallment(context.Background(), 1, 1, input)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.Empty(t, f.payments.Payments)
}

func TestPayInstallment_UnknownCategory(t *testing.T) {
	f := newPaymentFixture()
	categoryID := int32(99)
	input := payInstallmentInput(1)
	input.CategoryID = &categoryID

	_, err := f.service.PayInstallment(context.Background(), 1, 1, input)
	assert.ErrorIs(t, err, domain.ErrBudgetCategoryNotFound)
	assert.Empty(t, f.payments.Payments)
}

func TestPayInstallment_SettlesFinancing(t *testing.T) {
	f := newPaymentFixture()
	f.financings.AddFinancing(&domain.Financing{
		ID:                 2,
		WorkspaceID:        1,
		Description:        "Phone",
		TotalAmount:        dec("1000"),
		InterestRate:       dec("0.01"),
		TermMonths:         1,
		AmortizationMethod: domain.AmortizationPrice,
		StartDate:          scheduleStart,
		CurrentBalance:     dec("1000"),
		Status:             domain.FinancingStatusActive,
	})

	result, err := f.service.PayInstallment(context.Background(), 1, 2, payInstallmentInput(1))
	require.NoError(t, err)

	assertDecimalEqual(t, dec("1010"), result.Payment.PaymentAmount)
	assert.True(t, result.Financing.CurrentBalance.IsZero())
	assert.Equal(t, domain.FinancingStatusSettled, result.Financing.Status)
	assert.Contains(t, f.publisher.Types(), "financing.settled")
	assert.Equal(t, []string{messaging.RoutingPaymentRecorded, messaging.RoutingFinancingSettled}, f.notifier.RoutingKeys())

	_, err = f.service.RegisterEarlyPayment(context.Background(), 1, 2, EarlyPaymentInput{
		AccountID:     1,
		PaymentAmount: dec("1"),
		PaymentDate:   paymentDate,
		PaymentMethod: domain.PaymentMethodCash,
	})
	assert.ErrorIs(t, err, domain.ErrFinancingSettled)
}

func addPriceFinancing(f *paymentFixture) *domain.Financing {
	financing := &domain.Financing{
		ID:                 2,
		WorkspaceID:        1,
		Description:        "Motorbike",
		TotalAmount:        dec("12000"),
		InterestRate:       dec("0.01"),
		TermMonths:         12,
		AmortizationMethod: domain.AmortizationPrice,
		StartDate:          scheduleStart,
		MonthlyPayment:     dec("1066.19"),
		CurrentBalance:     dec("12000"),
		Status:             domain.FinancingStatusActive,
	}
	f.financings.AddFinancing(financing)
	return financing
}

func (f *paymentFixture) principalPaid(financingID int32) decimal.Decimal {
	total := decimal.Zero
	for _, p := range f.payments.Payments {
		if p.FinancingID == financingID {
			total = total.Add(p.PrincipalAmount)
		}
	}
	return total
}

func TestPayInstallment_SettlesPriceFinancingInOrder(t *testing.T) {
	f := newPaymentFixture()
	addPriceFinancing(f)

	var result *domain.PaymentResult
	for n := int32(1); n <= 12; n++ {
		var err error
		result, err = f.service.PayInstallment(context.Background(), 1, 2, payInstallmentInput(n))
		require.NoError(t, err, "installment %d", n)
		assert.True(t, result.Payment.PaymentAmount.Equal(result.Payment.PrincipalAmount.Add(result.Payment.InterestAmount)))
	}

	assert.True(t, result.Financing.CurrentBalance.IsZero())
	assert.Equal(t, domain.FinancingStatusSettled, result.Financing.Status)
	assert.Equal(t, int32(12), result.Financing.PaidInstallments)
	assertDecimalEqual(t, dec("12000"), f.principalPaid(2))
	assertDecimalEqual(t, result.Financing.TotalPaid, dec("50000").Sub(f.account(1).Balance))
}

func TestPayInstallment_SettlesPriceFinancingOutOfOrder(t *testing.T) {
	f := newPaymentFixture()
	addPriceFinancing(f)

	first, err := f.service.PayInstallment(context.Background(), 1, 2, payInstallmentInput(12))
	require.NoError(t, err)
	assert.Equal(t, domain.FinancingStatusActive, first.Financing.Status)

	var result *domain.PaymentResult
	for n := int32(1); n <= 11; n++ {
		result, err = f.service.PayInstallment(context.Background(), 1, 2, payInstallmentInput(n))
		require.NoError(t, err, "installment %d", n)
	}

	assert.True(t, result.Financing.CurrentBalance.IsZero())
	assert.Equal(t, domain.FinancingStatusSettled, result.Financing.Status)
	assertDecimalEqual(t, dec("12000"), f.principalPaid(2))

	_, err = f.service.PayInstallment(context.Background(), 1, 2, payInstallmentInput(12))
	assert.ErrorIs(t, err, domain.ErrFinancingSettled)
}

func TestPayInstallment_SplitUsesLockedFinancing(t *testing.T) {
	f := newPaymentFixture()

	// The plain read path still sees the contract as freshly opened
	stale := testutil.NewMockFinancingRepository()
	snapshot := *f.financing(1)
	stale.AddFinancing(&snapshot)
	f.service = NewFinancingPaymentService(f.ledger, stale, f.payments, f.transactions)

	for n := int32(1); n <= 11; n++ {
		installmentNumber := n
		principal := dec("1000")
		if n == 11 {
			principal = dec("1000.03")
		}
		f.payments.AddPayment(&domain.FinancingPayment{
			ID:                n,
			WorkspaceID:       1,
			FinancingID:       1,
			AccountID:         1,
			InstallmentNumber: &installmentNumber,
			PaymentAmount:     principal,
			PrincipalAmount:   principal,
			InterestAmount:    decimal.Zero,
			DiscountAmount:    decimal.Zero,
			PaymentDate:       scheduleStart.AddDate(0, int(n), 0),
			PaymentMethod:     domain.PaymentMethodBankTransfer,
			PaymentType:       domain.PaymentTypeScheduled,
		})
	}
	ledger := make([]*domain.FinancingPayment, 0, len(f.payments.Payments))
	for _, p := range f.payments.Payments {
		ledger = append(ledger, p)
	}
	f.financing(1).Recompute(ledger)
	require.Equal(t, int32(11), f.financing(1).PaidInstallments)
	assertDecimalEqual(t, dec("999.97"), f.financing(1).CurrentBalance)

	result, err := f.service.PayInstallment(context.Background(), 1, 1, payInstallmentInput(12))
	require.NoError(t, err)

	assertDecimalEqual(t, dec("999.97"), result.Payment.PrincipalAmount)
	assertDecimalEqual(t, dec("10"), result.Payment.InterestAmount)
	assertDecimalEqual(t, dec("1009.97"), result.Payment.PaymentAmount)
	assertDecimalEqual(t, dec("999.97"), result.Payment.BalanceBefore)
	assert.True(t, result.Financing.CurrentBalance.IsZero())
	assert.Equal(t, domain.FinancingStatusSettled, result.Financing.Status)
}

func TestPayInstallment_RejectsSubCentAmount(t *testing.T) {
	f := newPaymentFixture()
	input := payInstallmentInput(1)
	amount := dec("1120.005")
	input.PaymentAmount = &amount

	_, err := f.service.PayInstallment(context.Background(), 1, 1, input)
	assert.ErrorIs(t, err, domain.ErrAmountPrecision)
	assert.Empty(t, f.payments.Payments)
	assertDecimalEqual(t, dec("50000"), f.account(1).Balance)
}

func TestPayInstallment_SettledFinancingRejected(t *testing.T) {
	f := newPaymentFixture()
	f.financing(1).Status = domain.FinancingStatusSettled

	_, err := f.service.PayInstallment(context.Background(), 1, 1, payInstallmentInput(1))
	assert.ErrorIs(t, err, domain.ErrFinancingSettled)
}

func TestCreatePayment_RollsBackOnStorageFailure(t *testing.T) {
	f := newPaymentFixture()
	dbErr := errors.New("connection reset")
	f.ledger.FailOn["DebitAccount"] = dbErr

	_, err := f.service.PayInstallment(context.Background(), 1, 1, payInstallmentInput(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)

	assert.Empty(t, f.payments.Payments)
	assert.Empty(t, f.transactions.Transactions)
	assertDecimalEqual(t, dec("50000"), f.account(1).Balance)
	assertDecimalEqual(t, dec("12000"), f.financing(1).CurrentBalance)
	assert.Equal(t, int32(0), f.financing(1).PaidInstallments)
	assert.Equal(t, 1, f.ledger.Rollbacks)
	assert.Empty(t, f.publisher.Events)
	assert.Empty(t, f.notifier.Messages)
}

func TestCreatePayment_RollsBackOnCommitFailure(t *testing.T) {
	f := newPaymentFixture()
	f.ledger.FailOn["Commit"] = errors.New("commit failed")

	_, err := f.service.PayInstallment(context.Background(), 1, 1, payInstallmentInput(1))
	require.Error(t, err)
	assert.Empty(t, f.payments.Payments)
	assertDecimalEqual(t, dec("50000"), f.account(1).Balance)
}

func TestCreatePayment_PrincipalExceedsBalance(t *testing.T) {
	f := newPaymentFixture()
	n := int32(1)

	_, err := f.service.CreatePayment(context.Background(), 1, CreatePaymentInput{
		FinancingID:       1,
		AccountID:         1,
		InstallmentNumber: &n,
		PaymentAmount:     dec("12000.01"),
		PrincipalAmount:   dec("12000.01"),
		InterestAmount:    decimal.Zero,
		PaymentDate:       paymentDate,
		PaymentMethod:     domain.PaymentMethodBankTransfer,
		PaymentType:       domain.PaymentTypePartial,
	})
	assert.ErrorIs(t, err, domain.ErrPaymentExceedsBalance)
	assert.Empty(t, f.payments.Payments)
}

func TestCreatePayment_SplitMustAccountForAmount(t *testing.T) {
	f := newPaymentFixture()
	n := int32(1)

	_, err := f.service.CreatePayment(context.Background(), 1, CreatePaymentInput{
		FinancingID:       1,
		AccountID:         1,
		InstallmentNumber: &n,
		PaymentAmount:     dec("1"),
		PrincipalAmount:   dec("11000"),
		InterestAmount:    decimal.Zero,
		PaymentDate:       paymentDate,
		PaymentMethod:     domain.PaymentMethodBankTransfer,
		PaymentType:       domain.PaymentTypePartial,
	})
	assert.ErrorIs(t, err, domain.ErrPaymentSplitMismatch)
	assert.Empty(t, f.payments.Payments)
	assertDecimalEqual(t, dec("50000"), f.account(1).Balance)
	assertDecimalEqual(t, dec("12000"), f.financing(1).CurrentBalance)

	result, err := f.service.CreatePayment(context.Background(), 1, CreatePaymentInput{
		FinancingID:       1,
		AccountID:         1,
		InstallmentNumber: &n,
		PaymentAmount:     dec("1120"),
		PrincipalAmount:   dec("1000"),
		InterestAmount:    dec("120"),
		PaymentDate:       paymentDate,
		PaymentMethod:     domain.PaymentMethodBankTransfer,
		PaymentType:       domain.PaymentTypeScheduled,
	})
	require.NoError(t, err)
	assertDecimalEqual(t, dec("11000"), result.Financing.CurrentBalance)
	assertDecimalEqual(t, dec("48880"), f.account(1).Balance)
}

func TestCreatePayment_RejectsMalformedInput(t *testing.T) {
	f := newPaymentFixture()
	n := int32(1)
	base := CreatePaymentInput{
		FinancingID:     1,
		AccountID:       1,
		PaymentAmount:   dec("100"),
		PrincipalAmount: dec("100"),
		PaymentDate:     paymentDate,
		PaymentMethod:   domain.PaymentMethodCash,
	}

	tests := []struct {
		name    string
		mutate  func(in *CreatePaymentInput)
		wantErr error
	}{
		{"early with installment", func(in *CreatePaymentInput) {
			in.PaymentType = domain.PaymentTypeEarly
			in.InstallmentNumber = &n
		}, domain.ErrInvalidInstallmentNumber},
		{"scheduled without installment", func(in *CreatePaymentInput) {
			in.PaymentType = domain.PaymentTypeScheduled
		}, domain.ErrInvalidInstallmentNumber},
		{"discount not lower than amount", func(in *CreatePaymentInput) {
			in.PaymentType = domain.PaymentTypeEarly
			in.PrincipalAmount = decimal.Zero
			in.DiscountAmount = dec("100")
		}, domain.ErrDiscountInvalid},
		{"principal unrelated to amount", func(in *CreatePaymentInput) {
			in.PaymentType = domain.PaymentTypePartial
			in.InstallmentNumber = &n
			in.PaymentAmount = dec("1")
			in.PrincipalAmount = dec("11000")
		}, domain.ErrPaymentSplitMismatch},
		{"sub-cent principal", func(in *CreatePaymentInput) {
			in.PaymentType = domain.PaymentTypeEarly
			in.PaymentAmount = dec("100.005")
			in.PrincipalAmount = dec("100.005")
		}, domain.ErrAmountPrecision},
		{"bad method", func(in *CreatePaymentInput) {
			in.PaymentType = domain.PaymentTypeEarly
			in.PaymentMethod = "barter"
		}, domain.ErrInvalidPaymentMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := f.service.CreatePayment(context.Background(), 1, in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, f.payments.Payments)
	assert.Equal(t, 0, f.ledger.Commits+f.ledger.Rollbacks)
}

func TestRegisterEarlyPayment_Success(t *testing.T) {
	f := newPaymentFixture()
	f.financing(1).TotalAmount = dec("8000")
	f.financing(1).CurrentBalance = dec("8000")

	result, err := f.service.RegisterEarlyPayment(context.Background(), 1, 1, EarlyPaymentInput{
		AccountID:     1,
		PaymentAmount: dec("5000"),
		PaymentDate:   paymentDate,
		PaymentMethod: domain.PaymentMethodBankTransfer,
	})
	require.NoError(t, err)

	assert.Nil(t, result.Payment.InstallmentNumber)
	assert.Equal(t, domain.PaymentTypeEarly, result.Payment.PaymentType)
	assertDecimalEqual(t, dec("5000"), result.Payment.PrincipalAmount)
	assert.True(t, result.Payment.InterestAmount.IsZero())
	assertDecimalEqual(t, dec("3000"), result.Financing.CurrentBalance)
	assert.Equal(t, int32(0), result.Financing.PaidInstallments)
	assert.Equal(t, domain.FinancingStatusActive, result.Financing.Status)
	assertDecimalEqual(t, dec("45000"), f.account(1).Balance)
	assert.Equal(t, "Car - early payment", f.transactions.Transactions[*result.Payment.TransactionID].Name)
}

func TestRegisterEarlyPayment_DiscountReducesPrincipal(t *testing.T) {
	f := newPaymentFixture()

	result, err := f.service.RegisterEarlyPayment(context.Background(), 1, 1, EarlyPaymentInput{
		AccountID:      1,
		PaymentAmount:  dec("1000"),
		DiscountAmount: dec("100"),
		PaymentDate:    paymentDate,
		PaymentMethod:  domain.PaymentMethodBankTransfer,
	})
	require.NoError(t, err)

	assertDecimalEqual(t, dec("900"), result.Payment.PrincipalAmount)
	assertDecimalEqual(t, dec("11100"), result.Financing.CurrentBalance)
	assertDecimalEqual(t, dec("49000"), f.account(1).Balance)
}

func TestRegisterEarlyPayment_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		discount string
		wantErr  error
	}{
		{"zero amount", "0", "0", domain.ErrPaymentAmountInvalid},
		{"negative discount", "100", "-1", domain.ErrDiscountInvalid},
		{"discount equals amount", "100", "100", domain.ErrDiscountInvalid},
		{"equals balance", "12000", "0", domain.ErrEarlyPaymentTooLarge},
		{"exceeds balance", "15000", "0", domain.ErrEarlyPaymentTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture()
			_, err := f.service.RegisterEarlyPayment(context.Background(), 1, 1, EarlyPaymentInput{
				AccountID:      1,
				PaymentAmount:  dec(tt.amount),
				DiscountAmount: dec(tt.discount),
				PaymentDate:    paymentDate,
				PaymentMethod:  domain.PaymentMethodCash,
			})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.payments.Payments)
		})
	}
}

func TestCreatePayment_NotifierFailureDoesNotFailPayment(t *testing.T) {
	f := newPaymentFixture()
	f.notifier.Err = errors.New("broker unavailable")

	result, err := f.service.PayInstallment(context.Background(), 1, 1, payInstallmentInput(1))
	require.NoError(t, err)
	assert.NotNil(t, result.Payment)
	assert.Len(t, f.payments.Payments, 1)
}

func TestCreatePayment_WithoutBrokerUsesNoOpNotifier(t *testing.T) {
	f := newPaymentFixture()
	f.service.SetNotifier(&messaging.NoOpNotifier{})

	result, err := f.service.PayInstallment(context.Background(), 1, 1, payInstallmentInput(1))
	require.NoError(t, err)
	assertDecimalEqual(t, dec("11000"), result.Financing.CurrentBalance)
	assert.Empty(t, f.notifier.Messages)
}

func TestDeletePayment_RecomputesAggregate(t *testing.T) {
	f := newPaymentFixture()
	n := int32(1)
	f.payments.AddPayment(&domain.FinancingPayment{
		ID:                7,
		WorkspaceID:       1,
		FinancingID:       1,
		AccountID:         1,
		InstallmentNumber: &n,
		PaymentAmount:     dec("1120"),
		PrincipalAmount:   dec("1000"),
		InterestAmount:    dec("120"),
		DiscountAmount:    decimal.Zero,
		PaymentDate:       paymentDate,
		PaymentMethod:     domain.PaymentMethodCash,
		PaymentType:       domain.PaymentTypeScheduled,
	})
	f.financing(1).CurrentBalance = dec("11000")
	f.financing(1).PaidInstallments = 1
	f.financing(1).TotalPaid = dec("1120")

	updated, err := f.service.DeletePayment(context.Background(), 1, 7)
	require.NoError(t, err)

	assert.Empty(t, f.payments.Payments)
	assertDecimalEqual(t, dec("12000"), updated.CurrentBalance)
	assert.True(t, updated.TotalPaid.IsZero())
	assert.Equal(t, int32(0), updated.PaidInstallments)
	assertDecimalEqual(t, dec("50000"), f.account(1).Balance)
	assert.Equal(t, []string{"financing_payment.deleted", "financing.updated"}, f.publisher.Types())
	assert.Equal(t, []string{messaging.RoutingPaymentDeleted}, f.notifier.RoutingKeys())
}

func TestDeletePayment_StorageFailureLogsPaymentID(t *testing.T) {
	var buf bytes.Buffer
	original := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = original }()

	f := newPaymentFixture()
	n := int32(1)
	f.payments.AddPayment(&domain.FinancingPayment{
		ID:                7,
		WorkspaceID:       1,
		FinancingID:       1,
		AccountID:         1,
		InstallmentNumber: &n,
		PaymentAmount:     dec("1120"),
		PrincipalAmount:   dec("1000"),
		InterestAmount:    dec("120"),
		PaymentDate:       paymentDate,
		PaymentMethod:     domain.PaymentMethodCash,
		PaymentType:       domain.PaymentTypeScheduled,
	})
	f.ledger.FailOn["DeletePayment"] = errors.New("connection reset")

	_, err := f.service.DeletePayment(context.Background(), 1, 7)
	require.Error(t, err)
	assert.Len(t, f.payments.Payments, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Failed to delete financing payment", entry["message"])
	assert.Equal(t, float64(7), entry["payment_id"])
	assert.NotContains(t, entry, "financing_id")
}

func TestDeletePayment_LinkedTransactionRejected(t *testing.T) {
	f := newPaymentFixture()

	result, err := f.service.PayInstallment(context.Background(), 1, 1, payInstallmentInput(1))
	require.NoError(t, err)

	_, err = f.service.DeletePayment(context.Background(), 1, result.Payment.ID)
	assert.ErrorIs(t, err, domain.ErrPaymentHasTransaction)
	assert.Len(t, f.payments.Payments, 1)
}

func TestDeletePayment_NotFound(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.service.DeletePayment(context.Background(), 1, 404)
	assert.ErrorIs(t, err, domain.ErrFinancingPaymentNotFound)
}

func TestListPayments_NormalizesPaging(t *testing.T) {
	f := newPaymentFixture()
	var captured *domain.FinancingPaymentFilters
	f.payments.ListFn = func(workspaceID int32, filters *domain.FinancingPaymentFilters) (*domain.PaginatedFinancingPayments, error) {
		captured = filters
		return &domain.PaginatedFinancingPayments{}, nil
	}

	_, err := f.service.ListPayments(1, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), captured.Page)
	assert.Equal(t, int32(domain.DefaultPageSize), captured.PageSize)

	_, err = f.service.ListPayments(1, &domain.FinancingPaymentFilters{Page: 3, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, int32(3), captured.Page)
	assert.Equal(t, int32(domain.MaxPageSize), captured.PageSize)
}

func TestListPayments_InvalidFilters(t *testing.T) {
	f := newPaymentFixture()
	bad := domain.PaymentType("refund")

	_, err := f.service.ListPayments(1, &domain.FinancingPaymentFilters{PaymentType: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentType)

	start := paymentDate
	end := paymentDate.AddDate(0, 0, -1)
	_, err = f.service.ListPayments(1, &domain.FinancingPaymentFilters{StartDate: &start, EndDate: &end})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListPayments_StatisticsCoverAllPages(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	for n := int32(1); n <= 3; n++ {
		_, err := f.service.PayInstallment(ctx, 1, 1, payInstallmentInput(n))
		require.NoError(t, err)
	}

	page, err := f.service.ListPayments(1, &domain.FinancingPaymentFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)

	assert.Len(t, page.Data, 2)
	assert.Equal(t, int64(3), page.TotalItems)
	assert.Equal(t, int32(2), page.TotalPages)
	assert.Equal(t, int64(3), page.Statistics.ScheduledCount)
	assertDecimalEqual(t, dec("3000"), page.Statistics.TotalPrincipal)
	assertDecimalEqual(t, dec("330"), page.Statistics.TotalInterest)
}

func TestInstallmentDue_LastOutstandingTakesBalance(t *testing.T) {
	f := &domain.Financing{
		TotalAmount:        dec("12000"),
		InterestRate:       dec("0.01"),
		TermMonths:         12,
		AmortizationMethod: domain.AmortizationSAC,
		StartDate:          scheduleStart,
		CurrentBalance:     dec("999.97"),
		PaidInstallments:   11,
	}

	principal, interest, err := InstallmentDue(f, 12)
	require.NoError(t, err)
	assertDecimalEqual(t, dec("999.97"), principal)
	assertDecimalEqual(t, dec("10"), interest)
}

func TestGetPaymentTransaction(t *testing.T) {
	f := newPaymentFixture()

	result, err := f.service.PayInstallment(context.Background(), 1, 1, payInstallmentInput(1))
	require.NoError(t, err)

	tx, err := f.service.GetPaymentTransaction(1, result.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, *result.Payment.TransactionID, tx.ID)
	assertDecimalEqual(t, dec("1120"), tx.Amount)

	_, err = f.service.GetPaymentTransaction(2, result.Payment.ID)
	assert.ErrorIs(t, err, domain.ErrFinancingPaymentNotFound)
}
