package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/dafibh/fortuna/financing-backend/internal/messaging"
	"github.com/dafibh/fortuna/financing-backend/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// FinancingPaymentService records payments against financings. Every mutation runs
// as one ledger unit: the payment row, its expense transaction, the account debit and
// the recomputed financing aggregate commit together or not at all.
type FinancingPaymentService struct {
	ledger         domain.FinancingLedger
	financingRepo  domain.FinancingRepository
	paymentRepo    domain.FinancingPaymentRepository
	txRepo         domain.TransactionRepository
	eventPublisher websocket.EventPublisher
	notifier       messaging.Notifier
}

// NewFinancingPaymentService creates a new FinancingPaymentService
func NewFinancingPaymentService(
	ledger domain.FinancingLedger,
	financingRepo domain.FinancingRepository,
	paymentRepo domain.FinancingPaymentRepository,
	txRepo domain.TransactionRepository,
) *FinancingPaymentService {
	return &FinancingPaymentService{
		ledger:        ledger,
		financingRepo: financingRepo,
		paymentRepo:   paymentRepo,
		txRepo:        txRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *FinancingPaymentService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetNotifier sets the downstream notification publisher
func (s *FinancingPaymentService) SetNotifier(notifier messaging.Notifier) {
	s.notifier = notifier
}

// publishEvent publishes a WebSocket event if a publisher is configured
func (s *FinancingPaymentService) publishEvent(workspaceID int32, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(workspaceID, event)
	}
}

// notify sends a downstream notification if a notifier is configured. Failures are
// logged only, the ledger is already committed.
func (s *FinancingPaymentService) notify(ctx context.Context, routingKey string, msg *messaging.PaymentEventMessage) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, routingKey, msg); err != nil {
		log.Warn().Err(err).
			Str("routing_key", routingKey).
			Int32("workspace_id", msg.WorkspaceID).
			Int32("financing_id", msg.FinancingID).
			Msg("Failed to publish payment notification")
	}
}

// CreatePaymentInput contains input for recording a payment
type CreatePaymentInput struct {
	FinancingID       int32
	AccountID         int32
	InstallmentNumber *int32
	PaymentAmount     decimal.Decimal
	PrincipalAmount   decimal.Decimal
	InterestAmount    decimal.Decimal
	DiscountAmount    decimal.Decimal
	PaymentDate       time.Time
	PaymentMethod     domain.PaymentMethod
	PaymentType       domain.PaymentType
	CategoryID        *int32
	Notes             *string
}

// PayInstallmentInput contains input for paying one scheduled installment.
// PaymentAmount defaults to the amount due when nil.
type PayInstallmentInput struct {
	InstallmentNumber int32
	AccountID         int32
	PaymentAmount     *decimal.Decimal
	PaymentDate       time.Time
	PaymentMethod     domain.PaymentMethod
	CategoryID        *int32
	Notes             *string
}

// EarlyPaymentInput contains input for an out-of-schedule principal payment
type EarlyPaymentInput struct {
	AccountID      int32
	PaymentAmount  decimal.Decimal
	DiscountAmount decimal.Decimal
	PaymentDate    time.Time
	PaymentMethod  domain.PaymentMethod
	CategoryID     *int32
	Notes          *string
}

// CreatePayment records a payment. Preconditions are checked in order under row locks
// (financing active, account owned, installment free, balance not overpaid, account
// funded) and the first failure wins with no side effects.
func (s *FinancingPaymentService) CreatePayment(ctx context.Context, workspaceID int32, input CreatePaymentInput) (*domain.PaymentResult, error) {
	payment := &domain.FinancingPayment{
		WorkspaceID:       workspaceID,
		FinancingID:       input.FinancingID,
		AccountID:         input.AccountID,
		InstallmentNumber: input.InstallmentNumber,
		PaymentAmount:     input.PaymentAmount,
		PrincipalAmount:   input.PrincipalAmount,
		InterestAmount:    input.InterestAmount,
		DiscountAmount:    input.DiscountAmount,
		PaymentDate:       input.PaymentDate,
		PaymentMethod:     input.PaymentMethod,
		PaymentType:       input.PaymentType,
		Notes:             input.Notes,
	}
	if err := validatePayment(payment); err != nil {
		return nil, err
	}
	return s.record(ctx, workspaceID, payment, input.CategoryID, nil)
}

// validatePayment checks a fully built payment row before it is recorded
func validatePayment(payment *domain.FinancingPayment) error {
	if err := payment.Validate(); err != nil {
		return err
	}
	if payment.PaymentType == domain.PaymentTypeEarly && payment.InstallmentNumber != nil {
		return domain.ErrInvalidInstallmentNumber
	}
	if payment.PaymentType != domain.PaymentTypeEarly && payment.InstallmentNumber == nil {
		return domain.ErrInvalidInstallmentNumber
	}
	if payment.DiscountAmount.GreaterThanOrEqual(payment.PaymentAmount) {
		return domain.ErrDiscountInvalid
	}
	return nil
}

// record runs one payment through the ledger unit. prepare, when set, fills in the
// amounts from the locked financing before any other precondition is checked.
func (s *FinancingPaymentService) record(
	ctx context.Context,
	workspaceID int32,
	payment *domain.FinancingPayment,
	categoryID *int32,
	prepare func(financing *domain.Financing) error,
) (*domain.PaymentResult, error) {
	var result *domain.PaymentResult
	var debited *domain.Account
	var wasActive bool
	err := s.ledger.WithinTx(ctx, func(tx domain.FinancingLedgerTx) error {
		financing, err := tx.GetFinancingForUpdate(ctx, workspaceID, payment.FinancingID)
		if err != nil {
			return storageErr("lock financing", err)
		}
		if financing.IsSettled() {
			return domain.ErrFinancingSettled
		}
		wasActive = true

		if prepare != nil {
			if err := prepare(financing); err != nil {
				return err
			}
		}

		account, err := tx.GetAccountForUpdate(ctx, workspaceID, payment.AccountID)
		if err != nil {
			return storageErr("lock account", err)
		}

		if categoryID != nil {
			if _, err := tx.GetCategory(ctx, workspaceID, *categoryID); err != nil {
				return storageErr("get category", err)
			}
		}

		if payment.InstallmentNumber != nil {
			n := *payment.InstallmentNumber
			if n < 1 || n > financing.TermMonths {
				return domain.ErrInvalidInstallmentNumber
			}
			paid, err := tx.InstallmentPaid(ctx, financing.ID, n)
			if err != nil {
				return storageErr("check installment", err)
			}
			if paid {
				return domain.ErrInstallmentAlreadyPaid
			}
		}

		if payment.PaymentType == domain.PaymentTypeEarly && payment.PaymentAmount.GreaterThanOrEqual(financing.CurrentBalance) {
			return domain.ErrEarlyPaymentTooLarge
		}

		balanceAfter := financing.CurrentBalance.Sub(payment.PrincipalAmount)
		if balanceAfter.IsNegative() {
			return domain.ErrPaymentExceedsBalance
		}
		if !account.CanCover(payment.PaymentAmount) {
			return domain.ErrInsufficientAccountBalance
		}

		payment.BalanceBefore = financing.CurrentBalance
		payment.BalanceAfter = balanceAfter

		created, err := tx.CreatePayment(ctx, payment)
		if err != nil {
			return storageErr("insert payment", err)
		}

		transaction, err := tx.CreateTransaction(ctx, &domain.Transaction{
			WorkspaceID:        workspaceID,
			AccountID:          account.ID,
			Name:               paymentTransactionName(financing, created),
			Amount:             created.PaymentAmount,
			Type:               domain.TransactionTypeExpense,
			TransactionDate:    created.PaymentDate,
			IsPaid:             true,
			Notes:              created.Notes,
			CategoryID:         categoryID,
			FinancingPaymentID: &created.ID,
			Source:             domain.TransactionSourceFinancing,
		})
		if err != nil {
			return storageErr("insert transaction", err)
		}

		if err := tx.LinkTransaction(ctx, created.ID, transaction.ID); err != nil {
			return storageErr("link transaction", err)
		}
		created.TransactionID = &transaction.ID

		debited, err = tx.DebitAccount(ctx, workspaceID, account.ID, created.PaymentAmount)
		if err != nil {
			return storageErr("debit account", err)
		}

		updated, err := s.recomputeAggregate(ctx, tx, financing)
		if err != nil {
			return err
		}

		result = &domain.PaymentResult{
			Payment:     created,
			Transaction: transaction,
			Financing:   updated,
		}
		return nil
	})
	if err != nil {
		s.logFailure(err, workspaceID, "financing_id", payment.FinancingID, "Failed to record financing payment")
		return nil, err
	}

	log.Info().
		Int32("workspace_id", workspaceID).
		Int32("financing_id", result.Financing.ID).
		Int32("payment_id", result.Payment.ID).
		Str("payment_type", string(result.Payment.PaymentType)).
		Str("current_balance", result.Financing.CurrentBalance.StringFixed(2)).
		Msg("Financing payment recorded")

	financingID := result.Financing.ID
	s.publishEvent(workspaceID, websocket.FinancingPaymentCreated(result).ForFinancing(financingID))
	s.publishEvent(workspaceID, websocket.AccountUpdated(debited))
	msg := messaging.NewPaymentEventMessage(result.Payment, result.Financing)
	s.notify(ctx, messaging.RoutingPaymentRecorded, msg)
	if wasActive && result.Financing.IsSettled() {
		log.Info().Int32("workspace_id", workspaceID).Int32("financing_id", result.Financing.ID).Msg("Financing settled")
		s.publishEvent(workspaceID, websocket.FinancingSettled(result.Financing).ForFinancing(financingID))
		s.notify(ctx, messaging.RoutingFinancingSettled, msg)
	} else {
		s.publishEvent(workspaceID, websocket.FinancingUpdated(result.Financing).ForFinancing(financingID))
	}

	return result, nil
}

// PayInstallment pays installment n of the nominal schedule. The principal/interest
// split comes from the schedule row, never from the caller, and is computed from the
// financing as locked inside the unit. Underpayment is rejected; any excess over the
// amount due goes to principal and tags the payment partial.
func (s *FinancingPaymentService) PayInstallment(ctx context.Context, workspaceID int32, financingID int32, input PayInstallmentInput) (*domain.PaymentResult, error) {
	n := input.InstallmentNumber
	payment := &domain.FinancingPayment{
		WorkspaceID:       workspaceID,
		FinancingID:       financingID,
		AccountID:         input.AccountID,
		InstallmentNumber: &n,
		DiscountAmount:    decimal.Zero,
		PaymentDate:       input.PaymentDate,
		PaymentMethod:     input.PaymentMethod,
		Notes:             input.Notes,
	}

	return s.record(ctx, workspaceID, payment, input.CategoryID, func(financing *domain.Financing) error {
		principal, interest, err := InstallmentDue(financing, int(n))
		if err != nil {
			return err
		}
		due := principal.Add(interest)

		amount := due
		if input.PaymentAmount != nil {
			amount = *input.PaymentAmount
		}
		if amount.LessThan(due) {
			return domain.ErrUnderpayment
		}

		payment.PaymentType = domain.PaymentTypeScheduled
		if amount.GreaterThan(due) {
			payment.PaymentType = domain.PaymentTypePartial
			principal = principal.Add(amount.Sub(due))
		}
		payment.PaymentAmount = amount
		payment.PrincipalAmount = principal
		payment.InterestAmount = interest
		return validatePayment(payment)
	})
}

// InstallmentDue returns the cent-rounded principal and interest owed for installment n.
// Principal never exceeds the current balance, and the last outstanding installment
// takes the exact remaining balance.
func InstallmentDue(f *domain.Financing, n int) (principal, interest decimal.Decimal, err error) {
	row, err := ScheduleRow(TermsOf(f), n)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	interest = row.Interest.Round(2)
	principal = row.Payment.Round(2).Sub(interest)
	if f.PaidInstallments+1 >= f.TermMonths || principal.GreaterThan(f.CurrentBalance) {
		principal = f.CurrentBalance
	}
	return principal, interest, nil
}

// RegisterEarlyPayment applies an out-of-schedule payment entirely to principal.
// The amount net of discount reduces the balance; no installment is consumed.
func (s *FinancingPaymentService) RegisterEarlyPayment(ctx context.Context, workspaceID int32, financingID int32, input EarlyPaymentInput) (*domain.PaymentResult, error) {
	financing, err := s.financingRepo.GetByID(workspaceID, financingID)
	if err != nil {
		return nil, err
	}
	if financing.IsSettled() {
		return nil, domain.ErrFinancingSettled
	}
	if input.PaymentAmount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrPaymentAmountInvalid
	}
	if input.DiscountAmount.IsNegative() || input.DiscountAmount.GreaterThanOrEqual(input.PaymentAmount) {
		return nil, domain.ErrDiscountInvalid
	}
	if input.PaymentAmount.GreaterThanOrEqual(financing.CurrentBalance) {
		return nil, domain.ErrEarlyPaymentTooLarge
	}

	return s.CreatePayment(ctx, workspaceID, CreatePaymentInput{
		FinancingID:     financingID,
		AccountID:       input.AccountID,
		PaymentAmount:   input.PaymentAmount,
		PrincipalAmount: input.PaymentAmount.Sub(input.DiscountAmount),
		InterestAmount:  decimal.Zero,
		DiscountAmount:  input.DiscountAmount,
		PaymentDate:     input.PaymentDate,
		PaymentMethod:   input.PaymentMethod,
		PaymentType:     domain.PaymentTypeEarly,
		CategoryID:      input.CategoryID,
		Notes:           input.Notes,
	})
}

// DeletePayment removes a ledger row that has no linked transaction, a repair path
// for rows imported without one. The account is not credited back since no debit was
// recorded against it. The aggregate is recomputed in the same unit.
func (s *FinancingPaymentService) DeletePayment(ctx context.Context, workspaceID int32, paymentID int32) (*domain.Financing, error) {
	var updated *domain.Financing
	var deleted *domain.FinancingPayment
	err := s.ledger.WithinTx(ctx, func(tx domain.FinancingLedgerTx) error {
		payment, err := tx.GetPaymentForUpdate(ctx, workspaceID, paymentID)
		if err != nil {
			return storageErr("lock payment", err)
		}
		if payment.TransactionID != nil {
			return domain.ErrPaymentHasTransaction
		}

		financing, err := tx.GetFinancingForUpdate(ctx, workspaceID, payment.FinancingID)
		if err != nil {
			return storageErr("lock financing", err)
		}
		if financing.IsSettled() {
			return domain.ErrFinancingSettled
		}

		if err := tx.DeletePayment(ctx, payment.ID); err != nil {
			return storageErr("delete payment", err)
		}

		updated, err = s.recomputeAggregate(ctx, tx, financing)
		if err != nil {
			return err
		}
		deleted = payment
		return nil
	})
	if err != nil {
		s.logFailure(err, workspaceID, "payment_id", paymentID, "Failed to delete financing payment")
		return nil, err
	}

	log.Info().
		Int32("workspace_id", workspaceID).
		Int32("financing_id", updated.ID).
		Int32("payment_id", paymentID).
		Msg("Financing payment deleted")

	s.publishEvent(workspaceID, websocket.FinancingPaymentDeleted(map[string]int32{"id": paymentID, "financingId": updated.ID}).ForFinancing(updated.ID))
	s.publishEvent(workspaceID, websocket.FinancingUpdated(updated).ForFinancing(updated.ID))
	s.notify(ctx, messaging.RoutingPaymentDeleted, messaging.NewPaymentEventMessage(deleted, updated))
	return updated, nil
}

// ListPayments returns a page of payments plus statistics over every matching row
func (s *FinancingPaymentService) ListPayments(workspaceID int32, filters *domain.FinancingPaymentFilters) (*domain.PaginatedFinancingPayments, error) {
	if filters == nil {
		filters = &domain.FinancingPaymentFilters{}
	}
	if filters.PaymentType != nil && !filters.PaymentType.IsValid() {
		return nil, domain.ErrInvalidPaymentType
	}
	if filters.StartDate != nil && filters.EndDate != nil && filters.EndDate.Before(*filters.StartDate) {
		return nil, domain.ErrInvalidInput
	}
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = domain.DefaultPageSize
	}
	if filters.PageSize > domain.MaxPageSize {
		filters.PageSize = domain.MaxPageSize
	}
	return s.paymentRepo.List(workspaceID, filters)
}

// GetPayment returns one ledger row
func (s *FinancingPaymentService) GetPayment(workspaceID int32, id int32) (*domain.FinancingPayment, error) {
	return s.paymentRepo.GetByID(workspaceID, id)
}

// GetPaymentTransaction returns the expense transaction generated by a payment.
// Payments recorded before their transaction was linked yield ErrTransactionNotFound.
func (s *FinancingPaymentService) GetPaymentTransaction(workspaceID int32, paymentID int32) (*domain.Transaction, error) {
	if _, err := s.paymentRepo.GetByID(workspaceID, paymentID); err != nil {
		return nil, err
	}
	return s.txRepo.GetByFinancingPaymentID(workspaceID, paymentID)
}

// recomputeAggregate rebuilds the financing aggregate from its full ledger inside tx
// and persists it
func (s *FinancingPaymentService) recomputeAggregate(ctx context.Context, tx domain.FinancingLedgerTx, financing *domain.Financing) (*domain.Financing, error) {
	ledger, err := tx.ListPayments(ctx, financing.ID)
	if err != nil {
		return nil, storageErr("list payments", err)
	}

	financing.Recompute(ledger)
	checkBalanceDrift(financing, ledger)

	updated, err := tx.UpdateFinancingAggregate(ctx, financing)
	if err != nil {
		return nil, storageErr("update financing", err)
	}
	return updated, nil
}

// checkBalanceDrift compares the recomputed balance with a replay of the schedule and
// logs a mismatch. The recomputed value stays authoritative.
func checkBalanceDrift(financing *domain.Financing, ledger []*domain.FinancingPayment) {
	replayed, err := CalculateUpdatedBalance(TermsOf(financing), ledger)
	if err != nil {
		return
	}
	current := decimal.Max(financing.CurrentBalance, decimal.Zero)
	if !replayed.Equal(current) {
		log.Warn().
			Int32("workspace_id", financing.WorkspaceID).
			Int32("financing_id", financing.ID).
			Str("current_balance", current.String()).
			Str("replayed_balance", replayed.String()).
			Msg("Financing balance differs from schedule replay")
	}
}

func paymentTransactionName(f *domain.Financing, p *domain.FinancingPayment) string {
	if p.InstallmentNumber == nil {
		return fmt.Sprintf("%s - early payment", f.Description)
	}
	return fmt.Sprintf("%s - installment %d/%d", f.Description, *p.InstallmentNumber, f.TermMonths)
}

// storageErr passes domain errors through and wraps everything else
func storageErr(op string, err error) error {
	if domain.IsNotFound(err) || domain.IsValidation(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

// logFailure logs unexpected ledger failures. idKey names the identifier the caller
// had when the unit started.
func (s *FinancingPaymentService) logFailure(err error, workspaceID int32, idKey string, id int32, msg string) {
	if domain.IsNotFound(err) || domain.IsValidation(err) || errors.Is(err, context.Canceled) {
		return
	}
	log.Error().Err(err).Int32("workspace_id", workspaceID).Int32(idKey, id).Msg(msg)
}
