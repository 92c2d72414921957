package testutil

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/dafibh/fortuna/financing-backend/internal/domain"
	"github.com/dafibh/fortuna/financing-backend/internal/messaging"
	"github.com/dafibh/fortuna/financing-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockUserRepository is a mock implementation of domain.UserRepository
type MockUserRepository struct {
	Users    map[string]*domain.User
	CreateFn func(auth0ID, email string, name, pictureURL *string) (*domain.User, error)
}

// NewMockUserRepository creates a new MockUserRepository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users: make(map[string]*domain.User),
	}
}

// GetByAuth0ID retrieves a user by Auth0 ID
func (m *MockUserRepository) GetByAuth0ID(auth0ID string) (*domain.User, error) {
	if user, ok := m.Users[auth0ID]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

// CreateOrGetByAuth0ID creates or retrieves a user by Auth0 ID
func (m *MockUserRepository) CreateOrGetByAuth0ID(auth0ID, email string, name, pictureURL *string) (*domain.User, error) {
	if m.CreateFn != nil {
		return m.CreateFn(auth0ID, email, name, pictureURL)
	}
	if user, ok := m.Users[auth0ID]; ok {
		return user, nil
	}
	user := &domain.User{
		ID:         uuid.New(),
		Auth0ID:    auth0ID,
		Email:      email,
		Name:       name,
		PictureURL: pictureURL,
	}
	m.Users[auth0ID] = user
	return user, nil
}

// AddUser adds a user to the mock repository (helper for tests)
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.Users[user.Auth0ID] = user
}

// MockWorkspaceRepository is a mock implementation of domain.WorkspaceRepository
type MockWorkspaceRepository struct {
	Workspaces    map[int32]*domain.Workspace
	ByUserID      map[uuid.UUID]*domain.Workspace
	ByUserAuth0ID map[string]*domain.Workspace
	NextID        int32
	GetByUserIDFn func(userID uuid.UUID) (*domain.Workspace, error)
}

// NewMockWorkspaceRepository creates a new MockWorkspaceRepository
func NewMockWorkspaceRepository() *MockWorkspaceRepository {
	return &MockWorkspaceRepository{
		Workspaces:    make(map[int32]*domain.Workspace),
		ByUserID:      make(map[uuid.UUID]*domain.Workspace),
		ByUserAuth0ID: make(map[string]*domain.Workspace),
		NextID:        1,
	}
}

// GetByID retrieves a workspace by ID
func (m *MockWorkspaceRepository) GetByID(id int32) (*domain.Workspace, error) {
	if ws, ok := m.Workspaces[id]; ok {
		return ws, nil
	}
	return nil, domain.ErrWorkspaceNotFound
}

// GetByUserID retrieves a workspace by user ID
func (m *MockWorkspaceRepository) GetByUserID(userID uuid.UUID) (*domain.Workspace, error) {
	if m.GetByUserIDFn != nil {
		return m.GetByUserIDFn(userID)
	}
	if ws, ok := m.ByUserID[userID]; ok {
		return ws, nil
	}
	return nil, domain.ErrWorkspaceNotFound
}

// GetByUserAuth0ID retrieves a workspace by user's Auth0 ID
func (m *MockWorkspaceRepository) GetByUserAuth0ID(auth0ID string) (*domain.Workspace, error) {
	if ws, ok := m.ByUserAuth0ID[auth0ID]; ok {
		return ws, nil
	}
	return nil, domain.ErrWorkspaceNotFound
}

// Create creates a new workspace
func (m *MockWorkspaceRepository) Create(workspace *domain.Workspace) (*domain.Workspace, error) {
	workspace.ID = m.NextID
	m.NextID++
	m.Workspaces[workspace.ID] = workspace
	m.ByUserID[workspace.UserID] = workspace
	return workspace, nil
}

// AddWorkspace adds a workspace reachable by the given Auth0 ID (helper for tests)
func (m *MockWorkspaceRepository) AddWorkspace(workspace *domain.Workspace, auth0ID string) {
	m.Workspaces[workspace.ID] = workspace
	m.ByUserID[workspace.UserID] = workspace
	m.ByUserAuth0ID[auth0ID] = workspace
}

// MockAccountRepository is a mock implementation of domain.AccountRepository
type MockAccountRepository struct {
	Accounts     map[int32]*domain.Account
	NextID       int32
	CreateFn     func(account *domain.Account) (*domain.Account, error)
	GetByIDFn    func(workspaceID int32, id int32) (*domain.Account, error)
	GetAllFn     func(workspaceID int32, includeArchived bool) ([]*domain.Account, error)
	UpdateFn     func(workspaceID int32, id int32, name string) (*domain.Account, error)
	SoftDeleteFn func(workspaceID int32, id int32) error
}

// NewMockAccountRepository creates a new MockAccountRepository
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		Accounts: make(map[int32]*domain.Account),
		NextID:   1,
	}
}

// Create creates a new account
func (m *MockAccountRepository) Create(account *domain.Account) (*domain.Account, error) {
	if m.CreateFn != nil {
		return m.CreateFn(account)
	}
	account.ID = m.NextID
	m.NextID++
	m.Accounts[account.ID] = account
	return account, nil
}

// GetByID retrieves an account by its ID within a workspace
func (m *MockAccountRepository) GetByID(workspaceID int32, id int32) (*domain.Account, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(workspaceID, id)
	}
	account, ok := m.Accounts[id]
	if !ok || account.WorkspaceID != workspaceID || account.DeletedAt != nil {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

// GetAllByWorkspace retrieves all accounts for a workspace ordered by ID
func (m *MockAccountRepository) GetAllByWorkspace(workspaceID int32, includeArchived bool) ([]*domain.Account, error) {
	if m.GetAllFn != nil {
		return m.GetAllFn(workspaceID, includeArchived)
	}
	accounts := []*domain.Account{}
	for _, acc := range m.Accounts {
		if acc.WorkspaceID != workspaceID {
			continue
		}
		if acc.DeletedAt != nil && !includeArchived {
			continue
		}
		accounts = append(accounts, acc)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// Update updates an account's name
func (m *MockAccountRepository) Update(workspaceID int32, id int32, name string) (*domain.Account, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(workspaceID, id, name)
	}
	account, ok := m.Accounts[id]
	if !ok || account.WorkspaceID != workspaceID || account.DeletedAt != nil {
		return nil, domain.ErrAccountNotFound
	}
	account.Name = name
	return account, nil
}

// SoftDelete marks an account as deleted
func (m *MockAccountRepository) SoftDelete(workspaceID int32, id int32) error {
	if m.SoftDeleteFn != nil {
		return m.SoftDeleteFn(workspaceID, id)
	}
	account, ok := m.Accounts[id]
	if !ok || account.WorkspaceID != workspaceID || account.DeletedAt != nil {
		return domain.ErrAccountNotFound
	}
	now := time.Now()
	account.DeletedAt = &now
	return nil
}

// AddAccount adds an account to the mock repository (helper for tests)
func (m *MockAccountRepository) AddAccount(account *domain.Account) {
	m.Accounts[account.ID] = account
	if account.ID >= m.NextID {
		m.NextID = account.ID + 1
	}
}

// MockTransactionRepository is a mock implementation of domain.TransactionRepository
type MockTransactionRepository struct {
	Transactions map[int32]*domain.Transaction
	NextID       int32
}

// NewMockTransactionRepository creates a new MockTransactionRepository
func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		Transactions: make(map[int32]*domain.Transaction),
		NextID:       1,
	}
}

// GetByFinancingPaymentID retrieves the transaction generated by a financing payment
func (m *MockTransactionRepository) GetByFinancingPaymentID(workspaceID int32, paymentID int32) (*domain.Transaction, error) {
	for _, tx := range m.Transactions {
		if tx.WorkspaceID == workspaceID && tx.FinancingPaymentID != nil && *tx.FinancingPaymentID == paymentID && tx.DeletedAt == nil {
			return tx, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

// AddTransaction adds a transaction to the mock repository (helper for tests)
func (m *MockTransactionRepository) AddTransaction(transaction *domain.Transaction) {
	m.Transactions[transaction.ID] = transaction
	if transaction.ID >= m.NextID {
		m.NextID = transaction.ID + 1
	}
}

// MockBudgetCategoryRepository holds the categories the mock ledger can tag transactions with
type MockBudgetCategoryRepository struct {
	Categories map[int32]*domain.BudgetCategory
}

// NewMockBudgetCategoryRepository creates a new MockBudgetCategoryRepository
func NewMockBudgetCategoryRepository() *MockBudgetCategoryRepository {
	return &MockBudgetCategoryRepository{
		Categories: make(map[int32]*domain.BudgetCategory),
	}
}

// GetByID retrieves a category by ID within a workspace
func (m *MockBudgetCategoryRepository) GetByID(workspaceID int32, id int32) (*domain.BudgetCategory, error) {
	category, ok := m.Categories[id]
	if !ok || category.WorkspaceID != workspaceID || category.DeletedAt != nil {
		return nil, domain.ErrBudgetCategoryNotFound
	}
	return category, nil
}

// AddBudgetCategory adds a category to the mock repository (helper for tests)
func (m *MockBudgetCategoryRepository) AddBudgetCategory(category *domain.BudgetCategory) {
	m.Categories[category.ID] = category
}

// MockCreditorRepository is a mock implementation of domain.CreditorRepository
type MockCreditorRepository struct {
	Creditors map[int32]*domain.Creditor
	NextID    int32
	CreateFn  func(creditor *domain.Creditor) (*domain.Creditor, error)
}

// NewMockCreditorRepository creates a new MockCreditorRepository
func NewMockCreditorRepository() *MockCreditorRepository {
	return &MockCreditorRepository{
		Creditors: make(map[int32]*domain.Creditor),
		NextID:    1,
	}
}

// Create creates a new creditor
func (m *MockCreditorRepository) Create(creditor *domain.Creditor) (*domain.Creditor, error) {
	if m.CreateFn != nil {
		return m.CreateFn(creditor)
	}
	creditor.ID = m.NextID
	m.NextID++
	m.Creditors[creditor.ID] = creditor
	return creditor, nil
}

// GetByID retrieves a creditor by ID within a workspace
func (m *MockCreditorRepository) GetByID(workspaceID int32, id int32) (*domain.Creditor, error) {
	creditor, ok := m.Creditors[id]
	if !ok || creditor.WorkspaceID != workspaceID || creditor.DeletedAt != nil {
		return nil, domain.ErrCreditorNotFound
	}
	return creditor, nil
}

// GetAllByWorkspace retrieves all creditors of a workspace ordered by name
func (m *MockCreditorRepository) GetAllByWorkspace(workspaceID int32) ([]*domain.Creditor, error) {
	creditors := []*domain.Creditor{}
	for _, c := range m.Creditors {
		if c.WorkspaceID == workspaceID && c.DeletedAt == nil {
			creditors = append(creditors, c)
		}
	}
	sort.Slice(creditors, func(i, j int) bool { return creditors[i].Name < creditors[j].Name })
	return creditors, nil
}

// AddCreditor adds a creditor to the mock repository (helper for tests)
func (m *MockCreditorRepository) AddCreditor(creditor *domain.Creditor) {
	m.Creditors[creditor.ID] = creditor
	if creditor.ID >= m.NextID {
		m.NextID = creditor.ID + 1
	}
}

// MockFinancingRepository is a mock implementation of domain.FinancingRepository
type MockFinancingRepository struct {
	Financings map[int32]*domain.Financing
	NextID     int32
	CreateFn   func(financing *domain.Financing) (*domain.Financing, error)
	GetByIDFn  func(workspaceID int32, id int32) (*domain.Financing, error)
}

// NewMockFinancingRepository creates a new MockFinancingRepository
func NewMockFinancingRepository() *MockFinancingRepository {
	return &MockFinancingRepository{
		Financings: make(map[int32]*domain.Financing),
		NextID:     1,
	}
}

// Create creates a new financing
func (m *MockFinancingRepository) Create(financing *domain.Financing) (*domain.Financing, error) {
	if m.CreateFn != nil {
		return m.CreateFn(financing)
	}
	financing.ID = m.NextID
	m.NextID++
	now := time.Now()
	financing.CreatedAt = now
	financing.UpdatedAt = now
	m.Financings[financing.ID] = financing
	return financing, nil
}

// GetByID retrieves a financing by ID within a workspace
func (m *MockFinancingRepository) GetByID(workspaceID int32, id int32) (*domain.Financing, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(workspaceID, id)
	}
	financing, ok := m.Financings[id]
	if !ok || financing.WorkspaceID != workspaceID {
		return nil, domain.ErrFinancingNotFound
	}
	return financing, nil
}

// GetAllByWorkspace retrieves financings of a workspace, optionally by status, ordered by ID
func (m *MockFinancingRepository) GetAllByWorkspace(workspaceID int32, status *domain.FinancingStatus) ([]*domain.Financing, error) {
	financings := []*domain.Financing{}
	for _, f := range m.Financings {
		if f.WorkspaceID != workspaceID {
			continue
		}
		if status != nil && f.Status != *status {
			continue
		}
		financings = append(financings, f)
	}
	sort.Slice(financings, func(i, j int) bool { return financings[i].ID < financings[j].ID })
	return financings, nil
}

// AddFinancing adds a financing to the mock repository (helper for tests)
func (m *MockFinancingRepository) AddFinancing(financing *domain.Financing) {
	m.Financings[financing.ID] = financing
	if financing.ID >= m.NextID {
		m.NextID = financing.ID + 1
	}
}

// MockFinancingPaymentRepository is a mock implementation of domain.FinancingPaymentRepository
type MockFinancingPaymentRepository struct {
	Payments map[int32]*domain.FinancingPayment
	NextID   int32
	ListFn   func(workspaceID int32, filters *domain.FinancingPaymentFilters) (*domain.PaginatedFinancingPayments, error)
}

// NewMockFinancingPaymentRepository creates a new MockFinancingPaymentRepository
func NewMockFinancingPaymentRepository() *MockFinancingPaymentRepository {
	return &MockFinancingPaymentRepository{
		Payments: make(map[int32]*domain.FinancingPayment),
		NextID:   1,
	}
}

// GetByID retrieves a payment by ID within a workspace
func (m *MockFinancingPaymentRepository) GetByID(workspaceID int32, id int32) (*domain.FinancingPayment, error) {
	payment, ok := m.Payments[id]
	if !ok || payment.WorkspaceID != workspaceID {
		return nil, domain.ErrFinancingPaymentNotFound
	}
	return payment, nil
}

// GetByFinancingID retrieves the ledger of a financing ordered by date then ID
func (m *MockFinancingPaymentRepository) GetByFinancingID(workspaceID int32, financingID int32) ([]*domain.FinancingPayment, error) {
	payments := []*domain.FinancingPayment{}
	for _, p := range m.Payments {
		if p.WorkspaceID == workspaceID && p.FinancingID == financingID {
			payments = append(payments, p)
		}
	}
	sortLedger(payments)
	return payments, nil
}

// List filters, paginates and summarises payments of a workspace, newest first
func (m *MockFinancingPaymentRepository) List(workspaceID int32, filters *domain.FinancingPaymentFilters) (*domain.PaginatedFinancingPayments, error) {
	if m.ListFn != nil {
		return m.ListFn(workspaceID, filters)
	}

	matched := []*domain.FinancingPayment{}
	for _, p := range m.Payments {
		if p.WorkspaceID != workspaceID {
			continue
		}
		if filters.FinancingID != nil && p.FinancingID != *filters.FinancingID {
			continue
		}
		if filters.AccountID != nil && p.AccountID != *filters.AccountID {
			continue
		}
		if filters.PaymentType != nil && p.PaymentType != *filters.PaymentType {
			continue
		}
		if filters.StartDate != nil && p.PaymentDate.Before(*filters.StartDate) {
			continue
		}
		if filters.EndDate != nil && p.PaymentDate.After(*filters.EndDate) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].PaymentDate.Equal(matched[j].PaymentDate) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].PaymentDate.After(matched[j].PaymentDate)
	})

	stats := domain.FinancingPaymentStatistics{
		TotalPaid:      decimal.Zero,
		TotalPrincipal: decimal.Zero,
		TotalInterest:  decimal.Zero,
		TotalDiscount:  decimal.Zero,
	}
	for _, p := range matched {
		stats.TotalPayments++
		stats.TotalPaid = stats.TotalPaid.Add(p.PaymentAmount)
		stats.TotalPrincipal = stats.TotalPrincipal.Add(p.PrincipalAmount)
		stats.TotalInterest = stats.TotalInterest.Add(p.InterestAmount)
		stats.TotalDiscount = stats.TotalDiscount.Add(p.DiscountAmount)
		switch p.PaymentType {
		case domain.PaymentTypeScheduled:
			stats.ScheduledCount++
		case domain.PaymentTypePartial:
			stats.PartialCount++
		case domain.PaymentTypeEarly:
			stats.EarlyCount++
		}
	}

	total := int64(len(matched))
	offset := int64((filters.Page - 1) * filters.PageSize)
	end := offset + int64(filters.PageSize)
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}

	totalPages := int32(0)
	if filters.PageSize > 0 {
		totalPages = int32((total + int64(filters.PageSize) - 1) / int64(filters.PageSize))
	}

	return &domain.PaginatedFinancingPayments{
		Data:       matched[offset:end],
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalItems: total,
		TotalPages: totalPages,
		Statistics: stats,
	}, nil
}

// AddPayment adds a ledger row to the mock repository (helper for tests)
func (m *MockFinancingPaymentRepository) AddPayment(payment *domain.FinancingPayment) {
	m.Payments[payment.ID] = payment
	if payment.ID >= m.NextID {
		m.NextID = payment.ID + 1
	}
}

func sortLedger(payments []*domain.FinancingPayment) {
	sort.Slice(payments, func(i, j int) bool {
		if payments[i].PaymentDate.Equal(payments[j].PaymentDate) {
			return payments[i].ID < payments[j].ID
		}
		return payments[i].PaymentDate.Before(payments[j].PaymentDate)
	})
}

// MockFinancingLedger is an in-memory domain.FinancingLedger over the mock repositories.
// WithinTx snapshots every table it can write and restores the snapshot when fn fails,
// so tests observe the same all-or-nothing behaviour as the Postgres ledger.
// The (financing, installment) uniqueness of the database is enforced on insert.
type MockFinancingLedger struct {
	Financings   *MockFinancingRepository
	Accounts     *MockAccountRepository
	Payments     *MockFinancingPaymentRepository
	Transactions *MockTransactionRepository
	Categories   *MockBudgetCategoryRepository

	// FailOn injects an error into the named tx method, e.g. "DebitAccount"
	FailOn map[string]error
	// InstallmentPaidFn overrides the duplicate pre-check, e.g. to simulate a race
	InstallmentPaidFn func(financingID int32, installmentNumber int32) (bool, error)

	Commits   int
	Rollbacks int

	mu sync.Mutex
}

// NewMockFinancingLedger creates a ledger sharing state with the given repositories
func NewMockFinancingLedger(
	financings *MockFinancingRepository,
	accounts *MockAccountRepository,
	payments *MockFinancingPaymentRepository,
	transactions *MockTransactionRepository,
	categories *MockBudgetCategoryRepository,
) *MockFinancingLedger {
	return &MockFinancingLedger{
		Financings:   financings,
		Accounts:     accounts,
		Payments:     payments,
		Transactions: transactions,
		Categories:   categories,
		FailOn:       make(map[string]error),
	}
}

type ledgerSnapshot struct {
	financings   map[int32]domain.Financing
	accounts     map[int32]domain.Account
	payments     map[int32]domain.FinancingPayment
	transactions map[int32]domain.Transaction
	nextPayment  int32
	nextTx       int32
}

func (m *MockFinancingLedger) snapshot() ledgerSnapshot {
	s := ledgerSnapshot{
		financings:   make(map[int32]domain.Financing, len(m.Financings.Financings)),
		accounts:     make(map[int32]domain.Account, len(m.Accounts.Accounts)),
		payments:     make(map[int32]domain.FinancingPayment, len(m.Payments.Payments)),
		transactions: make(map[int32]domain.Transaction, len(m.Transactions.Transactions)),
		nextPayment:  m.Payments.NextID,
		nextTx:       m.Transactions.NextID,
	}
	for id, f := range m.Financings.Financings {
		s.financings[id] = *f
	}
	for id, a := range m.Accounts.Accounts {
		s.accounts[id] = *a
	}
	for id, p := range m.Payments.Payments {
		s.payments[id] = *p
	}
	for id, t := range m.Transactions.Transactions {
		s.transactions[id] = *t
	}
	return s
}

// restore writes the snapshot back into the shared maps in place, keeping the
// pointers tests already hold pointing at the rolled-back values
func (m *MockFinancingLedger) restore(s ledgerSnapshot) {
	for id := range m.Financings.Financings {
		if _, ok := s.financings[id]; !ok {
			delete(m.Financings.Financings, id)
		}
	}
	for id, f := range s.financings {
		if cur, ok := m.Financings.Financings[id]; ok {
			*cur = f
		} else {
			f := f
			m.Financings.Financings[id] = &f
		}
	}

	for id := range m.Accounts.Accounts {
		if _, ok := s.accounts[id]; !ok {
			delete(m.Accounts.Accounts, id)
		}
	}
	for id, a := range s.accounts {
		if cur, ok := m.Accounts.Accounts[id]; ok {
			*cur = a
		} else {
			a := a
			m.Accounts.Accounts[id] = &a
		}
	}

	for id := range m.Payments.Payments {
		if _, ok := s.payments[id]; !ok {
			delete(m.Payments.Payments, id)
		}
	}
	for id, p := range s.payments {
		if cur, ok := m.Payments.Payments[id]; ok {
			*cur = p
		} else {
			p := p
			m.Payments.Payments[id] = &p
		}
	}

	for id := range m.Transactions.Transactions {
		if _, ok := s.transactions[id]; !ok {
			delete(m.Transactions.Transactions, id)
		}
	}
	for id, t := range s.transactions {
		if cur, ok := m.Transactions.Transactions[id]; ok {
			*cur = t
		} else {
			t := t
			m.Transactions.Transactions[id] = &t
		}
	}

	m.Payments.NextID = s.nextPayment
	m.Transactions.NextID = s.nextTx
}

// WithinTx runs fn serially; fn's error rolls back every write it made
func (m *MockFinancingLedger) WithinTx(ctx context.Context, fn func(tx domain.FinancingLedgerTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&mockLedgerTx{ledger: m}); err != nil {
		m.restore(snap)
		m.Rollbacks++
		return err
	}
	if err := m.FailOn["Commit"]; err != nil {
		m.restore(snap)
		m.Rollbacks++
		return err
	}
	m.Commits++
	return nil
}

type mockLedgerTx struct {
	ledger *MockFinancingLedger
}

func (t *mockLedgerTx) fail(method string) error {
	return t.ledger.FailOn[method]
}

func (t *mockLedgerTx) GetFinancingForUpdate(ctx context.Context, workspaceID int32, id int32) (*domain.Financing, error) {
	if err := t.fail("GetFinancingForUpdate"); err != nil {
		return nil, err
	}
	f, ok := t.ledger.Financings.Financings[id]
	if !ok || f.WorkspaceID != workspaceID {
		return nil, domain.ErrFinancingNotFound
	}
	copied := *f
	return &copied, nil
}

func (t *mockLedgerTx) GetAccountForUpdate(ctx context.Context, workspaceID int32, id int32) (*domain.Account, error) {
	if err := t.fail("GetAccountForUpdate"); err != nil {
		return nil, err
	}
	a, ok := t.ledger.Accounts.Accounts[id]
	if !ok || a.WorkspaceID != workspaceID || a.DeletedAt != nil {
		return nil, domain.ErrAccountNotFound
	}
	copied := *a
	return &copied, nil
}

func (t *mockLedgerTx) GetCategory(ctx context.Context, workspaceID int32, id int32) (*domain.BudgetCategory, error) {
	if err := t.fail("GetCategory"); err != nil {
		return nil, err
	}
	return t.ledger.Categories.GetByID(workspaceID, id)
}

func (t *mockLedgerTx) InstallmentPaid(ctx context.Context, financingID int32, installmentNumber int32) (bool, error) {
	if err := t.fail("InstallmentPaid"); err != nil {
		return false, err
	}
	if t.ledger.InstallmentPaidFn != nil {
		return t.ledger.InstallmentPaidFn(financingID, installmentNumber)
	}
	return t.installmentTaken(financingID, installmentNumber), nil
}

func (t *mockLedgerTx) installmentTaken(financingID int32, installmentNumber int32) bool {
	for _, p := range t.ledger.Payments.Payments {
		if p.FinancingID == financingID && p.InstallmentNumber != nil && *p.InstallmentNumber == installmentNumber {
			return true
		}
	}
	return false
}

func (t *mockLedgerTx) CreatePayment(ctx context.Context, payment *domain.FinancingPayment) (*domain.FinancingPayment, error) {
	if err := t.fail("CreatePayment"); err != nil {
		return nil, err
	}
	if payment.InstallmentNumber != nil && t.installmentTaken(payment.FinancingID, *payment.InstallmentNumber) {
		return nil, domain.ErrInstallmentAlreadyPaid
	}
	stored := *payment
	stored.ID = t.ledger.Payments.NextID
	t.ledger.Payments.NextID++
	stored.CreatedAt = time.Now()
	t.ledger.Payments.Payments[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (t *mockLedgerTx) CreateTransaction(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	if err := t.fail("CreateTransaction"); err != nil {
		return nil, err
	}
	stored := *transaction
	stored.ID = t.ledger.Transactions.NextID
	t.ledger.Transactions.NextID++
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	t.ledger.Transactions.Transactions[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (t *mockLedgerTx) LinkTransaction(ctx context.Context, paymentID int32, transactionID int32) error {
	if err := t.fail("LinkTransaction"); err != nil {
		return err
	}
	p, ok := t.ledger.Payments.Payments[paymentID]
	if !ok {
		return domain.ErrFinancingPaymentNotFound
	}
	id := transactionID
	p.TransactionID = &id
	return nil
}

func (t *mockLedgerTx) DebitAccount(ctx context.Context, workspaceID int32, accountID int32, amount decimal.Decimal) (*domain.Account, error) {
	if err := t.fail("DebitAccount"); err != nil {
		return nil, err
	}
	a, ok := t.ledger.Accounts.Accounts[accountID]
	if !ok || a.WorkspaceID != workspaceID {
		return nil, domain.ErrAccountNotFound
	}
	a.Balance = a.Balance.Sub(amount)
	a.UpdatedAt = time.Now()
	copied := *a
	return &copied, nil
}

func (t *mockLedgerTx) ListPayments(ctx context.Context, financingID int32) ([]*domain.FinancingPayment, error) {
	if err := t.fail("ListPayments"); err != nil {
		return nil, err
	}
	payments := []*domain.FinancingPayment{}
	for _, p := range t.ledger.Payments.Payments {
		if p.FinancingID == financingID {
			copied := *p
			payments = append(payments, &copied)
		}
	}
	sortLedger(payments)
	return payments, nil
}

func (t *mockLedgerTx) UpdateFinancingAggregate(ctx context.Context, financing *domain.Financing) (*domain.Financing, error) {
	if err := t.fail("UpdateFinancingAggregate"); err != nil {
		return nil, err
	}
	cur, ok := t.ledger.Financings.Financings[financing.ID]
	if !ok || cur.WorkspaceID != financing.WorkspaceID {
		return nil, domain.ErrFinancingNotFound
	}
	cur.CurrentBalance = financing.CurrentBalance
	cur.TotalPaid = financing.TotalPaid
	cur.TotalInterestPaid = financing.TotalInterestPaid
	cur.PaidInstallments = financing.PaidInstallments
	cur.Status = financing.Status
	cur.UpdatedAt = time.Now()
	copied := *cur
	return &copied, nil
}

func (t *mockLedgerTx) GetPaymentForUpdate(ctx context.Context, workspaceID int32, id int32) (*domain.FinancingPayment, error) {
	if err := t.fail("GetPaymentForUpdate"); err != nil {
		return nil, err
	}
	p, ok := t.ledger.Payments.Payments[id]
	if !ok || p.WorkspaceID != workspaceID {
		return nil, domain.ErrFinancingPaymentNotFound
	}
	copied := *p
	return &copied, nil
}

func (t *mockLedgerTx) DeletePayment(ctx context.Context, id int32) error {
	if err := t.fail("DeletePayment"); err != nil {
		return err
	}
	if _, ok := t.ledger.Payments.Payments[id]; !ok {
		return domain.ErrFinancingPaymentNotFound
	}
	delete(t.ledger.Payments.Payments, id)
	return nil
}

// MockPaymentReceiptRepository is a mock implementation of domain.PaymentReceiptRepository
type MockPaymentReceiptRepository struct {
	Receipts map[int32]*domain.PaymentReceipt
	NextID   int32
	CreateFn func(receipt *domain.PaymentReceipt) (*domain.PaymentReceipt, error)
}

// NewMockPaymentReceiptRepository creates a new MockPaymentReceiptRepository
func NewMockPaymentReceiptRepository() *MockPaymentReceiptRepository {
	return &MockPaymentReceiptRepository{
		Receipts: make(map[int32]*domain.PaymentReceipt),
		NextID:   1,
	}
}

// Create stores receipt metadata
func (m *MockPaymentReceiptRepository) Create(receipt *domain.PaymentReceipt) (*domain.PaymentReceipt, error) {
	if m.CreateFn != nil {
		return m.CreateFn(receipt)
	}
	receipt.ID = m.NextID
	m.NextID++
	receipt.CreatedAt = time.Now()
	m.Receipts[receipt.ID] = receipt
	return receipt, nil
}

// GetLatestByPaymentID returns the most recent receipt of a payment
func (m *MockPaymentReceiptRepository) GetLatestByPaymentID(workspaceID int32, paymentID int32) (*domain.PaymentReceipt, error) {
	var latest *domain.PaymentReceipt
	for _, r := range m.Receipts {
		if r.WorkspaceID != workspaceID || r.PaymentID != paymentID {
			continue
		}
		if latest == nil || r.ID > latest.ID {
			latest = r
		}
	}
	if latest == nil {
		return nil, domain.ErrReceiptNotFound
	}
	return latest, nil
}

// MockReceiptStore is an in-memory storage.ReceiptStore
type MockReceiptStore struct {
	Objects  map[string][]byte
	UploadFn func(objectPath string) error
	Deleted  []string
	mu       sync.Mutex
}

// NewMockReceiptStore creates a new MockReceiptStore
func NewMockReceiptStore() *MockReceiptStore {
	return &MockReceiptStore{
		Objects: make(map[string][]byte),
	}
}

// Upload stores the object bytes
func (m *MockReceiptStore) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error) {
	if m.UploadFn != nil {
		if err := m.UploadFn(objectPath); err != nil {
			return "", err
		}
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[objectPath] = buf
	return objectPath, nil
}

// Delete removes an object
func (m *MockReceiptStore) Delete(ctx context.Context, objectPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, objectPath)
	m.Deleted = append(m.Deleted, objectPath)
	return nil
}

// GeneratePresignedURL returns a fake signed URL
func (m *MockReceiptStore) GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error) {
	return "https://receipts.test/" + objectPath + "?expires=" + expiry.String(), nil
}

// RecordingPublisher captures websocket events (helper for tests)
type RecordingPublisher struct {
	Events []PublishedEvent
	mu     sync.Mutex
}

// PublishedEvent is one captured websocket event
type PublishedEvent struct {
	WorkspaceID int32
	Event       websocket.Event
}

// Publish records the event
func (p *RecordingPublisher) Publish(workspaceID int32, event websocket.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, PublishedEvent{WorkspaceID: workspaceID, Event: event})
}

// Types returns the combined type of every captured event in order
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.Events))
	for _, e := range p.Events {
		types = append(types, e.Event.Type)
	}
	return types
}

// RecordingNotifier captures AMQP notifications (helper for tests)
type RecordingNotifier struct {
	Messages []RecordedMessage
	Err      error
	mu       sync.Mutex
}

// RecordedMessage is one captured notification
type RecordedMessage struct {
	RoutingKey string
	Message    *messaging.PaymentEventMessage
}

// Publish records the message and returns Err
func (n *RecordingNotifier) Publish(ctx context.Context, routingKey string, msg *messaging.PaymentEventMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.Messages = append(n.Messages, RecordedMessage{RoutingKey: routingKey, Message: msg})
	return nil
}

// RoutingKeys returns the routing key of every captured message in order
func (n *RecordingNotifier) RoutingKeys() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	keys := make([]string, 0, len(n.Messages))
	for _, m := range n.Messages {
		keys = append(keys, m.RoutingKey)
	}
	return keys
}
