package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taskmint/backend/internal/ledger"
	"github.com/taskmint/backend/internal/models"
	"github.com/taskmint/backend/internal/notify"
	"github.com/taskmint/backend/internal/payments"
	"github.com/taskmint/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// In-memory mocks for the service dependency contracts. They reproduce the
// conditional-update semantics of the real repositories so the services'
// guard logic is exercised without a database.
// ---------------------------------------------------------------------------

// fakeTx satisfies pgx.Tx for code paths that only pass the handle through.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.committed || t.rolledBack {
		return pgx.ErrTxClosed
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                               { return nil }

// fakeDB hands out fakeTx handles and remembers them so tests can assert on
// commit/rollback outcomes.
type fakeDB struct {
	mu  sync.Mutex
	txs []*fakeTx
}

func (d *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tx := &fakeTx{}
	d.txs = append(d.txs, tx)
	return tx, nil
}

func (d *fakeDB) committedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, tx := range d.txs {
		if tx.committed {
			n++
		}
	}
	return n
}

// ---

type mockAccounts struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*models.Account
}

func newMockAccounts(accs ...*models.Account) *mockAccounts {
	m := &mockAccounts{accounts: make(map[uuid.UUID]*models.Account)}
	for _, a := range accs {
		cp := *a
		m.accounts[a.ID] = &cp
	}
	return m
}

func (m *mockAccounts) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *mockAccounts) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *mockAccounts) IncrementBuyerStats(_ context.Context, _ pgx.Tx, id uuid.UUID, tasksDelta, spentDelta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.CreatedTasks += tasksDelta
	a.TotalSpent += spentDelta
	if a.TotalSpent < 0 {
		a.TotalSpent = 0
	}
	return nil
}

func (m *mockAccounts) IncrementWorkerStats(_ context.Context, _ pgx.Tx, id uuid.UUID, completedDelta, earningsDelta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.CompletedTasks += completedDelta
	a.TotalEarnings += earningsDelta
	return nil
}

func (m *mockAccounts) balance(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id].Balance
}

func (m *mockAccounts) get(id uuid.UUID) models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.accounts[id]
}

// ---

// mockLedger mirrors ledger.Service: a conditional balance mutation plus an
// appended audit row, with the unique session index emulated in memory.
type mockLedger struct {
	mu       sync.Mutex
	accounts *mockAccounts
	entries  []*models.Transaction
	sessions map[string]*models.Transaction
}

func newMockLedger(accounts *mockAccounts) *mockLedger {
	return &mockLedger{accounts: accounts, sessions: make(map[string]*models.Transaction)}
}

func (m *mockLedger) Record(_ context.Context, _ pgx.Tx, e ledger.Entry) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.SessionID != nil {
		if _, dup := m.sessions[*e.SessionID]; dup {
			return nil, repository.ErrDuplicateSession
		}
	}
	m.accounts.mu.Lock()
	a, ok := m.accounts.accounts[e.AccountID]
	if !ok {
		m.accounts.mu.Unlock()
		return nil, ledger.ErrAccountNotFound
	}
	if a.Balance+e.Amount < 0 {
		m.accounts.mu.Unlock()
		return nil, ledger.ErrInsufficientFunds
	}
	a.Balance += e.Amount
	newBalance := a.Balance
	m.accounts.mu.Unlock()

	txn := &models.Transaction{
		ID:            uuid.New(),
		AccountID:     e.AccountID,
		Kind:          e.Kind,
		Amount:        e.Amount,
		Description:   e.Description,
		TaskID:        e.TaskID,
		SubmissionID:  e.SubmissionID,
		SessionID:     e.SessionID,
		BalanceBefore: newBalance - e.Amount,
		BalanceAfter:  newBalance,
	}
	m.entries = append(m.entries, txn)
	if e.SessionID != nil {
		m.sessions[*e.SessionID] = txn
	}
	return txn, nil
}

func (m *mockLedger) byKind(kind string) []*models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transaction
	for _, e := range m.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (m *mockLedger) all() []*models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Transaction, len(m.entries))
	copy(out, m.entries)
	return out
}

// GetBySessionID doubles as the TransactionReader used by the payment service.
func (m *mockLedger) GetBySessionID(_ context.Context, sessionID string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.sessions[sessionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return txn, nil
}

// ---

type mockTasks struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*models.Task
}

func newMockTasks(tasks ...*models.Task) *mockTasks {
	m := &mockTasks{tasks: make(map[uuid.UUID]*models.Task)}
	for _, t := range tasks {
		cp := *t
		m.tasks[t.ID] = &cp
	}
	return m
}

func (m *mockTasks) CreateTx(_ context.Context, _ pgx.Tx, t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *mockTasks) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (m *mockTasks) ConsumeSlot(_ context.Context, _ pgx.Tx, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return false, nil
	}
	if t.Status != models.TaskStatusActive || t.AvailableUnits <= 0 || !t.Deadline.After(time.Now()) {
		return false, nil
	}
	t.AvailableUnits--
	t.SubmissionCount++
	return true, nil
}

func (m *mockTasks) ApplyApproval(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.ApprovedCount++
	if t.ApprovedCount >= t.RequiredUnits {
		t.Status = models.TaskStatusCompleted
	}
	return nil
}

func (m *mockTasks) ApplyRejection(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.RejectedCount++
	t.AvailableUnits++
	return nil
}

func (m *mockTasks) UpdateTx(_ context.Context, _ pgx.Tx, t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *mockTasks) DeleteTx(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, id)
	return nil
}

func (m *mockTasks) get(id uuid.UUID) (models.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return *t, true
}

// ---

type mockSubmissions struct {
	mu          sync.Mutex
	submissions map[uuid.UUID]*models.Submission
}

func newMockSubmissions(subs ...*models.Submission) *mockSubmissions {
	m := &mockSubmissions{submissions: make(map[uuid.UUID]*models.Submission)}
	for _, s := range subs {
		cp := *s
		m.submissions[s.ID] = &cp
	}
	return m
}

func (m *mockSubmissions) CreateTx(_ context.Context, _ pgx.Tx, s *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.submissions {
		if existing.TaskID == s.TaskID && existing.WorkerID == s.WorkerID {
			return repository.ErrDuplicateSubmission
		}
	}
	cp := *s
	m.submissions[s.ID] = &cp
	return nil
}

func (m *mockSubmissions) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *mockSubmissions) MarkReviewed(_ context.Context, _ pgx.Tx, id uuid.UUID, status string, reviewerID uuid.UUID, note string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok || s.Status != models.SubmissionStatusPending {
		return false, nil
	}
	s.Status = status
	s.ReviewedBy = &reviewerID
	s.ReviewNote = note
	s.ReviewedAt = &at
	return true, nil
}

func (m *mockSubmissions) get(id uuid.UUID) (models.Submission, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return models.Submission{}, false
	}
	return *s, true
}

// ---

type mockWithdrawals struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.WithdrawalRequest
}

func newMockWithdrawals(reqs ...*models.WithdrawalRequest) *mockWithdrawals {
	m := &mockWithdrawals{requests: make(map[uuid.UUID]*models.WithdrawalRequest)}
	for _, r := range reqs {
		cp := *r
		m.requests[r.ID] = &cp
	}
	return m
}

func (m *mockWithdrawals) Create(_ context.Context, w *models.WithdrawalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.requests[w.ID] = &cp
	return nil
}

func (m *mockWithdrawals) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *w
	return &cp, nil
}

func (m *mockWithdrawals) MarkProcessed(_ context.Context, _ pgx.Tx, id uuid.UUID, status string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.requests[id]
	if !ok || w.Status != models.WithdrawalStatusPending {
		return false, nil
	}
	w.Status = status
	return true, nil
}

func (m *mockWithdrawals) get(id uuid.UUID) (models.WithdrawalRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.requests[id]
	if !ok {
		return models.WithdrawalRequest{}, false
	}
	return *w, true
}

// ---

type mockSessions struct {
	mu       sync.Mutex
	sessions map[string]*models.PaymentSession
}

func newMockSessions() *mockSessions {
	return &mockSessions{sessions: make(map[string]*models.PaymentSession)}
}

func (m *mockSessions) Create(_ context.Context, p *models.PaymentSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.sessions[p.SessionID] = &cp
	return nil
}

func (m *mockSessions) GetBySessionID(_ context.Context, sessionID string) (*models.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.sessions[sessionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockSessions) MarkDelivered(_ context.Context, _ pgx.Tx, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.sessions[sessionID]
	if !ok || p.Status != models.PaymentSessionPending {
		return false, nil
	}
	p.Status = models.PaymentSessionDelivered
	return true, nil
}

func (m *mockSessions) get(sessionID string) (models.PaymentSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.sessions[sessionID]
	if !ok {
		return models.PaymentSession{}, false
	}
	return *p, true
}

// ---

// mockConfirmer stands in for the provider query client. Sessions read as
// unpaid until a test marks them paid.
type mockConfirmer struct {
	mu            sync.Mutex
	confirmations map[string]payments.Confirmation
	err           error
	calls         int
}

func newMockConfirmer() *mockConfirmer {
	return &mockConfirmer{confirmations: make(map[string]payments.Confirmation)}
}

func (m *mockConfirmer) markPaid(sessionID string, coins int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations[sessionID] = payments.Confirmation{Paid: true, Coins: coins}
}

func (m *mockConfirmer) Confirm(_ context.Context, sessionID string) (payments.Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return payments.Confirmation{}, m.err
	}
	return m.confirmations[sessionID], nil
}

func (m *mockConfirmer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ---

type mockNotifier struct {
	mu   sync.Mutex
	sent []notify.UserNotificationArgs
}

func (m *mockNotifier) NotifyTx(_ context.Context, _ pgx.Tx, args notify.UserNotificationArgs) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, args)
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockNotifier) last() (notify.UserNotificationArgs, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return notify.UserNotificationArgs{}, false
	}
	return m.sent[len(m.sent)-1], true
}
