package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/taskmint/backend/internal/models"
)

func newPaymentService(accounts *mockAccounts) (*PaymentService, *mockSessions, *mockConfirmer, *mockLedger, *mockNotifier) {
	sessions := newMockSessions()
	confirmer := newMockConfirmer()
	l := newMockLedger(accounts)
	n := &mockNotifier{}
	return NewPaymentService(&fakeDB{}, sessions, l, confirmer, l, n), sessions, confirmer, l, n
}

func TestReconcile_CreditsOnce(t *testing.T) {
	buyer := uuid.New()
	accounts := newMockAccounts(&models.Account{ID: buyer, Balance: 50})
	svc, sessions, _, l, notifier := newPaymentService(accounts)
	ctx := context.Background()

	if _, err := svc.CreateCheckout(ctx, buyer, "cs_test_123", 100, 500); err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}

	txn, already, err := svc.Reconcile(ctx, "cs_test_123", buyer, 100)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if already {
		t.Error("first reconcile should not report already delivered")
	}
	if txn.Amount != 100 || txn.Kind != models.TxKindPurchase {
		t.Errorf("transaction: got kind=%s amount=%d, want purchase/100", txn.Kind, txn.Amount)
	}
	if bal := accounts.balance(buyer); bal != 150 {
		t.Errorf("buyer balance: got %d, want 150", bal)
	}
	s, _ := sessions.get("cs_test_123")
	if s.Status != models.PaymentSessionDelivered {
		t.Errorf("session status: got %s, want delivered", s.Status)
	}
	if n := len(l.all()); n != 1 {
		t.Errorf("ledger entries: got %d, want 1", n)
	}
	if notifier.count() != 1 {
		t.Errorf("notifications: got %d, want 1", notifier.count())
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	buyer := uuid.New()
	accounts := newMockAccounts(&models.Account{ID: buyer, Balance: 0})
	svc, _, _, l, _ := newPaymentService(accounts)
	ctx := context.Background()

	first, _, err := svc.Reconcile(ctx, "cs_test_dup", buyer, 100)
	if err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}

	// A webhook retry or racing client poll must be a no-op success that
	// returns the original entry.
	second, already, err := svc.Reconcile(ctx, "cs_test_dup", buyer, 100)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if !already {
		t.Error("second reconcile should report already delivered")
	}
	if second.ID != first.ID {
		t.Error("second reconcile should return the original transaction")
	}
	if bal := accounts.balance(buyer); bal != 100 {
		t.Errorf("buyer balance: got %d, want 100 (credited once)", bal)
	}
	if n := len(l.all()); n != 1 {
		t.Errorf("ledger entries: got %d, want 1", n)
	}
}

func TestReconcile_ConcurrentTriggers(t *testing.T) {
	buyer := uuid.New()
	accounts := newMockAccounts(&models.Account{ID: buyer, Balance: 0})
	svc, _, _, l, _ := newPaymentService(accounts)

	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.Reconcile(context.Background(), "cs_test_race", buyer, 100)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("attempt %d: %v", i, err)
		}
	}
	if bal := accounts.balance(buyer); bal != 100 {
		t.Errorf("buyer balance: got %d, want 100 (exactly one credit)", bal)
	}
	if n := len(l.all()); n != 1 {
		t.Errorf("ledger entries: got %d, want 1", n)
	}
}

func TestReconcile_RejectsNonPositiveAmounts(t *testing.T) {
	buyer := uuid.New()
	accounts := newMockAccounts(&models.Account{ID: buyer, Balance: 100})
	svc, _, _, l, _ := newPaymentService(accounts)

	// A forged event must not be able to debit through the purchase path.
	for _, coins := range []int{0, -50} {
		if _, _, err := svc.Reconcile(context.Background(), "cs_forged", buyer, coins); !errors.Is(err, ErrInvalidCoinAmount) {
			t.Errorf("coins=%d: expected ErrInvalidCoinAmount, got: %v", coins, err)
		}
	}
	if bal := accounts.balance(buyer); bal != 100 {
		t.Errorf("buyer balance: got %d, want 100 (untouched)", bal)
	}
	if n := len(l.all()); n != 0 {
		t.Errorf("ledger entries: got %d, want 0", n)
	}
}

func TestVerify_SettlesPaidSession(t *testing.T) {
	buyer := uuid.New()
	accounts := newMockAccounts(&models.Account{ID: buyer, Balance: 0})
	svc, _, confirmer, _, _ := newPaymentService(accounts)
	ctx := context.Background()

	if _, err := svc.CreateCheckout(ctx, buyer, "cs_test_verify", 40, 200); err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}
	confirmer.markPaid("cs_test_verify", 40)

	txn, already, err := svc.Verify(ctx, "cs_test_verify")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if already {
		t.Error("first verify should not report already delivered")
	}
	if txn.Amount != 40 {
		t.Errorf("amount: got %d, want 40", txn.Amount)
	}
	if bal := accounts.balance(buyer); bal != 40 {
		t.Errorf("buyer balance: got %d, want 40", bal)
	}
}

func TestVerify_UnpaidSessionDoesNotCredit(t *testing.T) {
	buyer := uuid.New()
	accounts := newMockAccounts(&models.Account{ID: buyer, Balance: 0})
	svc, _, _, l, _ := newPaymentService(accounts)
	ctx := context.Background()

	// A checkout the provider never saw paid, however large the recorded
	// amount is.
	if _, err := svc.CreateCheckout(ctx, buyer, "cs_never_paid", 1000000, 0); err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}

	if _, _, err := svc.Verify(ctx, "cs_never_paid"); !errors.Is(err, ErrSessionNotPaid) {
		t.Fatalf("expected ErrSessionNotPaid, got: %v", err)
	}
	if bal := accounts.balance(buyer); bal != 0 {
		t.Errorf("buyer balance: got %d, want 0 (no credit without a paid confirmation)", bal)
	}
	if n := len(l.all()); n != 0 {
		t.Errorf("ledger entries: got %d, want 0", n)
	}
}

func TestVerify_CreditsProviderAmount(t *testing.T) {
	buyer := uuid.New()
	accounts := newMockAccounts(&models.Account{ID: buyer, Balance: 0})
	svc, _, confirmer, _, _ := newPaymentService(accounts)
	ctx := context.Background()

	// The checkout records an inflated amount; the provider's confirmation
	// is the credit of record.
	if _, err := svc.CreateCheckout(ctx, buyer, "cs_inflated", 1000000, 500); err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}
	confirmer.markPaid("cs_inflated", 100)

	txn, _, err := svc.Verify(ctx, "cs_inflated")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if txn.Amount != 100 {
		t.Errorf("amount: got %d, want 100 (provider amount)", txn.Amount)
	}
	if bal := accounts.balance(buyer); bal != 100 {
		t.Errorf("buyer balance: got %d, want 100", bal)
	}
}

func TestVerify_DeliveredSessionSkipsProvider(t *testing.T) {
	buyer := uuid.New()
	accounts := newMockAccounts(&models.Account{ID: buyer, Balance: 0})
	svc, _, confirmer, _, _ := newPaymentService(accounts)
	ctx := context.Background()

	if _, err := svc.CreateCheckout(ctx, buyer, "cs_settled", 100, 500); err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}
	// Webhook settles first.
	if _, _, err := svc.Reconcile(ctx, "cs_settled", buyer, 100); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	txn, already, err := svc.Verify(ctx, "cs_settled")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !already {
		t.Error("verify after webhook settlement should report already delivered")
	}
	if txn == nil || txn.Amount != 100 {
		t.Errorf("transaction: got %+v, want the settled 100-coin entry", txn)
	}
	if confirmer.callCount() != 0 {
		t.Errorf("provider queries: got %d, want 0 for a delivered session", confirmer.callCount())
	}
	if bal := accounts.balance(buyer); bal != 100 {
		t.Errorf("buyer balance: got %d, want 100 (credited once)", bal)
	}
}

func TestVerify_UnknownSession(t *testing.T) {
	accounts := newMockAccounts()
	svc, _, _, _, _ := newPaymentService(accounts)

	if _, _, err := svc.Verify(context.Background(), "cs_missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got: %v", err)
	}
}

func TestReconcile_UnknownAccount(t *testing.T) {
	accounts := newMockAccounts()
	svc, _, _, _, _ := newPaymentService(accounts)

	if _, _, err := svc.Reconcile(context.Background(), "cs_test_noacct", uuid.New(), 100); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got: %v", err)
	}
}
