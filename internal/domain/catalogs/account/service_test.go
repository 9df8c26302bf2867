package account

import (
	"context"
	"testing"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/id"
	"tesoreria/internal/core/types"
	"tesoreria/internal/domain"
	"tesoreria/internal/domain/payments"
)

type mockTxManager struct{}

func (m *mockTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockAccountRepo struct {
	accounts map[id.ID]*Account
}

func newMockAccountRepo(accounts ...*Account) *mockAccountRepo {
	m := &mockAccountRepo{accounts: make(map[id.ID]*Account)}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *mockAccountRepo) Create(ctx context.Context, a *Account) error {
	m.accounts[a.ID] = a
	return nil
}

func (m *mockAccountRepo) GetByID(ctx context.Context, accountID id.ID) (*Account, error) {
	a, ok := m.accounts[accountID]
	if !ok {
		return nil, apperror.NewNotFound("account", accountID)
	}
	return a, nil
}

func (m *mockAccountRepo) GetByCode(ctx context.Context, code string) (*Account, error) {
	for _, a := range m.accounts {
		if a.Code == code {
			return a, nil
		}
	}
	return nil, apperror.NewNotFound("account", code)
}

func (m *mockAccountRepo) Update(ctx context.Context, a *Account) error {
	m.accounts[a.ID] = a
	return nil
}

func (m *mockAccountRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Account], error) {
	return domain.ListResult[*Account]{}, nil
}

func (m *mockAccountRepo) GetForUpdate(ctx context.Context, accountID id.ID) (*Account, error) {
	return m.GetByID(ctx, accountID)
}

type mockPaymentLister struct {
	payments.Repository
	pmts []*payments.Payment
}

func (m *mockPaymentLister) ListByAccount(ctx context.Context, accountID id.ID, unreconciledOnly bool) ([]*payments.Payment, error) {
	return m.pmts, nil
}

func accountPayment(paymentType payments.Type, amount string, state payments.State) *payments.Payment {
	p := payments.New(paymentType, types.MustMoney(amount))
	p.State = state
	return p
}

func TestRecalculate(t *testing.T) {
	ctx := context.Background()

	acc := New("BANK-01", "Cuenta corriente", TypeBank)
	acc.OpeningBalance = types.MustMoney("1000.00")
	acc.CachedBalance = types.MustMoney("999.99") // drifted

	lister := &mockPaymentLister{pmts: []*payments.Payment{
		accountPayment(payments.TypeInflow, "500.00", payments.StateRecorded),
		accountPayment(payments.TypeOutflow, "200.00", payments.StateRecorded),
		accountPayment(payments.TypeInflow, "75.50", payments.StateRecorded),
		accountPayment(payments.TypeInflow, "9999.00", payments.StateVoided), // ignored
	}}

	svc := NewService(newMockAccountRepo(acc), lister, &mockTxManager{})

	// 1000 + 500 - 200 + 75.50 = 1375.50
	balance, err := svc.Recalculate(ctx, acc.ID)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if !balance.Equal(types.MustMoney("1375.50")) {
		t.Errorf("balance = %s, want 1375.50", balance)
	}
	if !acc.CachedBalance.Equal(balance) {
		t.Errorf("cached balance not repaired: %s", acc.CachedBalance)
	}

	// Idempotent: a second run yields the same value.
	again, err := svc.Recalculate(ctx, acc.ID)
	if err != nil {
		t.Fatalf("second Recalculate: %v", err)
	}
	if !again.Equal(balance) {
		t.Errorf("second run = %s, first = %s", again, balance)
	}
}

func TestRecalculate_EmptyAccount(t *testing.T) {
	ctx := context.Background()

	acc := New("CASH-01", "Caja chica", TypeCash)
	svc := NewService(newMockAccountRepo(acc), &mockPaymentLister{}, &mockTxManager{})

	balance, err := svc.Recalculate(ctx, acc.ID)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("balance = %s, want 0", balance)
	}
}

func TestAdjustBalance(t *testing.T) {
	ctx := context.Background()

	acc := New("BANK-01", "Cuenta corriente", TypeBank)
	svc := NewService(newMockAccountRepo(acc), &mockPaymentLister{}, &mockTxManager{})

	if err := svc.AdjustBalance(ctx, acc.ID, types.MustMoney("120.00")); err != nil {
		t.Fatalf("AdjustBalance: %v", err)
	}
	if err := svc.AdjustBalance(ctx, acc.ID, types.MustMoney("-20.00")); err != nil {
		t.Fatalf("AdjustBalance: %v", err)
	}
	if !acc.CachedBalance.Equal(types.MustMoney("100.00")) {
		t.Errorf("cached balance = %s, want 100.00", acc.CachedBalance)
	}
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMockAccountRepo(), &mockPaymentLister{}, &mockTxManager{})

	if err := svc.Create(ctx, New("", "No code", TypeBank)); err == nil {
		t.Error("expected error for missing code")
	}
	if err := svc.Create(ctx, &Account{Code: "X", Name: "Bad type"}); err == nil {
		t.Error("expected error for missing type")
	}

	good := New("BANK-02", "Cuenta", TypeBank)
	if err := svc.Create(ctx, good); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dup := New("BANK-02", "Duplicada", TypeBank)
	err := svc.Create(ctx, dup)
	if err == nil {
		t.Fatal("expected duplicate-code error")
	}
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeDuplicate {
		t.Errorf("got %v, want code %s", err, apperror.CodeDuplicate)
	}
}
