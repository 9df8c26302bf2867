package reconciliation

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

type mockMovementRepo struct {
	movements map[id.ID]*BankRawMovement
}

func newMockMovementRepo(movements ...*BankRawMovement) *mockMovementRepo {
	m := &mockMovementRepo{movements: make(map[id.ID]*BankRawMovement)}
	for _, mv := range movements {
		m.movements[mv.ID] = mv
	}
	return m
}

func (m *mockMovementRepo) ImportBatch(ctx context.Context, movements []*BankRawMovement) error {
	for _, mv := range movements {
		m.movements[mv.ID] = mv
	}
	return nil
}

func (m *mockMovementRepo) GetByID(ctx context.Context, movementID id.ID) (*BankRawMovement, error) {
	mv, ok := m.movements[movementID]
	if !ok {
		return nil, apperror.NewNotFound("movement", movementID)
	}
	return mv, nil
}

func (m *mockMovementRepo) ListByAccount(ctx context.Context, accountID id.ID, unreconciledOnly bool) ([]*BankRawMovement, error) {
	var out []*BankRawMovement
	for _, mv := range m.movements {
		if mv.AccountID != accountID {
			continue
		}
		if unreconciledOnly && mv.Reconciled {
			continue
		}
		out = append(out, mv)
	}
	return out, nil
}

func (m *mockMovementRepo) SetReconciled(ctx context.Context, movementID id.ID, reconciled bool) error {
	mv, ok := m.movements[movementID]
	if !ok {
		return apperror.NewNotFound("movement", movementID)
	}
	mv.Reconciled = reconciled
	return nil
}

func (m *mockMovementRepo) GetForUpdate(ctx context.Context, movementID id.ID) (*BankRawMovement, error) {
	return m.GetByID(ctx, movementID)
}

type mockRecRepo struct {
	headers map[id.ID]*Reconciliation
	lines   map[id.ID][]Line
}

func newMockRecRepo() *mockRecRepo {
	return &mockRecRepo{
		headers: make(map[id.ID]*Reconciliation),
		lines:   make(map[id.ID][]Line),
	}
}

func (m *mockRecRepo) Create(ctx context.Context, rec *Reconciliation) error {
	m.headers[rec.ID] = rec
	return nil
}

func (m *mockRecRepo) SaveLines(ctx context.Context, recID id.ID, lines []Line) error {
	m.lines[recID] = append(m.lines[recID], lines...)
	return nil
}

func (m *mockRecRepo) GetByID(ctx context.Context, recID id.ID) (*Reconciliation, error) {
	rec, ok := m.headers[recID]
	if !ok {
		return nil, apperror.NewNotFound("reconciliation", recID)
	}
	return rec, nil
}

func (m *mockRecRepo) ListByAccount(ctx context.Context, accountID id.ID) ([]*Reconciliation, error) {
	var out []*Reconciliation
	for _, rec := range m.headers {
		if rec.AccountID == accountID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockRecRepo) DeleteByAccount(ctx context.Context, accountID id.ID) error {
	for recID, rec := range m.headers {
		if rec.AccountID == accountID {
			delete(m.headers, recID)
			delete(m.lines, recID)
		}
	}
	return nil
}

func (m *mockRecRepo) totalLines() int {
	n := 0
	for _, lines := range m.lines {
		n += len(lines)
	}
	return n
}

type mockPaymentRepo struct {
	pmts map[id.ID]*payments.Payment

	// onGetForUpdate runs after the row lock is taken, simulating a
	// concurrent run mutating the payment between pairing and flagging.
	onGetForUpdate func(p *payments.Payment)
}

func newMockPaymentRepo(pmts ...*payments.Payment) *mockPaymentRepo {
	m := &mockPaymentRepo{pmts: make(map[id.ID]*payments.Payment)}
	for _, p := range pmts {
		m.pmts[p.ID] = p
	}
	return m
}

func (m *mockPaymentRepo) Create(ctx context.Context, p *payments.Payment) error {
	m.pmts[p.ID] = p
	return nil
}

func (m *mockPaymentRepo) GetByID(ctx context.Context, paymentID id.ID) (*payments.Payment, error) {
	p, ok := m.pmts[paymentID]
	if !ok {
		return nil, apperror.NewNotFound("payment", paymentID)
	}
	return p, nil
}

func (m *mockPaymentRepo) GetByNumber(ctx context.Context, number string) (*payments.Payment, error) {
	return nil, apperror.NewNotFound("payment", number)
}

func (m *mockPaymentRepo) Update(ctx context.Context, p *payments.Payment) error {
	m.pmts[p.ID] = p
	return nil
}

func (m *mockPaymentRepo) SaveApplications(ctx context.Context, paymentID id.ID, apps []payments.Application) error {
	return nil
}

func (m *mockPaymentRepo) GetApplications(ctx context.Context, paymentID id.ID) ([]payments.Application, error) {
	return nil, nil
}

func (m *mockPaymentRepo) SumAppliedToTarget(ctx context.Context, kind payments.TargetKind, targetID id.ID) (types.Money, error) {
	return types.Zero(), nil
}

func (m *mockPaymentRepo) List(ctx context.Context, filter payments.ListFilter) (domain.ListResult[*payments.Payment], error) {
	return domain.ListResult[*payments.Payment]{}, nil
}

func (m *mockPaymentRepo) ListByAccount(ctx context.Context, accountID id.ID, unreconciledOnly bool) ([]*payments.Payment, error) {
	var out []*payments.Payment
	for _, p := range m.pmts {
		if p.AccountID == nil || *p.AccountID != accountID {
			continue
		}
		if unreconciledOnly && p.Reconciled {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockPaymentRepo) SetReconciled(ctx context.Context, paymentID id.ID, reconciled bool) error {
	p, ok := m.pmts[paymentID]
	if !ok {
		return apperror.NewNotFound("payment", paymentID)
	}
	p.Reconciled = reconciled
	return nil
}

func (m *mockPaymentRepo) GetForUpdate(ctx context.Context, paymentID id.ID) (*payments.Payment, error) {
	p, err := m.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if m.onGetForUpdate != nil {
		m.onGetForUpdate(p)
	}
	return p, nil
}

func accountPayment(accountID id.ID, amount string) *payments.Payment {
	p := payments.New(payments.TypeInflow, types.MustMoney(amount))
	p.AccountID = &accountID
	return p
}

func TestMatchAccount_FlagsAndWritesLines(t *testing.T) {
	ctx := context.Background()
	accountID := id.New()

	m1 := NewMovement(accountID, types.MustMoney("300.00"), day(1), "deposit")
	m2 := NewMovement(accountID, types.MustMoney("-55.00"), day(2), "fee")
	p1 := accountPayment(accountID, "300.00")

	movementRepo := newMockMovementRepo(m1, m2)
	recRepo := newMockRecRepo()
	paymentRepo := newMockPaymentRepo(p1)
	svc := NewService(movementRepo, recRepo, paymentRepo, &mockTxManager{})

	rec, err := svc.MatchAccount(ctx, accountID)
	if err != nil {
		t.Fatalf("MatchAccount: %v", err)
	}

	if rec.MatchedCount != 1 {
		t.Errorf("matched = %d, want 1", rec.MatchedCount)
	}
	if rec.PendingMovements != 1 {
		t.Errorf("pending movements = %d, want 1", rec.PendingMovements)
	}
	if !m1.Reconciled || !p1.Reconciled {
		t.Error("matched pair not flagged on both sides")
	}
	if m2.Reconciled {
		t.Error("unmatched movement must not be flagged")
	}
	if recRepo.totalLines() != 1 {
		t.Errorf("lines written = %d, want 1", recRepo.totalLines())
	}
	if !rec.Diferencia.Equal(types.MustMoney("-55.00")) {
		t.Errorf("diferencia = %s, want -55.00", rec.Diferencia)
	}
}

func TestMatchAccount_Idempotent(t *testing.T) {
	ctx := context.Background()
	accountID := id.New()

	m1 := NewMovement(accountID, types.MustMoney("300.00"), day(1), "deposit")
	p1 := accountPayment(accountID, "300.00")

	movementRepo := newMockMovementRepo(m1)
	recRepo := newMockRecRepo()
	svc := NewService(movementRepo, recRepo, newMockPaymentRepo(p1), &mockTxManager{})

	first, err := svc.MatchAccount(ctx, accountID)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := svc.MatchAccount(ctx, accountID)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	// Same summary both times, no duplicate lines.
	if first.MatchedCount != second.MatchedCount {
		t.Errorf("matched: first %d, second %d", first.MatchedCount, second.MatchedCount)
	}
	if first.PendingMovements != second.PendingMovements ||
		first.PendingPayments != second.PendingPayments {
		t.Error("pending counts differ between runs")
	}
	if !first.Diferencia.Equal(second.Diferencia) {
		t.Errorf("diferencia: first %s, second %s", first.Diferencia, second.Diferencia)
	}
	if recRepo.totalLines() != 1 {
		t.Errorf("lines after two runs = %d, want 1", recRepo.totalLines())
	}
}

func TestMatchAccount_SkipsPaymentTakenByOverlappingRun(t *testing.T) {
	ctx := context.Background()
	accountID := id.New()

	m1 := NewMovement(accountID, types.MustMoney("300.00"), day(1), "deposit")
	p1 := accountPayment(accountID, "300.00")

	movementRepo := newMockMovementRepo(m1)
	recRepo := newMockRecRepo()
	paymentRepo := newMockPaymentRepo(p1)
	svc := NewService(movementRepo, recRepo, paymentRepo, &mockTxManager{})

	// An overlapping run consumes the payment after pairing is computed
	// but before the pair is flagged.
	paymentRepo.onGetForUpdate = func(p *payments.Payment) {
		p.Reconciled = true
	}

	rec, err := svc.MatchAccount(ctx, accountID)
	if err != nil {
		t.Fatalf("MatchAccount: %v", err)
	}

	if len(rec.Lines) != 0 {
		t.Errorf("lines = %d, want 0: pair must be skipped when the payment is taken", len(rec.Lines))
	}
	if recRepo.totalLines() != 0 {
		t.Errorf("lines written = %d, want 0", recRepo.totalLines())
	}
	if m1.Reconciled {
		t.Error("movement flagged although its payment was already consumed")
	}
}

func TestUnmatchAllThenMatch_EqualsSinglePass(t *testing.T) {
	ctx := context.Background()
	accountID := id.New()

	m1 := NewMovement(accountID, types.MustMoney("300.00"), day(1), "deposit")
	p1 := accountPayment(accountID, "300.00")

	movementRepo := newMockMovementRepo(m1)
	recRepo := newMockRecRepo()
	svc := NewService(movementRepo, recRepo, newMockPaymentRepo(p1), &mockTxManager{})

	firstRun, err := svc.MatchAccount(ctx, accountID)
	if err != nil {
		t.Fatalf("MatchAccount: %v", err)
	}

	if err := svc.UnmatchAll(ctx, accountID); err != nil {
		t.Fatalf("UnmatchAll: %v", err)
	}
	if m1.Reconciled || p1.Reconciled {
		t.Error("flags not cleared by reset")
	}
	if len(recRepo.headers) != 0 || recRepo.totalLines() != 0 {
		t.Error("headers/lines not removed by reset")
	}

	rematch, err := svc.MatchAccount(ctx, accountID)
	if err != nil {
		t.Fatalf("rematch: %v", err)
	}
	if rematch.MatchedCount != firstRun.MatchedCount ||
		!rematch.Diferencia.Equal(firstRun.Diferencia) {
		t.Error("reset + rematch differs from a single pass")
	}
	if recRepo.totalLines() != 1 {
		t.Errorf("lines after reset + rematch = %d, want 1", recRepo.totalLines())
	}
}

func TestImportMovements_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMockMovementRepo(), newMockRecRepo(), newMockPaymentRepo(), &mockTxManager{})

	if err := svc.ImportMovements(ctx, nil); err == nil {
		t.Error("expected error for empty import")
	}

	bad := NewMovement(id.Nil(), types.MustMoney("10.00"), day(1), "no account")
	if err := svc.ImportMovements(ctx, []*BankRawMovement{bad}); err == nil {
		t.Error("expected error for movement without account")
	}
}
