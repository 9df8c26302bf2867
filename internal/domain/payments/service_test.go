package payments

import (
	"context"
	"strings"
	"testing"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/correlativo"
	"tesoreria/internal/core/id"
	"tesoreria/internal/core/types"
	"tesoreria/internal/domain"
	"tesoreria/internal/domain/documents/invoice"
	"tesoreria/internal/domain/documents/letra"
)

// --- mocks ---

type mockTxManager struct{}

func (m *mockTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockPaymentRepo struct {
	created  []*Payment
	updated  []*Payment
	apps     map[id.ID][]Application
	versions map[id.ID]int
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{
		apps:     make(map[id.ID][]Application),
		versions: make(map[id.ID]int),
	}
}

func (m *mockPaymentRepo) Create(ctx context.Context, p *Payment) error {
	m.created = append(m.created, p)
	m.versions[p.ID] = p.Version
	return nil
}

func (m *mockPaymentRepo) GetByID(ctx context.Context, paymentID id.ID) (*Payment, error) {
	for _, p := range m.created {
		if p.ID == paymentID {
			return p, nil
		}
	}
	return nil, apperror.NewNotFound("payment", paymentID)
}

func (m *mockPaymentRepo) GetByNumber(ctx context.Context, number string) (*Payment, error) {
	return nil, apperror.NewNotFound("payment", number)
}

// Update enforces the optimistic-lock protocol the way the postgres
// repos do: the entity's version must equal the stored one, and the
// stored version advances as part of the write.
func (m *mockPaymentRepo) Update(ctx context.Context, p *Payment) error {
	if stored, ok := m.versions[p.ID]; ok && p.Version != stored {
		return apperror.NewConcurrentModification("doc_payments", p.ID)
	}
	m.versions[p.ID]++
	p.Version = m.versions[p.ID]
	m.updated = append(m.updated, p)
	return nil
}

func (m *mockPaymentRepo) SaveApplications(ctx context.Context, paymentID id.ID, apps []Application) error {
	m.apps[paymentID] = apps
	return nil
}

func (m *mockPaymentRepo) GetApplications(ctx context.Context, paymentID id.ID) ([]Application, error) {
	return m.apps[paymentID], nil
}

func (m *mockPaymentRepo) SumAppliedToTarget(ctx context.Context, kind TargetKind, targetID id.ID) (types.Money, error) {
	voided := make(map[id.ID]bool)
	for _, p := range m.created {
		voided[p.ID] = p.State == StateVoided
	}

	var sum types.Money
	for paymentID, apps := range m.apps {
		if voided[paymentID] {
			continue
		}
		for _, app := range apps {
			if app.TargetKind == kind && app.TargetID == targetID {
				sum = sum.Add(app.AmountApplied)
			}
		}
	}
	return sum, nil
}

func (m *mockPaymentRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Payment], error) {
	return domain.ListResult[*Payment]{}, nil
}

func (m *mockPaymentRepo) ListByAccount(ctx context.Context, accountID id.ID, unreconciledOnly bool) ([]*Payment, error) {
	return nil, nil
}

func (m *mockPaymentRepo) SetReconciled(ctx context.Context, paymentID id.ID, reconciled bool) error {
	return nil
}

func (m *mockPaymentRepo) GetForUpdate(ctx context.Context, paymentID id.ID) (*Payment, error) {
	return m.GetByID(ctx, paymentID)
}

type mockInvoiceRepo struct {
	docs     map[id.ID]*invoice.Invoice
	versions map[id.ID]int
}

func newMockInvoiceRepo(docs ...*invoice.Invoice) *mockInvoiceRepo {
	m := &mockInvoiceRepo{
		docs:     make(map[id.ID]*invoice.Invoice),
		versions: make(map[id.ID]int),
	}
	for _, d := range docs {
		m.docs[d.ID] = d
		m.versions[d.ID] = d.Version
	}
	return m
}

func (m *mockInvoiceRepo) Create(ctx context.Context, doc *invoice.Invoice) error {
	m.docs[doc.ID] = doc
	m.versions[doc.ID] = doc.Version
	return nil
}

func (m *mockInvoiceRepo) GetByID(ctx context.Context, docID id.ID) (*invoice.Invoice, error) {
	doc, ok := m.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", docID)
	}
	return doc, nil
}

func (m *mockInvoiceRepo) GetByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	return nil, apperror.NewNotFound("invoice", number)
}

func (m *mockInvoiceRepo) Update(ctx context.Context, doc *invoice.Invoice) error {
	if stored, ok := m.versions[doc.ID]; ok && doc.Version != stored {
		return apperror.NewConcurrentModification("doc_invoices", doc.ID)
	}
	m.versions[doc.ID]++
	doc.Version = m.versions[doc.ID]
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockInvoiceRepo) GetLines(ctx context.Context, docID id.ID) ([]invoice.Line, error) {
	return nil, nil
}

func (m *mockInvoiceRepo) SaveLines(ctx context.Context, docID id.ID, lines []invoice.Line) error {
	return nil
}

func (m *mockInvoiceRepo) List(ctx context.Context, filter invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	return domain.ListResult[*invoice.Invoice]{}, nil
}

func (m *mockInvoiceRepo) GetForUpdate(ctx context.Context, docID id.ID) (*invoice.Invoice, error) {
	return m.GetByID(ctx, docID)
}

type mockLetraRepo struct {
	notes    map[id.ID]*letra.Letra
	versions map[id.ID]int
}

func newMockLetraRepo(notes ...*letra.Letra) *mockLetraRepo {
	m := &mockLetraRepo{
		notes:    make(map[id.ID]*letra.Letra),
		versions: make(map[id.ID]int),
	}
	for _, n := range notes {
		m.notes[n.ID] = n
		m.versions[n.ID] = n.Version
	}
	return m
}

func (m *mockLetraRepo) CreateBatch(ctx context.Context, notes []*letra.Letra) error {
	for _, n := range notes {
		m.notes[n.ID] = n
		m.versions[n.ID] = n.Version
	}
	return nil
}

func (m *mockLetraRepo) GetByID(ctx context.Context, noteID id.ID) (*letra.Letra, error) {
	note, ok := m.notes[noteID]
	if !ok {
		return nil, apperror.NewNotFound("letra", noteID)
	}
	return note, nil
}

func (m *mockLetraRepo) Update(ctx context.Context, note *letra.Letra) error {
	if stored, ok := m.versions[note.ID]; ok && note.Version != stored {
		return apperror.NewConcurrentModification("doc_letras", note.ID)
	}
	m.versions[note.ID]++
	note.Version = m.versions[note.ID]
	m.notes[note.ID] = note
	return nil
}

func (m *mockLetraRepo) ListByInvoice(ctx context.Context, invoiceID id.ID) ([]*letra.Letra, error) {
	return nil, nil
}

func (m *mockLetraRepo) CountByInvoice(ctx context.Context, invoiceID id.ID) (int64, error) {
	var count int64
	for _, n := range m.notes {
		if n.InvoiceID == invoiceID {
			count++
		}
	}
	return count, nil
}

func (m *mockLetraRepo) List(ctx context.Context, filter letra.ListFilter) (domain.ListResult[*letra.Letra], error) {
	return domain.ListResult[*letra.Letra]{}, nil
}

func (m *mockLetraRepo) GetForUpdate(ctx context.Context, noteID id.ID) (*letra.Letra, error) {
	return m.GetByID(ctx, noteID)
}

type mockBalancer struct {
	deltas map[id.ID]types.Money
}

func newMockBalancer() *mockBalancer {
	return &mockBalancer{deltas: make(map[id.ID]types.Money)}
}

func (m *mockBalancer) AdjustBalance(ctx context.Context, accountID id.ID, delta types.Money) error {
	m.deltas[accountID] = m.deltas[accountID].Add(delta)
	return nil
}

// --- helpers ---

func newTestInvoice(total string) *invoice.Invoice {
	inv := invoice.New(invoice.KindInvoice)
	inv.Total = types.MustMoney(total)
	inv.Subtotal = inv.Total
	inv.BalanceOutstanding = inv.Total
	return inv
}

func newTestService(invoiceRepo invoice.Repository, letraRepo letra.Repository) (*Service, *mockPaymentRepo) {
	repo := newMockPaymentRepo()
	svc := NewService(repo, invoiceRepo, letraRepo, nil, &correlativo.MockGenerator{}, &mockTxManager{})
	return svc, repo
}

func newDraft(paymentType Type, total string) *Payment {
	return New(paymentType, types.MustMoney(total))
}

// --- tests ---

func TestApply_PartialThenPaid(t *testing.T) {
	ctx := context.Background()
	inv := newTestInvoice("472.00")
	svc, repo := newTestService(newMockInvoiceRepo(inv), newMockLetraRepo())

	first := newDraft(TypeInflow, "236.00")
	first.AddApplication(TargetInvoice, inv.ID, types.MustMoney("236.00"))
	if err := svc.Apply(ctx, first); err != nil {
		t.Fatalf("first payment: %v", err)
	}

	if inv.State != invoice.StatePartial {
		t.Errorf("state after first payment = %s, want partial", inv.State)
	}
	if !inv.BalanceOutstanding.Equal(types.MustMoney("236.00")) {
		t.Errorf("balance = %s, want 236.00", inv.BalanceOutstanding)
	}

	second := newDraft(TypeInflow, "236.00")
	second.AddApplication(TargetInvoice, inv.ID, types.MustMoney("236.00"))
	if err := svc.Apply(ctx, second); err != nil {
		t.Fatalf("second payment: %v", err)
	}

	if inv.State != invoice.StatePaid {
		t.Errorf("state after second payment = %s, want paid", inv.State)
	}
	if !inv.BalanceOutstanding.IsZero() {
		t.Errorf("balance = %s, want 0", inv.BalanceOutstanding)
	}
	if len(repo.created) != 2 {
		t.Errorf("created %d payments, want 2", len(repo.created))
	}
}

func TestApply_AssignsCorrelativoByDirection(t *testing.T) {
	ctx := context.Background()
	inv := newTestInvoice("100.00")
	svc, _ := newTestService(newMockInvoiceRepo(inv), newMockLetraRepo())

	inflow := newDraft(TypeInflow, "50.00")
	inflow.AddApplication(TargetInvoice, inv.ID, types.MustMoney("50.00"))
	if err := svc.Apply(ctx, inflow); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !strings.HasPrefix(inflow.Number, correlativo.PrefixPaymentIn+"-") {
		t.Errorf("inflow number = %q, want prefix %s", inflow.Number, correlativo.PrefixPaymentIn)
	}

	outflow := newDraft(TypeOutflow, "50.00")
	outflow.AddApplication(TargetInvoice, inv.ID, types.MustMoney("50.00"))
	if err := svc.Apply(ctx, outflow); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !strings.HasPrefix(outflow.Number, correlativo.PrefixPaymentOut+"-") {
		t.Errorf("outflow number = %q, want prefix %s", outflow.Number, correlativo.PrefixPaymentOut)
	}
}

func TestApply_OverApplicationRejected(t *testing.T) {
	ctx := context.Background()
	inv := newTestInvoice("30.00")
	svc, _ := newTestService(newMockInvoiceRepo(inv), newMockLetraRepo())

	draft := newDraft(TypeInflow, "50.00")
	draft.AddApplication(TargetInvoice, inv.ID, types.MustMoney("50.00"))

	err := svc.Apply(ctx, draft)
	if err == nil {
		t.Fatal("expected over-application error")
	}
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeOverApplication {
		t.Errorf("got %v, want code %s", err, apperror.CodeOverApplication)
	}

	// Target untouched after rejection.
	if inv.State != invoice.StatePending {
		t.Errorf("state = %s, want pending", inv.State)
	}
	if !inv.BalanceOutstanding.Equal(types.MustMoney("30.00")) {
		t.Errorf("balance = %s, want 30.00", inv.BalanceOutstanding)
	}
}

func TestApply_ApplicationsExceedTotalRejectedBeforeWrite(t *testing.T) {
	ctx := context.Background()
	inv := newTestInvoice("500.00")
	svc, repo := newTestService(newMockInvoiceRepo(inv), newMockLetraRepo())

	draft := newDraft(TypeInflow, "100.00")
	draft.AddApplication(TargetInvoice, inv.ID, types.MustMoney("80.00"))
	draft.AddApplication(TargetInvoice, inv.ID, types.MustMoney("40.00"))

	if err := svc.Apply(ctx, draft); err == nil {
		t.Fatal("expected validation error for applications exceeding total")
	}
	if len(repo.created) != 0 {
		t.Errorf("payment was persisted despite failed validation")
	}
	if !inv.BalanceOutstanding.Equal(types.MustMoney("500.00")) {
		t.Errorf("balance = %s, want 500.00", inv.BalanceOutstanding)
	}
}

func TestApply_UnappliedRemainderAllowed(t *testing.T) {
	ctx := context.Background()
	inv := newTestInvoice("100.00")
	svc, _ := newTestService(newMockInvoiceRepo(inv), newMockLetraRepo())

	// Advance payment: 100 received, only 60 allocated.
	draft := newDraft(TypeInflow, "100.00")
	draft.AddApplication(TargetInvoice, inv.ID, types.MustMoney("60.00"))

	if err := svc.Apply(ctx, draft); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !draft.AppliedAmount.Equal(types.MustMoney("60.00")) {
		t.Errorf("applied = %s, want 60.00", draft.AppliedAmount)
	}
	if !draft.UnappliedAmount().Equal(types.MustMoney("40.00")) {
		t.Errorf("unapplied = %s, want 40.00", draft.UnappliedAmount())
	}
}

func TestApply_LetraTarget(t *testing.T) {
	ctx := context.Background()
	note := &letra.Letra{
		State:              letra.StatePending,
		Amount:             types.MustMoney("118.00"),
		BalanceOutstanding: types.MustMoney("118.00"),
	}
	note.ID = id.New()
	svc, _ := newTestService(newMockInvoiceRepo(), newMockLetraRepo(note))

	draft := newDraft(TypeInflow, "118.00")
	draft.AddApplication(TargetLetra, note.ID, types.MustMoney("118.00"))

	if err := svc.Apply(ctx, draft); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if note.State != letra.StatePaid {
		t.Errorf("note state = %s, want paid", note.State)
	}
}

func TestApply_MissingTargetRejected(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(newMockInvoiceRepo(), newMockLetraRepo())

	draft := newDraft(TypeInflow, "100.00")
	draft.AddApplication(TargetInvoice, id.New(), types.MustMoney("100.00"))

	err := svc.Apply(ctx, draft)
	if !apperror.IsNotFound(err) {
		t.Errorf("got %v, want not-found", err)
	}
	if len(repo.apps) != 0 {
		t.Error("applications saved despite missing target")
	}
}

func TestApply_AdjustsAccountBalance(t *testing.T) {
	ctx := context.Background()
	inv := newTestInvoice("100.00")
	accountID := id.New()
	balancer := newMockBalancer()

	repo := newMockPaymentRepo()
	svc := NewService(repo, newMockInvoiceRepo(inv), newMockLetraRepo(), balancer,
		&correlativo.MockGenerator{}, &mockTxManager{})

	draft := newDraft(TypeOutflow, "100.00")
	draft.AccountID = &accountID
	draft.AddApplication(TargetInvoice, inv.ID, types.MustMoney("100.00"))

	if err := svc.Apply(ctx, draft); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !balancer.deltas[accountID].Equal(types.MustMoney("-100.00")) {
		t.Errorf("account delta = %s, want -100.00", balancer.deltas[accountID])
	}
}

func TestVoid_RestoresTargets(t *testing.T) {
	ctx := context.Background()
	inv := newTestInvoice("472.00")
	svc, _ := newTestService(newMockInvoiceRepo(inv), newMockLetraRepo())

	draft := newDraft(TypeInflow, "236.00")
	draft.AddApplication(TargetInvoice, inv.ID, types.MustMoney("236.00"))
	if err := svc.Apply(ctx, draft); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if err := svc.Void(ctx, draft.ID); err != nil {
		t.Fatalf("Void: %v", err)
	}

	if draft.State != StateVoided {
		t.Errorf("payment state = %s, want voided", draft.State)
	}
	if inv.State != invoice.StatePending {
		t.Errorf("invoice state = %s, want pending", inv.State)
	}
	if !inv.BalanceOutstanding.Equal(types.MustMoney("472.00")) {
		t.Errorf("balance = %s, want 472.00", inv.BalanceOutstanding)
	}

	// Voiding twice is a no-op.
	if err := svc.Void(ctx, draft.ID); err != nil {
		t.Errorf("second Void: %v", err)
	}
}

func TestVoid_ReconciledPaymentRejected(t *testing.T) {
	ctx := context.Background()
	inv := newTestInvoice("100.00")
	svc, _ := newTestService(newMockInvoiceRepo(inv), newMockLetraRepo())

	draft := newDraft(TypeInflow, "100.00")
	draft.AddApplication(TargetInvoice, inv.ID, types.MustMoney("100.00"))
	if err := svc.Apply(ctx, draft); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	draft.Reconciled = true

	err := svc.Void(ctx, draft.ID)
	if err == nil {
		t.Fatal("expected error voiding a reconciled payment")
	}
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeAlreadyReconciled {
		t.Errorf("got %v, want code %s", err, apperror.CodeAlreadyReconciled)
	}
}

func TestApplyThenVoid_UpdatesMatchStoredVersions(t *testing.T) {
	ctx := context.Background()
	inv := newTestInvoice("100.00")
	svc, _ := newTestService(newMockInvoiceRepo(inv), newMockLetraRepo())

	draft := newDraft(TypeInflow, "60.00")
	draft.AddApplication(TargetInvoice, inv.ID, types.MustMoney("60.00"))
	if err := svc.Apply(ctx, draft); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := svc.Void(ctx, draft.ID); err != nil {
		t.Fatalf("Void: %v", err)
	}

	// The invoice row was written twice (allocation, reversal), the
	// payment header once (void); each write matched the stored version.
	if inv.Version != 3 {
		t.Errorf("invoice version = %d, want 3", inv.Version)
	}
	if draft.Version != 2 {
		t.Errorf("payment version = %d, want 2", draft.Version)
	}
}

func TestApply_BalanceDriftDetected(t *testing.T) {
	ctx := context.Background()
	inv := newTestInvoice("100.00")
	svc, repo := newTestService(newMockInvoiceRepo(inv), newMockLetraRepo())

	// Applications on record say 30 was allocated, but the stored
	// balance was never decremented.
	phantom := New(TypeInflow, types.MustMoney("30.00"))
	phantom.AddApplication(TargetInvoice, inv.ID, types.MustMoney("30.00"))
	repo.created = append(repo.created, phantom)
	repo.apps[phantom.ID] = phantom.Applications

	draft := newDraft(TypeInflow, "50.00")
	draft.AddApplication(TargetInvoice, inv.ID, types.MustMoney("50.00"))

	err := svc.Apply(ctx, draft)
	if err == nil {
		t.Fatal("expected error for balance inconsistent with applications")
	}
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeInternal {
		t.Errorf("got %v, want code %s", err, apperror.CodeInternal)
	}
}

func TestValidate_Draft(t *testing.T) {
	ctx := context.Background()

	draft := New("sideways", types.MustMoney("100.00"))
	if err := draft.Validate(ctx); err == nil {
		t.Error("expected error for unknown payment type")
	}

	draft = New(TypeInflow, types.Zero())
	if err := draft.Validate(ctx); err == nil {
		t.Error("expected error for zero total")
	}

	draft = New(TypeInflow, types.MustMoney("100.00"))
	draft.AddApplication(TargetInvoice, id.New(), types.MustMoney("-5.00"))
	if err := draft.Validate(ctx); err == nil {
		t.Error("expected error for negative application amount")
	}

	draft = New(TypeInflow, types.MustMoney("100.00"))
	draft.AddApplication("warehouse", id.New(), types.MustMoney("10.00"))
	if err := draft.Validate(ctx); err == nil {
		t.Error("expected error for unknown target kind")
	}

	draft = New(TypeInflow, types.MustMoney("100.00"))
	targetID := id.New()
	draft.AddApplication(TargetInvoice, targetID, types.MustMoney("40.00"))
	draft.AddApplication(TargetInvoice, targetID, types.MustMoney("40.00"))
	if err := draft.Validate(ctx); err == nil {
		t.Error("expected error for duplicate application target")
	}
}
