package invoice

import (
	"context"
	"testing"

	"tesoreria/internal/core/apperror"
	"tesoreria/internal/core/types"
)

func newTestInvoice(total string) *Invoice {
	inv := New(KindInvoice)
	inv.Total = types.MustMoney(total)
	inv.Subtotal = inv.Total
	inv.BalanceOutstanding = inv.Total
	return inv
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from    State
		to      State
		allowed bool
	}{
		{StatePending, StatePartial, true},
		{StatePending, StatePaid, true},
		{StatePending, StateExchanged, true},
		{StatePending, StateVoided, true},
		{StatePartial, StatePaid, true},
		{StatePartial, StateExchanged, true},
		{StatePartial, StatePending, false},
		{StatePartial, StateVoided, false},
		{StatePaid, StatePartial, false},
		{StatePaid, StateVoided, false},
		{StateExchanged, StatePending, false},
		{StateExchanged, StatePaid, false},
		{StateVoided, StatePending, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestTransitionTo_Rejected(t *testing.T) {
	inv := newTestInvoice("100.00")
	inv.State = StatePaid

	err := inv.TransitionTo(StatePartial)
	if err == nil {
		t.Fatal("expected invalid transition error")
	}
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeInvalidStateTransition {
		t.Errorf("got %v, want code %s", err, apperror.CodeInvalidStateTransition)
	}
}

func TestApplyAmount_PartialThenPaid(t *testing.T) {
	inv := newTestInvoice("472.00")

	if err := inv.ApplyAmount(types.MustMoney("236.00")); err != nil {
		t.Fatalf("first application: %v", err)
	}
	if inv.State != StatePartial {
		t.Errorf("state after first application = %s, want %s", inv.State, StatePartial)
	}
	if !inv.BalanceOutstanding.Equal(types.MustMoney("236.00")) {
		t.Errorf("balance = %s, want 236.00", inv.BalanceOutstanding)
	}

	if err := inv.ApplyAmount(types.MustMoney("236.00")); err != nil {
		t.Fatalf("second application: %v", err)
	}
	if inv.State != StatePaid {
		t.Errorf("state after second application = %s, want %s", inv.State, StatePaid)
	}
	if !inv.BalanceOutstanding.IsZero() {
		t.Errorf("balance = %s, want 0", inv.BalanceOutstanding)
	}
}

func TestApplyAmount_OverApplicationRejected(t *testing.T) {
	inv := newTestInvoice("30.00")

	err := inv.ApplyAmount(types.MustMoney("50.00"))
	if err == nil {
		t.Fatal("expected over-application error")
	}
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeOverApplication {
		t.Errorf("got %v, want code %s", err, apperror.CodeOverApplication)
	}

	// Target must be unchanged after rejection.
	if inv.State != StatePending {
		t.Errorf("state = %s, want %s", inv.State, StatePending)
	}
	if !inv.BalanceOutstanding.Equal(types.MustMoney("30.00")) {
		t.Errorf("balance = %s, want 30.00", inv.BalanceOutstanding)
	}
}

func TestApplyAmount_SettlesWithinTolerance(t *testing.T) {
	inv := newTestInvoice("100.00")

	// 99.995 leaves 0.005 outstanding, within the 0.01 tolerance.
	if err := inv.ApplyAmount(types.MustMoney("99.995")); err != nil {
		t.Fatalf("ApplyAmount: %v", err)
	}
	if inv.State != StatePaid {
		t.Errorf("state = %s, want %s", inv.State, StatePaid)
	}
	if !inv.BalanceOutstanding.IsZero() {
		t.Errorf("settled balance = %s, want 0", inv.BalanceOutstanding)
	}
}

func TestApplyAmount_BlockedStates(t *testing.T) {
	tests := []struct {
		state    State
		wantCode string
	}{
		{StateExchanged, apperror.CodeDocumentExchanged},
		{StateVoided, apperror.CodeDocumentVoided},
		{StatePaid, apperror.CodeOverApplication},
	}

	for _, tt := range tests {
		inv := newTestInvoice("100.00")
		inv.State = tt.state

		err := inv.ApplyAmount(types.MustMoney("10.00"))
		if err == nil {
			t.Errorf("state %s: expected error", tt.state)
			continue
		}
		appErr, ok := apperror.AsAppError(err)
		if !ok || appErr.Code != tt.wantCode {
			t.Errorf("state %s: got %v, want code %s", tt.state, err, tt.wantCode)
		}
	}
}

func TestApplyAmount_NonPositiveRejected(t *testing.T) {
	inv := newTestInvoice("100.00")

	for _, amount := range []string{"0.00", "-10.00"} {
		if err := inv.ApplyAmount(types.MustMoney(amount)); err == nil {
			t.Errorf("amount %s: expected validation error", amount)
		}
	}
}

func TestCanVoid(t *testing.T) {
	inv := newTestInvoice("100.00")
	if err := inv.CanVoid(); err != nil {
		t.Errorf("pending invoice without payments should be voidable: %v", err)
	}

	if err := inv.ApplyAmount(types.MustMoney("40.00")); err != nil {
		t.Fatalf("ApplyAmount: %v", err)
	}
	if err := inv.CanVoid(); err == nil {
		t.Error("invoice with applied payments must not be voidable")
	}

	exchanged := newTestInvoice("100.00")
	exchanged.State = StateExchanged
	if err := exchanged.CanVoid(); err == nil {
		t.Error("exchanged invoice must not be voidable")
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	inv := New(KindInvoice)
	if err := inv.Validate(ctx); err == nil {
		t.Error("expected validation error for invoice without lines")
	}

	inv.AddLine("consulting", types.MustMoney("100.00"), true)
	if err := inv.Validate(ctx); err != nil {
		t.Errorf("valid invoice rejected: %v", err)
	}

	inv.AddLine("bad", types.MustMoney("-1.00"), false)
	if err := inv.Validate(ctx); err == nil {
		t.Error("expected validation error for negative line amount")
	}
}
