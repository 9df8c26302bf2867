package reconciliation

import (
	"testing"
	"time"

	"tesoreria/internal/core/id"
	"tesoreria/internal/core/types"
	"tesoreria/internal/domain/payments"
)

func day(n int) time.Time {
	return time.Date(2026, 4, n, 0, 0, 0, 0, time.UTC)
}

func movement(amount string, date time.Time) *BankRawMovement {
	return NewMovement(id.New(), types.MustMoney(amount), date, "stmt line")
}

func payment(paymentType payments.Type, amount string, date time.Time) *payments.Payment {
	p := payments.New(paymentType, types.MustMoney(amount))
	p.Date = date
	return p
}

func TestMatch_PairsByAbsoluteAmount(t *testing.T) {
	m1 := movement("-250.00", day(1))
	m2 := movement("100.00", day(2))
	p1 := payment(payments.TypeOutflow, "250.00", day(1))
	p2 := payment(payments.TypeInflow, "100.00", day(2))

	result := Match([]*BankRawMovement{m1, m2}, []*payments.Payment{p1, p2})

	if len(result.Pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(result.Pairs))
	}
	if result.Pairs[0].Payment != p1 || result.Pairs[1].Payment != p2 {
		t.Error("pairs matched to wrong payments")
	}
	if len(result.UnmatchedMovements) != 0 || len(result.UnmatchedPayments) != 0 {
		t.Error("expected no unmatched records")
	}
}

func TestMatch_TieBrokenByEarliestDate(t *testing.T) {
	// Two payments with the same amount; the earlier movement must take
	// the earlier payment.
	mEarly := movement("500.00", day(3))
	mLate := movement("500.00", day(8))
	pEarly := payment(payments.TypeInflow, "500.00", day(2))
	pLate := payment(payments.TypeInflow, "500.00", day(7))

	// Input order deliberately scrambled.
	result := Match([]*BankRawMovement{mLate, mEarly}, []*payments.Payment{pLate, pEarly})

	if len(result.Pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(result.Pairs))
	}
	if result.Pairs[0].Movement != mEarly || result.Pairs[0].Payment != pEarly {
		t.Error("earliest movement did not take earliest payment")
	}
	if result.Pairs[1].Movement != mLate || result.Pairs[1].Payment != pLate {
		t.Error("later movement did not take later payment")
	}
}

func TestMatch_Reproducible(t *testing.T) {
	movements := []*BankRawMovement{
		movement("75.00", day(5)),
		movement("75.00", day(5)),
	}
	pmts := []*payments.Payment{
		payment(payments.TypeInflow, "75.00", day(5)),
		payment(payments.TypeInflow, "75.00", day(5)),
	}

	first := Match(movements, pmts)
	for i := 0; i < 10; i++ {
		again := Match(movements, pmts)
		if len(again.Pairs) != len(first.Pairs) {
			t.Fatalf("run %d: pair count changed", i)
		}
		for j := range first.Pairs {
			if again.Pairs[j].Movement != first.Pairs[j].Movement ||
				again.Pairs[j].Payment != first.Pairs[j].Payment {
				t.Fatalf("run %d: pairing not reproducible", i)
			}
		}
	}
}

func TestMatch_SkipsFlaggedRecords(t *testing.T) {
	m := movement("90.00", day(1))
	m.Reconciled = true
	p := payment(payments.TypeInflow, "90.00", day(1))

	result := Match([]*BankRawMovement{m}, []*payments.Payment{p})

	if len(result.Pairs) != 0 {
		t.Error("reconciled movement must not be rematched")
	}
	if len(result.UnmatchedPayments) != 1 {
		t.Error("payment should remain unmatched")
	}
}

func TestMatch_SkipsVoidedPayments(t *testing.T) {
	m := movement("90.00", day(1))
	p := payment(payments.TypeInflow, "90.00", day(1))
	p.State = payments.StateVoided

	result := Match([]*BankRawMovement{m}, []*payments.Payment{p})

	if len(result.Pairs) != 0 {
		t.Error("voided payment must not be matched")
	}
	if len(result.UnmatchedMovements) != 1 {
		t.Error("movement should remain unmatched")
	}
}

func TestDiferencia(t *testing.T) {
	// Unmatched: one movement of -40.00 and one inflow payment of 25.00.
	m := movement("-40.00", day(1))
	p := payment(payments.TypeInflow, "25.00", day(2))

	result := Match([]*BankRawMovement{m}, []*payments.Payment{p})
	if len(result.Pairs) != 0 {
		t.Fatal("amounts differ, nothing should match")
	}

	// -40.00 - 25.00 = -65.00
	if got := result.Diferencia(); !got.Equal(types.MustMoney("-65.00")) {
		t.Errorf("diferencia = %s, want -65.00", got)
	}
}

func TestDiferencia_ZeroWhenFullyMatched(t *testing.T) {
	m := movement("120.00", day(1))
	p := payment(payments.TypeInflow, "120.00", day(1))

	result := Match([]*BankRawMovement{m}, []*payments.Payment{p})
	if got := result.Diferencia(); !got.IsZero() {
		t.Errorf("diferencia = %s, want 0", got)
	}
}
