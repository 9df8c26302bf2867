package document_repo

import (
	"strings"
	"testing"

	"tesoreria/internal/core/id"
	"tesoreria/internal/core/types"
	"tesoreria/internal/domain/documents/invoice"
)

// The optimistic-lock predicate must bind the version the row was
// loaded with; the stored version advances server-side. A caller that
// bumps the struct version before Update would never match its row and
// every mutation would fail as a concurrent modification.
func TestBuildUpdate_VersionPredicateIsLoadedVersion(t *testing.T) {
	repo := NewInvoiceRepo()
	tenantID := id.New()

	doc := invoice.New(invoice.KindInvoice)
	doc.Version = 7
	doc.Total = types.MustMoney("118.00")
	doc.BalanceOutstanding = types.Zero()
	doc.State = invoice.StatePaid

	sql, args, entityID, err := repo.buildUpdate(tenantID, doc)
	if err != nil {
		t.Fatalf("buildUpdate: %v", err)
	}
	if entityID != any(doc.ID) {
		t.Errorf("entity id = %v, want %v", entityID, doc.ID)
	}

	if !strings.Contains(sql, "version = version + 1") {
		t.Errorf("version must advance server-side, got %q", sql)
	}
	if got := strings.Count(sql, "version = $"); got != 1 {
		t.Errorf("version placeholders = %d, want exactly 1 (the WHERE predicate), sql %q", got, sql)
	}

	// Predicates are appended as id, tenant_id, version; the version
	// bind is the last argument and must be the loaded value.
	if got := args[len(args)-1]; got != any(7) {
		t.Errorf("version predicate arg = %v, want 7", got)
	}
	if got := args[len(args)-2]; got != any(tenantID) {
		t.Errorf("tenant predicate arg = %v, want %v", got, tenantID)
	}
}

func TestBuildUpdate_SkipsImmutableColumns(t *testing.T) {
	repo := NewInvoiceRepo()

	doc := invoice.New(invoice.KindInvoice)
	sql, _, _, err := repo.buildUpdate(id.New(), doc)
	if err != nil {
		t.Fatalf("buildUpdate: %v", err)
	}

	setClause := strings.SplitN(sql, " WHERE ", 2)[0]
	for _, col := range []string{"tenant_id = $", "created_at = $", "created_by = $"} {
		if strings.Contains(setClause, col) {
			t.Errorf("SET clause must not touch %q, sql %q", col, sql)
		}
	}
	if strings.Contains(sql, "updated_at = $") {
		t.Errorf("updated_at must be set to NOW() server-side, sql %q", sql)
	}
}
