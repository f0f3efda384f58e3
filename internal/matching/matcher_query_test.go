package matching

import (
	"fmt"
	"testing"
	"time"

	"github.com/Sweily-fr/newbi-api-sub001/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := db.AutoMigrate(&models.BankTransaction{}, &models.ExpenseRecord{}); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

var externalIDSeq int

func seedTx(t *testing.T, db *gorm.DB, tx models.BankTransaction) models.BankTransaction {
	t.Helper()
	if tx.WorkspaceID == 0 {
		tx.WorkspaceID = 1
	}
	if tx.Provider == "" {
		tx.Provider = "bridge"
	}
	if tx.ExternalID == "" {
		externalIDSeq++
		tx.ExternalID = fmt.Sprintf("ext-%d", externalIDSeq)
	}
	if tx.Currency == "" {
		tx.Currency = "EUR"
	}
	if tx.Status == "" {
		tx.Status = models.StatusUnmatched
	}
	if err := db.Create(&tx).Error; err != nil {
		t.Fatalf("seeding transaction: %v", err)
	}
	return tx
}

// An amount outside the tolerance window is filtered by the query on
// every rung of the ladder, so it never appears in the results no
// matter how well its date and description would have scored.
func TestFindMatchesAmountFilteredAtQueryLevel(t *testing.T) {
	db := newTestDB(t)
	m := NewMatcher(db, DefaultConfig())

	target := MatchTarget{Amount: 49.99, Date: date(2024, time.March, 15), Vendor: "Bouygues Telecom"}

	// Same date, vendor in the description, amount 10 euros off.
	seedTx(t, db, models.BankTransaction{
		Amount:      -60.00,
		ProcessedAt: date(2024, time.March, 15),
		Description: "PRLV BOUYGUES TELECOM",
	})

	result, err := m.FindMatches(1, target)
	if err != nil {
		t.Fatalf("FindMatches() error = %v", err)
	}
	if len(result.AllMatches) != 0 {
		t.Errorf("AllMatches = %v, out-of-tolerance row must not be returned", result.AllMatches)
	}
	if result.BestMatch != nil {
		t.Errorf("BestMatch = %+v, want nil", result.BestMatch)
	}
}

func TestFindMatchesDirectWindowIsNotBroadened(t *testing.T) {
	db := newTestDB(t)
	m := NewMatcher(db, DefaultConfig())

	seedTx(t, db, models.BankTransaction{
		Amount:      -49.99,
		ProcessedAt: date(2024, time.March, 16),
		Description: "PRLV BOUYGUES TELECOM",
	})
	// Filler inside the window so the vendor rung has no reason to run.
	seedTx(t, db, models.BankTransaction{
		Amount:      -49.80,
		ProcessedAt: date(2024, time.March, 14),
		Description: "CB DIVERS",
	})
	seedTx(t, db, models.BankTransaction{
		Amount:      -50.20,
		ProcessedAt: date(2024, time.March, 15),
		Description: "CB AUTRE",
	})

	result, err := m.FindMatches(1, MatchTarget{Amount: 49.99, Date: date(2024, time.March, 15), Vendor: "Bouygues Telecom"})
	if err != nil {
		t.Fatalf("FindMatches() error = %v", err)
	}
	if result.SearchCriteria.Broadened {
		t.Error("Broadened = true, want false for a direct-window hit")
	}
	if len(result.AllMatches) != 3 {
		t.Fatalf("AllMatches = %d, want 3", len(result.AllMatches))
	}
	if result.BestMatch == nil || result.BestMatch.Description != "PRLV BOUYGUES TELECOM" {
		t.Errorf("BestMatch = %+v, want the Bouygues transaction", result.BestMatch)
	}
}

// With nothing in the date window, the vendor rung widens the search by
// description keyword. A candidate only reachable by the later 30-day
// rung must not appear once the vendor rung has produced one.
func TestFindMatchesVendorRungBeforeWideWindow(t *testing.T) {
	db := newTestDB(t)
	m := NewMatcher(db, DefaultConfig())

	// 15 days out: outside the direct window, found by description.
	vendorHit := seedTx(t, db, models.BankTransaction{
		Amount:      -49.99,
		ProcessedAt: date(2024, time.March, 30),
		Description: "PRLV BOUYGUES TELECOM",
	})
	// 20 days out, no vendor word: only the 30-day rung could find it.
	seedTx(t, db, models.BankTransaction{
		Amount:      -49.99,
		ProcessedAt: date(2024, time.April, 4),
		Description: "CB DIVERS",
	})

	result, err := m.FindMatches(1, MatchTarget{Amount: 49.99, Date: date(2024, time.March, 15), Vendor: "Bouygues Telecom"})
	if err != nil {
		t.Fatalf("FindMatches() error = %v", err)
	}
	if !result.SearchCriteria.Broadened {
		t.Error("Broadened = false, want true for a vendor-rung hit")
	}
	if len(result.AllMatches) != 1 {
		t.Fatalf("AllMatches = %d, want only the vendor-rung hit", len(result.AllMatches))
	}
	if result.AllMatches[0].ID != vendorHit.ID {
		t.Errorf("AllMatches[0].ID = %d, want %d", result.AllMatches[0].ID, vendorHit.ID)
	}
}

func TestFindMatchesFallsBackToThirtyDayWindow(t *testing.T) {
	db := newTestDB(t)
	m := NewMatcher(db, DefaultConfig())

	inWide := seedTx(t, db, models.BankTransaction{
		Amount:      -49.99,
		ProcessedAt: date(2024, time.April, 4),
		Description: "CB DIVERS",
	})
	// 40 days out: beyond even the wide window.
	seedTx(t, db, models.BankTransaction{
		Amount:      -49.99,
		ProcessedAt: date(2024, time.April, 24),
		Description: "CB LOINTAIN",
	})

	// No vendor, so the keyword rung is skipped entirely.
	result, err := m.FindMatches(1, MatchTarget{Amount: 49.99, Date: date(2024, time.March, 15)})
	if err != nil {
		t.Fatalf("FindMatches() error = %v", err)
	}
	if !result.SearchCriteria.Broadened {
		t.Error("Broadened = false, want true for a wide-window hit")
	}
	if len(result.AllMatches) != 1 {
		t.Fatalf("AllMatches = %d, want 1", len(result.AllMatches))
	}
	if result.AllMatches[0].ID != inWide.ID {
		t.Errorf("AllMatches[0].ID = %d, want %d", result.AllMatches[0].ID, inWide.ID)
	}
}

func TestFindMatchesSkipsReconciledRows(t *testing.T) {
	db := newTestDB(t)
	m := NewMatcher(db, DefaultConfig())

	when := date(2024, time.March, 15)
	eligible := seedTx(t, db, models.BankTransaction{
		Amount: -49.99, ProcessedAt: when, Description: "CB ELIGIBLE",
	})
	seedTx(t, db, models.BankTransaction{
		Amount: -49.99, ProcessedAt: when, Description: "CB MATCHED", Status: models.StatusMatched,
	})
	linkedID := uint(999)
	seedTx(t, db, models.BankTransaction{
		Amount: -49.99, ProcessedAt: when, Description: "CB LINKED", LinkedExpenseID: &linkedID,
	})
	seedTx(t, db, models.BankTransaction{
		Amount: -49.99, ProcessedAt: when, Description: "CB RECU", ReceiptFileURL: "/static/uploads/receipts/x.pdf",
	})
	seedTx(t, db, models.BankTransaction{
		Amount: 49.99, ProcessedAt: when, Description: "VIR CREDIT",
	})
	seedTx(t, db, models.BankTransaction{
		WorkspaceID: 2, Amount: -49.99, ProcessedAt: when, Description: "CB AUTRE WORKSPACE",
	})

	result, err := m.FindMatches(1, MatchTarget{Amount: 49.99, Date: when})
	if err != nil {
		t.Fatalf("FindMatches() error = %v", err)
	}
	if len(result.AllMatches) != 1 {
		t.Fatalf("AllMatches = %d, want only the eligible row", len(result.AllMatches))
	}
	if result.AllMatches[0].ID != eligible.ID {
		t.Errorf("AllMatches[0].ID = %d, want %d", result.AllMatches[0].ID, eligible.ID)
	}
}

func TestFindMatchesRejectsNonPositiveAmount(t *testing.T) {
	m := NewMatcher(newTestDB(t), DefaultConfig())
	for _, amount := range []float64{0, -5} {
		if _, err := m.FindMatches(1, MatchTarget{Amount: amount, Date: date(2024, time.March, 15)}); err == nil {
			t.Errorf("FindMatches(amount=%v) expected an error", amount)
		}
	}
}
