package reconcile

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Sweily-fr/newbi-api-sub001/internal/matching"
	"github.com/Sweily-fr/newbi-api-sub001/models"
	"gorm.io/gorm"
)

// Auto-reconcile outcomes.
const (
	ActionLinked      = "linked"
	ActionAutoMatched = "auto-matched"
	ActionCreated     = "created"
)

// AutoReconcileOutcome is the result of one auto-reconcile call.
type AutoReconcileOutcome struct {
	Action      string                  `json:"action"`
	Transaction *models.BankTransaction `json:"transaction,omitempty"`
	Expense     *models.ExpenseRecord   `json:"expense,omitempty"`
	Score       float64                 `json:"score,omitempty"`
	Confidence  string                  `json:"confidence,omitempty"`
}

// Linker materializes a chosen match (or its absence) into persistent
// state. Link and Unlink are two-sided updates run inside one database
// transaction so a partial write cannot survive.
type Linker struct {
	db      *gorm.DB
	matcher *matching.Matcher
}

func NewLinker(db *gorm.DB, matcher *matching.Matcher) *Linker {
	return &Linker{db: db, matcher: matcher}
}

// Link attaches an expense record to a bank transaction. The expense
// side and the transaction side are updated atomically; an expense
// already claimed by another transaction is rejected.
func (l *Linker) Link(workspaceID, transactionID, expenseID uint) (*models.BankTransaction, error) {
	var transaction models.BankTransaction

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workspace_id = ?", workspaceID).First(&transaction, transactionID).Error; err != nil {
			return fmt.Errorf("transaction not found: %w", err)
		}
		if transaction.LinkedExpenseID != nil {
			return fmt.Errorf("transaction %d is already linked to expense %d", transactionID, *transaction.LinkedExpenseID)
		}

		var expense models.ExpenseRecord
		if err := tx.Where("workspace_id = ?", workspaceID).First(&expense, expenseID).Error; err != nil {
			return fmt.Errorf("expense not found: %w", err)
		}
		if expense.LinkedTransactionID != nil && *expense.LinkedTransactionID != transactionID {
			return fmt.Errorf("expense %d is already linked to transaction %d", expenseID, *expense.LinkedTransactionID)
		}

		now := time.Now().UTC()
		transaction.LinkedExpenseID = &expenseID
		transaction.Status = models.StatusMatched
		transaction.MatchedAt = &now
		if err := tx.Save(&transaction).Error; err != nil {
			return fmt.Errorf("transaction side of link failed: %w", err)
		}

		expense.LinkedTransactionID = &transactionID
		expense.Reconciled = true
		if err := tx.Save(&expense).Error; err != nil {
			return fmt.Errorf("expense side of link failed (transaction side rolled back): %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Transaction linked to expense", "transaction_id", transactionID, "expense_id", expenseID)
	return &transaction, nil
}

// Unlink clears both sides symmetrically. An expense that was deleted
// in the meantime is tolerated; the transaction side still resets.
func (l *Linker) Unlink(workspaceID, transactionID uint) (*models.BankTransaction, error) {
	var transaction models.BankTransaction

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workspace_id = ?", workspaceID).First(&transaction, transactionID).Error; err != nil {
			return fmt.Errorf("transaction not found: %w", err)
		}

		expenseID := transaction.LinkedExpenseID
		transaction.LinkedExpenseID = nil
		transaction.Status = models.StatusUnmatched
		transaction.MatchedAt = nil
		transaction.ReceiptFileURL = ""
		if err := tx.Save(&transaction).Error; err != nil {
			return fmt.Errorf("transaction side of unlink failed: %w", err)
		}

		if expenseID != nil {
			result := tx.Model(&models.ExpenseRecord{}).
				Where("id = ? AND workspace_id = ?", *expenseID, workspaceID).
				Updates(map[string]interface{}{"linked_transaction_id": nil, "reconciled": false})
			if result.Error != nil {
				return fmt.Errorf("expense side of unlink failed: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				slog.Warn("Unlink: expense side already gone", "transaction_id", transactionID, "expense_id", *expenseID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Transaction unlinked", "transaction_id", transactionID)
	return &transaction, nil
}

// AttachReceipt marks a specific transaction as matched with the
// uploaded receipt file; no expense record is created. A transaction
// that is already matched is rejected so a stale id cannot overwrite
// an earlier reconciliation.
func (l *Linker) AttachReceipt(workspaceID, transactionID uint, fileURL string) (*models.BankTransaction, error) {
	var transaction models.BankTransaction
	if err := l.db.Where("workspace_id = ?", workspaceID).First(&transaction, transactionID).Error; err != nil {
		return nil, fmt.Errorf("transaction not found: %w", err)
	}
	if transaction.Status == models.StatusMatched || transaction.LinkedExpenseID != nil || transaction.ReceiptFileURL != "" {
		return nil, fmt.Errorf("transaction %d is already matched", transactionID)
	}

	now := time.Now().UTC()
	transaction.ReceiptFileURL = fileURL
	transaction.Status = models.StatusMatched
	transaction.MatchedAt = &now
	if err := l.db.Save(&transaction).Error; err != nil {
		return nil, err
	}

	slog.Info("Receipt attached to transaction", "transaction_id", transactionID)
	return &transaction, nil
}

// AutoReconcile runs the matcher over the extracted receipt fields.
// A qualifying match gets the receipt attached; otherwise a new
// unlinked expense record is created so the document is never lost.
func (l *Linker) AutoReconcile(workspaceID uint, target matching.MatchTarget, fileURL, category, documentNumber string, confidence float64) (*AutoReconcileOutcome, error) {
	result, err := l.matcher.FindMatches(workspaceID, target)
	if err != nil {
		return nil, err
	}

	if result.BestMatch != nil {
		transaction, err := l.AttachReceipt(workspaceID, result.BestMatch.ID, fileURL)
		if err != nil {
			return nil, err
		}
		if category != "" && transaction.Category == "" {
			if err := l.db.Model(transaction).Update("category", category).Error; err != nil {
				slog.Warn("Failed to set category on matched transaction", "transaction_id", transaction.ID, "error", err)
			}
		}
		return &AutoReconcileOutcome{
			Action:      ActionAutoMatched,
			Transaction: transaction,
			Score:       result.BestMatch.Score,
			Confidence:  result.BestMatch.Confidence,
		}, nil
	}

	expenseDate := target.Date
	expense := models.ExpenseRecord{
		WorkspaceID:    workspaceID,
		Vendor:         target.Vendor,
		Amount:         target.Amount,
		Currency:       "EUR",
		Category:       category,
		ExpenseDate:    &expenseDate,
		DocumentNumber: documentNumber,
		Files:          models.ExpenseFilePaths{fileURL},
		Source:         models.ExpenseSourceAuto,
		OcrConfidence:  confidence,
	}
	if err := l.db.Create(&expense).Error; err != nil {
		return nil, fmt.Errorf("failed to create fallback expense: %w", err)
	}

	slog.Info("No qualifying match, created expense record", "workspace_id", workspaceID, "expense_id", expense.ID)
	return &AutoReconcileOutcome{Action: ActionCreated, Expense: &expense}, nil
}
