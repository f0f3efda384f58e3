package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Sweily-fr/newbi-api-sub001/config"
	"github.com/Sweily-fr/newbi-api-sub001/internal/extraction"
	"github.com/Sweily-fr/newbi-api-sub001/internal/matching"
	"github.com/Sweily-fr/newbi-api-sub001/internal/ocr"
	"github.com/Sweily-fr/newbi-api-sub001/internal/reconcile"
	"github.com/Sweily-fr/newbi-api-sub001/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListTransactionsHandler returns the workspace's bank transactions,
// paginated, newest first.
func ListTransactionsHandler(c *gin.Context) {
	query := config.DB.Model(&models.BankTransaction{}).Where("workspace_id = ?", workspaceID(c))

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transactions"})
		return
	}

	var transactions []models.BankTransaction
	if err := query.Scopes(Paginate(c)).Order("processed_at DESC").Find(&transactions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
		return
	}
	if transactions == nil {
		transactions = make([]models.BankTransaction, 0)
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, transactions, totalRows))
}

type matchPayload struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Date   string  `json:"date"`
	Vendor string  `json:"vendor"`
}

// MatchTransactionHandler scores unreconciled transactions against a
// receipt's extracted amount/date/vendor.
func MatchTransactionHandler(c *gin.Context) {
	var payload matchPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A positive amount is required: " + err.Error()})
		return
	}

	target := matching.MatchTarget{
		Amount: payload.Amount,
		Date:   matching.ParseFlexibleDateOrNow(payload.Date),
		Vendor: payload.Vendor,
	}

	result, err := Matcher.FindMatches(workspaceID(c), target)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Match search failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

type linkPayload struct {
	ExpenseID uint `json:"expenseId" binding:"required"`
}

// LinkTransactionHandler attaches an expense to a transaction, both
// sides updated atomically.
func LinkTransactionHandler(c *gin.Context) {
	transactionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	var payload linkPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expenseId is required"})
		return
	}

	transaction, err := Linker.Link(workspaceID(c), uint(transactionID), payload.ExpenseID)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	GlobalHub.Broadcast(workspaceID(c), ReconciliationEvent{
		Type:          reconcile.ActionLinked,
		TransactionID: transaction.ID,
		ExpenseID:     payload.ExpenseID,
	})
	c.JSON(http.StatusOK, gin.H{"message": "Transaction linked", "transaction": transaction})
}

// UnlinkTransactionHandler clears both sides of a link. An expense that
// was already deleted does not make the unlink fail.
func UnlinkTransactionHandler(c *gin.Context) {
	transactionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return
	}

	transaction, err := Linker.Unlink(workspaceID(c), uint(transactionID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	GlobalHub.Broadcast(workspaceID(c), ReconciliationEvent{
		Type:          "unlinked",
		TransactionID: transaction.ID,
	})
	c.JSON(http.StatusOK, gin.H{"message": "Transaction unlinked", "transaction": transaction})
}

// AutoReconcileHandler takes an uploaded receipt and either attaches it
// to the named transaction, auto-matches it against the unreconciled
// ones, or creates a fallback expense record. The document is never
// lost: when nothing matches, a new expense carries the file.
func AutoReconcileHandler(c *gin.Context) {
	wsID := workspaceID(c)

	fileURL, err := saveUploadedFile(c, "receipt", "receipts")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if fileURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Receipt file is required"})
		return
	}

	// Direct attach when the caller already knows the transaction.
	if idStr := c.PostForm("transactionId"); idStr != "" {
		transactionID, err := strconv.Atoi(idStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
			return
		}
		transaction, err := Linker.AttachReceipt(wsID, uint(transactionID), fileURL)
		if err != nil {
			status := http.StatusConflict
			if errors.Is(err, gorm.ErrRecordNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		GlobalHub.Broadcast(wsID, ReconciliationEvent{Type: reconcile.ActionLinked, TransactionID: transaction.ID})
		c.JSON(http.StatusOK, gin.H{"action": reconcile.ActionLinked, "transaction": transaction})
		return
	}

	amountStr := c.PostForm("amount")
	vendor := c.PostForm("vendor")
	dateStr := c.PostForm("date")
	category := c.PostForm("category")
	documentNumber := c.PostForm("documentNumber")
	confidence := 0.0

	// No caller-provided metadata: run the OCR chain on the upload.
	if amountStr == "" {
		extracted, ocrErr := extractFromUpload(c)
		if ocrErr != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "OCR extraction failed: " + ocrErr.Error()})
			return
		}
		if extracted.Amounts.TTC == nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No total amount could be extracted from the receipt"})
			return
		}
		amountStr = extraction.FormatAmount(*extracted.Amounts.TTC)
		if vendor == "" {
			vendor = extracted.Vendor
		}
		if dateStr == "" {
			dateStr = extracted.Dates.Issue
		}
		if category == "" {
			category = extracted.Category
		}
		if documentNumber == "" {
			documentNumber = extracted.DocumentNumber
		}
		confidence = extracted.Confidence
	}

	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil || amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A positive amount is required"})
		return
	}

	target := matching.MatchTarget{
		Amount: amount,
		Date:   matching.ParseFlexibleDateOrNow(dateStr),
		Vendor: vendor,
	}

	outcome, err := Linker.AutoReconcile(wsID, target, fileURL, category, documentNumber, confidence)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Auto-reconcile failed: " + err.Error()})
		return
	}

	event := ReconciliationEvent{Type: outcome.Action}
	if outcome.Transaction != nil {
		event.TransactionID = outcome.Transaction.ID
	}
	if outcome.Expense != nil {
		event.ExpenseID = outcome.Expense.ID
	}
	GlobalHub.Broadcast(wsID, event)

	c.JSON(http.StatusOK, outcome)
}

// extractFromUpload re-reads the uploaded receipt and runs it through
// the provider chain and the normalizer.
func extractFromUpload(c *gin.Context) (*extraction.InvoiceData, error) {
	file, header, err := c.Request.FormFile("receipt")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	wsID := workspaceID(c)
	doc := ocr.Document{
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}

	result, err := OcrRouter.Process(c.Request.Context(), wsID, defaultProviderFor(wsID), doc)
	if err != nil {
		return nil, err
	}

	categorizer := loadCategorizer(wsID)
	return Normalizer.Normalize(c.Request.Context(), result.ExtractedText, result.Partial, categorizer), nil
}
