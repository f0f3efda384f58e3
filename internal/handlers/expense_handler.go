package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Sweily-fr/newbi-api-sub001/config"
	"github.com/Sweily-fr/newbi-api-sub001/internal/extraction"
	"github.com/Sweily-fr/newbi-api-sub001/internal/matching"
	"github.com/Sweily-fr/newbi-api-sub001/models"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type expensePayload struct {
	Vendor         string  `json:"vendor"`
	Amount         float64 `json:"amount" binding:"required,gt=0"`
	Currency       string  `json:"currency"`
	Category       string  `json:"category"`
	ExpenseDate    string  `json:"expenseDate"`
	DocumentNumber string  `json:"documentNumber"`
}

// ListExpensesHandler returns the workspace's expenses, paginated, with
// optional category and reconciled filters.
func ListExpensesHandler(c *gin.Context) {
	query := config.DB.Model(&models.ExpenseRecord{}).Where("workspace_id = ?", workspaceID(c))

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if reconciled := c.Query("reconciled"); reconciled != "" {
		query = query.Where("reconciled = ?", reconciled == "true")
	}

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count expenses"})
		return
	}

	var expenses []models.ExpenseRecord
	if err := query.Scopes(Paginate(c)).Order("expense_date DESC NULLS LAST, created_at DESC").Find(&expenses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expenses"})
		return
	}
	if expenses == nil {
		expenses = make([]models.ExpenseRecord, 0)
	}

	c.JSON(http.StatusOK, CreatePaginatedResponse(c, expenses, totalRows))
}

// CreateExpenseHandler creates a manual expense record.
func CreateExpenseHandler(c *gin.Context) {
	var payload expensePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense data: " + err.Error()})
		return
	}

	expense := models.ExpenseRecord{
		WorkspaceID:    workspaceID(c),
		Vendor:         payload.Vendor,
		Amount:         payload.Amount,
		Currency:       payload.Currency,
		Category:       payload.Category,
		DocumentNumber: payload.DocumentNumber,
		Source:         models.ExpenseSourceManual,
	}
	if expense.Currency == "" {
		expense.Currency = "EUR"
	}
	if payload.ExpenseDate != "" {
		if date, ok := matching.ParseFlexibleDate(payload.ExpenseDate); ok {
			expense.ExpenseDate = &date
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unparseable expense date: %q", payload.ExpenseDate)})
			return
		}
	}

	if err := config.DB.Create(&expense).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save expense"})
		return
	}

	c.JSON(http.StatusCreated, expense)
}

// GetExpenseHandler returns one expense by id.
func GetExpenseHandler(c *gin.Context) {
	var expense models.ExpenseRecord
	err := config.DB.Where("workspace_id = ?", workspaceID(c)).First(&expense, c.Param("id")).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, expense)
}

// UpdateExpenseHandler updates the editable fields of an expense.
func UpdateExpenseHandler(c *gin.Context) {
	var expense models.ExpenseRecord
	if err := config.DB.Where("workspace_id = ?", workspaceID(c)).First(&expense, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
		return
	}

	var payload expensePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense data: " + err.Error()})
		return
	}

	expense.Vendor = payload.Vendor
	expense.Amount = payload.Amount
	expense.Category = payload.Category
	expense.DocumentNumber = payload.DocumentNumber
	if payload.Currency != "" {
		expense.Currency = payload.Currency
	}
	if payload.ExpenseDate != "" {
		if date, ok := matching.ParseFlexibleDate(payload.ExpenseDate); ok {
			expense.ExpenseDate = &date
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unparseable expense date: %q", payload.ExpenseDate)})
			return
		}
	}

	if err := config.DB.Save(&expense).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update expense"})
		return
	}
	c.JSON(http.StatusOK, expense)
}

// DeleteExpenseHandler removes an expense. A reconciled expense must be
// unlinked first so the transaction side never points at a ghost.
func DeleteExpenseHandler(c *gin.Context) {
	var expense models.ExpenseRecord
	if err := config.DB.Where("workspace_id = ?", workspaceID(c)).First(&expense, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
		return
	}

	if expense.Reconciled {
		c.JSON(http.StatusConflict, gin.H{"error": "Expense is reconciled, unlink it from its transaction first"})
		return
	}

	if err := config.DB.Delete(&expense).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete expense"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted"})
}

// UploadExpenseFileHandler attaches an uploaded receipt file to an
// existing expense.
func UploadExpenseFileHandler(c *gin.Context) {
	var expense models.ExpenseRecord
	if err := config.DB.Where("workspace_id = ?", workspaceID(c)).First(&expense, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
		return
	}

	fileURL, err := saveUploadedFile(c, "file", "expenses")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if fileURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}

	expense.Files = append(expense.Files, fileURL)
	if err := config.DB.Save(&expense).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update expense files"})
		return
	}

	c.JSON(http.StatusOK, expense)
}

// ExportExpensesHandler streams the workspace's expenses as an XLSX
// workbook.
func ExportExpensesHandler(c *gin.Context) {
	var expenses []models.ExpenseRecord
	err := config.DB.Where("workspace_id = ?", workspaceID(c)).
		Order("expense_date DESC NULLS LAST, created_at DESC").Find(&expenses).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expenses"})
		return
	}
	if len(expenses) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No expenses to export"})
		return
	}

	workbook := excelize.NewFile()
	sheet := workbook.GetSheetName(0)

	headers := []string{"ID", "Date", "Vendor", "Category", "Amount", "Currency", "Document", "Reconciled", "Source"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		workbook.SetCellValue(sheet, cell, header)
	}

	for row, expense := range expenses {
		date := ""
		if expense.ExpenseDate != nil {
			date = expense.ExpenseDate.Format("2006-01-02")
		}
		values := []interface{}{
			expense.ID, date, expense.Vendor, expense.Category,
			extraction.FormatAmount(expense.Amount), expense.Currency,
			expense.DocumentNumber, expense.Reconciled, expense.Source,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			workbook.SetCellValue(sheet, cell, value)
		}
	}

	fileName := fmt.Sprintf("expenses_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(fileName))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := workbook.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write workbook"})
	}
}
