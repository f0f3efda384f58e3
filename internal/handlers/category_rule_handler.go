package handlers

import (
	"net/http"

	"github.com/Knetic/govaluate"
	"github.com/Sweily-fr/newbi-api-sub001/config"
	"github.com/Sweily-fr/newbi-api-sub001/models"
	"github.com/gin-gonic/gin"
)

type categoryRulePayload struct {
	Category   string `json:"category" binding:"required"`
	Expression string `json:"expression" binding:"required"`
	Priority   int    `json:"priority"`
	IsEnabled  *bool  `json:"isEnabled"`
}

// validateExpression rejects rules that could never evaluate, so a
// typo does not silently disable categorization.
func validateExpression(expression string) error {
	_, err := govaluate.NewEvaluableExpression(expression)
	return err
}

// ListCategoryRulesHandler returns the workspace's rules ordered by
// priority, highest first.
func ListCategoryRulesHandler(c *gin.Context) {
	var rules []models.CategoryRule
	err := config.DB.Where("workspace_id = ?", workspaceID(c)).
		Order("priority DESC, id ASC").Find(&rules).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch category rules"})
		return
	}
	if rules == nil {
		rules = make([]models.CategoryRule, 0)
	}
	c.JSON(http.StatusOK, rules)
}

// CreateCategoryRuleHandler adds a rule after checking the expression
// parses.
func CreateCategoryRuleHandler(c *gin.Context) {
	var payload categoryRulePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category and expression are required: " + err.Error()})
		return
	}
	if err := validateExpression(payload.Expression); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule expression: " + err.Error()})
		return
	}

	rule := models.CategoryRule{
		WorkspaceID: workspaceID(c),
		Category:    payload.Category,
		Expression:  payload.Expression,
		Priority:    payload.Priority,
		IsEnabled:   true,
	}
	if payload.IsEnabled != nil {
		rule.IsEnabled = *payload.IsEnabled
	}

	if err := config.DB.Create(&rule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save category rule"})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// UpdateCategoryRuleHandler rewrites an existing rule.
func UpdateCategoryRuleHandler(c *gin.Context) {
	var rule models.CategoryRule
	if err := config.DB.Where("workspace_id = ?", workspaceID(c)).First(&rule, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category rule not found"})
		return
	}

	var payload categoryRulePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category and expression are required: " + err.Error()})
		return
	}
	if err := validateExpression(payload.Expression); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule expression: " + err.Error()})
		return
	}

	rule.Category = payload.Category
	rule.Expression = payload.Expression
	rule.Priority = payload.Priority
	if payload.IsEnabled != nil {
		rule.IsEnabled = *payload.IsEnabled
	}

	if err := config.DB.Save(&rule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category rule"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteCategoryRuleHandler removes a rule.
func DeleteCategoryRuleHandler(c *gin.Context) {
	result := config.DB.Where("workspace_id = ?", workspaceID(c)).
		Delete(&models.CategoryRule{}, c.Param("id"))
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category rule"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category rule not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category rule deleted"})
}
