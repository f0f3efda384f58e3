package routes

import (
	"github.com/Sweily-fr/newbi-api-sub001/internal/handlers"
	"github.com/Sweily-fr/newbi-api-sub001/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes registers the authenticated API endpoints.
func RegisterAPIRoutes(api *gin.RouterGroup) {
	apiGroup := api.Group("/api")
	{
		ocr := apiGroup.Group("/ocr")
		{
			ocr.POST("/process", handlers.ProcessDocumentHandler)
			ocr.GET("/usage", handlers.GetOcrUsageHandler)
		}

		expenses := apiGroup.Group("/expenses")
		{
			expenses.GET("", handlers.ListExpensesHandler)
			expenses.POST("", handlers.CreateExpenseHandler)
			expenses.GET("/export", handlers.ExportExpensesHandler)
			expenses.GET("/:id", handlers.GetExpenseHandler)
			expenses.PUT("/:id", handlers.UpdateExpenseHandler)
			expenses.DELETE("/:id", handlers.DeleteExpenseHandler)
			expenses.POST("/:id/files", handlers.UploadExpenseFileHandler)
		}

		transactions := apiGroup.Group("/transactions")
		{
			transactions.GET("", handlers.ListTransactionsHandler)
			transactions.POST("/match", handlers.MatchTransactionHandler)
			transactions.POST("/auto-reconcile", handlers.AutoReconcileHandler)
			transactions.POST("/:id/link", handlers.LinkTransactionHandler)
			transactions.POST("/:id/unlink", handlers.UnlinkTransactionHandler)
		}

		rules := apiGroup.Group("/category-rules")
		{
			rules.GET("", handlers.ListCategoryRulesHandler)
			rules.POST("", middleware.RequireRole("admin"), handlers.CreateCategoryRuleHandler)
			rules.PUT("/:id", middleware.RequireRole("admin"), handlers.UpdateCategoryRuleHandler)
			rules.DELETE("/:id", middleware.RequireRole("admin"), handlers.DeleteCategoryRuleHandler)
		}

		apiGroup.GET("/events/ws", handlers.EventsWSEndpoint)
	}
}
