package routes

import (
	"github.com/Sweily-fr/newbi-api-sub001/internal/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes registers every route of the application.
func SetupRoutes(r *gin.Engine) {
	RegisterAuthRoutes(r)

	authRequired := r.Group("/")
	authRequired.Use(middleware.AuthMiddleware())
	{
		RegisterAPIRoutes(authRequired)
	}
}
