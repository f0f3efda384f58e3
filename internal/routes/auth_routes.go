package routes

import (
	"github.com/Sweily-fr/newbi-api-sub001/internal/handlers"
	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registers the public authentication endpoints.
func RegisterAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", handlers.LoginHandler)
		auth.POST("/register", handlers.RegisterHandler)
		auth.POST("/logout", handlers.LogoutHandler)
	}
}
