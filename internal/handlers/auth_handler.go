package handlers

import (
	"net/http"
	"time"

	"github.com/Sweily-fr/newbi-api-sub001/config"
	"github.com/Sweily-fr/newbi-api-sub001/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type loginPayload struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerPayload struct {
	Login         string `json:"login" binding:"required"`
	Password      string `json:"password" binding:"required,min=8"`
	FullName      string `json:"fullName"`
	WorkspaceName string `json:"workspaceName" binding:"required"`
}

func issueToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":      user.ID,
		"workspace_id": user.WorkspaceID,
		"exp":          time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(config.JwtKey)
}

// LoginHandler verifies the credentials and issues a session token as
// both a cookie and a JSON field.
func LoginHandler(c *gin.Context) {
	var payload loginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Login and password are required"})
		return
	}

	var user models.User
	if err := config.DB.Where("login = ?", payload.Login).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	tokenStr, err := issueToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.SetCookie("auth_token", tokenStr, 24*3600, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"token": tokenStr, "workspaceId": user.WorkspaceID})
}

// RegisterHandler creates a workspace and its first user.
func RegisterHandler(c *gin.Context) {
	var payload registerPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid registration data: " + err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	var user models.User
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		workspace := models.Workspace{Name: payload.WorkspaceName, Plan: models.PlanFree}
		if err := tx.Create(&workspace).Error; err != nil {
			return err
		}
		user = models.User{
			Login:        payload.Login,
			PasswordHash: string(hash),
			FullName:     payload.FullName,
			Role:         "owner",
			WorkspaceID:  workspace.ID,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Failed to register: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Registration successful", "workspaceId": user.WorkspaceID})
}

// LogoutHandler clears the session cookie.
func LogoutHandler(c *gin.Context) {
	c.SetCookie("auth_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
