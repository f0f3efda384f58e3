package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Sweily-fr/newbi-api-sub001/config"
	"github.com/Sweily-fr/newbi-api-sub001/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// CachedIdentity is the per-user data kept in Redis so most requests
// skip the database lookup.
type CachedIdentity struct {
	UserID      uint   `json:"user_id"`
	WorkspaceID uint   `json:"workspace_id"`
	Login       string `json:"login"`
	Role        string `json:"role"`
}

// AuthMiddleware validates the JWT from the cookie or the Authorization
// header and puts the caller's identity into the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := c.Cookie("auth_token")
		if err != nil || tokenStr == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				handleAuthError(c, "Authorization token not provided")
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				handleAuthError(c, "Invalid Authorization header format")
				return
			}
			tokenStr = parts[1]
		}

		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return config.JwtKey, nil
		})
		if err != nil || !token.Valid {
			c.SetCookie("auth_token", "", -1, "/", "", false, true)
			handleAuthError(c, "Invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			handleAuthError(c, "Invalid token claims")
			return
		}
		userIDFloat, ok := claims["user_id"].(float64)
		if !ok {
			handleAuthError(c, "Invalid user ID format in token")
			return
		}
		userID := uint(userIDFloat)

		cacheKey := fmt.Sprintf("user:%d:identity", userID)
		if config.RDB != nil {
			cachedData, err := config.RDB.Get(config.Ctx, cacheKey).Result()
			if err == nil {
				var identity CachedIdentity
				if json.Unmarshal([]byte(cachedData), &identity) == nil {
					setContextAndProceed(c, &identity)
					return
				}
				slog.Warn("Failed to unmarshal cached identity", "user_id", userID)
			} else if err != redis.Nil {
				slog.Error("Redis GET command failed", "error", err, "user_id", userID)
			}
		}

		var dbUser models.User
		if err := config.DB.First(&dbUser, userID).Error; err != nil {
			c.SetCookie("auth_token", "", -1, "/", "", false, true)
			handleAuthError(c, "User from token not found")
			return
		}

		identity := CachedIdentity{
			UserID:      dbUser.ID,
			WorkspaceID: dbUser.WorkspaceID,
			Login:       dbUser.Login,
			Role:        dbUser.Role,
		}

		if config.RDB != nil {
			jsonData, err := json.Marshal(identity)
			if err == nil {
				if err := config.RDB.Set(config.Ctx, cacheKey, jsonData, 10*time.Minute).Err(); err != nil {
					slog.Error("Failed to cache identity", "error", err, "user_id", userID)
				}
			}
		}

		setContextAndProceed(c, &identity)
	}
}

func setContextAndProceed(c *gin.Context, identity *CachedIdentity) {
	c.Set("user_id", identity.UserID)
	c.Set("workspace_id", identity.WorkspaceID)
	c.Set("login", identity.Login)
	c.Set("role", identity.Role)
	c.Next()
}

// RequireRole guards destructive routes; owners pass everything.
func RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("role")
		roleName, _ := role.(string)
		if roleName == "owner" || roleName == required {
			c.Next()
			return
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		c.Abort()
	}
}

func handleAuthError(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": message})
	c.Abort()
}
