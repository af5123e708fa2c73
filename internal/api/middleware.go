package api

import (
	"alcyxob/course-app/internal/cache"
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/logger"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Constants for context keys
const (
	ContextUserIDKey    = "userID"
	ContextUserRoleKey  = "userRole"
	ContextRequestIDKey = "requestID"
)

const requestIDHeader = "X-Request-ID"

// jwtClaims is the payload of access tokens issued by the identity provider.
type jwtClaims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

var errMissingAuthHeader = errors.New("Authorization header is missing")

// parseBearer validates the Authorization header and returns the caller.
func parseBearer(c *gin.Context, jwtSecret string) (*domain.Identity, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, errMissingAuthHeader
	}

	// Expecting "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, errors.New("Authorization header format must be Bearer {token}")
	}

	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("Token has expired")
		}
		return nil, fmt.Errorf("Invalid token: %v", err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, errors.New("Invalid token or missing claims")
	}
	if claims.ExpiresAt == nil {
		return nil, errors.New("Token has no expiry")
	}

	role := claims.Role
	if role == "" {
		role = domain.RoleLearner
	}
	return &domain.Identity{UserID: claims.UserID, Role: role}, nil
}

func setIdentity(c *gin.Context, id *domain.Identity) {
	c.Set(ContextUserIDKey, id.UserID)
	c.Set(ContextUserRoleKey, id.Role)
}

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseBearer(c, jwtSecret)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, err.Error())
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

// OptionalAuthMiddleware lets anonymous requests through but still rejects a
// token that is present and invalid.
func OptionalAuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseBearer(c, jwtSecret)
		switch {
		case errors.Is(err, errMissingAuthHeader):
		case err != nil:
			abortWithError(c, http.StatusUnauthorized, err.Error())
			return
		default:
			setIdentity(c, id)
		}
		c.Next()
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// RoleMiddleware creates middleware to check if user has the required role(s).
// Must run AFTER AuthMiddleware.
func RoleMiddleware(allowedRoles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, err := getUserRoleFromContext(c)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}

		for _, allowedRole := range allowedRoles {
			if userRole == allowedRole {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, fmt.Sprintf("Access denied: Role '%s' does not have permission", userRole))
	}
}

// RequestID propagates X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(ContextRequestIDKey, rid)
		c.Header(requestIDHeader, rid)
		c.Next()
	}
}

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if rid := c.GetString(ContextRequestIDKey); rid != "" {
			fields = append(fields, "request_id", rid)
		}
		if uid := c.GetString(ContextUserIDKey); uid != "" {
			fields = append(fields, "user_id", uid)
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

// RateLimit allows limit requests per window for each user (or client IP when
// anonymous). A nil counter disables limiting. Counter failures let the
// request through.
func RateLimit(counter cache.RateCounter, scope string, limit int, window time.Duration, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || limit <= 0 {
			c.Next()
			return
		}
		subject := c.GetString(ContextUserIDKey)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}

		allowed, retryAfter, err := counter.Hit(c.Request.Context(), scope+":"+subject, limit, window)
		if err != nil {
			log.Warn("rate limiter unavailable", "scope", scope, "error", err)
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
			abortWithError(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}

// Helper function to get User ID from context (used by handlers)
func getUserIDFromContext(c *gin.Context) (string, error) {
	idRaw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", errors.New("user ID not found in context")
	}
	idStr, ok := idRaw.(string)
	if !ok {
		return "", errors.New("invalid user ID type in context")
	}
	return idStr, nil
}

// Helper function to get User Role from context (used by handlers)
func getUserRoleFromContext(c *gin.Context) (domain.Role, error) {
	roleRaw, exists := c.Get(ContextUserRoleKey)
	if !exists {
		return "", errors.New("user role not found in context")
	}
	role, ok := roleRaw.(domain.Role)
	if !ok {
		return "", errors.New("invalid user role type in context")
	}
	return role, nil
}
