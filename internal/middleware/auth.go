package middleware

import (
	"errors"
	"net/http"
	"strings"

	"posbackend/internal/model"
	"posbackend/internal/service"
	"posbackend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	settlementContextKey = "settlementContext"
	ShiftCookieName      = "shift_id"
)

// Claims is the access token payload issued by the session service.
type Claims struct {
	TenantID string `json:"tenant_id"`
	BranchID string `json:"branch_id"`
	Role     string `json:"role"`
	Username string `json:"username"`
	ShiftID  string `json:"shift_id,omitempty"`
	jwt.RegisteredClaims
}

// ParseToken validates an HS256 access token and returns its claims.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// settlementContext resolves the identity carried by claims.
func (cl *Claims) settlementContext() (service.SettlementContext, error) {
	userID, err := uuid.Parse(cl.Subject)
	if err != nil {
		return service.SettlementContext{}, errors.New("invalid subject")
	}
	tenantID, err := uuid.Parse(cl.TenantID)
	if err != nil {
		return service.SettlementContext{}, errors.New("invalid tenant_id")
	}
	branchID, err := uuid.Parse(cl.BranchID)
	if err != nil {
		return service.SettlementContext{}, errors.New("invalid branch_id")
	}

	sc := service.SettlementContext{
		TenantID: tenantID,
		BranchID: branchID,
		UserID:   userID,
		Username: cl.Username,
		Role:     cl.Role,
	}
	if cl.ShiftID != "" {
		if shiftID, err := uuid.Parse(cl.ShiftID); err == nil {
			sc.ShiftID = &shiftID
		}
	}
	return sc, nil
}

// tokenFromRequest reads the access_token cookie, falling back to the Authorization header.
func tokenFromRequest(c *gin.Context) (string, string) {
	tokenString, cookieErr := c.Cookie("access_token")
	if cookieErr == nil && tokenString != "" {
		return tokenString, ""
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "Authorization is missing"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "Invalid authorization format. Expected 'Bearer <token>'"
	}
	return parts[1], ""
}

// Authenticate validates the access token and stores the caller's SettlementContext
// on the gin context.
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, problem := tokenFromRequest(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, problem))
			return
		}

		claims, err := ParseToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}

		sc, err := claims.settlementContext()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims: "+err.Error()))
			return
		}

		// The shift cookie points at the caller's current shift when the token does not.
		if sc.ShiftID == nil {
			if raw, err := c.Cookie(ShiftCookieName); err == nil && raw != "" {
				if shiftID, err := uuid.Parse(raw); err == nil {
					sc.ShiftID = &shiftID
				}
			}
		}

		sc.ClientIP = c.ClientIP()
		sc.UserAgent = c.Request.UserAgent()
		sc.RequestID = c.GetString(RequestIDKey)

		c.Set(settlementContextKey, sc)
		c.Set("userID", sc.UserID.String())
		c.Set("userRole", sc.Role)

		c.Next()
	}
}

// SettlementContextFrom returns the context stored by Authenticate.
func SettlementContextFrom(c *gin.Context) (service.SettlementContext, bool) {
	v, ok := c.Get(settlementContextKey)
	if !ok {
		return service.SettlementContext{}, false
	}
	sc, ok := v.(service.SettlementContext)
	return sc, ok
}

// RequireRole checks that the authenticated caller's role is in allowedRoles.
// It must run after Authenticate.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sc, ok := SettlementContextFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		for _, role := range allowedRoles {
			if sc.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// RequirePrivileged allows only the roles that may approve settlements.
func RequirePrivileged() gin.HandlerFunc {
	return RequireRole(model.PrivilegedRoles...)
}

// ClearShiftCookie removes the shift-scoped session pointer after a shift closes.
func ClearShiftCookie(c *gin.Context) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	secure := false
	if gin.Mode() == gin.ReleaseMode {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie(ShiftCookieName, "", -1, "/", "", secure, true)
}
