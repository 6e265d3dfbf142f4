package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zumerkk/entas-sub001/common/auth"
	apperrors "github.com/zumerkk/entas-sub001/common/errors"
)

const (
	UserContextKey = "userID"
	RoleContextKey = "role"

	accessTokenType = "access"
)

// AuthOptions configures how AuthMiddleware identifies the caller.
type AuthOptions struct {
	Tokens *auth.TokenValidator
	// TrustGatewayHeaders accepts X-User-ID and X-User-Role when no bearer token is sent.
	// Enable only behind an API gateway that strips those headers from client requests.
	TrustGatewayHeaders bool
}

// AuthMiddleware resolves the caller. A bearer token is verified locally; without one the
// identity headers injected by the API gateway are used when opts.TrustGatewayHeaders is set.
func AuthMiddleware(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID, role string

		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			claims, err := opts.Tokens.ParseAndValidateToken(strings.TrimPrefix(h, "Bearer "), accessTokenType)
			if err != nil {
				apperrors.Abort(c, apperrors.ErrInvalidToken.Wrap(err))
				return
			}
			userID, role = claims.UserID, claims.Role
		} else if opts.TrustGatewayHeaders {
			userID = c.GetHeader("X-User-ID")
			role = c.GetHeader("X-User-Role")
		}

		if userID == "" {
			apperrors.Abort(c, apperrors.ErrUnauthorized)
			return
		}

		c.Set(UserContextKey, userID)
		c.Set(RoleContextKey, role)
		c.Next()
	}
}

// AdminOnly restricts access to the admin role.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(RoleContextKey) != "admin" {
			apperrors.Abort(c, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}
