package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/hardhatapps/gatekeeper/pkg/logctx"
	"github.com/hardhatapps/gatekeeper/pkg/response"
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

// IdentityKey is the gin context key the authenticated identity is stored under.
const IdentityKey = "identity"

type sessionClaims struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies the HS256 bearer token issued by the main app and
// stores the resulting Identity in gin.Context and the request context.
// Token issuance lives elsewhere; this service only consumes identities.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := identityFromHeader(c.GetHeader("Authorization"), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, err.Error()))
			return
		}

		c.Set(IdentityKey, identity)
		c.Set(logctx.KeyUserID, identity.UserID)
		c.Set(logctx.KeyCompanyID, identity.CompanyID)

		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, logctx.KeyUserID, identity.UserID)       //nolint:staticcheck
		ctx = context.WithValue(ctx, logctx.KeyCompanyID, identity.CompanyID) //nolint:staticcheck
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// IdentityFromGin returns the identity stored by AuthMiddleware.
func IdentityFromGin(c *gin.Context) (types.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return types.Identity{}, false
	}
	id, ok := v.(types.Identity)
	return id, ok
}

func identityFromHeader(header, secret string) (types.Identity, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return types.Identity{}, fmt.Errorf("missing bearer token")
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return types.Identity{}, fmt.Errorf("invalid token: %w", err)
	}
	if claims.UserID == "" || claims.CompanyID == "" {
		return types.Identity{}, fmt.Errorf("token missing user_id or company_id")
	}

	return types.Identity{
		UserID:    claims.UserID,
		CompanyID: claims.CompanyID,
		Role:      types.Role(claims.Role),
	}, nil
}
