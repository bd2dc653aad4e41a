package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/quantalab/lims-api/internal/model"
	apperrors "github.com/quantalab/lims-api/pkg/errors"
	"github.com/quantalab/lims-api/pkg/httputil"
)

const ContextActor = "actor"

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	secret []byte
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

// Authenticate validates the bearer token and stores the acting identity in
// the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, apperrors.NewUnauthorized("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.RespondWithError(c, apperrors.NewUnauthorized("invalid authorization format"))
			c.Abort()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, apperrors.NewUnauthorized("unexpected signing method")
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			httputil.RespondWithError(c, apperrors.NewUnauthorized("invalid token"))
			c.Abort()
			return
		}

		accountID, err := uuid.Parse(claims.Subject)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewUnauthorized("invalid token subject"))
			c.Abort()
			return
		}

		c.Set(ContextActor, model.Actor{ID: accountID, Role: claims.Role})
		c.Next()
	}
}

// RequireRoles rejects requests whose actor holds none of the given roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			httputil.RespondWithError(c, apperrors.NewUnauthorized("authentication required"))
			c.Abort()
			return
		}

		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}

		httputil.RespondWithError(c, apperrors.NewForbidden("insufficient role"))
		c.Abort()
	}
}

// GetActor returns the authenticated actor set by Authenticate.
func GetActor(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(ContextActor)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}
