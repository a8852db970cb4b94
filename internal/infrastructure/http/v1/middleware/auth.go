package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"agora/internal/core/actor"
	"agora/internal/core/apperror"
)

// TokenValidator validates access tokens.
type TokenValidator interface {
	Validate(tokenString string) (actor.Actor, error)
}

// Auth middleware validates bearer tokens and puts the acting user into
// the request context. Role decisions stay in the domain layer.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		a, err := validator.Validate(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		ctx := actor.WithActor(c.Request.Context(), a)
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", a.UserID.String())

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
