package auth

import (
	"context"
	"net/http"
	"strings"

	"city-samadhan/types"

	fbauth "firebase.google.com/go/auth"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TokenVerifier checks Firebase ID tokens. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

type userKey struct{}

func WithUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

func UserFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(userKey{}).(types.User)
	return user, ok && user.ID != ""
}

// ContextIdentity reads the signed-in user placed on the context by Middleware.
type ContextIdentity struct{}

func (ContextIdentity) CurrentUser(ctx context.Context) (types.User, error) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return types.User{}, types.Errorf(types.KindAuth, "auth.CurrentUser", "no signed-in user")
	}
	return user, nil
}

// Middleware rejects requests without a valid bearer ID token.
func Middleware(verifier TokenVerifier, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		idToken, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(idToken) == "" {
			abortUnauthorized(c)
			return
		}

		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(idToken))
		if err != nil {
			log.WithError(err).Debug("Rejected ID token")
			abortUnauthorized(c)
			return
		}

		user := types.User{ID: token.UID}
		if email, ok := token.Claims["email"].(string); ok {
			user.Email = email
		}
		if phone, ok := token.Claims["phone_number"].(string); ok {
			user.Phone = phone
		}

		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), user))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   types.KindAuth,
		"message": types.UserMessage(types.KindAuth),
	})
}
