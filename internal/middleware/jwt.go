package middleware

import (
	"context"
	"net/http"
	"strings"

	"opsbooks/internal/common"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// AuthMiddleware validates bearer tokens from the identity provider and
// exposes the subject and email claims to handlers. With a JWKS URL it
// verifies against the provider's published keys (Auth0/Cognito); otherwise
// it falls back to an HMAC secret for development.
type AuthMiddleware struct {
	secret []byte
	jwks   *keyfunc.JWKS
}

func NewAuthMiddleware(secret, jwksURL string) (*AuthMiddleware, error) {
	m := &AuthMiddleware{secret: []byte(secret)}

	if jwksURL != "" {
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			return nil, err
		}
		m.jwks = jwks
	}

	return m, nil
}

func (m *AuthMiddleware) keyFunc(token *jwt.Token) (interface{}, error) {
	if m.jwks != nil {
		return m.jwks.Keyfunc(token)
	}
	return m.secret, nil
}

func (m *AuthMiddleware) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token format")
			}

			token, err := jwt.Parse(tokenString, m.keyFunc)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			if !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token not valid")
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid claims")
			}

			sub, ok := claims["sub"].(string)
			if !ok || sub == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing subject in token")
			}

			ctx := context.WithValue(c.Request().Context(), common.SubjectKey, sub)
			if email, ok := claims["email"].(string); ok {
				ctx = context.WithValue(ctx, common.EmailKey, email)
			}
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
