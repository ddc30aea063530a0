package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const operatorContextKey contextKey = "operator"

// RoleOperator is the only role allowed on the /calls endpoints.
const RoleOperator = "operator"

// OperatorClaims are the claims carried by an operator bearer token.
type OperatorClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// IssueOperatorToken signs an HS256 operator token for name, valid for ttl.
func IssueOperatorToken(secret, name string, ttl time.Duration) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("operator secret is empty")
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   name,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: RoleOperator,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// withOperator is middleware that requires a valid operator token. With no
// secret configured the wrapped endpoints are disabled.
func (r *Router) withOperator(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if r.cfg.AdminJWTSecret == "" {
			http.Error(w, `{"error": "operator access disabled"}`, http.StatusForbidden)
			return
		}

		authHeader := req.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, `{"error": "missing authorization header"}`, http.StatusUnauthorized)
			return
		}

		// Expect "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			http.Error(w, `{"error": "invalid authorization format"}`, http.StatusUnauthorized)
			return
		}

		parser := jwt.NewParser(jwt.WithExpirationRequired())
		token, err := parser.ParseWithClaims(parts[1], &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(r.cfg.AdminJWTSecret), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, `{"error": "invalid token"}`, http.StatusUnauthorized)
			return
		}

		claims, ok := token.Claims.(*OperatorClaims)
		if !ok || claims.Role != RoleOperator {
			http.Error(w, `{"error": "operator access required"}`, http.StatusForbidden)
			return
		}

		ctx := context.WithValue(req.Context(), operatorContextKey, claims.Subject)
		next.ServeHTTP(w, req.WithContext(ctx))
	}
}

// operatorName returns the subject of the operator token on ctx.
func operatorName(ctx context.Context) string {
	name, _ := ctx.Value(operatorContextKey).(string)
	return name
}
