package middleware

import (
	"context"
	"net/http"
	"strings"

	"member-intake/pkg/jwt"
	"member-intake/pkg/response"

	"github.com/google/uuid"
)

type contextKey string

const (
	SessionIDKey contextKey = "session_id"
	TokenIDKey   contextKey = "token_id"
)

type SessionMiddleware struct {
	jwtService *jwt.JWTService
}

func NewSessionMiddleware(jwtService *jwt.JWTService) *SessionMiddleware {
	return &SessionMiddleware{
		jwtService: jwtService,
	}
}

// Authenticate resolves the form session named by the bearer token.
func (m *SessionMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header is required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		if claims.TokenType != jwt.FormSessionToken {
			response.Unauthorized(w, "Invalid token type")
			return
		}

		ctx := ContextWithSessionID(r.Context(), claims.SessionID)
		ctx = context.WithValue(ctx, TokenIDKey, claims.TokenID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ContextWithSessionID stores the form session ID in ctx.
func ContextWithSessionID(ctx context.Context, sessionID uuid.UUID) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// GetSessionIDFromContext extracts the form session ID from context
func GetSessionIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	sessionID, ok := ctx.Value(SessionIDKey).(uuid.UUID)
	return sessionID, ok
}

// GetTokenIDFromContext extracts token ID from context
func GetTokenIDFromContext(ctx context.Context) (string, bool) {
	tokenID, ok := ctx.Value(TokenIDKey).(string)
	return tokenID, ok
}
