package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const subjectContextKey contextKey = "auth_subject"

// Authenticator validates HS256 bearer tokens issued by the platform.
type Authenticator struct {
	secret []byte
	issuer string
	logger *slog.Logger
}

// NewAuthenticator creates an Authenticator. issuer is optional; when set the
// token's iss claim must match it.
func NewAuthenticator(secret []byte, issuer string, logger *slog.Logger) (*Authenticator, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{secret: secret, issuer: issuer, logger: logger}, nil
}

// Authenticate parses a raw token and returns its subject.
func (a *Authenticator) Authenticate(raw string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid bearer token with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			a.unauthorized(w, r, "missing Authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			a.unauthorized(w, r, "invalid Authorization header format")
			return
		}

		subject, err := a.Authenticate(strings.TrimSpace(parts[1]))
		if err != nil {
			a.logger.Debug("rejected bearer token", slog.Any("error", err))
			a.unauthorized(w, r, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), subjectContextKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	writeError(w, r, http.StatusUnauthorized, ErrorResponse{Error: errCodeUnauthorized, Message: message})
}

// SubjectFromContext returns the authenticated caller, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectContextKey).(string)
	return subject, ok && subject != ""
}
