// Package auth guards the timer API with a bearer token that the owner
// obtains by presenting a passphrase.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL is how long an issued token stays valid
	DefaultTokenTTL = 24 * time.Hour

	issuer       = "tomato-service"
	ownerSubject = "owner"
)

var (
	// ErrAuthDisabled is returned by New when no secret or passphrase is configured
	ErrAuthDisabled = errors.New("auth disabled")
	// ErrInvalidToken is returned for tokens that fail validation
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Context keys for storing token information
type contextKey string

const subjectKey contextKey = "subject"

// Config holds the auth settings
type Config struct {
	Secret         string
	Passphrase     string
	PassphraseHash string
	TokenTTL       time.Duration
}

// TokenResponse is returned by a successful token request
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ErrorResponse is the JSON body of a failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Auth issues and validates tokens
type Auth struct {
	secret        []byte
	ttl           time.Duration
	authenticator *PassphraseAuthenticator
	now           func() time.Time
}

// New creates an Auth. It returns ErrAuthDisabled when cfg has no secret or
// no passphrase.
func New(cfg Config) (*Auth, error) {
	if cfg.Secret == "" || (cfg.Passphrase == "" && cfg.PassphraseHash == "") {
		return nil, ErrAuthDisabled
	}

	var (
		authenticator *PassphraseAuthenticator
		err           error
	)
	if cfg.PassphraseHash != "" {
		authenticator, err = NewPassphraseAuthenticatorFromHash(cfg.PassphraseHash)
	} else {
		authenticator, err = NewPassphraseAuthenticator(cfg.Passphrase)
	}
	if err != nil {
		return nil, err
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &Auth{
		secret:        []byte(cfg.Secret),
		ttl:           ttl,
		authenticator: authenticator,
		now:           time.Now,
	}, nil
}

// Login checks passphrase and returns a fresh token
func (a *Auth) Login(passphrase string) (*TokenResponse, error) {
	if err := a.authenticator.Authenticate(passphrase); err != nil {
		return nil, err
	}
	return a.GenerateJWT(ownerSubject)
}

// GenerateJWT generates a JWT token for subject
func (a *Auth) GenerateJWT(subject string) (*TokenResponse, error) {
	now := a.now()
	expirationTime := now.Add(a.ttl)

	claims := &jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expirationTime),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    issuer,
		Subject:   subject,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{Token: tokenString, ExpiresAt: expirationTime}, nil
}

// ValidateJWT validates and parses a JWT token
func (a *Auth) ValidateJWT(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetSubjectFromContext extracts the token subject set by RequireToken
func GetSubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey).(string)
	return subject, ok
}

// RequireToken creates middleware that rejects requests without a valid token.
// A nil Auth lets every request through. EventSource clients cannot set
// headers, so the token is also accepted as the token query parameter.
func RequireToken(a *Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if a == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := tokenFromRequest(r)
			if !ok {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			claims, err := a.ValidateJWT(tokenString)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		token := r.URL.Query().Get("token")
		return token, token != ""
	}

	// Extract token from "Bearer <token>" format
	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return "", false
	}
	return tokenParts[1], true
}
