// Package auth resolves who is asking for an import and whether they may
// run one. Principals come from X-API-Key entries or JWT bearer tokens; the
// import predicate compares role capabilities.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JonMunkholm/ResourceImporter/internal/schema"
)

var (
	// ErrMissingCredentials is returned when a request carries no credentials.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrInvalidCredentials is returned for unknown keys and bad tokens.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden is returned when a principal may not run imports.
	ErrForbidden = errors.New("insufficient permissions to run imports")
)

// Method records how a principal authenticated.
type Method string

const (
	MethodAnonymous Method = "anonymous"
	MethodAPIKey    Method = "api_key"
	MethodToken     Method = "token"
)

// Principal is an authenticated caller.
type Principal struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	Method Method `json:"method"`
}

// Authenticated reports whether the principal presented credentials.
func (p Principal) Authenticated() bool {
	return p.Method != "" && p.Method != MethodAnonymous
}

// Config holds authentication configuration.
type Config struct {
	RequireAuth   bool
	APIKeys       []string // "key:Role" or "key:Role:name"
	JWTSecret     string
	TokenDuration time.Duration
	ImportRole    string // Role whose capability an import requires
}

type apiKey struct {
	key       []byte
	principal Principal
}

// Authorizer resolves principals and evaluates the import predicate.
type Authorizer struct {
	requireAuth bool
	keys        []apiKey
	secret      []byte
	duration    time.Duration
	importRole  string
}

// NewAuthorizer validates cfg and builds an Authorizer.
func NewAuthorizer(cfg Config) (*Authorizer, error) {
	importRole := cfg.ImportRole
	if importRole == "" {
		importRole = schema.DefaultImportRole
	}
	if !schema.KnownRole(importRole) {
		return nil, fmt.Errorf("unknown import role %q", importRole)
	}

	keys, err := parseAPIKeys(cfg.APIKeys)
	if err != nil {
		return nil, err
	}
	if cfg.RequireAuth && len(keys) == 0 && cfg.JWTSecret == "" {
		return nil, errors.New("auth is required but neither API keys nor a JWT secret is configured")
	}

	duration := cfg.TokenDuration
	if duration <= 0 {
		duration = 24 * time.Hour
	}

	return &Authorizer{
		requireAuth: cfg.RequireAuth,
		keys:        keys,
		secret:      []byte(cfg.JWTSecret),
		duration:    duration,
		importRole:  importRole,
	}, nil
}

// parseAPIKeys parses "key:Role[:name]" entries.
func parseAPIKeys(entries []string) ([]apiKey, error) {
	keys := make([]apiKey, 0, len(entries))
	for i, entry := range entries {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		if len(parts) < 2 || parts[0] == "" {
			return nil, fmt.Errorf("api key %d: expected key:Role", i+1)
		}
		role := strings.TrimSpace(parts[1])
		if !schema.KnownRole(role) {
			return nil, fmt.Errorf("api key %d: unknown role %q", i+1, role)
		}
		name := fmt.Sprintf("api-key-%d", i+1)
		if len(parts) == 3 && strings.TrimSpace(parts[2]) != "" {
			name = strings.TrimSpace(parts[2])
		}
		keys = append(keys, apiKey{
			key:       []byte(parts[0]),
			principal: Principal{Name: name, Role: role, Method: MethodAPIKey},
		})
	}
	return keys, nil
}

// ImportRole returns the role an import requires.
func (a *Authorizer) ImportRole() string {
	return a.importRole
}

// Resolve identifies the caller of r. With auth disabled, requests without
// credentials resolve to an anonymous principal holding the import role.
func (a *Authorizer) Resolve(r *http.Request) (Principal, error) {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return a.resolveKey(key)
	}

	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return Principal{}, ErrInvalidCredentials
		}
		return a.ValidateToken(token)
	}

	if !a.requireAuth {
		return Principal{Name: "anonymous", Role: a.importRole, Method: MethodAnonymous}, nil
	}
	return Principal{}, ErrMissingCredentials
}

// resolveKey checks every configured key with a constant-time comparison.
func (a *Authorizer) resolveKey(key string) (Principal, error) {
	var (
		match Principal
		found int
	)
	for _, k := range a.keys {
		if subtle.ConstantTimeCompare([]byte(key), k.key) == 1 {
			match = k.principal
			found = 1
		}
	}
	if found == 0 {
		return Principal{}, ErrInvalidCredentials
	}
	return match, nil
}

// CanRunImport reports whether p holds the capability the import role
// requires.
func (a *Authorizer) CanRunImport(p Principal) bool {
	required := schema.RoleCapability(a.importRole)
	if required == schema.CapRead && p.Authenticated() {
		return true
	}
	return schema.HasCapability(p.Role, required)
}

// Claims represents the JWT claims.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed token for name with role.
func (a *Authorizer) GenerateToken(name, role string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("no JWT secret configured")
	}
	if !schema.KnownRole(role) {
		return "", fmt.Errorf("unknown role %q", role)
	}

	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   name,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "resource-importer",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken validates a bearer token and returns its principal.
func (a *Authorizer) ValidateToken(tokenString string) (Principal, error) {
	if len(a.secret) == 0 {
		return Principal{}, ErrInvalidCredentials
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Principal{}, ErrInvalidCredentials
	}
	return Principal{Name: claims.Subject, Role: claims.Role, Method: MethodToken}, nil
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const principalContextKey contextKey = "principal"

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// FromContext extracts the principal from the request context.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}
