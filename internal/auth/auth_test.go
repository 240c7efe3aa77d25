package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthorizer(t *testing.T, cfg Config) *Authorizer {
	t.Helper()
	a, err := NewAuthorizer(cfg)
	require.NoError(t, err)
	return a
}

func TestParseAPIKeys(t *testing.T) {
	keys, err := parseAPIKeys([]string{"abc:Editor", "def:Administrator:ops"})
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, Principal{Name: "api-key-1", Role: "Editor", Method: MethodAPIKey}, keys[0].principal)
	assert.Equal(t, "ops", keys[1].principal.Name)

	_, err = parseAPIKeys([]string{"nokey"})
	assert.Error(t, err)

	_, err = parseAPIKeys([]string{"abc:Wizard"})
	assert.Error(t, err)
}

func TestNewAuthorizer_ImportRole(t *testing.T) {
	a := newAuthorizer(t, Config{})
	assert.Equal(t, "Administrator", a.ImportRole())

	_, err := NewAuthorizer(Config{ImportRole: "Janitor"})
	assert.Error(t, err)
}

func TestNewAuthorizer_RequireAuthNeedsCredentials(t *testing.T) {
	_, err := NewAuthorizer(Config{RequireAuth: true})
	assert.Error(t, err)

	_, err = NewAuthorizer(Config{RequireAuth: true, JWTSecret: "s"})
	assert.NoError(t, err)
}

func TestCanRunImport(t *testing.T) {
	tests := []struct {
		importRole string
		role       string
		want       bool
	}{
		{"Administrator", "Administrator", true},
		{"Administrator", "Super Admin", true},
		{"Administrator", "Editor", false},
		{"Editor", "Administrator", true},
		{"Editor", "Editor", true},
		{"Editor", "Author", false},
		{"Author", "Contributor", false},
		{"Contributor", "Author", true},
		{"Subscriber", "Subscriber", true},
		{"Anyone", "Subscriber", true},
	}

	for _, tt := range tests {
		t.Run(tt.importRole+"/"+tt.role, func(t *testing.T) {
			a := newAuthorizer(t, Config{ImportRole: tt.importRole})
			p := Principal{Name: "x", Role: tt.role, Method: MethodAPIKey}
			assert.Equal(t, tt.want, a.CanRunImport(p))
		})
	}
}

func TestResolve(t *testing.T) {
	a := newAuthorizer(t, Config{
		RequireAuth: true,
		APIKeys:     []string{"secret-key:Editor:ci"},
		JWTSecret:   "jwt-secret",
	})

	t.Run("api key", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/import", nil)
		r.Header.Set("X-API-Key", "secret-key")

		p, err := a.Resolve(r)
		require.NoError(t, err)
		assert.Equal(t, Principal{Name: "ci", Role: "Editor", Method: MethodAPIKey}, p)
	})

	t.Run("unknown api key", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/import", nil)
		r.Header.Set("X-API-Key", "wrong")

		_, err := a.Resolve(r)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("bearer token", func(t *testing.T) {
		token, err := a.GenerateToken("alice", "Administrator")
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodPost, "/import", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		p, err := a.Resolve(r)
		require.NoError(t, err)
		assert.Equal(t, Principal{Name: "alice", Role: "Administrator", Method: MethodToken}, p)
		assert.True(t, a.CanRunImport(p))
	})

	t.Run("malformed authorization header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/import", nil)
		r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")

		_, err := a.Resolve(r)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("no credentials", func(t *testing.T) {
		_, err := a.Resolve(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.ErrorIs(t, err, ErrMissingCredentials)
	})
}

func TestResolve_AuthDisabled(t *testing.T) {
	a := newAuthorizer(t, Config{ImportRole: "Editor"})

	p, err := a.Resolve(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, MethodAnonymous, p.Method)
	assert.True(t, a.CanRunImport(p))
}

func TestValidateToken(t *testing.T) {
	a := newAuthorizer(t, Config{JWTSecret: "one"})
	other := newAuthorizer(t, Config{JWTSecret: "two"})

	token, err := a.GenerateToken("bob", "Editor")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "Administrator",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "old",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err := expired.SignedString([]byte("one"))
	require.NoError(t, err)
	_, err = a.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = a.GenerateToken("bob", "Wizard")
	assert.Error(t, err)

	noSecret := newAuthorizer(t, Config{})
	_, err = noSecret.GenerateToken("bob", "Editor")
	assert.Error(t, err)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{Name: "x"})
	p, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "x", p.Name)
}
