package auth

import (
	"encoding/base64"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return s
}

func TestDecodeToken(t *testing.T) {
	t.Run("numeric role", func(t *testing.T) {
		claims, err := DecodeToken(signedToken(t, jwt.MapClaims{"role": 3, "nombre": "Ana"}))
		require.NoError(t, err)
		assert.Equal(t, 3, claims.RoleID())
		assert.Equal(t, "Ana", claims.Nombre)
	})

	t.Run("string role", func(t *testing.T) {
		claims, err := DecodeToken(signedToken(t, jwt.MapClaims{"role": "2", "nombre": "Luis"}))
		require.NoError(t, err)
		assert.Equal(t, 2, claims.RoleID())
	})

	t.Run("signature is not checked", func(t *testing.T) {
		raw := signedToken(t, jwt.MapClaims{"role": 1, "nombre": "Root"})
		raw = raw[:len(raw)-4] + "AAAA"
		claims, err := DecodeToken(raw)
		require.NoError(t, err)
		assert.Equal(t, 1, claims.RoleID())
	})
}

func TestDecodeTokenFailures(t *testing.T) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"nombre":"x"}`))
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMissingToken},
		{"whitespace", "   ", ErrMissingToken},
		{"two segments", "abc.def", ErrMalformedToken},
		{"garbage payload", header + ".!!!not-base64!!!.sig", ErrMalformedToken},
		{"payload not json", header + "." + base64.RawURLEncoding.EncodeToString([]byte("hello")) + ".sig", ErrMalformedToken},
		{"no role claim", header + "." + payload + ".sig", ErrMalformedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := DecodeToken(tt.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSameRole(t *testing.T) {
	viewer := &Claims{Role: 2}
	assert.True(t, SameRole(2, viewer))
	assert.False(t, SameRole(3, viewer))
	assert.False(t, SameRole(2, nil))
}
