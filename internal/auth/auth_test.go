package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vytor/stepple/internal/auth"
)

var cfg = auth.Config{Secret: "test-secret", Issuer: "stepple"}

func TestSignAndParse(t *testing.T) {
	token, err := auth.Sign(cfg, "u1", time.Hour)
	require.NoError(t, err)

	claims, err := auth.Parse(token, cfg)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestParseRejects(t *testing.T) {
	_, err := auth.Parse("", cfg)
	assert.ErrorIs(t, err, auth.ErrMissingToken)

	wrongSecret, err := auth.Sign(auth.Config{Secret: "other", Issuer: "stepple"}, "u1", time.Hour)
	require.NoError(t, err)
	_, err = auth.Parse(wrongSecret, cfg)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	wrongIssuer, err := auth.Sign(auth.Config{Secret: "test-secret", Issuer: "elsewhere"}, "u1", time.Hour)
	require.NoError(t, err)
	_, err = auth.Parse(wrongIssuer, cfg)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	expired, err := auth.Sign(cfg, "u1", -time.Minute)
	require.NoError(t, err)
	_, err = auth.Parse(expired, cfg)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "stepple",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = auth.Parse(noSubject, cfg)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	var seen string
	h := auth.NewMiddleware(cfg, nil).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.UserID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rpc/linkProvider", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := auth.Sign(cfg, "u9", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/rpc/linkProvider", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u9", seen)
}
