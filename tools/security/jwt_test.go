package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"PShare/tools/errs"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestGenerateVerifyRoundTrip(t *testing.T) {
	opts := DefaultOptions(secret)
	tok, exp, err := Generate(opts, "u1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := Verify(opts, tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "u1", claims.Subject)
}

func TestVerifyExpired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	opts := DefaultOptions(secret)
	opts.Now = func() time.Time { return past }
	tok, _, err := Generate(opts, "u1")
	require.NoError(t, err)

	_, err = Verify(DefaultOptions(secret), tok)
	assert.True(t, errs.HasCode(err, errs.InvalidOrExpiredCredential))
}

func TestVerifyWrongSecretAndGarbage(t *testing.T) {
	tok, _, err := Generate(DefaultOptions(secret), "u1")
	require.NoError(t, err)

	_, err = Verify(DefaultOptions([]byte("other")), tok)
	assert.True(t, errs.HasCode(err, errs.InvalidOrExpiredCredential))

	_, err = Verify(DefaultOptions(secret), "not.a.jwt")
	assert.True(t, errs.HasCode(err, errs.InvalidOrExpiredCredential))

	_, err = Verify(DefaultOptions(secret), "  ")
	assert.True(t, errs.HasCode(err, errs.MissingCredential))
}

func TestVerifyRejectsNoneAlg(t *testing.T) {
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, jwtlib.MapClaims{
		"id":  "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = Verify(DefaultOptions(secret), s)
	assert.True(t, errs.HasCode(err, errs.InvalidOrExpiredCredential))
}

func TestVerifyFallsBackToSubject(t *testing.T) {
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": "u9",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString(secret)
	require.NoError(t, err)

	claims, err := Verify(DefaultOptions(secret), s)
	require.NoError(t, err)
	assert.Equal(t, "u9", claims.UserID)
}

func TestVerifyRequiresExpiry(t *testing.T) {
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{"id": "u1"})
	s, err := tok.SignedString(secret)
	require.NoError(t, err)

	_, err = Verify(DefaultOptions(secret), s)
	assert.True(t, errs.HasCode(err, errs.InvalidOrExpiredCredential))
}

func TestGenerateRejectsEmpty(t *testing.T) {
	_, _, err := Generate(DefaultOptions(nil), "u1")
	assert.Error(t, err)
	_, _, err = Generate(DefaultOptions(secret), "")
	assert.Error(t, err)
	_, _, err = Generate(Options{Secret: secret, Alg: "RS256"}, "u1")
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.Empty(t, ExtractToken(r))

	r.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", ExtractToken(r))

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "fromcookie"})
	assert.Equal(t, "fromcookie", ExtractToken(r))

	r2 := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r2.Header.Set("Authorization", "Basic zzz")
	assert.Empty(t, ExtractToken(r2))
}
