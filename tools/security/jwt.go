package security

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"PShare/tools/errs"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie carrying the session credential, for REST calls and the websocket upgrade.
const CookieName = "token"

// Options controls signing and TTL.
type Options struct {
	Secret []byte        // HMAC secret, shared by issuer and verifier
	Alg    string        // HS256/HS384/HS512 (default HS256)
	TTL    time.Duration // default 1h
	Now    func() time.Time
}

// Claims is what the service puts in and reads back out of a session token.
type Claims struct {
	UserID string `json:"id"`
	jwtlib.RegisteredClaims
}

func DefaultOptions(secret []byte) Options {
	return Options{Secret: secret, Alg: "HS256", TTL: time.Hour}
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Generate issues a signed token for userID.
func Generate(opts Options, userID string) (token string, expireAt time.Time, err error) {
	if len(opts.Secret) == 0 {
		return "", time.Time{}, errs.New("jwt secret is empty")
	}
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, errs.New("jwt user id is empty")
	}
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", time.Time{}, err
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	now := opts.now()
	exp := now.Add(opts.TTL)

	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			NotBefore: jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(exp),
		},
	}
	signed, err := jwtlib.NewWithClaims(method, claims).SignedString(opts.Secret)
	if err != nil {
		return "", time.Time{}, errs.WrapMsg(err, "sign token")
	}
	return signed, exp, nil
}

// Verify checks signature, algorithm family and expiry. Every failure is reported as
// errs.ErrInvalidOrExpiredCredential with the cause in the detail.
func Verify(opts Options, token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errs.ErrMissingCredential.Wrap()
	}
	if _, err := signingMethod(opts.Alg); err != nil {
		return nil, err
	}
	claims := &Claims{}
	parsed, err := jwtlib.ParseWithClaims(token, claims, func(t *jwtlib.Token) (interface{}, error) {
		// HMAC family only
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return opts.Secret, nil
	}, jwtlib.WithTimeFunc(opts.now), jwtlib.WithExpirationRequired())
	if err != nil {
		return nil, errs.ErrInvalidOrExpiredCredential.WrapMsg(err.Error())
	}
	if !parsed.Valid {
		return nil, errs.ErrInvalidOrExpiredCredential.WrapMsg("token not valid")
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, errs.ErrInvalidOrExpiredCredential.WrapMsg("token has no user id")
	}
	return claims, nil
}

// ExtractToken reads the credential from the `token` cookie, falling back to
// `Authorization: Bearer` for non-browser clients. Empty string when absent.
func ExtractToken(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v
		}
	}
	if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
		if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
	}
	return ""
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported alg: %s (use HS256/HS384/HS512)", alg)
	}
}
