package gateway

import (
	"net/http"

	"PShare/tools/security"
)

// Authenticator turns the handshake request into a user id.
type Authenticator struct {
	opts security.Options
}

func NewAuthenticator(opts security.Options) *Authenticator {
	return &Authenticator{opts: opts}
}

// Authenticate reads the session cookie (or a bearer header) and verifies it.
// Failures carry errs.MissingCredential or errs.InvalidOrExpiredCredential.
func (a *Authenticator) Authenticate(r *http.Request) (string, error) {
	claims, err := security.Verify(a.opts, security.ExtractToken(r))
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}
