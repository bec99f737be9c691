package global

import "github.com/gin-gonic/gin"

// CtxSessionKey is the gin context key under which the auth middleware stores the caller.
const CtxSessionKey = "pshare.session"

// UserSession is the authenticated caller of a REST request.
type UserSession struct {
	UserID string `json:"user_id"`
}

func SetSession(c *gin.Context, s UserSession) {
	c.Set(CtxSessionKey, s)
}

// SessionFrom returns the caller bound by the auth middleware; ok is false on public routes.
func SessionFrom(c *gin.Context) (UserSession, bool) {
	v, ok := c.Get(CtxSessionKey)
	if !ok {
		return UserSession{}, false
	}
	s, ok := v.(UserSession)
	return s, ok && s.UserID != ""
}
