package security

import (
	"PShare/global"
	"PShare/logger"
	"PShare/tools/errs"
	jwtsec "PShare/tools/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	JWT jwtsec.Options
}

func DefaultOptions(secret []byte) *Options {
	return &Options{JWT: jwtsec.DefaultOptions(secret)}
}

// Middleware authenticates REST calls with the same credential the websocket handshake uses:
// the `token` cookie, or a bearer header. The caller id lands in the context as global.UserSession.
func Middleware(opts *Options) gin.HandlerFunc {
	if opts == nil {
		panic("security middleware needs options")
	}
	return func(c *gin.Context) {
		token := jwtsec.ExtractToken(c.Request)
		if token == "" {
			global.Fail(c, errs.ErrMissingCredential.Wrap())
			return
		}
		claims, err := jwtsec.Verify(opts.JWT, token)
		if err != nil {
			logger.Debug("[auth] token rejected", zap.String("path", c.FullPath()), zap.Error(err))
			global.Fail(c, err)
			return
		}
		global.SetSession(c, global.UserSession{UserID: claims.UserID})
		c.Next()
	}
}
