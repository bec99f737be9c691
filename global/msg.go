package global

import (
	"net/http"

	"PShare/logger"
	"PShare/tools/errs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Msg struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// OK writes data as the plain JSON body.
func OK(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// Fail aborts the request with a {code,msg} body. The HTTP status follows the error code;
// anything without a code is logged and reported as a generic server error.
func Fail(c *gin.Context, err error) {
	ce, ok := errs.AsCode(err)
	if !ok {
		logger.Error("[http] unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
		ce = errs.ErrInternal
	}
	c.AbortWithStatusJSON(StatusOf(ce.Code), &Msg{Code: ce.Code, Msg: ce.Msg})
}

func StatusOf(code int) int {
	switch code {
	case errs.BadRequest, errs.InvalidRequest:
		return http.StatusBadRequest
	case errs.Unauthorized, errs.MissingCredential, errs.InvalidOrExpiredCredential:
		return http.StatusUnauthorized
	case errs.Forbidden:
		return http.StatusForbidden
	case errs.NotFound, errs.FileNotFound:
		return http.StatusNotFound
	case errs.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
