package errs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Error codes. 1xxx handshake, 2xxx dispatch resolution, 4xxx request, 5xxx internal.
const (
	MissingCredential          = 1001
	InvalidOrExpiredCredential = 1002

	ReceiverNotConnected = 2001
	FileNotFound         = 2002
	InvalidRequest       = 2003

	BadRequest   = 4000
	Unauthorized = 4001
	Forbidden    = 4003
	NotFound     = 4004
	Conflict     = 4009

	ServerInternalError = 5000
	TransferFailed      = 5001
)

var (
	ErrMissingCredential          = NewCodeError(MissingCredential, "Authentication error: No token provided")
	ErrInvalidOrExpiredCredential = NewCodeError(InvalidOrExpiredCredential, "Authentication error: Invalid token")
	ErrReceiverNotConnected       = NewCodeError(ReceiverNotConnected, "Receiver not connected")
	ErrFileNotFound               = NewCodeError(FileNotFound, "File not found")
	ErrInvalidRequest             = NewCodeError(InvalidRequest, "Invalid transfer request")
	ErrTransferFailed             = NewCodeError(TransferFailed, "Something went wrong during file transfer")

	ErrBadRequest   = NewCodeError(BadRequest, "Bad request")
	ErrUnauthorized = NewCodeError(Unauthorized, "Unauthorized")
	ErrForbidden    = NewCodeError(Forbidden, "Unauthorized access")
	ErrNotFound     = NewCodeError(NotFound, "Not found")
	ErrConflict     = NewCodeError(Conflict, "Already exists")
	ErrInternal     = NewCodeError(ServerInternalError, "Server error")
)

func NewCodeError(code int, msg string) CodeError {
	return CodeError{
		Code: code,
		Msg:  msg,
	}
}

// CodeError is the user facing error shape; it is also the JSON body of failed REST calls.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

// Wrap attaches a stack to the code error.
func (e CodeError) Wrap() error {
	return pkgerrors.WithStack(e)
}

// WrapMsg clones e, appends msg and key/value pairs to its detail and attaches a stack.
func (e CodeError) WrapMsg(msg string, kv ...any) error {
	ret := e
	if msg != "" || len(kv) > 0 {
		detail := toString(msg, kv)
		if ret.Detail == "" {
			ret.Detail = detail
		} else {
			ret.Detail += ", " + detail
		}
	}
	return pkgerrors.WithStack(ret)
}

// Is matches any CodeError with the same code, whatever its detail.
func (e CodeError) Is(target error) bool {
	var ce CodeError
	if !errors.As(target, &ce) {
		return false
	}
	return ce.Code == e.Code
}

func (e CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// AsCode extracts the CodeError carried by err, if any.
func AsCode(err error) (CodeError, bool) {
	var ce CodeError
	if errors.As(err, &ce) {
		return ce, true
	}
	return CodeError{}, false
}

// HasCode reports whether err carries a CodeError with the given code.
func HasCode(err error, code int) bool {
	ce, ok := AsCode(err)
	return ok && ce.Code == code
}

// Is is errors.Is, so callers need only this package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func New(msg string, kv ...any) error {
	return pkgerrors.New(toString(msg, kv))
}

func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return pkgerrors.WithStack(err)
}

func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, toString(msg, kv))
}

func toString(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprint(kv[i]))
		sb.WriteString("=")
		if i+1 < len(kv) {
			sb.WriteString(fmt.Sprint(kv[i+1]))
		} else {
			sb.WriteString("MISSING")
		}
	}
	return sb.String()
}
