package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeErrorIsIgnoresDetail(t *testing.T) {
	err := ErrFileNotFound.WrapMsg("lookup", "fileId", "abc")
	assert.True(t, errors.Is(err, ErrFileNotFound))
	assert.False(t, errors.Is(err, ErrReceiverNotConnected))
	assert.Contains(t, err.Error(), "fileId=abc")
}

func TestHasCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", ErrMissingCredential.Wrap())
	assert.True(t, HasCode(err, MissingCredential))
	assert.False(t, HasCode(errors.New("plain"), MissingCredential))

	ce, ok := AsCode(err)
	assert.True(t, ok)
	assert.Equal(t, "Authentication error: No token provided", ce.Msg)
}

func TestWrapMsgKeyValues(t *testing.T) {
	err := WrapMsg(errors.New("boom"), "find file", "id", 7, "dangling")
	assert.Equal(t, "find file, id=7, dangling=MISSING: boom", err.Error())
	assert.Nil(t, WrapMsg(nil, "x"))
	assert.Nil(t, Wrap(nil))
}

func TestErrPanic(t *testing.T) {
	assert.Nil(t, ErrPanic(nil))
	err := ErrPanic("kaboom")
	ce, ok := AsCode(err)
	assert.True(t, ok)
	assert.Equal(t, ServerInternalError, ce.Code)
	assert.Equal(t, "kaboom", ce.Detail)
}
