package transport

import (
	"errors"
	"testing"

	"github.com/barjr/ResQ/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestClassify_UnknownError(t *testing.T) {
	// 无法识别的错误保守归类为 unknown，永远不会触发清除
	kind := classify(errors.New("something broke"))

	assert.Equal(t, models.ErrorKindUnknown, kind)
	assert.False(t, kind.IsPermanent())
}

func TestClassify_NilError(t *testing.T) {
	assert.Equal(t, models.ErrorKindUnknown, classify(nil))
}

func TestErrMessage(t *testing.T) {
	assert.Equal(t, "", errMessage(nil))
	assert.Equal(t, "boom", errMessage(errors.New("boom")))
}

func TestPermanentKinds(t *testing.T) {
	// 清除只由这两类触发
	assert.True(t, models.ErrorKindUnregistered.IsPermanent())
	assert.True(t, models.ErrorKindInvalidToken.IsPermanent())
	assert.False(t, models.ErrorKindRateLimited.IsPermanent())
	assert.False(t, models.ErrorKindTransient.IsPermanent())
	assert.False(t, models.ErrorKindUnknown.IsPermanent())
}
