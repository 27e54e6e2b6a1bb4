package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/enum"
)

func TestMultiErrors(t *testing.T) {
	errs := NewMultiErrors()
	assert.False(t, errs.HasErrors())

	errs.Add("userId", "is required", nil)
	assert.True(t, errs.HasErrors())
	assert.Equal(t, CodeUserIdMissing, errs.Response().Error.Code)

	errs.Add("folders", "entry 0 is empty", nil)
	assert.Equal(t, "folders: entry 0 is empty | userId: is required", errs.Error())

	response := errs.Response()
	assert.Equal(t, TypeValidation, response.Error.Type)
	assert.Equal(t, CodeInvalidRequest, response.Error.Code)
}

func TestFromSyncError(t *testing.T) {
	response := FromSyncError(&dto.SyncError{
		Kind:        enum.SyncErrorAuthentication,
		Code:        "AUTH_FAILED",
		Message:     "LOGIN failed",
		UserMessage: "Authentication failed",
		Solution:    "Use an app password",
	})

	assert.Equal(t, "authentication", response.Error.Type)
	assert.Equal(t, "AUTH_FAILED", response.Error.Code)
	assert.Equal(t, "Use an app password", response.Error.Solution)
}
