package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/customeros/mailsync/api/errors"
	mailsyncerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/services/diagnostics"
)

// writeError maps service errors onto a status code and a structured body.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, mailsyncerrors.ErrUserIdMissing):
		validation := apierrors.NewMultiErrors()
		validation.Add("userId", "is required", err)
		c.JSON(http.StatusBadRequest, validation.Response())
	case errors.Is(err, mailsyncerrors.ErrCredentialsNotFound),
		errors.Is(err, mailsyncerrors.ErrReportNotFound),
		errors.Is(err, mailsyncerrors.ErrAttachmentNotFound):
		c.JSON(http.StatusNotFound, apierrors.NotFound(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, apierrors.FromSyncError(diagnostics.Classify(err)))
	}
}

func userIdOrDefault(c *gin.Context, userId string) string {
	if userId != "" {
		return userId
	}
	return c.GetString("UserId")
}
