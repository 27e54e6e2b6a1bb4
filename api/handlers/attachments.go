package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	apierrors "github.com/customeros/mailsync/api/errors"
	"github.com/customeros/mailsync/interfaces"
	mailsyncerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/tracing"
)

// DownloadAttachment streams the stored content of an attachment.
func DownloadAttachment(attachments interfaces.EmailAttachmentRepository, storage interfaces.StorageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AttachmentHandler.DownloadAttachment")
		defer span.Finish()
		tracing.TagComponentRest(span)

		attachmentID := c.Param("id")
		tracing.TagEntity(span, attachmentID)

		if storage == nil {
			c.JSON(http.StatusServiceUnavailable, apierrors.Unavailable("attachment storage is not configured"))
			return
		}

		attachment, err := attachments.GetByID(ctx, attachmentID)
		if err != nil {
			tracing.TraceErr(span, err)
			writeError(c, err)
			return
		}
		if attachment == nil || attachment.StorageKey == "" {
			writeError(c, mailsyncerrors.ErrAttachmentNotFound)
			return
		}

		data, err := storage.Download(ctx, attachment.StorageKey)
		if err != nil {
			tracing.TraceErr(span, err)
			writeError(c, err)
			return
		}

		contentType := attachment.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.Filename))
		c.Data(http.StatusOK, contentType, data)
	}
}
