package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	apierrors "github.com/customeros/mailsync/api/errors"
	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/services/diagnostics"
)

// SyncFolder runs a full scan of one folder and reports the counters.
func SyncFolder(syncService interfaces.SyncService) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.SyncFolder")
		defer span.Finish()
		tracing.TagComponentRest(span)

		var request dto.SyncFolderRequest
		if err := c.ShouldBindJSON(&request); err != nil && c.Request.ContentLength > 0 {
			validation := apierrors.NewMultiErrors()
			validation.Add("body", "must be a JSON object", err)
			c.JSON(http.StatusBadRequest, validation.Response())
			return
		}
		request.UserID = userIdOrDefault(c, request.UserID)
		tracing.TagUser(span, request.UserID)

		result, err := syncService.SyncFolder(ctx, request.UserID, request.FolderName)
		if err != nil {
			tracing.TraceErr(span, err)
			writeError(c, err)
			return
		}

		if !result.Success {
			syncErr := result.Error
			if syncErr == nil {
				syncErr = diagnostics.ClassifyMessage("folder sync failed")
			}
			c.JSON(http.StatusInternalServerError, apierrors.FromSyncError(syncErr))
			return
		}

		c.JSON(http.StatusOK, dto.SyncFolderResponse{
			Synced:  result.Synced,
			New:     result.New,
			Updated: result.Updated,
			Message: syncMessage(result),
		})
	}
}

func syncMessage(result *dto.SyncResult) string {
	message := fmt.Sprintf("Synced %d messages from %s (%d new, %d updated)", result.Synced, result.Folder, result.New, result.Updated)
	if result.Errors > 0 {
		message += fmt.Sprintf(", %d skipped", result.Errors)
	}
	return message
}

// SyncAccount syncs several folders and returns the diagnostic report.
func SyncAccount(syncService interfaces.SyncService) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.SyncAccount")
		defer span.Finish()
		tracing.TagComponentRest(span)

		var request dto.SyncAccountRequest
		if err := c.ShouldBindJSON(&request); err != nil && c.Request.ContentLength > 0 {
			validation := apierrors.NewMultiErrors()
			validation.Add("body", "must be a JSON object", err)
			c.JSON(http.StatusBadRequest, validation.Response())
			return
		}
		request.UserID = userIdOrDefault(c, request.UserID)
		tracing.TagUser(span, request.UserID)

		validation := apierrors.NewMultiErrors()
		if request.UserID == "" {
			validation.Add("userId", "is required", nil)
		}
		for i, folder := range request.Folders {
			if strings.TrimSpace(folder) == "" {
				validation.Add("folders", fmt.Sprintf("entry %d is empty", i), nil)
			}
		}
		if validation.HasErrors() {
			c.JSON(http.StatusBadRequest, validation.Response())
			return
		}

		report, err := syncService.SyncAccount(ctx, request.UserID, request.Folders)
		if err != nil {
			tracing.TraceErr(span, err)
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, report)
	}
}

// RequestSync queues an account sync on the broker and returns immediately.
func RequestSync(publisher interfaces.EventPublisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.RequestSync")
		defer span.Finish()
		tracing.TagComponentRest(span)

		var request dto.SyncAccountRequest
		if err := c.ShouldBindJSON(&request); err != nil && c.Request.ContentLength > 0 {
			validation := apierrors.NewMultiErrors()
			validation.Add("body", "must be a JSON object", err)
			c.JSON(http.StatusBadRequest, validation.Response())
			return
		}
		request.UserID = userIdOrDefault(c, request.UserID)
		tracing.TagUser(span, request.UserID)

		if request.UserID == "" {
			validation := apierrors.NewMultiErrors()
			validation.Add("userId", "is required", nil)
			c.JSON(http.StatusBadRequest, validation.Response())
			return
		}

		if publisher == nil {
			c.JSON(http.StatusServiceUnavailable, apierrors.Unavailable("Sync requests are disabled because no message broker is configured"))
			return
		}

		err := publisher.PublishSyncRequested(ctx, dto.SyncRequested{UserID: request.UserID, Folders: request.Folders})
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusServiceUnavailable, apierrors.Unavailable("Sync request could not be queued"))
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"status": "queued", "userId": request.UserID})
	}
}
