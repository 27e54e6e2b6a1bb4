package syncer

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/internal/utils"
	"github.com/customeros/mailsync/services/email_processor"
)

// AttachmentExtractor persists attachment metadata of newly inserted messages and,
// when storage is configured, uploads their content.
type AttachmentExtractor struct {
	attachments interfaces.EmailAttachmentRepository
	storage     interfaces.StorageService
	log         logger.Logger
}

func NewAttachmentExtractor(attachments interfaces.EmailAttachmentRepository, storage interfaces.StorageService, log logger.Logger) *AttachmentExtractor {
	return &AttachmentExtractor{
		attachments: attachments,
		storage:     storage,
		log:         log,
	}
}

// Extract stores every descriptor and returns how many rows were written. Failures
// are reported as warnings; the parent message stays persisted.
func (e *AttachmentExtractor) Extract(ctx context.Context, userID, emailID string, descriptors []email_processor.AttachmentDescriptor) (int, []string) {
	if len(descriptors) == 0 {
		return 0, nil
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "AttachmentExtractor.Extract")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, emailID)
	span.LogKV("attachments", len(descriptors))

	var warnings []string
	stored := 0
	for _, descriptor := range descriptors {
		attachment := &models.EmailAttachment{
			ID:          utils.GenerateNanoIDWithPrefix("file", 12),
			EmailID:     emailID,
			Filename:    descriptor.Filename,
			ContentType: descriptor.ContentType,
			ContentID:   descriptor.ContentID,
			SizeBytes:   descriptor.SizeBytes,
			IsInline:    descriptor.IsInline,
		}

		if e.storage != nil && len(descriptor.Content) > 0 {
			key := storageKey(userID, emailID, attachment.ID, descriptor.ContentType)
			if err := e.storage.Upload(ctx, key, descriptor.Content, descriptor.ContentType); err != nil {
				tracing.TraceErr(span, err)
				e.log.Warnf("[%s][%s] Failed to upload attachment %q: %v", userID, emailID, descriptor.Filename, err)
				warnings = append(warnings, fmt.Sprintf("attachment %q of email %s was not uploaded: %v", descriptor.Filename, emailID, err))
			} else {
				attachment.StorageBucket = e.storage.Bucket()
				attachment.StorageKey = key
			}
		}

		if err := e.attachments.Create(ctx, attachment); err != nil {
			tracing.TraceErr(span, err)
			e.log.Warnf("[%s][%s] Failed to save attachment %q: %v", userID, emailID, descriptor.Filename, err)
			if attachment.StorageKey != "" {
				if delErr := e.storage.Delete(ctx, attachment.StorageKey); delErr != nil {
					e.log.Warnf("[%s][%s] Failed to remove orphaned upload %s: %v", userID, emailID, attachment.StorageKey, delErr)
				}
			}
			warnings = append(warnings, fmt.Sprintf("attachment %q of email %s was not saved: %v", descriptor.Filename, emailID, err))
			continue
		}
		stored++
	}

	return stored, warnings
}

func storageKey(userID, emailID, attachmentID, contentType string) string {
	return fmt.Sprintf("%s/%s/%s.%s", userID, emailID, attachmentID, utils.GetFileExtensionFromContentType(contentType))
}
