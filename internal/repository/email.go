package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/customeros/mailsync/interfaces"
	mailsyncerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
)

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) interfaces.EmailRepository {
	return &emailRepository{
		db: db,
	}
}

type knownIdentifierRow struct {
	ID        string
	RemoteUID uint32
	MessageID string
}

// GetKnownIdentifiers loads the remote uids and message ids already stored for a folder.
func (r *emailRepository) GetKnownIdentifiers(ctx context.Context, userID, folderID string) (*interfaces.KnownIdentifiers, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetKnownIdentifiers")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUser(span, userID)
	tracing.TagEntity(span, folderID)

	var rows []knownIdentifierRow
	err := r.db.WithContext(ctx).
		Model(&models.EmailMessage{}).
		Select("id, remote_uid, message_id").
		Where("user_id = ? AND folder_id = ? AND is_deleted = ?", userID, folderID, false).
		Scan(&rows).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to load known identifiers: %w", err)
	}

	known := interfaces.NewKnownIdentifiers()
	for _, row := range rows {
		if row.RemoteUID > 0 {
			known.UIDs[row.RemoteUID] = row.ID
		}
		if row.MessageID != "" {
			known.MessageIDs[row.MessageID] = row.ID
		}
	}
	span.LogKV("uids", len(known.UIDs), "messageIds", len(known.MessageIDs))
	return known, nil
}

// Create inserts a new message. When a live row with the same (user, folder, uid)
// exists it returns ErrEmailAlreadyExists and sets email.ID to the stored row.
func (r *emailRepository) Create(ctx context.Context, email *models.EmailMessage) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUser(span, email.UserID)

	if err := r.db.WithContext(ctx).Create(email).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existingID, lookupErr := r.idByUID(ctx, email.UserID, email.FolderID, email.RemoteUID)
			if lookupErr != nil {
				tracing.TraceErr(span, lookupErr)
			}
			email.ID = existingID
			span.LogKV("duplicate.uid", email.RemoteUID, "existing.id", existingID)
			return fmt.Errorf("%w: uid %d", mailsyncerrors.ErrEmailAlreadyExists, email.RemoteUID)
		}
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to create email: %w", err)
	}
	span.SetTag("email.id", email.ID)
	return nil
}

func (r *emailRepository) idByUID(ctx context.Context, userID, folderID string, uid uint32) (string, error) {
	var id string
	err := r.db.WithContext(ctx).
		Model(&models.EmailMessage{}).
		Select("id").
		Where("user_id = ? AND folder_id = ? AND remote_uid = ? AND is_deleted = ?", userID, folderID, uid, false).
		Limit(1).
		Scan(&id).Error
	return id, err
}

func (r *emailRepository) UpdateFlagsByUID(ctx context.Context, userID, folderID string, uid uint32, update interfaces.FlagUpdate) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.UpdateFlagsByUID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUser(span, userID)
	span.SetTag("uid", uid)

	return r.updateFlags(span,
		r.db.WithContext(ctx).Where("user_id = ? AND folder_id = ? AND remote_uid = ?", userID, folderID, uid),
		update)
}

func (r *emailRepository) UpdateFlagsByMessageID(ctx context.Context, userID, folderID, messageID string, update interfaces.FlagUpdate) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.UpdateFlagsByMessageID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUser(span, userID)
	span.SetTag("message.id", messageID)

	return r.updateFlags(span,
		r.db.WithContext(ctx).Where("user_id = ? AND folder_id = ? AND message_id = ?", userID, folderID, messageID),
		update)
}

// updateFlags only touches the mutable flag columns. Content is written once at insert.
func (r *emailRepository) updateFlags(span opentracing.Span, scope *gorm.DB, update interfaces.FlagUpdate) error {
	result := scope.
		Model(&models.EmailMessage{}).
		Where("is_deleted = ?", false).
		Updates(map[string]interface{}{
			"flags":      pq.StringArray(update.Flags),
			"is_read":    update.IsRead,
			"is_starred": update.IsStarred,
			"updated_at": update.UpdatedAt,
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to update email flags: %w", result.Error)
	}
	span.LogKV("affectedRows", result.RowsAffected)
	return nil
}
