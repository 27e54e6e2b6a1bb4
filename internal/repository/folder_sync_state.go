package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/internal/utils"
)

type folderSyncStateRepository struct {
	db *gorm.DB
}

func NewFolderSyncStateRepository(db *gorm.DB) interfaces.FolderSyncStateRepository {
	return &folderSyncStateRepository{db: db}
}

// GetSyncState retrieves the sync state for a specific user and folder
func (r *folderSyncStateRepository) GetSyncState(ctx context.Context, userID, folderName string) (*models.FolderSyncState, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderSyncStateRepository.GetSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUser(span, userID)
	tracing.TagFolder(span, folderName)

	var state models.FolderSyncState
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND folder_name = ?", userID, folderName).
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // No sync state yet
		}
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	return &state, nil
}

func (r *folderSyncStateRepository) GetUserSyncStates(ctx context.Context, userID string) ([]*models.FolderSyncState, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderSyncStateRepository.GetUserSyncStates")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUser(span, userID)

	var states []*models.FolderSyncState
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("folder_name ASC").
		Find(&states).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get user sync states: %w", err)
	}

	return states, nil
}

// SaveSyncState updates the state row of the folder, creating it on first save
func (r *folderSyncStateRepository) SaveSyncState(ctx context.Context, state *models.FolderSyncState) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "folderSyncStateRepository.SaveSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUser(span, state.UserID)
	tracing.TagFolder(span, state.FolderName)

	state.UpdatedAt = utils.Now()

	// Try to update first
	result := r.db.WithContext(ctx).
		Model(&models.FolderSyncState{}).
		Where("user_id = ? AND folder_name = ?", state.UserID, state.FolderName).
		Updates(map[string]interface{}{
			"status":          state.Status,
			"last_uid":        state.LastUID,
			"last_sync":       state.LastSync,
			"last_success_at": state.LastSuccessAt,
			"error_count":     state.ErrorCount,
			"synced_count":    state.SyncedCount,
			"last_error":      state.LastError,
			"updated_at":      state.UpdatedAt,
		})

	// If no record was updated, create a new one
	if result.Error == nil && result.RowsAffected == 0 {
		result = r.db.WithContext(ctx).Create(state)
	}

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to save sync state: %w", result.Error)
	}

	return nil
}
