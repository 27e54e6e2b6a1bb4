package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
)

type emailCredentialsRepository struct {
	db *gorm.DB
}

func NewEmailCredentialsRepository(db *gorm.DB) interfaces.EmailCredentialsRepository {
	return &emailCredentialsRepository{db: db}
}

func (r *emailCredentialsRepository) GetByUserID(ctx context.Context, userID string) (*models.EmailCredentials, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailCredentialsRepository.GetByUserID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUser(span, userID)

	var credentials models.EmailCredentials
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&credentials).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get email credentials: %w", err)
	}
	return &credentials, nil
}

func (r *emailCredentialsRepository) List(ctx context.Context) ([]*models.EmailCredentials, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailCredentialsRepository.List")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var credentials []*models.EmailCredentials
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&credentials).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list email credentials: %w", err)
	}
	span.LogKV("count", len(credentials))
	return credentials, nil
}

// Save inserts the credentials or replaces the existing configuration of the same user.
func (r *emailCredentialsRepository) Save(ctx context.Context, credentials *models.EmailCredentials) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailCredentialsRepository.Save")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUser(span, credentials.UserID)

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"email_address", "provider",
				"imap_server", "imap_port", "imap_username", "imap_password", "imap_tls",
				"smtp_server", "smtp_port", "smtp_username", "smtp_password", "smtp_tls",
				"updated_at",
			}),
		}).
		Create(credentials).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to save email credentials: %w", err)
	}
	return nil
}
