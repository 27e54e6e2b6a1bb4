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
)

type diagnosticReportRepository struct {
	db *gorm.DB
}

func NewDiagnosticReportRepository(db *gorm.DB) interfaces.DiagnosticReportRepository {
	return &diagnosticReportRepository{db: db}
}

func (r *diagnosticReportRepository) Save(ctx context.Context, report *models.DiagnosticReportRecord) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "diagnosticReportRepository.Save")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUser(span, report.UserID)

	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to save diagnostic report: %w", err)
	}
	return nil
}

// GetLatest returns the most recent report of the user, or nil when none exists.
func (r *diagnosticReportRepository) GetLatest(ctx context.Context, userID string) (*models.DiagnosticReportRecord, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "diagnosticReportRepository.GetLatest")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagUser(span, userID)

	var report models.DiagnosticReportRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get latest diagnostic report: %w", err)
	}
	return &report, nil
}
