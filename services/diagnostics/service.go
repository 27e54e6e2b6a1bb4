package diagnostics

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/dto"
	mailsyncerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/repository"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/internal/utils"
)

type DiagnosticsService struct {
	repositories *repository.Repositories
	now          func() time.Time
}

func NewDiagnosticsService(repositories *repository.Repositories) *DiagnosticsService {
	return &DiagnosticsService{
		repositories: repositories,
		now:          utils.Now,
	}
}

// LatestReport returns the most recent stored diagnostic report of a user.
func (s *DiagnosticsService) LatestReport(ctx context.Context, userID string) (*dto.DiagnosticReport, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "DiagnosticsService.LatestReport")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUser(span, userID)

	if userID == "" {
		return nil, mailsyncerrors.ErrUserIdMissing
	}

	record, err := s.repositories.DiagnosticReportRepository.GetLatest(ctx, userID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if record == nil {
		return nil, mailsyncerrors.ErrReportNotFound
	}

	var report dto.DiagnosticReport
	if err := record.Report.Decode(&report); err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to decode diagnostic report %s: %w", record.ID, err)
	}
	report.ID = record.ID
	return &report, nil
}

// AccountHealth evaluates every synced folder of a user and the account as a whole.
func (s *DiagnosticsService) AccountHealth(ctx context.Context, userID string) (*dto.HealthReport, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "DiagnosticsService.AccountHealth")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUser(span, userID)

	if userID == "" {
		return nil, mailsyncerrors.ErrUserIdMissing
	}

	credentials, err := s.repositories.EmailCredentialsRepository.GetByUserID(ctx, userID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if credentials == nil {
		return nil, fmt.Errorf("%w for user %s", mailsyncerrors.ErrCredentialsNotFound, userID)
	}

	states, err := s.repositories.FolderSyncStateRepository.GetUserSyncStates(ctx, userID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	now := s.now()
	health := &dto.HealthReport{
		UserID:  userID,
		Folders: make([]dto.FolderHealth, 0, len(states)),
	}
	for _, state := range states {
		health.ErrorCount += state.ErrorCount
		health.SyncedCount += state.SyncedCount
		if state.LastSuccessAt != nil && (health.LastSync == nil || state.LastSuccessAt.After(*health.LastSync)) {
			lastSuccess := *state.LastSuccessAt
			health.LastSync = &lastSuccess
		}

		health.Folders = append(health.Folders, dto.FolderHealth{
			Folder:      state.FolderName,
			Status:      EvaluateHealth(state.LastSuccessAt, state.ErrorCount, state.SyncedCount, now),
			LastSync:    state.LastSuccessAt,
			ErrorCount:  state.ErrorCount,
			SyncedCount: state.SyncedCount,
			LastError:   state.LastError,
		})
	}
	health.Status = EvaluateHealth(health.LastSync, health.ErrorCount, health.SyncedCount, now)

	span.SetTag("health.status", string(health.Status))
	return health, nil
}
