package diagnostics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/enum"
	mailsyncerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/repository"
)

type mockReportRepository struct{ mock.Mock }

func (m *mockReportRepository) Save(ctx context.Context, report *models.DiagnosticReportRecord) error {
	return m.Called(ctx, report).Error(0)
}

func (m *mockReportRepository) GetLatest(ctx context.Context, userID string) (*models.DiagnosticReportRecord, error) {
	args := m.Called(ctx, userID)
	record, _ := args.Get(0).(*models.DiagnosticReportRecord)
	return record, args.Error(1)
}

type mockCredentialsRepository struct{ mock.Mock }

func (m *mockCredentialsRepository) GetByUserID(ctx context.Context, userID string) (*models.EmailCredentials, error) {
	args := m.Called(ctx, userID)
	credentials, _ := args.Get(0).(*models.EmailCredentials)
	return credentials, args.Error(1)
}

func (m *mockCredentialsRepository) List(ctx context.Context) ([]*models.EmailCredentials, error) {
	args := m.Called(ctx)
	credentials, _ := args.Get(0).([]*models.EmailCredentials)
	return credentials, args.Error(1)
}

func (m *mockCredentialsRepository) Save(ctx context.Context, credentials *models.EmailCredentials) error {
	return m.Called(ctx, credentials).Error(0)
}

type mockStateRepository struct{ mock.Mock }

func (m *mockStateRepository) GetSyncState(ctx context.Context, userID, folderName string) (*models.FolderSyncState, error) {
	args := m.Called(ctx, userID, folderName)
	state, _ := args.Get(0).(*models.FolderSyncState)
	return state, args.Error(1)
}

func (m *mockStateRepository) GetUserSyncStates(ctx context.Context, userID string) ([]*models.FolderSyncState, error) {
	args := m.Called(ctx, userID)
	states, _ := args.Get(0).([]*models.FolderSyncState)
	return states, args.Error(1)
}

func (m *mockStateRepository) SaveSyncState(ctx context.Context, state *models.FolderSyncState) error {
	return m.Called(ctx, state).Error(0)
}

type diagnosticsFixture struct {
	reports     *mockReportRepository
	credentials *mockCredentialsRepository
	states      *mockStateRepository
	service     *DiagnosticsService
	now         time.Time
}

func newDiagnosticsFixture() *diagnosticsFixture {
	f := &diagnosticsFixture{
		reports:     &mockReportRepository{},
		credentials: &mockCredentialsRepository{},
		states:      &mockStateRepository{},
		now:         time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewDiagnosticsService(&repository.Repositories{
		EmailCredentialsRepository: f.credentials,
		FolderSyncStateRepository:  f.states,
		DiagnosticReportRepository: f.reports,
	})
	f.service.now = func() time.Time { return f.now }
	return f
}

func TestLatestReport(t *testing.T) {
	f := newDiagnosticsFixture()

	report := BuildReport(dto.ConfigSummary{Email: "jane@example.com"}, []dto.SyncResult{
		{Folder: "INBOX", Success: true, Synced: 4, Errors: 1, Warnings: []string{"message uid 3 could not be parsed"}},
	}, f.now)
	payload, err := models.ToJSONMap(report)
	require.NoError(t, err)

	f.reports.On("GetLatest", mock.Anything, "user-1").
		Return(&models.DiagnosticReportRecord{ID: "diag-1", UserID: "user-1", Report: payload}, nil)

	latest, err := f.service.LatestReport(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "diag-1", latest.ID)
	assert.Equal(t, 80, latest.Summary.SuccessRate)
	require.Len(t, latest.FolderResults, 1)
	assert.Equal(t, []string{"message uid 3 could not be parsed"}, latest.FolderResults[0].Warnings)
	f.reports.AssertExpectations(t)
}

func TestLatestReport_Errors(t *testing.T) {
	f := newDiagnosticsFixture()
	f.reports.On("GetLatest", mock.Anything, "user-1").Return(nil, nil)
	f.reports.On("GetLatest", mock.Anything, "user-2").Return(nil, errors.New("connection refused"))

	_, err := f.service.LatestReport(context.Background(), "")
	assert.ErrorIs(t, err, mailsyncerrors.ErrUserIdMissing)

	_, err = f.service.LatestReport(context.Background(), "user-1")
	assert.ErrorIs(t, err, mailsyncerrors.ErrReportNotFound)

	_, err = f.service.LatestReport(context.Background(), "user-2")
	assert.EqualError(t, err, "connection refused")
}

func TestAccountHealth(t *testing.T) {
	f := newDiagnosticsFixture()
	recent := f.now.Add(-time.Hour)
	older := f.now.Add(-10 * time.Hour)

	f.credentials.On("GetByUserID", mock.Anything, "user-1").
		Return(&models.EmailCredentials{UserID: "user-1"}, nil)
	f.states.On("GetUserSyncStates", mock.Anything, "user-1").Return([]*models.FolderSyncState{
		{FolderName: "INBOX", LastSuccessAt: &recent, SyncedCount: 20},
		{FolderName: "Sent", LastSuccessAt: &older, SyncedCount: 5},
		{FolderName: "Drafts", ErrorCount: 7, LastError: "authentication failed"},
	}, nil)

	health, err := f.service.AccountHealth(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, health.Folders, 3)
	assert.Equal(t, enum.HealthHealthy, health.Folders[0].Status)
	assert.Equal(t, enum.HealthWarning, health.Folders[1].Status)
	assert.Equal(t, enum.HealthError, health.Folders[2].Status)
	assert.Equal(t, "authentication failed", health.Folders[2].LastError)

	require.NotNil(t, health.LastSync)
	assert.True(t, health.LastSync.Equal(recent))
	assert.Equal(t, 7, health.ErrorCount)
	assert.Equal(t, 25, health.SyncedCount)
	assert.Equal(t, enum.HealthError, health.Status)
}

func TestAccountHealth_NoStates(t *testing.T) {
	f := newDiagnosticsFixture()
	f.credentials.On("GetByUserID", mock.Anything, "user-1").
		Return(&models.EmailCredentials{UserID: "user-1"}, nil)
	f.states.On("GetUserSyncStates", mock.Anything, "user-1").Return(nil, nil)

	health, err := f.service.AccountHealth(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Nil(t, health.LastSync)
	assert.Empty(t, health.Folders)
	assert.Equal(t, enum.HealthWarning, health.Status)
}

func TestAccountHealth_UnknownUser(t *testing.T) {
	f := newDiagnosticsFixture()
	f.credentials.On("GetByUserID", mock.Anything, "ghost").Return(nil, nil)

	_, err := f.service.AccountHealth(context.Background(), "ghost")
	assert.ErrorIs(t, err, mailsyncerrors.ErrCredentialsNotFound)
	f.states.AssertNotCalled(t, "GetUserSyncStates", mock.Anything, mock.Anything)
}
