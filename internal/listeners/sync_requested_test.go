package listeners

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailsync/dto"
	mailsyncerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/utils"
	"github.com/customeros/mailsync/services/events"
)

type mockSyncService struct{ mock.Mock }

func (m *mockSyncService) SyncFolder(ctx context.Context, userID, folderName string) (*dto.SyncResult, error) {
	args := m.Called(ctx, userID, folderName)
	result, _ := args.Get(0).(*dto.SyncResult)
	return result, args.Error(1)
}

func (m *mockSyncService) SyncAccount(ctx context.Context, userID string, folders []string) (*dto.DiagnosticReport, error) {
	args := m.Called(ctx, userID, folders)
	report, _ := args.Get(0).(*dto.DiagnosticReport)
	return report, args.Error(1)
}

func (m *mockSyncService) SyncAllAccounts(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func syncRequestedEvent(data map[string]interface{}) dto.Event {
	return dto.Event{Event: dto.EventDetails{
		Id:        "event-1",
		EntityId:  "user-1",
		EventType: "SyncRequested",
		Data:      data,
	}}
}

func TestSyncRequestedListener_RunsAccountSync(t *testing.T) {
	service := &mockSyncService{}
	service.On("SyncAccount",
		mock.MatchedBy(func(ctx context.Context) bool { return utils.GetUserIdFromContext(ctx) == "user-1" }),
		"user-1", []string{"INBOX"},
	).Return(&dto.DiagnosticReport{Summary: dto.ReportSummary{SuccessRate: 100}}, nil).Once()

	listener := NewSyncRequestedListener(logger.NewNopLogger(), service)
	assert.Equal(t, "SyncRequested", listener.GetEventType())
	assert.Equal(t, events.QueueSyncRequested, listener.GetQueueName())

	err := listener.Handle(context.Background(), syncRequestedEvent(map[string]interface{}{
		"userId":  "user-1",
		"folders": []interface{}{"INBOX"},
	}))
	require.NoError(t, err)
	service.AssertExpectations(t)
}

func TestSyncRequestedListener_MissingUser(t *testing.T) {
	service := &mockSyncService{}
	listener := NewSyncRequestedListener(logger.NewNopLogger(), service)

	err := listener.Handle(context.Background(), syncRequestedEvent(map[string]interface{}{"folders": []interface{}{}}))
	assert.ErrorIs(t, err, mailsyncerrors.ErrUserIdMissing)
	service.AssertNotCalled(t, "SyncAccount", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncRequestedListener_PropagatesStartFailure(t *testing.T) {
	service := &mockSyncService{}
	service.On("SyncAccount", mock.Anything, "user-1", []string(nil)).
		Return(nil, mailsyncerrors.ErrCredentialsNotFound)

	listener := NewSyncRequestedListener(logger.NewNopLogger(), service)
	err := listener.Handle(context.Background(), syncRequestedEvent(map[string]interface{}{"userId": "user-1"}))
	assert.ErrorIs(t, err, mailsyncerrors.ErrCredentialsNotFound)
}
