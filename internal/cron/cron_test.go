package cron

import (
	"context"
	"testing"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes"

	"github.com/customeros/mailsync/config"
	"github.com/customeros/mailsync/dto"
	cron_config "github.com/customeros/mailsync/internal/cron/config"
	"github.com/customeros/mailsync/internal/logger"
)

type mockKubernetesInterface struct {
	kubernetes.Interface
	mock.Mock
}

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

func testConfig(cronConfig *cron_config.Config) *config.Config {
	return &config.Config{
		AppConfig: &config.AppConfig{PodName: "pod-1"},
		Cron:      cronConfig,
	}
}

func TestNewCronManager(t *testing.T) {
	cfg := testConfig(&cron_config.Config{})
	log := logger.NewNopLogger()
	k8s := &mockKubernetesInterface{}

	cm := NewCronManager(cfg, log, k8s, nil)

	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, k8s, cm.k8s)
	assert.NotNil(t, cm.jobIDs)
	assert.Equal(t, "pod-1", cm.podName())
}

func TestCronManager_RegisterJobs(t *testing.T) {
	cm := NewCronManager(testConfig(&cron_config.Config{
		CronScheduleHeartbeat:    "0 * * * * *",
		CronScheduleSyncAccounts: "0 */15 * * * *",
	}), logger.NewNopLogger(), nil, &mockSyncService{})

	require.NoError(t, cm.registerJobs(cronv3.New(cronv3.WithSeconds())))
	assert.Len(t, cm.jobIDs, 2)
	assert.Contains(t, cm.jobIDs, JobHeartbeat)
	assert.Contains(t, cm.jobIDs, JobSyncAccounts)
}

func TestCronManager_RegisterJobsWithoutSyncService(t *testing.T) {
	cm := NewCronManager(testConfig(&cron_config.Config{
		CronScheduleHeartbeat:    "0 * * * * *",
		CronScheduleSyncAccounts: "0 */15 * * * *",
	}), logger.NewNopLogger(), nil, nil)

	require.NoError(t, cm.registerJobs(cronv3.New(cronv3.WithSeconds())))
	assert.Len(t, cm.jobIDs, 1)
}

func TestCronManager_InvalidSchedule(t *testing.T) {
	cm := NewCronManager(testConfig(&cron_config.Config{
		CronScheduleSyncAccounts: "every fifteen minutes",
	}), logger.NewNopLogger(), nil, &mockSyncService{})

	err := cm.registerJobs(cronv3.New(cronv3.WithSeconds()))
	assert.ErrorContains(t, err, "account sync")
}

func TestCronManager_SyncAllAccounts(t *testing.T) {
	service := &mockSyncService{}
	service.On("SyncAllAccounts", mock.Anything).Return(nil).Once()
	cm := NewCronManager(testConfig(&cron_config.Config{}), logger.NewNopLogger(), nil, service)

	cm.syncAllAccounts()

	service.AssertExpectations(t)
}

func TestCronManager_StartLocalAndStop(t *testing.T) {
	cm := NewCronManager(testConfig(&cron_config.Config{
		CronScheduleHeartbeat: "0 * * * * *",
	}), logger.NewNopLogger(), nil, nil)

	require.NoError(t, cm.Start("pod-1", "default"))
	assert.NotNil(t, cm.cron)

	cm.Stop()
	cm.Stop()

	select {
	case <-cm.stopCh:
	default:
		t.Error("Stop channel was not closed")
	}
}
