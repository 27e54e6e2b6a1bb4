package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/enum"
	mailsyncerrors "github.com/customeros/mailsync/internal/errors"
)

type mockSyncService struct {
	mock.Mock
}

func (m *mockSyncService) SyncFolder(ctx context.Context, userID, folderName string) (*dto.SyncResult, error) {
	args := m.Called(ctx, userID, folderName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SyncResult), args.Error(1)
}

func (m *mockSyncService) SyncAccount(ctx context.Context, userID string, folders []string) (*dto.DiagnosticReport, error) {
	args := m.Called(ctx, userID, folders)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.DiagnosticReport), args.Error(1)
}

func (m *mockSyncService) SyncAllAccounts(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockDiagnosticsService struct {
	mock.Mock
}

func (m *mockDiagnosticsService) LatestReport(ctx context.Context, userID string) (*dto.DiagnosticReport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.DiagnosticReport), args.Error(1)
}

func (m *mockDiagnosticsService) AccountHealth(ctx context.Context, userID string) (*dto.HealthReport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.HealthReport), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishFolderSynced(ctx context.Context, event dto.FolderSynced) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) PublishDiagnosticReportCreated(ctx context.Context, event dto.DiagnosticReportCreated) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) PublishSyncRequested(ctx context.Context, event dto.SyncRequested) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) Close() error {
	return nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorDetails {
	t.Helper()
	var response dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Error)
	return response.Error
}

func syncRouter(service *mockSyncService) *gin.Engine {
	router := gin.New()
	router.POST("/v1/sync", SyncFolder(service))
	router.POST("/v1/sync/all", SyncAccount(service))
	return router
}

func TestHealthCheck(t *testing.T) {
	router := gin.New()
	router.GET("/health", HealthCheck)

	w := perform(t, router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSyncFolder_Success(t *testing.T) {
	service := new(mockSyncService)
	service.On("SyncFolder", mock.Anything, "user-1", "INBOX").Return(&dto.SyncResult{
		Folder:  "INBOX",
		Success: true,
		Synced:  5,
		New:     3,
		Updated: 2,
	}, nil)

	w := perform(t, syncRouter(service), http.MethodPost, "/v1/sync", dto.SyncFolderRequest{UserID: "user-1", FolderName: "INBOX"})

	require.Equal(t, http.StatusOK, w.Code)
	var response dto.SyncFolderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 5, response.Synced)
	assert.Equal(t, 3, response.New)
	assert.Equal(t, 2, response.Updated)
	assert.Equal(t, "Synced 5 messages from INBOX (3 new, 2 updated)", response.Message)
	service.AssertExpectations(t)
}

func TestSyncFolder_UserIdFromMiddleware(t *testing.T) {
	service := new(mockSyncService)
	service.On("SyncFolder", mock.Anything, "user-2", "").Return(&dto.SyncResult{Folder: "INBOX", Success: true, Synced: 1, New: 1, Errors: 1}, nil)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("UserId", "user-2")
		c.Next()
	})
	router.POST("/v1/sync", SyncFolder(service))

	w := perform(t, router, http.MethodPost, "/v1/sync", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1 skipped")
	service.AssertExpectations(t)
}

func TestSyncFolder_MissingUserId(t *testing.T) {
	service := new(mockSyncService)
	service.On("SyncFolder", mock.Anything, "", "INBOX").Return(nil, mailsyncerrors.ErrUserIdMissing)

	w := perform(t, syncRouter(service), http.MethodPost, "/v1/sync", dto.SyncFolderRequest{FolderName: "INBOX"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	details := decodeError(t, w)
	assert.Equal(t, "USER_ID_MISSING", details.Code)
	assert.Equal(t, "validation", details.Type)
}

func TestSyncFolder_CredentialsNotFound(t *testing.T) {
	service := new(mockSyncService)
	service.On("SyncFolder", mock.Anything, "ghost", "INBOX").
		Return(nil, fmt.Errorf("%w for user ghost", mailsyncerrors.ErrCredentialsNotFound))

	w := perform(t, syncRouter(service), http.MethodPost, "/v1/sync", dto.SyncFolderRequest{UserID: "ghost", FolderName: "INBOX"})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Code)
}

func TestSyncFolder_MailboxNotOpened(t *testing.T) {
	service := new(mockSyncService)
	service.On("SyncFolder", mock.Anything, "user-1", "Sent").Return(&dto.SyncResult{
		Folder:  "Sent",
		Success: false,
		Error: &dto.SyncError{
			Kind:        enum.SyncErrorAuthentication,
			Code:        "AUTH_FAILED",
			UserMessage: "Authentication failed",
			Solution:    "Use an app password",
		},
	}, nil)

	w := perform(t, syncRouter(service), http.MethodPost, "/v1/sync", dto.SyncFolderRequest{UserID: "user-1", FolderName: "Sent"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	details := decodeError(t, w)
	assert.Equal(t, "authentication", details.Type)
	assert.Equal(t, "AUTH_FAILED", details.Code)
	assert.Equal(t, "Authentication failed", details.UserMessage)
	assert.Equal(t, "Use an app password", details.Solution)
}

func TestSyncFolder_UnexpectedError(t *testing.T) {
	service := new(mockSyncService)
	service.On("SyncFolder", mock.Anything, "user-1", "INBOX").Return(nil, fmt.Errorf("connection refused"))

	w := perform(t, syncRouter(service), http.MethodPost, "/v1/sync", dto.SyncFolderRequest{UserID: "user-1", FolderName: "INBOX"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "connection", decodeError(t, w).Type)
}

func TestSyncAccount_Success(t *testing.T) {
	service := new(mockSyncService)
	report := &dto.DiagnosticReport{
		ID:      "report-1",
		Summary: dto.ReportSummary{TotalSynced: 4, FoldersSynced: 2, SuccessRate: 100},
	}
	service.On("SyncAccount", mock.Anything, "user-1", []string{"INBOX", "Sent"}).Return(report, nil)

	w := perform(t, syncRouter(service), http.MethodPost, "/v1/sync/all", dto.SyncAccountRequest{UserID: "user-1", Folders: []string{"INBOX", "Sent"}})

	require.Equal(t, http.StatusOK, w.Code)
	var response dto.DiagnosticReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "report-1", response.ID)
	assert.Equal(t, 100, response.Summary.SuccessRate)
}

func TestSyncAccount_Validation(t *testing.T) {
	service := new(mockSyncService)

	w := perform(t, syncRouter(service), http.MethodPost, "/v1/sync/all", dto.SyncAccountRequest{Folders: []string{"INBOX", " "}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	details := decodeError(t, w)
	assert.Equal(t, "INVALID_REQUEST", details.Code)
	assert.Contains(t, details.UserMessage, "folders: entry 1 is empty")
	assert.Contains(t, details.UserMessage, "userId: is required")
	service.AssertNotCalled(t, "SyncAccount", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncAccount_MissingUserIdOnly(t *testing.T) {
	service := new(mockSyncService)

	w := perform(t, syncRouter(service), http.MethodPost, "/v1/sync/all", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "USER_ID_MISSING", decodeError(t, w).Code)
}

func TestSyncAccount_CredentialsNotFound(t *testing.T) {
	service := new(mockSyncService)
	service.On("SyncAccount", mock.Anything, "ghost", []string(nil)).Return(nil, mailsyncerrors.ErrCredentialsNotFound)

	w := perform(t, syncRouter(service), http.MethodPost, "/v1/sync/all", dto.SyncAccountRequest{UserID: "ghost"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func diagnosticsRouter(service *mockDiagnosticsService) *gin.Engine {
	router := gin.New()
	router.GET("/v1/diagnostics/:userId", LatestReport(service))
	router.GET("/v1/health/:userId", AccountHealth(service))
	return router
}

func TestLatestReport(t *testing.T) {
	service := new(mockDiagnosticsService)
	service.On("LatestReport", mock.Anything, "user-1").Return(&dto.DiagnosticReport{ID: "diag-1"}, nil)
	service.On("LatestReport", mock.Anything, "user-2").Return(nil, mailsyncerrors.ErrReportNotFound)

	router := diagnosticsRouter(service)

	w := perform(t, router, http.MethodGet, "/v1/diagnostics/user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"diag-1"`)

	w = perform(t, router, http.MethodGet, "/v1/diagnostics/user-2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAccountHealth(t *testing.T) {
	service := new(mockDiagnosticsService)
	service.On("AccountHealth", mock.Anything, "user-1").Return(&dto.HealthReport{
		UserID:      "user-1",
		Status:      enum.HealthHealthy,
		SyncedCount: 10,
	}, nil)
	service.On("AccountHealth", mock.Anything, "ghost").Return(nil, mailsyncerrors.ErrCredentialsNotFound)

	router := diagnosticsRouter(service)

	w := perform(t, router, http.MethodGet, "/v1/health/user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report dto.HealthReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, enum.HealthHealthy, report.Status)
	assert.Equal(t, 10, report.SyncedCount)

	w = perform(t, router, http.MethodGet, "/v1/health/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestSync_Queued(t *testing.T) {
	publisher := new(mockPublisher)
	publisher.On("PublishSyncRequested", mock.Anything, dto.SyncRequested{UserID: "user-1", Folders: []string{"INBOX"}}).Return(nil)

	router := gin.New()
	router.POST("/v1/sync/request", RequestSync(publisher))

	w := perform(t, router, http.MethodPost, "/v1/sync/request", dto.SyncAccountRequest{UserID: "user-1", Folders: []string{"INBOX"}})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"status":"queued","userId":"user-1"}`, w.Body.String())
	publisher.AssertExpectations(t)
}

func TestRequestSync_Unavailable(t *testing.T) {
	router := gin.New()
	router.POST("/v1/sync/request", RequestSync(nil))

	w := perform(t, router, http.MethodPost, "/v1/sync/request", dto.SyncAccountRequest{UserID: "user-1"})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, w).Code)
}

func TestRequestSync_PublishFailure(t *testing.T) {
	publisher := new(mockPublisher)
	publisher.On("PublishSyncRequested", mock.Anything, mock.Anything).Return(fmt.Errorf("channel closed"))

	router := gin.New()
	router.POST("/v1/sync/request", RequestSync(publisher))

	w := perform(t, router, http.MethodPost, "/v1/sync/request", dto.SyncAccountRequest{UserID: "user-1"})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequestSync_MissingUserId(t *testing.T) {
	router := gin.New()
	router.POST("/v1/sync/request", RequestSync(new(mockPublisher)))

	w := perform(t, router, http.MethodPost, "/v1/sync/request", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "USER_ID_MISSING", decodeError(t, w).Code)
}
