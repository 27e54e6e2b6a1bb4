package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/interfaces"
	mailsyncerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/repository"
	"github.com/customeros/mailsync/internal/utils"
)

type memoryStore struct {
	mu          sync.Mutex
	credentials map[string]*models.EmailCredentials
	folders     map[string]*models.Folder
	emails      map[string]*models.EmailMessage
	attachments []*models.EmailAttachment
	states      map[string]*models.FolderSyncState
	reports     []*models.DiagnosticReportRecord

	failCreateSubject string
	failAttachments   bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		credentials: make(map[string]*models.EmailCredentials),
		folders:     make(map[string]*models.Folder),
		emails:      make(map[string]*models.EmailMessage),
		states:      make(map[string]*models.FolderSyncState),
	}
}

func (m *memoryStore) repositories() *repository.Repositories {
	return &repository.Repositories{
		EmailCredentialsRepository: &credentialsRepo{m},
		FolderRepository:           &folderRepo{m},
		EmailRepository:            &emailRepo{m},
		EmailAttachmentRepository:  &attachmentRepo{m},
		FolderSyncStateRepository:  &stateRepo{m},
		DiagnosticReportRepository: &reportRepo{m},
	}
}

func (m *memoryStore) addCredentials(userID, email string) *models.EmailCredentials {
	credentials := &models.EmailCredentials{
		ID:           "cred_" + userID,
		UserID:       userID,
		EmailAddress: email,
		ImapServer:   "imap.example.com",
		ImapPort:     993,
		ImapTLS:      true,
	}
	m.credentials[userID] = credentials
	return credentials
}

func (m *memoryStore) emailCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.emails)
}

func (m *memoryStore) state(userID, folder string) *models.FolderSyncState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[userID+"/"+folder]
}

type credentialsRepo struct{ m *memoryStore }

func (r *credentialsRepo) GetByUserID(_ context.Context, userID string) (*models.EmailCredentials, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.credentials[userID], nil
}

func (r *credentialsRepo) List(context.Context) ([]*models.EmailCredentials, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var all []*models.EmailCredentials
	for _, c := range r.m.credentials {
		all = append(all, c)
	}
	return all, nil
}

func (r *credentialsRepo) Save(_ context.Context, credentials *models.EmailCredentials) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.credentials[credentials.UserID] = credentials
	return nil
}

type folderRepo struct{ m *memoryStore }

func (r *folderRepo) GetByName(_ context.Context, userID, name string) (*models.Folder, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if folder, ok := r.m.folders[userID+"/"+name]; ok {
		copied := *folder
		return &copied, nil
	}
	return nil, nil
}

func (r *folderRepo) Create(_ context.Context, folder *models.Folder) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	key := folder.UserID + "/" + folder.Name
	if _, ok := r.m.folders[key]; ok {
		return errors.New("duplicate key value violates unique constraint")
	}
	folder.ID = utils.GenerateNanoIDWithPrefix("fold", 16)
	copied := *folder
	r.m.folders[key] = &copied
	return nil
}

func (r *folderRepo) UpdateRemotePath(_ context.Context, id, remotePath string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, folder := range r.m.folders {
		if folder.ID == id {
			folder.RemotePath = remotePath
			return nil
		}
	}
	return fmt.Errorf("folder with ID %s not found", id)
}

type emailRepo struct{ m *memoryStore }

func (r *emailRepo) GetKnownIdentifiers(_ context.Context, userID, folderID string) (*interfaces.KnownIdentifiers, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	known := interfaces.NewKnownIdentifiers()
	for _, email := range r.m.emails {
		if email.UserID != userID || email.FolderID != folderID {
			continue
		}
		if email.RemoteUID > 0 {
			known.UIDs[email.RemoteUID] = email.ID
		}
		if email.MessageID != "" {
			known.MessageIDs[email.MessageID] = email.ID
		}
	}
	return known, nil
}

func (r *emailRepo) Create(_ context.Context, email *models.EmailMessage) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failCreateSubject != "" && email.Subject == r.m.failCreateSubject {
		return errors.New("insert failed")
	}
	if email.RemoteUID > 0 {
		for _, existing := range r.m.emails {
			if existing.UserID == email.UserID && existing.FolderID == email.FolderID &&
				existing.RemoteUID == email.RemoteUID && !existing.IsDeleted {
				email.ID = existing.ID
				return fmt.Errorf("%w: uid %d", mailsyncerrors.ErrEmailAlreadyExists, email.RemoteUID)
			}
		}
	}
	email.ID = utils.GenerateNanoIDWithPrefix("email", 24)
	r.m.emails[email.ID] = email
	return nil
}

func (r *emailRepo) UpdateFlagsByUID(_ context.Context, userID, folderID string, uid uint32, update interfaces.FlagUpdate) error {
	return r.updateWhere(func(e *models.EmailMessage) bool {
		return e.UserID == userID && e.FolderID == folderID && e.RemoteUID == uid
	}, update)
}

func (r *emailRepo) UpdateFlagsByMessageID(_ context.Context, userID, folderID, messageID string, update interfaces.FlagUpdate) error {
	return r.updateWhere(func(e *models.EmailMessage) bool {
		return e.UserID == userID && e.FolderID == folderID && e.MessageID == messageID
	}, update)
}

func (r *emailRepo) updateWhere(match func(*models.EmailMessage) bool, update interfaces.FlagUpdate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, email := range r.m.emails {
		if match(email) {
			email.Flags = update.Flags
			email.IsRead = update.IsRead
			email.IsStarred = update.IsStarred
			email.UpdatedAt = update.UpdatedAt
		}
	}
	return nil
}

type attachmentRepo struct{ m *memoryStore }

func (r *attachmentRepo) Create(_ context.Context, attachment *models.EmailAttachment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failAttachments {
		return errors.New("attachment insert failed")
	}
	r.m.attachments = append(r.m.attachments, attachment)
	return nil
}

func (r *attachmentRepo) GetByID(_ context.Context, id string) (*models.EmailAttachment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, a := range r.m.attachments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

type stateRepo struct{ m *memoryStore }

func (r *stateRepo) GetSyncState(_ context.Context, userID, folderName string) (*models.FolderSyncState, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if state, ok := r.m.states[userID+"/"+folderName]; ok {
		copied := *state
		return &copied, nil
	}
	return nil, nil
}

func (r *stateRepo) GetUserSyncStates(_ context.Context, userID string) ([]*models.FolderSyncState, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var result []*models.FolderSyncState
	for _, state := range r.m.states {
		if state.UserID == userID {
			result = append(result, state)
		}
	}
	return result, nil
}

func (r *stateRepo) SaveSyncState(_ context.Context, state *models.FolderSyncState) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	copied := *state
	r.m.states[state.UserID+"/"+state.FolderName] = &copied
	return nil
}

type reportRepo struct{ m *memoryStore }

func (r *reportRepo) Save(_ context.Context, report *models.DiagnosticReportRecord) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	r.m.reports = append(r.m.reports, report)
	return nil
}

func (r *reportRepo) GetLatest(_ context.Context, userID string) (*models.DiagnosticReportRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := len(r.m.reports) - 1; i >= 0; i-- {
		if r.m.reports[i].UserID == userID {
			return r.m.reports[i], nil
		}
	}
	return nil, nil
}

// fakeMailbox is the remote side: paths that exist and the messages they hold.
type fakeMailbox struct {
	paths      map[string][]*interfaces.RawMessage
	fetchErr   error
	blockFetch bool
	openErrs   []error
	panicOn    string
}

type fakeDialer struct {
	mu       sync.Mutex
	mailbox  *fakeMailbox
	opened   []string
	attempts int32
	sessions []*fakeSession
}

func (d *fakeDialer) Open(ctx context.Context, _ *models.EmailCredentials, primaryPath, canonicalName string) (interfaces.MailboxSession, error) {
	if canonicalName == d.mailbox.panicOn {
		panic("session for " + canonicalName + " exploded")
	}
	attempt := atomic.AddInt32(&d.attempts, 1)
	if int(attempt) <= len(d.mailbox.openErrs) {
		return nil, d.mailbox.openErrs[attempt-1]
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	candidates := append([]string{primaryPath}, fallbackPaths[canonicalName]...)
	for _, path := range candidates {
		d.opened = append(d.opened, path)
		if messages, ok := d.mailbox.paths[path]; ok {
			session := &fakeSession{path: path, messages: messages, fetchErr: d.mailbox.fetchErr, blockFetch: d.mailbox.blockFetch}
			d.sessions = append(d.sessions, session)
			return session, nil
		}
	}
	return nil, fmt.Errorf("%w: failed to open %q", mailsyncerrors.ErrMailboxNotOpened, primaryPath)
}

var fallbackPaths = map[string][]string{
	"Sent": {"INBOX.Sent", "Sent Messages", "Sent Items", "Outbox"},
}

type fakeSession struct {
	path        string
	messages    []*interfaces.RawMessage
	fetchErr    error
	blockFetch  bool
	logoutCalls int32
}

func (s *fakeSession) Path() string { return s.path }

func (s *fakeSession) MessageCount() uint32 { return uint32(len(s.messages)) }

func (s *fakeSession) Messages(ctx context.Context) (<-chan *interfaces.RawMessage, func() error) {
	out := make(chan *interfaces.RawMessage)
	go func() {
		defer close(out)
		if s.blockFetch {
			<-ctx.Done()
			return
		}
		for _, msg := range s.messages {
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return s.fetchErr
	}
}

func (s *fakeSession) Logout() error {
	atomic.AddInt32(&s.logoutCalls, 1)
	return nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishFolderSynced(ctx context.Context, event dto.FolderSynced) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockPublisher) PublishDiagnosticReportCreated(ctx context.Context, event dto.DiagnosticReportCreated) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockPublisher) PublishSyncRequested(ctx context.Context, event dto.SyncRequested) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	return nil
}
