package syncer

import (
	"sync"
	"time"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/repository"
	"github.com/customeros/mailsync/internal/utils"
	"github.com/customeros/mailsync/services/diagnostics"
)

const (
	DefaultFolderConcurrency = 2
	DefaultFolderTimeout     = 10 * time.Minute
)

type Config struct {
	FolderConcurrency int
	// FolderTimeout bounds one folder sync, including connect and retries. Zero disables it.
	FolderTimeout time.Duration
	Retry         diagnostics.RetryPolicy
}

func DefaultConfig() Config {
	return Config{
		FolderConcurrency: DefaultFolderConcurrency,
		FolderTimeout:     DefaultFolderTimeout,
		Retry:             diagnostics.DefaultRetryPolicy(),
	}
}

type SyncService struct {
	cfg          Config
	log          logger.Logger
	repositories *repository.Repositories
	dialer       interfaces.MailboxDialer
	resolver     interfaces.FolderResolver
	reconciler   *Reconciler
	publisher    interfaces.EventPublisher
	now          func() time.Time
	// folderLocks holds one *sync.Mutex per user/folder
	folderLocks sync.Map
}

// NewSyncService wires the sync pipeline. storage and publisher are optional.
func NewSyncService(
	cfg Config,
	log logger.Logger,
	repositories *repository.Repositories,
	dialer interfaces.MailboxDialer,
	resolver interfaces.FolderResolver,
	storage interfaces.StorageService,
	publisher interfaces.EventPublisher,
) *SyncService {
	if cfg.FolderConcurrency <= 0 {
		cfg.FolderConcurrency = DefaultFolderConcurrency
	}

	extractor := NewAttachmentExtractor(repositories.EmailAttachmentRepository, storage, log)
	return &SyncService{
		cfg:          cfg,
		log:          log,
		repositories: repositories,
		dialer:       dialer,
		resolver:     resolver,
		reconciler:   NewReconciler(repositories.EmailRepository, extractor, log),
		publisher:    publisher,
		now:          utils.Now,
	}
}

// lockFolder serialises syncs of one folder of a user within this process.
func (s *SyncService) lockFolder(userID, folder string) func() {
	value, _ := s.folderLocks.LoadOrStore(userID+"/"+folder, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// SetMessageClassifier enables classification of newly stored messages.
func (s *SyncService) SetMessageClassifier(filter MessageClassifier) {
	s.reconciler.filter = filter
}
