package services

import (
	"github.com/customeros/mailsync/config"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/listeners"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/repository"
	"github.com/customeros/mailsync/services/diagnostics"
	"github.com/customeros/mailsync/services/email_filter"
	"github.com/customeros/mailsync/services/events"
	"github.com/customeros/mailsync/services/imap"
	"github.com/customeros/mailsync/services/storage"
	"github.com/customeros/mailsync/services/syncer"
)

type Services struct {
	EventsService      *events.EventsService
	Publisher          interfaces.EventPublisher
	StorageService     interfaces.StorageService
	SyncService        interfaces.SyncService
	DiagnosticsService interfaces.DiagnosticsService
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	folderPaths, err := imap.ParseFolderPaths(cfg.SyncConfig.FolderAlternates)
	if err != nil {
		return nil, err
	}

	storageService, err := storage.NewR2StorageService(cfg.R2StorageConfig)
	if err != nil {
		return nil, err
	}

	// events are optional; without a broker url nothing is published or consumed
	var eventsService *events.EventsService
	var publisher interfaces.EventPublisher
	if cfg.AppConfig.RabbitMQURL != "" {
		eventsService, err = events.NewEventsService(
			cfg.AppConfig.RabbitMQURL,
			log,
			events.DefaultPublisherConfig(),
			&events.SubscriberConfig{Prefetch: 1, ConsumeRetryDelay: events.DefaultReconnectBackoff * 5},
		)
		if err != nil {
			return nil, err
		}
		publisher = eventsService.Publisher
	} else {
		log.Warn("RABBITMQ_URL not set, sync events are disabled")
	}

	syncConfig := syncer.Config{
		FolderConcurrency: cfg.SyncConfig.FolderConcurrency,
		FolderTimeout:     cfg.SyncConfig.FolderTimeout,
		Retry: diagnostics.RetryPolicy{
			MaxAttempts: cfg.SyncConfig.RetryMaxAttempts,
			BaseDelay:   cfg.SyncConfig.RetryBaseDelay,
		},
	}

	syncService := syncer.NewSyncService(
		syncConfig,
		log,
		repos,
		imap.NewDialer(folderPaths, log, cfg.SyncConfig.DialTimeout),
		syncer.NewFolderResolver(repos.FolderRepository, folderPaths),
		storageService,
		publisher,
	)
	syncService.SetMessageClassifier(email_filter.NewEmailFilter())

	services := Services{
		EventsService:      eventsService,
		Publisher:          publisher,
		StorageService:     storageService,
		SyncService:        syncService,
		DiagnosticsService: diagnostics.NewDiagnosticsService(repos),
	}

	return &services, nil
}

// StartListeners consumes sync requests from the broker when events are enabled.
func (s *Services) StartListeners(log logger.Logger) error {
	if s.EventsService == nil {
		return nil
	}

	s.EventsService.Subscriber.RegisterListener(listeners.NewSyncRequestedListener(log, s.SyncService))
	return s.EventsService.Subscriber.ListenQueue(events.QueueSyncRequested)
}

func (s *Services) Close() error {
	if s.EventsService == nil {
		return nil
	}
	return s.EventsService.Close()
}
