package listeners

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/interfaces"
	mailsyncerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/internal/utils"
	"github.com/customeros/mailsync/services/events"
)

type SyncRequestedListener struct {
	events.BaseEventListener
	syncService interfaces.SyncService
}

func NewSyncRequestedListener(logger logger.Logger, syncService interfaces.SyncService) interfaces.EventListener {
	return &SyncRequestedListener{
		BaseEventListener: events.NewBaseEventListener(
			logger,
			events.GetEventType[dto.SyncRequested](),
			events.QueueSyncRequested,
		),
		syncService: syncService,
	}
}

// Handle runs an account sync. Folder level failures end up in the diagnostic
// report; only a sync that could not start is returned so the delivery is dead-lettered.
func (l *SyncRequestedListener) Handle(ctx context.Context, baseEvent any) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncRequestedListener.Handle")
	defer span.Finish()
	tracing.SetDefaultListenerSpanTags(ctx, span)
	tracing.LogObjectAsJson(span, "event", baseEvent)

	validatedEvent, err := l.ValidateBaseEvent(ctx, baseEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	request, err := events.DecodeEventData[dto.SyncRequested](ctx, validatedEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if request.UserID == "" {
		tracing.TraceErr(span, mailsyncerrors.ErrUserIdMissing)
		return mailsyncerrors.ErrUserIdMissing
	}
	tracing.TagUser(span, request.UserID)

	ctx = utils.SetUserIdInContext(ctx, request.UserID)
	report, err := l.syncService.SyncAccount(ctx, request.UserID, request.Folders)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	l.Logger().Infof("[%s] Requested sync finished with success rate %d%%", request.UserID, report.Summary.SuccessRate)
	return nil
}
