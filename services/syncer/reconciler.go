package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	go_imap "github.com/emersion/go-imap"
	"github.com/lib/pq"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	mailsyncerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/internal/utils"
	"github.com/customeros/mailsync/services/email_processor"
)

type Action string

const (
	ActionInserted Action = "inserted"
	ActionUpdated  Action = "updated"
)

type Outcome struct {
	Action   Action
	EmailID  string
	Warnings []string
}

// MessageClassifier labels a message before it is stored.
type MessageClassifier interface {
	Classify(msg *email_processor.NormalizedMessage) (enum.EmailClassification, string)
}

// Reconciler decides whether a fetched message is new or already stored and
// persists it accordingly. It never deletes rows.
type Reconciler struct {
	emails    interfaces.EmailRepository
	extractor *AttachmentExtractor
	filter    MessageClassifier
	log       logger.Logger
	now       func() time.Time
}

func NewReconciler(emails interfaces.EmailRepository, extractor *AttachmentExtractor, log logger.Logger) *Reconciler {
	return &Reconciler{
		emails:    emails,
		extractor: extractor,
		log:       log,
		now:       utils.Now,
	}
}

// Reconcile stores one message. known is updated after an insert so duplicates
// later in the same scan are treated as existing.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	userID, folderID string,
	raw *interfaces.RawMessage,
	msg *email_processor.NormalizedMessage,
	known *interfaces.KnownIdentifiers,
) (Outcome, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Reconciler.Reconcile")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUser(span, userID)
	span.SetTag("uid", raw.UID)

	messageKey := ""
	if !msg.GeneratedMessageID {
		messageKey = utils.NormalizeMessageID(msg.MessageID)
	}

	uidRow, uidKnown := "", false
	if raw.UID > 0 {
		uidRow, uidKnown = known.UIDs[raw.UID]
	}
	msgRow, msgKnown := "", false
	if messageKey != "" {
		msgRow, msgKnown = known.MessageIDs[messageKey]
	}

	if uidKnown || msgKnown {
		if uidKnown && msgKnown && uidRow != msgRow {
			r.log.Warnf("[%s][%s] UID %d and message id %s point to different emails (%s, %s), updating by UID",
				userID, folderID, raw.UID, messageKey, uidRow, msgRow)
			span.LogKV("collision.uidRow", uidRow, "collision.messageRow", msgRow)
		}
		return r.update(ctx, span, userID, folderID, raw, messageKey, uidKnown, uidRow, msgRow)
	}

	return r.insert(ctx, span, userID, folderID, raw, msg, messageKey, known)
}

func (r *Reconciler) update(
	ctx context.Context,
	span opentracing.Span,
	userID, folderID string,
	raw *interfaces.RawMessage,
	messageKey string,
	byUID bool,
	uidRow, msgRow string,
) (Outcome, error) {
	update := flagUpdate(raw.Flags, r.now())

	var err error
	emailID := uidRow
	if byUID {
		err = r.emails.UpdateFlagsByUID(ctx, userID, folderID, raw.UID, update)
	} else {
		emailID = msgRow
		err = r.emails.UpdateFlagsByMessageID(ctx, userID, folderID, messageKey, update)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return Outcome{}, fmt.Errorf("failed to update flags of uid %d: %w", raw.UID, err)
	}

	span.SetTag("action", string(ActionUpdated))
	return Outcome{Action: ActionUpdated, EmailID: emailID}, nil
}

func (r *Reconciler) insert(
	ctx context.Context,
	span opentracing.Span,
	userID, folderID string,
	raw *interfaces.RawMessage,
	msg *email_processor.NormalizedMessage,
	messageKey string,
	known *interfaces.KnownIdentifiers,
) (Outcome, error) {
	flags := flagUpdate(raw.Flags, r.now())

	size := int(raw.Size)
	if size == 0 {
		size = len(raw.Source)
	}

	email := &models.EmailMessage{
		UserID:        userID,
		FolderID:      folderID,
		RemoteUID:     raw.UID,
		MessageID:     utils.NormalizeMessageID(msg.MessageID),
		FromAddress:   msg.FromAddress,
		FromName:      msg.FromName,
		To:            msg.To,
		Cc:            msg.Cc,
		Bcc:           msg.Bcc,
		Subject:       msg.Subject,
		BodyText:      msg.BodyText,
		BodyHTML:      msg.BodyHTML,
		RawSource:     raw.Source,
		SizeBytes:     size,
		HasAttachment: len(msg.Attachments) > 0,
		DateReceived:  msg.Date,
		Flags:         pq.StringArray(flags.Flags),
		IsRead:        flags.IsRead,
		IsStarred:     flags.IsStarred,
		IsDeleted:     false,
	}
	if r.filter != nil {
		email.Classification, email.ClassificationReason = r.filter.Classify(msg)
	}

	if err := r.emails.Create(ctx, email); err != nil {
		if errors.Is(err, mailsyncerrors.ErrEmailAlreadyExists) {
			return r.insertedConcurrently(ctx, span, userID, folderID, raw, messageKey, email.ID, known)
		}
		tracing.TraceErr(span, err)
		return Outcome{}, fmt.Errorf("failed to insert uid %d: %w", raw.UID, err)
	}

	if raw.UID > 0 {
		known.UIDs[raw.UID] = email.ID
	}
	if messageKey != "" {
		known.MessageIDs[messageKey] = email.ID
	}

	outcome := Outcome{Action: ActionInserted, EmailID: email.ID}
	if r.extractor != nil && len(msg.Attachments) > 0 {
		_, outcome.Warnings = r.extractor.Extract(ctx, userID, email.ID, msg.Attachments)
	}

	span.SetTag("action", string(ActionInserted))
	return outcome, nil
}

// insertedConcurrently handles a uid stored by another sync of the same folder
// after known was loaded. The stored row is updated like any existing message.
func (r *Reconciler) insertedConcurrently(
	ctx context.Context,
	span opentracing.Span,
	userID, folderID string,
	raw *interfaces.RawMessage,
	messageKey, existingID string,
	known *interfaces.KnownIdentifiers,
) (Outcome, error) {
	r.log.Infof("[%s][%s] UID %d was stored by a concurrent sync, updating flags", userID, folderID, raw.UID)
	span.LogKV("concurrent.insert", raw.UID)

	if existingID != "" {
		known.UIDs[raw.UID] = existingID
		if messageKey != "" {
			known.MessageIDs[messageKey] = existingID
		}
	}
	return r.update(ctx, span, userID, folderID, raw, messageKey, true, existingID, existingID)
}

func flagUpdate(flags []string, now time.Time) interfaces.FlagUpdate {
	if flags == nil {
		flags = []string{}
	}
	return interfaces.FlagUpdate{
		Flags:     flags,
		IsRead:    utils.ContainsFold(flags, go_imap.SeenFlag),
		IsStarred: utils.ContainsFold(flags, go_imap.FlaggedFlag),
		UpdatedAt: now,
	}
}
