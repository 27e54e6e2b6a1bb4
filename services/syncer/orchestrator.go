package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/enum"
	mailsyncerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
	"github.com/customeros/mailsync/internal/utils"
	"github.com/customeros/mailsync/services/diagnostics"
	"github.com/customeros/mailsync/services/email_processor"
)

// SyncFolder runs one full scan of a folder. Failures that happen after the
// credentials are loaded are reported in the result rather than as an error.
func (s *SyncService) SyncFolder(ctx context.Context, userID, folderName string) (*dto.SyncResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.SyncFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if userID == "" {
		tracing.TraceErr(span, mailsyncerrors.ErrUserIdMissing)
		return nil, mailsyncerrors.ErrUserIdMissing
	}
	canonical := enum.ParseFolderName(folderName).String()
	tracing.TagUser(span, userID)
	tracing.TagFolder(span, canonical)

	credentials, err := s.getCredentials(ctx, userID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	unlock := s.lockFolder(userID, canonical)
	defer unlock()

	if s.cfg.FolderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.FolderTimeout)
		defer cancel()
	}

	result := &dto.SyncResult{Folder: canonical, Warnings: []string{}}
	started := time.Now()

	s.syncFolder(ctx, credentials, canonical, result)

	s.log.Infof("[%s][%s] Folder sync finished in %s - success: %t, synced: %d, new: %d, updated: %d, errors: %d",
		userID, canonical, time.Since(started).Round(time.Millisecond),
		result.Success, result.Synced, result.New, result.Updated, result.Errors)
	span.LogKV("synced", result.Synced, "new", result.New, "updated", result.Updated, "errors", result.Errors)

	// state and events are written even when the folder deadline has passed
	finishCtx := context.WithoutCancel(ctx)
	s.saveSyncState(finishCtx, userID, result)
	s.publishFolderSynced(finishCtx, userID, result)

	return result, nil
}

func (s *SyncService) getCredentials(ctx context.Context, userID string) (*models.EmailCredentials, error) {
	credentials, err := s.repositories.EmailCredentialsRepository.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if credentials == nil {
		return nil, fmt.Errorf("%w for user %s", mailsyncerrors.ErrCredentialsNotFound, userID)
	}
	return credentials, nil
}

func (s *SyncService) syncFolder(ctx context.Context, credentials *models.EmailCredentials, canonical string, result *dto.SyncResult) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.syncFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	userID := credentials.UserID

	folder, err := s.resolver.Resolve(ctx, userID, canonical)
	if err != nil {
		tracing.TraceErr(span, err)
		s.fail(result, credentials, err)
		return
	}

	// only connection establishment is retried; a folder with no openable path fails at once
	policy := s.cfg.Retry
	policy.Permanent = func(err error) bool {
		return errors.Is(err, mailsyncerrors.ErrMailboxNotOpened)
	}
	policy.OnRetry = func(attempt int, syncErr *dto.SyncError, delay time.Duration) {
		s.log.Warnf("[%s][%s] Open attempt %d failed (%s), retrying in %s", userID, canonical, attempt, syncErr.Kind, delay)
	}
	session, err := diagnostics.RetryValue(ctx, policy, func(ctx context.Context) (interfaces.MailboxSession, error) {
		return s.dialer.Open(ctx, credentials, folder.RemotePath, canonical)
	})
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("[%s][%s] Could not open mailbox: %v", userID, canonical, err)
		s.fail(result, credentials, err)
		return
	}

	func() {
		defer s.closeSession(session, userID, canonical)
		s.rememberRemotePath(ctx, folder, session.Path())
		s.syncMessages(ctx, credentials, folder, session, result)
	}()
}

// syncMessages reconciles every streamed message. Per-message failures become
// warnings; a failed fetch fails the folder.
func (s *SyncService) syncMessages(
	ctx context.Context,
	credentials *models.EmailCredentials,
	folder *models.Folder,
	session interfaces.MailboxSession,
	result *dto.SyncResult,
) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.syncMessages")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("messages.total", session.MessageCount())

	userID := credentials.UserID

	known, err := s.repositories.EmailRepository.GetKnownIdentifiers(ctx, userID, folder.ID)
	if err != nil {
		tracing.TraceErr(span, err)
		s.fail(result, credentials, err)
		return
	}

	stream, wait := session.Messages(ctx)
	for raw := range stream {
		s.processMessage(ctx, userID, folder, raw, known, result)
	}

	if err := wait(); err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("[%s][%s] Message fetch failed after %d messages: %v", userID, folder.Name, result.Synced, err)
		s.fail(result, credentials, err)
		return
	}

	result.Success = true
}

func (s *SyncService) processMessage(
	ctx context.Context,
	userID string,
	folder *models.Folder,
	raw *interfaces.RawMessage,
	known *interfaces.KnownIdentifiers,
	result *dto.SyncResult,
) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("[%s][%s] Panic while processing uid %d: %v", userID, folder.Name, raw.UID, r)
			result.Errors++
			result.AddWarning("message uid %d failed: %v", raw.UID, r)
		}
	}()

	if raw.Source == nil {
		result.Errors++
		result.AddWarning("message uid %d has no retrievable source, skipped", raw.UID)
		return
	}

	normalized := email_processor.Normalize(raw.Source)
	if normalized.Failed() {
		s.log.Warnf("[%s][%s] Could not parse uid %d: %v", userID, folder.Name, raw.UID, normalized.Failure)
		result.Errors++
		result.AddWarning("message uid %d could not be parsed: %s", raw.UID, normalized.Failure.Error())
		return
	}

	outcome, err := s.reconciler.Reconcile(ctx, userID, folder.ID, raw, normalized.Message, known)
	if err != nil {
		s.log.Warnf("[%s][%s] Could not store uid %d: %v", userID, folder.Name, raw.UID, err)
		result.Errors++
		result.AddWarning("message uid %d could not be stored: %v", raw.UID, err)
		return
	}

	result.Synced++
	switch outcome.Action {
	case ActionInserted:
		result.New++
	case ActionUpdated:
		result.Updated++
	}
	if raw.UID > result.LastUID {
		result.LastUID = raw.UID
	}
	result.Warnings = append(result.Warnings, outcome.Warnings...)
}

func (s *SyncService) fail(result *dto.SyncResult, credentials *models.EmailCredentials, err error) {
	result.Success = false
	result.Errors++
	result.Error = diagnostics.ClassifyForAccount(err, credentials.EmailAddress)
}

func (s *SyncService) closeSession(session interfaces.MailboxSession, userID, folder string) {
	if err := session.Logout(); err != nil {
		s.log.Warnf("[%s][%s] Logout failed: %v", userID, folder, err)
	}
}

// rememberRemotePath stores a fallback path that opened so later syncs try it first.
func (s *SyncService) rememberRemotePath(ctx context.Context, folder *models.Folder, path string) {
	if path == "" || path == folder.RemotePath {
		return
	}
	if err := s.repositories.FolderRepository.UpdateRemotePath(ctx, folder.ID, path); err != nil {
		s.log.Warnf("[%s][%s] Could not update remote path to %q: %v", folder.UserID, folder.Name, path, err)
		return
	}
	s.log.Infof("[%s][%s] Remote path changed from %q to %q", folder.UserID, folder.Name, folder.RemotePath, path)
	folder.RemotePath = path
}

const maxLastErrorLength = 2000

func (s *SyncService) saveSyncState(ctx context.Context, userID string, result *dto.SyncResult) {
	state, err := s.repositories.FolderSyncStateRepository.GetSyncState(ctx, userID, result.Folder)
	if err != nil {
		s.log.Warnf("[%s][%s] Could not load sync state: %v", userID, result.Folder, err)
		return
	}
	if state == nil {
		state = &models.FolderSyncState{UserID: userID, FolderName: result.Folder}
	}

	now := s.now()
	state.LastSync = now
	state.SyncedCount = result.Synced
	if result.LastUID > 0 {
		state.LastUID = result.LastUID
	}

	switch {
	case result.Success && result.Errors == 0:
		state.Status = enum.SyncStatusSuccess
		state.LastSuccessAt = &now
		state.ErrorCount = 0
		state.LastError = ""
	case result.Success:
		// skipped messages of a completed run replace the count, only failed runs accumulate
		state.Status = enum.SyncStatusSuccess
		state.LastSuccessAt = &now
		state.ErrorCount = result.Errors
		if len(result.Warnings) > 0 {
			state.LastError = result.Warnings[len(result.Warnings)-1]
		}
	default:
		state.Status = enum.SyncStatusFailed
		state.ErrorCount += result.Errors
		if result.Error != nil {
			state.LastError = result.Error.Message
		}
	}

	state.LastError = utils.Truncate(state.LastError, maxLastErrorLength)

	if err := s.repositories.FolderSyncStateRepository.SaveSyncState(ctx, state); err != nil {
		s.log.Warnf("[%s][%s] Could not save sync state: %v", userID, result.Folder, err)
	}
}

func (s *SyncService) publishFolderSynced(ctx context.Context, userID string, result *dto.SyncResult) {
	if s.publisher == nil {
		return
	}
	event := dto.FolderSynced{
		UserID:  userID,
		Folder:  result.Folder,
		Success: result.Success,
		Synced:  result.Synced,
		New:     result.New,
		Updated: result.Updated,
		Errors:  result.Errors,
	}
	if result.Error != nil {
		event.ErrorKind = string(result.Error.Kind)
	}
	if err := s.publisher.PublishFolderSynced(ctx, event); err != nil {
		s.log.Warnf("[%s][%s] Could not publish folder synced event: %v", userID, result.Folder, err)
	}
}
