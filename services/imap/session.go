package imap

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/emersion/go-imap"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/logger"
)

const fetchBufferSize = 10

var fetchItems = func() []imap.FetchItem {
	section := &imap.BodySectionName{Peek: true}
	return []imap.FetchItem{
		imap.FetchUid,
		imap.FetchFlags,
		imap.FetchEnvelope,
		imap.FetchRFC822Size,
		section.FetchItem(),
	}
}()

type session struct {
	client       imapClient
	log          logger.Logger
	userID       string
	folder       string
	path         string
	messageCount uint32

	logoutOnce sync.Once
	logoutErr  error
}

func newSession(c imapClient, log logger.Logger, userID, folder string) *session {
	return &session{
		client: c,
		log:    log,
		userID: userID,
		folder: folder,
	}
}

func (s *session) Path() string {
	return s.path
}

func (s *session) MessageCount() uint32 {
	return s.messageCount
}

// Logout closes the connection once. A logout that does not answer within
// logoutTimeout is abandoned and the connection is terminated.
func (s *session) Logout() error {
	s.logoutOnce.Do(func() {
		done := make(chan error, 1)
		go func() {
			done <- s.client.Logout()
		}()

		select {
		case err := <-done:
			if err != nil {
				s.log.Warnf("[%s][%s] Error during logout: %v", s.userID, s.folder, err)
				s.logoutErr = err
				return
			}
			s.log.Debugf("[%s][%s] Logged out", s.userID, s.folder)
		case <-time.After(logoutTimeout):
			s.log.Warnf("[%s][%s] Logout timed out, terminating connection", s.userID, s.folder)
			s.logoutErr = s.client.Terminate()
		}
	})
	return s.logoutErr
}

// Messages fetches the whole mailbox in sequence order. When ctx is cancelled
// the connection is terminated so the fetch unblocks.
func (s *session) Messages(ctx context.Context) (<-chan *interfaces.RawMessage, func() error) {
	out := make(chan *interfaces.RawMessage, fetchBufferSize)
	if s.messageCount == 0 {
		close(out)
		return out, func() error { return nil }
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(1, 0)

	messages := make(chan *imap.Message, fetchBufferSize)
	done := make(chan error, 1)
	finished := make(chan struct{})

	go func() {
		done <- s.client.Fetch(seqSet, fetchItems, messages)
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.log.Warnf("[%s][%s] Fetch cancelled: %v", s.userID, s.folder, ctx.Err())
			s.client.Terminate()
		case <-finished:
		}
	}()

	go func() {
		defer close(out)
		defer close(finished)
		for msg := range messages {
			raw := toRawMessage(msg)
			select {
			case out <- raw:
			case <-ctx.Done():
				// keep draining so Fetch can return
			}
		}
	}()

	wait := func() error {
		for range out {
		}
		err := <-done
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return fmt.Errorf("IMAP fetch error: %w", err)
		}
		return nil
	}
	return out, wait
}

func toRawMessage(msg *imap.Message) *interfaces.RawMessage {
	raw := &interfaces.RawMessage{
		UID:    msg.Uid,
		SeqNum: msg.SeqNum,
		Flags:  msg.Flags,
		Size:   msg.Size,
	}

	if body := msg.GetBody(&imap.BodySectionName{Peek: true}); body != nil {
		buf, err := io.ReadAll(body)
		if err == nil && len(buf) > 0 {
			raw.Source = buf
		}
	}

	if env := msg.Envelope; env != nil {
		raw.Envelope = &interfaces.RawEnvelope{
			Date:      env.Date,
			Subject:   env.Subject,
			MessageID: env.MessageId,
		}
		if len(env.From) > 0 && env.From[0] != nil {
			raw.Envelope.From = env.From[0].Address()
		}
	}
	return raw
}
