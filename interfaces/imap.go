package interfaces

import (
	"context"
	"time"

	"github.com/customeros/mailsync/internal/models"
)

// RawMessage is one record produced by the message stream of an open mailbox.
type RawMessage struct {
	UID      uint32
	SeqNum   uint32
	Flags    []string
	Source   []byte
	Size     uint32
	Envelope *RawEnvelope
}

// RawEnvelope carries the envelope fields returned by the server, when available.
type RawEnvelope struct {
	Date      time.Time
	Subject   string
	MessageID string
	From      string
}

// MailboxSession is an authenticated connection with one selected mailbox.
type MailboxSession interface {
	// Path is the remote path that was opened, primary or fallback.
	Path() string
	MessageCount() uint32
	// Messages streams every message currently in the mailbox. The returned wait
	// function blocks until the fetch finishes and reports its error.
	Messages(ctx context.Context) (<-chan *RawMessage, func() error)
	// Logout closes the connection. Calls after the first are no-ops.
	Logout() error
}

type MailboxDialer interface {
	Open(ctx context.Context, credentials *models.EmailCredentials, primaryPath, canonicalName string) (MailboxSession, error)
}
