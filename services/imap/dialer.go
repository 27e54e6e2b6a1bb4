package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/interfaces"
	mailsyncerrors "github.com/customeros/mailsync/internal/errors"
	"github.com/customeros/mailsync/internal/logger"
	"github.com/customeros/mailsync/internal/models"
	"github.com/customeros/mailsync/internal/tracing"
)

const (
	defaultDialTimeout    = 30 * time.Second
	defaultCommandTimeout = 30 * time.Second
	logoutTimeout         = 5 * time.Second
)

// imapClient is the part of the go-imap client used by a session.
type imapClient interface {
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Logout() error
	Terminate() error
}

type connectFunc func(ctx context.Context, credentials *models.EmailCredentials) (imapClient, error)

type Dialer struct {
	paths       FolderPaths
	log         logger.Logger
	dialTimeout time.Duration
	connect     connectFunc
}

func NewDialer(paths FolderPaths, log logger.Logger, dialTimeout time.Duration) *Dialer {
	if paths == nil {
		paths = DefaultFolderPaths()
	}
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	d := &Dialer{
		paths:       paths,
		log:         log,
		dialTimeout: dialTimeout,
	}
	d.connect = d.connectMailbox
	return d
}

// Open connects, authenticates and selects the first mailbox path that opens,
// trying primaryPath and then the fallbacks registered for canonicalName.
func (d *Dialer) Open(ctx context.Context, credentials *models.EmailCredentials, primaryPath, canonicalName string) (interfaces.MailboxSession, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Dialer.Open")
	defer span.Finish()
	tracing.SetDefaultImapSpanTags(ctx, span)
	tracing.TagUser(span, credentials.UserID)
	tracing.TagFolder(span, canonicalName)

	c, err := d.connect(ctx, credentials)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	session := newSession(c, d.log, credentials.UserID, canonicalName)

	status, path, err := d.selectWithFallback(ctx, c, credentials.UserID, canonicalName, primaryPath)
	if err != nil {
		tracing.TraceErr(span, err)
		if logoutErr := session.Logout(); logoutErr != nil {
			d.log.Warnf("[%s][%s] Logout after failed select: %v", credentials.UserID, canonicalName, logoutErr)
		}
		return nil, err
	}

	session.path = path
	session.messageCount = status.Messages
	span.SetTag("mailbox.path", path)
	span.SetTag("messages.total", status.Messages)

	return session, nil
}

func (d *Dialer) selectWithFallback(ctx context.Context, c imapClient, userID, canonicalName, primaryPath string) (*imap.MailboxStatus, string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Dialer.selectWithFallback")
	defer span.Finish()
	tracing.SetDefaultImapSpanTags(ctx, span)

	candidates := d.paths.Candidates(canonicalName, primaryPath)
	var lastErr error
	for i, path := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		status, err := c.Select(path, true)
		if err == nil {
			if i > 0 {
				d.log.Infof("[%s][%s] Opened fallback mailbox %q after primary %q failed", userID, canonicalName, path, candidates[0])
			}
			d.log.Infof("[%s][%s] Selected mailbox %q - Messages: %d", userID, canonicalName, path, status.Messages)
			return status, path, nil
		}

		d.log.Warnf("[%s][%s] Could not select mailbox %q: %v", userID, canonicalName, path, err)
		span.LogKV("select.failed", path, "error", err.Error())
		lastErr = err
	}

	err := fmt.Errorf("%w: failed to open %q or any of %d alternates: %v",
		mailsyncerrors.ErrMailboxNotOpened, candidates[0], len(candidates)-1, lastErr)
	tracing.TraceErr(span, err)
	return nil, "", err
}

// connectMailbox establishes an authenticated IMAP connection for the given credentials.
func (d *Dialer) connectMailbox(ctx context.Context, credentials *models.EmailCredentials) (imapClient, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Dialer.connectMailbox")
	defer span.Finish()
	tracing.SetDefaultImapSpanTags(ctx, span)
	span.SetTag("server", credentials.ImapServer)
	span.SetTag("port", credentials.ImapPort)
	span.SetTag("security", credentials.Security().String())

	serverAddr := fmt.Sprintf("%s:%d", credentials.ImapServer, credentials.ImapPort)

	dialer := &net.Dialer{
		Timeout:   d.dialTimeout,
		KeepAlive: 30 * time.Second,
	}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	var c *client.Client
	var err error
	if credentials.ImapTLS {
		c, err = client.DialWithDialerTLS(dialer, serverAddr, &tls.Config{ServerName: credentials.ImapServer})
	} else {
		c, err = client.DialWithDialer(dialer, serverAddr)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to connect to %s: %w", serverAddr, err)
	}

	caps, err := c.Capability()
	if err != nil {
		c.Logout()
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get capabilities: %w", err)
	}
	span.SetTag("server.capabilities", fmt.Sprintf("%v", caps))

	c.Timeout = defaultCommandTimeout
	err = c.Login(credentials.ImapUsername, credentials.ImapPassword)
	if err != nil {
		c.Logout()
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("login failed for %s: %w", credentials.ImapUsername, err)
	}
	c.Timeout = 0

	d.log.Infof("[%s] Connected and logged in to %s", credentials.UserID, serverAddr)
	return c, nil
}
