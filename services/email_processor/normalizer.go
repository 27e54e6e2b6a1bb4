package email_processor

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	"github.com/customeros/mailsync/internal/utils"
)

const (
	DefaultFromAddress = "unknown@example.com"
	DefaultSubject     = "(no subject)"
	DefaultContentType = "application/octet-stream"

	generatedMessageIDDomain = "mailsync.local"
)

// NormalizedMessage is the structured form of a raw message source.
type NormalizedMessage struct {
	FromAddress string
	FromName    string
	To          string
	Cc          string
	Bcc         string
	Recipients  []string
	Subject     string
	BodyText    string
	BodyHTML    string
	MessageID   string
	// GeneratedMessageID is set when the source carried no Message-ID header.
	GeneratedMessageID bool
	Date               time.Time
	Attachments        []AttachmentDescriptor
	Headers            MessageHeaders
	// ParseWarnings lists recoverable MIME problems found while parsing.
	ParseWarnings []string
}

// MessageHeaders holds the headers used to classify a message.
type MessageHeaders struct {
	AutoSubmitted      bool
	ContentDescription string
	ListUnsubscribe    bool
	Precedence         string
	ReturnPath         string
	ReturnPathExists   bool
	XAutoreply         string
	XAutoresponse      string
	XLoop              bool
	XFailedRecipients  []string
	ReplyTo            string
	ReplyToExists      bool
	Sender             string
	ForwardedFor       string
}

type AttachmentDescriptor struct {
	Filename    string
	ContentType string
	SizeBytes   int
	ContentID   string
	IsInline    bool
	Content     []byte
}

// ParseFailure describes a source that could not be parsed at all.
type ParseFailure struct {
	Reason string
	Err    error
}

func (f *ParseFailure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Reason, f.Err)
	}
	return f.Reason
}

func (f *ParseFailure) Unwrap() error {
	return f.Err
}

// Result holds exactly one of Message or Failure.
type Result struct {
	Message *NormalizedMessage
	Failure *ParseFailure
}

func (r Result) Failed() bool {
	return r.Failure != nil
}

// Normalize parses a raw RFC 5322 source. It never panics on malformed input;
// unparseable sources come back as a Failure.
func Normalize(source []byte) (result Result) {
	return normalizeAt(source, utils.Now)
}

func normalizeAt(source []byte, now func() time.Time) (result Result) {
	if len(bytes.TrimSpace(source)) == 0 {
		return Result{Failure: &ParseFailure{Reason: "empty message source"}}
	}

	defer func() {
		if r := recover(); r != nil {
			result = Result{Failure: &ParseFailure{
				Reason: "message parser panicked",
				Err:    errors.Errorf("%v", r),
			}}
		}
	}()

	env, err := enmime.ReadEnvelope(bytes.NewReader(source))
	if err != nil {
		return Result{Failure: &ParseFailure{Reason: "failed to parse message", Err: err}}
	}

	msg := &NormalizedMessage{
		To:       strings.TrimSpace(env.GetHeader("To")),
		Cc:       strings.TrimSpace(env.GetHeader("Cc")),
		Bcc:      strings.TrimSpace(env.GetHeader("Bcc")),
		Subject:  strings.TrimSpace(env.GetHeader("Subject")),
		BodyText: env.Text,
		BodyHTML: env.HTML,
	}

	msg.FromAddress, msg.FromName = parseFrom(env)
	msg.Headers = readHeaders(env)
	msg.Recipients = recipients(env)

	if msg.Subject == "" {
		msg.Subject = DefaultSubject
	}

	msg.MessageID = strings.TrimSpace(env.GetHeader("Message-ID"))
	if msg.MessageID == "" {
		msg.MessageID = utils.GenerateMessageID(generatedMessageIDDomain, env.GetHeader("Subject")+env.GetHeader("Date"))
		msg.GeneratedMessageID = true
	}

	if date, err := env.Date(); err == nil && !date.IsZero() {
		msg.Date = date.UTC()
	} else {
		msg.Date = now()
	}

	for _, part := range env.Attachments {
		msg.Attachments = append(msg.Attachments, describePart(part))
	}
	for _, part := range env.Inlines {
		msg.Attachments = append(msg.Attachments, describePart(part))
	}

	for _, perr := range env.Errors {
		msg.ParseWarnings = append(msg.ParseWarnings, perr.Error())
	}

	return Result{Message: msg}
}

func parseFrom(env *enmime.Envelope) (string, string) {
	addresses, err := env.AddressList("From")
	if err != nil || len(addresses) == 0 || addresses[0] == nil {
		return DefaultFromAddress, ""
	}

	sender := addresses[0]
	validation := mailvalidate.ValidateEmailSyntax(sender.Address)
	if !validation.IsValid {
		return DefaultFromAddress, sender.Name
	}
	return validation.CleanEmail, sender.Name
}

func readHeaders(env *enmime.Envelope) MessageHeaders {
	exists := func(key string) bool {
		return len(env.GetHeaderValues(key)) > 0
	}

	headers := MessageHeaders{
		ContentDescription: strings.TrimSpace(env.GetHeader("Content-Description")),
		ListUnsubscribe:    exists("List-Unsubscribe"),
		Precedence:         strings.TrimSpace(env.GetHeader("Precedence")),
		ReturnPath:         strings.Trim(strings.TrimSpace(env.GetHeader("Return-Path")), "<>"),
		ReturnPathExists:   exists("Return-Path"),
		XAutoreply:         env.GetHeader("X-Autoreply"),
		XAutoresponse:      env.GetHeader("X-Autoresponse"),
		XLoop:              exists("X-Loop"),
		ReplyToExists:      exists("Reply-To"),
		Sender:             addressOf(env, "Sender"),
		ForwardedFor:       env.GetHeader("X-Forwarded-For"),
	}

	autoSubmitted := strings.ToLower(strings.TrimSpace(env.GetHeader("Auto-Submitted")))
	headers.AutoSubmitted = autoSubmitted != "" && autoSubmitted != "no"

	if headers.ForwardedFor == "" {
		headers.ForwardedFor = env.GetHeader("Forwarded-For")
	}
	if headers.ReplyToExists {
		headers.ReplyTo = addressOf(env, "Reply-To")
	}

	if failed := env.GetHeader("X-Failed-Recipients"); failed != "" {
		for _, recipient := range strings.Split(failed, ",") {
			if recipient = strings.TrimSpace(recipient); recipient != "" {
				headers.XFailedRecipients = append(headers.XFailedRecipients, recipient)
			}
		}
	}

	return headers
}

func recipients(env *enmime.Envelope) []string {
	var result []string
	for _, key := range []string{"To", "Cc", "Bcc"} {
		addresses, err := env.AddressList(key)
		if err != nil {
			continue
		}
		for _, address := range addresses {
			if address != nil && address.Address != "" {
				result = append(result, strings.ToLower(address.Address))
			}
		}
	}
	return result
}

func addressOf(env *enmime.Envelope, key string) string {
	addresses, err := env.AddressList(key)
	if err != nil || len(addresses) == 0 || addresses[0] == nil {
		return strings.TrimSpace(env.GetHeader(key))
	}
	return strings.ToLower(addresses[0].Address)
}

func describePart(part *enmime.Part) AttachmentDescriptor {
	contentType := part.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}
	contentID := strings.Trim(strings.TrimSpace(part.ContentID), "<>")

	filename := part.FileName
	if filename == "" {
		filename = "attachment." + utils.GetFileExtensionFromContentType(contentType)
	}

	return AttachmentDescriptor{
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   len(part.Content),
		ContentID:   contentID,
		IsInline:    contentID != "",
		Content:     part.Content,
	}
}
