package email_filter

import (
	"strings"

	"github.com/customeros/mailsherpa/domaincheck"
	"github.com/customeros/mailsherpa/mailvalidate"

	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/services/email_processor"
)

var bounceSubjects = []string{
	"mail delivery failure",
	"undelivered mail returned to sender",
	"delivery status notification",
	"undeliverable",
	"undelivered",
	"delivery failure",
	"failure notice",
	"returned mail",
	"returned to sender",
}

// EmailFilter classifies synced messages as bounces, auto replies, bulk or internal mail.
type EmailFilter struct {
	primaryDomainCheck func(domain string) bool
}

func NewEmailFilter() *EmailFilter {
	return &EmailFilter{
		primaryDomainCheck: func(domain string) bool {
			isPrimary, _ := domaincheck.PrimaryDomainCheck(domain)
			return isPrimary
		},
	}
}

// NewEmailFilterWithDomainCheck replaces the DNS backed primary domain lookup.
func NewEmailFilterWithDomainCheck(check func(domain string) bool) *EmailFilter {
	return &EmailFilter{primaryDomainCheck: check}
}

// Classify returns the classification of msg and the rule that matched.
func (f *EmailFilter) Classify(msg *email_processor.NormalizedMessage) (enum.EmailClassification, string) {
	if msg == nil {
		return enum.EmailOK, ""
	}
	headers := &msg.Headers

	if isBounce, reason := f.isBounceNotification(headers, msg.Subject, msg.FromAddress); isBounce {
		return enum.EmailBounceNotification, reason
	}
	if isAuto, reason := f.isAutoresponder(headers); isAuto {
		return enum.EmailAutoResponder, reason
	}
	if isBulk, reason := f.isBulkEmail(headers, msg.FromAddress); isBulk {
		return enum.EmailBulk, reason
	}
	if f.isInternalEmail(msg) {
		return enum.EmailInternal, ""
	}
	return enum.EmailOK, ""
}

func (f *EmailFilter) isInternalEmail(msg *email_processor.NormalizedMessage) bool {
	senderValidation := mailvalidate.ValidateEmailSyntax(msg.FromAddress)
	if !senderValidation.IsValid || senderValidation.IsFreeAccount || senderValidation.Domain == "" {
		return false
	}
	if len(msg.Recipients) == 0 {
		return false
	}

	for _, recipient := range msg.Recipients {
		recipientValidation := mailvalidate.ValidateEmailSyntax(recipient)
		if recipientValidation.Domain == "" {
			continue
		}
		if recipientValidation.Domain != senderValidation.Domain {
			return false
		}
	}
	return true
}

func (f *EmailFilter) isBulkEmail(headers *email_processor.MessageHeaders, from string) (bool, string) {
	if headers.ForwardedFor == "" {
		switch {
		case headers.ReplyToExists && !strings.EqualFold(headers.ReplyTo, from):
			return true, "REPLY-TO != FROM"
		case headers.ReturnPathExists && headers.ReturnPath == "":
			return true, "RETURN-PATH header is empty"
		case headers.ReturnPathExists && !strings.Contains(strings.ToLower(headers.ReturnPath), strings.ToLower(from)):
			return true, "RETURN-PATH != FROM"
		}
	}

	switch {
	case headers.ListUnsubscribe:
		return true, "UNSUBSCRIBE header present"
	case strings.EqualFold(headers.Precedence, "bulk"):
		return true, "PRECEDENCE: BULK header present"
	case headers.Sender != "" && !strings.EqualFold(headers.Sender, from):
		return true, "SENDER != FROM"
	default:
		return f.mailsherpaChecks(from)
	}
}

func (f *EmailFilter) mailsherpaChecks(from string) (bool, string) {
	if from == "" || from == email_processor.DefaultFromAddress {
		return true, "FROM is empty"
	}
	syntaxValidation := mailvalidate.ValidateEmailSyntax(from)
	if syntaxValidation.IsRoleAccount {
		return true, "FROM is a role account"
	}
	if syntaxValidation.IsSystemGenerated {
		return true, "FROM is system generated"
	}
	if f.primaryDomainCheck != nil && syntaxValidation.Domain != "" && !f.primaryDomainCheck(syntaxValidation.Domain) {
		return true, "Email sent from non-primary domain"
	}
	return false, ""
}

func (f *EmailFilter) isAutoresponder(headers *email_processor.MessageHeaders) (bool, string) {
	switch {
	case headers.XAutoreply != "":
		return true, "X-AUTOREPLY header present"
	case headers.XAutoresponse != "":
		return true, "X-AUTORESPONSE header present"
	case headers.XLoop:
		return true, "X-LOOP header present"
	case strings.EqualFold(headers.Precedence, "auto_reply"):
		return true, "PRECEDENCE: AUTO_REPLY header present"
	case headers.AutoSubmitted:
		return true, "AUTO-SUBMITTED header present"
	default:
		return false, ""
	}
}

func (f *EmailFilter) isBounceNotification(headers *email_processor.MessageHeaders, subject, from string) (bool, string) {
	switch {
	case len(headers.XFailedRecipients) > 0:
		return true, "X-FAILED-RECIPIENTS header present"
	case strings.EqualFold(headers.ContentDescription, "delivery report"):
		return true, "CONTENT-DESCRIPTION: DELIVERY REPORT header present"
	case hasBounceKeywords(headers.ReturnPath):
		return true, "RETURN-PATH contains bounce keywords"
	case hasBounceKeywords(from):
		return true, "FROM contains bounce keywords"
	case isBounceSubject(subject):
		return true, "SUBJECT contains bounce keywords"
	default:
		return false, ""
	}
}

func hasBounceKeywords(str string) bool {
	return strings.Contains(strings.ToLower(str), "mailer-daemon")
}

func isBounceSubject(subject string) bool {
	subject = strings.ToLower(subject)
	for _, phrase := range bounceSubjects {
		if strings.Contains(subject, phrase) {
			return true
		}
	}
	return false
}
