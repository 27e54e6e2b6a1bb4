package email_filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/services/email_processor"
)

func primaryDomains(domains ...string) func(string) bool {
	return func(domain string) bool {
		for _, d := range domains {
			if d == domain {
				return true
			}
		}
		return false
	}
}

func TestEmailFilter_Classify(t *testing.T) {
	filter := NewEmailFilterWithDomainCheck(primaryDomains("acme.com"))

	tests := []struct {
		name   string
		msg    *email_processor.NormalizedMessage
		want   enum.EmailClassification
		reason string
	}{
		{
			name: "failed recipients header",
			msg: &email_processor.NormalizedMessage{
				FromAddress: "jane@acme.com",
				Subject:     "Hello",
				Headers:     email_processor.MessageHeaders{XFailedRecipients: []string{"bob@acme.com"}},
			},
			want:   enum.EmailBounceNotification,
			reason: "X-FAILED-RECIPIENTS header present",
		},
		{
			name: "mailer daemon sender",
			msg: &email_processor.NormalizedMessage{
				FromAddress: "MAILER-DAEMON@acme.com",
				Subject:     "Hello",
			},
			want:   enum.EmailBounceNotification,
			reason: "FROM contains bounce keywords",
		},
		{
			name: "bounce subject",
			msg: &email_processor.NormalizedMessage{
				FromAddress: "jane@acme.com",
				Subject:     "Undelivered Mail Returned to Sender",
			},
			want:   enum.EmailBounceNotification,
			reason: "SUBJECT contains bounce keywords",
		},
		{
			name: "autoreply header",
			msg: &email_processor.NormalizedMessage{
				FromAddress: "jane@acme.com",
				Subject:     "Out of office",
				Headers:     email_processor.MessageHeaders{XAutoreply: "yes"},
			},
			want:   enum.EmailAutoResponder,
			reason: "X-AUTOREPLY header present",
		},
		{
			name: "list unsubscribe",
			msg: &email_processor.NormalizedMessage{
				FromAddress: "jane@acme.com",
				Subject:     "Digest",
				Headers:     email_processor.MessageHeaders{ListUnsubscribe: true},
			},
			want:   enum.EmailBulk,
			reason: "UNSUBSCRIBE header present",
		},
		{
			name: "reply-to differs from sender",
			msg: &email_processor.NormalizedMessage{
				FromAddress: "jane@acme.com",
				Subject:     "Offer",
				Headers:     email_processor.MessageHeaders{ReplyToExists: true, ReplyTo: "sales@elsewhere.com"},
			},
			want:   enum.EmailBulk,
			reason: "REPLY-TO != FROM",
		},
		{
			name: "non primary domain",
			msg: &email_processor.NormalizedMessage{
				FromAddress: "jane@acme-mail.com",
				Subject:     "Hello",
				Recipients:  []string{"bob@other.org"},
			},
			want:   enum.EmailBulk,
			reason: "Email sent from non-primary domain",
		},
		{
			name: "same domain",
			msg: &email_processor.NormalizedMessage{
				FromAddress: "jane@acme.com",
				Subject:     "Lunch",
				Recipients:  []string{"bob@acme.com", "carol@acme.com"},
			},
			want: enum.EmailInternal,
		},
		{
			name: "external recipient",
			msg: &email_processor.NormalizedMessage{
				FromAddress: "jane@acme.com",
				Subject:     "Lunch",
				Recipients:  []string{"bob@acme.com", "dave@other.org"},
			},
			want: enum.EmailOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := filter.Classify(tt.msg)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestEmailFilter_NilMessage(t *testing.T) {
	got, reason := NewEmailFilterWithDomainCheck(nil).Classify(nil)
	assert.Equal(t, enum.EmailOK, got)
	assert.Empty(t, reason)
}
