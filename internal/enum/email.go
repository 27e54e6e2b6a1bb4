package enum

type EmailProvider string

const (
	EmailGmail   EmailProvider = "gmail"
	EmailOutlook EmailProvider = "outlook"
	EmailYahoo   EmailProvider = "yahoo"
	EmailICloud  EmailProvider = "icloud"
	EmailAOL     EmailProvider = "aol"
	EmailGeneric EmailProvider = "generic"
)

func (t EmailProvider) String() string {
	return string(t)
}

// ProviderFromDomain maps a mail domain to the provider family it belongs to.
func ProviderFromDomain(domain string) EmailProvider {
	switch domain {
	case "gmail.com", "googlemail.com":
		return EmailGmail
	case "outlook.com", "hotmail.com", "live.com", "msn.com":
		return EmailOutlook
	case "yahoo.com", "ymail.com":
		return EmailYahoo
	case "icloud.com", "me.com", "mac.com":
		return EmailICloud
	case "aol.com":
		return EmailAOL
	default:
		return EmailGeneric
	}
}

type EmailSecurity string

const (
	EmailSecurityNone EmailSecurity = "none"
	EmailSecurityTLS  EmailSecurity = "tls"
)

func (t EmailSecurity) String() string {
	return string(t)
}

type EmailClassification string

const (
	EmailAutoResponder      EmailClassification = "auto_responder"
	EmailBounceNotification EmailClassification = "bounce_notification"
	EmailBulk               EmailClassification = "bulk_email"
	EmailInternal           EmailClassification = "internal"
	EmailOK                 EmailClassification = "ok"
)

func (t EmailClassification) String() string {
	return string(t)
}
