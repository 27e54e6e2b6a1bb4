package diagnostics

import (
	"github.com/customeros/mailsync/internal/enum"
	"github.com/customeros/mailsync/internal/utils"
)

const genericProviderGuidance = "Consult your email provider's IMAP/SMTP documentation for the correct server settings and authentication method."

var providerGuidanceTable = map[enum.EmailProvider]string{
	enum.EmailGmail:   "Gmail: enable IMAP in Gmail settings and sign in with an app password (requires 2-Step Verification) from https://myaccount.google.com/apppasswords.",
	enum.EmailOutlook: "Outlook: use outlook.office365.com on port 993 with SSL. If two-step verification is on, create an app password in your Microsoft account security settings.",
	enum.EmailYahoo:   "Yahoo: generate an app password under Account Security and connect to imap.mail.yahoo.com on port 993.",
	enum.EmailICloud:  "iCloud: create an app-specific password at https://appleid.apple.com and connect to imap.mail.me.com on port 993.",
	enum.EmailAOL:     "AOL: generate an app password under Account Security and connect to imap.aol.com on port 993.",
}

func providerGuidance(email string) (string, bool) {
	provider := enum.ProviderFromDomain(utils.ExtractDomainFromEmail(email))
	guidance, ok := providerGuidanceTable[provider]
	return guidance, ok
}

// ProviderGuidance returns the provider specific setup hint for email, or a generic hint.
func ProviderGuidance(email string) string {
	if guidance, ok := providerGuidance(email); ok {
		return guidance
	}
	return genericProviderGuidance
}
