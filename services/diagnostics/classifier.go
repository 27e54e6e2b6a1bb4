package diagnostics

import (
	"errors"
	"regexp"
	"strings"

	"github.com/customeros/mailsync/dto"
	"github.com/customeros/mailsync/internal/enum"
)

const (
	CodeAuthFailed       = "AUTH_FAILED"
	CodeConnectionFailed = "CONNECTION_FAILED"
	CodeTimeout          = "TIMEOUT"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeServerError      = "SERVER_ERROR"
	CodeUnknownError     = "UNKNOWN_ERROR"
)

type errorCategory struct {
	kind        enum.SyncErrorKind
	code        string
	retryable   bool
	markers     []string
	pattern     *regexp.Regexp
	userMessage string
	solution    string
}

// categories is evaluated in order, the first match wins. A bare 5xx number only counts
// as a server error when it leads the text or follows a status word.
var categories = []errorCategory{
	{
		kind:      enum.SyncErrorAuthentication,
		code:      CodeAuthFailed,
		retryable: false,
		markers: []string{
			"unsupported auth",
			"authentication failed",
			"authenticationfailed",
			"auth failed",
			"invalid credentials",
			"login failed",
			"invalid login",
			"username and password not accepted",
			"[auth]",
			"logindisabled",
		},
		userMessage: "Authentication failed: the mail server rejected the username or password.",
		solution:    "Verify your credentials. For providers requiring app passwords, generate one and use it instead of your account password.",
	},
	{
		kind:      enum.SyncErrorConnection,
		code:      CodeConnectionFailed,
		retryable: true,
		markers: []string{
			"econnrefused",
			"connection refused",
			"enotfound",
			"no such host",
			"host not found",
			"etimedout",
			"connection timed out",
			"connection reset",
			"connection closed",
			"network is unreachable",
		},
		pattern:     regexp.MustCompile(`\beof\b`),
		userMessage: "Could not connect to the mail server.",
		solution:    "Check the IMAP host and port and make sure the server is reachable from this network.",
	},
	{
		kind:        enum.SyncErrorTimeout,
		code:        CodeTimeout,
		retryable:   true,
		markers:     []string{"timeout", "timed out", "deadline exceeded"},
		userMessage: "The mail server took too long to respond.",
		solution:    "Try again later, preferably outside peak hours.",
	},
	{
		kind:      enum.SyncErrorPermission,
		code:      CodePermissionDenied,
		retryable: false,
		markers: []string{
			"permission denied",
			"access denied",
			"not authorized",
			"unauthorized",
			"forbidden",
			"[noperm]",
		},
		userMessage: "The account is not allowed to access this mailbox.",
		solution:    "Make sure IMAP access is enabled for the account and that the folder is shared with it.",
	},
	{
		kind:        enum.SyncErrorServer,
		code:        CodeServerError,
		retryable:   true,
		markers:     []string{"internal server error", "server error", "service unavailable", "[unavailable]", "try again later"},
		pattern:     regexp.MustCompile(`(?:^|\b(?:returned|status|code|error|response|http(?:/\d(?:\.\d)?)?))[\s:=]*5\d\d\b`),
		userMessage: "The mail server reported an internal error.",
		solution:    "Wait a few minutes and retry. Contact your mail provider if the problem persists.",
	},
}

var unknownCategory = errorCategory{
	kind:        enum.SyncErrorUnknown,
	code:        CodeUnknownError,
	retryable:   true,
	userMessage: "An unexpected error occurred during synchronization.",
	solution:    "Retry the sync. If it keeps failing, review the diagnostic report for this account.",
}

func (c errorCategory) matches(message string) bool {
	for _, marker := range c.markers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return c.pattern != nil && c.pattern.MatchString(message)
}

func (c errorCategory) toSyncError(raw string) *dto.SyncError {
	return &dto.SyncError{
		Kind:        c.kind,
		Code:        c.code,
		Message:     raw,
		UserMessage: c.userMessage,
		Solution:    c.solution,
		Retryable:   c.retryable,
	}
}

// Classify maps err to a SyncError. Errors that already are a SyncError are returned as is.
func Classify(err error) *dto.SyncError {
	if err == nil {
		return nil
	}
	var syncErr *dto.SyncError
	if errors.As(err, &syncErr) {
		return syncErr
	}
	return ClassifyMessage(err.Error())
}

// ClassifyMessage maps raw error text to a SyncError.
func ClassifyMessage(raw string) *dto.SyncError {
	message := strings.ToLower(raw)
	for _, category := range categories {
		if category.matches(message) {
			return category.toSyncError(raw)
		}
	}
	return unknownCategory.toSyncError(raw)
}

// ClassifyForAccount classifies err and, for authentication failures, swaps the generic
// remedy for the provider specific one when the account's provider is known.
func ClassifyForAccount(err error, email string) *dto.SyncError {
	syncErr := Classify(err)
	if syncErr == nil {
		return nil
	}
	if syncErr.Kind == enum.SyncErrorAuthentication {
		if guidance, ok := providerGuidance(email); ok {
			specialized := *syncErr
			specialized.Solution = guidance
			return &specialized
		}
	}
	return syncErr
}
