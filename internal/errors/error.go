package errors

import "github.com/pkg/errors"

var (
	ErrUserIdMissing = errors.New("userId is missing")

	ErrCredentialsNotFound = errors.New("email credentials not found")
	ErrFolderNotResolved   = errors.New("folder could not be resolved")
	ErrMailboxNotOpened    = errors.New("mailbox could not be opened")
	ErrEmailAlreadyExists  = errors.New("email already stored")
	ErrReportNotFound      = errors.New("diagnostic report not found")
	ErrAttachmentNotFound  = errors.New("attachment not found")
)
