package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/customeros/mailsync/dto"
)

const (
	TypeValidation  = "validation"
	TypeNotFound    = "not_found"
	TypeUnavailable = "unavailable"

	CodeInvalidRequest = "INVALID_REQUEST"
	CodeUserIdMissing  = "USER_ID_MISSING"
	CodeNotFound       = "NOT_FOUND"
	CodeUnavailable    = "SERVICE_UNAVAILABLE"
)

// MultiErrors collects request validation failures per field.
type MultiErrors struct {
	Errors map[string][]ErrorInfo
}

type ErrorInfo struct {
	Message  string
	RawError error
}

func NewMultiErrors() *MultiErrors {
	return &MultiErrors{
		Errors: make(map[string][]ErrorInfo),
	}
}

func (e *MultiErrors) Add(key, message string, err error) {
	e.Errors[key] = append(e.Errors[key], ErrorInfo{
		Message:  message,
		RawError: err,
	})
}

func (e *MultiErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *MultiErrors) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var parts []string
	for _, field := range fields {
		for _, info := range e.Errors[field] {
			parts = append(parts, fmt.Sprintf("%s: %s", field, info.Message))
		}
	}
	return strings.Join(parts, " | ")
}

// Response renders the collected failures. A lone missing userId gets its own code.
func (e *MultiErrors) Response() dto.ErrorResponse {
	code := CodeInvalidRequest
	if infos, ok := e.Errors["userId"]; ok && len(e.Errors) == 1 && len(infos) == 1 {
		code = CodeUserIdMissing
	}
	return dto.ErrorResponse{Error: &dto.ErrorDetails{
		Type:        TypeValidation,
		Code:        code,
		UserMessage: e.Error(),
	}}
}

func NotFound(message string) dto.ErrorResponse {
	return dto.ErrorResponse{Error: &dto.ErrorDetails{
		Type:        TypeNotFound,
		Code:        CodeNotFound,
		UserMessage: message,
	}}
}

func Unavailable(message string) dto.ErrorResponse {
	return dto.ErrorResponse{Error: &dto.ErrorDetails{
		Type:        TypeUnavailable,
		Code:        CodeUnavailable,
		UserMessage: message,
		Solution:    "Try again later",
	}}
}

func FromSyncError(syncErr *dto.SyncError) dto.ErrorResponse {
	return dto.ErrorResponse{Error: &dto.ErrorDetails{
		Type:        syncErr.Kind.String(),
		Code:        syncErr.Code,
		UserMessage: syncErr.UserMessage,
		Solution:    syncErr.Solution,
	}}
}
