package core

// error_messages.go maps technical errors to coded, user-friendly messages.
//
// When users encounter errors, they can quote the code to support staff for
// faster diagnosis. Codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - Unreadable: the file could not be parsed under any encoding
//	          or separator
//	FILE002 - Too large: the upload exceeds the configured size limit
//	FILE003 - Empty: the file has no header line
//	FILE004 - No file: the request carried no file
//	FILE005 - Not found: the path does not exist
//
// # Exploration Errors (EXP001-EXP099)
//
//	EXP001 - Busy: all exploration slots are taken
//	EXP002 - Summary not found: the summary was evicted or never existed
//	EXP003 - Dictionary: the repair dictionary could not be loaded
//	EXP004 - Shutting down: the server stopped admitting explorations
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Cancelled
//	REQ002 - Timed out
//
// # Rate Limiting (RATE001)
//
// # Default Error (ERR000)
//
// Sentinel errors are matched first with errors.Is, so wrapped errors keep
// their code. Messages without a sentinel fall back to case-insensitive
// substring patterns; the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/JonMunkholm/fairprice/internal/ingest"
	"github.com/JonMunkholm/fairprice/internal/summary"
)

// ErrNoFile is returned when a request carries no file.
var ErrNoFile = errors.New("no file provided")

// ErrFileTooLarge is returned when an upload exceeds the size limit.
var ErrFileTooLarge = errors.New("file too large")

// ErrDictionary wraps failures to load a repair dictionary.
var ErrDictionary = errors.New("dictionary")

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgUnreadable = UserMessage{
		Message: "The file could not be read as CSV",
		Action:  "Check that the file is a delimited text file and not a spreadsheet or archive",
		Code:    "FILE001",
	}
	msgTooLarge = UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the file into smaller parts or raise EXPLORE_MAX_FILE_SIZE",
		Code:    "FILE002",
	}
	msgEmpty = UserMessage{
		Message: "The file is empty",
		Action:  "Provide a file with at least a header line",
		Code:    "FILE003",
	}
	msgNoFile = UserMessage{
		Message: "No file was provided",
		Action:  "Attach a CSV file in the 'file' form field",
		Code:    "FILE004",
	}
	msgNotFound = UserMessage{
		Message: "The file does not exist",
		Action:  "Check the path and try again",
		Code:    "FILE005",
	}
	msgBusy = UserMessage{
		Message: "Too many explorations in progress",
		Action:  "Please wait a moment and try again",
		Code:    "EXP001",
	}
	msgSummaryNotFound = UserMessage{
		Message: "Summary not found",
		Action:  "The summary may have been evicted; explore the file again",
		Code:    "EXP002",
	}
	msgDictionary = UserMessage{
		Message: "The repair dictionary could not be loaded",
		Action:  "Check EXPLORE_DICTIONARY_PATH and the YAML syntax",
		Code:    "EXP003",
	}
	msgShuttingDown = UserMessage{
		Message: "The server is shutting down",
		Action:  "Please try again shortly",
		Code:    "EXP004",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or raise EXPLORE_TIMEOUT",
		Code:    "REQ002",
	}
	msgRateLimited = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
)

// errorSentinels are checked in order with errors.Is.
var errorSentinels = []struct {
	target error
	msg    UserMessage
}{
	{ingest.ErrEmptyFile, msgEmpty},
	{os.ErrNotExist, msgNotFound},
	{ingest.ErrUnreadable, msgUnreadable},
	{ErrFileTooLarge, msgTooLarge},
	{ErrNoFile, msgNoFile},
	{ErrTooManyExplorations, msgBusy},
	{ErrShuttingDown, msgShuttingDown},
	{summary.ErrNotFound, msgSummaryNotFound},
	{ErrDictionary, msgDictionary},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgTimeout},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors that arrive as plain text, for example from
// net/http. Specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{"request body too large", msgTooLarge},
	{"file too large", msgTooLarge},
	{"no such file", msgNotFound},
	{"no file provided", msgNoFile},
	{"empty file", msgEmpty},
	{"rate limit", msgRateLimited},
	{"context canceled", msgCancelled},
	{"deadline exceeded", msgTimeout},
	{"timeout", msgTimeout},
}

// defaultMessage is returned when nothing matches (ERR000).
// Support staff should check application logs for the original technical
// error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	_, err := explorer.Explore(ctx, "missing.csv")
//	msg := MapError(err)
//	// msg.Code == "FILE005"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range errorSentinels {
		if errors.Is(err, s.target) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
