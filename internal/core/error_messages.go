// Package core provides the business logic for CSV resource imports.
//
// # Error Codes Reference
//
// This file maps technical errors to user-friendly messages with codes for
// support reference. The trigger page and the CLI show the code next to the
// message so operators can look it up here.
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Import already running
//	         Action: Wait for the current import to finish
//	         Patterns: "already running"
//
//	RUN002 - Nothing to import: the source has a header but no data rows
//	         Action: Check the import file has data rows
//	         Patterns: "no resources could be imported"
//
// # Record Errors (REC, META, ATT, TAG)
//
//	REC001  - Record could not be created; later steps were skipped
//	META001 - Record has no metadata columns
//	META002 - One metadata value could not be saved
//	ATT001  - Attachment file missing from the attachments directory
//	ATT002  - Attachment could not be stored or set as primary image
//	TAG001  - Tags could not be associated
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File exceeds maximum size limit
//	FILE002 - File is not a valid CSV
//	FILE003 - File not found
//	FILE004 - File not readable
//	FILE005 - Path is a directory
//	FILE006 - Workbook could not be opened
//
// # Access Errors (AUTH001-AUTH099)
//
//	AUTH001 - No credentials supplied
//	AUTH002 - Credentials lack the import capability
//	AUTH003 - Unknown API key or invalid token
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key
//	DB003 - Foreign key (record referenced does not exist)
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check application logs for the
// original technical error.
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins. Record-level patterns come first because
// their messages wrap lower-level store errors.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Run Errors
	// =========================================================================
	{
		pattern: "already running",
		msg: UserMessage{
			Message: "An import is already running",
			Action:  "Wait for the current import to finish",
			Code:    "RUN001",
		},
	},
	{
		pattern: "no resources could be imported",
		msg: UserMessage{
			Message: "The import file has no data rows",
			Action:  "Check the import file has a header row followed by data rows",
			Code:    "RUN002",
		},
	},

	// =========================================================================
	// Record Errors
	// =========================================================================
	{
		pattern: "failed to insert",
		msg: UserMessage{
			Message: "Record could not be created",
			Action:  "Check the core field values for this row",
			Code:    "REC001",
		},
	},
	{
		pattern: "no metadata found",
		msg: UserMessage{
			Message: "Record has no metadata",
			Action:  "Add at least one metadata column to the import file",
			Code:    "META001",
		},
	},
	{
		pattern: "meta failed",
		msg: UserMessage{
			Message: "A metadata value could not be saved",
			Action:  "Review the metadata value and rerun for this record",
			Code:    "META002",
		},
	},
	{
		pattern: "not found for record",
		msg: UserMessage{
			Message: "Attachment file is missing",
			Action:  "Copy the file into the attachments directory",
			Code:    "ATT001",
		},
	},
	{
		pattern: "attachment",
		msg: UserMessage{
			Message: "Attachment could not be stored",
			Action:  "Check the media library configuration",
			Code:    "ATT002",
		},
	},
	{
		pattern: "tags failed",
		msg: UserMessage{
			Message: "Tags could not be associated",
			Action:  "Check the tag values for this row",
			Code:    "TAG001",
		},
	},

	// =========================================================================
	// File Errors
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with balanced quotes",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "Import file not found",
			Action:  "Check the configured import file path",
			Code:    "FILE003",
		},
	},
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "Import file is not readable",
			Action:  "Check file permissions",
			Code:    "FILE004",
		},
	},
	{
		pattern: "is a directory",
		msg: UserMessage{
			Message: "Import path is a directory",
			Action:  "Point the importer at a CSV file",
			Code:    "FILE005",
		},
	},
	{
		pattern: "open workbook",
		msg: UserMessage{
			Message: "Workbook could not be opened",
			Action:  "Save the workbook as .xlsx or export it to CSV",
			Code:    "FILE006",
		},
	},

	// =========================================================================
	// Access Errors
	// =========================================================================
	{
		pattern: "missing credentials",
		msg: UserMessage{
			Message: "Sign-in required",
			Action:  "Supply an API key or bearer token",
			Code:    "AUTH001",
		},
	},
	{
		pattern: "invalid credentials",
		msg: UserMessage{
			Message: "Credentials were not accepted",
			Action:  "Check the API key or request a new token",
			Code:    "AUTH003",
		},
	},
	{
		pattern: "insufficient permissions",
		msg: UserMessage{
			Message: "You do not have sufficient permissions to run imports",
			Action:  "Ask an administrator for the import role",
			Code:    "AUTH002",
		},
	},

	// =========================================================================
	// Database Errors
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Remove the ID column or purge the previous run",
			Code:    "DB001",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Import parent records first",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try again later",
			Code:    "DB006",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first matching pattern (case-insensitive), or the ERR000
// fallback when none match.
//
// Example:
//
//	msg := MapError(ErrImportRunning)
//	// msg.Code == "RUN001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	return MapMessage(err.Error())
}

// MapMessage maps an already-rendered error string, such as an entry of
// Report.Errors.
func MapMessage(s string) UserMessage {
	if s == "" {
		return UserMessage{}
	}

	errStr := strings.ToLower(s)
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

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging.
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

// NewUserError creates a UserError by mapping a technical error.
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
