package core

// # Error Codes Reference
//
// This file defines operator-friendly error messages with codes for support
// reference. A failed run prints the code next to the technical error so the
// operator can look it up here.
//
// Error codes are grouped by category:
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Config file not found: The configuration file could not be opened
//	         Action: Pass --config or set CONFIG_PATH to an existing YAML file
//	         Patterns: "config file not found"
//
//	CFG002 - Missing setting: A required configuration key is empty
//	         Action: Add the key to the YAML file or set its environment variable
//	         Patterns: "is required"
//
//	CFG003 - Invalid setting: A configuration value is malformed
//	         Action: Fix the value named in the error
//	         Matches: ErrConfig
//
// # Read Errors (READ001-READ099)
//
//	READ001 - Input not found: The input file does not exist
//	          Action: Check file.input and PERSONETL_INPUT
//	          Patterns: "no such file or directory"
//
//	READ002 - Unreadable input: The input could not be parsed
//	          Action: Check the file is pipe-delimited text
//	          Matches: ErrRead
//
// # Row Errors (ROW001-ROW099)
//
// ROW001-ROW005 never fail a run. They are reported per quarantined row.
// ROW006 fails a load: a document in the output artifact is incomplete.
//
//	ROW001 - Null field: A column is empty or NA
//	ROW002 - Field count: The line does not have 12 fields
//	ROW003 - Date format: BirthDate is not a valid DDMMYYYY date
//	ROW004 - Salary format: Salary is not numeric
//	ROW005 - Salary range: Salary is zero or negative
//	ROW006 - Invalid document: A document read back for loading failed validation
//
// # Output Errors (OUT001-OUT099)
//
//	OUT001 - Write failed: An output artifact could not be written
//	         Action: Check the output directory exists and is writable
//	         Matches: ErrWrite
//
// # Load Errors (LOAD001-LOAD099)
//
//	LOAD001 - Store timeout: The document store did not answer in time
//	          Action: Check mongo.url and raise mongo.timeout if the store is slow
//	          Patterns: "server selection", "deadline exceeded"
//
//	LOAD002 - Store unreachable: The document store refused the connection
//	          Action: Check the store is running and the credentials are right
//	          Matches: ErrConnection
//
//	LOAD003 - Insert failed: The store rejected the documents
//	          Action: Check the store logs; the output file can be replayed with "load"
//	          Matches: ErrInsert
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Check the logs for the run id
//
// # Matching
//
// Sentinels are matched with errors.Is; patterns case-insensitively with
// strings.Contains. The first matching entry wins, so more specific entries
// come before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides operator-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern matches an error by sentinel, by substring, or both.
type errorPattern struct {
	sentinel error
	pattern  string
	msg      UserMessage
}

func (ep errorPattern) matches(err error, lower string) bool {
	if ep.sentinel != nil && errors.Is(err, ep.sentinel) {
		return true
	}
	return ep.pattern != "" && strings.Contains(lower, ep.pattern)
}

var (
	msgLoadTimeout = UserMessage{
		Message: "The document store did not answer in time",
		Action:  "Check mongo.url and raise mongo.timeout if the store is slow",
		Code:    "LOAD001",
	}
	msgMissingSetting = UserMessage{
		Message: "A required configuration key is empty",
		Action:  "Add the key to the YAML file or set its environment variable",
		Code:    "CFG002",
	}
)

// errorPatterns is ordered: specific entries before general ones.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Configuration (CFG001-CFG003)
	// =========================================================================
	{
		pattern: "config file not found",
		msg: UserMessage{
			Message: "The configuration file could not be opened",
			Action:  "Pass --config or set CONFIG_PATH to an existing YAML file",
			Code:    "CFG001",
		},
	},
	{pattern: "is required when", msg: msgMissingSetting},
	{pattern: "is required", msg: msgMissingSetting},
	{
		sentinel: ErrConfig,
		msg: UserMessage{
			Message: "A configuration value is malformed",
			Action:  "Fix the value named in the error",
			Code:    "CFG003",
		},
	},

	// =========================================================================
	// Store (LOAD001-LOAD003)
	// Timeouts first: they are usually wrapped in ErrConnection too.
	// =========================================================================
	{pattern: "server selection", msg: msgLoadTimeout},
	{pattern: "deadline exceeded", msg: msgLoadTimeout},
	{
		sentinel: ErrConnection,
		msg: UserMessage{
			Message: "The document store refused the connection",
			Action:  "Check the store is running and the credentials are right",
			Code:    "LOAD002",
		},
	},
	{
		sentinel: ErrInsert,
		msg: UserMessage{
			Message: "The store rejected the documents",
			Action:  `Check the store logs; the output file can be replayed with "load"`,
			Code:    "LOAD003",
		},
	},

	// =========================================================================
	// Files (READ001-READ002, OUT001)
	// =========================================================================
	{
		sentinel: ErrWrite,
		msg: UserMessage{
			Message: "An output artifact could not be written",
			Action:  "Check the output directory exists and is writable",
			Code:    "OUT001",
		},
	},
	{
		pattern: "no such file or directory",
		msg: UserMessage{
			Message: "The input file does not exist",
			Action:  "Check file.input and PERSONETL_INPUT",
			Code:    "READ001",
		},
	},
	{
		sentinel: ErrRead,
		msg: UserMessage{
			Message: "The input could not be read",
			Action:  "Check the file is pipe-delimited text",
			Code:    "READ002",
		},
	},
}

// rowMessages maps each reject reason to its code.
var rowMessages = map[RejectReason]UserMessage{
	ReasonNullField: {
		Message: "A column is empty or NA",
		Action:  "Fill the column in the source feed",
		Code:    "ROW001",
	},
	ReasonFieldCount: {
		Message: "The line does not have the expected number of fields",
		Action:  "Check for stray or missing delimiters",
		Code:    "ROW002",
	},
	ReasonDateFormat: {
		Message: "BirthDate is not a valid DDMMYYYY date",
		Action:  "Correct the date in the source feed",
		Code:    "ROW003",
	},
	ReasonSalaryFormat: {
		Message: "Salary is not numeric",
		Action:  "Remove text from the salary column",
		Code:    "ROW004",
	},
	ReasonSalaryRange: {
		Message: "Salary is zero or negative",
		Action:  "Correct the salary in the source feed",
		Code:    "ROW005",
	},
	ReasonInvalidDocument: {
		Message: "A document in the output file is incomplete or malformed",
		Action:  "Regenerate the output file with the transform command",
		Code:    "ROW006",
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the run id",
	Code:    "ERR000",
}

// MapError converts a technical error to an operator-friendly message.
// Row errors map by reason; everything else by the first matching entry of
// errorPatterns. Unmatched errors get ERR000.
//
// Example:
//
//	msg := MapError(fmt.Errorf("%w: dial tcp", ErrConnection))
//	// msg.Code == "LOAD002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var rowErr RowError
	if errors.As(err, &rowErr) {
		if msg, ok := rowMessages[rowErr.Reason]; ok {
			return msg
		}
	}

	lower := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if ep.matches(err, lower) {
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

// IsUserFacing reports whether err matches a known entry rather than the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with an operator-friendly message.
// The original error is preserved for logging.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // Friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
