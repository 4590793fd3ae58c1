package constants

// Error codes surfaced to API clients and db-section renders.

// Configuration errors
const (
	ErrCodeUnknownSectionType = "UNKNOWN_SECTION_TYPE"
	ErrCodeUnknownFieldType   = "UNKNOWN_FIELD_TYPE"
	ErrCodeUnknownChartType   = "UNKNOWN_CHART_TYPE"
	ErrCodeUnknownDisplay     = "UNKNOWN_DISPLAY"
	ErrCodeUnknownQueryType   = "UNKNOWN_QUERY_TYPE"
	ErrCodeMissingSetting     = "MISSING_SETTING"
	ErrCodeConfigMalformed    = "CONFIG_MALFORMED"
)

// External connection errors
const (
	ErrCodeUnknownDriver         = "UNKNOWN_DRIVER"
	ErrCodeConnectionNotFound    = "CONNECTION_NOT_FOUND"
	ErrCodeConnectionDisabled    = "CONNECTION_DISABLED"
	ErrCodeConnectionUnreachable = "CONNECTION_UNREACHABLE"
	ErrCodeQueryFailed           = "QUERY_FAILED"
	ErrCodeInvalidIdentifier     = "INVALID_IDENTIFIER"
	ErrCodeNotNumeric            = "NOT_NUMERIC"
	ErrCodeChartFailed           = "CHART_FAILED"
)

// Request errors
const (
	ErrCodeAccessDenied    = "ACCESS_DENIED"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeValidation      = "VALIDATION_FAILED"
	ErrCodeItemWithoutUser = "ITEM_WITHOUT_SUBJECT"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// Error Messages
// Human-readable messages corresponding to error codes

var ErrorMessages = map[string]string{
	// Configuration
	ErrCodeUnknownSectionType: "The section type is not recognised",
	ErrCodeUnknownFieldType:   "The field type is not recognised",
	ErrCodeUnknownChartType:   "The chart type is not recognised",
	ErrCodeUnknownDisplay:     "The display mode of this section is not recognised",
	ErrCodeUnknownQueryType:   "The query type of this section must be internal or external",
	ErrCodeMissingSetting:     "This section is missing a required setting",
	ErrCodeConfigMalformed:    "The configuration structure is invalid",

	// Connections
	ErrCodeUnknownDriver:         "The external database driver is not supported",
	ErrCodeConnectionNotFound:    "The external database connection does not exist",
	ErrCodeConnectionDisabled:    "The external database connection is disabled",
	ErrCodeConnectionUnreachable: "Unable to connect to the external database",
	ErrCodeQueryFailed:           "The query for this section could not be run",
	ErrCodeInvalidIdentifier:     "A table or column name is not valid",
	ErrCodeNotNumeric:            "The query returned values that cannot be charted",
	ErrCodeChartFailed:           "The chart for this section could not be drawn",

	// Request
	ErrCodeAccessDenied:    MsgAccessDenied,
	ErrCodeNotFound:        "The requested record was not found",
	ErrCodeValidation:      "Some fields could not be saved",
	ErrCodeItemWithoutUser: "An item needs a section and a user",
	ErrCodeUnauthorized:    "Unauthorized",
	ErrCodeRateLimited:     "Too many requests",
	ErrCodeInternal:        MsgUnexpected,
}

// GetErrorMessage returns the human-readable message for an error code
func GetErrorMessage(code string) string {
	if msg, exists := ErrorMessages[code]; exists {
		return msg
	}
	return "An unknown error occurred"
}
