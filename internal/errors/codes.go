package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrUnavailable     ErrorCode = "service_unavailable"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Transport errors
	ErrTransport ErrorCode = "transport_failed"

	// Protocol errors
	ErrDecode ErrorCode = "protocol_decode_failed"
	ErrEncode ErrorCode = "protocol_encode_failed"

	// Dispatch errors
	ErrInvalidItem ErrorCode = "dispatch_invalid_item"
	ErrSetAll      ErrorCode = "dispatch_set_all"

	// Provider errors
	ErrCommandFailed ErrorCode = "provider_command_failed"
	ErrParseOutput   ErrorCode = "provider_parse_failed"
	ErrInvalidValue  ErrorCode = "provider_invalid_value"
	ErrReadOnly      ErrorCode = "provider_read_only"

	// Retry errors
	ErrRetryExhausted    ErrorCode = "retry_exhausted"
	ErrRetryNotAttempted ErrorCode = "retry_not_attempted"

	// Channel errors
	ErrChannelClosed ErrorCode = "channel_closed"

	// Metrics errors
	ErrInitMetrics ErrorCode = "init_metrics_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:          "Internal error occurred",
	ErrInvalidArgument:   "Invalid argument provided",
	ErrUnavailable:       "Service unavailable",
	ErrAlreadyRunning:    "Another instance is already running",
	ErrInvalidConfig:     "Invalid configuration",
	ErrBindFlags:         "Failed to bind flags",
	ErrReadConfig:        "Failed to read configuration",
	ErrInvalidInterval:   "Invalid interval value",
	ErrInvalidLogLevel:   "Invalid log level",
	ErrInitFailed:        "Initialization failed",
	ErrShutdownFailed:    "Shutdown failed",
	ErrTransport:         "Socket operation failed",
	ErrDecode:            "Malformed message",
	ErrEncode:            "Failed to encode message",
	ErrInvalidItem:       "Invalid item",
	ErrSetAll:            "Cannot set all items at once",
	ErrCommandFailed:     "External command failed",
	ErrParseOutput:       "Unexpected command output",
	ErrInvalidValue:      "Invalid value",
	ErrReadOnly:          "Item is read-only",
	ErrRetryExhausted:    "All retry attempts failed",
	ErrRetryNotAttempted: "Operation was never attempted",
	ErrChannelClosed:     "Update channel closed",
	ErrInitMetrics:       "Failed to initialize metrics",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
