package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrMissingConfig   ErrorCode = "missing_configuration"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Profile validation errors
	ErrInvalidGovernor            ErrorCode = "invalid_governor"
	ErrInvalidFrequency           ErrorCode = "invalid_frequency"
	ErrFrequencyRequiresUserspace ErrorCode = "frequency_requires_userspace"

	// Platform errors
	ErrCapabilityRead   ErrorCode = "capability_read_failed"
	ErrTelemetryRead    ErrorCode = "telemetry_read_failed"
	ErrNoSensor         ErrorCode = "telemetry_no_sensor"
	ErrNoBattery        ErrorCode = "battery_not_found"
	ErrBatteryRead      ErrorCode = "battery_read_failed"
	ErrActuation        ErrorCode = "actuation_failed"
	ErrPermissionDenied ErrorCode = "permission_denied"
	ErrTurboUnsupported ErrorCode = "turbo_unsupported"

	// Instance errors
	ErrAlreadyRunning ErrorCode = "already_running"
	ErrProcessList    ErrorCode = "process_list_failed"

	// Application errors
	ErrMainLoop ErrorCode = "main_loop_failed"

	// Lifecycle errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrTimeout        ErrorCode = "operation_timeout"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:                   "Internal error occurred",
	ErrInvalidArgument:            "Invalid argument provided",
	ErrInvalidConfig:              "Invalid configuration",
	ErrMissingConfig:              "Configuration file not found",
	ErrReadConfig:                 "Failed to read configuration",
	ErrInvalidLogLevel:            "Invalid log level",
	ErrInvalidGovernor:            "Governor is not available, use --list to check available governors",
	ErrInvalidFrequency:           "Frequency is not available, use --list to check available frequencies",
	ErrFrequencyRequiresUserspace: "A fixed frequency requires the 'userspace' governor",
	ErrCapabilityRead:             "Failed to read CPU frequency capabilities",
	ErrTelemetryRead:              "Failed to read system telemetry",
	ErrNoSensor:                   "No temperature sensor found",
	ErrNoBattery:                  "Could not find a battery in this device",
	ErrBatteryRead:                "Failed to fetch battery info",
	ErrActuation:                  "Failed to write control surface",
	ErrPermissionDenied:           "Permission denied writing control surface, run as root",
	ErrTurboUnsupported:           "Turbo boost is not supported",
	ErrAlreadyRunning:             "Already running",
	ErrProcessList:                "Failed to list processes",
	ErrMainLoop:                   "Error in main loop",
	ErrInitFailed:                 "Initialization failed",
	ErrShutdownFailed:             "Shutdown failed",
	ErrTimeout:                    "Operation timed out",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
