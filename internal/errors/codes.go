package errors

type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeConfigValidation Code = "CONFIG_VALIDATION_ERROR"
	CodeConfigReadError  Code = "CONFIG_READ_ERROR"
	CodeConfigParseError Code = "CONFIG_PARSE_ERROR"

	// CodeScanIncomplete marks a fatal catalog failure: the instance scan
	// did not cover the full scope, so nothing may be acted upon.
	CodeScanIncomplete Code = "SCAN_INCOMPLETE"

	CodePlatformAPIError     Code = "PLATFORM_API_ERROR"
	CodePlatformAuthError    Code = "PLATFORM_AUTH_ERROR"
	CodeProviderThrottled    Code = "PROVIDER_THROTTLED"
	CodeProviderUnavailable  Code = "PROVIDER_UNAVAILABLE"
	CodeMalformedRequest     Code = "MALFORMED_REQUEST"
	CodeResourceNotFound     Code = "RESOURCE_NOT_FOUND"
	CodeInvalidInstanceState Code = "INVALID_INSTANCE_STATE"
	CodeDeadlineExceeded     Code = "DEADLINE_EXCEEDED"
)

func (c Code) String() string {
	return string(c)
}

// Retryable reports whether an operation failing with this code is expected
// to succeed on a later attempt.
func (c Code) Retryable() bool {
	return c == CodeProviderThrottled || c == CodeProviderUnavailable
}
