package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/Sage-Bionetworks-IT/lambda-ec2-terminator/internal/errors"
)

// Classify maps an AWS SDK error to an application error code so callers
// can decide retry vs abort without parsing AWS strings themselves.
// service and operation identify the call site for the wrapped message.
func Classify(service, operation string, err error, ctx context.Context) error {
	if err == nil {
		return errors.New(errors.CodeInternal, fmt.Sprintf("unexpected nil error in AWS error handler for %s %s", service, operation))
	}

	if ctx.Err() != nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.CodeDeadlineExceeded,
			fmt.Sprintf("context cancelled during AWS %s %s call", service, operation))
	}

	code := apiErrorCode(err)
	errMsg := err.Error()

	switch {
	case isThrottlingCode(code) || strings.Contains(errMsg, "RequestLimitExceeded") || strings.Contains(errMsg, "Throttling"):
		return errors.Wrap(err, errors.CodeProviderThrottled,
			fmt.Sprintf("AWS throttled %s %s call", service, operation))

	case isAuthCode(code) ||
		strings.Contains(errMsg, "AuthFailure") ||
		strings.Contains(errMsg, "UnauthorizedOperation") ||
		strings.Contains(errMsg, "AccessDenied"):
		return errors.Wrap(err, errors.CodePlatformAuthError,
			fmt.Sprintf("AWS authentication error on %s %s call", service, operation))

	case code == "InvalidInstanceID.NotFound" || strings.Contains(errMsg, "InvalidInstanceID.NotFound"):
		return errors.Wrap(err, errors.CodeResourceNotFound,
			fmt.Sprintf("instance(s) not found during %s %s call", service, operation))

	case code == "IncorrectInstanceState" || code == "IncorrectState":
		return errors.Wrap(err, errors.CodeInvalidInstanceState,
			fmt.Sprintf("instance(s) in an unactionable state during %s %s call", service, operation))

	case isMalformedCode(code) || strings.Contains(errMsg, "InvalidParameter"):
		return errors.Wrap(err, errors.CodeMalformedRequest,
			fmt.Sprintf("malformed AWS %s %s request", service, operation))

	case isUnavailableCode(code):
		return errors.Wrap(err, errors.CodeProviderUnavailable,
			fmt.Sprintf("AWS %s unavailable during %s call", service, operation))
	}

	return errors.Wrap(err, errors.CodePlatformAPIError,
		fmt.Sprintf("AWS %s %s call failed", service, operation))
}

func apiErrorCode(err error) string {
	// Type assertion first so hand-written test errors work too.
	if coded, ok := err.(interface{ ErrorCode() string }); ok && coded != nil {
		return coded.ErrorCode()
	}
	var apiErr smithy.APIError
	if stderrs.As(err, &apiErr) && apiErr != nil {
		return apiErr.ErrorCode()
	}
	return ""
}

func isThrottlingCode(code string) bool {
	switch code {
	case "RequestLimitExceeded", "Throttling", "ThrottlingException",
		"RequestThrottled", "RequestThrottledException",
		"TooManyRequestsException", "SlowDown", "EC2ThrottledException":
		return true
	}
	return false
}

func isAuthCode(code string) bool {
	switch code {
	case "AuthFailure", "UnauthorizedOperation", "AccessDenied",
		"AccessDeniedException", "ExpiredToken", "ExpiredTokenException":
		return true
	}
	return false
}

func isMalformedCode(code string) bool {
	switch code {
	case "InvalidInstanceID.Malformed", "InvalidParameterValue",
		"InvalidParameterCombination", "MissingParameter", "ValidationError":
		return true
	}
	return false
}

func isUnavailableCode(code string) bool {
	switch code {
	case "Unavailable", "ServiceUnavailable", "InternalError",
		"InternalFailure", "RequestExpired":
		return true
	}
	return false
}
