package common

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error

	// Hint is a human-readable remediation, empty when there is nothing to suggest.
	Hint string
	// StatusCode is the vendor HTTP status that produced the error, 0 if none.
	StatusCode int
	// RetryAfter is the vendor-suggested wait before retrying, 0 if unknown.
	RetryAfter time.Duration
}

func (e *AppError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg = msg + " (" + e.Hint + ")"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrAuthentication) and friends work for coded errors.
func (e *AppError) Is(target error) bool {
	s, ok := codeSentinels[e.Code]
	return ok && s == target
}

// Error codes
const (
	CodeConfiguration    = "CONFIG_ERROR"
	CodeAuthentication   = "AUTHENTICATION_FAILED"
	CodeEndpointNotFound = "ENDPOINT_NOT_FOUND"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeTransient        = "TRANSIENT_ANALYSIS_ERROR"
	CodeNoData           = "NO_DATA_EXTRACTED"
)

// Common application errors
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrConfiguration    = errors.New("configuration error")
	ErrAuthentication   = errors.New("authentication failed")
	ErrEndpointNotFound = errors.New("endpoint not found")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrTransient        = errors.New("transient analysis failure")
	ErrNoData           = errors.New("no data extracted")
)

var codeSentinels = map[string]error{
	CodeConfiguration:    ErrConfiguration,
	CodeAuthentication:   ErrAuthentication,
	CodeEndpointNotFound: ErrEndpointNotFound,
	CodeInvalidRequest:   ErrInvalidRequest,
	CodeTransient:        ErrTransient,
	CodeNoData:           ErrNoData,
}

const (
	hintAuthentication = "check the document analysis API key"
	hintEndpoint       = "check the document analysis endpoint URL"
	hintInvalidRequest = "the file may be too small or in an unsupported format; the minimum size is typically 4KB"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func NewConfigurationError(message string, cause error) *AppError {
	return NewAppError(CodeConfiguration, message, cause)
}

func NewNoDataError(message string) *AppError {
	return NewAppError(CodeNoData, message, nil)
}

func NewTransientError(message string, cause error) *AppError {
	return NewAppError(CodeTransient, message, cause)
}

// ClassifyStatus turns a non-2xx vendor status into a coded error.
// 401, 404 and 400 get their dedicated kinds; everything else is transient.
func ClassifyStatus(statusCode int, cause error) *AppError {
	var e *AppError
	switch statusCode {
	case http.StatusUnauthorized:
		e = NewAppError(CodeAuthentication, "authentication failed", cause)
		e.Hint = hintAuthentication
	case http.StatusNotFound:
		e = NewAppError(CodeEndpointNotFound, "endpoint not found", cause)
		e.Hint = hintEndpoint
	case http.StatusBadRequest:
		e = NewAppError(CodeInvalidRequest, "invalid request", cause)
		e.Hint = hintInvalidRequest
	default:
		e = NewTransientError("vendor returned status "+strconv.Itoa(statusCode), cause)
	}
	e.StatusCode = statusCode
	return e
}

// IsRetryable reports whether another attempt could plausibly succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrAuthentication),
		errors.Is(err, ErrEndpointNotFound),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrNoData):
		return false
	}
	return true
}

// CodeOf returns the AppError code carried by err, or "" when err is not coded.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

var grpcCodes = map[string]codes.Code{
	CodeConfiguration:    codes.FailedPrecondition,
	CodeAuthentication:   codes.Unauthenticated,
	CodeEndpointNotFound: codes.NotFound,
	CodeInvalidRequest:   codes.InvalidArgument,
	CodeTransient:        codes.Unavailable,
	CodeNoData:           codes.NotFound,
}

// ToStatus converts err into a gRPC status error carrying ErrorInfo and,
// when the vendor suggested a wait, RetryInfo.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return status.Error(codes.Internal, err.Error())
	}
	code, ok := grpcCodes[appErr.Code]
	if !ok {
		code = codes.Internal
	}
	st := status.New(code, appErr.Error())

	info := &errdetails.ErrorInfo{
		Reason:   appErr.Code,
		Domain:   "docextract",
		Metadata: map[string]string{},
	}
	if appErr.Hint != "" {
		info.Metadata["hint"] = appErr.Hint
	}
	if appErr.StatusCode > 0 {
		info.Metadata["http_status"] = strconv.Itoa(appErr.StatusCode)
	}

	var detailed *status.Status
	var derr error
	if appErr.RetryAfter > 0 {
		detailed, derr = st.WithDetails(info, &errdetails.RetryInfo{RetryDelay: durationpb.New(appErr.RetryAfter)})
	} else {
		detailed, derr = st.WithDetails(info)
	}
	if derr != nil {
		return st.Err()
	}
	return detailed.Err()
}

// StatusCodeName returns the gRPC code name ToStatus would assign to err.
func StatusCodeName(err error) string {
	if err == nil {
		return codes.OK.String()
	}
	return status.Code(ToStatus(err)).String()
}
