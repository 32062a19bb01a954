package queue

import "fmt"

// Error codes are bit-exact to match SQS clients; see spec §7.
const (
	CodeNonExistentQueue = "AWS.SimpleQueueService.NonExistentQueue"
	CodeQueueNameExists  = "AWS.SimpleQueueService.QueueNameExists"
	CodeInvalidParameter = "InvalidParameterValue"
	CodeReceiptInvalid   = "ReceiptHandleIsInvalid"
	CodeInvalidAction    = "InvalidAction"
	CodeMissingParameter = "MissingParameter"
	CodeUnknown          = "AWS.SimpleQueueService.Unknown"
	CodeInternalError    = "InternalError"
)

// SQSError is the typed error every user-visible failure surfaces as.
// The HTTP layer renders it as the SQS XML error body.
type SQSError struct {
	Code    string
	Message string
}

func (e *SQSError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code, format string, args ...interface{}) *SQSError {
	return &SQSError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func errNonExistentQueue(name string) *SQSError {
	return newError(CodeNonExistentQueue, "The specified queue %s does not exist.", name)
}

func errQueueNameExists(name string) *SQSError {
	return newError(CodeQueueNameExists, "A queue named %s already exists with different attributes.", name)
}

func errReceiptInvalid(handle string) *SQSError {
	return newError(CodeReceiptInvalid, "The input receipt handle %q is not a valid receipt handle.", handle)
}

func errInvalidParameter(format string, args ...interface{}) *SQSError {
	return newError(CodeInvalidParameter, format, args...)
}

func errMissingParameter(name string) *SQSError {
	return newError(CodeMissingParameter, "The request must contain the parameter %s.", name)
}
