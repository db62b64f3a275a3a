package backend

import "errors"

var (
	// ErrRequestFailed matches every failure returned by the client.
	ErrRequestFailed = errors.New("backend request failed")
	// ErrTimeout additionally matches failures caused by the request deadline.
	ErrTimeout = errors.New("backend request timed out")
)

// ErrorKind says where a request went wrong. It feeds logs and metrics; the
// user-facing message is the same for every kind.
type ErrorKind string

const (
	KindNetwork ErrorKind = "network"
	KindTimeout ErrorKind = "timeout"
	KindStatus  ErrorKind = "status"
	KindDecode  ErrorKind = "decode"
	KindEncode  ErrorKind = "encode"
)

// RequestError is returned by every Client operation.
type RequestError struct {
	Operation  Operation
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	return e.Operation.FailureMessage()
}

func (e *RequestError) Unwrap() []error {
	errs := []error{ErrRequestFailed}
	if e.Kind == KindTimeout {
		errs = append(errs, ErrTimeout)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Operation names a backend capability, e.g. "fetch contractor projects".
type Operation string

const (
	OpContractorProjects   Operation = "fetch contractor projects"
	OpGovernmentProjects   Operation = "fetch government projects"
	OpPublicProjects       Operation = "fetch public projects"
	OpSubmitMilestone      Operation = "submit milestone"
	OpCreateProject        Operation = "create project"
	OpPendingVerifications Operation = "fetch pending verifications"
	OpVerifyMilestone      Operation = "verify milestone"
	OpContractorStats      Operation = "fetch contractor stats"
	OpGovernmentStats      Operation = "fetch government stats"
	OpPublicStats          Operation = "fetch public stats"
)

// FailureMessage is the text shown when the operation fails.
func (o Operation) FailureMessage() string {
	return "Failed to " + string(o)
}

// KindOf extracts the failure kind, or "" when err is not a RequestError.
func KindOf(err error) ErrorKind {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind
	}
	return ""
}
