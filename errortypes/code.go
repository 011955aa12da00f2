package errortypes

import "errors"

// Defines numeric codes for well-known errors.
const (
	UnknownErrorCode = 999
	TimeoutErrorCode = iota
	BadInputErrorCode
	BadServerResponseErrorCode
	FailedToRequestBidsErrorCode
	NoFillErrorCode
	PlacementInUseErrorCode
	AlreadyPresentedErrorCode
	FailedToMarshalErrorCode
	FailedToUnmarshalErrorCode
)

// Defines numeric codes for well-known warnings.
const (
	UnknownWarningCode      = 10999
	DroppedCallbackWarnCode = iota + 10000
)

// Coder provides an error or warning code with severity.
type Coder interface {
	Code() int
	Severity() Severity
}

// ReadCode returns the code of the first Coder in err's chain, or UnknownErrorCode if there is none.
func ReadCode(err error) int {
	var coder Coder
	if errors.As(err, &coder) {
		return coder.Code()
	}
	return UnknownErrorCode
}
