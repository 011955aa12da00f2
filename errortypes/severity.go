package errortypes

// Severity represents the severity level of an ad load error.
type Severity int

const (
	// SeverityUnknown represents an unknown severity level.
	SeverityUnknown Severity = iota

	// SeverityFatal represents an error which ends the load request.
	SeverityFatal

	// SeverityWarning represents a non-fatal error, such as a network callback which arrived
	// after the request had already completed and was ignored.
	SeverityWarning
)
