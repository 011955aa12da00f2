package errortypes

// Timeout should be used to flag that the network failed to deliver a load result before the
// adapter's load timer expired, or before the caller gave up on the request.
type Timeout struct {
	Message string
}

func (err *Timeout) Error() string {
	return err.Message
}

func (err *Timeout) Code() int {
	return TimeoutErrorCode
}

func (err *Timeout) Severity() Severity {
	return SeverityFatal
}

// BadInput should be used when returning errors which are caused by bad input.
// It should _not_ be used if the error is a server-side issue (e.g. failed to send the external request).
//
// A missing application ID or placement ID is a BadInput. These are never retried.
type BadInput struct {
	Message string
}

func (err *BadInput) Error() string {
	return err.Message
}

func (err *BadInput) Code() int {
	return BadInputErrorCode
}

func (err *BadInput) Severity() Severity {
	return SeverityFatal
}

// BadServerResponse should be used when returning errors which are caused by bad/unexpected behavior on the remote server.
//
// For example:
//
//   - The external server responded with a 500
//   - The external server gave a malformed or unexpected response.
//
// These should not be used to log _connection_ errors (e.g. "couldn't find host"),
// which may indicate config issues for the host company
type BadServerResponse struct {
	Message string
}

func (err *BadServerResponse) Error() string {
	return err.Message
}

func (err *BadServerResponse) Code() int {
	return BadServerResponseErrorCode
}

func (err *BadServerResponse) Severity() Severity {
	return SeverityFatal
}

// FailedToRequestBids covers transport failures talking to the network: DNS, refused connections,
// broken bodies.
type FailedToRequestBids struct {
	Message string
}

func (err *FailedToRequestBids) Error() string {
	return err.Message
}

func (err *FailedToRequestBids) Code() int {
	return FailedToRequestBidsErrorCode
}

func (err *FailedToRequestBids) Severity() Severity {
	return SeverityFatal
}

// NoFill is returned when the network answered but had no ad for the placement.
type NoFill struct {
	Message string
}

func (err *NoFill) Error() string {
	return err.Message
}

func (err *NoFill) Code() int {
	return NoFillErrorCode
}

func (err *NoFill) Severity() Severity {
	return SeverityFatal
}

// PlacementInUse is returned when another request already holds the placement.
// Only one ad per placement may be loading or loaded at a time.
type PlacementInUse struct {
	Message string
}

func (err *PlacementInUse) Error() string {
	return err.Message
}

func (err *PlacementInUse) Code() int {
	return PlacementInUseErrorCode
}

func (err *PlacementInUse) Severity() Severity {
	return SeverityFatal
}

// AlreadyPresented is returned when an ad handle is presented a second time.
type AlreadyPresented struct {
	Message string
}

func (err *AlreadyPresented) Error() string {
	return err.Message
}

func (err *AlreadyPresented) Code() int {
	return AlreadyPresentedErrorCode
}

func (err *AlreadyPresented) Severity() Severity {
	return SeverityFatal
}

// FailedToMarshal is returned when an outgoing request could not be encoded.
type FailedToMarshal struct {
	Message string
}

func (err *FailedToMarshal) Error() string {
	return err.Message
}

func (err *FailedToMarshal) Code() int {
	return FailedToMarshalErrorCode
}

func (err *FailedToMarshal) Severity() Severity {
	return SeverityFatal
}

// FailedToUnmarshal is returned when a network response could not be decoded.
type FailedToUnmarshal struct {
	Message string
}

func (err *FailedToUnmarshal) Error() string {
	return err.Message
}

func (err *FailedToUnmarshal) Code() int {
	return FailedToUnmarshalErrorCode
}

func (err *FailedToUnmarshal) Severity() Severity {
	return SeverityFatal
}

// Warning is a generic non-fatal error.
type Warning struct {
	Message     string
	WarningCode int
}

func (err *Warning) Error() string {
	return err.Message
}

func (err *Warning) Code() int {
	return err.WarningCode
}

func (err *Warning) Severity() Severity {
	return SeverityWarning
}
