package errortypes

import "github.com/prebid/openrtb/v20/openrtb3"

// GetNBRCodeFromError maps a load failure onto the closest OpenRTB no-bid reason.
func GetNBRCodeFromError(err error) openrtb3.NoBidReason {
	switch ReadCode(err) {
	case TimeoutErrorCode:
		return openrtb3.NoBidInsufficientTime
	case BadInputErrorCode:
		return openrtb3.NoBidInvalidRequest
	case BadServerResponseErrorCode, FailedToRequestBidsErrorCode:
		fallthrough
	case FailedToUnmarshalErrorCode, FailedToMarshalErrorCode:
		return openrtb3.NoBidTechnicalError
	default:
		return openrtb3.NoBidUnknownError
	}
}
