package domain

// ExternalState is the caller-facing projection of an internal status.
// Every internal status maps to exactly one of these tuples.
type ExternalState struct {
	Status   string
	Finished bool
	Code     string
	Message  string
}

const (
	// Stable public error codes. Narrower provider-specific codes are
	// coarsened to CodeError in the external view; the original code is
	// retained on the charge for support tooling.
	CodeRejected = "P0010"
	CodeExpired  = "P0020"
	CodeError    = "P0050"
)

var (
	externalCreated   = ExternalState{Status: "created"}
	externalStarted   = ExternalState{Status: "started"}
	externalSubmitted = ExternalState{Status: "submitted"}
	externalSuccess   = ExternalState{Status: "success", Finished: true}
	externalRejected  = ExternalState{
		Status:   "failed",
		Finished: true,
		Code:     CodeRejected,
		Message:  "Payment method rejected",
	}
	externalExpired = ExternalState{
		Status:   "failed",
		Finished: true,
		Code:     CodeExpired,
		Message:  "Payment expired",
	}
	externalError = ExternalState{
		Status:   "error",
		Finished: true,
		Code:     CodeError,
		Message:  "Payment provider returned an error",
	}
)

var externalStates = map[ChargeStatus]ExternalState{
	StatusCreated:                externalCreated,
	StatusEnteringCardDetails:    externalCreated,
	StatusAuthorisationReady:     externalStarted,
	StatusAuthorisation3DSNeeded: externalStarted,
	StatusAuthorisationSuccess:   externalSubmitted,
	StatusAwaitingCaptureRequest: externalSubmitted,
	StatusCaptureApproved:        externalSubmitted,
	StatusCaptureSubmitted:       externalSubmitted,
	StatusCaptured:               externalSuccess,
	StatusAuthorisationRejected:  externalRejected,
	StatusExpired:                externalExpired,
	StatusAuthorisationError:     externalError,
	StatusCaptureError:           externalError,
}

// ExternalStateOf projects an internal status to its external tuple.
func ExternalStateOf(s ChargeStatus) ExternalState {
	return externalStates[s]
}

// TerminalStatusForOutcome maps a telephone-charge outcome to the internal
// status the charge is created in. Failure codes other than the public
// rejection and expiry codes land on AUTHORISATION_ERROR and project as
// P0050 regardless of the supplied code.
func TerminalStatusForOutcome(outcomeStatus, code string) (ChargeStatus, bool) {
	switch outcomeStatus {
	case "success":
		return StatusCaptured, true
	case "failed":
		switch code {
		case CodeRejected:
			return StatusAuthorisationRejected, true
		case CodeExpired:
			return StatusExpired, true
		default:
			return StatusAuthorisationError, true
		}
	case "error":
		return StatusAuthorisationError, true
	default:
		return "", false
	}
}
